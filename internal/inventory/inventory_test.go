package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/nuclearlighters/netcube/internal/models"
	"github.com/nuclearlighters/netcube/internal/osnet"
)

func TestListStableOrder(t *testing.T) {
	inv := New(osnet.NewFake())

	ifaces, err := inv.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ifaces) != 2 {
		t.Fatalf("List() returned %d interfaces, want 2", len(ifaces))
	}
	if ifaces[0].Name != "eth0" || ifaces[1].Name != "wlan0" {
		t.Errorf("List() order = %s,%s, want eth0,wlan0", ifaces[0].Name, ifaces[1].Name)
	}
	if ifaces[0].Kind != models.InterfaceWired {
		t.Errorf("eth0 kind = %s, want wired", ifaces[0].Kind)
	}
}

func TestGetSnapshot(t *testing.T) {
	fake := osnet.NewFake()
	inv := New(fake)

	ni, err := inv.Get(context.Background(), "eth0")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ni.IP.Address != "192.168.1.100" {
		t.Errorf("eth0 address = %s, want 192.168.1.100", ni.IP.Address)
	}

	// Snapshots are copies: mutating the result must not leak into the OS
	// state seen by the next query.
	ni.IP.Address = "10.0.0.1"
	again, _ := inv.Get(context.Background(), "eth0")
	if again.IP.Address != "192.168.1.100" {
		t.Error("Get() returned a live reference, want an isolated snapshot")
	}
}

func TestGetNotFound(t *testing.T) {
	inv := New(osnet.NewFake())

	_, err := inv.Get(context.Background(), "bond0")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Get(bond0) error = %v, want ErrNotFound", err)
	}
}

package mutator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nuclearlighters/netcube/internal/audit"
	"github.com/nuclearlighters/netcube/internal/inventory"
	"github.com/nuclearlighters/netcube/internal/models"
	"github.com/nuclearlighters/netcube/internal/osnet"
)

func newTestMutator(fake *osnet.Fake) *Mutator {
	inv := inventory.New(fake)
	return New(inv, fake, fake, audit.Discard{}, Options{
		PollInterval: time.Millisecond,
		PollTimeout:  50 * time.Millisecond,
	})
}

// =============================================================================
// Join
// =============================================================================

func TestJoinApplied(t *testing.T) {
	fake := osnet.NewFake()
	m := newTestMutator(fake)

	res := m.Join(context.Background(), "wlan0", "Home", "secret123")
	if res.Outcome != models.OutcomeApplied {
		t.Fatalf("Join() outcome = %s, want applied (reason=%q err=%v)", res.Outcome, res.Reason, res.Err)
	}
	if fake.JoinedSSID != "Home" {
		t.Errorf("joined ssid = %q, want Home", fake.JoinedSSID)
	}
	if res.Snapshot == nil || !res.Snapshot.IsConfigured() {
		t.Error("Applied join must carry a configured snapshot")
	}
}

func TestJoinAssociatedWithoutAddressIsPartial(t *testing.T) {
	fake := osnet.NewFake()
	fake.JoinAcquiresIP = false
	m := newTestMutator(fake)

	res := m.Join(context.Background(), "wlan0", "Home", "secret123")
	if res.Outcome != models.OutcomePartial {
		t.Fatalf("Join() outcome = %s, want partially_applied", res.Outcome)
	}
	if res.Warning == "" {
		t.Error("partial join must explain what is missing")
	}
	if res.Snapshot == nil || res.Snapshot.State != models.StateUp {
		t.Error("partial join snapshot should show the associated (up) interface")
	}
}

func TestJoinRejectedForWiredInterface(t *testing.T) {
	fake := osnet.NewFake()
	m := newTestMutator(fake)

	res := m.Join(context.Background(), "eth0", "Home", "secret123")
	if res.Outcome != models.OutcomeRejected {
		t.Fatalf("Join(eth0) outcome = %s, want rejected", res.Outcome)
	}
	if fake.JoinedSSID != "" {
		t.Error("rejected join must not reach the OS")
	}
}

func TestJoinRejectedForUnknownInterface(t *testing.T) {
	fake := osnet.NewFake()
	m := newTestMutator(fake)

	res := m.Join(context.Background(), "wlan9", "Home", "secret123")
	if res.Outcome != models.OutcomeRejected {
		t.Fatalf("Join(wlan9) outcome = %s, want rejected", res.Outcome)
	}
}

func TestJoinFailedOnAssociationError(t *testing.T) {
	fake := osnet.NewFake()
	fake.JoinErr = models.ErrAssociationFailed
	m := newTestMutator(fake)

	res := m.Join(context.Background(), "wlan0", "Home", "badpass")
	if res.Outcome != models.OutcomeFailed {
		t.Fatalf("Join() outcome = %s, want failed", res.Outcome)
	}
	if !errors.Is(res.Err, models.ErrAssociationFailed) {
		t.Errorf("Join() err = %v, want ErrAssociationFailed", res.Err)
	}
}

// =============================================================================
// Static IP
// =============================================================================

func TestSetStaticIPApplied(t *testing.T) {
	fake := osnet.NewFake()
	m := newTestMutator(fake)

	cfg := models.IPConfig{
		Mode: models.IPModeStatic, Address: "192.168.1.50", PrefixLen: 24,
		Gateway: "192.168.1.1", DNS: []string{"1.1.1.1"},
	}
	res := m.SetStaticIP(context.Background(), "eth0", cfg)
	if res.Outcome != models.OutcomeApplied {
		t.Fatalf("SetStaticIP() outcome = %s (warning=%q err=%v), want applied", res.Outcome, res.Warning, res.Err)
	}
	if res.Snapshot.IP.Address != "192.168.1.50" || res.Snapshot.IP.Mode != models.IPModeStatic {
		t.Errorf("snapshot ip = %+v, want static 192.168.1.50", res.Snapshot.IP)
	}
}

func TestSetStaticIPValidationRejectsBeforeOS(t *testing.T) {
	fake := osnet.NewFake()
	m := newTestMutator(fake)

	// Gateway outside the subnet.
	cfg := models.IPConfig{
		Mode: models.IPModeStatic, Address: "192.168.1.50", PrefixLen: 24,
		Gateway: "10.0.0.1",
	}
	res := m.SetStaticIP(context.Background(), "eth0", cfg)
	if res.Outcome != models.OutcomeRejected {
		t.Fatalf("SetStaticIP() outcome = %s, want rejected", res.Outcome)
	}

	// The host must be untouched.
	ni, _ := fake.Get(context.Background(), "eth0")
	if ni.IP.Address != "192.168.1.100" || ni.IP.Mode != models.IPModeDHCP {
		t.Errorf("eth0 ip after rejection = %+v, want original DHCP config", ni.IP)
	}
}

func TestSetStaticIPRollbackRestoresPriorState(t *testing.T) {
	fake := osnet.NewFake()
	// wlan0 starts unconfigured; failing the route step leaves a half-applied
	// address that the rollback must remove.
	fake.ApplyErr["ReplaceDefaultRoute"] = errors.New("netlink: no such process")
	m := newTestMutator(fake)

	cfg := models.IPConfig{
		Mode: models.IPModeStatic, Address: "10.0.0.5", PrefixLen: 24,
		Gateway: "10.0.0.1",
	}
	res := m.SetStaticIP(context.Background(), "wlan0", cfg)
	if res.Outcome != models.OutcomeFailed {
		t.Fatalf("SetStaticIP() outcome = %s, want failed after successful rollback", res.Outcome)
	}

	ni, _ := fake.Get(context.Background(), "wlan0")
	if ni.IP.Mode != models.IPModeNone || ni.IP.Address != "" {
		t.Errorf("wlan0 ip after rollback = %+v, want unconfigured", ni.IP)
	}
}

func TestSetStaticIPFailedRollbackIsPartial(t *testing.T) {
	fake := osnet.NewFake()
	// eth0 has a prior DNS list, so both the apply and the compensation hit
	// the injected SetDNS failure.
	fake.ApplyErr["SetDNS"] = errors.New("resolv.conf: read-only file system")
	m := newTestMutator(fake)

	cfg := models.IPConfig{
		Mode: models.IPModeStatic, Address: "192.168.1.50", PrefixLen: 24,
		Gateway: "192.168.1.1", DNS: []string{"9.9.9.9"},
	}
	res := m.SetStaticIP(context.Background(), "eth0", cfg)
	if res.Outcome != models.OutcomePartial {
		t.Fatalf("SetStaticIP() outcome = %s, want partially_applied when rollback also fails", res.Outcome)
	}
	if !strings.Contains(res.Warning, "rollback") {
		t.Errorf("warning = %q, want rollback failure mentioned", res.Warning)
	}
}

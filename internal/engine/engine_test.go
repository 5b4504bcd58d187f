package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nuclearlighters/netcube/internal/audit"
	"github.com/nuclearlighters/netcube/internal/inventory"
	"github.com/nuclearlighters/netcube/internal/models"
	"github.com/nuclearlighters/netcube/internal/mutator"
	"github.com/nuclearlighters/netcube/internal/osnet"
	"github.com/nuclearlighters/netcube/internal/scanner"
)

// gateJoiner blocks inside Join until released, so tests can hold an
// interface in flight deterministically.
type gateJoiner struct {
	inner   osnet.WifiJoiner
	started chan struct{}
	release chan struct{}
}

func (g *gateJoiner) Join(ctx context.Context, iface, ssid, credential string) error {
	g.started <- struct{}{}
	<-g.release
	return g.inner.Join(ctx, iface, ssid, credential)
}

func newTestEngine(fake *osnet.Fake, joiner osnet.WifiJoiner) *Engine {
	inv := inventory.New(fake)
	scn := scanner.New(fake, inv)
	mut := mutator.New(inv, joiner, fake, audit.Discard{}, mutator.Options{
		PollInterval: time.Millisecond,
		PollTimeout:  50 * time.Millisecond,
	})
	return New(inv, scn, mut, nil, 5*time.Second)
}

func isBusy(res models.OperationResult) bool {
	return res.Outcome == models.OutcomeRejected && errors.Is(res.Err, models.ErrBusy)
}

func TestBusyInterfaceRejectsSecondIntent(t *testing.T) {
	fake := osnet.NewFake()
	gate := &gateJoiner{inner: fake, started: make(chan struct{}, 1), release: make(chan struct{})}
	e := newTestEngine(fake, gate)

	var wg sync.WaitGroup
	var joinRes models.OperationResult
	wg.Add(1)
	go func() {
		defer wg.Done()
		joinRes = e.JoinWifi(context.Background(), "wlan0", "Home", "secret123")
	}()
	<-gate.started

	// Everything targeting wlan0 must bounce while the join holds it,
	// scans included.
	if res := e.Scan(context.Background(), "wlan0"); !isBusy(res) {
		t.Errorf("Scan during join = %s (%v), want busy rejection", res.Outcome, res.Err)
	}
	if res := e.JoinWifi(context.Background(), "wlan0", "Cafe", ""); !isBusy(res) {
		t.Errorf("second Join = %s, want busy rejection", res.Outcome)
	}
	if !e.Busy("wlan0") {
		t.Error("Busy(wlan0) = false while join in flight")
	}

	close(gate.release)
	wg.Wait()

	if joinRes.Outcome != models.OutcomeApplied {
		t.Fatalf("held join outcome = %s, want applied", joinRes.Outcome)
	}

	// Release is unconditional: the interface is free again.
	if e.Busy("wlan0") {
		t.Error("Busy(wlan0) = true after join finished")
	}
	if res := e.Scan(context.Background(), "wlan0"); res.Outcome != models.OutcomeApplied {
		t.Errorf("Scan after release = %s, want applied", res.Outcome)
	}
}

func TestConcurrentIntentsExactlyOneWins(t *testing.T) {
	fake := osnet.NewFake()
	gate := &gateJoiner{inner: fake, started: make(chan struct{}, 1), release: make(chan struct{})}
	e := newTestEngine(fake, gate)

	var wg sync.WaitGroup
	first := make(chan models.OperationResult, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		first <- e.JoinWifi(context.Background(), "wlan0", "Home", "secret123")
	}()
	<-gate.started

	busy := 0
	for i := 0; i < 4; i++ {
		if res := e.JoinWifi(context.Background(), "wlan0", "Home", "secret123"); isBusy(res) {
			busy++
		}
	}
	close(gate.release)
	wg.Wait()

	if busy != 4 {
		t.Errorf("busy rejections = %d, want 4", busy)
	}
	if res := <-first; res.Outcome != models.OutcomeApplied {
		t.Errorf("winning intent outcome = %s, want applied", res.Outcome)
	}
}

func TestDifferentInterfacesProceedConcurrently(t *testing.T) {
	fake := osnet.NewFake()
	gate := &gateJoiner{inner: fake, started: make(chan struct{}, 1), release: make(chan struct{})}
	e := newTestEngine(fake, gate)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.JoinWifi(context.Background(), "wlan0", "Home", "secret123")
	}()
	<-gate.started

	// wlan0 is held, but eth0 operations are unaffected.
	cfg := models.IPConfig{
		Mode: models.IPModeStatic, Address: "192.168.1.50", PrefixLen: 24,
		Gateway: "192.168.1.1",
	}
	if res := e.SetStaticIP(context.Background(), "eth0", cfg); res.Outcome != models.OutcomeApplied {
		t.Errorf("SetStaticIP(eth0) during wlan0 join = %s, want applied", res.Outcome)
	}

	close(gate.release)
	wg.Wait()
}

func TestFailedOperationReleasesInterface(t *testing.T) {
	fake := osnet.NewFake()
	fake.JoinErr = models.ErrAssociationFailed
	e := newTestEngine(fake, fake)

	if res := e.JoinWifi(context.Background(), "wlan0", "Home", "badpass"); res.Outcome != models.OutcomeFailed {
		t.Fatalf("Join outcome = %s, want failed", res.Outcome)
	}
	if e.Busy("wlan0") {
		t.Fatal("interface still held after failed operation")
	}

	fake.JoinErr = nil
	if res := e.JoinWifi(context.Background(), "wlan0", "Home", "secret123"); res.Outcome != models.OutcomeApplied {
		t.Errorf("retry after failure = %s, want applied", res.Outcome)
	}
}

func TestScanReturnsNetworksInline(t *testing.T) {
	fake := osnet.NewFake()
	e := newTestEngine(fake, fake)

	res := e.Scan(context.Background(), "wlan0")
	if res.Outcome != models.OutcomeApplied {
		t.Fatalf("Scan outcome = %s, want applied", res.Outcome)
	}
	if len(res.Networks) != 2 {
		t.Fatalf("Scan networks = %d, want 2 after dedup", len(res.Networks))
	}
	if res.Networks[0].SSID != "Home" || res.Networks[0].SignalDBM != -40 {
		t.Errorf("strongest network = %s at %d, want Home at -40", res.Networks[0].SSID, res.Networks[0].SignalDBM)
	}
}

func TestListInterfacesBypassesSerialization(t *testing.T) {
	fake := osnet.NewFake()
	gate := &gateJoiner{inner: fake, started: make(chan struct{}, 1), release: make(chan struct{})}
	e := newTestEngine(fake, gate)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.JoinWifi(context.Background(), "wlan0", "Home", "secret123")
	}()
	<-gate.started

	ifaces, err := e.ListInterfaces(context.Background())
	if err != nil {
		t.Fatalf("ListInterfaces during join error = %v", err)
	}
	if len(ifaces) != 2 {
		t.Errorf("ListInterfaces = %d interfaces, want 2", len(ifaces))
	}

	close(gate.release)
	wg.Wait()
}

package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nuclearlighters/netcube/internal/circuitbreaker"
	"github.com/nuclearlighters/netcube/internal/inventory"
	"github.com/nuclearlighters/netcube/internal/models"
	"github.com/nuclearlighters/netcube/internal/osnet"
)

func newTestScanner() (*Scanner, *osnet.Fake) {
	fake := osnet.NewFake()
	inv := inventory.New(fake)
	return New(fake, inv), fake
}

func TestScanDedupesAndOrders(t *testing.T) {
	s, _ := newTestScanner()

	// The fake advertises "Home" twice from the same BSSID at -40 and -70,
	// plus "Cafe" at -55.
	networks, err := s.Scan(context.Background(), "wlan0")
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(networks) != 2 {
		t.Fatalf("Scan() returned %d networks, want 2 after dedup", len(networks))
	}
	if networks[0].SSID != "Home" || networks[0].SignalDBM != -40 {
		t.Errorf("first network = %s at %d dBm, want Home at -40 (strongest kept)", networks[0].SSID, networks[0].SignalDBM)
	}
	if networks[1].SSID != "Cafe" {
		t.Errorf("second network = %s, want Cafe", networks[1].SSID)
	}
	if networks[0].SignalPercent != 100 {
		t.Errorf("Home signal percent = %d, want 100", networks[0].SignalPercent)
	}
}

func TestScanNonWirelessRejected(t *testing.T) {
	s, _ := newTestScanner()

	_, err := s.Scan(context.Background(), "eth0")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Scan(eth0) error = %v, want ErrNotFound", err)
	}
}

func TestScanUnknownInterface(t *testing.T) {
	s, _ := newTestScanner()

	_, err := s.Scan(context.Background(), "wlan9")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Scan(wlan9) error = %v, want ErrNotFound", err)
	}
}

func TestScanPropagatesTransientError(t *testing.T) {
	s, fake := newTestScanner()
	fake.ScanErr = models.ErrScanUnavailable

	_, err := s.Scan(context.Background(), "wlan0")
	if !errors.Is(err, models.ErrScanUnavailable) {
		t.Fatalf("Scan() error = %v, want ErrScanUnavailable", err)
	}
}

func TestScanFailsFastWhileBackendCoolsDown(t *testing.T) {
	s, fake := newTestScanner()
	s.breaker = circuitbreaker.New("wifi-scan", circuitbreaker.Config{
		FailureThreshold: 2,
		Cooldown:         time.Hour,
	})

	fake.ScanErr = errors.New("driver wedged")
	for i := 0; i < 2; i++ {
		if _, err := s.Scan(context.Background(), "wlan0"); err == nil {
			t.Fatal("Scan() succeeded with injected backend error")
		}
	}

	// Backend recovers, but the breaker is still cooling down: the pass
	// must fail fast as a retryable condition without reaching the OS.
	fake.ScanErr = nil
	_, err := s.Scan(context.Background(), "wlan0")
	if !errors.Is(err, models.ErrScanUnavailable) {
		t.Fatalf("Scan() error = %v, want ErrScanUnavailable while breaker open", err)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	in := []models.WifiNetwork{
		{SSID: "b", BSSID: "02", SignalDBM: -60},
		{SSID: "a", BSSID: "01", SignalDBM: -60},
		{SSID: "", BSSID: "03", SignalDBM: -10}, // hidden, dropped
		{SSID: "a", BSSID: "01", SignalDBM: -80},
	}

	for i := 0; i < 5; i++ {
		out := Normalize(in)
		if len(out) != 2 {
			t.Fatalf("Normalize() len = %d, want 2", len(out))
		}
		// Equal signal: SSID breaks the tie.
		if out[0].SSID != "a" || out[1].SSID != "b" {
			t.Fatalf("Normalize() order = %s,%s, want a,b", out[0].SSID, out[1].SSID)
		}
		if out[0].SignalDBM != -60 {
			t.Fatalf("Normalize() kept %d dBm for a, want strongest -60", out[0].SignalDBM)
		}
	}
}

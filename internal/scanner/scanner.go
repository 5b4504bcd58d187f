// Package scanner performs WiFi scan passes and normalizes their results.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nuclearlighters/netcube/internal/circuitbreaker"
	"github.com/nuclearlighters/netcube/internal/inventory"
	"github.com/nuclearlighters/netcube/internal/models"
	"github.com/nuclearlighters/netcube/internal/osnet"
)

// Scanner wraps the OS scan capability. Each Scan call is one finite,
// non-restartable pass; callers re-invoke for a fresh sample.
//
// A circuit breaker guards the OS call: when the scan backend fails
// repeatedly (wpa_supplicant down, driver wedged) further passes fail fast
// as ErrScanUnavailable instead of tying up the interface for the full
// scan timeout.
type Scanner struct {
	os      osnet.WifiScanner
	inv     *inventory.Inventory
	breaker *circuitbreaker.Breaker
}

func New(os osnet.WifiScanner, inv *inventory.Inventory) *Scanner {
	return &Scanner{
		os:  os,
		inv: inv,
		breaker: circuitbreaker.New("wifi-scan", circuitbreaker.Config{
			FailureThreshold: 3,
			Cooldown:         20 * time.Second,
		}),
	}
}

// Scan runs one pass on the named interface. Results are deduplicated by
// SSID+BSSID keeping the strongest observation, then ordered by descending
// signal with SSID as the tie-break so repeated synthetic inputs are
// deterministic.
func (s *Scanner) Scan(ctx context.Context, iface string) ([]models.WifiNetwork, error) {
	ni, err := s.inv.Get(ctx, iface)
	if err != nil {
		return nil, err
	}
	if ni.Kind != models.InterfaceWireless {
		return nil, fmt.Errorf("scan %s: %w: not a wireless interface", iface, models.ErrNotFound)
	}

	var beacons []models.WifiNetwork
	err = s.breaker.Execute(func() error {
		var serr error
		beacons, serr = s.os.Scan(ctx, iface)
		return serr
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return nil, fmt.Errorf("scan %s: %w: scan backend failing, cooling down", iface, models.ErrScanUnavailable)
		}
		if errors.Is(err, models.ErrScanUnavailable) {
			log.Debug().Str("interface", iface).Msg("scan unavailable, caller may retry")
		}
		return nil, fmt.Errorf("scan %s: %w", iface, err)
	}

	return Normalize(beacons), nil
}

// Normalize deduplicates and orders one pass worth of beacon observations.
func Normalize(beacons []models.WifiNetwork) []models.WifiNetwork {
	type key struct{ ssid, bssid string }
	best := make(map[key]models.WifiNetwork)
	for _, b := range beacons {
		if b.SSID == "" {
			continue
		}
		k := key{b.SSID, b.BSSID}
		if cur, ok := best[k]; !ok || b.SignalDBM > cur.SignalDBM {
			b.SignalPercent = models.SignalPercent(b.SignalDBM)
			best[k] = b
		}
	}

	out := make([]models.WifiNetwork, 0, len(best))
	for _, n := range best {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SignalDBM != out[j].SignalDBM {
			return out[i].SignalDBM > out[j].SignalDBM
		}
		return out[i].SSID < out[j].SSID
	})
	return out
}

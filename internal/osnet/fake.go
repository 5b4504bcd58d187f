package osnet

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nuclearlighters/netcube/internal/models"
)

// Fake is an in-memory backend for development off-box and for tests. It
// implements all four capability interfaces against a mutable interface
// table.
type Fake struct {
	mu         sync.Mutex
	Interfaces map[string]*models.NetworkInterface
	// Beacons holds the raw beacon observations per wireless interface.
	// Duplicate SSID+BSSID entries are deliberate: deduplication is the
	// scanner component's job.
	Beacons map[string][]models.WifiNetwork

	// Error injection.
	ScanErr  error
	JoinErr  error
	ApplyErr map[string]error // keyed by method name

	// JoinAcquiresIP controls whether a successful association is followed
	// by an address appearing on the interface, simulating DHCP.
	JoinAcquiresIP bool
	JoinedSSID     string
}

// NewFake seeds a host with one wired and one wireless interface.
func NewFake() *Fake {
	return &Fake{
		Interfaces: map[string]*models.NetworkInterface{
			"eth0": {
				Name:  "eth0",
				Kind:  models.InterfaceWired,
				MAC:   "00:1b:44:11:3a:b7",
				MTU:   1500,
				State: models.StateUp,
				IP: models.IPConfig{
					Mode:      models.IPModeDHCP,
					Address:   "192.168.1.100",
					PrefixLen: 24,
					Gateway:   "192.168.1.1",
					DNS:       []string{"192.168.1.1"},
				},
			},
			"wlan0": {
				Name:  "wlan0",
				Kind:  models.InterfaceWireless,
				MAC:   "00:1b:44:11:3a:b8",
				MTU:   1500,
				State: models.StateDown,
				IP:    models.IPConfig{Mode: models.IPModeNone},
			},
		},
		Beacons: map[string][]models.WifiNetwork{
			"wlan0": {
				{SSID: "Home", BSSID: "aa:bb:cc:00:11:22", SignalDBM: -40, Security: models.SecurityWPA2},
				{SSID: "Home", BSSID: "aa:bb:cc:00:11:22", SignalDBM: -70, Security: models.SecurityWPA2},
				{SSID: "Cafe", BSSID: "aa:bb:cc:33:44:55", SignalDBM: -55, Security: models.SecurityOpen},
			},
		},
		ApplyErr:       make(map[string]error),
		JoinAcquiresIP: true,
	}
}

// Backend wraps the fake as a capability set.
func (f *Fake) Backend() *Backend {
	return &Backend{Query: f, Scan: f, Join: f, Apply: f}
}

func (f *Fake) List(ctx context.Context) ([]models.NetworkInterface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.NetworkInterface, 0, len(f.Interfaces))
	for _, ni := range f.Interfaces {
		out = append(out, *ni)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *Fake) Get(ctx context.Context, name string) (*models.NetworkInterface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ni, ok := f.Interfaces[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, name)
	}
	snap := *ni
	return &snap, nil
}

func (f *Fake) Scan(ctx context.Context, iface string) ([]models.WifiNetwork, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ScanErr != nil {
		return nil, f.ScanErr
	}
	if _, ok := f.Interfaces[iface]; !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, iface)
	}
	beacons := make([]models.WifiNetwork, len(f.Beacons[iface]))
	copy(beacons, f.Beacons[iface])
	for i := range beacons {
		beacons[i].SignalPercent = models.SignalPercent(beacons[i].SignalDBM)
	}
	return beacons, nil
}

func (f *Fake) Join(ctx context.Context, iface, ssid, credential string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.JoinErr != nil {
		return f.JoinErr
	}
	ni, ok := f.Interfaces[iface]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrNotFound, iface)
	}
	f.JoinedSSID = ssid
	ni.State = models.StateUp
	if f.JoinAcquiresIP {
		ni.IP = models.IPConfig{
			Mode:      models.IPModeDHCP,
			Address:   "192.168.8.50",
			PrefixLen: 24,
			Gateway:   "192.168.8.1",
			DNS:       []string{"192.168.8.1"},
		}
	} else {
		ni.IP = models.IPConfig{Mode: models.IPModeNone}
	}
	return nil
}

func (f *Fake) AddAddress(ctx context.Context, iface string, address string, prefixLen int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ApplyErr["AddAddress"]; err != nil {
		return err
	}
	ni, ok := f.Interfaces[iface]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrNotFound, iface)
	}
	ni.IP.Mode = models.IPModeStatic
	ni.IP.Address = address
	ni.IP.PrefixLen = prefixLen
	ni.State = models.StateUp
	return nil
}

func (f *Fake) RemoveAddresses(ctx context.Context, iface string, keep string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ApplyErr["RemoveAddresses"]; err != nil {
		return err
	}
	ni, ok := f.Interfaces[iface]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrNotFound, iface)
	}
	if keep == "" {
		ni.IP = models.IPConfig{Mode: models.IPModeNone}
	} else if ni.IP.Address != keep {
		ni.IP.Address = keep
	}
	return nil
}

func (f *Fake) ReplaceDefaultRoute(ctx context.Context, iface, gateway string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ApplyErr["ReplaceDefaultRoute"]; err != nil {
		return err
	}
	ni, ok := f.Interfaces[iface]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrNotFound, iface)
	}
	ni.IP.Gateway = gateway
	return nil
}

func (f *Fake) RemoveDefaultRoute(ctx context.Context, iface string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ApplyErr["RemoveDefaultRoute"]; err != nil {
		return err
	}
	ni, ok := f.Interfaces[iface]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrNotFound, iface)
	}
	ni.IP.Gateway = ""
	return nil
}

func (f *Fake) SetDNS(ctx context.Context, iface string, servers []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ApplyErr["SetDNS"]; err != nil {
		return err
	}
	ni, ok := f.Interfaces[iface]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrNotFound, iface)
	}
	ni.IP.DNS = append([]string(nil), servers...)
	return nil
}

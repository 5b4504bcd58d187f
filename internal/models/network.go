// Package models defines the domain types shared across the API.
package models

import (
	"fmt"
	"net"
)

// =============================================================================
// Interfaces
// =============================================================================

// InterfaceKind classifies a network interface by its hardware type.
type InterfaceKind string

const (
	InterfaceWired    InterfaceKind = "wired"
	InterfaceWireless InterfaceKind = "wireless"
	InterfaceLoopback InterfaceKind = "loopback"
	InterfaceVirtual  InterfaceKind = "virtual"
	InterfaceUnknown  InterfaceKind = "unknown"
)

// OperState is the operational state the OS reports for an interface.
type OperState string

const (
	StateUp      OperState = "up"
	StateDown    OperState = "down"
	StateUnknown OperState = "unknown"
)

// IPMode says how an interface's address configuration is managed.
type IPMode string

const (
	IPModeNone   IPMode = "none"
	IPModeDHCP   IPMode = "dhcp"
	IPModeStatic IPMode = "static"
)

// IPConfig is an interface's IP configuration. Address fields are only
// meaningful when Mode is static; DHCP mode carries no address request.
type IPConfig struct {
	Mode      IPMode   `json:"mode"`
	Address   string   `json:"address,omitempty"`
	PrefixLen int      `json:"prefix_len,omitempty"`
	Gateway   string   `json:"gateway,omitempty"`
	DNS       []string `json:"dns,omitempty"`
}

// Validate checks the static-mode invariant: a well-formed address/prefix
// pair, and a gateway (when given) inside the configured subnet.
func (c IPConfig) Validate() error {
	switch c.Mode {
	case IPModeDHCP:
		if c.Address != "" || c.Gateway != "" {
			return fmt.Errorf("dhcp mode must not carry address fields")
		}
		return nil
	case IPModeStatic:
	default:
		return fmt.Errorf("invalid ip mode %q", c.Mode)
	}

	ip := net.ParseIP(c.Address)
	if ip == nil || ip.To4() == nil {
		return fmt.Errorf("invalid IPv4 address %q", c.Address)
	}
	if c.PrefixLen < 1 || c.PrefixLen > 32 {
		return fmt.Errorf("invalid prefix length %d", c.PrefixLen)
	}

	if c.Gateway != "" {
		gw := net.ParseIP(c.Gateway)
		if gw == nil || gw.To4() == nil {
			return fmt.Errorf("invalid gateway %q", c.Gateway)
		}
		subnet := net.IPNet{
			IP:   ip.Mask(net.CIDRMask(c.PrefixLen, 32)),
			Mask: net.CIDRMask(c.PrefixLen, 32),
		}
		if !subnet.Contains(gw) {
			return fmt.Errorf("gateway %s outside subnet %s", c.Gateway, subnet.String())
		}
	}

	for _, d := range c.DNS {
		if net.ParseIP(d) == nil {
			return fmt.Errorf("invalid DNS server %q", d)
		}
	}
	return nil
}

// CIDR returns the address in CIDR notation, e.g. "192.168.1.50/24".
func (c IPConfig) CIDR() string {
	return fmt.Sprintf("%s/%d", c.Address, c.PrefixLen)
}

// InterfaceStats holds traffic counters for one interface.
type InterfaceStats struct {
	RxBytes   uint64 `json:"rx_bytes"`
	TxBytes   uint64 `json:"tx_bytes"`
	RxPackets uint64 `json:"rx_packets"`
	TxPackets uint64 `json:"tx_packets"`
	RxErrors  uint64 `json:"rx_errors"`
	TxErrors  uint64 `json:"tx_errors"`
}

// NetworkInterface is a point-in-time snapshot of one host interface.
// It is refreshed on every inventory query and never cached.
type NetworkInterface struct {
	Name  string          `json:"name"`
	Kind  InterfaceKind   `json:"kind"`
	MAC   string          `json:"mac_address,omitempty"`
	MTU   int             `json:"mtu,omitempty"`
	State OperState       `json:"state"`
	IP    IPConfig        `json:"ip"`
	Stats *InterfaceStats `json:"stats,omitempty"`
}

// IsConfigured reports whether the interface is up with an address assigned.
func (i *NetworkInterface) IsConfigured() bool {
	return i.State == StateUp && i.IP.Mode != IPModeNone && i.IP.Address != ""
}

// =============================================================================
// WiFi
// =============================================================================

// WifiSecurity is the security protocol advertised by an access point.
type WifiSecurity string

const (
	SecurityOpen    WifiSecurity = "open"
	SecurityWEP     WifiSecurity = "wep"
	SecurityWPA     WifiSecurity = "wpa"
	SecurityWPA2    WifiSecurity = "wpa2"
	SecurityWPA3    WifiSecurity = "wpa3"
	SecurityUnknown WifiSecurity = "unknown"
)

// WifiNetwork is one network observed during a scan pass. Two scans may
// disagree; results are a point-in-time sample, not a cache.
type WifiNetwork struct {
	SSID          string       `json:"ssid"`
	BSSID         string       `json:"bssid,omitempty"`
	SignalDBM     int          `json:"signal_dbm"`
	SignalPercent int          `json:"signal_percent"`
	Channel       int          `json:"channel,omitempty"`
	Security      WifiSecurity `json:"security"`
}

// SignalPercent converts a dBm reading to a 0-100 scale.
func SignalPercent(dbm int) int {
	pct := 2 * (dbm + 100)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

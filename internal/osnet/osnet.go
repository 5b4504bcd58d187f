// Package osnet abstracts the OS-level networking primitives the engine
// depends on. Implementations are selected per platform at process start;
// nothing above this package branches on the host OS.
package osnet

import (
	"context"

	"github.com/nuclearlighters/netcube/internal/models"
)

// InterfaceQuery reads interface state from the OS. Implementations are
// read-only and never retry; a failed query is surfaced to the caller.
type InterfaceQuery interface {
	List(ctx context.Context) ([]models.NetworkInterface, error)
	Get(ctx context.Context, name string) (*models.NetworkInterface, error)
}

// WifiScanner performs one scan pass on a named interface. Each call is a
// fresh pass; results are never cached by the implementation.
type WifiScanner interface {
	Scan(ctx context.Context, iface string) ([]models.WifiNetwork, error)
}

// WifiJoiner associates a named interface to an SSID. Association is the
// WiFi-layer handshake only; address acquisition is observed separately
// through InterfaceQuery.
type WifiJoiner interface {
	Join(ctx context.Context, iface, ssid, credential string) error
}

// IPApplier edits address, route, and DNS state for a named interface. The
// edits are individually small so the mutator can order them to keep the
// interface reachable and compensate on failure.
type IPApplier interface {
	AddAddress(ctx context.Context, iface string, address string, prefixLen int) error
	RemoveAddresses(ctx context.Context, iface string, keep string) error
	ReplaceDefaultRoute(ctx context.Context, iface, gateway string) error
	RemoveDefaultRoute(ctx context.Context, iface string) error
	SetDNS(ctx context.Context, iface string, servers []string) error
}

// Backend bundles the capability implementations for one platform.
type Backend struct {
	Query InterfaceQuery
	Scan  WifiScanner
	Join  WifiJoiner
	Apply IPApplier
}

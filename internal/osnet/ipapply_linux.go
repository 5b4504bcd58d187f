//go:build linux

package osnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/nuclearlighters/netcube/internal/models"
)

// resolvConfPath is a variable so tests can redirect DNS writes.
var resolvConfPath = "/etc/resolv.conf"

// NetlinkApplier edits addresses, routes, and DNS via rtnetlink. Each method
// is one small edit; the mutator owns ordering and rollback.
type NetlinkApplier struct {
	modes *modeTracker
}

func (a *NetlinkApplier) AddAddress(ctx context.Context, iface string, address string, prefixLen int) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return classifyNetlinkErr("add address", err)
	}
	addr, err := netlink.ParseAddr(fmt.Sprintf("%s/%d", address, prefixLen))
	if err != nil {
		return fmt.Errorf("parse address %s/%d: %w", address, prefixLen, err)
	}
	if err := netlink.AddrAdd(link, addr); err != nil && !errors.Is(err, unix.EEXIST) {
		return classifyNetlinkErr("add address", err)
	}
	a.modes.set(iface, models.IPModeStatic)
	return nil
}

// RemoveAddresses deletes every IPv4 address on the interface except keep.
func (a *NetlinkApplier) RemoveAddresses(ctx context.Context, iface string, keep string) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return classifyNetlinkErr("remove addresses", err)
	}
	addrs, err := netlink.AddrList(link, unix.AF_INET)
	if err != nil {
		return classifyNetlinkErr("remove addresses", err)
	}
	for _, addr := range addrs {
		if keep != "" && addr.IPNet.IP.String() == keep {
			continue
		}
		if err := netlink.AddrDel(link, &addr); err != nil {
			return classifyNetlinkErr("remove address "+addr.IPNet.String(), err)
		}
	}
	return nil
}

func (a *NetlinkApplier) ReplaceDefaultRoute(ctx context.Context, iface, gateway string) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return classifyNetlinkErr("replace default route", err)
	}
	gw := net.ParseIP(gateway)
	if gw == nil {
		return fmt.Errorf("parse gateway %q", gateway)
	}
	route := &netlink.Route{
		LinkIndex: link.Attrs().Index,
		Gw:        gw,
		Dst:       nil,
	}
	if err := netlink.RouteReplace(route); err != nil {
		return classifyNetlinkErr("replace default route", err)
	}
	return nil
}

func (a *NetlinkApplier) RemoveDefaultRoute(ctx context.Context, iface string) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return classifyNetlinkErr("remove default route", err)
	}
	routes, err := netlink.RouteList(link, unix.AF_INET)
	if err != nil {
		return classifyNetlinkErr("remove default route", err)
	}
	for _, r := range routes {
		if r.Dst == nil {
			if err := netlink.RouteDel(&r); err != nil {
				return classifyNetlinkErr("remove default route", err)
			}
		}
	}
	return nil
}

// SetDNS rewrites the resolver configuration with the given servers.
func (a *NetlinkApplier) SetDNS(ctx context.Context, iface string, servers []string) error {
	var b strings.Builder
	b.WriteString("# managed by netcube\n")
	for _, s := range servers {
		fmt.Fprintf(&b, "nameserver %s\n", s)
	}
	if err := os.WriteFile(resolvConfPath, []byte(b.String()), 0644); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("set dns: %w: %v", models.ErrPermissionDenied, err)
		}
		return fmt.Errorf("set dns: %w", err)
	}
	return nil
}

//go:build linux

package osnet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/nuclearlighters/netcube/internal/models"
)

// modeTracker remembers the configuration mode last applied to an interface
// by this process. The kernel does not record whether an address came from a
// DHCP lease or a static assignment, so an address with no recorded apply is
// reported as DHCP.
type modeTracker struct {
	mu    sync.Mutex
	modes map[string]models.IPMode
}

func newModeTracker() *modeTracker {
	return &modeTracker{modes: make(map[string]models.IPMode)}
}

func (t *modeTracker) set(name string, mode models.IPMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.modes[name] = mode
}

func (t *modeTracker) get(name string) models.IPMode {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m, ok := t.modes[name]; ok {
		return m
	}
	return models.IPModeDHCP
}

// NetlinkQuery reads interface state via rtnetlink.
type NetlinkQuery struct {
	modes *modeTracker
}

// NewLinuxBackend builds the netlink/iw/wpa_cli capability set.
func NewLinuxBackend() *Backend {
	t := newModeTracker()
	return &Backend{
		Query: &NetlinkQuery{modes: t},
		Scan:  &IWScanner{},
		Join:  &WPAJoiner{},
		Apply: &NetlinkApplier{modes: t},
	}
}

// NewPlatformBackend returns the native backend for this host.
func NewPlatformBackend() (*Backend, error) {
	return NewLinuxBackend(), nil
}

func (q *NetlinkQuery) List(ctx context.Context) ([]models.NetworkInterface, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, classifyNetlinkErr("list links", err)
	}

	out := make([]models.NetworkInterface, 0, len(links))
	for _, link := range links {
		out = append(out, q.snapshot(link))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (q *NetlinkQuery) Get(ctx context.Context, name string) (*models.NetworkInterface, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		var notFound netlink.LinkNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrNotFound, name)
		}
		return nil, classifyNetlinkErr("get link "+name, err)
	}
	ni := q.snapshot(link)
	return &ni, nil
}

func (q *NetlinkQuery) snapshot(link netlink.Link) models.NetworkInterface {
	attrs := link.Attrs()
	ni := models.NetworkInterface{
		Name:  attrs.Name,
		MTU:   attrs.MTU,
		Kind:  classifyInterface(attrs.Name),
		State: operState(attrs.OperState.String()),
		IP:    models.IPConfig{Mode: models.IPModeNone},
	}
	if attrs.HardwareAddr != nil {
		ni.MAC = attrs.HardwareAddr.String()
	}

	addrs, err := netlink.AddrList(link, unix.AF_INET)
	if err == nil && len(addrs) > 0 {
		ones, _ := addrs[0].IPNet.Mask.Size()
		ni.IP = models.IPConfig{
			Mode:      q.modes.get(attrs.Name),
			Address:   addrs[0].IPNet.IP.String(),
			PrefixLen: ones,
		}
		if gw := defaultGateway(link); gw != "" {
			ni.IP.Gateway = gw
		}
		ni.IP.DNS = readResolvConf("/etc/resolv.conf")
	}
	return ni
}

func defaultGateway(link netlink.Link) string {
	routes, err := netlink.RouteList(link, unix.AF_INET)
	if err != nil {
		return ""
	}
	for _, r := range routes {
		if r.Dst == nil && r.Gw != nil {
			return r.Gw.String()
		}
	}
	return ""
}

// classifyInterface maps an interface name to its kind, consulting sysfs
// for the wireless flag.
func classifyInterface(name string) models.InterfaceKind {
	switch {
	case name == "lo":
		return models.InterfaceLoopback
	case isWireless(name):
		return models.InterfaceWireless
	case strings.HasPrefix(name, "eth"), strings.HasPrefix(name, "en"):
		return models.InterfaceWired
	case strings.HasPrefix(name, "wlan"), strings.HasPrefix(name, "wl"):
		return models.InterfaceWireless
	case strings.HasPrefix(name, "veth"), strings.HasPrefix(name, "br"),
		strings.HasPrefix(name, "docker"), strings.HasPrefix(name, "tun"),
		strings.HasPrefix(name, "tap"):
		return models.InterfaceVirtual
	default:
		return models.InterfaceUnknown
	}
}

func isWireless(name string) bool {
	_, err := os.Stat("/sys/class/net/" + name + "/wireless")
	return err == nil
}

func operState(s string) models.OperState {
	switch s {
	case "up":
		return models.StateUp
	case "down", "lowerlayerdown":
		return models.StateDown
	default:
		return models.StateUnknown
	}
}

// readResolvConf returns the nameserver list, in file order.
func readResolvConf(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var servers []string
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 2 && fields[0] == "nameserver" {
			servers = append(servers, fields[1])
		}
	}
	return servers
}

func classifyNetlinkErr(op string, err error) error {
	if errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
		return fmt.Errorf("%s: %w: %v", op, models.ErrPermissionDenied, err)
	}
	return fmt.Errorf("%s: %w: %v", op, models.ErrQueryFailed, err)
}

// Package inventory enumerates host network interfaces. Every query is a
// fresh snapshot of OS state; nothing is cached between calls.
package inventory

import (
	"context"
	"fmt"

	gopsnet "github.com/shirou/gopsutil/v3/net"

	"github.com/nuclearlighters/netcube/internal/models"
	"github.com/nuclearlighters/netcube/internal/osnet"
)

// Inventory answers list/get queries against the OS. It never retries:
// repeated query failures typically mean a missing privilege, which is the
// caller's problem to surface, not ours to mask.
type Inventory struct {
	query osnet.InterfaceQuery
}

func New(query osnet.InterfaceQuery) *Inventory {
	return &Inventory{query: query}
}

// List returns all interfaces in stable name order.
func (inv *Inventory) List(ctx context.Context) ([]models.NetworkInterface, error) {
	ifaces, err := inv.query.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory list: %w", err)
	}
	return ifaces, nil
}

// Get returns one interface snapshot, or models.ErrNotFound.
func (inv *Inventory) Get(ctx context.Context, name string) (*models.NetworkInterface, error) {
	ni, err := inv.query.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("inventory get %s: %w", name, err)
	}
	return ni, nil
}

// ListDetailed is List with traffic counters attached. Counter collection is
// best effort; an interface without counters still appears in the result.
func (inv *Inventory) ListDetailed(ctx context.Context) ([]models.NetworkInterface, error) {
	ifaces, err := inv.List(ctx)
	if err != nil {
		return nil, err
	}

	counters, err := gopsnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return ifaces, nil
	}
	byName := make(map[string]gopsnet.IOCountersStat, len(counters))
	for _, c := range counters {
		byName[c.Name] = c
	}
	for i := range ifaces {
		if c, ok := byName[ifaces[i].Name]; ok {
			ifaces[i].Stats = &models.InterfaceStats{
				RxBytes:   c.BytesRecv,
				TxBytes:   c.BytesSent,
				RxPackets: c.PacketsRecv,
				TxPackets: c.PacketsSent,
				RxErrors:  c.Errin,
				TxErrors:  c.Errout,
			}
		}
	}
	return ifaces, nil
}

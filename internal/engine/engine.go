// Package engine serializes operations per interface and dispatches them
// to the scanner and mutator.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nuclearlighters/netcube/internal/inventory"
	"github.com/nuclearlighters/netcube/internal/metrics"
	"github.com/nuclearlighters/netcube/internal/models"
	"github.com/nuclearlighters/netcube/internal/mutator"
	"github.com/nuclearlighters/netcube/internal/scanner"
)

// Engine is the single entry point for intents. Each interface admits at
// most one operation at a time; a second intent for a busy interface is
// rejected immediately, never queued. Different interfaces proceed
// concurrently, so the in-flight table is keyed by interface name and its
// mutex guards only the map itself, not the operations.
type Engine struct {
	inv     *inventory.Inventory
	scan    *scanner.Scanner
	mut     *mutator.Mutator
	metrics *metrics.Metrics

	opTimeout time.Duration

	mu       sync.Mutex
	inFlight map[string]bool
}

func New(inv *inventory.Inventory, scan *scanner.Scanner, mut *mutator.Mutator, m *metrics.Metrics, opTimeout time.Duration) *Engine {
	if opTimeout <= 0 {
		opTimeout = 90 * time.Second
	}
	return &Engine{
		inv:       inv,
		scan:      scan,
		mut:       mut,
		metrics:   m,
		opTimeout: opTimeout,
		inFlight:  make(map[string]bool),
	}
}

// acquire marks iface in flight. It returns false if another operation
// already holds it.
func (e *Engine) acquire(iface string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight[iface] {
		return false
	}
	e.inFlight[iface] = true
	return true
}

func (e *Engine) release(iface string) {
	e.mu.Lock()
	delete(e.inFlight, iface)
	e.mu.Unlock()
}

// Busy reports whether iface currently has an operation in flight.
func (e *Engine) Busy(iface string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight[iface]
}

// ListInterfaces is a read-only pass-through; enumeration never takes part
// in per-interface serialization.
func (e *Engine) ListInterfaces(ctx context.Context) ([]models.NetworkInterface, error) {
	return e.inv.List(ctx)
}

// ListInterfacesDetailed includes per-interface traffic counters.
func (e *Engine) ListInterfacesDetailed(ctx context.Context) ([]models.NetworkInterface, error) {
	return e.inv.ListDetailed(ctx)
}

// GetInterface returns the current snapshot of one interface.
func (e *Engine) GetInterface(ctx context.Context, name string) (*models.NetworkInterface, error) {
	return e.inv.Get(ctx, name)
}

// Scan runs a WiFi scan on iface. Scans occupy the interface like any other
// operation, but unlike mutations they run under the caller's context: an
// abandoned scan is worthless, so disconnect cancels it.
func (e *Engine) Scan(ctx context.Context, iface string) models.OperationResult {
	if !e.acquire(iface) {
		e.metrics.ObserveBusy()
		return e.busy(models.IntentScan, iface)
	}
	defer e.release(iface)
	e.metrics.OperationStarted()
	defer e.metrics.OperationFinished()

	start := time.Now()
	networks, err := e.scan.Scan(ctx, iface)
	e.metrics.ObserveScanDuration(time.Since(start).Seconds())

	var res models.OperationResult
	if err != nil {
		res = models.Failed(iface, models.NewOpError("scan", iface, err))
	} else {
		res = models.ScanResult(iface, networks)
	}
	e.observe(models.IntentScan, res)
	return res
}

// JoinWifi associates iface to ssid. The mutation is detached from the
// caller's context: once started it runs to a terminal outcome under the
// operation timeout, so a dropped HTTP connection cannot leave the host
// half-configured with nobody watching.
func (e *Engine) JoinWifi(ctx context.Context, iface, ssid, credential string) models.OperationResult {
	return e.mutate(models.IntentJoinWifi, iface, func(opCtx context.Context) models.OperationResult {
		return e.mut.Join(opCtx, iface, ssid, credential)
	})
}

// SetStaticIP applies a static configuration to iface.
func (e *Engine) SetStaticIP(ctx context.Context, iface string, cfg models.IPConfig) models.OperationResult {
	return e.mutate(models.IntentSetStaticIP, iface, func(opCtx context.Context) models.OperationResult {
		return e.mut.SetStaticIP(opCtx, iface, cfg)
	})
}

func (e *Engine) mutate(kind models.IntentKind, iface string, run func(context.Context) models.OperationResult) models.OperationResult {
	if !e.acquire(iface) {
		e.metrics.ObserveBusy()
		return e.busy(kind, iface)
	}
	e.metrics.OperationStarted()

	opCtx, cancel := context.WithTimeout(context.Background(), e.opTimeout)

	done := make(chan models.OperationResult, 1)
	go func() {
		defer e.release(iface)
		defer e.metrics.OperationFinished()
		defer cancel()

		res := run(opCtx)
		e.observe(kind, res)
		done <- res
	}()

	// The operation finishes on its own schedule; the caller just waits for
	// the result. There is no path that abandons the goroutine early, so the
	// interface is always released.
	return <-done
}

func (e *Engine) busy(kind models.IntentKind, iface string) models.OperationResult {
	log.Debug().Str("interface", iface).Str("intent", string(kind)).Msg("Rejecting intent, interface busy")
	res := models.Rejected(iface, "interface "+iface+" has an operation in flight")
	res.Err = models.NewOpError(string(kind), iface, models.ErrBusy)
	return res
}

func (e *Engine) observe(kind models.IntentKind, res models.OperationResult) {
	e.metrics.ObserveOperation(string(kind), string(res.Outcome))
	evt := log.Info()
	if res.Outcome == models.OutcomeFailed {
		evt = log.Error().Err(res.Err)
	}
	evt.Str("interface", res.Interface).
		Str("intent", string(kind)).
		Str("outcome", string(res.Outcome)).
		Msg("Operation finished")
}

// Package mutator applies configuration changes to one interface and
// verifies the result against the inventory.
package mutator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nuclearlighters/netcube/internal/audit"
	"github.com/nuclearlighters/netcube/internal/inventory"
	"github.com/nuclearlighters/netcube/internal/models"
	"github.com/nuclearlighters/netcube/internal/osnet"
)

// Options bound the post-mutation verification loop. They come from the
// service configuration, not constants, so operators can tune them per host.
type Options struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	if o.PollTimeout <= 0 {
		o.PollTimeout = 30 * time.Second
	}
	return o
}

// Mutator owns the join and static-IP operations. It consults the inventory
// for pre-validation and post-verification and records every mutation to the
// audit sink.
type Mutator struct {
	inv    *inventory.Inventory
	joiner osnet.WifiJoiner
	apply  osnet.IPApplier
	sink   audit.Sink
	opts   Options
}

func New(inv *inventory.Inventory, joiner osnet.WifiJoiner, apply osnet.IPApplier, sink audit.Sink, opts Options) *Mutator {
	return &Mutator{inv: inv, joiner: joiner, apply: apply, sink: sink, opts: opts.withDefaults()}
}

// =============================================================================
// Join
// =============================================================================

// Join associates iface to ssid and waits for address acquisition.
// Association without an address is a distinct outcome from failure: the
// host was left in a different state (associated) than before the attempt,
// and callers must be able to tell "nothing changed" from "state changed but
// goal not reached".
func (m *Mutator) Join(ctx context.Context, iface, ssid, credential string) models.OperationResult {
	res := m.join(ctx, iface, ssid, credential)
	m.record(ctx, models.IntentJoinWifi, res, map[string]any{"ssid": ssid})
	return res
}

func (m *Mutator) join(ctx context.Context, iface, ssid, credential string) models.OperationResult {
	ni, err := m.inv.Get(ctx, iface)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Rejected(iface, "invalid interface: "+iface)
		}
		return models.Failed(iface, models.NewOpError("join", iface, err))
	}
	if ni.Kind != models.InterfaceWireless {
		return models.Rejected(iface, fmt.Sprintf("interface %s is not wireless-capable", iface))
	}

	if err := m.joiner.Join(ctx, iface, ssid, credential); err != nil {
		return models.Failed(iface, models.NewOpError("join", iface, err))
	}

	snap, configured := m.waitConfigured(ctx, iface)
	if configured {
		return models.Applied(iface, snap)
	}
	if snap == nil {
		snap = ni
	}
	return models.Partial(iface, snap,
		fmt.Sprintf("associated to %q but no address was acquired within %s", ssid, m.opts.PollTimeout))
}

// waitConfigured polls the inventory with increasing delay until the
// interface reports up with an address, or the poll timeout elapses. This
// bounded poll is the only intentional latency in a mutation.
func (m *Mutator) waitConfigured(ctx context.Context, iface string) (*models.NetworkInterface, bool) {
	deadline := time.Now().Add(m.opts.PollTimeout)
	delay := m.opts.PollInterval
	maxDelay := m.opts.PollInterval * 8

	var last *models.NetworkInterface
	for {
		snap, err := m.inv.Get(ctx, iface)
		if err == nil {
			last = snap
			if snap.IsConfigured() {
				return snap, true
			}
		}

		if time.Now().After(deadline) || ctx.Err() != nil {
			return last, false
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last, false
		case <-timer.C:
		}
		if delay < maxDelay {
			delay = delay * 3 / 2
		}
	}
}

// =============================================================================
// Static IP
// =============================================================================

// SetStaticIP validates, applies, and verifies a static configuration.
// Validation failures reject locally before any OS call. The apply sequence
// is ordered so the interface never loses both its address and its route at
// once: new address first, then the default route swap, then DNS. If a step
// fails the prior configuration is restored; if that compensation itself
// fails the result is PartiallyApplied so the lost configuration is never
// silently dropped.
func (m *Mutator) SetStaticIP(ctx context.Context, iface string, cfg models.IPConfig) models.OperationResult {
	res := m.setStaticIP(ctx, iface, cfg)
	m.record(ctx, models.IntentSetStaticIP, res, map[string]any{
		"address": cfg.Address, "prefix_len": cfg.PrefixLen, "gateway": cfg.Gateway,
	})
	return res
}

func (m *Mutator) setStaticIP(ctx context.Context, iface string, cfg models.IPConfig) models.OperationResult {
	if cfg.Mode != models.IPModeStatic {
		return models.Rejected(iface, "invalid configuration: mode must be static")
	}
	if err := cfg.Validate(); err != nil {
		return models.Rejected(iface, "invalid configuration: "+err.Error())
	}

	prior, err := m.inv.Get(ctx, iface)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Rejected(iface, "invalid interface: "+iface)
		}
		return models.Failed(iface, models.NewOpError("set static ip", iface, err))
	}

	if stepErr := m.applySequence(ctx, iface, cfg); stepErr != nil {
		if rbErr := m.rollback(ctx, iface, prior.IP); rbErr != nil {
			snap, _ := m.inv.Get(ctx, iface)
			return models.Partial(iface, snap, fmt.Sprintf(
				"apply failed (%v) and rollback to prior configuration also failed (%v); prior config was %s",
				stepErr, rbErr, describe(prior.IP)))
		}
		return models.Failed(iface, models.NewOpError("set static ip", iface, stepErr))
	}

	snap, err := m.inv.Get(ctx, iface)
	if err != nil {
		return models.Partial(iface, nil, "applied but post-verification query failed: "+err.Error())
	}
	if mismatch := verify(snap.IP, cfg); mismatch != "" {
		return models.Partial(iface, snap, "applied but verification found a mismatch: "+mismatch)
	}
	return models.Applied(iface, snap)
}

func (m *Mutator) applySequence(ctx context.Context, iface string, cfg models.IPConfig) error {
	if err := m.apply.AddAddress(ctx, iface, cfg.Address, cfg.PrefixLen); err != nil {
		return fmt.Errorf("add address: %w", err)
	}
	if err := m.apply.RemoveAddresses(ctx, iface, cfg.Address); err != nil {
		return fmt.Errorf("remove stale addresses: %w", err)
	}
	if cfg.Gateway != "" {
		if err := m.apply.ReplaceDefaultRoute(ctx, iface, cfg.Gateway); err != nil {
			return fmt.Errorf("replace default route: %w", err)
		}
	} else {
		if err := m.apply.RemoveDefaultRoute(ctx, iface); err != nil {
			return fmt.Errorf("remove default route: %w", err)
		}
	}
	if err := m.apply.SetDNS(ctx, iface, cfg.DNS); err != nil {
		return fmt.Errorf("set dns: %w", err)
	}
	return nil
}

// rollback restores the configuration captured before the apply sequence.
func (m *Mutator) rollback(ctx context.Context, iface string, prior models.IPConfig) error {
	log.Warn().Str("interface", iface).Msg("Static IP apply failed, rolling back")

	if prior.Mode == models.IPModeNone || prior.Address == "" {
		if err := m.apply.RemoveAddresses(ctx, iface, ""); err != nil {
			return err
		}
		return m.apply.RemoveDefaultRoute(ctx, iface)
	}

	if err := m.apply.AddAddress(ctx, iface, prior.Address, prior.PrefixLen); err != nil {
		return err
	}
	if err := m.apply.RemoveAddresses(ctx, iface, prior.Address); err != nil {
		return err
	}
	if prior.Gateway != "" {
		if err := m.apply.ReplaceDefaultRoute(ctx, iface, prior.Gateway); err != nil {
			return err
		}
	} else {
		if err := m.apply.RemoveDefaultRoute(ctx, iface); err != nil {
			return err
		}
	}
	if len(prior.DNS) > 0 {
		return m.apply.SetDNS(ctx, iface, prior.DNS)
	}
	return nil
}

// verify compares the observed configuration against the request and
// returns a human-readable description of the first mismatch.
func verify(got models.IPConfig, want models.IPConfig) string {
	if got.Address != want.Address || got.PrefixLen != want.PrefixLen {
		return fmt.Sprintf("address is %s/%d, wanted %s/%d", got.Address, got.PrefixLen, want.Address, want.PrefixLen)
	}
	if want.Gateway != "" && got.Gateway != want.Gateway {
		return fmt.Sprintf("gateway is %q, wanted %q", got.Gateway, want.Gateway)
	}
	if len(want.DNS) > 0 && !slices.Equal(got.DNS, want.DNS) {
		return fmt.Sprintf("dns is %v, wanted %v", got.DNS, want.DNS)
	}
	return ""
}

func describe(cfg models.IPConfig) string {
	if cfg.Mode == models.IPModeNone || cfg.Address == "" {
		return "unconfigured"
	}
	return fmt.Sprintf("%s/%d via %s (%s)", cfg.Address, cfg.PrefixLen, cfg.Gateway, cfg.Mode)
}

func (m *Mutator) record(ctx context.Context, intent models.IntentKind, res models.OperationResult, detail map[string]any) {
	if res.Warning != "" {
		detail["warning"] = res.Warning
	}
	if res.Err != nil {
		detail["error"] = res.Err.Error()
	}
	m.sink.Record(ctx, audit.Event{
		Interface: res.Interface,
		Intent:    intent,
		Outcome:   res.Outcome,
		Detail:    detail,
	})
}

package trigger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ShenMinX/duallauncher/internal/metrics"
)

// Source is the external flag store the reconciler polls. The Redis
// implementation is the production one; tests substitute a fake.
type Source interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	HGet(ctx context.Context, key, field string) (string, error)
	Close() error
}

// Controller is the slice of the engine the reconciler drives.
type Controller interface {
	GroupRunning(group string) bool
	StartGroups(groups ...string)
	StopGroup(group string)
	// ExternalGroups returns group name -> external key for every
	// externally-driven group.
	ExternalGroups() map[string]string
}

// DefaultPollInterval paces reconciliation cycles.
const DefaultPollInterval = 2 * time.Second

// Reconciler converges externally-driven groups toward the desired state
// advertised in the flag store. Each cycle is independent: a store outage
// skips the cycle and the next one starts fresh.
type Reconciler struct {
	source   Source
	ctrl     Controller
	interval time.Duration
}

func New(source Source, ctrl Controller, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Reconciler{source: source, ctrl: ctrl, interval: interval}
}

// Run polls until ctx is canceled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Reconcile(ctx)
		}
	}
}

// Reconcile performs one convergence cycle. The store must answer a ping
// first; if it cannot, every group keeps its current state until the store
// comes back.
func (r *Reconciler) Reconcile(ctx context.Context) {
	groups := r.ctrl.ExternalGroups()
	if len(groups) == 0 {
		return
	}
	if err := r.source.Ping(ctx); err != nil {
		slog.Debug("trigger store unreachable, skipping cycle", "err", err)
		metrics.IncTriggerCycle("skipped")
		return
	}
	for group, key := range groups {
		desired := r.desired(ctx, key)
		running := r.ctrl.GroupRunning(group)
		switch {
		case desired && !running:
			slog.Info("trigger raised, starting group", "group", group, "key", key)
			r.ctrl.StartGroups(group)
		case !desired && running:
			slog.Info("trigger cleared, stopping group", "group", group, "key", key)
			r.ctrl.StopGroup(group)
		}
	}
	metrics.IncTriggerCycle("ok")
}

// desired resolves an external key to a run/stop decision. Only the literal
// string "1" means run; a missing key, any other value, or a lookup error all
// read as stop for this cycle.
func (r *Reconciler) desired(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}
	var (
		val string
		err error
	)
	if coll, field, ok := strings.Cut(key, ":"); ok && coll != "" && field != "" {
		val, err = r.source.HGet(ctx, coll, field)
	} else {
		val, err = r.source.Get(ctx, key)
	}
	if err != nil {
		slog.Debug("trigger key lookup failed", "key", key, "err", err)
		return false
	}
	return val == "1"
}

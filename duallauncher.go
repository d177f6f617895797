// Package duallauncher exposes the profile supervision engine for embedding:
// create a Store, build an Engine around it, start monitors, and optionally
// mount the HTTP control API in your own server.
package duallauncher

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ShenMinX/duallauncher/internal/engine"
	"github.com/ShenMinX/duallauncher/internal/history"
	"github.com/ShenMinX/duallauncher/internal/history/factory"
	"github.com/ShenMinX/duallauncher/internal/logger"
	"github.com/ShenMinX/duallauncher/internal/metrics"
	"github.com/ShenMinX/duallauncher/internal/probe"
	"github.com/ShenMinX/duallauncher/internal/profile"
	"github.com/ShenMinX/duallauncher/internal/server"
	"github.com/ShenMinX/duallauncher/internal/trigger"
)

// Core types re-exported for embedders.
type (
	Engine        = engine.Engine
	EngineConfig  = engine.Config
	Status        = engine.Status
	RunState      = engine.RunState
	ConnState     = engine.ConnState
	Event         = engine.Event
	Handle        = engine.Handle
	Launcher      = engine.Launcher
	Hook          = engine.Hook
	Profile       = profile.Profile
	GroupMode     = profile.GroupMode
	Store         = profile.Store
	RedisSettings = profile.RedisSettings
	LogConfig     = logger.Config
	HistoryEvent  = history.Event
	HistorySink   = history.Sink
	Prober        = probe.Prober
	Reconciler    = trigger.Reconciler
	TriggerSource = trigger.Source
)

const (
	StateStopped  = engine.StateStopped
	StateStarting = engine.StateStarting
	StateRunning  = engine.StateRunning

	ConnNone    = engine.ConnNone
	ConnWaiting = engine.ConnWaiting
	ConnOnline  = engine.ConnOnline
	ConnOffline = engine.ConnOffline
)

// NewStore creates a profile store bound to a launch.conf path.
func NewStore(path string) *Store { return profile.NewStore(path) }

// New assembles an engine.
func New(cfg EngineConfig) *Engine { return engine.New(cfg) }

// NewProber returns a reachability prober with default timeouts.
func NewProber() *Prober { return probe.New() }

// NewReconciler builds a trigger reconciler polling src at the given interval.
func NewReconciler(src TriggerSource, eng *Engine, interval time.Duration) *Reconciler {
	return trigger.New(src, eng, interval)
}

// NewRedisTriggerSource connects the reconciler to Redis.
func NewRedisTriggerSource(settings RedisSettings) TriggerSource {
	return trigger.NewRedisSource(settings)
}

// NewHistorySink selects a lifecycle history sink by DSN.
func NewHistorySink(dsn string) (HistorySink, error) { return factory.NewSinkFromDSN(dsn) }

// NewHTTPHandler returns the control API as an http.Handler mountable in any
// mux or framework.
func NewHTTPHandler(eng *Engine, basePath string) http.Handler {
	return server.NewRouter(eng, basePath).Handler()
}

// NewHTTPServer starts a standalone control API server on addr.
func NewHTTPServer(addr, basePath string, eng *Engine) (*http.Server, error) {
	return server.NewServer(addr, basePath, eng)
}

// RegisterMetricsDefault registers the Prometheus collectors with the default
// registry.
func RegisterMetricsDefault() error { return metrics.Register(prometheus.DefaultRegisterer) }

// MetricsHandler serves the default Prometheus gatherer.
func MetricsHandler() http.Handler { return metrics.Handler() }

// Wait blocks until target is reachable or the budget elapses, honoring ctx.
func Wait(ctx context.Context, target string, total, interval time.Duration) bool {
	return probe.New().Wait(ctx, target, total, interval)
}

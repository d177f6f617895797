package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors, registered via Register.
var (
	regOK atomic.Bool

	profileStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duallauncher",
			Subsystem: "profile",
			Name:      "starts_total",
			Help:      "Number of successful profile launches.",
		}, []string{"name"},
	)
	profileRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duallauncher",
			Subsystem: "profile",
			Name:      "restarts_total",
			Help:      "Number of crash-monitor restarts.",
		}, []string{"name"},
	)
	profileStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duallauncher",
			Subsystem: "profile",
			Name:      "stops_total",
			Help:      "Number of user-initiated stops.",
		}, []string{"name"},
	)
	spawnFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duallauncher",
			Subsystem: "profile",
			Name:      "spawn_failures_total",
			Help:      "Number of failed spawn attempts.",
		}, []string{"name"},
	)
	connTimeouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duallauncher",
			Subsystem: "profile",
			Name:      "connectivity_timeouts_total",
			Help:      "Number of launches abandoned because the wait target never became reachable.",
		}, []string{"name"},
	)
	profileStates = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "duallauncher",
			Subsystem: "profile",
			Name:      "state",
			Help:      "Current profile state (1 = profile is in this state).",
		}, []string{"name", "state"},
	)
	triggerCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "duallauncher",
			Subsystem: "trigger",
			Name:      "cycles_total",
			Help:      "Trigger reconciler cycles by outcome.",
		}, []string{"outcome"},
	)
)

// Register registers all collectors with r. Safe to call multiple times;
// calls after the first success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{
		profileStarts, profileRestarts, profileStops,
		spawnFailures, connTimeouts, profileStates, triggerCycles,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler serves the DefaultGatherer. The caller wires the route.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncStart(name string) {
	if regOK.Load() {
		profileStarts.WithLabelValues(name).Inc()
	}
}

func IncRestart(name string) {
	if regOK.Load() {
		profileRestarts.WithLabelValues(name).Inc()
	}
}

func IncStop(name string) {
	if regOK.Load() {
		profileStops.WithLabelValues(name).Inc()
	}
}

func IncSpawnFailure(name string) {
	if regOK.Load() {
		spawnFailures.WithLabelValues(name).Inc()
	}
}

func IncConnTimeout(name string) {
	if regOK.Load() {
		connTimeouts.WithLabelValues(name).Inc()
	}
}

// SetProfileState marks state as the profile's current state and clears the
// others.
func SetProfileState(name, state string) {
	if !regOK.Load() {
		return
	}
	for _, s := range []string{"Stopped", "Starting", "Running"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		profileStates.WithLabelValues(name, s).Set(v)
	}
}

func IncTriggerCycle(outcome string) {
	if regOK.Load() {
		triggerCycles.WithLabelValues(outcome).Inc()
	}
}

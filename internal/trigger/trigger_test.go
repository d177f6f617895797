package trigger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu      sync.Mutex
	pingErr error
	keys    map[string]string         // flat keys
	hashes  map[string]map[string]string
	getErr  error
}

func (f *fakeSource) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeSource) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.keys[key], nil
}

func (f *fakeSource) HGet(_ context.Context, key, field string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.hashes[key][field], nil
}

func (f *fakeSource) Close() error { return nil }

type fakeController struct {
	mu       sync.Mutex
	running  map[string]bool
	external map[string]string
	started  []string
	stopped  []string
}

func newFakeController(external map[string]string) *fakeController {
	return &fakeController{running: make(map[string]bool), external: external}
}

func (c *fakeController) GroupRunning(group string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running[group]
}

func (c *fakeController) StartGroups(groups ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, g := range groups {
		c.running[g] = true
		c.started = append(c.started, g)
	}
}

func (c *fakeController) StopGroup(group string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running[group] = false
	c.stopped = append(c.stopped, group)
}

func (c *fakeController) ExternalGroups() map[string]string { return c.external }

func TestReconcileStartsOnRaisedFlag(t *testing.T) {
	src := &fakeSource{hashes: map[string]map[string]string{"flags": {"run": "1"}}}
	ctrl := newFakeController(map[string]string{"g1": "flags:run"})
	r := New(src, ctrl, 0)

	r.Reconcile(context.Background())
	require.Equal(t, []string{"g1"}, ctrl.started)

	// Converged: a second cycle must not start again.
	r.Reconcile(context.Background())
	require.Equal(t, []string{"g1"}, ctrl.started)
}

func TestReconcileStopsOnClearedFlag(t *testing.T) {
	src := &fakeSource{hashes: map[string]map[string]string{"flags": {"run": "0"}}}
	ctrl := newFakeController(map[string]string{"g1": "flags:run"})
	ctrl.running["g1"] = true
	r := New(src, ctrl, 0)

	r.Reconcile(context.Background())
	require.Equal(t, []string{"g1"}, ctrl.stopped)
	require.Empty(t, ctrl.started)
}

func TestReconcileFlatKey(t *testing.T) {
	src := &fakeSource{keys: map[string]string{"runflag": "1"}}
	ctrl := newFakeController(map[string]string{"g1": "runflag"})
	New(src, ctrl, 0).Reconcile(context.Background())
	require.Equal(t, []string{"g1"}, ctrl.started)
}

func TestReconcileOnlyLiteralOneMeansRun(t *testing.T) {
	for _, v := range []string{"true", "yes", "01", " 1", "2", ""} {
		src := &fakeSource{keys: map[string]string{"k": v}}
		ctrl := newFakeController(map[string]string{"g1": "k"})
		New(src, ctrl, 0).Reconcile(context.Background())
		require.Empty(t, ctrl.started, "value %q must not start the group", v)
	}
}

func TestReconcileLookupErrorReadsAsStop(t *testing.T) {
	src := &fakeSource{getErr: errors.New("boom")}
	ctrl := newFakeController(map[string]string{"g1": "flags:run"})
	ctrl.running["g1"] = true
	New(src, ctrl, 0).Reconcile(context.Background())
	require.Equal(t, []string{"g1"}, ctrl.stopped)
}

func TestReconcilePingFailureSkipsCycle(t *testing.T) {
	src := &fakeSource{pingErr: errors.New("connection refused"), keys: map[string]string{"k": "1"}}
	ctrl := newFakeController(map[string]string{"g1": "k"})
	ctrl.running["g1"] = true
	r := New(src, ctrl, 0)

	// Unreachable store: no state change in either direction.
	r.Reconcile(context.Background())
	require.Empty(t, ctrl.started)
	require.Empty(t, ctrl.stopped)

	// Store back: convergence resumes.
	src.mu.Lock()
	src.pingErr = nil
	src.mu.Unlock()
	ctrl.running["g1"] = false
	r.Reconcile(context.Background())
	require.Equal(t, []string{"g1"}, ctrl.started)
}

func TestReconcileNoExternalGroupsIsNoop(t *testing.T) {
	src := &fakeSource{pingErr: errors.New("should not even ping")}
	ctrl := newFakeController(nil)
	New(src, ctrl, 0).Reconcile(context.Background())
	require.Empty(t, ctrl.started)
}

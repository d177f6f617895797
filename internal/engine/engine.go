package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ShenMinX/duallauncher/internal/history"
	"github.com/ShenMinX/duallauncher/internal/metrics"
	"github.com/ShenMinX/duallauncher/internal/probe"
	"github.com/ShenMinX/duallauncher/internal/profile"
)

// ConnProber is the reachability dependency. probe.Prober satisfies it; tests
// substitute a fake.
type ConnProber interface {
	Probe(target string) bool
	Wait(ctx context.Context, target string, total, interval time.Duration) bool
}

// Hook runs after a profile reaches Running. Hooks are advisory: they execute
// on their own goroutine and their failures never affect supervision.
type Hook interface {
	AfterRunning(p profile.Profile, pid int)
}

// DefaultStopGrace is how long a program gets to exit on SIGTERM before the
// group is killed.
const DefaultStopGrace = 3 * time.Second

const maxEvents = 200

// Config assembles an Engine. Store is required; everything else has a
// working default.
type Config struct {
	Store     *profile.Store
	Launcher  Launcher
	Prober    ConnProber
	History   history.Sink
	Hooks     []Hook
	StopGrace time.Duration
}

// Engine owns all runtime state for the configured profiles and serializes
// every mutation behind one mutex. Launch runners, monitors, and API calls
// all converge here.
type Engine struct {
	store     *profile.Store
	launcher  Launcher
	prober    ConnProber
	sink      history.Sink
	hooks     []Hook
	stopGrace time.Duration

	rootCtx    context.Context
	rootCancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	entries map[string]*entry
	events  []Event

	wg sync.WaitGroup
}

// entry is the per-profile runtime record. Guarded by Engine.mu.
type entry struct {
	state         RunState
	conn          ConnState
	userStopped   bool
	inFlight      bool
	handle        Handle
	pid           int
	startedAt     time.Time
	lastRestartAt time.Time
	restarts      int
	lastEvent     string
	cancelWait    context.CancelFunc
}

func New(cfg Config) *Engine {
	if cfg.Launcher == nil {
		cfg.Launcher = &OSLauncher{}
	}
	if cfg.Prober == nil {
		cfg.Prober = probe.New()
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = DefaultStopGrace
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:      cfg.Store,
		launcher:   cfg.Launcher,
		prober:     cfg.Prober,
		sink:       cfg.History,
		hooks:      cfg.Hooks,
		stopGrace:  cfg.StopGrace,
		rootCtx:    ctx,
		rootCancel: cancel,
		entries:    make(map[string]*entry),
	}
}

// Store exposes the profile store for API layers.
func (e *Engine) Store() *profile.Store { return e.store }

func (e *Engine) entryLocked(name string) *entry {
	en, ok := e.entries[name]
	if !ok {
		en = &entry{state: StateStopped, conn: ConnNone}
		e.entries[name] = en
	}
	return en
}

// StartProfile initiates one profile's launch sequence and returns
// immediately. It is idempotent: a profile that is already in flight or
// already running is left alone. The in-flight mark is set before this
// returns, so a sequencer polling right after always observes it.
func (e *Engine) StartProfile(name string) error {
	p, ok := e.store.Get(name)
	if !ok {
		return fmt.Errorf("unknown profile %q", name)
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return fmt.Errorf("engine is shutting down")
	}
	en := e.entryLocked(name)
	if en.inFlight || (en.handle != nil && en.handle.Alive()) {
		e.mu.Unlock()
		return nil
	}
	en.inFlight = true
	en.userStopped = false
	en.state = StateStarting
	en.conn = ConnNone
	ctx, cancel := context.WithCancel(e.rootCtx)
	en.cancelWait = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go e.run(ctx, cancel, p)
	return nil
}

// run is the launch runner: optional connectivity gate, then spawn.
func (e *Engine) run(ctx context.Context, cancel context.CancelFunc, p profile.Profile) {
	defer e.wg.Done()
	defer cancel()

	if p.WaitTarget != "" {
		// A zero timeout passes the gate immediately without probing; the
		// target still shows Online because nothing contradicts it yet.
		e.setConn(p.Name, ConnWaiting)
		reached := e.prober.Wait(ctx, p.WaitTarget,
			time.Duration(p.WaitTimeout)*time.Second,
			time.Duration(p.WaitInterval)*time.Second)
		if ctx.Err() != nil {
			e.finish(p.Name, ConnNone)
			return
		}
		if !reached {
			e.emit(p.Name, "Connectivity timeout: "+p.WaitTarget)
			metrics.IncConnTimeout(p.Name)
			e.record(history.EventConnTimeout, p, 0, p.WaitTarget)
			e.finish(p.Name, ConnOffline)
			return
		}
		e.setConn(p.Name, ConnOnline)
	}

	if ctx.Err() != nil {
		e.finish(p.Name, ConnNone)
		return
	}
	h, err := e.launcher.Launch(p)
	if err != nil {
		e.emit(p.Name, fmt.Sprintf("Launch failed: %s: %v", p.Name, err))
		metrics.IncSpawnFailure(p.Name)
		e.record(history.EventSpawnFailure, p, 0, err.Error())
		e.finish(p.Name, ConnNone)
		return
	}

	e.mu.Lock()
	if e.closed || ctx.Err() != nil {
		// A stop or shutdown landed while we were spawning. Nobody else
		// knows this handle exists, so it must go down here.
		e.mu.Unlock()
		h.Terminate(e.stopGrace)
		e.finish(p.Name, ConnNone)
		return
	}
	en := e.entryLocked(p.Name)
	en.handle = h
	en.pid = h.Pid()
	en.startedAt = time.Now()
	en.state = StateRunning
	en.inFlight = false
	en.cancelWait = nil
	e.mu.Unlock()

	slog.Info("profile running", "name", p.Name, "pid", h.Pid())
	metrics.IncStart(p.Name)
	metrics.SetProfileState(p.Name, string(StateRunning))
	e.record(history.EventStart, p, h.Pid(), "")
	for _, hk := range e.hooks {
		go hk.AfterRunning(p, h.Pid())
	}
}

// finish ends a launch attempt without a running program.
func (e *Engine) finish(name string, conn ConnState) {
	e.mu.Lock()
	en := e.entryLocked(name)
	en.inFlight = false
	en.state = StateStopped
	en.conn = conn
	en.cancelWait = nil
	e.mu.Unlock()
	metrics.SetProfileState(name, string(StateStopped))
}

func (e *Engine) setConn(name string, c ConnState) {
	e.mu.Lock()
	e.entryLocked(name).conn = c
	e.mu.Unlock()
}

// StopProfile stops one profile and pins it down: the crash monitor will not
// revive it until a later start clears the user-stop mark. Stopping a profile
// whose launch is still gating on connectivity aborts the wait.
func (e *Engine) StopProfile(name string) error {
	if _, ok := e.store.Get(name); !ok {
		return fmt.Errorf("unknown profile %q", name)
	}
	e.mu.Lock()
	en := e.entryLocked(name)
	en.userStopped = true
	cancel := en.cancelWait
	h := en.handle
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if h != nil && h.Alive() {
		h.Terminate(e.stopGrace)
		metrics.IncStop(name)
		if p, ok := e.store.Get(name); ok {
			e.record(history.EventStop, p, h.Pid(), "")
		}
	}

	e.mu.Lock()
	en = e.entryLocked(name)
	en.state = StateStopped
	en.conn = ConnNone
	en.pid = 0
	e.mu.Unlock()
	metrics.SetProfileState(name, string(StateStopped))
	e.emit(name, "Stopped: "+name)
	return nil
}

// startMany walks profiles in the given order, initiating each and waiting
// for its launch attempt to settle before moving on. The walk is best-effort:
// a failed or timed-out attempt never blocks the rest. Post-launch delays
// apply to grouped profiles in every sequencing path, and never after the
// last profile.
func (e *Engine) startMany(ctx context.Context, ps []profile.Profile) {
	for i, p := range ps {
		if ctx.Err() != nil {
			return
		}
		if err := e.StartProfile(p.Name); err != nil {
			continue
		}
		e.waitSettled(ctx, p)
		if p.Group != "" && p.PostLaunchDelay > 0 && i < len(ps)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(p.PostLaunchDelay) * time.Second):
			}
		}
	}
}

// waitSettled blocks until the profile's launch attempt leaves the in-flight
// state, bounded so one stuck attempt cannot stall the sequence forever.
func (e *Engine) waitSettled(ctx context.Context, p profile.Profile) {
	budget := 10
	if p.WaitTimeout+10 > budget {
		budget = p.WaitTimeout + 10
	}
	deadline := time.Now().Add(time.Duration(budget) * time.Second)
	for time.Now().Before(deadline) {
		e.mu.Lock()
		inFlight := e.entryLocked(p.Name).inFlight
		e.mu.Unlock()
		if !inFlight {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// StartAll launches every profile not claimed by an off or external group, in
// launch order. Returns immediately; sequencing runs in the background.
func (e *Engine) StartAll() {
	var ps []profile.Profile
	for _, p := range e.store.Profiles() {
		if p.Group != "" {
			switch e.store.GroupMode(p.Group).Mode {
			case profile.ModeOff, profile.ModeExternal:
				continue
			}
		}
		ps = append(ps, p)
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.startMany(e.rootCtx, ps)
	}()
}

// AutoStart launches the startup set: auto-start profiles whose groups allow
// it. Called once when the daemon comes up.
func (e *Engine) AutoStart() {
	ps := e.store.AutoStartSet()
	if len(ps) == 0 {
		return
	}
	slog.Info("auto-starting profiles", "count", len(ps))
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.startMany(e.rootCtx, ps)
	}()
}

// StartGroups sequences the named groups in launch order.
func (e *Engine) StartGroups(groups ...string) {
	ps := e.store.ProfilesInGroups(groups...)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.startMany(e.rootCtx, ps)
	}()
}

// StopGroup stops every profile of a group, in launch order.
func (e *Engine) StopGroup(group string) {
	for _, p := range e.store.ProfilesInGroups(group) {
		_ = e.StopProfile(p.Name)
	}
}

// StopAll stops everything the engine knows about.
func (e *Engine) StopAll() {
	for _, p := range e.store.Profiles() {
		_ = e.StopProfile(p.Name)
	}
}

// ExternalGroups exposes the externally-driven groups for the trigger
// reconciler.
func (e *Engine) ExternalGroups() map[string]string { return e.store.ExternalGroups() }

// GroupRunning reports whether any profile of the group is running or mid
// launch. Used by the trigger reconciler to keep convergence idempotent.
func (e *Engine) GroupRunning(group string) bool {
	ps := e.store.ProfilesInGroups(group)
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range ps {
		if en, ok := e.entries[p.Name]; ok {
			if en.inFlight || en.state == StateStarting || en.state == StateRunning {
				return true
			}
		}
	}
	return false
}

// Status returns the snapshot for one profile.
func (e *Engine) Status(name string) (Status, error) {
	p, ok := e.store.Get(name)
	if !ok {
		return Status{}, fmt.Errorf("unknown profile %q", name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked(p), nil
}

// Statuses returns snapshots for every configured profile in launch order.
func (e *Engine) Statuses() []Status {
	ps := e.store.Profiles()
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Status, 0, len(ps))
	for _, p := range ps {
		out = append(out, e.statusLocked(p))
	}
	return out
}

func (e *Engine) statusLocked(p profile.Profile) Status {
	s := Status{Name: p.Name, Group: p.Group, State: StateStopped, Conn: ConnNone}
	en, ok := e.entries[p.Name]
	if !ok {
		return s
	}
	s.State = en.state
	s.Conn = en.conn
	s.PID = en.pid
	s.UserStopped = en.userStopped
	s.InFlight = en.inFlight
	s.StartedAt = en.startedAt
	s.LastRestartAt = en.lastRestartAt
	s.Restarts = en.restarts
	s.LastEvent = en.lastEvent
	return s
}

// emit records an activity line and mirrors it to the log.
func (e *Engine) emit(name, msg string) {
	slog.Info(msg, "name", name)
	e.mu.Lock()
	e.entryLocked(name).lastEvent = msg
	e.events = append(e.events, Event{Time: time.Now(), Name: name, Message: msg})
	if len(e.events) > maxEvents {
		e.events = e.events[len(e.events)-maxEvents:]
	}
	e.mu.Unlock()
}

// Events returns the recent activity feed, oldest first.
func (e *Engine) Events() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Event, len(e.events))
	copy(out, e.events)
	return out
}

// record ships a lifecycle event to the history sink, best-effort.
func (e *Engine) record(t history.EventType, p profile.Profile, pid int, detail string) {
	if e.sink == nil {
		return
	}
	ev := history.Event{
		Type:       t,
		OccurredAt: time.Now(),
		Profile:    p.Name,
		Group:      p.Group,
		PID:        pid,
		Detail:     detail,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := e.sink.Send(ctx, ev); err != nil {
			slog.Debug("history sink rejected event", "type", ev.Type, "err", err)
		}
	}()
}

// Shutdown tears the engine down: every profile is marked user-stopped so no
// monitor revives anything, pending connectivity waits are canceled, and all
// live programs get a graceful stop before the group kill.
func (e *Engine) Shutdown(ctx context.Context) {
	e.mu.Lock()
	e.closed = true
	var live []Handle
	for _, en := range e.entries {
		en.userStopped = true
		if en.cancelWait != nil {
			en.cancelWait()
			en.cancelWait = nil
		}
		if en.handle != nil && en.handle.Alive() {
			live = append(live, en.handle)
		}
		en.state = StateStopped
		en.conn = ConnNone
		en.pid = 0
	}
	e.mu.Unlock()
	e.rootCancel()

	var wg sync.WaitGroup
	for _, h := range live {
		wg.Add(1)
		go func(h Handle) {
			defer wg.Done()
			h.Terminate(e.stopGrace)
		}(h)
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("shutdown deadline reached with work outstanding")
	}
}

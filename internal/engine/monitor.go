package engine

import (
	"context"
	"time"

	"github.com/ShenMinX/duallauncher/internal/history"
	"github.com/ShenMinX/duallauncher/internal/metrics"
)

const (
	// CrashScanInterval paces the crash monitor.
	CrashScanInterval = 700 * time.Millisecond
	// RestartCooldown is the minimum spacing between restarts of one profile.
	RestartCooldown = 3 * time.Second
	// ConnScanInterval paces the advisory connectivity refresh.
	ConnScanInterval = 3 * time.Second
)

// StartMonitors launches the crash monitor and the connectivity refresher.
// Both run until ctx is canceled.
func (e *Engine) StartMonitors(ctx context.Context) {
	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.crashMonitorLoop(ctx)
	}()
	go func() {
		defer e.wg.Done()
		e.connMonitorLoop(ctx)
	}()
}

func (e *Engine) crashMonitorLoop(ctx context.Context) {
	ticker := time.NewTicker(CrashScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.scanForCrashes()
		}
	}
}

// scanForCrashes restarts crashed profiles. A profile qualifies only when it
// has actually been launched before, is not mid-launch, was not stopped by
// the user, is observably dead, and has not been restarted within the
// cooldown window. Anything else is left strictly alone.
func (e *Engine) scanForCrashes() {
	for _, p := range e.store.Profiles() {
		e.mu.Lock()
		en, ok := e.entries[p.Name]
		if !ok || en.handle == nil || en.inFlight || en.userStopped {
			e.mu.Unlock()
			continue
		}
		if en.handle.Alive() {
			e.mu.Unlock()
			continue
		}
		// Dead. Reflect that in the snapshot before deciding on a restart.
		if en.state == StateRunning {
			en.state = StateStopped
			en.conn = ConnNone
			en.pid = 0
		}
		if !p.AutoRestart {
			e.mu.Unlock()
			metrics.SetProfileState(p.Name, string(StateStopped))
			continue
		}
		if time.Since(en.lastRestartAt) < RestartCooldown {
			e.mu.Unlock()
			continue
		}
		en.lastRestartAt = time.Now()
		en.restarts++
		e.mu.Unlock()

		e.emit(p.Name, "Detected exit, restarting: "+p.Name)
		metrics.IncRestart(p.Name)
		e.record(history.EventRestart, p, 0, "")
		_ = e.StartProfile(p.Name)
	}
}

func (e *Engine) connMonitorLoop(ctx context.Context) {
	ticker := time.NewTicker(ConnScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.refreshConnStates()
		}
	}
}

// refreshConnStates keeps the Online/Offline display current for running
// profiles that declare a wait target. Launch attempts own their entry's conn
// state while in flight, so those are skipped.
func (e *Engine) refreshConnStates() {
	for _, p := range e.store.Profiles() {
		if p.WaitTarget == "" {
			continue
		}
		e.mu.Lock()
		en, ok := e.entries[p.Name]
		skip := !ok || en.inFlight || en.state != StateRunning
		e.mu.Unlock()
		if skip {
			continue
		}
		c := ConnOffline
		if e.prober.Probe(p.WaitTarget) {
			c = ConnOnline
		}
		e.setConn(p.Name, c)
	}
}

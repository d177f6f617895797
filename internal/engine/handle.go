package engine

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/ShenMinX/duallauncher/internal/logger"
	"github.com/ShenMinX/duallauncher/internal/profile"
)

// Handle is the engine's view of one spawned program. Implementations must be
// safe for concurrent use.
type Handle interface {
	Pid() int
	// Alive reports whether the program is still running.
	Alive() bool
	// Terminate asks the program to exit, waiting up to grace before killing
	// the whole process group. A zero grace kills immediately.
	Terminate(grace time.Duration)
}

// Launcher spawns a profile's program. The OS implementation is replaced by a
// fake in tests.
type Launcher interface {
	Launch(p profile.Profile) (Handle, error)
}

// OSLauncher starts real processes in their own process group, with stdout
// and stderr captured to rotating log files when configured.
type OSLauncher struct {
	Log logger.Config
}

func (l *OSLauncher) Launch(p profile.Profile) (Handle, error) {
	if p.Path == "" {
		return nil, fmt.Errorf("profile %s has no path", p.Name)
	}
	cmd := exec.Command(p.Path, p.ArgList()...)
	// Programs expect to run from their install directory.
	cmd.Dir = filepath.Dir(p.Path)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var outW, errW io.WriteCloser
	if l.Log.File.Dir != "" || l.Log.File.StdoutPath != "" || l.Log.File.StderrPath != "" {
		if l.Log.File.Dir != "" {
			_ = os.MkdirAll(l.Log.File.Dir, 0o750)
		}
		outW, errW, _ = l.Log.ProcessWriters(p.Name)
	}
	if outW != nil {
		cmd.Stdout = outW
	} else {
		cmd.Stdout, _ = os.OpenFile(os.DevNull, os.O_RDWR, 0)
	}
	if errW != nil {
		cmd.Stderr = errW
	} else {
		cmd.Stderr, _ = os.OpenFile(os.DevNull, os.O_RDWR, 0)
	}

	if err := cmd.Start(); err != nil {
		if outW != nil {
			_ = outW.Close()
		}
		if errW != nil {
			_ = errW.Close()
		}
		return nil, err
	}
	h := &osHandle{
		cmd:      cmd,
		pid:      cmd.Process.Pid,
		waitDone: make(chan struct{}),
	}
	go func() {
		// Single waiter: reaps the child and closes the writers.
		_ = cmd.Wait()
		close(h.waitDone)
		if outW != nil {
			_ = outW.Close()
		}
		if errW != nil {
			_ = errW.Close()
		}
	}()
	return h, nil
}

type osHandle struct {
	cmd      *exec.Cmd
	pid      int
	waitDone chan struct{}

	mu sync.Mutex
}

func (h *osHandle) Pid() int { return h.pid }

func (h *osHandle) Alive() bool {
	select {
	case <-h.waitDone:
		return false
	default:
		return true
	}
}

func (h *osHandle) Terminate(grace time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.Alive() {
		return
	}
	// Signal the whole group so spawned children go down too.
	if grace > 0 {
		_ = syscall.Kill(-h.pid, syscall.SIGTERM)
		select {
		case <-h.waitDone:
			return
		case <-time.After(grace):
		}
	}
	_ = syscall.Kill(-h.pid, syscall.SIGKILL)
	select {
	case <-h.waitDone:
	case <-time.After(200 * time.Millisecond):
		// best-effort
	}
}

package hooks

import (
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"github.com/ShenMinX/duallauncher/internal/profile"
)

// Hooks are advisory helpers that run after a profile reaches Running. They
// exec external tools and never report failure back to the engine.

// WindowMove drives an external window placement helper for profiles that
// declare a target monitor. The helper receives the match rule and monitor
// index and does the rest.
type WindowMove struct {
	// Helper is the placement command. Empty disables the hook.
	Helper string
	// SettleDelay gives the program time to create its window first.
	SettleDelay time.Duration
}

func (h *WindowMove) AfterRunning(p profile.Profile, pid int) {
	if h.Helper == "" || p.MatchValue == "" {
		return
	}
	if h.SettleDelay > 0 {
		time.Sleep(h.SettleDelay)
	}
	kind := p.MatchKind
	if kind == "" {
		kind = "Process"
	}
	args := []string{
		"--monitor", strconv.Itoa(p.Monitor),
		"--match-kind", kind,
		"--match-value", p.MatchValue,
		"--pid", strconv.Itoa(pid),
	}
	if err := exec.Command(h.Helper, args...).Run(); err != nil {
		slog.Debug("window placement helper failed", "profile", p.Name, "err", err)
	}
}

// Browser opens a profile's URL in the default browser once the program is
// up. Useful for profiles that expose a local web UI.
type Browser struct {
	SettleDelay time.Duration
}

func (h *Browser) AfterRunning(p profile.Profile, _ int) {
	if p.URL == "" {
		return
	}
	if h.SettleDelay > 0 {
		time.Sleep(h.SettleDelay)
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", p.URL)
	case "darwin":
		cmd = exec.Command("open", p.URL)
	default:
		cmd = exec.Command("xdg-open", p.URL)
	}
	if err := cmd.Start(); err != nil {
		slog.Debug("browser open failed", "profile", p.Name, "url", p.URL, "err", err)
	}
}

package duallauncher

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedEngineLifecycle(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "launch.conf"))
	require.NoError(t, store.Put(Profile{Name: "true-loop", Path: "/bin/sleep", Args: "30"}))

	eng := New(EngineConfig{Store: store, StopGrace: time.Second})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		eng.Shutdown(ctx)
	}()

	require.NoError(t, eng.StartProfile("true-loop"))
	require.Eventually(t, func() bool {
		s, err := eng.Status("true-loop")
		return err == nil && s.State == StateRunning
	}, 5*time.Second, 20*time.Millisecond)

	s, err := eng.Status("true-loop")
	require.NoError(t, err)
	require.NotZero(t, s.PID)

	require.NoError(t, eng.StopProfile("true-loop"))
	s, _ = eng.Status("true-loop")
	require.Equal(t, StateStopped, s.State)
}

func TestWaitZeroBudget(t *testing.T) {
	require.True(t, Wait(context.Background(), "tcp://127.0.0.1:1", 0, time.Second))
}

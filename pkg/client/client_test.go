package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ShenMinX/duallauncher/internal/engine"
	"github.com/ShenMinX/duallauncher/internal/profile"
)

func TestClientAgainstStubDaemon(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/duallauncher/healthz", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	mux.HandleFunc("/duallauncher/status", func(w http.ResponseWriter, r *http.Request) {
		if name := r.URL.Query().Get("name"); name != "" {
			if name != "svc" {
				w.WriteHeader(http.StatusNotFound)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unknown profile"})
				return
			}
			_ = json.NewEncoder(w).Encode(engine.Status{Name: "svc", State: engine.StateRunning, PID: 7})
			return
		}
		_ = json.NewEncoder(w).Encode([]engine.Status{{Name: "svc", State: engine.StateRunning}})
	})
	var started, stopped string
	mux.HandleFunc("/duallauncher/start", func(w http.ResponseWriter, r *http.Request) {
		started = r.URL.Query().Get("name")
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	mux.HandleFunc("/duallauncher/stop", func(w http.ResponseWriter, r *http.Request) {
		stopped = r.URL.Query().Get("name")
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	var putProfile profile.Profile
	mux.HandleFunc("/duallauncher/profiles", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&putProfile))
			_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode([]profile.Profile{{Name: "svc", Path: "/bin/svc"}})
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/duallauncher", Timeout: 2 * time.Second})
	ctx := context.Background()

	require.True(t, c.IsReachable(ctx))

	st, err := c.Status(ctx, "svc")
	require.NoError(t, err)
	require.Equal(t, engine.StateRunning, st.State)
	require.Equal(t, 7, st.PID)

	_, err = c.Status(ctx, "ghost")
	require.ErrorContains(t, err, "unknown profile")

	require.NoError(t, c.Start(ctx, "svc"))
	require.Equal(t, "svc", started)
	require.NoError(t, c.Stop(ctx, "svc"))
	require.Equal(t, "svc", stopped)

	require.NoError(t, c.PutProfile(ctx, profile.Profile{Name: "new", Path: "/bin/new"}))
	require.Equal(t, "new", putProfile.Name)

	ps, err := c.Profiles(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 1)

	sts, err := c.Statuses(ctx)
	require.NoError(t, err)
	require.Len(t, sts, 1)
}

func TestClientUnreachable(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1/duallauncher", Timeout: 200 * time.Millisecond})
	ctx := context.Background()
	require.False(t, c.IsReachable(ctx))
	require.Error(t, c.Start(ctx, "x"))
}

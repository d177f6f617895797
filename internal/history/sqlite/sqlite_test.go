package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ShenMinX/duallauncher/internal/history"
)

func TestSinkRoundTrip(t *testing.T) {
	dbPath := t.TempDir() + "/history.db"
	sink, err := New("sqlite://" + dbPath)
	if err != nil {
		t.Fatalf("failed to create sink: %v", err)
	}
	defer func() { _ = sink.Close() }()

	ctx := context.Background()
	events := []history.Event{
		{Type: history.EventStart, OccurredAt: time.Now().UTC(), Profile: "svc", Group: "g1", PID: 4242},
		{Type: history.EventConnTimeout, OccurredAt: time.Now().UTC(), Profile: "svc", Detail: "redis://127.0.0.1"},
		{Type: history.EventStop, OccurredAt: time.Now().UTC(), Profile: "svc", PID: 4242},
	}
	for _, e := range events {
		if err := sink.Send(ctx, e); err != nil {
			t.Fatalf("send %s: %v", e.Type, err)
		}
	}

	var n int
	if err := sink.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM profile_history WHERE profile = ?`, "svc").Scan(&n); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if n != len(events) {
		t.Fatalf("expected %d rows, got %d", len(events), n)
	}
}

func TestSinkInMemory(t *testing.T) {
	sink, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create in-memory sink: %v", err)
	}
	defer func() { _ = sink.Close() }()
	e := history.Event{Type: history.EventRestart, OccurredAt: time.Now().UTC(), Profile: "mem"}
	if err := sink.Send(context.Background(), e); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestSinkEmptyDSN(t *testing.T) {
	if _, err := New("   "); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

package logstore_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"relaybot/internal/history"
	"relaybot/internal/logstore"
)

func newTestStore(t *testing.T) *logstore.Store {
	t.Helper()
	s, err := logstore.Open(filepath.Join(t.TempDir(), "log.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func stamp(i int) string {
	return time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC).Format(logstore.TimeLayout)
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.db")

	s1, err := logstore.Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s1.InsertBatch(context.Background(), []logstore.Entry{
		{Timestamp: stamp(0), UserID: 1, EventType: logstore.EventMessage, Prompt: "hi"},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	s1.Close()

	// Reopening must not recreate the table or lose rows.
	s2, err := logstore.Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	users, err := s2.DistinctUsersWithHistory(context.Background())
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	if len(users) != 1 || users[0] != 1 {
		t.Fatalf("unexpected users after reopen: %v", users)
	}
}

func TestInsertBatchEmptyIsNoop(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertBatch(context.Background(), nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	counts, err := s.CountByEventTypeSince(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if len(counts) != 0 {
		t.Fatalf("expected empty store, got %v", counts)
	}
}

func TestDistinctUsersWithHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entries := []logstore.Entry{
		{Timestamp: stamp(0), UserID: 1, EventType: logstore.EventMessage, Prompt: "hi"},
		{Timestamp: stamp(1), UserID: 1, EventType: logstore.EventResponse, Prompt: "hi", Response: "hello"},
		{Timestamp: stamp(2), UserID: 2, EventType: logstore.EventResponse, Prompt: "q", Response: "a"},
		// command/callback/error entries must not make a user "with history"
		{Timestamp: stamp(3), UserID: 3, EventType: logstore.EventCommand, Prompt: "/start"},
		{Timestamp: stamp(4), UserID: 4, EventType: logstore.EventCallback, Prompt: "news"},
		{Timestamp: stamp(5), UserID: 5, EventType: logstore.EventError, Prompt: "x", Response: "boom"},
	}
	if err := s.InsertBatch(ctx, entries); err != nil {
		t.Fatalf("insert: %v", err)
	}

	users, err := s.DistinctUsersWithHistory(ctx)
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	seen := make(map[int64]bool)
	for _, u := range users {
		seen[u] = true
	}
	if len(users) != 2 || !seen[1] || !seen[2] {
		t.Fatalf("unexpected users: %v", users)
	}
}

func TestRecentDialogueReconstruction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entries := []logstore.Entry{
		{Timestamp: stamp(0), UserID: 42, EventType: logstore.EventCommand, Prompt: "/start", Response: "showed menu"},
		{Timestamp: stamp(1), UserID: 42, EventType: logstore.EventMessage, Prompt: "hi"},
		{Timestamp: stamp(2), UserID: 42, EventType: logstore.EventResponse, Prompt: "hi", Response: "hello there"},
		{Timestamp: stamp(3), UserID: 42, EventType: logstore.EventMessage, Prompt: "how are you"},
		{Timestamp: stamp(4), UserID: 42, EventType: logstore.EventResponse, Prompt: "how are you", Response: "fine"},
		// other user's dialogue must not leak in
		{Timestamp: stamp(5), UserID: 7, EventType: logstore.EventMessage, Prompt: "other"},
	}
	if err := s.InsertBatch(ctx, entries); err != nil {
		t.Fatalf("insert: %v", err)
	}

	msgs, err := s.RecentDialogue(ctx, 42, 10)
	if err != nil {
		t.Fatalf("recent dialogue: %v", err)
	}
	want := []string{"hi", "hello there", "how are you", "fine"}
	if len(msgs) != len(want) {
		t.Fatalf("want %d turns, got %d: %+v", len(want), len(msgs), msgs)
	}
	for i, content := range want {
		if msgs[i].Content != content {
			t.Errorf("turn %d: got %q, want %q", i, msgs[i].Content, content)
		}
		// Restored turns are all labeled user, response entries included.
		if msgs[i].Role != "user" {
			t.Errorf("turn %d: got role %q, want \"user\"", i, msgs[i].Role)
		}
	}
}

func TestRecentDialogueLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var entries []logstore.Entry
	for i := 0; i < 25; i++ {
		entries = append(entries, logstore.Entry{
			Timestamp: stamp(i),
			UserID:    1,
			EventType: logstore.EventMessage,
			Prompt:    fmt.Sprintf("m%d", i),
		})
	}
	if err := s.InsertBatch(ctx, entries); err != nil {
		t.Fatalf("insert: %v", err)
	}

	msgs, err := s.RecentDialogue(ctx, 1, 10)
	if err != nil {
		t.Fatalf("recent dialogue: %v", err)
	}
	// 2×limit most recent rows, oldest first.
	if len(msgs) != 20 {
		t.Fatalf("want 20 turns, got %d", len(msgs))
	}
	if msgs[0].Content != "m5" || msgs[19].Content != "m24" {
		t.Fatalf("unexpected window bounds: first=%q last=%q", msgs[0].Content, msgs[19].Content)
	}
}

func TestRestoreFromStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var entries []logstore.Entry
	for i := 0; i < 25; i++ {
		entries = append(entries, logstore.Entry{
			Timestamp: stamp(i),
			UserID:    1,
			EventType: logstore.EventMessage,
			Prompt:    fmt.Sprintf("m%d", i),
		})
	}
	entries = append(entries,
		logstore.Entry{Timestamp: stamp(30), UserID: 2, EventType: logstore.EventMessage, Prompt: "hey"},
		logstore.Entry{Timestamp: stamp(31), UserID: 2, EventType: logstore.EventResponse, Prompt: "hey", Response: "hi"},
		logstore.Entry{Timestamp: stamp(32), UserID: 2, EventType: logstore.EventMessage, Prompt: "ok"},
	)
	if err := s.InsertBatch(ctx, entries); err != nil {
		t.Fatalf("insert: %v", err)
	}

	m := history.NewManager()
	if err := history.Restore(ctx, s, m); err != nil {
		t.Fatalf("restore: %v", err)
	}

	// 25 qualifying entries collapse to the 10 most recent, oldest first.
	w1 := m.Window(1)
	if len(w1) != 10 {
		t.Fatalf("user 1: want 10 turns, got %d", len(w1))
	}
	if w1[0].Content != "m15" || w1[9].Content != "m24" {
		t.Fatalf("user 1: unexpected bounds: first=%q last=%q", w1[0].Content, w1[9].Content)
	}

	// 3 qualifying entries restore to exactly 3 turns in order.
	w2 := m.Window(2)
	if len(w2) != 3 {
		t.Fatalf("user 2: want 3 turns, got %d", len(w2))
	}
	if w2[0].Content != "hey" || w2[1].Content != "hi" || w2[2].Content != "ok" {
		t.Fatalf("user 2: unexpected turns: %+v", w2)
	}
}

func TestCountByEventTypeSince(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	entries := []logstore.Entry{
		{Timestamp: old.Format(logstore.TimeLayout), UserID: 1, EventType: logstore.EventMessage, Prompt: "stale"},
		{Timestamp: recent.Format(logstore.TimeLayout), UserID: 1, EventType: logstore.EventMessage, Prompt: "a"},
		{Timestamp: recent.Format(logstore.TimeLayout), UserID: 1, EventType: logstore.EventResponse, Prompt: "a", Response: "b"},
		{Timestamp: recent.Format(logstore.TimeLayout), UserID: 2, EventType: logstore.EventMessage, Prompt: "c"},
	}
	if err := s.InsertBatch(ctx, entries); err != nil {
		t.Fatalf("insert: %v", err)
	}

	counts, err := s.CountByEventTypeSince(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts[logstore.EventMessage] != 2 || counts[logstore.EventResponse] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

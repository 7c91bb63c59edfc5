package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/techmentor/gateway/internal/db"
)

func setupSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewSQLiteStore(database, 24*time.Hour)
}

// stores returns both implementations so the contract tests run against each.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"sqlite": setupSQLite(t),
		"memory": NewMemoryStore(),
	}
}

func TestGetUnknownSessionIsEmpty(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			history, err := store.Get(context.Background(), "never-seen")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if len(history) != 0 {
				t.Errorf("history = %v, want empty", history)
			}
		})
	}
}

func TestSetTruncatesToMaxTurns(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var history []Turn
			for i := 0; i < 30; i++ {
				history = append(history, Turn{Role: RoleUser, Content: fmt.Sprintf("turn-%d", i)})
			}
			if err := store.Set(ctx, "s1", history); err != nil {
				t.Fatalf("Set: %v", err)
			}

			got, err := store.Get(ctx, "s1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if len(got) != MaxTurns {
				t.Fatalf("len = %d, want %d", len(got), MaxTurns)
			}
			// The kept window is the last 16 turns, in original order.
			if got[0].Content != "turn-14" {
				t.Errorf("first kept turn = %q, want %q", got[0].Content, "turn-14")
			}
			if got[MaxTurns-1].Content != "turn-29" {
				t.Errorf("last kept turn = %q, want %q", got[MaxTurns-1].Content, "turn-29")
			}
		})
	}
}

func TestRoundTripPreservesRoles(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			in := []Turn{
				{Role: RoleUser, Content: "привет"},
				{Role: RoleAssistant, Content: "здравствуйте"},
			}
			if err := store.Set(ctx, "s2", in); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := store.Get(ctx, "s2")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if len(got) != 2 || got[0] != in[0] || got[1] != in[1] {
				t.Errorf("round trip = %v, want %v", got, in)
			}
		})
	}
}

func TestSQLiteExpiredSessionIsAbsent(t *testing.T) {
	store := setupSQLite(t)
	ctx := context.Background()

	if err := store.Set(ctx, "s3", []Turn{{Role: RoleUser, Content: "hi"}}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Move the clock past the TTL for reads only.
	store.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	got, err := store.Get(ctx, "s3")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expired session history = %v, want empty", got)
	}
}

func TestMemoryStoreCopiesHistory(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	in := []Turn{{Role: RoleUser, Content: "original"}}
	if err := store.Set(ctx, "s4", in); err != nil {
		t.Fatalf("Set: %v", err)
	}
	in[0].Content = "mutated"

	got, err := store.Get(ctx, "s4")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got[0].Content != "original" {
		t.Errorf("stored turn = %q, want %q", got[0].Content, "original")
	}
}

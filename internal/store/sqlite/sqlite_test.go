package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/vovakirdan/sidestacker-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if alice.ID == 0 || alice.IsGuest || alice.CreatedAt.IsZero() {
		t.Fatalf("unexpected user: %+v", alice)
	}

	if _, err := s.CreateUser(ctx, "alice", "other"); err == nil {
		t.Fatal("expected duplicate username to fail")
	}

	got, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got.ID != alice.ID || got.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", got)
	}

	guest, err := s.CreateGuestUser(ctx, "0123456789abcdef")
	if err != nil {
		t.Fatalf("CreateGuestUser: %v", err)
	}
	if !guest.IsGuest || guest.Username != "guest_01234567" {
		t.Fatalf("unexpected guest: %+v", guest)
	}
	bySession, err := s.GetUserBySessionID(ctx, "0123456789abcdef")
	if err != nil {
		t.Fatalf("GetUserBySessionID: %v", err)
	}
	if bySession.ID != guest.ID {
		t.Fatalf("expected guest %d, got %d", guest.ID, bySession.ID)
	}

	// Guests cannot be found by username.
	if _, err := s.GetUserByUsername(ctx, guest.Username); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetUserByID(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMatchLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	bob, err := s.CreateUser(ctx, "bob", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	carol, err := s.CreateUser(ctx, "carol", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	m := &store.Match{ID: "m-1", Opponent: "friend", Player1ID: &alice.ID}
	if err := s.CreateMatch(ctx, m); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	if m.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}

	got, err := s.GetMatch(ctx, "m-1")
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if got.Opponent != "friend" || got.Player1ID == nil || *got.Player1ID != alice.ID || got.Player2ID != nil {
		t.Fatalf("unexpected match: %+v", got)
	}

	// The creator cannot take the second seat.
	if err := s.JoinMatch(ctx, "m-1", alice.ID); !errors.Is(err, store.ErrSeatTaken) {
		t.Fatalf("expected ErrSeatTaken, got %v", err)
	}
	if err := s.JoinMatch(ctx, "m-1", bob.ID); err != nil {
		t.Fatalf("JoinMatch: %v", err)
	}
	if err := s.JoinMatch(ctx, "m-1", carol.ID); !errors.Is(err, store.ErrSeatTaken) {
		t.Fatalf("expected ErrSeatTaken, got %v", err)
	}
	if err := s.JoinMatch(ctx, "missing", bob.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err = s.GetMatch(ctx, "m-1")
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if got.Player2ID == nil || *got.Player2ID != bob.ID {
		t.Fatalf("expected bob in second seat, got %+v", got)
	}

	if err := s.DeleteMatch(ctx, "m-1"); err != nil {
		t.Fatalf("DeleteMatch: %v", err)
	}
	if err := s.DeleteMatch(ctx, "m-1"); err != nil {
		t.Fatalf("second DeleteMatch: %v", err)
	}
	if _, err := s.GetMatch(ctx, "m-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAnonymousBotMatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateMatch(ctx, &store.Match{ID: "m-bot", Opponent: "bot"}); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	got, err := s.GetMatch(ctx, "m-bot")
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if got.Opponent != "bot" || got.Player1ID != nil {
		t.Fatalf("unexpected match: %+v", got)
	}
}

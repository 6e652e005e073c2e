package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSeatTaken is returned when a second player is already recorded or
	// the joining player created the match.
	ErrSeatTaken = errors.New("seat taken")
)

// User represents a user in the system.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsGuest      bool
	SessionID    string // For guest user session tracking
	CreatedAt    time.Time
}

// Match is the lobby record of a match. Board state is never persisted; the
// record only lets a second player find the match and lets the hub learn
// which opponent kind was requested.
type Match struct {
	ID        string // UUID
	Opponent  string // "friend" or "bot"
	Player1ID *int64 // nil for anonymous creators
	Player2ID *int64
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// CreateGuestUser creates a temporary guest user with session ID.
	CreateGuestUser(ctx context.Context, sessionID string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUserBySessionID retrieves a guest user by session ID.
	GetUserBySessionID(ctx context.Context, sessionID string) (*User, error)
}

// MatchStore handles lobby records.
type MatchStore interface {
	// CreateMatch stores a new lobby record.
	CreateMatch(ctx context.Context, m *Match) error

	// GetMatch retrieves a lobby record by ID.
	GetMatch(ctx context.Context, id string) (*Match, error)

	// JoinMatch records playerID as the second player. It only succeeds
	// while the second seat is empty and playerID is not the creator.
	JoinMatch(ctx context.Context, id string, playerID int64) error

	// DeleteMatch removes a lobby record. Deleting a missing record is not
	// an error.
	DeleteMatch(ctx context.Context, id string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MatchStore

	// Close closes the underlying database connection.
	Close() error
}

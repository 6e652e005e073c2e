package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/sidestacker-server/internal/store"
)

//go:embed schema.sql
var schema string

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteStore)(nil)

// New opens the SQLite database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, ApplySchema)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests that need a custom schema or seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory:
	// databases alive across queries.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// ApplySchema creates the tables if they do not exist.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

const userColumns = `id, username, password_hash, is_guest, COALESCE(session_id, ''), created_at`

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash, is_guest)
		VALUES (?, ?, 0)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// CreateGuestUser creates a temporary guest user with session ID.
func (s *SQLiteStore) CreateGuestUser(ctx context.Context, sessionID string) (*store.User, error) {
	if sessionID == "" {
		return nil, errors.New("empty session id")
	}
	query := `
		INSERT INTO users (username, password_hash, is_guest, session_id)
		VALUES (?, '', 1, ?)
	`
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	guestUsername := "guest_" + short

	result, err := s.db.ExecContext(ctx, query, guestUsername, sessionID)
	if err != nil {
		return nil, fmt.Errorf("insert guest user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", id, err)
	}
	return user, nil
}

// GetUserByUsername retrieves a registered user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ? AND is_guest = 0`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", username, err)
	}
	return user, nil
}

// GetUserBySessionID retrieves a guest user by session ID.
func (s *SQLiteStore) GetUserBySessionID(ctx context.Context, sessionID string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE session_id = ? AND is_guest = 1`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		return nil, fmt.Errorf("guest user: %w", err)
	}
	return user, nil
}

func scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.IsGuest,
		&user.SessionID,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// ==== MatchStore implementation ====

// CreateMatch stores a new lobby record and fills in CreatedAt.
func (s *SQLiteStore) CreateMatch(ctx context.Context, m *store.Match) error {
	query := `
		INSERT INTO matches (id, opponent, player1_id, player2_id)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, m.ID, m.Opponent, m.Player1ID, m.Player2ID); err != nil {
		return fmt.Errorf("insert match: %w", err)
	}

	stored, err := s.GetMatch(ctx, m.ID)
	if err != nil {
		return err
	}
	m.CreatedAt = stored.CreatedAt
	return nil
}

// GetMatch retrieves a lobby record by ID.
func (s *SQLiteStore) GetMatch(ctx context.Context, id string) (*store.Match, error) {
	query := `
		SELECT id, opponent, player1_id, player2_id, created_at
		FROM matches
		WHERE id = ?
	`
	var m store.Match
	var player1, player2 sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID,
		&m.Opponent,
		&player1,
		&player2,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("match %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query match: %w", err)
	}
	if player1.Valid {
		m.Player1ID = &player1.Int64
	}
	if player2.Valid {
		m.Player2ID = &player2.Int64
	}
	return &m, nil
}

// JoinMatch records playerID as the second player.
func (s *SQLiteStore) JoinMatch(ctx context.Context, id string, playerID int64) error {
	query := `
		UPDATE matches
		SET player2_id = ?
		WHERE id = ?
		  AND player2_id IS NULL
		  AND (player1_id IS NULL OR player1_id != ?)
	`
	result, err := s.db.ExecContext(ctx, query, playerID, id, playerID)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	if _, err := s.GetMatch(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("match %s: %w", id, store.ErrSeatTaken)
}

// DeleteMatch removes a lobby record.
func (s *SQLiteStore) DeleteMatch(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	return nil
}

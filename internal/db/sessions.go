// Package db provides PostgreSQL access for the KUT-Talk chat gateway.
//
// This file implements session and user lookups. Sessions are issued by the
// web frontend before the WebSocket connection exists; the gateway only
// validates them.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionDB handles database operations for sessions and users.
type SessionDB struct {
	db *sql.DB
}

// NewSessionDB creates a new SessionDB instance.
func NewSessionDB(db *sql.DB) *SessionDB {
	return &SessionDB{db: db}
}

// FindSession looks up a session by id and returns the owning user and the
// expiry timestamp. Returns ErrNotFound when the session does not exist.
// Expiry is enforced by the caller.
func (s *SessionDB) FindSession(ctx context.Context, sid string) (int, time.Time, error) {
	var userID int
	var expiresAt time.Time

	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE id = $1`, sid,
	).Scan(&userID, &expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, time.Time{}, ErrNotFound
		}
		return 0, time.Time{}, fmt.Errorf("failed to find session %s: %w", sid, err)
	}

	return userID, expiresAt, nil
}

// Nickname returns the nickname for a user id.
func (s *SessionDB) Nickname(ctx context.Context, userID int) (string, error) {
	var nick string

	err := s.db.QueryRowContext(ctx,
		`SELECT nickname FROM users WHERE id = $1`, userID,
	).Scan(&nick)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get nickname for user %d: %w", userID, err)
	}

	return nick, nil
}

// CreateSession inserts a new session for a user and returns its id. Session
// issuance belongs to the web frontend; this exists for ops tooling and
// integration tests.
func (s *SessionDB) CreateSession(ctx context.Context, userID int, ttl time.Duration) (string, error) {
	sid := uuid.New().String()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at) VALUES ($1, $2, $3)`,
		sid, userID, time.Now().Add(ttl),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create session for user %d: %w", userID, err)
	}

	return sid, nil
}

// PurgeExpired deletes sessions whose expiry is in the past and returns the
// number of rows removed.
func (s *SessionDB) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired sessions: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

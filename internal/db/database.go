// Package db provides PostgreSQL access for the KUT-Talk chat gateway.
//
// This file implements the core database connection and lifecycle management.
//
// Purpose:
// - Establish and maintain the PostgreSQL connection pool
// - Initialize the chat schema on startup
// - Provide the centralized database instance for the store adapters
//
// Schema:
//   - users: chat users and their nicknames
//   - sessions: authentication sessions issued by the web frontend
//   - chat_room / chat_room_member: rooms and persistent membership
//   - chat_message: message bodies per room
//   - chat_message_unread: (message_id, user_id) unread markers
//
// Thread Safety:
// - Connections are pooled and managed by database/sql
// - Safe for concurrent use across goroutines
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	_ "github.com/lib/pq"

	"github.com/kuttalk/gateway/internal/logger"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("db: not found")

// Config holds database configuration
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Database represents the database connection
type Database struct {
	db *sql.DB
}

// dsn assembles the connection string as a postgres URL. URL escaping is
// what keeps credentials or names with special characters from being read
// as extra connection parameters, so no character whitelist is needed; the
// driver rejects anything else (bad sslmode, unreachable host) at connect.
func (c Config) dsn() (string, error) {
	if c.User == "" || c.DBName == "" {
		return "", fmt.Errorf("database user and name are required")
	}

	host := c.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := c.Port
	if port == "" {
		port = "5432"
	}
	if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return "", fmt.Errorf("database port %q is not a valid port number", port)
	}

	ssl := c.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	if ssl == "disable" {
		logger.Component("database").Warn().
			Msg("Database TLS is off; set DB_SSL_MODE=require in production")
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {ssl}}.Encode(),
	}
	return u.String(), nil
}

// NewDatabase creates a new database connection with connection pooling
func NewDatabase(config Config) (*Database, error) {
	dsn, err := config.dsn()
	if err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{db: db}, nil
}

// NewDatabaseForTesting creates a Database from an existing sql.DB connection.
// Used by tests with sqlmock.
func NewDatabaseForTesting(db *sql.DB) *Database {
	return &Database{db: db}
}

// DB returns the underlying sql.DB handle.
func (d *Database) DB() *sql.DB {
	return d.db
}

// Close closes the database connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}

// Migrate creates the chat schema if it does not exist yet.
func (d *Database) Migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			nickname VARCHAR(64) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id VARCHAR(64) PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS chat_room (
			id SERIAL PRIMARY KEY,
			title VARCHAR(128) NOT NULL,
			room_type VARCHAR(16) NOT NULL DEFAULT 'PUBLIC',
			creator_id INTEGER NOT NULL REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS chat_room_member (
			room_id INTEGER NOT NULL REFERENCES chat_room(id),
			user_id INTEGER NOT NULL REFERENCES users(id),
			PRIMARY KEY (room_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS chat_message (
			id SERIAL PRIMARY KEY,
			room_id INTEGER NOT NULL REFERENCES chat_room(id),
			sender_id INTEGER NOT NULL REFERENCES users(id),
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS chat_message_unread (
			message_id INTEGER NOT NULL REFERENCES chat_message(id),
			user_id INTEGER NOT NULL REFERENCES users(id),
			PRIMARY KEY (message_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_message_room ON chat_message(room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_unread_user ON chat_message_unread(user_id)`,
	}

	for _, stmt := range statements {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/kuttalk/gateway/internal/db"
	"github.com/kuttalk/gateway/internal/logger"
)

// Sessions is a read-through cache in front of the session store. Cache
// failures degrade to the database; only db.ErrNotFound is authoritative.
type Sessions struct {
	inner *db.SessionDB
	cache *Cache
	ttl   time.Duration
}

// cachedSession is the Redis representation of a session row.
type cachedSession struct {
	UserID    int       `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSessions wraps a SessionDB with the cache.
func NewSessions(inner *db.SessionDB, cache *Cache, ttl time.Duration) *Sessions {
	return &Sessions{inner: inner, cache: cache, ttl: ttl}
}

// FindSession resolves a session id, reading through the cache.
func (s *Sessions) FindSession(ctx context.Context, sid string) (int, time.Time, error) {
	key := SessionKey(sid)

	var cached cachedSession
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached.UserID, cached.ExpiresAt, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		logger.Component("cache").Warn().Err(err).Msg("Session cache read failed")
	}

	userID, expiresAt, err := s.inner.FindSession(ctx, sid)
	if err != nil {
		return 0, time.Time{}, err
	}

	if err := s.cache.Set(ctx, key, cachedSession{UserID: userID, ExpiresAt: expiresAt}, s.ttl); err != nil {
		logger.Component("cache").Warn().Err(err).Msg("Session cache write failed")
	}
	return userID, expiresAt, nil
}

// Nickname resolves a user's nickname, reading through the cache.
func (s *Sessions) Nickname(ctx context.Context, userID int) (string, error) {
	key := NicknameKey(userID)

	var nick string
	if err := s.cache.Get(ctx, key, &nick); err == nil {
		return nick, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		logger.Component("cache").Warn().Err(err).Msg("Nickname cache read failed")
	}

	nick, err := s.inner.Nickname(ctx, userID)
	if err != nil {
		return "", err
	}

	if err := s.cache.Set(ctx, key, nick, s.ttl); err != nil {
		logger.Component("cache").Warn().Err(err).Msg("Nickname cache write failed")
	}
	return nick, nil
}

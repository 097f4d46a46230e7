package gateway

import (
	"context"
	"time"

	"github.com/kuttalk/gateway/internal/db"
)

// SessionStore is the session lookup surface the gateway needs. Sessions are
// issued elsewhere; the gateway only validates them and resolves nicknames.
type SessionStore interface {
	// FindSession returns the owning user id and expiry for a session id,
	// or db.ErrNotFound.
	FindSession(ctx context.Context, sid string) (int, time.Time, error)

	// Nickname resolves a user's display name.
	Nickname(ctx context.Context, userID int) (string, error)
}

// ChatStore is the persistent chat surface the gateway needs. Store failures
// are transient (log and continue) except SaveMessage, which aborts the
// dispatch of the frame.
type ChatStore interface {
	RoomMembers(ctx context.Context, roomID int) ([]int, error)
	JoinRoom(ctx context.Context, roomID, userID int) error
	SaveMessage(ctx context.Context, roomID, senderID int, content string) (int, error)
	AddUnread(ctx context.Context, messageID, userID int) error
	ClearUnread(ctx context.Context, roomID, userID int) error
	CountUnreadForUser(ctx context.Context, roomID, userID int) (int, error)
	CountUnreadForMessage(ctx context.Context, messageID int) (int, error)
	UnreadForUser(ctx context.Context, roomID, userID int) ([]db.UnreadCount, error)
}

// Package db provides PostgreSQL access for the KUT-Talk chat gateway.
//
// This file implements chat room, message and unread-marker operations.
// Unread accounting is row-per-(message, user): a row exists while the user
// has not observed the message, and joining a room deletes every row the
// user holds in that room.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Room is a chat room row with its member count, as served by the admin API.
type Room struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	RoomType    string    `json:"room_type"`
	CreatorID   int       `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
	MemberCount int       `json:"member_count"`
}

// UnreadCount pairs a message id with its unread-row count.
type UnreadCount struct {
	MessageID int
	Count     int
}

// ChatDB handles database operations for rooms, messages and unread markers.
type ChatDB struct {
	db *sql.DB
}

// NewChatDB creates a new ChatDB instance.
func NewChatDB(db *sql.DB) *ChatDB {
	return &ChatDB{db: db}
}

// RoomMembers returns the user ids with persistent membership in a room.
func (c *ChatDB) RoomMembers(ctx context.Context, roomID int) ([]int, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT user_id FROM chat_room_member WHERE room_id = $1 ORDER BY user_id`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of room %d: %w", roomID, err)
	}
	defer rows.Close()

	var members []int
	for rows.Next() {
		var uid int
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("failed to scan member row: %w", err)
		}
		members = append(members, uid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}

	return members, nil
}

// JoinRoom records persistent membership. Idempotent.
func (c *ChatDB) JoinRoom(ctx context.Context, roomID, userID int) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO chat_room_member (room_id, user_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`, roomID, userID)
	if err != nil {
		return fmt.Errorf("failed to join user %d to room %d: %w", userID, roomID, err)
	}
	return nil
}

// LeaveRoom removes persistent membership. The gateway never calls this on
// the wire-level leave (leave is a presence signal only); it exists for ops
// tooling.
func (c *ChatDB) LeaveRoom(ctx context.Context, roomID, userID int) error {
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM chat_room_member WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove user %d from room %d: %w", userID, roomID, err)
	}
	return nil
}

// SaveMessage persists a message and returns its id.
func (c *ChatDB) SaveMessage(ctx context.Context, roomID, senderID int, content string) (int, error) {
	var mid int
	err := c.db.QueryRowContext(ctx,
		`INSERT INTO chat_message (room_id, sender_id, content) VALUES ($1, $2, $3) RETURNING id`,
		roomID, senderID, content,
	).Scan(&mid)
	if err != nil {
		return 0, fmt.Errorf("failed to save message in room %d from user %d: %w", roomID, senderID, err)
	}
	return mid, nil
}

// AddUnread marks a message unread for a user. Idempotent.
func (c *ChatDB) AddUnread(ctx context.Context, messageID, userID int) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO chat_message_unread (message_id, user_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`, messageID, userID)
	if err != nil {
		return fmt.Errorf("failed to add unread marker msg %d user %d: %w", messageID, userID, err)
	}
	return nil
}

// ClearUnread removes every unread marker the user holds across messages of
// a room.
func (c *ChatDB) ClearUnread(ctx context.Context, roomID, userID int) error {
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM chat_message_unread u
		 USING chat_message m
		 WHERE m.id = u.message_id AND m.room_id = $1 AND u.user_id = $2`,
		roomID, userID)
	if err != nil {
		return fmt.Errorf("failed to clear unread for user %d in room %d: %w", userID, roomID, err)
	}
	return nil
}

// CountUnreadForUser returns how many messages in a room the user has not
// observed.
func (c *ChatDB) CountUnreadForUser(ctx context.Context, roomID, userID int) (int, error) {
	var count int
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM chat_message_unread u
		 JOIN chat_message m ON m.id = u.message_id
		 WHERE m.room_id = $1 AND u.user_id = $2`,
		roomID, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread for user %d in room %d: %w", userID, roomID, err)
	}
	return count, nil
}

// CountUnreadForMessage returns how many users have not observed a message.
func (c *ChatDB) CountUnreadForMessage(ctx context.Context, messageID int) (int, error) {
	var count int
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_message_unread WHERE message_id = $1`, messageID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread for message %d: %w", messageID, err)
	}
	return count, nil
}

// UnreadForUser returns the per-message unread markers a user holds in a
// room. Used as the snapshot on join before the markers are cleared.
func (c *ChatDB) UnreadForUser(ctx context.Context, roomID, userID int) ([]UnreadCount, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT u.message_id, COUNT(*) AS cnt
		 FROM chat_message_unread u
		 JOIN chat_message m ON m.id = u.message_id
		 WHERE m.room_id = $1 AND u.user_id = $2
		 GROUP BY u.message_id`,
		roomID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unread for user %d in room %d: %w", userID, roomID, err)
	}
	defer rows.Close()

	var unreads []UnreadCount
	for rows.Next() {
		var u UnreadCount
		if err := rows.Scan(&u.MessageID, &u.Count); err != nil {
			return nil, fmt.Errorf("failed to scan unread row: %w", err)
		}
		unreads = append(unreads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unread rows: %w", err)
	}

	return unreads, nil
}

// ListPublicRooms returns public rooms newest-first with their member counts.
func (c *ChatDB) ListPublicRooms(ctx context.Context) ([]*Room, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT r.id, r.title, r.room_type, r.creator_id, r.created_at,
		        (SELECT COUNT(*) FROM chat_room_member m WHERE m.room_id = r.id)
		 FROM chat_room r
		 WHERE r.room_type = 'PUBLIC'
		 ORDER BY r.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list public rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*Room
	for rows.Next() {
		room := &Room{}
		if err := rows.Scan(&room.ID, &room.Title, &room.RoomType, &room.CreatorID,
			&room.CreatedAt, &room.MemberCount); err != nil {
			return nil, fmt.Errorf("failed to scan room row: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating room rows: %w", err)
	}

	return rooms, nil
}

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kuttalk/gateway/internal/db"
	"github.com/kuttalk/gateway/internal/wsproto"
)

// dispatch routes one decoded frame. Returns false when the connection has
// reached its terminal state.
func (s *Server) dispatch(c *Client, f *wsproto.Frame) bool {
	switch f.Opcode {
	case wsproto.OpClose:
		return false

	case wsproto.OpPing:
		c.touchLiveness()
		if pong, err := wsproto.BuildControl(wsproto.OpPong, f.Payload); err == nil {
			c.writeFrame(pong)
		}
		return true

	case wsproto.OpPong:
		c.touchLiveness()
		return true

	case wsproto.OpText:
		s.dispatchText(c, f.Payload)
		return true

	default:
		// Binary and reserved opcodes carry no application meaning here.
		return true
	}
}

// dispatchText handles the JSON envelope layer. Malformed JSON is echoed
// back (debug fallback); a valid JSON document that is not a usable
// envelope still counts as liveness and is dropped.
func (s *Server) dispatchText(c *Client, payload []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		if json.Valid(payload) {
			c.touchLiveness()
			return
		}
		c.writeFrame(wsproto.BuildText(payload))
		return
	}
	c.touchLiveness()

	ctx := context.Background()

	switch env.Type {
	case "pong":
		// Liveness already recorded.

	case "auth":
		s.handleAuth(ctx, c, env)

	case "join":
		s.handleJoin(ctx, c, env)

	case "leave":
		s.handleLeave(c)

	case "message":
		s.handleMessage(ctx, c, env)

	case "update-chat-room":
		s.broadcastAll(typeOnlyEnvelope{Type: "updated-chat-room"})

	default:
		// Unknown or missing type: drop the frame, keep the connection.
	}
}

// validateSession resolves a session id to a user id, treating unknown and
// expired sessions as silently invalid.
func (s *Server) validateSession(ctx context.Context, sid string) (int, bool) {
	userID, expiresAt, err := s.sessions.FindSession(ctx, sid)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.log.Error().Err(err).Msg("Session lookup failed")
		}
		return 0, false
	}
	if time.Now().After(expiresAt) {
		return 0, false
	}
	return userID, true
}

// handleAuth authenticates the connection. Invalid sessions are ignored
// without a reply.
func (s *Server) handleAuth(ctx context.Context, c *Client, env inboundEnvelope) {
	if env.SID == "" {
		return
	}
	userID, ok := s.validateSession(ctx, env.SID)
	if !ok {
		return
	}

	_, roomID := c.identity()
	c.setIdentity(userID, roomID)
	c.sendJSON(authOKEnvelope{Type: "auth_ok"})
}

// handleJoin places the connection into a room. The session is re-validated
// here: join is the authoritative auth step when auth was skipped.
func (s *Server) handleJoin(ctx context.Context, c *Client, env inboundEnvelope) {
	if env.SID == "" || env.Room <= 0 {
		return
	}
	userID, ok := s.validateSession(ctx, env.SID)
	if !ok {
		return
	}
	room := env.Room

	// Snapshot the user's unread markers before clearing them; the
	// remaining counts are re-announced to the room below.
	snapshot, err := s.chat.UnreadForUser(ctx, room, userID)
	if err != nil {
		s.log.Error().Err(err).Int("room", room).Msg("Unread snapshot failed")
	}
	if err := s.chat.ClearUnread(ctx, room, userID); err != nil {
		s.log.Error().Err(err).Int("room", room).Msg("Unread clear failed")
	}

	c.sendJSON(unreadEnvelope{Type: "unread", Room: room, Count: 0})
	c.setIdentity(userID, room)

	if err := s.chat.JoinRoom(ctx, room, userID); err != nil {
		s.log.Error().Err(err).Int("room", room).Msg("Membership insert failed")
	}

	members, err := s.chat.RoomMembers(ctx, room)
	if err != nil {
		s.log.Error().Err(err).Int("room", room).Msg("Member list failed")
	}
	if members == nil {
		members = []int{}
	}
	s.broadcastRoom(room, joinedEnvelope{Type: "joined", Room: room, Users: members})

	for _, u := range snapshot {
		cnt, err := s.chat.CountUnreadForMessage(ctx, u.MessageID)
		if err != nil {
			s.log.Error().Err(err).Int("message", u.MessageID).Msg("Unread recount failed")
			continue
		}
		s.broadcastRoom(room, updatedMessageEnvelope{Type: "updated-message", ID: u.MessageID, UnreadCnt: cnt})
	}
}

// handleLeave clears room presence. Persistent membership is kept: leave is
// an ephemeral signal, not a membership removal.
func (s *Server) handleLeave(c *Client) {
	userID, room := c.identity()
	if room == 0 {
		return
	}
	c.setIdentity(userID, 0)
	s.broadcastRoom(room, leftEnvelope{Type: "left", Room: room, User: userID})
}

// handleMessage persists a chat message, accounts unread for members not
// watching the room, and fans the message out to the room.
func (s *Server) handleMessage(ctx context.Context, c *Client, env inboundEnvelope) {
	userID, room := c.identity()
	if userID == 0 || room == 0 {
		// Message before join: drop.
		return
	}
	if env.Content == nil {
		return
	}
	content := s.sanitizer.Sanitize(*env.Content)

	mid, err := s.chat.SaveMessage(ctx, room, userID, content)
	if err != nil {
		// Losing the message body is the one store failure that aborts
		// the frame: nothing is delivered that was not persisted.
		s.log.Error().Err(err).Int("room", room).Msg("Message save failed")
		return
	}
	if s.metrics != nil {
		s.metrics.MessagesTotal.Inc()
	}

	s.notifyUnread(ctx, room, mid, userID)

	nick, err := s.sessions.Nickname(ctx, userID)
	if err != nil {
		s.log.Error().Err(err).Int("user", userID).Msg("Nickname lookup failed")
	}

	unreadCnt, err := s.chat.CountUnreadForMessage(ctx, mid)
	if err != nil {
		s.log.Error().Err(err).Int("message", mid).Msg("Unread count failed")
	}

	s.broadcastRoom(room, messageEnvelope{
		Type:      "message",
		Room:      room,
		ID:        mid,
		Sender:    userID,
		Nick:      nick,
		Content:   content,
		TS:        time.Now().Unix(),
		UnreadCnt: unreadCnt,
	})
}

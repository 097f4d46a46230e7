package gateway

import (
	"context"
	"encoding/json"

	"github.com/kuttalk/gateway/internal/wsproto"
)

// broadcastRoom renders the envelope once and writes the same frame to every
// handshaked client currently in the room. Write errors do not stop the
// fan-out; failed clients are disconnected after the loop.
func (s *Server) broadcastRoom(roomID int, v interface{}) {
	targets := s.registry.Snapshot(func(c *Client) bool {
		if !c.isHandshaked() {
			return false
		}
		_, rid := c.identity()
		return rid == roomID
	})
	s.writeAll(targets, v)
}

// broadcastAll writes the envelope to every handshaked client.
func (s *Server) broadcastAll(v interface{}) {
	s.writeAll(s.registry.Snapshot((*Client).isHandshaked), v)
}

func (s *Server) writeAll(targets []*Client, v interface{}) {
	if len(targets) == 0 {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Msg("Envelope marshal failed")
		return
	}
	frame := wsproto.BuildText(payload)

	var failed []*Client
	for _, c := range targets {
		if err := c.writeFrame(frame); err != nil {
			failed = append(failed, c)
		}
	}
	if s.metrics != nil {
		s.metrics.BroadcastsTotal.Add(float64(len(targets) - len(failed)))
	}
	for _, c := range failed {
		s.registry.Remove(c)
		c.close()
	}
}

// notifyUnread accounts a freshly saved message for every room member who is
// not watching the room, and tells online-elsewhere members their new unread
// count. The offline-in-room decision is taken from one registry snapshot at
// message time; store calls happen after the lock is released.
func (s *Server) notifyUnread(ctx context.Context, roomID, messageID, senderID int) {
	members, err := s.chat.RoomMembers(ctx, roomID)
	if err != nil {
		s.log.Error().Err(err).Int("room", roomID).Msg("Member list failed")
		return
	}

	inRoom, elsewhere := s.registry.RoomPresence(roomID)

	for _, member := range members {
		if member == senderID || inRoom[member] {
			continue
		}

		if err := s.chat.AddUnread(ctx, messageID, member); err != nil {
			s.log.Error().Err(err).Int("message", messageID).Int("user", member).
				Msg("Unread insert failed")
		}

		clients := elsewhere[member]
		if len(clients) == 0 {
			continue
		}

		// Counts differ per recipient, so these are direct sends rather
		// than a shared broadcast frame.
		count, err := s.chat.CountUnreadForUser(ctx, roomID, member)
		if err != nil {
			s.log.Error().Err(err).Int("room", roomID).Int("user", member).
				Msg("Unread count failed")
			continue
		}
		env := unreadEnvelope{Type: "unread", Room: roomID, Count: count}
		for _, c := range clients {
			if err := c.sendJSON(env); err == nil && s.metrics != nil {
				s.metrics.UnreadNotices.Inc()
			}
		}
	}
}

package gateway

import "sync"

// Registry is the set of live clients. It is the only shared mutable
// structure in the gateway; one coarse mutex is adequate because fan-out
// cost is dominated by per-socket writes, not lock contention.
//
// Iteration never mutates: paths that need to write to or disconnect
// clients snapshot the targets under the lock and act after releasing it,
// so the lock is never held across a store call or a socket write.
type Registry struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[*Client]struct{})}
}

// Insert adds a client. A client appears at most once.
func (r *Registry) Insert(c *Client) {
	r.mu.Lock()
	r.clients[c] = struct{}{}
	r.mu.Unlock()
}

// Remove deletes a client. Idempotent; must run before the client is
// forgotten so no iteration can observe a dangling reference.
func (r *Registry) Remove(c *Client) {
	r.mu.Lock()
	delete(r.clients, c)
	r.mu.Unlock()
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Snapshot returns the clients matching pred at this instant. The predicate
// runs under the lock and must not block.
func (r *Registry) Snapshot(pred func(*Client) bool) []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Client
	for c := range r.clients {
		if pred(c) {
			out = append(out, c)
		}
	}
	return out
}

// RoomPresence returns, in one consistent snapshot, the set of user ids
// online in the given room and the live clients of every other handshaked,
// authenticated user grouped by user id. Used by the unread pipeline, which
// must decide offline-in-room membership at message time.
func (r *Registry) RoomPresence(roomID int) (inRoom map[int]bool, elsewhere map[int][]*Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inRoom = make(map[int]bool)
	elsewhere = make(map[int][]*Client)
	for c := range r.clients {
		uid, rid := c.identity()
		if !c.isHandshaked() || uid == 0 {
			continue
		}
		if rid == roomID {
			inRoom[uid] = true
		} else {
			elsewhere[uid] = append(elsewhere[uid], c)
		}
	}
	return inRoom, elsewhere
}

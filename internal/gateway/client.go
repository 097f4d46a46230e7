package gateway

import (
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/kuttalk/gateway/internal/wsproto"
)

// writeTimeout bounds a single frame write so one stalled peer cannot wedge
// a broadcast.
const writeTimeout = 10 * time.Second

// Client is one connected peer. The reader goroutine owns the state machine
// fields (handshaked, userID, roomID); lastLiveness is also touched by the
// keep-alive timer and is read under the registry lock. Frame writes are
// serialized through writeMu because broadcasts, direct replies and the
// keep-alive ping can race on the same connection.
type Client struct {
	conn net.Conn

	handshaked bool
	userID     int
	roomID     int

	mu           sync.Mutex // guards lastLiveness and the identity fields read off-loop
	lastLiveness time.Time

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newClient(conn net.Conn) *Client {
	return &Client{
		conn:         conn,
		lastLiveness: time.Now(),
	}
}

// touchLiveness records inbound traffic for the keep-alive timer.
func (c *Client) touchLiveness() {
	c.mu.Lock()
	c.lastLiveness = time.Now()
	c.mu.Unlock()
}

func (c *Client) liveness() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastLiveness
}

// setIdentity publishes the authenticated user and current room. Written by
// the reader goroutine, read by broadcast snapshots under the registry lock.
func (c *Client) setIdentity(userID, roomID int) {
	c.mu.Lock()
	c.userID = userID
	c.roomID = roomID
	c.mu.Unlock()
}

func (c *Client) identity() (userID, roomID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID, c.roomID
}

func (c *Client) setHandshaked() {
	c.mu.Lock()
	c.handshaked = true
	c.lastLiveness = time.Now()
	c.mu.Unlock()
}

func (c *Client) isHandshaked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handshaked
}

// writeFrame writes an already-encoded frame. Serialized per connection.
func (c *Client) writeFrame(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := c.conn.Write(frame)
	return err
}

// sendJSON renders v as a single text frame and writes it.
func (c *Client) sendJSON(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.writeFrame(wsproto.BuildText(payload))
}

// close shuts the socket down exactly once. Safe from any goroutine; the
// reader unblocks with an error and runs the shared teardown.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
}

// Package gateway implements the realtime chat gateway: the TCP accept
// loop, the WebSocket upgrade, the per-connection protocol state machine,
// the room broadcast and unread-notification pipeline, and the app-level
// keep-alive timer.
//
// Concurrency model: one reader goroutine per connection plus one
// keep-alive goroutine. The client Registry is the only shared structure;
// its mutex is never held across a store call or a socket write. Because
// broadcasts, direct replies and the keep-alive ping can all target the
// same connection, every frame write goes through the client's write mutex.
package gateway

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/kuttalk/gateway/internal/logger"
	"github.com/kuttalk/gateway/internal/metrics"
	"github.com/kuttalk/gateway/internal/wsproto"
)

// Options tunes the keep-alive loop.
type Options struct {
	// PingInterval is how often the app-level {"type":"ping"} is sent.
	PingInterval time.Duration

	// PongTimeout is how long a client may stay silent after the last
	// liveness token before it is evicted.
	PongTimeout time.Duration
}

// Server is the chat gateway.
type Server struct {
	opts     Options
	registry *Registry
	sessions SessionStore
	chat     ChatStore
	metrics  *metrics.Metrics
	log      *zerolog.Logger

	// sanitizer strips markup from user-supplied message content before it
	// is persisted or fanned out.
	sanitizer *bluemonday.Policy

	mu       sync.Mutex
	listener net.Listener
	quit     chan struct{}
	wg       sync.WaitGroup
}

// NewServer wires a gateway against its stores. m may be nil (tests).
func NewServer(sessions SessionStore, chat ChatStore, m *metrics.Metrics, opts Options) *Server {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 3 * time.Second
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = 3 * time.Second
	}
	return &Server{
		opts:      opts,
		registry:  NewRegistry(),
		sessions:  sessions,
		chat:      chat,
		metrics:   m,
		log:       logger.Component("gateway"),
		sanitizer: bluemonday.StrictPolicy(),
		quit:      make(chan struct{}),
	}
}

// Registry exposes the live-client set, for the admin stats endpoint.
func (s *Server) Registry() *Registry {
	return s.registry
}

// ListenAndServe listens on addr and serves until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("gateway: listen %s: %w", addr, err)
	}
	return s.Serve(l)
}

// Serve accepts connections on l until Shutdown. Per-connection errors
// never escape: the accept loop itself is infallible.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	s.wg.Add(1)
	go s.keepaliveLoop()

	s.log.Info().Str("addr", l.Addr().String()).Msg("Gateway listening")

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warn().Err(err).Msg("Accept failed")
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Shutdown stops accepting, disconnects every client and waits for the
// per-connection goroutines to drain.
func (s *Server) Shutdown() {
	s.mu.Lock()
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
	l := s.listener
	s.mu.Unlock()

	if l != nil {
		l.Close()
	}

	for _, c := range s.registry.Snapshot(func(*Client) bool { return true }) {
		s.registry.Remove(c)
		c.close()
	}

	s.wg.Wait()
}

// handleConn owns one connection: upgrade, frame loop, teardown.
func (s *Server) handleConn(conn net.Conn) {
	c := newClient(conn)
	s.registry.Insert(c)
	if s.metrics != nil {
		s.metrics.ConnectionsActive.Inc()
	}
	defer s.terminate(c)

	if err := wsproto.Upgrade(conn); err != nil {
		if s.metrics != nil {
			s.metrics.HandshakeErrors.Inc()
		}
		logger.Component("handshake").Debug().Err(err).Msg("Upgrade failed")
		return
	}
	c.setHandshaked()

	for {
		frame, err := wsproto.ReadFrame(conn)
		if err != nil {
			return
		}
		if !s.dispatch(c, frame) {
			return
		}
	}
}

// terminate runs the idempotent teardown: remove from the registry first so
// no snapshot observes a dead client, then close the socket.
func (s *Server) terminate(c *Client) {
	s.registry.Remove(c)
	c.close()
	if s.metrics != nil {
		s.metrics.ConnectionsActive.Dec()
	}
}

// keepaliveLoop ticks once a second, bounding the keep-alive granularity.
// Each PingInterval it sends the app-level JSON ping to every handshaked
// client, then evicts clients whose last liveness token is older than
// PongTimeout.
func (s *Server) keepaliveLoop() {
	defer s.wg.Done()

	// The tick bounds keep-alive granularity; sub-second ping intervals
	// (tests) tick faster.
	tick := 1 * time.Second
	if s.opts.PingInterval < tick {
		tick = s.opts.PingInterval
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	lastPing := time.Now()
	for {
		select {
		case <-s.quit:
			return
		case now := <-ticker.C:
			if now.Sub(lastPing) >= s.opts.PingInterval {
				s.broadcastAll(typeOnlyEnvelope{Type: "ping"})
				lastPing = now
			}
			s.evictStale(now)
		}
	}
}

// evictStale disconnects handshaked clients that have been silent past the
// pong timeout. Targets are collected under the registry lock and torn down
// after releasing it; the reader goroutine finishes the teardown when its
// blocked read fails.
func (s *Server) evictStale(now time.Time) {
	stale := s.registry.Snapshot(func(c *Client) bool {
		return c.isHandshaked() && now.Sub(c.liveness()) > s.opts.PongTimeout
	})
	for _, c := range stale {
		uid, _ := c.identity()
		s.registry.Remove(c)
		c.close()
		if s.metrics != nil {
			s.metrics.EvictionsTotal.Inc()
		}
		s.log.Info().Int("user", uid).Msg("Client evicted on pong timeout")
	}
}

package session

import (
	"sync"
	"time"

	"github.com/riftsignal/signalserver/internal/config"
	"github.com/riftsignal/signalserver/internal/ratelimit"
	"github.com/riftsignal/signalserver/internal/router"
	"github.com/riftsignal/signalserver/internal/transport"
	"github.com/riftsignal/signalserver/internal/types"
)

// Manager tracks every live session by id, so a room broadcast's
// SlowConsumer result (identified only by SessionId) can be turned into an
// actual disconnect.
type Manager struct {
	cfg             Config
	maxMessageBytes int64
	conns           *ratelimit.ConnectionTracker

	mu       sync.RWMutex
	sessions map[types.SessionId]*Session
}

func NewManager(cfg *config.Config, conns *ratelimit.ConnectionTracker) *Manager {
	pongWait := time.Duration(cfg.Server.PingTimeoutSecs) * time.Second
	return &Manager{
		cfg: Config{
			RequireAuth:       cfg.Security.RequireWebsocketAuth,
			AuthTimeout:       time.Duration(cfg.WebSocket.AuthTimeoutSecs) * time.Second,
			OutboundQueueSize: cfg.WebSocket.OutboundQueueSize,
			EnableBatching:    cfg.WebSocket.EnableBatching,
			BatchSize:         cfg.WebSocket.BatchSize,
			BatchInterval:     time.Duration(cfg.WebSocket.BatchIntervalMs) * time.Millisecond,
			WriteTimeout:      10 * time.Second,
			InboundRatePerSec: cfg.WebSocket.InboundRatePerSec,
			InboundBurst:      cfg.WebSocket.InboundBurst,
			PongWait:          pongWait,
			PingPeriod:        (pongWait * 9) / 10,
		},
		maxMessageBytes: cfg.Security.MaxMessageSizeBytes,
		conns:           conns,
		sessions:        make(map[types.SessionId]*Session),
	}
}

// Attach admits a freshly-upgraded connection, enforcing the per-IP
// connection cap (spec.md §4.9) before a Session is even constructed.
// Returns nil if the cap was exceeded; the caller closes the raw
// connection in that case.
func (m *Manager) Attach(conn transport.WSConnection, codec transport.Codec, remoteAddr string, rt *router.Router, maxMessageBytes int64) *Session {
	if !m.conns.TryAcquire(remoteAddr) {
		return nil
	}

	if maxMessageBytes > 0 {
		conn.SetReadLimit(maxMessageBytes)
	} else if m.maxMessageBytes > 0 {
		conn.SetReadLimit(m.maxMessageBytes)
	}

	sess := New(conn, codec, remoteAddr, m.cfg)

	m.mu.Lock()
	m.sessions[sess.id] = sess
	m.mu.Unlock()

	go func() {
		sess.ReadPump(rt, maxMessageBytes)
		m.remove(sess)
	}()
	go sess.WritePump()

	return sess
}

func (m *Manager) remove(sess *Session) {
	m.mu.Lock()
	delete(m.sessions, sess.id)
	m.mu.Unlock()
	m.conns.Release(sess.remoteAddr)
}

// CloseSession implements router.SlowConsumerCloser: a broadcast found
// this session's outbound queue full, so it is disconnected from outside
// the room lock that discovered the condition.
func (m *Manager) CloseSession(id types.SessionId, reason types.CloseReason) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return
	}
	sess.Close(reason)
}

// Get returns the live session for id, if any.
func (m *Manager) Get(id types.SessionId) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// All returns a snapshot of every currently tracked session.
func (m *Manager) All() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	return out
}

// Count reports the number of sessions currently tracked.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

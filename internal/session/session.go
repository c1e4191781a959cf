// Package session owns one WebSocket connection's lifetime: the
// PendingAuth -> Active -> Closing -> Closed state machine of spec.md §4.1,
// the non-blocking bounded outbound queue and its Idle/Buffering/Flush
// batching writer (§4.7), and per-session inbound shedding (§4.9). Session
// implements both router.SessionContext (what a handler needs) and
// room.Recipient (what a room's broadcast needs) structurally — it needs
// no import of either package to satisfy them, only router.Router itself
// to drive dispatch.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/riftsignal/signalserver/internal/logging"
	"github.com/riftsignal/signalserver/internal/metrics"
	"github.com/riftsignal/signalserver/internal/ratelimit"
	"github.com/riftsignal/signalserver/internal/transport"
	"github.com/riftsignal/signalserver/internal/types"
	"go.uber.org/zap"
)

// Session is one live (or recently-live) WebSocket connection.
type Session struct {
	id         types.SessionId
	conn       transport.WSConnection
	codec      transport.Codec
	remoteAddr string

	mu          sync.Mutex
	state       types.SessionState
	appContext  *types.AppContext
	playerID    types.PlayerId
	roomID      types.RoomId
	spectatorID types.SpectatorId
	closeOnce   sync.Once

	outbound chan transport.Envelope
	closed   chan struct{}

	shedder *ratelimit.InboundShedder

	authTimer *time.Timer

	batchSize     int
	batchInterval time.Duration
	enableBatch   bool
	writeTimeout  time.Duration

	pongWait   time.Duration
	pingPeriod time.Duration
}

// Config bundles the per-session construction parameters sourced from
// config.Config, so Manager doesn't pass a dozen bare values.
type Config struct {
	RequireAuth       bool
	AuthTimeout       time.Duration
	OutboundQueueSize int
	EnableBatching    bool
	BatchSize         int
	BatchInterval     time.Duration
	WriteTimeout      time.Duration
	InboundRatePerSec float64
	InboundBurst      int

	// PongWait is how long a connection may stay silent before ReadPump
	// gives up on it; PingPeriod (always < PongWait, grounded on the
	// adred-codev-ws_poc client's pongWait/pingPeriod = 9/10 ratio) is how
	// often WritePump sends a keepalive ping to provoke a pong first.
	PongWait   time.Duration
	PingPeriod time.Duration
}

func New(conn transport.WSConnection, codec transport.Codec, remoteAddr string, cfg Config) *Session {
	initial := types.SessionStateActive
	if cfg.RequireAuth {
		initial = types.SessionStatePendingAuth
	}

	s := &Session{
		id:            types.NewSessionId(),
		conn:          conn,
		codec:         codec,
		remoteAddr:    remoteAddr,
		state:         initial,
		outbound:      make(chan transport.Envelope, cfg.OutboundQueueSize),
		closed:        make(chan struct{}),
		shedder:       ratelimit.NewInboundShedder(cfg.InboundRatePerSec, cfg.InboundBurst),
		batchSize:     cfg.BatchSize,
		batchInterval: cfg.BatchInterval,
		enableBatch:   cfg.EnableBatching,
		writeTimeout:  cfg.WriteTimeout,
		pongWait:      cfg.PongWait,
		pingPeriod:    cfg.PingPeriod,
	}

	_ = conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	if cfg.RequireAuth {
		s.authTimer = time.AfterFunc(cfg.AuthTimeout, func() {
			s.mu.Lock()
			stillPending := s.state == types.SessionStatePendingAuth
			s.mu.Unlock()
			if stillPending {
				s.Close(types.CloseReasonAuthenticationTimeout)
			}
		})
	}

	metrics.IncConnection()
	return s
}

func (s *Session) SessionId() types.SessionId { return s.id }
func (s *Session) RemoteAddr() string         { return s.remoteAddr }

func (s *Session) State() types.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) AppContext() *types.AppContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appContext
}

func (s *Session) SetAppContext(ctx *types.AppContext) {
	s.mu.Lock()
	s.appContext = ctx
	s.mu.Unlock()
}

// MarkAuthenticated advances PendingAuth -> Active and disarms the auth
// timeout timer. Calling it twice, or from any state other than
// PendingAuth, is a no-op — re-entering a state is forbidden (spec.md §4.1).
func (s *Session) MarkAuthenticated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != types.SessionStatePendingAuth {
		return
	}
	s.state = types.SessionStateActive
	if s.authTimer != nil {
		s.authTimer.Stop()
	}
}

func (s *Session) PlayerId() types.PlayerId       { s.mu.Lock(); defer s.mu.Unlock(); return s.playerID }
func (s *Session) SetPlayerId(id types.PlayerId)  { s.mu.Lock(); s.playerID = id; s.mu.Unlock() }
func (s *Session) RoomId() types.RoomId           { s.mu.Lock(); defer s.mu.Unlock(); return s.roomID }
func (s *Session) SetRoomId(id types.RoomId)      { s.mu.Lock(); s.roomID = id; s.mu.Unlock() }
func (s *Session) SpectatorId() types.SpectatorId { s.mu.Lock(); defer s.mu.Unlock(); return s.spectatorID }
func (s *Session) SetSpectatorId(id types.SpectatorId) {
	s.mu.Lock()
	s.spectatorID = id
	s.mu.Unlock()
}

// Send enqueues env for direct delivery to this session, bypassing any
// room. Used for replies (Authenticated, RoomCreated, Error, ...).
func (s *Session) Send(env transport.Envelope) {
	s.TryEnqueue(env)
}

// TryEnqueue is room.Recipient's non-blocking enqueue: a full queue means
// this session is a slow consumer and the caller (router, via
// SlowConsumerCloser) is responsible for closing it. Never blocks, never
// touches room state, so it is safe to call while a room's lock is held.
func (s *Session) TryEnqueue(env transport.Envelope) bool {
	select {
	case <-s.closed:
		return false
	default:
	}
	select {
	case s.outbound <- env:
		return true
	default:
		return false
	}
}

// Close transitions the session to Closing then Closed, exactly once,
// closing the underlying connection. Safe to call from any goroutine,
// any number of times, and from within the read or write pump itself.
func (s *Session) Close(reason types.CloseReason) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = types.SessionStateClosing
		s.mu.Unlock()

		if s.authTimer != nil {
			s.authTimer.Stop()
		}
		close(s.closed)
		_ = s.conn.Close()
		metrics.DecConnection()

		s.mu.Lock()
		s.state = types.SessionStateClosed
		s.mu.Unlock()

		logging.Info(context.Background(), "session closed",
			zap.String("session_id", string(s.id)), zap.String("reason", string(reason)))
	})
}

// Done reports the channel that closes once the session has started
// shutting down, for pumps to select on.
func (s *Session) Done() <-chan struct{} { return s.closed }

// Package maintenance runs the periodic sweeps on one ticker: empty/inactive
// room cleanup and reconnection token expiration, plus a session sweep that
// closes no session (see sweepSessions), and starts the process metrics
// sampler.
package maintenance

import (
	"context"
	"time"

	"github.com/riftsignal/signalserver/internal/logging"
	"github.com/riftsignal/signalserver/internal/metrics"
	"github.com/riftsignal/signalserver/internal/reconnect"
	"github.com/riftsignal/signalserver/internal/registry"
	"github.com/riftsignal/signalserver/internal/room"
	"github.com/riftsignal/signalserver/internal/session"
	"github.com/riftsignal/signalserver/internal/transport"
	"github.com/riftsignal/signalserver/internal/types"
	"go.uber.org/zap"
)

// Config bundles the timeouts the scheduler sweeps against.
type Config struct {
	Interval              time.Duration
	EmptyRoomTimeout      time.Duration
	InactiveRoomTimeout   time.Duration
	SessionIdleTimeout    time.Duration
	ProcessSampleInterval time.Duration
}

// Scheduler owns the single background goroutine that runs all three
// sweeps on one ticker, the way the teacher's room cleanup loop does.
type Scheduler struct {
	cfg       Config
	registry  *registry.Registry
	reconnect *reconnect.Store
	sessions  *session.Manager
	sampler   *metrics.ProcessSampler
	stop      chan struct{}
}

func New(cfg Config, reg *registry.Registry, recon *reconnect.Store, sessions *session.Manager, sampler *metrics.ProcessSampler) *Scheduler {
	return &Scheduler{cfg: cfg, registry: reg, reconnect: recon, sessions: sessions, sampler: sampler, stop: make(chan struct{})}
}

// Run blocks, ticking the sweeps until Stop is called. Intended to be
// launched in its own goroutine from main.
func (s *Scheduler) Run() {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.sampler.StartPeriodicSampling(s.cfg.ProcessSampleInterval, s.stop)

	for {
		select {
		case <-ticker.C:
			s.sweepRooms()
			s.sweepReconnections()
			s.sweepSessions()
		case <-s.stop:
			return
		}
	}
}

func (s *Scheduler) Stop() { close(s.stop) }

// sweepRooms destroys rooms that have been empty past EmptyRoomTimeout or
// untouched past InactiveRoomTimeout, broadcasting RoomClosed first so any
// still-attached observers learn why before the room vanishes.
func (s *Scheduler) sweepRooms() {
	start := time.Now()
	defer func() {
		metrics.MaintenanceSweepDuration.WithLabelValues("rooms").Observe(time.Since(start).Seconds())
	}()

	now := time.Now()
	for _, rm := range s.registry.AllRooms() {
		reason := s.closeReason(rm, now)
		if reason == "" {
			continue
		}
		if env, err := transport.NewEnvelope(transport.TypeRoomClosed, struct {
			Reason string `json:"reason"`
		}{Reason: string(reason)}); err == nil {
			s.closeSlow(rm.Broadcast(env, room.Everyone()))
		}
		s.registry.DestroyRoom(rm.Id)
		metrics.RoomsClosedTotal.WithLabelValues(string(reason)).Inc()
		logging.Info(context.Background(), "room closed by maintenance sweep",
			zap.String("room_id", string(rm.Id)), zap.String("reason", string(reason)))
	}
}

func (s *Scheduler) closeReason(rm *room.Room, now time.Time) types.CloseReason {
	if rm.IsEmpty() {
		if emptySince := rm.EmptySinceAt(); !emptySince.IsZero() && now.Sub(emptySince) >= s.cfg.EmptyRoomTimeout {
			return types.CloseReasonRoomClosed
		}
		return ""
	}
	if s.cfg.InactiveRoomTimeout > 0 && now.Sub(rm.LastActivityAt()) >= s.cfg.InactiveRoomTimeout {
		return types.CloseReasonRoomClosed
	}
	return ""
}

// sweepReconnections expires parked players whose reconnection window has
// elapsed, removing them from their room and broadcasting PlayerLeft
// (spec.md §4.8 expiration semantics).
func (s *Scheduler) sweepReconnections() {
	start := time.Now()
	defer func() {
		metrics.MaintenanceSweepDuration.WithLabelValues("reconnections").Observe(time.Since(start).Seconds())
	}()

	s.reconnect.SweepExpired(time.Now(), func(playerID types.PlayerId, roomID types.RoomId) {
		rm, ok := s.registry.Lookup(roomID)
		if !ok {
			return
		}
		_, entered := rm.RemoveMember(playerID)
		if env, err := transport.NewEnvelope(transport.TypePlayerLeft, struct {
			PlayerId types.PlayerId `json:"playerId"`
		}{PlayerId: playerID}); err == nil {
			s.closeSlow(rm.Broadcast(env, room.AllMembers()))
		}
		s.closeSlow(rm.BroadcastLobbyTransitions(entered))
	})
}

func (s *Scheduler) closeSlow(slow []room.SlowConsumer) {
	for _, sc := range slow {
		s.sessions.CloseSession(sc.SessionId, types.CloseReasonSlowConsumer)
	}
}

// sweepSessions only records its own duration in MaintenanceSweepDuration;
// it closes no session, and cfg.SessionIdleTimeout is not read. A silent
// connection ends when the read deadline that session.New's pong handler
// keeps extending expires, and ReadPump then closes it with
// CloseReasonClientClosed, not CloseReasonIdleTimeout.
func (s *Scheduler) sweepSessions() {
	start := time.Now()
	defer func() {
		metrics.MaintenanceSweepDuration.WithLabelValues("sessions").Observe(time.Since(start).Seconds())
	}()
}

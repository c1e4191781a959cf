package room

import (
	"context"
	"sync"
	"time"

	"github.com/riftsignal/signalserver/internal/apperr"
	"github.com/riftsignal/signalserver/internal/logging"
	"github.com/riftsignal/signalserver/internal/metrics"
	"github.com/riftsignal/signalserver/internal/transport"
	"github.com/riftsignal/signalserver/internal/types"
	"go.uber.org/zap"
	"k8s.io/utils/set"
)

// Recipient is the narrow interface Room needs from a live session to
// deliver a broadcast. Defined here (not imported from internal/session)
// so room has no dependency on session, keeping the import graph acyclic —
// internal/session is the side that knows about both.
type Recipient interface {
	SessionId() types.SessionId
	// TryEnqueue attempts a non-blocking enqueue of env to the recipient's
	// outbound queue. A false return means the queue was full.
	TryEnqueue(env transport.Envelope) bool
}

// Coordinator is the inter-instance state-sharing seam spec.md §9 names.
// The only implementation in this repository is process-local (see
// coordinator.go) — spec.md's Non-goals explicitly exclude persistent
// storage and inter-instance coordination, so there is no Redis-backed
// Coordinator here.
type Coordinator interface {
	// Announce is called once per broadcast; a distributed implementation
	// would fan it out to peer instances. The in-memory implementation is
	// a no-op, since there is only ever one instance to deliver within.
	Announce(roomID types.RoomId, seq uint64, env transport.Envelope)
}

// Audience selects which live recipients a broadcast reaches.
type Audience struct {
	kind      audienceKind
	exceptID  types.PlayerId
}

type audienceKind int

const (
	AudienceAllMembers audienceKind = iota
	AudienceAllExcept
	AudienceSpectators
	AudienceEveryone
)

func AllMembers() Audience                       { return Audience{kind: AudienceAllMembers} }
func AllExcept(playerID types.PlayerId) Audience { return Audience{kind: AudienceAllExcept, exceptID: playerID} }
func Spectators() Audience                       { return Audience{kind: AudienceSpectators} }
func Everyone() Audience                         { return Audience{kind: AudienceEveryone} }

// Room holds one game session's membership, lobby state, authority, and
// spectator set. All mutation happens under mu; handlers must never hold mu
// across a suspension point (e.g. a network write) per spec.md §4.3.
type Room struct {
	mu sync.Mutex

	Id                types.RoomId
	GameName          string
	Code              types.RoomCode
	MaxPlayers        int
	SupportsAuthority bool
	RelayType         types.RelayType
	AppContext        *types.AppContext

	LobbyState      types.LobbyState
	countdown       *time.Timer
	countdownDur    time.Duration

	members      []*types.Player // ordered by join time; index 0 is longest-joined
	memberByID   map[types.PlayerId]int
	spectators   map[types.SpectatorId]*types.Spectator

	authorityPlayer types.PlayerId // empty if no current authority

	pendingReconnects set.Set[types.PlayerId]

	sessions map[types.SessionId]Recipient // live bound sessions, players and spectators alike

	EventLog    *EventLog
	Coordinator Coordinator

	CreatedAt    time.Time
	LastActivity time.Time

	// EmptySince is non-zero once the room has had zero members, used by
	// the maintenance scheduler's empty-room sweep (spec.md §4.10).
	EmptySince time.Time
}

// Config bundles the room-creation parameters that come from JoinRoom/the
// registry, so NewRoom doesn't take an unreadable dozen-argument list.
type Config struct {
	GameName          string
	MaxPlayers        int
	SupportsAuthority bool
	RelayType         types.RelayType
	AppContext        *types.AppContext
	EventBufferSize   int
	CountdownDuration time.Duration
	Coordinator       Coordinator
}

func New(id types.RoomId, code types.RoomCode, cfg Config) *Room {
	now := time.Now()
	coord := cfg.Coordinator
	if coord == nil {
		coord = NewLocalCoordinator()
	}
	return &Room{
		Id:                id,
		GameName:          cfg.GameName,
		Code:              code,
		MaxPlayers:        cfg.MaxPlayers,
		SupportsAuthority: cfg.SupportsAuthority,
		RelayType:         cfg.RelayType,
		AppContext:        cfg.AppContext,
		LobbyState:        types.LobbyStateWaiting,
		countdownDur:      cfg.CountdownDuration,
		memberByID:        make(map[types.PlayerId]int),
		spectators:        make(map[types.SpectatorId]*types.Spectator),
		pendingReconnects: set.New[types.PlayerId](),
		sessions:          make(map[types.SessionId]Recipient),
		EventLog:          NewEventLog(cfg.EventBufferSize),
		Coordinator:       coord,
		CreatedAt:         now,
		LastActivity:      now,
	}
}

// BindSession registers a live Recipient for delivery; callers hold the
// room lock is NOT required — BindSession takes it internally since it is
// invoked from the session/registry layer, not from within an existing
// locked room operation.
func (r *Room) BindSession(sessionID types.SessionId, rec Recipient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = rec
}

// UnbindSession removes a session's delivery registration, called when a
// session closes or a member is parked pending reconnection.
func (r *Room) UnbindSession(sessionID types.SessionId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

func (r *Room) touch() { r.LastActivity = time.Now() }

// MemberCount reports the current player count under lock.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// IsEmpty reports whether the room has zero players (spectators don't count).
func (r *Room) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members) == 0
}

// EmptySinceAt reports when the room last became empty (zero value if it
// currently has members), for the maintenance scheduler's empty-room sweep.
func (r *Room) EmptySinceAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.EmptySince
}

// LastActivityAt reports the last time any membership/ready/authority
// mutation touched the room, for the maintenance scheduler's inactivity sweep.
func (r *Room) LastActivityAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.LastActivity
}

func logCtx(roomID types.RoomId) context.Context {
	return logging.WithRoom(context.Background(), string(roomID))
}

// AddMember appends a new player to the room, enforcing MaxPlayers and
// rejecting duplicates (spec.md §4.3 joinRoom). It returns any lobby states
// entered as a result, for the caller to broadcast.
func (r *Room) AddMember(player *types.Player) ([]types.LobbyState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.memberByID[player.Id]; exists {
		return nil, apperr.New(apperr.CodeAlreadyInRoom, "player already a member of this room")
	}
	if len(r.members) >= r.MaxPlayers {
		return nil, apperr.New(apperr.CodeRoomFull, "room has reached its maximum player count")
	}

	r.members = append(r.members, player)
	r.memberByID[player.Id] = len(r.members) - 1
	r.EmptySince = time.Time{}
	r.touch()

	if r.SupportsAuthority && r.authorityPlayer == "" {
		player.IsAuthority = true
		r.authorityPlayer = player.Id
	}

	entered := r.recomputeLobbyStateLocked()
	metrics.RoomPlayers.WithLabelValues(string(r.Id)).Set(float64(len(r.members)))
	return entered, nil
}

// RemoveMember removes a player entirely (LeaveRoom, or token expiration).
// Returns whether the room is now empty and any lobby states entered.
func (r *Room) RemoveMember(playerID types.PlayerId) (empty bool, entered []types.LobbyState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.memberByID[playerID]
	if !ok {
		return len(r.members) == 0, nil
	}
	wasAuthority := r.members[idx].IsAuthority

	r.members = append(r.members[:idx], r.members[idx+1:]...)
	delete(r.memberByID, playerID)
	for id, i := range r.memberByID {
		if i > idx {
			r.memberByID[id] = i - 1
		}
	}
	r.pendingReconnects.Delete(playerID)

	if wasAuthority {
		r.authorityPlayer = ""
		r.autoPromoteAuthorityLocked()
	}

	r.touch()
	if len(r.members) == 0 {
		r.EmptySince = time.Now()
	}
	entered = r.recomputeLobbyStateLocked()
	metrics.RoomPlayers.WithLabelValues(string(r.Id)).Set(float64(len(r.members)))
	return len(r.members) == 0, entered
}

// Member returns a copy of the player's current state, or false if absent.
func (r *Room) Member(playerID types.PlayerId) (types.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.memberByID[playerID]
	if !ok {
		return types.Player{}, false
	}
	return *r.members[idx], true
}

// Members returns a snapshot slice of all current players, in join order.
func (r *Room) Members() []types.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Player, len(r.members))
	for i, m := range r.members {
		out[i] = *m
	}
	return out
}

// SetReady updates a member's ready flag and recomputes the lobby FSM,
// returning any lobby states entered as a result.
func (r *Room) SetReady(playerID types.PlayerId, ready bool) ([]types.LobbyState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.memberByID[playerID]
	if !ok {
		return nil, apperr.New(apperr.CodeNotInRoom, "player is not a member of this room")
	}
	r.members[idx].IsReady = ready
	r.touch()
	return r.recomputeLobbyStateLocked(), nil
}

// AllReady reports whether every current member is ready.
func (r *Room) AllReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allReadyLocked()
}

func (r *Room) allReadyLocked() bool {
	if len(r.members) == 0 {
		return false
	}
	for _, m := range r.members {
		if !m.IsReady {
			return false
		}
	}
	return true
}

// ReadyPlayerIDs returns the ids of every currently-ready member.
func (r *Room) ReadyPlayerIDs() []types.PlayerId {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.PlayerId
	for _, m := range r.members {
		if m.IsReady {
			out = append(out, m.Id)
		}
	}
	return out
}

// Park detaches a player's session reference, marks them pending
// reconnection, and leaves them counted against MaxPlayers (spec.md §4.8
// step 2-3).
func (r *Room) Park(playerID types.PlayerId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.memberByID[playerID]
	if !ok {
		return
	}
	r.members[idx].SessionRef = ""
	r.pendingReconnects.Insert(playerID)
	metrics.ParkedPlayers.Inc()
}

// Resume reattaches a reconnecting player's session reference, clearing its
// pending-reconnect status (spec.md §4.8 step 4).
func (r *Room) Resume(playerID types.PlayerId, sessionID types.SessionId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.memberByID[playerID]
	if !ok {
		return apperr.New(apperr.CodeNotInRoom, "player is not a member of this room")
	}
	if r.members[idx].SessionRef != "" {
		return apperr.New(apperr.CodeReconnectionFailed, "player already has a live session")
	}
	r.members[idx].SessionRef = sessionID
	if r.pendingReconnects.Has(playerID) {
		r.pendingReconnects.Delete(playerID)
		metrics.ParkedPlayers.Dec()
	}
	r.touch()
	return nil
}

// HasPendingReconnect reports whether any player is currently parked.
func (r *Room) HasPendingReconnect() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingReconnects.Len() > 0
}

// CurrentSeq exposes the event log's latest sequence number for snapshots.
func (r *Room) CurrentSeq() uint64 {
	return r.EventLog.CurrentSeq()
}

func (r *Room) logInfo(msg string, fields ...zap.Field) {
	logging.Info(logCtx(r.Id), msg, fields...)
}

// Package registry is the authoritative map of live rooms, indexed by both
// RoomId and (gameName, RoomCode) (spec.md §4.3). Lock discipline: the
// registry's own lock is always acquired before any individual room's lock,
// never the reverse, and no registry method holds its lock across a call
// into a room that might itself suspend.
package registry

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/riftsignal/signalserver/internal/apperr"
	"github.com/riftsignal/signalserver/internal/logging"
	"github.com/riftsignal/signalserver/internal/metrics"
	"github.com/riftsignal/signalserver/internal/room"
	"github.com/riftsignal/signalserver/internal/types"
	"go.uber.org/zap"
)

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const maxCodeAllocationAttempts = 10

// gameRooms indexes the rooms belonging to one gameName by code.
type gameRooms struct {
	byCode map[types.RoomCode]*room.Room
}

// Registry is the process-wide room directory.
type Registry struct {
	mu   sync.RWMutex
	byID map[types.RoomId]*room.Room
	byGame map[string]*gameRooms

	maxRoomsPerGame   int
	eventBufferSize   int
	countdownDuration time.Duration
	codeLength        int
}

// Config bundles the options Registry needs from the server's Config.
type Config struct {
	MaxRoomsPerGame   int
	EventBufferSize   int
	CountdownDuration time.Duration
	RoomCodeLength    int
}

func New(cfg Config) *Registry {
	return &Registry{
		byID:              make(map[types.RoomId]*room.Room),
		byGame:            make(map[string]*gameRooms),
		maxRoomsPerGame:   cfg.MaxRoomsPerGame,
		eventBufferSize:   cfg.EventBufferSize,
		countdownDuration: cfg.CountdownDuration,
		codeLength:        cfg.RoomCodeLength,
	}
}

// CreateRoomParams mirrors the JoinRoom create path's fields (spec.md §4.3).
type CreateRoomParams struct {
	GameName          string
	Creator           *types.Player
	MaxPlayers        int
	SupportsAuthority bool
	RelayType         types.RelayType
	AppContext        *types.AppContext
}

// CreateRoom allocates a fresh room code, constructs the Room, and inserts
// the creator as its first member.
func (r *Registry) CreateRoom(params CreateRoomParams) (*room.Room, error) {
	r.mu.Lock()
	g, ok := r.byGame[params.GameName]
	if !ok {
		g = &gameRooms{byCode: make(map[types.RoomCode]*room.Room)}
		r.byGame[params.GameName] = g
	}
	if params.AppContext != nil && params.AppContext.Quotas.MaxRooms > 0 {
		count := 0
		for _, rm := range g.byCode {
			if rm.AppContext != nil && rm.AppContext.AppId == params.AppContext.AppId {
				count++
			}
		}
		if count >= params.AppContext.Quotas.MaxRooms {
			r.mu.Unlock()
			return nil, apperr.New(apperr.CodeMaxRoomsPerGameExceeded, "app has reached its room quota for this game")
		}
	}
	if r.maxRoomsPerGame > 0 && len(g.byCode) >= r.maxRoomsPerGame {
		r.mu.Unlock()
		return nil, apperr.New(apperr.CodeMaxRoomsPerGameExceeded, "game has reached its maximum room count")
	}

	code, err := r.allocateCodeLocked(g)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}

	id := types.NewRoomId()
	rm := room.New(id, code, room.Config{
		GameName:          params.GameName,
		MaxPlayers:        params.MaxPlayers,
		SupportsAuthority: params.SupportsAuthority,
		RelayType:         params.RelayType,
		AppContext:        params.AppContext,
		EventBufferSize:   r.eventBufferSize,
		CountdownDuration: r.countdownDuration,
	})

	r.byID[id] = rm
	g.byCode[code] = rm
	r.mu.Unlock()

	if _, err := rm.AddMember(params.Creator); err != nil {
		// Unreachable in practice (fresh room, fresh player) but handled
		// defensively since AddMember can fail on a race with MaxPlayers=0.
		r.mu.Lock()
		delete(r.byID, id)
		delete(g.byCode, code)
		r.mu.Unlock()
		return nil, err
	}

	metrics.ActiveRooms.WithLabelValues(params.GameName).Inc()
	logging.Info(context.Background(), "room created",
		zap.String("room_id", string(id)), zap.String("game_name", params.GameName), zap.String("room_code", string(code)))
	return rm, nil
}

// allocateCodeLocked picks a fresh RoomCode not already in use for this
// game, retrying on collision up to maxCodeAllocationAttempts times.
// Callers hold r.mu already.
func (r *Registry) allocateCodeLocked(g *gameRooms) (types.RoomCode, error) {
	for i := 0; i < maxCodeAllocationAttempts; i++ {
		code, err := randomRoomCode(r.codeLength)
		if err != nil {
			return "", apperr.Wrap(apperr.CodeInvalidMessage, "room code generation failed", err)
		}
		if _, exists := g.byCode[code]; !exists {
			return code, nil
		}
	}
	return "", apperr.New(apperr.CodeInvalidMessage, "room code allocation exhausted")
}

func randomRoomCode(length int) (types.RoomCode, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = roomCodeAlphabet[int(b)%len(roomCodeAlphabet)]
	}
	return types.RoomCode(out), nil
}

// JoinRoom looks up a room by (gameName, code) and adds player to it,
// returning any lobby states entered as a result.
func (r *Registry) JoinRoom(gameName string, code types.RoomCode, player *types.Player) (*room.Room, []types.LobbyState, error) {
	r.mu.RLock()
	g, ok := r.byGame[gameName]
	var rm *room.Room
	if ok {
		rm, ok = g.byCode[code]
	}
	r.mu.RUnlock()

	if !ok {
		return nil, nil, apperr.New(apperr.CodeRoomNotFound, "no room matches that game and code")
	}

	entered, err := rm.AddMember(player)
	if err != nil {
		return nil, nil, err
	}
	metrics.RoomPlayers.WithLabelValues(string(rm.Id)).Set(float64(rm.MemberCount()))
	return rm, entered, nil
}

// LeaveRoom removes player from roomID. If the room becomes empty it is
// left in place for the maintenance scheduler's empty-room sweep rather
// than destroyed synchronously (spec.md §4.3, §4.10). Returns any lobby
// states entered as a result of the departure.
func (r *Registry) LeaveRoom(roomID types.RoomId, playerID types.PlayerId) ([]types.LobbyState, error) {
	rm, ok := r.Lookup(roomID)
	if !ok {
		return nil, apperr.New(apperr.CodeRoomNotFound, "room not found")
	}
	_, entered := rm.RemoveMember(playerID)
	return entered, nil
}

// Lookup returns the room for roomID, if any.
func (r *Registry) Lookup(roomID types.RoomId) (*room.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.byID[roomID]
	return rm, ok
}

// LookupByCode returns the room for (gameName, code), if any.
func (r *Registry) LookupByCode(gameName string, code types.RoomCode) (*room.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.byGame[gameName]
	if !ok {
		return nil, false
	}
	rm, ok := g.byCode[code]
	return rm, ok
}

// DestroyRoom removes a room from both indices, called by the maintenance
// scheduler once a room is empty past its timeout or inactive past its
// inactivity timeout (spec.md §4.10).
func (r *Registry) DestroyRoom(roomID types.RoomId) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.byID[roomID]
	if !ok {
		return false
	}
	delete(r.byID, roomID)
	if g, ok := r.byGame[rm.GameName]; ok {
		delete(g.byCode, rm.Code)
		if len(g.byCode) == 0 {
			delete(r.byGame, rm.GameName)
		}
	}
	metrics.ActiveRooms.WithLabelValues(rm.GameName).Dec()
	return true
}

// AllRooms returns a snapshot of every live room, for the maintenance
// scheduler's sweeps.
func (r *Registry) AllRooms() []*room.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*room.Room, 0, len(r.byID))
	for _, rm := range r.byID {
		out = append(out, rm)
	}
	return out
}


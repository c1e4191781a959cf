package reconnect

import (
	"errors"
	"sync"
	"time"

	"github.com/riftsignal/signalserver/internal/apperr"
	"github.com/riftsignal/signalserver/internal/metrics"
	"github.com/riftsignal/signalserver/internal/types"
)

// Entry is one parked player's reconnection grace window.
type Entry struct {
	PlayerId     types.PlayerId
	RoomId       types.RoomId
	Token        string
	LastEventSeq uint64
	ExpiresAt    time.Time
}

type key struct {
	playerID types.PlayerId
	roomID   types.RoomId
}

// Store holds one pending entry per (playerId, roomId), giving O(1) lookup
// and single-use consumption as spec.md §4.8 requires.
type Store struct {
	signer *TokenSigner
	ttl    time.Duration

	mu      sync.Mutex
	entries map[key]Entry
}

func NewStore(signer *TokenSigner, ttl time.Duration) *Store {
	return &Store{signer: signer, ttl: ttl, entries: make(map[key]Entry)}
}

// Issue generates a fresh token for a freshly-parked player and records it.
func (s *Store) Issue(playerID types.PlayerId, roomID types.RoomId, lastEventSeq uint64) (Entry, error) {
	token, expiresAt, err := s.signer.Sign(playerID, roomID, lastEventSeq, s.ttl)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{PlayerId: playerID, RoomId: roomID, Token: token, LastEventSeq: lastEventSeq, ExpiresAt: expiresAt}

	s.mu.Lock()
	s.entries[key{playerID, roomID}] = e
	s.mu.Unlock()

	return e, nil
}

// Consume validates and removes the entry for (playerId, roomId, token) in
// one step, so two concurrent Reconnect attempts cannot both succeed.
func (s *Store) Consume(playerID types.PlayerId, roomID types.RoomId, token string) (Entry, error) {
	claims, err := s.signer.verify(token)
	if err != nil {
		if errors.Is(err, ErrExpired) {
			s.mu.Lock()
			delete(s.entries, key{playerID, roomID})
			s.mu.Unlock()
			metrics.ReconnectionsTotal.WithLabelValues("expired").Inc()
			return Entry{}, apperr.New(apperr.CodeReconnectionExpired, "reconnection window has elapsed")
		}
		metrics.ReconnectionsTotal.WithLabelValues("invalid_token").Inc()
		return Entry{}, apperr.Wrap(apperr.CodeReconnectionTokenInvalid, "reconnection token invalid", err)
	}
	if claims.PlayerId != playerID || claims.RoomId != roomID {
		metrics.ReconnectionsTotal.WithLabelValues("invalid_token").Inc()
		return Entry{}, apperr.New(apperr.CodeReconnectionTokenInvalid, "token does not match player/room")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{playerID, roomID}
	e, ok := s.entries[k]
	if !ok || e.Token != token {
		metrics.ReconnectionsTotal.WithLabelValues("invalid_token").Inc()
		return Entry{}, apperr.New(apperr.CodeReconnectionTokenInvalid, "no pending reconnection for player")
	}
	if time.Now().After(e.ExpiresAt) {
		delete(s.entries, k)
		metrics.ReconnectionsTotal.WithLabelValues("expired").Inc()
		return Entry{}, apperr.New(apperr.CodeReconnectionExpired, "reconnection window has elapsed")
	}

	delete(s.entries, k)
	metrics.ReconnectionsTotal.WithLabelValues("success").Inc()
	return e, nil
}

// Cancel removes a pending entry without validating a token, used when a
// player is removed from the room by some other path while still parked.
func (s *Store) Cancel(playerID types.PlayerId, roomID types.RoomId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key{playerID, roomID})
}

// SweepExpired removes every entry whose ExpiresAt has passed, invoking
// onExpire for each so the caller can remove the corresponding player from
// its room and broadcast PlayerLeft (spec.md §4.8 expiration semantics).
func (s *Store) SweepExpired(now time.Time, onExpire func(playerID types.PlayerId, roomID types.RoomId)) int {
	s.mu.Lock()
	var expired []key
	for k, e := range s.entries {
		if now.After(e.ExpiresAt) {
			expired = append(expired, k)
			delete(s.entries, k)
		}
	}
	s.mu.Unlock()

	for _, k := range expired {
		onExpire(k.playerID, k.roomID)
	}
	return len(expired)
}

// HasPending reports whether a room still has any parked players awaiting
// reconnection, used to decide when a room's event buffer can be cleared.
func (s *Store) HasPending(roomID types.RoomId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if k.roomID == roomID {
			return true
		}
	}
	return false
}

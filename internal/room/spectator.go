package room

import (
	"time"

	"github.com/riftsignal/signalserver/internal/apperr"
	"github.com/riftsignal/signalserver/internal/metrics"
	"github.com/riftsignal/signalserver/internal/types"
)

// AddSpectator registers an observer; spectators never count against
// MaxPlayers and have no ready/authority eligibility (spec.md §3, §6).
func (r *Room) AddSpectator(spectator *types.Spectator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.spectators[spectator.Id]; exists {
		return apperr.New(apperr.CodeAlreadyInRoom, "spectator already observing this room")
	}
	spectator.JoinedAt = time.Now()
	r.spectators[spectator.Id] = spectator
	metrics.RoomSpectators.WithLabelValues(string(r.Id)).Set(float64(len(r.spectators)))
	return nil
}

// RemoveSpectator drops an observer from the room.
func (r *Room) RemoveSpectator(spectatorID types.SpectatorId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.spectators, spectatorID)
	metrics.RoomSpectators.WithLabelValues(string(r.Id)).Set(float64(len(r.spectators)))
}

// Spectators returns a snapshot of current observers.
func (r *Room) Spectators() []types.Spectator {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Spectator, 0, len(r.spectators))
	for _, s := range r.spectators {
		out = append(out, *s)
	}
	return out
}

// SpectatorCount reports the current number of observers.
func (r *Room) SpectatorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.spectators)
}

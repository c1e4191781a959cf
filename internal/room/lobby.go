package room

import (
	"time"

	"github.com/riftsignal/signalserver/internal/transport"
	"github.com/riftsignal/signalserver/internal/types"
)

// recomputeLobbyStateLocked applies spec.md §4.4's transition rules given
// the room's current membership/ready state. Callers hold r.mu already.
// It returns the sequence of states entered, in order, so the caller can
// broadcast LobbyStateChanged (and GameStarting) once the lock is released.
func (r *Room) recomputeLobbyStateLocked() []types.LobbyState {
	var entered []types.LobbyState

	switch r.LobbyState {
	case types.LobbyStateWaiting:
		if r.allReadyLocked() && len(r.members) >= 2 {
			r.LobbyState = types.LobbyStateLobby
			entered = append(entered, types.LobbyStateLobby)
			if r.countdownDur <= 0 {
				r.LobbyState = types.LobbyStateFinalized
				entered = append(entered, types.LobbyStateFinalized)
			}
		}
	case types.LobbyStateLobby:
		if !r.allReadyLocked() || len(r.members) < 2 {
			r.stopCountdownLocked()
			r.LobbyState = types.LobbyStateWaiting
			entered = append(entered, types.LobbyStateWaiting)
		}
	case types.LobbyStateFinalized:
		if len(r.members) == 0 {
			r.LobbyState = types.LobbyStateWaiting
			entered = append(entered, types.LobbyStateWaiting)
		}
	}

	return entered
}

func (r *Room) stopCountdownLocked() {
	if r.countdown != nil {
		r.countdown.Stop()
		r.countdown = nil
	}
}

// StartCountdown arms the Lobby->Finalized timer; onFire is invoked from a
// separate goroutine once the countdown elapses without the room having
// left the Lobby state in the meantime. Only used when countdownDur > 0 —
// the zero-duration case is resolved synchronously in
// recomputeLobbyStateLocked.
func (r *Room) StartCountdown(onFire func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LobbyState != types.LobbyStateLobby || r.countdownDur <= 0 {
		return
	}
	r.stopCountdownLocked()
	r.countdown = time.AfterFunc(r.countdownDur, onFire)
}

// FinalizeIfStillLobby completes the Lobby->Finalized transition if the
// room is still in Lobby with everyone ready (the countdown may have raced
// with a departure). Returns true if it finalized.
func (r *Room) FinalizeIfStillLobby() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LobbyState != types.LobbyStateLobby || !r.allReadyLocked() || len(r.members) < 2 {
		return false
	}
	r.LobbyState = types.LobbyStateFinalized
	return true
}

// PeerConnectionRoster returns the player IDs GameStarting should list.
func (r *Room) PeerConnectionRoster() []types.PlayerId {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.PlayerId, len(r.members))
	for i, m := range r.members {
		out[i] = m.Id
	}
	return out
}

// ResetLobby forces the room back to Waiting, used by an explicit reset
// operation or when the last member leaves.
func (r *Room) ResetLobby() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopCountdownLocked()
	r.LobbyState = types.LobbyStateWaiting
}

// BroadcastLobbyTransitions sends LobbyStateChanged for every state entered
// (as returned by AddMember/RemoveMember/SetReady), plus GameStarting when
// Finalized is among them, and arms the countdown timer when the room
// enters Lobby with a positive countdown duration (spec.md §4.4).
func (r *Room) BroadcastLobbyTransitions(states []types.LobbyState) []SlowConsumer {
	var slow []SlowConsumer
	for _, state := range states {
		allReady := state == types.LobbyStateLobby || state == types.LobbyStateFinalized
		if env, err := lobbyChangedEnvelope(state, r.ReadyPlayerIDs(), allReady); err == nil {
			slow = append(slow, r.Broadcast(env, AllMembers())...)
		}

		switch state {
		case types.LobbyStateFinalized:
			if env, err := gameStartingEnvelope(r.PeerConnectionRoster()); err == nil {
				slow = append(slow, r.Broadcast(env, AllMembers())...)
			}
		case types.LobbyStateLobby:
			r.StartCountdown(func() {
				if r.FinalizeIfStillLobby() {
					r.BroadcastLobbyTransitions([]types.LobbyState{types.LobbyStateFinalized})
				}
			})
		}
	}
	return slow
}

func lobbyChangedEnvelope(state types.LobbyState, readyPlayers []types.PlayerId, allReady bool) (transport.Envelope, error) {
	return transport.NewEnvelope(transport.TypeLobbyStateChanged, struct {
		LobbyState   types.LobbyState `json:"lobbyState"`
		ReadyPlayers []types.PlayerId `json:"readyPlayers"`
		AllReady     bool             `json:"allReady"`
	}{LobbyState: state, ReadyPlayers: readyPlayers, AllReady: allReady})
}

func gameStartingEnvelope(roster []types.PlayerId) (transport.Envelope, error) {
	return transport.NewEnvelope(transport.TypeGameStarting, struct {
		PeerConnections []types.PlayerId `json:"peerConnections"`
	}{PeerConnections: roster})
}

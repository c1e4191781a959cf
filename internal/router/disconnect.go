package router

import (
	"time"

	"github.com/riftsignal/signalserver/internal/room"
	"github.com/riftsignal/signalserver/internal/transport"
	"github.com/riftsignal/signalserver/internal/types"
)

type playerDisconnectedPayload struct {
	PlayerId types.PlayerId `json:"playerId"`
	// ReconnectionToken and ExpiresAt are only populated in the copy
	// delivered to the departing session's own outbound queue — every
	// other recipient gets the bare playerId (spec.md §6). Mirrors the
	// per-recipient AuthorityChanged pattern in room/broadcast.go.
	ReconnectionToken string    `json:"reconnectionToken,omitempty"`
	ExpiresAt         time.Time `json:"expiresAt,omitempty"`
}

type spectatorDisconnectedPayload struct {
	SpectatorId types.SpectatorId `json:"spectatorId"`
}

// HandleDisconnect runs spec.md §4.8's on-disconnect bookkeeping for a
// session that left without sending LeaveRoom/LeaveSpectator first — a
// dropped connection, a hard error, or a forced close. Called from
// ReadPump's defer, before the session itself finishes closing, so its own
// outbound queue can still receive one best-effort reconnection token.
func (rt *Router) HandleDisconnect(sess SessionContext) {
	roomID := sess.RoomId()
	if roomID == "" {
		return
	}
	rm, ok := rt.Registry.Lookup(roomID)
	if !ok {
		return
	}
	rm.UnbindSession(sess.SessionId())

	if specID := sess.SpectatorId(); specID != "" {
		rm.RemoveSpectator(specID)
		if env, err := transport.NewEnvelope(transport.TypeSpectatorDisconnected, spectatorDisconnectedPayload{SpectatorId: specID}); err == nil {
			rt.closeSlowConsumers(rm.Broadcast(env, room.AllMembers()))
		}
		return
	}

	playerID := sess.PlayerId()
	if playerID == "" {
		return
	}

	if !rt.Config.Server.EnableReconnection {
		rt.removePlayerAsLeave(rm, playerID)
		return
	}

	rm.Park(playerID)
	entry, err := rt.Reconnect.Issue(playerID, roomID, rm.CurrentSeq())
	if err != nil {
		// Token issuance failed (e.g. signer misconfigured): fall back to
		// an outright removal rather than stranding the player parked
		// forever with no way back in.
		rt.removePlayerAsLeave(rm, playerID)
		return
	}

	if self, err := transport.NewEnvelope(transport.TypePlayerDisconnected, playerDisconnectedPayload{
		PlayerId:          playerID,
		ReconnectionToken: entry.Token,
		ExpiresAt:         entry.ExpiresAt,
	}); err == nil {
		sess.Send(self)
	}
	if announce, err := transport.NewEnvelope(transport.TypePlayerDisconnected, playerDisconnectedPayload{PlayerId: playerID}); err == nil {
		rt.closeSlowConsumers(rm.Broadcast(announce, room.AllExcept(playerID)))
	}
}

func (rt *Router) removePlayerAsLeave(rm *room.Room, playerID types.PlayerId) {
	entered, err := rt.Registry.LeaveRoom(rm.Id, playerID)
	if err != nil {
		return
	}
	rt.Reconnect.Cancel(playerID, rm.Id)
	if left, err := transport.NewEnvelope(transport.TypePlayerLeft, playerLeftPayload{PlayerId: playerID}); err == nil {
		rt.closeSlowConsumers(rm.Broadcast(left, room.AllMembers()))
	}
	rt.closeSlowConsumers(rm.BroadcastLobbyTransitions(entered))
	if rm.SupportsAuthority {
		rt.closeSlowConsumers(rm.BroadcastAuthorityChanged(rm.CurrentAuthority()))
	}
}

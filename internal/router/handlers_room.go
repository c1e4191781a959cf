package router

import (
	"context"
	"time"

	"github.com/riftsignal/signalserver/internal/apperr"
	"github.com/riftsignal/signalserver/internal/registry"
	"github.com/riftsignal/signalserver/internal/room"
	"github.com/riftsignal/signalserver/internal/transport"
	"github.com/riftsignal/signalserver/internal/types"
)

type joinRoomPayload struct {
	GameName          string  `json:"gameName"`
	PlayerName        string  `json:"playerName"`
	RoomCode          *string `json:"roomCode,omitempty"`
	MaxPlayers        int     `json:"maxPlayers,omitempty"`
	SupportsAuthority bool    `json:"supportsAuthority,omitempty"`
	RelayType         string  `json:"relayType,omitempty"`
}

type playerJoinedPayload struct {
	Player types.Player `json:"player"`
}

type playerLeftPayload struct {
	PlayerId types.PlayerId `json:"playerId"`
}

// bindRecipient registers sess as the live delivery target for its
// SessionId if the concrete session type implements room.Recipient — true
// for every real session, narrowed here because SessionContext itself
// doesn't need to expose TryEnqueue to handlers.
func bindRecipient(rm *room.Room, sess SessionContext) {
	if rec, ok := sess.(room.Recipient); ok {
		rm.BindSession(sess.SessionId(), rec)
	}
}

func (rt *Router) handleJoinRoom(ctx context.Context, sess SessionContext, env transport.Envelope) error {
	if sess.RoomId() != "" {
		return apperr.New(apperr.CodeAlreadyInRoom, "session already belongs to a room")
	}

	payload, err := transport.DecodePayload[joinRoomPayload](env)
	if err != nil {
		return apperr.Wrap(apperr.CodeInvalidMessage, "malformed JoinRoom payload", err)
	}
	if err := rt.validateGameName(payload.GameName); err != nil {
		return err
	}
	if err := rt.validatePlayerName(payload.PlayerName); err != nil {
		return err
	}

	ip := sess.RemoteAddr()
	player := &types.Player{
		Id:         types.NewPlayerId(),
		Name:       payload.PlayerName,
		JoinedAt:   time.Now(),
		SessionRef: sess.SessionId(),
	}

	var rm *room.Room
	var replyType transport.MessageType
	var entered []types.LobbyState

	if payload.RoomCode != nil && *payload.RoomCode != "" {
		if !rt.RateLimit.CheckRoomJoin(ctx, ip) {
			return apperr.New(apperr.CodeRateLimitExceeded, "too many join attempts from this address")
		}
		rm, entered, err = rt.Registry.JoinRoom(payload.GameName, types.RoomCode(*payload.RoomCode), player)
		if err != nil {
			return err
		}
		replyType = transport.TypeRoomJoined
	} else {
		if !rt.RateLimit.CheckRoomCreate(ctx, ip) {
			return apperr.New(apperr.CodeRateLimitExceeded, "too many room creations from this address")
		}
		relay := types.RelayType(payload.RelayType)
		if relay == "" {
			relay = types.RelayTypeWebRTC
		}
		rm, err = rt.Registry.CreateRoom(registry.CreateRoomParams{
			GameName:          payload.GameName,
			Creator:           player,
			MaxPlayers:        rt.clampMaxPlayers(payload.MaxPlayers),
			SupportsAuthority: payload.SupportsAuthority,
			RelayType:         relay,
			AppContext:        sess.AppContext(),
		})
		if err != nil {
			return err
		}
		replyType = transport.TypeRoomCreated
	}

	sess.SetPlayerId(player.Id)
	sess.SetRoomId(rm.Id)
	bindRecipient(rm, sess)

	snapshot := rm.SnapshotFor(player.Id)
	reply, err := transport.NewEnvelope(replyType, snapshot)
	if err != nil {
		return err
	}
	sess.Send(reply)

	if replyType == transport.TypeRoomJoined {
		if joined, err := transport.NewEnvelope(transport.TypePlayerJoined, playerJoinedPayload{Player: *player}); err == nil {
			rt.closeSlowConsumers(rm.Broadcast(joined, room.AllExcept(player.Id)))
		}
		rt.closeSlowConsumers(rm.BroadcastLobbyTransitions(entered))
	}
	return nil
}

func (rt *Router) handleLeaveRoom(_ context.Context, sess SessionContext, _ transport.Envelope) error {
	rm, err := rt.roomFor(sess)
	if err != nil {
		return err
	}
	playerID := sess.PlayerId()

	entered, err := rt.Registry.LeaveRoom(rm.Id, playerID)
	if err != nil {
		return err
	}
	rm.UnbindSession(sess.SessionId())
	rt.Reconnect.Cancel(playerID, rm.Id)

	if left, err := transport.NewEnvelope(transport.TypePlayerLeft, playerLeftPayload{PlayerId: playerID}); err == nil {
		rt.closeSlowConsumers(rm.Broadcast(left, room.AllMembers()))
	}
	rt.closeSlowConsumers(rm.BroadcastLobbyTransitions(entered))

	if rm.SupportsAuthority {
		rt.closeSlowConsumers(rm.BroadcastAuthorityChanged(rm.CurrentAuthority()))
	}

	reply, err := transport.NewEnvelope(transport.TypeRoomLeft, nil)
	if err == nil {
		sess.Send(reply)
	}
	sess.SetRoomId("")
	sess.SetPlayerId("")
	return nil
}

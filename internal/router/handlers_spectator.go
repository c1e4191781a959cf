package router

import (
	"context"
	"time"

	"github.com/riftsignal/signalserver/internal/apperr"
	"github.com/riftsignal/signalserver/internal/room"
	"github.com/riftsignal/signalserver/internal/transport"
	"github.com/riftsignal/signalserver/internal/types"
)

type joinAsSpectatorPayload struct {
	GameName string `json:"gameName"`
	RoomCode string `json:"roomCode"`
	Name     string `json:"name"`
}

type newSpectatorJoinedPayload struct {
	Spectator types.Spectator `json:"spectator"`
}

func (rt *Router) handleJoinAsSpectator(_ context.Context, sess SessionContext, env transport.Envelope) error {
	if sess.RoomId() != "" {
		return apperr.New(apperr.CodeAlreadyInRoom, "session already belongs to a room")
	}
	payload, err := transport.DecodePayload[joinAsSpectatorPayload](env)
	if err != nil {
		return apperr.Wrap(apperr.CodeInvalidMessage, "malformed JoinAsSpectator payload", err)
	}
	if err := rt.validateGameName(payload.GameName); err != nil {
		return err
	}
	if err := rt.validatePlayerName(payload.Name); err != nil {
		return err
	}

	rm, ok := rt.Registry.LookupByCode(payload.GameName, types.RoomCode(payload.RoomCode))
	if !ok {
		fail, _ := transport.NewEnvelope(transport.TypeSpectatorJoinFailed, struct {
			Message string `json:"message"`
		}{Message: "no room matches that game and code"})
		sess.Send(fail)
		return nil
	}

	spectator := &types.Spectator{
		Id:         types.NewSpectatorId(),
		Name:       payload.Name,
		JoinedAt:   time.Now(),
		SessionRef: sess.SessionId(),
	}
	if err := rm.AddSpectator(spectator); err != nil {
		return err
	}

	sess.SetRoomId(rm.Id)
	sess.SetSpectatorId(spectator.Id)
	bindRecipient(rm, sess)

	reply, err := transport.NewEnvelope(transport.TypeSpectatorJoined, rm.SnapshotFor(""))
	if err != nil {
		return err
	}
	sess.Send(reply)

	if announce, err := transport.NewEnvelope(transport.TypeNewSpectatorJoined, newSpectatorJoinedPayload{Spectator: *spectator}); err == nil {
		rt.closeSlowConsumers(rm.Broadcast(announce, room.AllMembers()))
	}
	return nil
}

func (rt *Router) handleLeaveSpectator(_ context.Context, sess SessionContext, _ transport.Envelope) error {
	rm, err := rt.roomFor(sess)
	if err != nil {
		return err
	}
	rm.RemoveSpectator(sess.SpectatorId())
	rm.UnbindSession(sess.SessionId())

	reply, err := transport.NewEnvelope(transport.TypeSpectatorLeft, nil)
	if err == nil {
		sess.Send(reply)
	}
	sess.SetRoomId("")
	sess.SetSpectatorId("")
	return nil
}

package router

import (
	"context"

	"github.com/riftsignal/signalserver/internal/apperr"
	"github.com/riftsignal/signalserver/internal/room"
	"github.com/riftsignal/signalserver/internal/transport"
	"github.com/riftsignal/signalserver/internal/types"
)

type reconnectPayload struct {
	RoomId   types.RoomId   `json:"roomId"`
	PlayerId types.PlayerId `json:"playerId"`
	Token    string         `json:"token"`
}

type reconnectedPayload struct {
	Snapshot        room.Snapshot `json:"snapshot"`
	MissedEventCount int          `json:"missedEventCount"`
}

type playerReconnectedPayload struct {
	PlayerId types.PlayerId `json:"playerId"`
}

// handleReconnect implements spec.md §4.8's resume path: validate the
// single-use token, reattach the player's session, and replay every
// retained event since the player's last observed sequence number before
// any new broadcast can interleave with the replay.
func (rt *Router) handleReconnect(_ context.Context, sess SessionContext, env transport.Envelope) error {
	if sess.RoomId() != "" {
		return apperr.New(apperr.CodeAlreadyInRoom, "session already belongs to a room")
	}
	payload, err := transport.DecodePayload[reconnectPayload](env)
	if err != nil {
		return apperr.Wrap(apperr.CodeInvalidMessage, "malformed Reconnect payload", err)
	}

	entry, err := rt.Reconnect.Consume(payload.PlayerId, payload.RoomId, payload.Token)
	if err != nil {
		rt.sendReconnectFailed(sess, err)
		return nil
	}

	rm, ok := rt.Registry.Lookup(payload.RoomId)
	if !ok {
		rt.sendReconnectFailed(sess, apperr.New(apperr.CodeRoomNotFound, "room no longer exists"))
		return nil
	}
	if err := rm.Resume(payload.PlayerId, sess.SessionId()); err != nil {
		rt.sendReconnectFailed(sess, err)
		return nil
	}

	sess.SetPlayerId(payload.PlayerId)
	sess.SetRoomId(rm.Id)
	bindRecipient(rm, sess)

	missed := rm.EventLog.Since(entry.LastEventSeq)
	reply, err := transport.NewEnvelope(transport.TypeReconnected, reconnectedPayload{
		Snapshot:         rm.SnapshotFor(payload.PlayerId),
		MissedEventCount: len(missed),
	})
	if err == nil {
		sess.Send(reply)
	}
	for _, evt := range missed {
		sess.Send(evt.Envelope)
	}

	if announce, err := transport.NewEnvelope(transport.TypePlayerReconnected, playerReconnectedPayload{PlayerId: payload.PlayerId}); err == nil {
		rt.closeSlowConsumers(rm.Broadcast(announce, room.AllExcept(payload.PlayerId)))
	}
	return nil
}

func (rt *Router) sendReconnectFailed(sess SessionContext, cause error) {
	env, err := transport.NewEnvelope(transport.TypeReconnectionFailed, struct {
		Message   string      `json:"message"`
		ErrorCode apperr.Code `json:"errorCode"`
	}{Message: cause.Error(), ErrorCode: apperr.CodeOf(cause)})
	if err != nil {
		return
	}
	sess.Send(env)
}

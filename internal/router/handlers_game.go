package router

import (
	"context"
	"encoding/json"

	"github.com/riftsignal/signalserver/internal/apperr"
	"github.com/riftsignal/signalserver/internal/room"
	"github.com/riftsignal/signalserver/internal/transport"
	"github.com/riftsignal/signalserver/internal/types"
)

type gameDataInboundPayload struct {
	Data json.RawMessage `json:"data"`
}

type gameDataOutboundPayload struct {
	FromPlayer types.PlayerId  `json:"fromPlayer"`
	Data       json.RawMessage `json:"data"`
}

// handleGameData relays an opaque application payload to the rest of the
// room. The server never inspects Data — it is forwarded byte for byte
// (spec.md §4.2, §6).
func (rt *Router) handleGameData(_ context.Context, sess SessionContext, env transport.Envelope) error {
	rm, err := rt.roomFor(sess)
	if err != nil {
		return err
	}
	payload, err := transport.DecodePayload[gameDataInboundPayload](env)
	if err != nil {
		return apperr.Wrap(apperr.CodeInvalidMessage, "malformed GameData payload", err)
	}
	out, err := transport.NewEnvelope(transport.TypeGameData, gameDataOutboundPayload{
		FromPlayer: sess.PlayerId(),
		Data:       payload.Data,
	})
	if err != nil {
		return err
	}
	rt.closeSlowConsumers(rm.Broadcast(out, room.AllExcept(sess.PlayerId())))
	return nil
}

type playerReadyPayload struct {
	Ready bool `json:"ready"`
}

func (rt *Router) handlePlayerReady(_ context.Context, sess SessionContext, env transport.Envelope) error {
	rm, err := rt.roomFor(sess)
	if err != nil {
		return err
	}
	payload, err := transport.DecodePayload[playerReadyPayload](env)
	if err != nil {
		return apperr.Wrap(apperr.CodeInvalidMessage, "malformed PlayerReady payload", err)
	}
	entered, err := rm.SetReady(sess.PlayerId(), payload.Ready)
	if err != nil {
		return err
	}
	rt.closeSlowConsumers(rm.BroadcastLobbyTransitions(entered))
	return nil
}

type authorityRequestPayload struct {
	Become bool `json:"become"`
}

type authorityResponsePayload struct {
	Granted         bool           `json:"granted"`
	AuthorityPlayer types.PlayerId `json:"authorityPlayer,omitempty"`
}

func (rt *Router) handleAuthorityRequest(_ context.Context, sess SessionContext, env transport.Envelope) error {
	rm, err := rt.roomFor(sess)
	if err != nil {
		return err
	}
	payload, err := transport.DecodePayload[authorityRequestPayload](env)
	if err != nil {
		return apperr.Wrap(apperr.CodeInvalidMessage, "malformed AuthorityRequest payload", err)
	}
	holder, granted, err := rm.RequestAuthority(sess.PlayerId(), payload.Become)
	if err != nil {
		return err
	}
	if granted {
		rt.closeSlowConsumers(rm.BroadcastAuthorityChanged(holder))
	}
	reply, err := transport.NewEnvelope(transport.TypeAuthorityResponse, authorityResponsePayload{
		Granted:         granted,
		AuthorityPlayer: holder,
	})
	if err != nil {
		return err
	}
	sess.Send(reply)
	return nil
}

type provideConnectionInfoPayload struct {
	TargetPlayer types.PlayerId  `json:"targetPlayer"`
	Payload      json.RawMessage `json:"payload"`
}

type connectionInfoOutboundPayload struct {
	FromPlayer types.PlayerId  `json:"fromPlayer"`
	Payload    json.RawMessage `json:"payload"`
}

// handleProvideConnectionInfo relays an opaque peer-connection payload
// (e.g. SDP/ICE candidates) directly to one other member; the server never
// interprets it (spec.md §3 Non-goals — no signaling-content awareness).
func (rt *Router) handleProvideConnectionInfo(_ context.Context, sess SessionContext, env transport.Envelope) error {
	rm, err := rt.roomFor(sess)
	if err != nil {
		return err
	}
	payload, err := transport.DecodePayload[provideConnectionInfoPayload](env)
	if err != nil {
		return apperr.Wrap(apperr.CodeInvalidMessage, "malformed ProvideConnectionInfo payload", err)
	}
	out, err := transport.NewEnvelope(transport.TypeProvideConnectionInfo, connectionInfoOutboundPayload{
		FromPlayer: sess.PlayerId(),
		Payload:    payload.Payload,
	})
	if err != nil {
		return err
	}
	if !rm.SendToPlayer(payload.TargetPlayer, out) {
		return apperr.New(apperr.CodeNotInRoom, "target player is not present in this room")
	}
	return nil
}

func (rt *Router) handlePing(_ context.Context, sess SessionContext, _ transport.Envelope) error {
	pong, err := transport.NewEnvelope(transport.TypePong, nil)
	if err != nil {
		return err
	}
	sess.Send(pong)
	return nil
}

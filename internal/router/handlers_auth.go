package router

import (
	"context"
	"crypto/subtle"

	"github.com/riftsignal/signalserver/internal/apperr"
	"github.com/riftsignal/signalserver/internal/transport"
	"github.com/riftsignal/signalserver/internal/types"
)

type authenticatePayload struct {
	AppId     string `json:"appId"`
	AppSecret string `json:"appSecret"`
}

type authenticatedPayload struct {
	SessionId  types.SessionId `json:"sessionId"`
	AppName    string          `json:"appName"`
	RateLimits types.AppQuotas `json:"rateLimits"`
}

// handleAuthenticate implements spec.md §4.1's in-band auth handshake: the
// first envelope on a connection that requires auth must be this one,
// matching one of security.authorizedApps[] by appId/appSecret.
func (rt *Router) handleAuthenticate(_ context.Context, sess SessionContext, env transport.Envelope) error {
	if sess.AppContext() != nil {
		return apperr.New(apperr.CodeProtocolViolation, "already authenticated")
	}

	payload, err := transport.DecodePayload[authenticatePayload](env)
	if err != nil {
		return apperr.Wrap(apperr.CodeInvalidMessage, "malformed Authenticate payload", err)
	}

	app, ok := rt.AppsByID[payload.AppId]
	if !ok || subtle.ConstantTimeCompare([]byte(app.AppSecret), []byte(payload.AppSecret)) != 1 {
		return apperr.New(apperr.CodeInvalidAppId, "unknown app id or secret mismatch")
	}

	quotas := types.AppQuotas{
		MaxRooms:           app.MaxRooms,
		MaxPlayersPerRoom:  app.MaxPlayersPerRoom,
		RateLimitPerMinute: app.RateLimitPerMinute,
	}
	sess.SetAppContext(&types.AppContext{
		AppId:   types.AppId(app.AppId),
		AppName: app.AppId,
		Quotas:  quotas,
	})
	sess.MarkAuthenticated()

	reply, err := transport.NewEnvelope(transport.TypeAuthenticated, authenticatedPayload{
		SessionId:  sess.SessionId(),
		AppName:    app.AppId,
		RateLimits: quotas,
	})
	if err != nil {
		return err
	}
	sess.Send(reply)
	return nil
}

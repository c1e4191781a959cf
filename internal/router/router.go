// Package router is the pure dispatcher of spec.md §4.2: given an active
// session and a decoded envelope, it validates the envelope against its
// per-type schema and calls the matching handler. It defines its own narrow
// SessionContext interface for what it needs from a session rather than
// importing internal/session, so the session package can import router
// (to drive dispatch) without creating an import cycle.
package router

import (
	"context"
	"time"

	"github.com/riftsignal/signalserver/internal/apperr"
	"github.com/riftsignal/signalserver/internal/config"
	"github.com/riftsignal/signalserver/internal/logging"
	"github.com/riftsignal/signalserver/internal/metrics"
	"github.com/riftsignal/signalserver/internal/ratelimit"
	"github.com/riftsignal/signalserver/internal/reconnect"
	"github.com/riftsignal/signalserver/internal/registry"
	"github.com/riftsignal/signalserver/internal/room"
	"github.com/riftsignal/signalserver/internal/transport"
	"github.com/riftsignal/signalserver/internal/types"
	"go.uber.org/zap"
)

// SessionContext is everything a handler needs from the session that
// received an envelope, without the router depending on *session.Session.
type SessionContext interface {
	SessionId() types.SessionId
	RemoteAddr() string
	State() types.SessionState

	AppContext() *types.AppContext
	SetAppContext(*types.AppContext)
	MarkAuthenticated()

	PlayerId() types.PlayerId
	SetPlayerId(types.PlayerId)
	RoomId() types.RoomId
	SetRoomId(types.RoomId)
	SpectatorId() types.SpectatorId
	SetSpectatorId(types.SpectatorId)

	// Send enqueues env to this session's own outbound queue, bypassing
	// room broadcast machinery — used for direct replies.
	Send(env transport.Envelope)
	Close(reason types.CloseReason)
}

// SlowConsumerCloser is the narrow hook a room.Broadcast's returned
// SlowConsumer list is fed through. Defined here rather than imported from
// internal/session for the same reason as SessionContext: session.Manager
// implements it and is handed in at construction, so router never imports
// session.
type SlowConsumerCloser interface {
	CloseSession(id types.SessionId, reason types.CloseReason)
}

// Router holds every collaborator a handler might need: the room registry,
// the reconnection store, the rate limiter, the validated config, and the
// hook for disconnecting sessions a broadcast found too slow to keep up.
type Router struct {
	Registry  *registry.Registry
	Reconnect *reconnect.Store
	RateLimit *ratelimit.Limiter
	Config    *config.Config
	Closer    SlowConsumerCloser
	AppsByID  map[string]config.AuthorizedApp
}

func New(reg *registry.Registry, recon *reconnect.Store, rl *ratelimit.Limiter, cfg *config.Config, closer SlowConsumerCloser) *Router {
	apps := make(map[string]config.AuthorizedApp, len(cfg.Security.AuthorizedApps))
	for _, a := range cfg.Security.AuthorizedApps {
		apps[a.AppId] = a
	}
	return &Router{Registry: reg, Reconnect: recon, RateLimit: rl, Config: cfg, Closer: closer, AppsByID: apps}
}

// closeSlowConsumers disconnects every session a broadcast found with a
// full outbound queue (spec.md §4.6's SlowConsumer policy).
func (rt *Router) closeSlowConsumers(slow []room.SlowConsumer) {
	for _, sc := range slow {
		rt.Closer.CloseSession(sc.SessionId, types.CloseReasonSlowConsumer)
	}
}

// Route validates env against its type's schema and dispatches to the
// matching handler. Unknown types and decode failures yield a non-fatal
// Error(InvalidMessage); the session stays open (spec.md §4.2, §7).
func (rt *Router) Route(ctx context.Context, sess SessionContext, env transport.Envelope) {
	start := time.Now()
	status := "ok"
	defer func() {
		metrics.MessageProcessingDuration.WithLabelValues(string(env.Type)).Observe(time.Since(start).Seconds())
		metrics.MessagesTotal.WithLabelValues(string(env.Type), status).Inc()
	}()

	if rt.Config.Security.RequireWebsocketAuth && sess.State() == types.SessionStatePendingAuth && env.Type != transport.TypeAuthenticate {
		status = "rejected"
		rt.sendError(sess, apperr.CodeAuthenticationRequired, "the first message on an authenticated connection must be Authenticate")
		return
	}

	// Every request from an authenticated session drains the app-global
	// bucket (spec.md §4.9), on top of whatever per-IP bucket a handler
	// checks for its own operation.
	if app := sess.AppContext(); app != nil {
		if !rt.RateLimit.CheckAppGlobal(ctx, string(app.AppId)) {
			status = "rejected"
			rt.sendError(sess, apperr.CodeRateLimitExceeded, "app rate limit exceeded")
			return
		}
	}

	handler, ok := dispatchTable[env.Type]
	if !ok {
		status = "rejected"
		rt.sendError(sess, apperr.CodeInvalidMessage, "unrecognized message type")
		return
	}

	if err := handler(rt, ctx, sess, env); err != nil {
		status = "error"
		rt.handleHandlerError(sess, env.Type, err)
	}
}

type handlerFunc func(rt *Router, ctx context.Context, sess SessionContext, env transport.Envelope) error

var dispatchTable = map[transport.MessageType]handlerFunc{
	transport.TypeAuthenticate:          (*Router).handleAuthenticate,
	transport.TypeJoinRoom:              (*Router).handleJoinRoom,
	transport.TypeLeaveRoom:             (*Router).handleLeaveRoom,
	transport.TypeGameData:              (*Router).handleGameData,
	transport.TypePlayerReady:           (*Router).handlePlayerReady,
	transport.TypeAuthorityRequest:      (*Router).handleAuthorityRequest,
	transport.TypeProvideConnectionInfo: (*Router).handleProvideConnectionInfo,
	transport.TypePing:                  (*Router).handlePing,
	transport.TypeReconnect:             (*Router).handleReconnect,
	transport.TypeJoinAsSpectator:       (*Router).handleJoinAsSpectator,
	transport.TypeLeaveSpectator:        (*Router).handleLeaveSpectator,
}

// handleHandlerError folds a handler's returned error into the wire-level
// Error message. Only the authentication codes (AuthenticationRequired,
// InvalidAppId, AuthenticationTimeout) close the session, after an
// AuthenticationError reply; every other code, ProtocolViolation included,
// is sent as Error and leaves the session open.
func (rt *Router) handleHandlerError(sess SessionContext, msgType transport.MessageType, err error) {
	code := apperr.CodeOf(err)
	logging.Warn(context.Background(), "handler error",
		zap.String("type", string(msgType)), zap.String("code", string(code)), zap.Error(err))

	switch code {
	case apperr.CodeAuthenticationRequired, apperr.CodeInvalidAppId, apperr.CodeAuthenticationTimeout:
		rt.sendAuthError(sess, err)
		sess.Close(types.CloseReasonProtocolViolation)
	default:
		rt.sendError(sess, code, err.Error())
	}
}

func (rt *Router) sendError(sess SessionContext, code apperr.Code, message string) {
	env, err := transport.NewEnvelope(transport.TypeError, struct {
		Message   string      `json:"message"`
		ErrorCode apperr.Code `json:"errorCode,omitempty"`
	}{Message: message, ErrorCode: code})
	if err != nil {
		return
	}
	sess.Send(env)
}

func (rt *Router) sendAuthError(sess SessionContext, cause error) {
	env, err := transport.NewEnvelope(transport.TypeAuthenticationError, struct {
		Error     string      `json:"error"`
		ErrorCode apperr.Code `json:"errorCode"`
	}{Error: cause.Error(), ErrorCode: apperr.CodeOf(cause)})
	if err != nil {
		return
	}
	sess.Send(env)
}

// roomFor resolves the room the session currently belongs to, failing with
// NotInRoom if it has none.
func (rt *Router) roomFor(sess SessionContext) (*room.Room, error) {
	roomID := sess.RoomId()
	if roomID == "" {
		return nil, apperr.New(apperr.CodeNotInRoom, "session is not in a room")
	}
	rm, ok := rt.Registry.Lookup(roomID)
	if !ok {
		return nil, apperr.New(apperr.CodeRoomNotFound, "room no longer exists")
	}
	return rm, nil
}

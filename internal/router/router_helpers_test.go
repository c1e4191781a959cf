package router

import (
	"time"

	"github.com/riftsignal/signalserver/internal/config"
	"github.com/riftsignal/signalserver/internal/reconnect"
	"github.com/riftsignal/signalserver/internal/ratelimit"
	"github.com/riftsignal/signalserver/internal/registry"
	"github.com/riftsignal/signalserver/internal/transport"
	"github.com/riftsignal/signalserver/internal/types"
)

// fakeSession is an in-memory SessionContext used to drive handlers without
// a real websocket connection. Mirrors room_test's fakeRecipient pattern.
type fakeSession struct {
	id          types.SessionId
	remoteAddr  string
	state       types.SessionState
	appCtx      *types.AppContext
	playerID    types.PlayerId
	roomID      types.RoomId
	spectatorID types.SpectatorId
	outbox      []transport.Envelope
	closed      bool
	closeReason types.CloseReason
	full        bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{id: types.NewSessionId(), remoteAddr: "127.0.0.1", state: types.SessionStatePendingAuth}
}

func (s *fakeSession) SessionId() types.SessionId      { return s.id }
func (s *fakeSession) RemoteAddr() string               { return s.remoteAddr }
func (s *fakeSession) State() types.SessionState        { return s.state }
func (s *fakeSession) AppContext() *types.AppContext    { return s.appCtx }
func (s *fakeSession) SetAppContext(a *types.AppContext) { s.appCtx = a }
func (s *fakeSession) MarkAuthenticated()               { s.state = types.SessionStateActive }
func (s *fakeSession) PlayerId() types.PlayerId         { return s.playerID }
func (s *fakeSession) SetPlayerId(id types.PlayerId)    { s.playerID = id }
func (s *fakeSession) RoomId() types.RoomId             { return s.roomID }
func (s *fakeSession) SetRoomId(id types.RoomId)        { s.roomID = id }
func (s *fakeSession) SpectatorId() types.SpectatorId   { return s.spectatorID }
func (s *fakeSession) SetSpectatorId(id types.SpectatorId) { s.spectatorID = id }
func (s *fakeSession) Send(env transport.Envelope)      { s.outbox = append(s.outbox, env) }
func (s *fakeSession) Close(reason types.CloseReason) {
	s.closed = true
	s.closeReason = reason
}

// TryEnqueue implements room.Recipient so fakeSession can be bound into a
// room just like a real session.
func (s *fakeSession) TryEnqueue(env transport.Envelope) bool {
	if s.full {
		return false
	}
	s.outbox = append(s.outbox, env)
	return true
}

func (s *fakeSession) last() transport.Envelope {
	return s.outbox[len(s.outbox)-1]
}

type fakeCloser struct {
	closed []types.SessionId
}

func (c *fakeCloser) CloseSession(id types.SessionId, _ types.CloseReason) {
	c.closed = append(c.closed, id)
}

func newTestRouter() (*Router, *fakeCloser) {
	cfg := &config.Config{}
	cfg.Security.RequireWebsocketAuth = true
	cfg.Security.AuthorizedApps = []config.AuthorizedApp{
		{AppId: "app1", AppSecret: "secret1", MaxRooms: 100, MaxPlayersPerRoom: 16, RateLimitPerMinute: 600},
	}
	cfg.Protocol.MaxGameNameLength = 64
	cfg.Protocol.MaxPlayerNameLength = 32
	cfg.Protocol.MaxPlayersLimit = 64
	cfg.Protocol.RoomCodeLength = 6
	cfg.Server.DefaultMaxPlayers = 8
	cfg.Server.EnableReconnection = true
	cfg.Server.EventBufferSize = 32
	cfg.Server.LobbyCountdownSecs = 0
	cfg.RateLimit.MaxRoomCreations = 1000
	cfg.RateLimit.MaxJoinAttempts = 1000
	cfg.RateLimit.TimeWindowSecs = 60

	reg := registry.New(registry.Config{
		MaxRoomsPerGame:   0,
		EventBufferSize:   cfg.Server.EventBufferSize,
		CountdownDuration: 0,
		RoomCodeLength:    cfg.Protocol.RoomCodeLength,
	})
	signer := reconnect.NewTokenSigner([]byte("test-secret"))
	recon := reconnect.NewStore(signer, time.Minute)
	appQuotas := make(map[string]int, len(cfg.Security.AuthorizedApps))
	for _, app := range cfg.Security.AuthorizedApps {
		appQuotas[app.AppId] = app.RateLimitPerMinute
	}
	rl, err := ratelimit.New(cfg.RateLimit, appQuotas)
	if err != nil {
		panic(err)
	}
	closer := &fakeCloser{}
	rt := New(reg, recon, rl, cfg, closer)
	return rt, closer
}

func authenticatedSession(rt *Router) *fakeSession {
	sess := newFakeSession()
	rt.AppsByID["app1"] = config.AuthorizedApp{AppId: "app1", AppSecret: "secret1"}
	sess.SetAppContext(&types.AppContext{AppId: "app1", AppName: "app1"})
	sess.MarkAuthenticated()
	return sess
}

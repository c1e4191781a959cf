package session

import (
	"testing"
	"time"

	"github.com/riftsignal/signalserver/internal/transport"
	"github.com/riftsignal/signalserver/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(cfg Config) (*Session, *fakeConn) {
	conn := newFakeConn()
	codec := transport.NewCodec(transport.FormatJSON)
	s := New(conn, codec, "10.0.0.1:1234", cfg)
	return s, conn
}

func TestNewSessionStateDependsOnRequireAuth(t *testing.T) {
	cfg := testSessionConfig()
	cfg.RequireAuth = true
	s, _ := newTestSession(cfg)
	assert.Equal(t, types.SessionStatePendingAuth, s.State())

	cfg.RequireAuth = false
	s2, _ := newTestSession(cfg)
	assert.Equal(t, types.SessionStateActive, s2.State())
}

func TestMarkAuthenticatedTransitionsOnce(t *testing.T) {
	cfg := testSessionConfig()
	cfg.RequireAuth = true
	s, _ := newTestSession(cfg)

	s.MarkAuthenticated()
	assert.Equal(t, types.SessionStateActive, s.State())

	// Calling again, or from a non-PendingAuth state, is a no-op.
	s.SetPlayerId("p1")
	s.MarkAuthenticated()
	assert.Equal(t, types.SessionStateActive, s.State())
}

func TestAuthTimeoutClosesStillPendingSession(t *testing.T) {
	cfg := testSessionConfig()
	cfg.RequireAuth = true
	cfg.AuthTimeout = 10 * time.Millisecond
	s, _ := newTestSession(cfg)

	require.Eventually(t, func() bool {
		return s.State() == types.SessionStateClosed
	}, time.Second, 5*time.Millisecond)
}

func TestAuthTimeoutNoopAfterAuthenticated(t *testing.T) {
	cfg := testSessionConfig()
	cfg.RequireAuth = true
	cfg.AuthTimeout = 10 * time.Millisecond
	s, _ := newTestSession(cfg)

	s.MarkAuthenticated()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, types.SessionStateActive, s.State())
}

func TestTryEnqueueFailsWhenFull(t *testing.T) {
	cfg := testSessionConfig()
	cfg.OutboundQueueSize = 1
	s, _ := newTestSession(cfg)

	env, err := transport.NewEnvelope(transport.TypePing, nil)
	require.NoError(t, err)

	assert.True(t, s.TryEnqueue(env))
	assert.False(t, s.TryEnqueue(env))
}

func TestTryEnqueueFailsAfterClose(t *testing.T) {
	cfg := testSessionConfig()
	s, _ := newTestSession(cfg)
	s.Close(types.CloseReasonClientClosed)

	env, _ := transport.NewEnvelope(transport.TypePing, nil)
	assert.False(t, s.TryEnqueue(env))
}

func TestCloseIsIdempotent(t *testing.T) {
	cfg := testSessionConfig()
	s, conn := newTestSession(cfg)

	s.Close(types.CloseReasonIdleTimeout)
	s.Close(types.CloseReasonIdleTimeout)

	assert.Equal(t, types.SessionStateClosed, s.State())
	assert.True(t, conn.closed)
}

func TestSetPlayerRoomSpectatorFields(t *testing.T) {
	cfg := testSessionConfig()
	s, _ := newTestSession(cfg)

	s.SetPlayerId("p1")
	s.SetRoomId("r1")
	s.SetSpectatorId("sp1")

	assert.Equal(t, types.PlayerId("p1"), s.PlayerId())
	assert.Equal(t, types.RoomId("r1"), s.RoomId())
	assert.Equal(t, types.SpectatorId("sp1"), s.SpectatorId())
}

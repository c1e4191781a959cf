package router

import (
	"context"
	"testing"

	"github.com/riftsignal/signalserver/internal/apperr"
	"github.com/riftsignal/signalserver/internal/transport"
	"github.com/riftsignal/signalserver/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleJoinRoomCreatesRoom(t *testing.T) {
	rt, _ := newTestRouter()
	sess := authenticatedSession(rt)
	env, err := transport.NewEnvelope(transport.TypeJoinRoom, joinRoomPayload{GameName: "tag", PlayerName: "alice"})
	require.NoError(t, err)

	require.NoError(t, rt.handleJoinRoom(context.Background(), sess, env))

	assert.NotEmpty(t, sess.RoomId())
	assert.NotEmpty(t, sess.PlayerId())
	require.NotEmpty(t, sess.outbox)
	assert.Equal(t, transport.TypeRoomCreated, sess.last().Type)
}

func TestHandleJoinRoomRejectsWhenAlreadyInRoom(t *testing.T) {
	rt, _ := newTestRouter()
	sess := authenticatedSession(rt)
	sess.SetRoomId(types.NewRoomId())
	env, _ := transport.NewEnvelope(transport.TypeJoinRoom, joinRoomPayload{GameName: "tag", PlayerName: "alice"})

	err := rt.handleJoinRoom(context.Background(), sess, env)
	assert.Equal(t, apperr.CodeAlreadyInRoom, apperr.CodeOf(err))
}

func TestHandleJoinRoomByCodeAndBroadcastsPlayerJoined(t *testing.T) {
	rt, _ := newTestRouter()
	creator := authenticatedSession(rt)
	createEnv, _ := transport.NewEnvelope(transport.TypeJoinRoom, joinRoomPayload{GameName: "tag", PlayerName: "alice"})
	require.NoError(t, rt.handleJoinRoom(context.Background(), creator, createEnv))
	rm, ok := rt.Registry.Lookup(creator.RoomId())
	require.True(t, ok)

	code := string(rm.Code)
	joiner := authenticatedSession(rt)
	joinEnv, _ := transport.NewEnvelope(transport.TypeJoinRoom, joinRoomPayload{GameName: "tag", PlayerName: "bob", RoomCode: &code})
	require.NoError(t, rt.handleJoinRoom(context.Background(), joiner, joinEnv))

	assert.Equal(t, creator.RoomId(), joiner.RoomId())
	assert.Equal(t, transport.TypeRoomJoined, joiner.last().Type)

	require.NotEmpty(t, creator.outbox)
	found := false
	for _, e := range creator.outbox {
		if e.Type == transport.TypePlayerJoined {
			found = true
		}
	}
	assert.True(t, found)
}

func TestHandleJoinRoomInvalidGameName(t *testing.T) {
	rt, _ := newTestRouter()
	sess := authenticatedSession(rt)
	env, _ := transport.NewEnvelope(transport.TypeJoinRoom, joinRoomPayload{GameName: "", PlayerName: "alice"})
	err := rt.handleJoinRoom(context.Background(), sess, env)
	assert.Equal(t, apperr.CodeInvalidGameName, apperr.CodeOf(err))
}

func TestHandleLeaveRoomRemovesPlayerAndResetsSession(t *testing.T) {
	rt, _ := newTestRouter()
	sess := authenticatedSession(rt)
	env, _ := transport.NewEnvelope(transport.TypeJoinRoom, joinRoomPayload{GameName: "tag", PlayerName: "alice"})
	require.NoError(t, rt.handleJoinRoom(context.Background(), sess, env))
	roomID := sess.RoomId()

	require.NoError(t, rt.handleLeaveRoom(context.Background(), sess, transport.Envelope{}))

	assert.Empty(t, sess.RoomId())
	assert.Empty(t, sess.PlayerId())
	rm, ok := rt.Registry.Lookup(roomID)
	require.True(t, ok)
	assert.Equal(t, 0, rm.MemberCount())
}

func TestHandleLeaveRoomNotInRoom(t *testing.T) {
	rt, _ := newTestRouter()
	sess := authenticatedSession(rt)
	err := rt.handleLeaveRoom(context.Background(), sess, transport.Envelope{})
	assert.Equal(t, apperr.CodeNotInRoom, apperr.CodeOf(err))
}

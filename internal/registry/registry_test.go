package registry

import (
	"testing"
	"time"

	"github.com/riftsignal/signalserver/internal/apperr"
	"github.com/riftsignal/signalserver/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return New(Config{
		MaxRoomsPerGame:   0,
		EventBufferSize:   16,
		CountdownDuration: time.Second,
		RoomCodeLength:    6,
	})
}

func TestCreateRoomAssignsUniqueCode(t *testing.T) {
	reg := newTestRegistry()
	rm1, err := reg.CreateRoom(CreateRoomParams{
		GameName:   "tag",
		Creator:    &types.Player{Id: types.NewPlayerId()},
		MaxPlayers: 4,
	})
	require.NoError(t, err)
	rm2, err := reg.CreateRoom(CreateRoomParams{
		GameName:   "tag",
		Creator:    &types.Player{Id: types.NewPlayerId()},
		MaxPlayers: 4,
	})
	require.NoError(t, err)

	assert.NotEqual(t, rm1.Code, rm2.Code)
	assert.Len(t, string(rm1.Code), 6)
}

func TestCreateRoomEnforcesGlobalGameQuota(t *testing.T) {
	reg := New(Config{MaxRoomsPerGame: 1, RoomCodeLength: 6})
	_, err := reg.CreateRoom(CreateRoomParams{GameName: "tag", Creator: &types.Player{Id: types.NewPlayerId()}, MaxPlayers: 4})
	require.NoError(t, err)

	_, err = reg.CreateRoom(CreateRoomParams{GameName: "tag", Creator: &types.Player{Id: types.NewPlayerId()}, MaxPlayers: 4})
	assert.Equal(t, apperr.CodeMaxRoomsPerGameExceeded, apperr.CodeOf(err))
}

func TestCreateRoomEnforcesPerAppQuota(t *testing.T) {
	reg := newTestRegistry()
	appCtx := &types.AppContext{AppId: "app1", Quotas: types.AppQuotas{MaxRooms: 1}}

	_, err := reg.CreateRoom(CreateRoomParams{GameName: "tag", Creator: &types.Player{Id: types.NewPlayerId()}, MaxPlayers: 4, AppContext: appCtx})
	require.NoError(t, err)

	_, err = reg.CreateRoom(CreateRoomParams{GameName: "tag", Creator: &types.Player{Id: types.NewPlayerId()}, MaxPlayers: 4, AppContext: appCtx})
	assert.Equal(t, apperr.CodeMaxRoomsPerGameExceeded, apperr.CodeOf(err))

	// A different app's quota is tracked independently.
	other := &types.AppContext{AppId: "app2", Quotas: types.AppQuotas{MaxRooms: 1}}
	_, err = reg.CreateRoom(CreateRoomParams{GameName: "tag", Creator: &types.Player{Id: types.NewPlayerId()}, MaxPlayers: 4, AppContext: other})
	assert.NoError(t, err)
}

func TestCreateRoomPerAppQuotaIsScopedPerGame(t *testing.T) {
	reg := newTestRegistry()
	appCtx := &types.AppContext{AppId: "app1", Quotas: types.AppQuotas{MaxRooms: 1}}

	_, err := reg.CreateRoom(CreateRoomParams{GameName: "tag", Creator: &types.Player{Id: types.NewPlayerId()}, MaxPlayers: 4, AppContext: appCtx})
	require.NoError(t, err)

	// Same app, different game: quota applies per (appId, gameName).
	_, err = reg.CreateRoom(CreateRoomParams{GameName: "chess", Creator: &types.Player{Id: types.NewPlayerId()}, MaxPlayers: 4, AppContext: appCtx})
	assert.NoError(t, err)
}

func TestJoinRoomByCode(t *testing.T) {
	reg := newTestRegistry()
	creator := &types.Player{Id: types.NewPlayerId()}
	rm, err := reg.CreateRoom(CreateRoomParams{GameName: "tag", Creator: creator, MaxPlayers: 4})
	require.NoError(t, err)

	joiner := &types.Player{Id: types.NewPlayerId()}
	joined, _, err := reg.JoinRoom("tag", rm.Code, joiner)
	require.NoError(t, err)
	assert.Equal(t, rm.Id, joined.Id)
	assert.Equal(t, 2, joined.MemberCount())
}

func TestJoinRoomNotFound(t *testing.T) {
	reg := newTestRegistry()
	_, _, err := reg.JoinRoom("tag", types.RoomCode("NOPE12"), &types.Player{Id: types.NewPlayerId()})
	assert.Equal(t, apperr.CodeRoomNotFound, apperr.CodeOf(err))
}

func TestLeaveRoomRemovesMember(t *testing.T) {
	reg := newTestRegistry()
	creator := &types.Player{Id: types.NewPlayerId()}
	rm, err := reg.CreateRoom(CreateRoomParams{GameName: "tag", Creator: creator, MaxPlayers: 4})
	require.NoError(t, err)

	_, err = reg.LeaveRoom(rm.Id, creator.Id)
	require.NoError(t, err)
	assert.Equal(t, 0, rm.MemberCount())
}

func TestLeaveRoomUnknownRoom(t *testing.T) {
	reg := newTestRegistry()
	_, err := reg.LeaveRoom(types.NewRoomId(), types.NewPlayerId())
	assert.Equal(t, apperr.CodeRoomNotFound, apperr.CodeOf(err))
}

func TestLookupAndLookupByCode(t *testing.T) {
	reg := newTestRegistry()
	creator := &types.Player{Id: types.NewPlayerId()}
	rm, err := reg.CreateRoom(CreateRoomParams{GameName: "tag", Creator: creator, MaxPlayers: 4})
	require.NoError(t, err)

	found, ok := reg.Lookup(rm.Id)
	require.True(t, ok)
	assert.Equal(t, rm, found)

	foundByCode, ok := reg.LookupByCode("tag", rm.Code)
	require.True(t, ok)
	assert.Equal(t, rm, foundByCode)

	_, ok = reg.LookupByCode("tag", types.RoomCode("ZZZZZZ"))
	assert.False(t, ok)
}

func TestDestroyRoomRemovesFromBothIndices(t *testing.T) {
	reg := newTestRegistry()
	creator := &types.Player{Id: types.NewPlayerId()}
	rm, err := reg.CreateRoom(CreateRoomParams{GameName: "tag", Creator: creator, MaxPlayers: 4})
	require.NoError(t, err)

	assert.True(t, reg.DestroyRoom(rm.Id))
	_, ok := reg.Lookup(rm.Id)
	assert.False(t, ok)
	_, ok = reg.LookupByCode("tag", rm.Code)
	assert.False(t, ok)

	assert.False(t, reg.DestroyRoom(rm.Id))
}

func TestAllRoomsReturnsSnapshot(t *testing.T) {
	reg := newTestRegistry()
	_, err := reg.CreateRoom(CreateRoomParams{GameName: "tag", Creator: &types.Player{Id: types.NewPlayerId()}, MaxPlayers: 4})
	require.NoError(t, err)
	_, err = reg.CreateRoom(CreateRoomParams{GameName: "tag", Creator: &types.Player{Id: types.NewPlayerId()}, MaxPlayers: 4})
	require.NoError(t, err)

	assert.Len(t, reg.AllRooms(), 2)
}

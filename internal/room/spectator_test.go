package room

import (
	"testing"

	"github.com/riftsignal/signalserver/internal/apperr"
	"github.com/riftsignal/signalserver/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSpectatorRejectsDuplicate(t *testing.T) {
	r := newTestRoom(4, false)
	spec := &types.Spectator{Id: types.NewSpectatorId()}
	require.NoError(t, r.AddSpectator(spec))

	err := r.AddSpectator(spec)
	assert.Equal(t, apperr.CodeAlreadyInRoom, apperr.CodeOf(err))
}

func TestSpectatorsDoNotCountAgainstMaxPlayers(t *testing.T) {
	r := newTestRoom(1, false)
	require.NoError(t, r.AddSpectator(&types.Spectator{Id: types.NewSpectatorId()}))
	require.NoError(t, r.AddSpectator(&types.Spectator{Id: types.NewSpectatorId()}))

	p1 := &types.Player{Id: types.NewPlayerId()}
	_, err := r.AddMember(p1)
	assert.NoError(t, err)
	assert.Equal(t, 2, r.SpectatorCount())
}

func TestRemoveSpectator(t *testing.T) {
	r := newTestRoom(4, false)
	spec := &types.Spectator{Id: types.NewSpectatorId()}
	require.NoError(t, r.AddSpectator(spec))

	r.RemoveSpectator(spec.Id)
	assert.Equal(t, 0, r.SpectatorCount())
}

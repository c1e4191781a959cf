package reconnect

import (
	"testing"
	"time"

	"github.com/riftsignal/signalserver/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenSignerRoundTrip(t *testing.T) {
	signer := NewTokenSigner([]byte("secret-a"))
	playerID, roomID := types.NewPlayerId(), types.NewRoomId()

	token, expiresAt, err := signer.Sign(playerID, roomID, 10, time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, time.Second)

	claims, err := signer.verify(token)
	require.NoError(t, err)
	assert.Equal(t, playerID, claims.PlayerId)
	assert.Equal(t, roomID, claims.RoomId)
	assert.Equal(t, uint64(10), claims.LastEventSeq)
}

func TestTokenSignerRejectsWrongSecret(t *testing.T) {
	signer := NewTokenSigner([]byte("secret-a"))
	other := NewTokenSigner([]byte("secret-b"))
	playerID, roomID := types.NewPlayerId(), types.NewRoomId()

	token, _, err := signer.Sign(playerID, roomID, 0, time.Minute)
	require.NoError(t, err)

	_, err = other.verify(token)
	assert.Error(t, err)
}

func TestTokenSignerRejectsExpired(t *testing.T) {
	signer := NewTokenSigner([]byte("secret-a"))
	playerID, roomID := types.NewPlayerId(), types.NewRoomId()

	token, _, err := signer.Sign(playerID, roomID, 0, -time.Minute)
	require.NoError(t, err)

	_, err = signer.verify(token)
	assert.Error(t, err)
}

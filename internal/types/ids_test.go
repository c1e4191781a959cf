package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIdsAreUnique(t *testing.T) {
	assert.NotEqual(t, NewPlayerId(), NewPlayerId())
	assert.NotEqual(t, NewRoomId(), NewRoomId())
	assert.NotEqual(t, NewSpectatorId(), NewSpectatorId())
	assert.NotEqual(t, NewSessionId(), NewSessionId())
}

func TestNewIdsAreNonEmpty(t *testing.T) {
	assert.NotEmpty(t, string(NewPlayerId()))
	assert.NotEmpty(t, string(NewRoomId()))
	assert.NotEmpty(t, string(NewSpectatorId()))
	assert.NotEmpty(t, string(NewSessionId()))
}

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlayerParked(t *testing.T) {
	p := Player{Id: NewPlayerId(), SessionRef: SessionId("sess-1")}
	assert.False(t, p.Parked())

	p.SessionRef = ""
	assert.True(t, p.Parked())
}

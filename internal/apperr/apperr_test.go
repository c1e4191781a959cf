package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	err := New(CodeRoomFull, "room has no open slots")
	assert.Equal(t, CodeRoomFull, err.Code)
	assert.Contains(t, err.Error(), "RoomFull")
	assert.Contains(t, err.Error(), "room has no open slots")
	assert.Nil(t, err.Unwrap())
}

func TestWrapError(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(CodeReconnectionFailed, "token rejected", cause)
	assert.Equal(t, cause, err.Unwrap())
	assert.Contains(t, err.Error(), "boom")
}

func TestAs(t *testing.T) {
	err := New(CodeInvalidMessage, "bad payload")
	wrapped := fmt.Errorf("handler failed: %w", err)

	got, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, CodeInvalidMessage, got.Code)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeRoomNotFound, CodeOf(New(CodeRoomNotFound, "gone")))
	assert.Equal(t, CodeProtocolViolation, CodeOf(errors.New("unrecognized")))
}

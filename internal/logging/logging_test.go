package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitializeIsIdempotent(t *testing.T) {
	assert.NoError(t, Initialize(true))
	assert.NoError(t, Initialize(true))
	assert.NotNil(t, GetLogger())
}

func TestLogCallsDoNotPanicWithContextFields(t *testing.T) {
	ctx := WithSession(context.Background(), "sess1")
	ctx = WithRoom(ctx, "room1")
	ctx = WithPlayer(ctx, "player1")
	ctx = WithApp(ctx, "app1")

	assert.NotPanics(t, func() {
		Info(ctx, "test info")
		Warn(ctx, "test warn")
		Error(ctx, "test error")
	})
}

func TestLogCallsHandleNilContext(t *testing.T) {
	assert.NotPanics(t, func() {
		Info(nil, "test info") //nolint:staticcheck
	})
}

func TestAppendContextFieldsIncludesServiceTag(t *testing.T) {
	fields := appendContextFields(context.Background(), nil)
	found := false
	for _, f := range fields {
		if f.Key == "service" {
			found = true
		}
	}
	assert.True(t, found)
}

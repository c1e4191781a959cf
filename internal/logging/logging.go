// Package logging wraps go.uber.org/zap with the correlation/session/room
// context-field convention the teacher's internal/v1/logging package uses,
// adapted to this server's identifiers.
package logging

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

type contextKey string

const (
	CorrelationIDKey contextKey = "correlation_id"
	SessionIDKey     contextKey = "session_id"
	RoomIDKey        contextKey = "room_id"
	PlayerIDKey      contextKey = "player_id"
	AppIDKey         contextKey = "app_id"
)

// Initialize sets up the global logger once: a development zap config when
// development is true, a production one otherwise. It reads no environment
// variable itself; cmd/signalserver passes GO_ENV != "production".
func Initialize(development bool) error {
	var err error
	once.Do(func() {
		var cfg zap.Config
		if development {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			cfg = zap.NewProductionConfig()
			cfg.EncoderConfig.TimeKey = "timestamp"
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		}
		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stderr"}

		logger, err = cfg.Build(zap.AddCallerSkip(1))
	})
	return err
}

// GetLogger returns the global logger, falling back to a development logger
// if Initialize was never called (tests, or early startup before config load).
func GetLogger() *zap.Logger {
	if logger == nil {
		l, _ := zap.NewDevelopment()
		return l
	}
	return logger
}

func Info(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Info(msg, appendContextFields(ctx, fields)...)
}

func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, appendContextFields(ctx, fields)...)
}

func Error(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Error(msg, appendContextFields(ctx, fields)...)
}

func Fatal(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, appendContextFields(ctx, fields)...)
}

// WithSession, WithRoom and WithPlayer attach identifiers to a context so
// every log call downstream carries them without threading extra params.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

func WithRoom(ctx context.Context, roomID string) context.Context {
	return context.WithValue(ctx, RoomIDKey, roomID)
}

func WithPlayer(ctx context.Context, playerID string) context.Context {
	return context.WithValue(ctx, PlayerIDKey, playerID)
}

func WithApp(ctx context.Context, appID string) context.Context {
	return context.WithValue(ctx, AppIDKey, appID)
}

func appendContextFields(ctx context.Context, fields []zap.Field) []zap.Field {
	if ctx == nil {
		return fields
	}
	if v, ok := ctx.Value(CorrelationIDKey).(string); ok {
		fields = append(fields, zap.String("correlation_id", v))
	}
	if v, ok := ctx.Value(SessionIDKey).(string); ok {
		fields = append(fields, zap.String("session_id", v))
	}
	if v, ok := ctx.Value(RoomIDKey).(string); ok {
		fields = append(fields, zap.String("room_id", v))
	}
	if v, ok := ctx.Value(PlayerIDKey).(string); ok {
		fields = append(fields, zap.String("player_id", v))
	}
	if v, ok := ctx.Value(AppIDKey).(string); ok {
		fields = append(fields, zap.String("app_id", v))
	}
	fields = append(fields, zap.String("service", "signalserver"))
	return fields
}

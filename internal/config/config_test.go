package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseValidConfig() *Config {
	return &Config{
		Port: 8080,
		Server: ServerConfig{
			EventBufferSize: 256,
		},
		Protocol: ProtocolConfig{
			RoomCodeLength: 6,
		},
		WebSocket: WebSocketConfig{
			BatchSize:         16,
			OutboundQueueSize: 64,
		},
		Security: SecurityConfig{
			RequireWebsocketAuth: true,
			AuthorizedApps:       []AuthorizedApp{{AppId: "a", AppSecret: "s"}},
		},
	}
}

func TestValidateRejectsOutOfRangePort(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Port = 0
	assert.Error(t, cfg.validate())
}

func TestValidateRequiresAuthorizedAppsWhenAuthRequired(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Security.AuthorizedApps = nil
	assert.Error(t, cfg.validate())
}

func TestValidateRequiresReconnectionSecretWhenEnabled(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Server.EnableReconnection = true
	cfg.Security.ReconnectionTokenSecret = ""
	assert.Error(t, cfg.validate())

	cfg.Security.ReconnectionTokenSecret = "shh"
	assert.NoError(t, cfg.validate())
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := baseValidConfig()
	require.NoError(t, cfg.validate())
}

func TestParseAuthorizedApps(t *testing.T) {
	apps := parseAuthorizedApps("app1:secret1;app2:secret2")
	require.Len(t, apps, 2)
	assert.Equal(t, "app1", apps[0].AppId)
	assert.Equal(t, "secret1", apps[0].AppSecret)
	assert.Equal(t, 100, apps[0].MaxRooms)
	assert.Equal(t, "app2", apps[1].AppId)
}

func TestParseAuthorizedAppsEmpty(t *testing.T) {
	assert.Nil(t, parseAuthorizedApps("  "))
}

func TestRedactedAppSecrets(t *testing.T) {
	cfg := &Config{Security: SecurityConfig{AuthorizedApps: []AuthorizedApp{{AppId: "app1", AppSecret: "verysecretvalue"}}}}
	redacted := cfg.RedactedAppSecrets()
	require.Len(t, redacted, 1)
	assert.Equal(t, "app1:very***", redacted[0])
}

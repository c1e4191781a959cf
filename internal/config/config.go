// Package config loads and validates the server's full option surface from
// the environment, in the teacher's "validate eagerly, redact secrets, log
// once" style, but parsed with struct tags (github.com/caarlos0/env/v11)
// rather than one os.Getenv call per field — this option surface is roughly
// four times the teacher's.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// AuthorizedApp is one entry of security.authorizedApps[] (spec.md §6): a
// tenant allowed to authenticate, with its own quotas.
type AuthorizedApp struct {
	AppId              string `env:"APP_ID"`
	AppSecret          string `env:"APP_SECRET"`
	MaxRooms           int    `env:"MAX_ROOMS" envDefault:"100"`
	MaxPlayersPerRoom  int    `env:"MAX_PLAYERS_PER_ROOM" envDefault:"16"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"600"`
}

// ServerConfig holds room lifecycle and session timing options (spec.md §6
// `server.*`).
type ServerConfig struct {
	DefaultMaxPlayers      int  `env:"SERVER_DEFAULT_MAX_PLAYERS" envDefault:"8"`
	PingTimeoutSecs        int  `env:"SERVER_PING_TIMEOUT_SECS" envDefault:"30"`
	RoomCleanupIntervalSecs int `env:"SERVER_ROOM_CLEANUP_INTERVAL_SECS" envDefault:"10"`
	MaxRoomsPerGame        int  `env:"SERVER_MAX_ROOMS_PER_GAME" envDefault:"10000"`
	EmptyRoomTimeoutSecs   int  `env:"SERVER_EMPTY_ROOM_TIMEOUT_SECS" envDefault:"30"`
	InactiveRoomTimeoutSecs int `env:"SERVER_INACTIVE_ROOM_TIMEOUT_SECS" envDefault:"3600"`
	ReconnectionWindowSecs int  `env:"SERVER_RECONNECTION_WINDOW_SECS" envDefault:"60"`
	EventBufferSize        int  `env:"SERVER_EVENT_BUFFER_SIZE" envDefault:"256"`
	EnableReconnection     bool `env:"SERVER_ENABLE_RECONNECTION" envDefault:"true"`
	// LobbyCountdownSecs is the configured constant spec.md §4.4 requires for
	// the Lobby->Finalized transition; 0 finalizes immediately once every
	// member is ready.
	LobbyCountdownSecs int `env:"SERVER_LOBBY_COUNTDOWN_SECS" envDefault:"5"`
}

// RateLimitConfig holds per-IP token-bucket parameters (spec.md §6 `rateLimit.*`).
type RateLimitConfig struct {
	MaxRoomCreations int    `env:"RATE_LIMIT_MAX_ROOM_CREATIONS" envDefault:"5"`
	TimeWindowSecs   int    `env:"RATE_LIMIT_TIME_WINDOW_SECS" envDefault:"60"`
	MaxJoinAttempts  int    `env:"RATE_LIMIT_MAX_JOIN_ATTEMPTS" envDefault:"20"`
}

// ProtocolConfig holds validation bounds (spec.md §6 `protocol.*`).
type ProtocolConfig struct {
	MaxGameNameLength   int `env:"PROTOCOL_MAX_GAME_NAME_LENGTH" envDefault:"64"`
	RoomCodeLength      int `env:"PROTOCOL_ROOM_CODE_LENGTH" envDefault:"6"`
	MaxPlayerNameLength int `env:"PROTOCOL_MAX_PLAYER_NAME_LENGTH" envDefault:"32"`
	MaxPlayersLimit     int `env:"PROTOCOL_MAX_PLAYERS_LIMIT" envDefault:"64"`
}

// SecurityConfig holds auth, CORS, and per-connection caps (spec.md §6 `security.*`).
type SecurityConfig struct {
	CorsOrigins             []string        `env:"SECURITY_CORS_ORIGINS" envSeparator:","`
	RequireWebsocketAuth    bool            `env:"SECURITY_REQUIRE_WEBSOCKET_AUTH" envDefault:"true"`
	MaxMessageSizeBytes     int64           `env:"SECURITY_MAX_MESSAGE_SIZE_BYTES" envDefault:"65536"`
	MaxConnectionsPerIp     int             `env:"SECURITY_MAX_CONNECTIONS_PER_IP" envDefault:"50"`
	AuthorizedApps          []AuthorizedApp `env:"-"`
	AuthorizedAppsRaw       string          `env:"SECURITY_AUTHORIZED_APPS"`
	// ReconnectionTokenSecret signs the HMAC reconnection tokens issued in
	// spec.md §4.8. Required whenever reconnection is enabled.
	ReconnectionTokenSecret string `env:"SECURITY_RECONNECTION_TOKEN_SECRET"`
}

// WebSocketConfig holds outbound batching options (spec.md §6 `websocket.*`).
type WebSocketConfig struct {
	EnableBatching    bool `env:"WEBSOCKET_ENABLE_BATCHING" envDefault:"true"`
	BatchSize         int  `env:"WEBSOCKET_BATCH_SIZE" envDefault:"16"`
	BatchIntervalMs   int  `env:"WEBSOCKET_BATCH_INTERVAL_MS" envDefault:"20"`
	AuthTimeoutSecs   int  `env:"WEBSOCKET_AUTH_TIMEOUT_SECS" envDefault:"10"`
	OutboundQueueSize int  `env:"WEBSOCKET_OUTBOUND_QUEUE_SIZE" envDefault:"64"`
	InboundRatePerSec float64 `env:"WEBSOCKET_INBOUND_RATE_PER_SEC" envDefault:"50"`
	InboundBurst      int  `env:"WEBSOCKET_INBOUND_BURST" envDefault:"100"`
}

// Config is the full validated option surface, built once at startup.
type Config struct {
	Port       int             `env:"PORT" envDefault:"8080"`
	GoEnv      string          `env:"GO_ENV" envDefault:"production"`
	LogLevel   string          `env:"LOG_LEVEL" envDefault:"info"`

	Server     ServerConfig
	RateLimit  RateLimitConfig
	Protocol   ProtocolConfig
	Security   SecurityConfig
	WebSocket  WebSocketConfig
}

// Load reads .env (if present, for local development, exactly as the
// teacher's cmd/v1/session/main.go does), parses the environment into
// Config, and validates it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("config: parse server options: %w", err)
	}
	if err := env.Parse(&cfg.RateLimit); err != nil {
		return nil, fmt.Errorf("config: parse rate limit options: %w", err)
	}
	if err := env.Parse(&cfg.Protocol); err != nil {
		return nil, fmt.Errorf("config: parse protocol options: %w", err)
	}
	if err := env.Parse(&cfg.Security); err != nil {
		return nil, fmt.Errorf("config: parse security options: %w", err)
	}
	if err := env.Parse(&cfg.WebSocket); err != nil {
		return nil, fmt.Errorf("config: parse websocket options: %w", err)
	}

	cfg.Security.AuthorizedApps = parseAuthorizedApps(cfg.Security.AuthorizedAppsRaw)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseAuthorizedApps decodes SECURITY_AUTHORIZED_APPS entries of the form
// "appId:appSecret", separated by ";", with quotas left at their defaults;
// per-app quota overrides are not exposed through this compact form.
// Matches the teacher's convention of compact colon-delimited env values for
// structured lists (internal/v1/config uses a similar scheme for
// RATE_LIMIT_* windows).
func parseAuthorizedApps(raw string) []AuthorizedApp {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var apps []AuthorizedApp
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		app := AuthorizedApp{
			MaxRooms:           100,
			MaxPlayersPerRoom:  16,
			RateLimitPerMinute: 600,
		}
		if len(parts) > 0 {
			app.AppId = parts[0]
		}
		if len(parts) > 1 {
			app.AppSecret = parts[1]
		}
		apps = append(apps, app)
	}
	return apps
}

func (c *Config) validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be 1-65535 (got %d)", c.Port))
	}
	if c.Security.RequireWebsocketAuth && len(c.Security.AuthorizedApps) == 0 {
		errs = append(errs, "SECURITY_AUTHORIZED_APPS must list at least one app when SECURITY_REQUIRE_WEBSOCKET_AUTH=true")
	}
	if c.Protocol.RoomCodeLength < 4 || c.Protocol.RoomCodeLength > 16 {
		errs = append(errs, fmt.Sprintf("PROTOCOL_ROOM_CODE_LENGTH must be 4-16 (got %d)", c.Protocol.RoomCodeLength))
	}
	if c.Server.EventBufferSize < 1 {
		errs = append(errs, "SERVER_EVENT_BUFFER_SIZE must be > 0")
	}
	if c.WebSocket.BatchSize < 1 {
		errs = append(errs, "WEBSOCKET_BATCH_SIZE must be > 0")
	}
	if c.WebSocket.OutboundQueueSize < 1 {
		errs = append(errs, "WEBSOCKET_OUTBOUND_QUEUE_SIZE must be > 0")
	}
	if c.Server.EnableReconnection && strings.TrimSpace(c.Security.ReconnectionTokenSecret) == "" {
		errs = append(errs, "SECURITY_RECONNECTION_TOKEN_SECRET must be set when SERVER_ENABLE_RECONNECTION=true")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// RedactedAppSecrets returns the authorized app IDs with secrets redacted,
// for safe logging (teacher's redactSecret convention).
func (c *Config) RedactedAppSecrets() []string {
	out := make([]string, 0, len(c.Security.AuthorizedApps))
	for _, a := range c.Security.AuthorizedApps {
		out = append(out, a.AppId+":"+redactSecret(a.AppSecret))
	}
	return out
}

func redactSecret(secret string) string {
	if len(secret) <= 4 {
		return "***"
	}
	return secret[:4] + "***"
}

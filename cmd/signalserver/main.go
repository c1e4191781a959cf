// Command signalserver runs the WebSocket signaling server: it loads
// config, wires the registry/router/session collaborators, serves the
// upgrade, health, and metrics routes on gin, and shuts down gracefully on
// SIGINT/SIGTERM (mirrors the teacher's cmd/v1/session/main.go shape).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/riftsignal/signalserver/internal/config"
	"github.com/riftsignal/signalserver/internal/logging"
	"github.com/riftsignal/signalserver/internal/maintenance"
	"github.com/riftsignal/signalserver/internal/metrics"
	"github.com/riftsignal/signalserver/internal/ratelimit"
	"github.com/riftsignal/signalserver/internal/reconnect"
	"github.com/riftsignal/signalserver/internal/registry"
	"github.com/riftsignal/signalserver/internal/room"
	"github.com/riftsignal/signalserver/internal/router"
	"github.com/riftsignal/signalserver/internal/session"
	"github.com/riftsignal/signalserver/internal/transport"
	"github.com/riftsignal/signalserver/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logging.Initialize(cfg.GoEnv != "production"); err != nil {
		panic(err)
	}
	ctx := context.Background()
	logging.Info(ctx, "configuration loaded",
		zap.Int("port", cfg.Port), zap.String("go_env", cfg.GoEnv),
		zap.Strings("authorized_apps", cfg.RedactedAppSecrets()))

	reg := registry.New(registry.Config{
		MaxRoomsPerGame:   cfg.Server.MaxRoomsPerGame,
		EventBufferSize:   cfg.Server.EventBufferSize,
		CountdownDuration: time.Duration(cfg.Server.LobbyCountdownSecs) * time.Second,
		RoomCodeLength:    cfg.Protocol.RoomCodeLength,
	})

	signer := reconnect.NewTokenSigner([]byte(cfg.Security.ReconnectionTokenSecret))
	reconnStore := reconnect.NewStore(signer, time.Duration(cfg.Server.ReconnectionWindowSecs)*time.Second)

	appQuotas := make(map[string]int, len(cfg.Security.AuthorizedApps))
	for _, app := range cfg.Security.AuthorizedApps {
		appQuotas[app.AppId] = app.RateLimitPerMinute
	}
	rl, err := ratelimit.New(cfg.RateLimit, appQuotas)
	if err != nil {
		logging.Fatal(ctx, "failed to build rate limiter", zap.Error(err))
	}
	connTracker := ratelimit.NewConnectionTracker(cfg.Security.MaxConnectionsPerIp)

	// session.Manager is constructed first: it only needs to satisfy
	// router.SlowConsumerCloser to be handed to router.New, and doesn't
	// need a live *router.Router itself until the first Attach call.
	mgr := session.NewManager(cfg, connTracker)
	rt := router.New(reg, reconnStore, rl, cfg, mgr)

	sampler := metrics.NewProcessSampler()
	sched := maintenance.New(maintenance.Config{
		Interval:              time.Duration(cfg.Server.RoomCleanupIntervalSecs) * time.Second,
		EmptyRoomTimeout:      time.Duration(cfg.Server.EmptyRoomTimeoutSecs) * time.Second,
		InactiveRoomTimeout:   time.Duration(cfg.Server.InactiveRoomTimeoutSecs) * time.Second,
		SessionIdleTimeout:    time.Duration(cfg.Server.PingTimeoutSecs) * time.Second,
		ProcessSampleInterval: 15 * time.Second,
	}, reg, reconnStore, mgr, sampler)
	go sched.Run()

	upgrader := transport.Upgrader(cfg.Security.CorsOrigins, 4096, 4096)

	if cfg.GoEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.Security.CorsOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Security.CorsOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	engine.Use(cors.New(corsConfig))

	engine.GET("/v2/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/metrics/prom", gin.WrapH(promhttp.Handler()))

	engine.GET("/v2/ws", func(c *gin.Context) {
		format := transport.Format(c.Query("format"))
		codec := transport.NewCodec(format)

		rawConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logging.Warn(ctx, "websocket upgrade failed", zap.Error(err))
			return
		}
		wsConn := transport.NewWSConnection(rawConn, codec.Format())

		sess := mgr.Attach(wsConn, codec, c.ClientIP(), rt, cfg.Security.MaxMessageSizeBytes)
		if sess == nil {
			_ = rawConn.Close()
			return
		}
	})

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Port),
		Handler: engine,
	}

	go func() {
		logging.Info(ctx, "signaling server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal(ctx, "server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info(ctx, "shutting down signaling server")

	broadcastShutdown(reg, mgr)
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(ctx, "server forced to shutdown", zap.Error(err))
	}
	logging.Info(ctx, "signaling server exiting")
}

// broadcastShutdown tells every live room its session is ending, so
// connected clients learn why the socket drops rather than seeing a bare
// close frame.
func broadcastShutdown(reg *registry.Registry, mgr *session.Manager) {
	env, err := transport.NewEnvelope(transport.TypeRoomClosed, struct {
		Reason string `json:"reason"`
	}{Reason: string(types.CloseReasonServerShutdown)})
	if err != nil {
		return
	}
	for _, rm := range reg.AllRooms() {
		for _, sc := range rm.Broadcast(env, room.Everyone()) {
			mgr.CloseSession(sc.SessionId, types.CloseReasonServerShutdown)
		}
	}
}

// quizgate is the participant-facing gateway for quiz sessions. It terminates
// WebSocket connections, tracks the lobby/hall lifecycle, and bridges client
// traffic to the coordination service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openquiz/quizgate/internal/auth"
	"github.com/openquiz/quizgate/internal/config"
	"github.com/openquiz/quizgate/internal/coordinator"
	"github.com/openquiz/quizgate/internal/lifecycle"
	"github.com/openquiz/quizgate/internal/profile"
	"github.com/openquiz/quizgate/internal/router"
	"github.com/openquiz/quizgate/internal/server"
	"github.com/openquiz/quizgate/internal/usercreate"
	"github.com/openquiz/quizgate/pkg/logger"
	"github.com/openquiz/quizgate/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Environment: cfg.AppEnv,
		LogLevel:    cfg.LogLevel,
		ServiceName: cfg.AppName,
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	// Sync can fail on stderr; nothing to do about it at exit.
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	link := coordinator.NewLink(cfg.CoordinatorURL, cfg.GatewayID, log)
	manager := lifecycle.NewManager(link, log)

	profiles := newProfileLoader(cfg, log)
	creator := usercreate.NewLogCreator(log)

	r := router.New(manager, link, profiles, creator, log)
	manager.AttachRouter(r, r)
	link.SetHandler(r.HandleCoordinatorEvent)

	srv := server.New(":"+cfg.AppPort, cfg.WSAllowedOrigins, auth.NewJWT(cfg.JWTSecret, log), manager, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error { return link.Run(ctx) })
	g.Go(func() error { return metrics.Serve(ctx, ":"+cfg.MetricsPort) })

	log.Info("Gateway started",
		zap.String("gateway_id", cfg.GatewayID),
		zap.String("app_port", cfg.AppPort),
		zap.String("metrics_port", cfg.MetricsPort))

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Fatal("Gateway exited with error", zap.Error(err))
	}
	log.Info("Gateway shut down")
}

// newProfileLoader wires the Redis-backed profile cache when Redis is
// configured and falls back to the null loader otherwise, so the gateway
// still runs (with default display names) without a profile source.
func newProfileLoader(cfg *config.Config, log *zap.Logger) profile.Loader {
	if cfg.RedisHost == "" {
		log.Info("No Redis configured, using default display names")
		return profile.NullLoader{}
	}
	cached, err := profile.NewCachedLoader(profile.RedisConfig{
		Host:         cfg.RedisHost,
		Port:         cfg.RedisPort,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
		MaxRetries:   cfg.RedisMaxRetries,
		TTL:          cfg.ProfileCacheTTL,
	}, profile.NullLoader{}, log)
	if err != nil {
		log.Warn("Profile cache unavailable, using default display names", zap.Error(err))
		return profile.NullLoader{}
	}
	return cached
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/qqmakana/ai-sales-agent/config"
	"github.com/qqmakana/ai-sales-agent/internal/logger"
	"github.com/qqmakana/ai-sales-agent/internal/queue/streams"
	"github.com/qqmakana/ai-sales-agent/internal/runtime"
	"github.com/qqmakana/ai-sales-agent/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// app holds the process-wide dependencies shared by the long-running commands.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	store     *store.Store
	redis     *redis.Client
	telemetry *runtime.Telemetry
}

func loadConfig(path string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log, err := logger.New(cfg.General.LogLevel, cfg.General.LogPretty)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}

// bootstrap opens Postgres and Redis and installs telemetry for service.
func bootstrap(ctx context.Context, cfgPath, service string) (*app, error) {
	cfg, log, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	log = log.With().Str("service", service).Logger()

	tel, err := runtime.SetupTelemetry(ctx, cfg.Telemetry, runtime.TelemetryOptions{
		ServiceName:    cfg.Telemetry.ServiceName + "-" + service,
		ServiceVersion: version,
	})
	if err != nil {
		return nil, err
	}
	st, err := runtime.OpenStore(ctx, cfg)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}
	rdb, err := runtime.OpenRedis(ctx, cfg.Storage.Redis)
	if err != nil {
		_ = st.Close()
		_ = tel.Shutdown(ctx)
		return nil, err
	}
	return &app{cfg: cfg, log: log, store: st, redis: rdb, telemetry: tel}, nil
}

func (a *app) registry() (*streams.SchemaRegistry, error) {
	return streams.NewDefaultRegistry()
}

// serveHealth exposes /healthz and /metrics when telemetry is enabled.
// extra checks are added to the postgres and redis pings.
func (a *app) serveHealth(ctx context.Context, extra map[string]runtime.Check) {
	if !a.cfg.Telemetry.Enabled {
		return
	}
	checks := map[string]runtime.Check{
		"postgres": a.store.DB.PingContext,
		"redis":    func(ctx context.Context) error { return a.redis.Ping(ctx).Err() },
	}
	for name, c := range extra {
		checks[name] = c
	}
	e := runtime.NewHealthServer(a.telemetry.Registry, checks)
	runtime.ServeHealth(ctx, a.cfg.Telemetry.HealthAddress, e, a.log)
	a.log.Info().Str("addr", a.cfg.Telemetry.HealthAddress).Msg("health server listening")
}

func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.log.Warn().Err(err).Msg("telemetry shutdown")
	}
	_ = a.redis.Close()
	_ = a.store.Close()
}

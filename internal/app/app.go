// Package app wires the stores, transports and HTTP server together and
// owns their lifecycle.
package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kmindev/chat-archiver/internal/config"
	"github.com/kmindev/chat-archiver/internal/health"
	"github.com/kmindev/chat-archiver/internal/ingest"
	"github.com/kmindev/chat-archiver/internal/registry"
	"github.com/kmindev/chat-archiver/internal/store"
	"github.com/kmindev/chat-archiver/internal/store/postgres"
	transporthttp "github.com/kmindev/chat-archiver/internal/transport/http"
	transportmqtt "github.com/kmindev/chat-archiver/internal/transport/mqtt"
)

// startupTimeout bounds each initial backend connection attempt.
const startupTimeout = 30 * time.Second

// App owns the three backing connections, the dispatcher and the HTTP server.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.MessageStore
	redis           *redis.Client
	mqtt            *transportmqtt.Client
	dispatcher      *ingest.Dispatcher
	log             *zerolog.Logger
}

// New connects to Postgres, Redis and the MQTT broker and wires all
// components. Any connection failure here is fatal for the process.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	st, err := postgres.New(startCtx, cfg.DB.DSN())
	if err != nil {
		return nil, fmt.Errorf("init message store: %w", err)
	}
	logger.Info().Str("host", cfg.DB.Host).Str("db", cfg.DB.Name).Msg("postgres connected")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := rdb.Ping(startCtx).Err(); err != nil {
		st.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")

	reg := registry.New(rdb, cfg.Redis.NicknameKey, logger)

	dispatcher := ingest.New(st, ingest.Options{
		ChatTopic:     cfg.MQTT.TopicPublic,
		ReactionTopic: cfg.MQTT.TopicReaction,
		Workers:       cfg.Ingest.Workers,
		QueueSize:     cfg.Ingest.QueueSize,
		OpTimeout:     cfg.Ingest.OpTimeout,
		DedupeWindow:  cfg.Ingest.DedupeWindow,
	}, logger)

	mqttClient := transportmqtt.New(cfg.MQTT, dispatcher.Dispatch, logger)
	if err := mqttClient.Connect(startCtx); err != nil {
		rdb.Close()
		st.Close()
		return nil, err
	}

	agg := health.New(st.HealthCheck, reg.HealthCheck, func(context.Context) bool {
		return mqttClient.IsConnected()
	})

	handlers := transporthttp.NewHandlers(reg, st, agg, cfg.DB.QueryTimeout, logger)
	server := transporthttp.NewServer(handlers, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		redis:           rdb,
		mqtt:            mqttClient,
		dispatcher:      dispatcher,
		log:             logger,
	}, nil
}

// Run starts the dispatcher workers and the HTTP server and blocks until
// context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	a.dispatcher.Start()

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup drains the dispatcher and closes the three connections.
func (a *App) cleanup() {
	a.mqtt.Close()
	a.dispatcher.Stop()

	if err := a.redis.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close redis connection")
	} else {
		a.log.Info().Msg("redis connection closed")
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close message store")
	} else {
		a.log.Info().Msg("message store closed")
	}
}

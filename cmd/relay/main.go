package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/gamelog-relay/internal/api"
	"github.com/eldtechnologies/gamelog-relay/internal/compose"
	"github.com/eldtechnologies/gamelog-relay/internal/config"
	"github.com/eldtechnologies/gamelog-relay/internal/discord"
	"github.com/eldtechnologies/gamelog-relay/internal/dispatch"
	"github.com/eldtechnologies/gamelog-relay/internal/format"
	"github.com/eldtechnologies/gamelog-relay/internal/handlers"
	"github.com/eldtechnologies/gamelog-relay/internal/relay"
	"github.com/eldtechnologies/gamelog-relay/internal/store"
)

func main() {
	os.Exit(run())
}

// run wires and runs the relay, returning the process exit code. Keeping the
// body out of main lets deferred cleanup run before the process exits.
func run() int {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("invalid log level")
	}
	logger = logger.Level(level)

	ctx := context.Background()

	// Connect to the bus
	bus, err := store.NewRedisBus(ctx, cfg.RedisURL, cfg.TopicPrefix)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer bus.Close()
	logger.Info().Msg("connected to Redis")

	// Chat platform and icon registry
	chat, err := discord.New(cfg.DiscordToken, cfg.DiscordGuildID)
	if err != nil {
		logger.Error().Err(err).Msg("discord client setup failed")
		return 1
	}
	catalog, err := chat.Icons(ctx)
	if err != nil {
		// Without icons every log line is still delivered, just as plain text.
		logger.Warn().Err(err).Msg("icon catalog unavailable")
	}
	icons := format.NewIconRegistry(catalog)
	logger.Info().Int("icons", icons.Len()).Msg("icon registry loaded")

	dispatcher := dispatch.New(
		chat,
		format.NewFormatter(icons),
		compose.New(cfg.ImageRoot, cfg.CompositeUnitWidth, cfg.CompositeUnitHeight),
		logger,
	)

	loop := relay.New(relay.Config{
		Prefix:        cfg.TopicPrefix,
		IdleThreshold: cfg.IdleThreshold,
		ScanInterval:  cfg.ScanInterval,
	}, store.NewBuffers(), dispatcher, logger)

	sub, messages, err := bus.Subscribe(ctx, cfg.ReceiveTimeout)
	if err != nil {
		logger.Error().Err(err).Msg("subscribe failed")
		return 1
	}
	defer sub.Close()

	// Operations server
	h := handlers.NewHandler(bus, loop, 3*cfg.ScanInterval+cfg.ReceiveTimeout)
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(logger, h),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting operations server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Start the relay
	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	relayDone := make(chan error, 1)
	go func() {
		relayDone <- loop.Run(relayCtx, messages)
	}()

	// Wait for interrupt signal or a fatal relay fault
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
		logger.Info().Msg("shutting down relay...")
		stopRelay()
		runErr = <-relayDone
	case err := <-serverErr:
		logger.Error().Err(err).Msg("server failed to start")
		stopRelay()
		<-relayDone
		runErr = err
	case runErr = <-relayDone:
	}
	if runErr != nil {
		logger.Error().Err(runErr).Msg("relay stopped with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
	if runErr != nil {
		return 1
	}
	return 0
}

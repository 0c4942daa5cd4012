package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/liveballot/go/internal/dbconfig"
	"github.com/mcdev12/liveballot/go/internal/models"
	"github.com/mcdev12/liveballot/go/internal/realtime"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	config, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbCfg := dbconfig.NewConfigFromEnv()
	database, err := setupDatabase(ctx, dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup database")
	}
	defer database.Close()

	services, err := setupServices(ctx, database, config)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup services")
	}

	// Gateway: websocket subscribers per table
	connections := realtime.NewConnectionManager(realtime.DefaultConnectionConfig())
	go connections.Start(ctx)

	sink := realtime.FanoutPublisher{
		connections,
		realtime.PublisherFunc(services.invalidateSettings),
	}

	var realtimeHealth *realtime.HealthChecker
	errCh := make(chan error, 2)

	switch config.Realtime.Mode {
	case RealtimeJetStream:
		consumerCfg := realtime.DefaultJetStreamConsumerConfig()
		if config.Realtime.NATSURL != "" {
			consumerCfg.URL = config.Realtime.NATSURL
		}
		consumer, err := realtime.NewEventConsumer(sink, consumerCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create JetStream consumer")
		}
		defer consumer.Close()
		realtimeHealth = realtime.NewHealthChecker(database, nil, consumer.Connected, connections)
		go func() { errCh <- consumer.Start(ctx) }()

	default:
		listenerCfg := realtime.DefaultListenerConfig()
		listenerCfg.DatabaseURL = dbCfg.DSN()
		listenerCfg.Tables = []string{models.TableVotes, models.TableSettings}
		listener, err := realtime.NewListener(sink, listenerCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create change listener")
		}
		realtimeHealth = realtime.NewHealthChecker(database, listener, nil, connections)
		go func() { errCh <- listener.Start(ctx) }()
	}

	server := setupServer(config, services, database, realtime.NewWebSocketHandler(connections), realtimeHealth)

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("realtime", config.Realtime.Mode).
			Bool("admin_token", config.Server.AdminToken != "").
			Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("component exited unexpectedly")
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("graceful shutdown complete")
}

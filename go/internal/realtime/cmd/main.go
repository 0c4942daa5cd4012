package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/liveballot/go/internal/dbconfig"
	"github.com/mcdev12/liveballot/go/internal/realtime"
)

// The relay LISTENs on the ballot tables and republishes every change to
// JetStream, where API gateways pick it up.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	cfg := dbconfig.NewConfigFromEnv()
	dsn := cfg.DSN()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}
	log.Info().
		Str("dsn", cfg.Redacted()).
		Msg("connected to database")

	jsCfg := realtime.DefaultJetStreamConfig()
	if url := os.Getenv("NATS_URL"); url != "" {
		jsCfg.URL = url
	}
	publisher, err := realtime.NewJetStreamPublisher(jsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create JetStream publisher")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("close publisher")
		}
	}()

	counters := realtime.NewTableCounters()

	ltCfg := realtime.DefaultListenerConfig()
	ltCfg.DatabaseURL = dsn
	if iv := os.Getenv("PING_INTERVAL"); iv != "" {
		if d, err := time.ParseDuration(iv); err == nil {
			ltCfg.PingInterval = d
		}
	}

	listener, err := realtime.NewListener(realtime.NewMetricPublisher(publisher, counters), ltCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create change listener")
	}

	health := realtime.NewHealthChecker(db, listener, publisher.Connected, nil)
	mux := http.NewServeMux()
	mux.Handle("/health", health)
	mux.Handle("/metrics", health.PrometheusHandler())
	addr := os.Getenv("RELAY_HEALTH_ADDR")
	if addr == "" {
		addr = ":8081"
	}
	srv := &http.Server{Addr: addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", addr).Msg("health endpoint listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server failed")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msg("starting change relay")
		errCh <- listener.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("listener exited unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server shutdown")
	}

	snap := counters.Snapshot()
	log.Info().
		Interface("published", snap.Published).
		Interface("failed", snap.Failed).
		Msg("graceful shutdown complete")
}

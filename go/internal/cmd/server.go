package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/liveballot/go/internal/ballotrpc"
	"github.com/mcdev12/liveballot/go/internal/realtime"
	"github.com/mcdev12/liveballot/go/internal/settings"
)

func setupServer(config *Config, services *Services, database *sql.DB, ws *realtime.WebSocketHandler, realtimeHealth http.Handler) *http.Server {
	mux := http.NewServeMux()

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	registerServices(mux, services, config.Server.AdminToken)
	ws.RegisterRoutes(mux)
	setupHealthCheck(mux, database)
	mux.Handle("/health/realtime", realtimeHealth)

	handler := c.Handler(mux)

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Server.Port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

func registerServices(mux *http.ServeMux, services *Services, adminToken string) {
	votePath, voteHandler := ballotrpc.NewVoteServiceHandler(services.Votes)
	mux.Handle(votePath, voteHandler)

	settingsPath, settingsHandler := ballotrpc.NewSettingsServiceHandler(
		services.Settings,
		connect.WithInterceptors(settings.NewAdminTokenInterceptor(adminToken)),
	)
	mux.Handle(settingsPath, settingsHandler)
}

func setupHealthCheck(mux *http.ServeMux, database *sql.DB) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := "healthy"
		if err := database.PingContext(ctx); err != nil {
			log.Error().Err(err).Msg("health check database ping failed")
			status = "unhealthy"
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.Header().Set("Content-Type", "application/json")
		}
		if err := json.NewEncoder(w).Encode(map[string]string{"status": status}); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}

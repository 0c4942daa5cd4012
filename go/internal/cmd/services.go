package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mcdev12/liveballot/go/internal/models"
	"github.com/mcdev12/liveballot/go/internal/settings"
	settingsdb "github.com/mcdev12/liveballot/go/internal/settings/db"
	"github.com/mcdev12/liveballot/go/internal/votes"
)

type Services struct {
	Votes       *votes.Service
	Settings    *settings.Service
	SettingsApp *settings.App
}

func setupServices(ctx context.Context, database *sql.DB, config *Config) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer

	// Votes
	votesRepo := votes.NewRepository(database)
	votesApp := votes.NewApp(votesRepo)
	if err := votesApp.SeedCandidates(ctx, config.candidates()); err != nil {
		return nil, fmt.Errorf("failed to seed candidates: %w", err)
	}
	votesService := votes.NewService(votesApp)

	// Settings
	cacheCfg, err := settingsCacheConfig(config)
	if err != nil {
		return nil, err
	}
	settingsRepo := settings.NewRepository(settingsdb.New(database))
	settingsApp := settings.NewApp(settingsRepo, cacheCfg)
	settingsService := settings.NewService(settingsApp)

	return &Services{
		Votes:       votesService,
		Settings:    settingsService,
		SettingsApp: settingsApp,
	}, nil
}

func settingsCacheConfig(config *Config) (settings.CacheConfig, error) {
	cfg := settings.DefaultCacheConfig()
	if config.Settings.CacheSize > 0 {
		cfg.MaximumSize = config.Settings.CacheSize
	}
	if config.Settings.CacheTTL != "" {
		ttl, err := time.ParseDuration(config.Settings.CacheTTL)
		if err != nil {
			return cfg, fmt.Errorf("invalid settings cache_ttl: %w", err)
		}
		cfg.TTL = ttl
	}
	return cfg, nil
}

// invalidateSettings drops cached settings for app_settings change events
func (s *Services) invalidateSettings(ctx context.Context, event models.ChangeEvent) error {
	if event.Table == models.TableSettings {
		s.SettingsApp.HandleChange(event)
	}
	return nil
}

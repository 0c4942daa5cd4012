package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/liveballot/go/internal/models"
)

// ErrInvalidArgument marks requests rejected by validation
var ErrInvalidArgument = errors.New("invalid argument")

// SettingsRepository defines what the app layer needs from the repository
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (models.Setting, error)
	UpsertSetting(ctx context.Context, key, value string, metadata json.RawMessage) (models.Setting, error)
}

type CacheConfig struct {
	MaximumSize int
	TTL         time.Duration
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaximumSize: 1_000,
		TTL:         30 * time.Second,
	}
}

// App handles settings business logic. Reads are served from a TTL cache that is
// invalidated on every write and on every app_settings change notification.
type App struct {
	repo  SettingsRepository
	cache *otter.Cache[string, models.Setting]
}

// NewApp creates a new settings App
func NewApp(repo SettingsRepository, cfg CacheConfig) *App {
	return &App{
		repo: repo,
		cache: otter.Must(&otter.Options[string, models.Setting]{
			MaximumSize:      cfg.MaximumSize,
			ExpiryCalculator: otter.ExpiryWriting[string, models.Setting](cfg.TTL),
		}),
	}
}

// GetSetting returns the setting stored under key
func (a *App) GetSetting(ctx context.Context, key string) (models.Setting, error) {
	if key == "" {
		return models.Setting{}, fmt.Errorf("%w: key is required", ErrInvalidArgument)
	}
	// an invalidation while the row loads drops the load instead of caching it
	return a.cache.Get(ctx, key, otter.LoaderFunc[string, models.Setting](a.repo.GetSetting))
}

// UpsertSetting validates and stores a setting
func (a *App) UpsertSetting(ctx context.Context, key, value string, metadata json.RawMessage) (models.Setting, error) {
	if err := validateSetting(key, value, metadata); err != nil {
		return models.Setting{}, err
	}

	s, err := a.repo.UpsertSetting(ctx, key, value, metadata)
	if err != nil {
		return models.Setting{}, err
	}
	a.cache.Invalidate(key)

	log.Info().Str("key", key).Str("value", value).Msg("setting updated")
	return s, nil
}

// Invalidate drops key from the read cache
func (a *App) Invalidate(key string) {
	a.cache.Invalidate(key)
}

// HandleChange invalidates the cached row named by an app_settings change event
func (a *App) HandleChange(event models.ChangeEvent) {
	if event.Table != models.TableSettings {
		return
	}
	var row struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(event.Record, &row); err != nil || row.Key == "" {
		log.Warn().Err(err).Str("event_id", event.ID.String()).Msg("change event without key, clearing settings cache")
		a.cache.InvalidateAll()
		return
	}
	a.cache.Invalidate(row.Key)
}

func validateSetting(key, value string, metadata json.RawMessage) error {
	if key == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidArgument)
	}
	if len(metadata) > 0 && !json.Valid(metadata) {
		return fmt.Errorf("%w: metadata is not valid JSON", ErrInvalidArgument)
	}
	if key == models.SettingVoteEndDate {
		if _, err := time.Parse(time.RFC3339Nano, value); err != nil {
			return fmt.Errorf("%w: %s must be an RFC 3339 timestamp: %v", ErrInvalidArgument, key, err)
		}
	}
	return nil
}

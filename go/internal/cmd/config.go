package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/liveballot/go/internal/models"
	"github.com/mcdev12/liveballot/go/internal/roster"
)

// Realtime delivery modes
const (
	// RealtimeLocal runs the LISTEN loop inside the API server
	RealtimeLocal = "local"
	// RealtimeJetStream consumes changes relayed through NATS JetStream
	RealtimeJetStream = "jetstream"
)

type Config struct {
	Server struct {
		Port       int    `yaml:"port"`
		AdminToken string `yaml:"admin_token"`
	} `yaml:"server"`
	Realtime struct {
		Mode    string `yaml:"mode"`
		NATSURL string `yaml:"nats_url"`
	} `yaml:"realtime"`
	Settings struct {
		CacheSize int    `yaml:"cache_size"`
		CacheTTL  string `yaml:"cache_ttl"`
	} `yaml:"settings"`
	Roster struct {
		Candidates []models.Candidate `yaml:"candidates"`
	} `yaml:"roster"`
}

func defaultConfig() *Config {
	var c Config
	c.Server.Port = 8080
	c.Realtime.Mode = RealtimeLocal
	return &c
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// loadConfig reads the YAML file at path, tolerating a missing file, then applies
// environment overrides
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.Server.Port = getEnvAsInt("PORT", config.Server.Port)
	config.Server.AdminToken = getEnv("ADMIN_TOKEN", config.Server.AdminToken)
	config.Realtime.Mode = getEnv("REALTIME_MODE", config.Realtime.Mode)
	config.Realtime.NATSURL = getEnv("NATS_URL", config.Realtime.NATSURL)

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	switch c.Realtime.Mode {
	case RealtimeLocal, RealtimeJetStream:
	default:
		return fmt.Errorf("unknown realtime mode %q", c.Realtime.Mode)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if len(c.Roster.Candidates) > 0 {
		if err := roster.Validate(c.Roster.Candidates); err != nil {
			return err
		}
	}
	return nil
}

// candidates returns the configured roster, or the default one
func (c *Config) candidates() []models.Candidate {
	if len(c.Roster.Candidates) == 0 {
		return roster.DefaultCandidates()
	}
	return c.Roster.Candidates
}

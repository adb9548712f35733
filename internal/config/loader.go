package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "planloom.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PLANLOOM_PORT")
	setString(&cfg.Server.CORSOrigin, "PLANLOOM_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "PLANLOOM_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "PLANLOOM_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "PLANLOOM_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "PLANLOOM_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "PLANLOOM_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.LiteLLM.URL, "LITELLM_URL")
	setString(&cfg.LiteLLM.MasterKey, "LITELLM_MASTER_KEY")
	setString(&cfg.Logging.Level, "PLANLOOM_LOG_LEVEL")
	setString(&cfg.Logging.Service, "PLANLOOM_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "PLANLOOM_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "PLANLOOM_BREAKER_TIMEOUT")
	setString(&cfg.Chat.Model, "PLANLOOM_CHAT_MODEL")
	setInt(&cfg.Chat.MaxTurns, "PLANLOOM_CHAT_MAX_TURNS")
	setInt(&cfg.Orchestrator.MaxRounds, "PLANLOOM_MAX_ROUNDS")
	setInt(&cfg.Orchestrator.MaxReviewers, "PLANLOOM_MAX_REVIEWERS")
	setDuration(&cfg.Orchestrator.GenerationTimeout, "PLANLOOM_GENERATION_TIMEOUT")
	setString(&cfg.Orchestrator.DeliverableModel, "PLANLOOM_DELIVERABLE_MODEL")
	setInt(&cfg.Orchestrator.MaxTokens, "PLANLOOM_MAX_TOKENS")
	setBool(&cfg.Telemetry.Enabled, "PLANLOOM_OTEL_ENABLED")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setInt64(&cfg.Cache.MaxBytes, "PLANLOOM_CACHE_MAX_BYTES")
	setDuration(&cfg.Cache.ViewTTL, "PLANLOOM_CACHE_VIEW_TTL")
}

// validate rejects configurations that cannot produce a working service.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Orchestrator.MaxRounds < 1 {
		return fmt.Errorf("orchestrator.max_rounds must be >= 1, got %d", cfg.Orchestrator.MaxRounds)
	}
	if cfg.Orchestrator.MaxReviewers < 1 {
		return fmt.Errorf("orchestrator.max_reviewers must be >= 1, got %d", cfg.Orchestrator.MaxReviewers)
	}
	if cfg.Orchestrator.GenerationTimeout <= 0 {
		return errors.New("orchestrator.generation_timeout must be positive")
	}
	if cfg.Chat.MaxTurns < 1 {
		return fmt.Errorf("chat.max_turns must be >= 1, got %d", cfg.Chat.MaxTurns)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

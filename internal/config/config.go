// Package config loads service settings from the environment and an optional .env file.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Skufu/symptomdx/pkg/errors"
)

type Config struct {
	App      AppConfig
	Model    ModelConfig
	Database DatabaseConfig
	AI       AIConfig
	Redis    RedisConfig
	Sentry   SentryConfig
}

type AppConfig struct {
	Port         string `envconfig:"PORT" default:"8080"`
	GinMode      string `envconfig:"GIN_MODE" default:"release"`
	Env          string `envconfig:"APP_ENV" default:"development"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	MaxBodyBytes int64  `envconfig:"MAX_BODY_BYTES" default:"1048576"`
}

type ModelConfig struct {
	ModelPath  string `envconfig:"MODEL_PATH" default:"model/diagnostics_model.gob"`
	LabelsPath string `envconfig:"LABELS_PATH" default:"model/labels.gob"`
	DataPath   string `envconfig:"DATA_PATH" default:"data/sample_training.csv"`
}

type DatabaseConfig struct {
	Enabled    bool   `envconfig:"ENABLE_DB" default:"false"`
	Driver     string `envconfig:"DB_DRIVER" default:"postgres"`
	URL        string `envconfig:"DATABASE_URL"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"data/predictions.db"`
}

// DSN is the connection string for the configured driver.
func (c DatabaseConfig) DSN() string {
	if c.Driver == "sqlite" {
		return c.SQLitePath
	}
	return c.URL
}

type AIConfig struct {
	APIKey     string        `envconfig:"DIAG_AI_API_KEY"`
	Endpoint   string        `envconfig:"DIAG_AI_ENDPOINT" default:"https://api.openai.com/v1"`
	Model      string        `envconfig:"DIAG_AI_MODEL" default:"gpt-3.5-turbo"`
	Timeout    time.Duration `envconfig:"DIAG_AI_TIMEOUT" default:"30s"`
	RatePerMin int           `envconfig:"DIAG_AI_RATE_PER_MIN" default:"60"`
	CacheTTL   time.Duration `envconfig:"EXPLAIN_CACHE_TTL" default:"1h"`
}

func (c AIConfig) Enabled() bool {
	return c.APIKey != ""
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type SentryConfig struct {
	DSN string `envconfig:"SENTRY_DSN"`
}

func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadAI reads only the DIAG_AI_* and EXPLAIN_* settings. Database and server
// settings are neither read nor validated.
func LoadAI() (AIConfig, error) {
	_ = godotenv.Load()

	var cfg AIConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to process AI config")
	}
	if cfg.RatePerMin < 0 {
		return cfg, errors.NewValidationError("DIAG_AI_RATE_PER_MIN", "must not be negative", cfg.RatePerMin)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return errors.NewValidationError("DB_DRIVER", "must be postgres or sqlite", c.Database.Driver)
	}
	if c.Database.Enabled && c.Database.Driver == "postgres" && c.Database.URL == "" {
		return errors.NewValidationError("DATABASE_URL", "required when ENABLE_DB=true", "")
	}
	if c.App.MaxBodyBytes <= 0 {
		return errors.NewValidationError("MAX_BODY_BYTES", "must be positive", c.App.MaxBodyBytes)
	}
	if c.AI.RatePerMin < 0 {
		return errors.NewValidationError("DIAG_AI_RATE_PER_MIN", "must not be negative", c.AI.RatePerMin)
	}
	return nil
}

// Package config loads and validates environment variables at startup.
// Fail-fast: an invalid value stops the process before any file is touched.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"jobmate/jobtracker/internal/apperr"
	"jobmate/jobtracker/internal/jsonfile"
	"jobmate/jobtracker/internal/model"
	"jobmate/jobtracker/internal/scoring"
)

// Config holds all runtime configuration.
type Config struct {
	DataDir     string `env:"DATA_DIR"     envDefault:"./data"`
	ProfilePath string `env:"PROFILE_PATH" envDefault:"./profile.yaml"`
	Port        string `env:"TRACKER_PORT" envDefault:"8082"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"`

	Store   StoreConfig
	Weights WeightsConfig `envPrefix:"WEIGHT_"`

	ScoringWorkers       int `env:"SCORING_WORKERS"        envDefault:"4"`
	ScrapeIntervalHours  int `env:"SCRAPE_INTERVAL_HOURS"  envDefault:"6"`
	RescoreIntervalHours int `env:"RESCORE_INTERVAL_HOURS" envDefault:"1"`

	// Optional infrastructure; empty disables the PostgreSQL export and the
	// Redis keyword cache.
	DatabaseURL     string        `env:"DATABASE_URL"`
	RedisURL        string        `env:"REDIS_URL"`
	KeywordCacheTTL time.Duration `env:"KEYWORD_CACHE_TTL" envDefault:"24h"`
	ExportCSVPath   string        `env:"EXPORT_CSV_PATH"`

	AdzunaAppID   string `env:"ADZUNA_APP_ID"`
	AdzunaAppKey  string `env:"ADZUNA_APP_KEY"`
	AdzunaCountry string `env:"ADZUNA_COUNTRY" envDefault:"fr"` // e.g. "fr", "gb", "us"
}

// StoreConfig tunes the JSON document retry policy.
type StoreConfig struct {
	MaxRetries       int           `env:"STORE_MAX_RETRIES"        envDefault:"3"`
	RetryDelay       time.Duration `env:"STORE_RETRY_DELAY"        envDefault:"100ms"`
	OpTimeout        time.Duration `env:"STORE_OP_TIMEOUT"         envDefault:"10s"`
	ErrorLogCapacity int           `env:"STORE_ERROR_LOG_CAPACITY" envDefault:"100"`
}

// File returns the jsonfile options for the store and the tracker.
func (s StoreConfig) File() jsonfile.Options {
	return jsonfile.Options{MaxRetries: s.MaxRetries, RetryDelay: s.RetryDelay, Timeout: s.OpTimeout}
}

type WeightsConfig struct {
	Keyword  float64 `env:"KEYWORD"  envDefault:"0.50"`
	Salary   float64 `env:"SALARY"   envDefault:"0.25"`
	Location float64 `env:"LOCATION" envDefault:"0.15"`
	JobType  float64 `env:"JOB_TYPE" envDefault:"0.10"`
}

// Model converts to the scoring weight vector.
func (w WeightsConfig) Model() model.Weights {
	return model.Weights{KeywordMatch: w.Keyword, SalaryMatch: w.Salary, LocationMatch: w.Location, JobTypeMatch: w.JobType}
}

// Load reads an optional .env file and the environment, and returns a
// validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}
	return parse(env.Options{})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, apperr.Configf("parse config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and the weight vector.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return apperr.Configf("DATA_DIR must not be empty")
	}
	if c.Store.MaxRetries < 1 {
		return apperr.Configf("STORE_MAX_RETRIES must be at least 1, got %d", c.Store.MaxRetries)
	}
	if c.Store.RetryDelay < 0 || c.Store.OpTimeout < 0 {
		return apperr.Configf("STORE_RETRY_DELAY and STORE_OP_TIMEOUT must not be negative")
	}
	if c.Store.ErrorLogCapacity < 1 {
		return apperr.Configf("STORE_ERROR_LOG_CAPACITY must be positive, got %d", c.Store.ErrorLogCapacity)
	}
	if c.ScoringWorkers < 1 {
		return apperr.Configf("SCORING_WORKERS must be positive, got %d", c.ScoringWorkers)
	}
	if c.ScrapeIntervalHours < 1 {
		return apperr.Configf("SCRAPE_INTERVAL_HOURS must be a positive integer, got %d", c.ScrapeIntervalHours)
	}
	if c.RescoreIntervalHours < 1 {
		return apperr.Configf("RESCORE_INTERVAL_HOURS must be a positive integer, got %d", c.RescoreIntervalHours)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return scoring.ValidateWeights(c.Weights.Model())
}

// SlogLevel parses LOG_LEVEL ("debug", "info", "warn", "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, apperr.Configf("LOG_LEVEL %q: %v", c.LogLevel, err)
	}
	return lvl, nil
}

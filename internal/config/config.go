// Package config handles loading and parsing application configuration.
// The YAML file is optional and located through (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Without a file, values come from the environment and the env-default tags.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file and can be overridden by the
// corresponding environment variable.
type Config struct {
	// Env controls log format and verbosity: "dev", "staging" or "prod".
	Env string `yaml:"env" env:"ENV" env-default:"dev" validate:"oneof=dev staging prod"`

	Storage    Storage    `yaml:"storage"`
	HTTPServer HTTPServer `yaml:"http_server"`
	CORS       CORS       `yaml:"cors"`
	Metrics    Metrics    `yaml:"metrics"`
}

// Storage selects the record store.
type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"memory" validate:"oneof=memory sqlite"`

	// Path is the SQLite DSN; ignored by the memory driver.
	Path string `yaml:"path" env:"STORAGE_PATH" env-default:":memory:"`

	// SkipSeed starts with empty collections instead of the sample data.
	SkipSeed bool `yaml:"skip_seed" env:"STORAGE_SKIP_SEED"`
}

// HTTPServer holds settings specific to the HTTP server.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:3000".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-default:"localhost:3000" validate:"required"`

	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_SERVER_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SERVER_SHUTDOWN_TIMEOUT" env-default:"5s"`

	// MaxBodyBytes caps request bodies; 0 disables the cap.
	MaxBodyBytes int64 `yaml:"max_body_bytes" env:"HTTP_SERVER_MAX_BODY_BYTES" env-default:"1048576" validate:"gte=0"`
}

// CORS lists the origins allowed to call the API from a browser.
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*" env-separator:","`
}

// Metrics shapes the Prometheus series exposed on /metrics.
type Metrics struct {
	Namespace string `yaml:"namespace" env:"METRICS_NAMESPACE" env-default:"enrollment" validate:"required"`

	// LatencyBuckets are the request latency histogram bounds in
	// milliseconds. Empty keeps the built-in buckets.
	LatencyBuckets []float64 `yaml:"latency_buckets" env:"METRICS_LATENCY_BUCKETS" env-separator:"," validate:"dive,gt=0"`
}

// ResolvePath picks the config file path: CONFIG_PATH wins over the flag.
func ResolvePath(flagValue string) string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return flagValue
}

// Load reads the configuration from path, or from the environment alone
// when path is empty, and validates it.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read environment: %w", err)
		}
	} else {
		// A clear message beats a cryptic "open: no such file" later.
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Tracker holds all configuration for the tracker service.
type Tracker struct {
	// Network
	BindAddress string `yaml:"bind_address" env:"PATHTRACKER_BIND_ADDRESS"`
	Port        int    `yaml:"port" env:"PATHTRACKER_PORT"`

	// HTTP timeouts
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"PATHTRACKER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"PATHTRACKER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"PATHTRACKER_SHUTDOWN_TIMEOUT"`

	// Storage backend: postgres or memory
	Storage string `yaml:"storage" env:"PATHTRACKER_STORAGE"`

	// Database
	Database DatabaseConfig `yaml:"database" envPrefix:"PATHTRACKER_DB_"`

	// Engine
	Engine EngineConfig `yaml:"engine" envPrefix:"PATHTRACKER_ENGINE_"`

	// Logging: debug, info, warn, error
	LogLevel string `yaml:"log_level" env:"PATHTRACKER_LOG_LEVEL"`
}

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	DBName   string `yaml:"dbname" env:"NAME"`
	SSLMode  string `yaml:"sslmode" env:"SSLMODE"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// EngineConfig tunes the bonus aggregator.
type EngineConfig struct {
	// CacheSize is the number of memoized sheets; 0 disables the cache.
	CacheSize int `yaml:"cache_size" env:"CACHE_SIZE"`

	// Trace logs every stacking decision at debug level.
	Trace bool `yaml:"trace" env:"TRACE"`

	// DiceSeed seeds the roller; 0 picks a seed from the clock.
	DiceSeed uint64 `yaml:"dice_seed" env:"DICE_SEED"`
}

// DefaultTracker returns Tracker config with sensible defaults.
func DefaultTracker() Tracker {
	return Tracker{
		BindAddress:     "0.0.0.0",
		Port:            8080,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		LogLevel:        "info",
		Storage:         StoragePostgres,
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "pathtracker",
			Password: "pathtracker",
			DBName:   "pathtracker",
			SSLMode:  "disable",
		},
		Engine: EngineConfig{
			CacheSize: 256,
		},
	}
}

// LoadTracker loads tracker config from a YAML file, then applies
// PATHTRACKER_* environment overrides.
// If the file doesn't exist, defaults are used as the base.
func LoadTracker(path string) (Tracker, error) {
	cfg := DefaultTracker()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults
	default:
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing env overrides: %w", err)
	}

	return cfg, nil
}

// Addr returns host:port for the HTTP listener.
func (t Tracker) Addr() string {
	return fmt.Sprintf("%s:%d", t.BindAddress, t.Port)
}

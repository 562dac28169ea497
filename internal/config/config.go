// Package config loads the core's environment-sourced configuration
// surface: database, cache, pipeline profile overrides, migrations, and
// backup scheduling. YAML is the file format; environment variables
// override file values for secrets and per-deployment tuning.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration object returned by Load.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	Backup     BackupConfig     `yaml:"backup"`
	Migrations MigrationsConfig `yaml:"migrations"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	MetricsPort string `yaml:"metrics_port"`
}

type DatabaseConfig struct {
	Engine                 string        `yaml:"engine"` // "postgres" or "sqlite"
	URL                    string        `yaml:"url"`
	PoolSize               int           `yaml:"pool_size"`
	PoolOverflow           int           `yaml:"pool_overflow"`
	PoolTimeout            time.Duration `yaml:"pool_timeout"`
	PoolRecycle            time.Duration `yaml:"pool_recycle"`
	StatementTimeout       time.Duration `yaml:"statement_timeout"`
	SlowQueryThreshold     time.Duration `yaml:"slow_query_threshold"`
	DetailedLogging        bool          `yaml:"detailed_logging"`
	FilePath               string        `yaml:"file_path"` // sqlite backend
}

type CacheConfig struct {
	Mode                string        `yaml:"mode"` // "single", "sentinel", "cluster"
	Addrs               []string      `yaml:"addrs"`
	SerializationFormat string        `yaml:"serialization_format"` // "json" or "binary"
	CompressionBytes    int           `yaml:"compression_threshold_bytes"`
	L1Capacity          int           `yaml:"l1_capacity"`
	L1DefaultTTL        time.Duration `yaml:"l1_default_ttl"`
	BreakerFailures     uint32        `yaml:"breaker_failure_threshold"`
	BreakerRecovery     time.Duration `yaml:"breaker_recovery_timeout"`
}

type BackupConfig struct {
	LocalPath        string `yaml:"local_path"`
	RetentionDays    int    `yaml:"retention_days"`
	WorkerConcurrency int   `yaml:"worker_concurrency"`
	Compression      string `yaml:"compression"` // "none", "gzip", "bzip2"
	ObjectStoreBucket string `yaml:"object_store_bucket"`
}

type MigrationsConfig struct {
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
}

// PipelineConfig carries per-profile overrides on top of the four built-in
// canonical profiles (§4.2); the zero value means "use the built-in
// default".
type PipelineConfig struct {
	ConfidenceThresholdOverrides map[string]float64 `yaml:"confidence_threshold_overrides"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads path, parses it as YAML into a Config, applies defaults,
// overlays environment variables, and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := defaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{MetricsPort: "9090"},
		Database: DatabaseConfig{
			Engine:             "postgres",
			PoolSize:           10,
			PoolOverflow:       5,
			PoolTimeout:        30 * time.Second,
			PoolRecycle:        30 * time.Minute,
			StatementTimeout:   30 * time.Second,
			SlowQueryThreshold: 1 * time.Second,
		},
		Cache: CacheConfig{
			Mode:                "single",
			SerializationFormat: "json",
			CompressionBytes:    1024,
			L1Capacity:          10000,
			L1DefaultTTL:        5 * time.Minute,
			BreakerFailures:     10,
			BreakerRecovery:     60 * time.Second,
		},
		Backup: BackupConfig{
			LocalPath:         "./backups",
			RetentionDays:     30,
			WorkerConcurrency: 2,
			Compression:       "gzip",
		},
		Migrations: MigrationsConfig{
			Path:    "./migrations",
			Timeout: 5 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("DATABASE_ENGINE"); v != "" {
		cfg.Database.Engine = v
	}
	if v := os.Getenv("CACHE_ADDRS"); v != "" {
		cfg.Cache.Addrs = []string{v}
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		cfg.Server.MetricsPort = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BACKUP_LOCAL_PATH"); v != "" {
		cfg.Backup.LocalPath = v
	}
	if v := os.Getenv("BACKUP_RETENTION_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BACKUP_RETENTION_DAYS: %w", err)
		}
		cfg.Backup.RetentionDays = n
	}
	if v := os.Getenv("MIGRATIONS_PATH"); v != "" {
		cfg.Migrations.Path = v
	}
	return nil
}

func validate(cfg *Config) error {
	switch cfg.Database.Engine {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database engine %q", cfg.Database.Engine)
	}
	if cfg.Database.Engine == "postgres" && cfg.Database.URL == "" {
		return fmt.Errorf("database url is required for postgres engine")
	}
	if cfg.Database.Engine == "sqlite" && cfg.Database.FilePath == "" {
		cfg.Database.FilePath = "./data/core.db"
	}
	if cfg.Database.PoolSize <= 0 {
		return fmt.Errorf("database pool size must be greater than 0")
	}
	switch cfg.Cache.Mode {
	case "single", "sentinel", "cluster":
	default:
		return fmt.Errorf("unsupported cache mode %q", cfg.Cache.Mode)
	}
	switch cfg.Cache.SerializationFormat {
	case "json", "binary":
	default:
		return fmt.Errorf("unsupported cache serialization format %q", cfg.Cache.SerializationFormat)
	}
	switch cfg.Backup.Compression {
	case "none", "gzip", "bzip2":
	default:
		return fmt.Errorf("unsupported backup compression %q", cfg.Backup.Compression)
	}
	if cfg.Backup.WorkerConcurrency <= 0 {
		return fmt.Errorf("backup worker concurrency must be greater than 0")
	}
	return nil
}

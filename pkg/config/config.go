package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/docker/go-units"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. ITSBENCH_DATABASE_DRIVER overrides database.driver.
const EnvPrefix = "ITSBENCH"

// Default configuration values.
const (
	DefaultLogLevel          = "info"
	DefaultListen            = ":8080"
	DefaultDatabaseDriver    = "sqlite"
	DefaultSQLitePath        = "itsbench.db"
	DefaultPostgresPort      = 5432
	DefaultPostgresSSLMode   = "disable"
	DefaultBatchSize         = 100
	DefaultMaxUploadSize     = "50MB"
	DefaultConcurrency       = 3
	DefaultRequestsPerMinute = 60
)

// Config is the root configuration.
type Config struct {
	Global     GlobalConfig     `yaml:"global" mapstructure:"global"`
	Database   DatabaseConfig   `yaml:"database" mapstructure:"database"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Auth       AuthConfig       `yaml:"auth" mapstructure:"auth"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Processing ProcessingConfig `yaml:"processing" mapstructure:"processing"`
	ModelMaps  []ModelMapConfig `yaml:"model_maps,omitempty" mapstructure:"model_maps"`
}

// GlobalConfig contains process-wide settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver    string               `yaml:"driver" mapstructure:"driver"`
	SQLite    SQLiteDatabaseConfig `yaml:"sqlite,omitempty" mapstructure:"sqlite"`
	Postgres  PostgresConfig       `yaml:"postgres,omitempty" mapstructure:"postgres"`
	BatchSize int                  `yaml:"batch_size,omitempty" mapstructure:"batch_size"`
}

// SQLiteDatabaseConfig contains SQLite-specific settings.
type SQLiteDatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"ssl_mode" mapstructure:"ssl_mode"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Listen      string          `yaml:"listen" mapstructure:"listen"`
	CORSOrigins []string        `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit,omitempty" mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-IP rate limiting of admin endpoints.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// AuthConfig contains admin credentials. Admin endpoints are open when no
// admin is configured.
type AuthConfig struct {
	Admins []AdminUser `yaml:"admins,omitempty" mapstructure:"admins"`
}

// AdminUser is a basic auth credential for admin endpoints.
type AdminUser struct {
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// IngestConfig contains run ingestion settings.
type IngestConfig struct {
	MaxUploadSize string       `yaml:"max_upload_size" mapstructure:"max_upload_size"`
	Source        SourceConfig `yaml:"source,omitempty" mapstructure:"source"`
}

// SourceConfig selects where run export files are read from. At most one
// backend may be enabled.
type SourceConfig struct {
	Local LocalSourceConfig `yaml:"local,omitempty" mapstructure:"local"`
	S3    S3SourceConfig    `yaml:"s3,omitempty" mapstructure:"s3"`
}

// LocalSourceConfig reads export files from a directory.
type LocalSourceConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Directory string `yaml:"directory" mapstructure:"directory"`
}

// S3SourceConfig reads export files from an S3-compatible bucket.
type S3SourceConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	EndpointURL     string `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	Region          string `yaml:"region,omitempty" mapstructure:"region"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
	Prefix          string `yaml:"prefix,omitempty" mapstructure:"prefix"`
}

// IsConfigured returns true if any source backend is enabled.
func (s *SourceConfig) IsConfigured() bool {
	return s.Local.Enabled || s.S3.Enabled
}

// ProcessingConfig contains re-derivation settings.
type ProcessingConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ModelMapConfig seeds one model map entry.
type ModelMapConfig struct {
	ModelName string `yaml:"model_name" mapstructure:"model_name"`
	BaseModel string `yaml:"base_model" mapstructure:"base_model"`
}

// setDefaults registers every defaulted key. Registering a key also makes
// it overridable from the environment.
func setDefaults(v *viper.Viper) {
	v.SetDefault("global.log_level", DefaultLogLevel)

	v.SetDefault("database.driver", DefaultDatabaseDriver)
	v.SetDefault("database.sqlite.path", DefaultSQLitePath)
	v.SetDefault("database.postgres.host", "")
	v.SetDefault("database.postgres.port", DefaultPostgresPort)
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.database", "")
	v.SetDefault("database.postgres.ssl_mode", DefaultPostgresSSLMode)
	v.SetDefault("database.batch_size", DefaultBatchSize)

	v.SetDefault("server.listen", DefaultListen)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.rate_limit.enabled", false)
	v.SetDefault("server.rate_limit.requests_per_minute", DefaultRequestsPerMinute)

	v.SetDefault("ingest.max_upload_size", DefaultMaxUploadSize)
	v.SetDefault("ingest.source.local.enabled", false)
	v.SetDefault("ingest.source.local.directory", "")
	v.SetDefault("ingest.source.s3.enabled", false)
	v.SetDefault("ingest.source.s3.endpoint_url", "")
	v.SetDefault("ingest.source.s3.region", "")
	v.SetDefault("ingest.source.s3.bucket", "")
	v.SetDefault("ingest.source.s3.access_key_id", "")
	v.SetDefault("ingest.source.s3.secret_access_key", "")
	v.SetDefault("ingest.source.s3.force_path_style", false)
	v.SetDefault("ingest.source.s3.prefix", "")

	v.SetDefault("processing.concurrency", DefaultConcurrency)
}

// Load reads and merges the given configuration files in order, applies
// defaults and ITSBENCH_* environment overrides. With no paths only
// defaults and the environment are used.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if i == 0 {
			err = v.ReadConfig(bytes.NewReader(data))
		} else {
			err = v.MergeConfig(bytes.NewReader(data))
		}

		if err != nil {
			return nil, fmt.Errorf("parsing config file %q: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating config decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return &cfg, nil
}

// MaxUploadBytes returns ingest.max_upload_size in bytes. Units are
// binary, so "50MB" is 50 MiB.
func (c *IngestConfig) MaxUploadBytes() (int64, error) {
	size, err := units.RAMInBytes(c.MaxUploadSize)
	if err != nil {
		return 0, fmt.Errorf("parsing max_upload_size %q: %w", c.MaxUploadSize, err)
	}

	return size, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required")
		}
	case "postgres":
		if c.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}

		if c.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Database.BatchSize <= 0 {
		return fmt.Errorf("database.batch_size must be positive")
	}

	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_minute must be positive")
	}

	seen := make(map[string]struct{}, len(c.Auth.Admins))

	for i, admin := range c.Auth.Admins {
		if admin.Username == "" {
			return fmt.Errorf("auth.admins[%d]: username is required", i)
		}

		if admin.Password == "" {
			return fmt.Errorf("auth.admins[%d]: password is required", i)
		}

		if _, exists := seen[admin.Username]; exists {
			return fmt.Errorf("auth.admins[%d]: duplicate username %q", i, admin.Username)
		}

		seen[admin.Username] = struct{}{}
	}

	size, err := c.Ingest.MaxUploadBytes()
	if err != nil {
		return err
	}

	if size <= 0 {
		return fmt.Errorf("ingest.max_upload_size must be positive")
	}

	if err := c.Ingest.Source.Validate(); err != nil {
		return fmt.Errorf("ingest.source: %w", err)
	}

	if c.Processing.Concurrency <= 0 {
		return fmt.Errorf("processing.concurrency must be positive")
	}

	for i, m := range c.ModelMaps {
		if m.ModelName == "" {
			return fmt.Errorf("model_maps[%d]: model_name is required", i)
		}
	}

	return nil
}

// Validate checks that at most one backend is enabled and that the enabled
// one is complete.
func (s *SourceConfig) Validate() error {
	if s.Local.Enabled && s.S3.Enabled {
		return fmt.Errorf("only one of local or s3 may be enabled")
	}

	if s.Local.Enabled {
		info, err := os.Stat(s.Local.Directory)
		if err != nil {
			return fmt.Errorf("local directory %q: %w", s.Local.Directory, err)
		}

		if !info.IsDir() {
			return fmt.Errorf("local directory %q is not a directory", s.Local.Directory)
		}
	}

	if s.S3.Enabled && s.S3.Bucket == "" {
		return fmt.Errorf("s3 bucket is required")
	}

	return nil
}

// Package config loads nimbusbridge configuration from defaults, an optional
// YAML file, NIMBUSBRIDGE_* environment variables and runtime overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/3leaps/nimbusbridge/pkg/provider"
)

// Config is the complete runtime configuration.
type Config struct {
	// Provider selects the collaborator backend: "s3" or "file".
	Provider string `mapstructure:"provider"`

	S3      S3Config      `mapstructure:"s3"`
	File    FileConfig    `mapstructure:"file"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
	Debug   DebugConfig   `mapstructure:"debug"`
}

// S3Config mirrors s3.Config.
type S3Config struct {
	Region          string  `mapstructure:"region"`
	Endpoint        string  `mapstructure:"endpoint"`
	Profile         string  `mapstructure:"profile"`
	AccessKeyID     string  `mapstructure:"access_key_id"`
	SecretAccessKey string  `mapstructure:"secret_access_key"`
	ForcePathStyle  bool    `mapstructure:"force_path_style"`
	PartSizeMB      int64   `mapstructure:"part_size_mb"`
	Concurrency     int     `mapstructure:"concurrency"`
	RateLimit       float64 `mapstructure:"rate_limit"`
}

// FileConfig configures the local filesystem backend.
type FileConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// ServerConfig configures the admin HTTP server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
}

// HealthConfig toggles the health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig toggles debug facilities of the admin server.
type DebugConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}

// Validate checks cross-field consistency after decoding.
func (c *Config) Validate() error {
	switch provider.ProviderType(strings.ToLower(c.Provider)) {
	case provider.ProviderS3:
	case provider.ProviderFile:
		if strings.TrimSpace(c.File.BaseDir) == "" {
			return fmt.Errorf("file.base_dir is required when provider is %q", provider.ProviderFile)
		}
	default:
		return fmt.Errorf("unsupported provider %q (expected %s or %s)", c.Provider, provider.ProviderS3, provider.ProviderFile)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port out of range: %d", c.Metrics.Port)
	}
	return nil
}

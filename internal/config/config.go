// Package config loads colDB settings from an optional config file and
// COLDB_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix. COLDB_LOG_LEVEL maps to
// log.level.
const EnvPrefix = "COLDB_"

type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Storage StorageConfig `mapstructure:"storage"`
	Writer  WriterConfig  `mapstructure:"writer"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig selects the storage backend. An empty Dir keeps everything
// in memory; otherwise the commit journal lives in Dir.
type StorageConfig struct {
	Dir string `mapstructure:"dir"`
}

// WriterConfig controls table writer checkout. Zero Timeout fails at once
// when the table's writer is taken.
type WriterConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.format", "text")
	v.SetDefault("storage.dir", "")
	v.SetDefault("writer.timeout", "0s")
	v.SetDefault("metrics.addr", "")
}

// Load reads path (if non-empty), then overlays environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// 1. Config file
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	// 2. Environment variables: COLDB_STORAGE_DIR -> storage.dir
	for _, envStr := range os.Environ() {
		key, value, ok := strings.Cut(envStr, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		propKey := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, EnvPrefix), "_", "."))
		v.Set(strings.TrimPrefix(propKey, "."), value)
	}

	// 3. Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.Writer.Timeout < 0 {
		return nil, fmt.Errorf("config: writer.timeout must not be negative, got %s", cfg.Writer.Timeout)
	}
	return &cfg, nil
}

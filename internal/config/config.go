// Package config resolves operator configuration.
//
// Configuration hierarchy (highest to lowest priority):
//  1. CLI flags
//  2. Environment variables (TRUTHGRAPH_*)
//  3. Config file ($HOME/.truthgraph/config.yaml or --config)
//  4. Defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roach88/truthgraph/internal/store"
)

// EnvPrefix prefixes every environment variable read by the CLI.
const EnvPrefix = "TRUTHGRAPH"

// Keys.
const (
	KeyDatabase       = "database"
	KeyMaxOpenConns   = "max_open_conns"
	KeyBusyTimeoutMS  = "busy_timeout_ms"
	KeySchema         = "schema"
	KeyCacheTTL       = "cache_ttl"
	KeyGapConcurrency = "gap_concurrency"
	KeyVerbose        = "verbose"
	KeyFormat         = "format"
)

// Config is the resolved configuration.
type Config struct {
	Database       string        `mapstructure:"database" yaml:"database"`
	MaxOpenConns   int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	BusyTimeoutMS  int           `mapstructure:"busy_timeout_ms" yaml:"busy_timeout_ms"`
	Schema         string        `mapstructure:"schema" yaml:"schema"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	GapConcurrency int           `mapstructure:"gap_concurrency" yaml:"gap_concurrency"`
	Verbose        bool          `mapstructure:"verbose" yaml:"verbose"`
	Format         string        `mapstructure:"format" yaml:"format"`
}

// Default returns the built-in defaults.
func Default() Config {
	opts := store.DefaultOptions()
	return Config{
		Database:       "truthgraph.db",
		MaxOpenConns:   opts.MaxOpenConns,
		BusyTimeoutMS:  opts.BusyTimeoutMS,
		CacheTTL:       5 * time.Minute,
		GapConcurrency: 4,
		Format:         "text",
	}
}

// SetDefaults registers the defaults on v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyDatabase, d.Database)
	v.SetDefault(KeyMaxOpenConns, d.MaxOpenConns)
	v.SetDefault(KeyBusyTimeoutMS, d.BusyTimeoutMS)
	v.SetDefault(KeySchema, d.Schema)
	v.SetDefault(KeyCacheTTL, d.CacheTTL)
	v.SetDefault(KeyGapConcurrency, d.GapConcurrency)
	v.SetDefault(KeyVerbose, d.Verbose)
	v.SetDefault(KeyFormat, d.Format)
}

// Init points v at the config file and environment. An explicit cfgFile
// must exist; the default location is optional. Returns the file read, or
// "" when none was found.
func Init(v *viper.Viper, cfgFile string) (string, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return v.ConfigFileUsed(), nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".truthgraph"))
	}
	v.SetConfigType("yaml")
	v.SetConfigName("config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("read config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Load resolves a Config from v and validates it.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var problems []string
	if c.Database == "" {
		problems = append(problems, "database must be set")
	}
	if c.MaxOpenConns < 1 {
		problems = append(problems, "max_open_conns must be at least 1")
	}
	if c.BusyTimeoutMS < 0 {
		problems = append(problems, "busy_timeout_ms must not be negative")
	}
	if c.CacheTTL < 0 {
		problems = append(problems, "cache_ttl must not be negative")
	}
	if c.GapConcurrency < 1 {
		problems = append(problems, "gap_concurrency must be at least 1")
	}
	switch c.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("format must be text or json, got %q", c.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// StoreOptions returns the store options for this configuration.
func (c Config) StoreOptions() store.Options {
	return store.Options{MaxOpenConns: c.MaxOpenConns, BusyTimeoutMS: c.BusyTimeoutMS}
}

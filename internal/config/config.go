// Package config loads MemoryVault settings from flags, environment and an
// optional YAML file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read by Load. Sections are
// separated by a double underscore, e.g. MEMORYVAULT_SERVER__ADDR.
const EnvPrefix = "MEMORYVAULT_"

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Storage StorageConfig `koanf:"storage"`
	Log     LogConfig     `koanf:"log"`
	Sync    SyncConfig    `koanf:"sync"`
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required"`
}

// StorageConfig selects where cards live.
type StorageConfig struct {
	Driver string `koanf:"driver" validate:"required,oneof=memory sqlite"`
	Path   string `koanf:"path" validate:"required_if=Driver sqlite"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `koanf:"level" validate:"required,oneof=debug info warn error"`
	Format string `koanf:"format" validate:"required,oneof=json text"`
}

// SyncConfig controls deck imports.
type SyncConfig struct {
	ReposDir string `koanf:"repos_dir" validate:"required"`
}

var validate = validator.New()

// Flags returns the flag set whose names match the config keys. Flag
// defaults are the configuration defaults.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "Path to a YAML config file")
	fs.String("server.addr", "127.0.0.1:5000", "HTTP listen address")
	fs.String("storage.driver", "sqlite", "Card store: memory or sqlite")
	fs.String("storage.path", "memoryvault.db", "Path to the SQLite database file")
	fs.String("log.level", "info", "Log level: debug, info, warn or error")
	fs.String("log.format", "json", "Log format: json or text")
	fs.String("sync.repos_dir", "repos", "Directory for git deck checkouts")
	return fs
}

// Load builds the configuration from a parsed flag set. Explicit flags win
// over environment variables, which win over the config file, which wins
// over flag defaults.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	path, err := fs.GetString("config")
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// envKey maps MEMORYVAULT_STORAGE__PATH to storage.path.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Package config loads dealbook settings from an optional dealbook.yaml and
// DEALBOOK_* environment variables.
//
// Precedence, highest first: command-line flags (applied by the caller),
// environment, config file, defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/dealbook/internal/ledger"
)

const (
	fileName = "dealbook"
	fileType = "yaml"

	// EnvPrefix prefixes every environment override, e.g. DEALBOOK_DB.
	EnvPrefix = "DEALBOOK"

	// EnvConfigDir overrides the config directory when --config-dir is unset.
	EnvConfigDir = "DEALBOOK_CONFIG_DIR"
)

// Config keys.
const (
	KeyDB           = "db"
	KeyLogLevel     = "log.level"
	KeyDefaultLimit = "events.default_limit"
)

// Defaults.
const (
	DefaultDB       = "dealbook.db"
	DefaultLogLevel = "warn"
)

// Config is the resolved configuration.
type Config struct {
	// DB is the SQLite database path.
	DB string

	// LogLevel is the minimum slog level.
	LogLevel slog.Level

	// DefaultEventLimit is the ledger page size when a caller sets none.
	DefaultEventLimit int

	// File is the config file that was read, or "" when none was found.
	File string
}

// ResolveDir returns the config directory:
// flag > DEALBOOK_CONFIG_DIR > $XDG_CONFIG_HOME/dealbook > ~/.config/dealbook.
func ResolveDir(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, "dealbook"), nil
}

// Load reads dealbook.yaml from dir. A missing file or directory is not an
// error; defaults and environment still apply.
func Load(dir string) (Config, error) {
	v := viper.New()
	v.SetDefault(KeyDB, DefaultDB)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyDefaultLimit, ledger.DefaultLimit)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(fileName)
	v.SetConfigType(fileType)
	if dir != "" {
		v.AddConfigPath(dir)
	}

	var file string
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		file = v.ConfigFileUsed()
	}

	return decode(v, file)
}

func decode(v *viper.Viper, file string) (Config, error) {
	cfg := Config{
		DB:                strings.TrimSpace(v.GetString(KeyDB)),
		DefaultEventLimit: v.GetInt(KeyDefaultLimit),
		File:              file,
	}
	if cfg.DB == "" {
		cfg.DB = DefaultDB
	}

	level, err := ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	if cfg.DefaultEventLimit < 1 || cfg.DefaultEventLimit > ledger.MaxLimit {
		return Config{}, fmt.Errorf("%s must be between 1 and %d, got %d",
			KeyDefaultLimit, ledger.MaxLimit, cfg.DefaultEventLimit)
	}
	return cfg, nil
}

// ParseLevel accepts debug, info, warn or error (any case).
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid %s %q: use debug, info, warn or error", KeyLogLevel, s)
	}
	return level, nil
}

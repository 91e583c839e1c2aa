// Package config loads board settings from flags, SCRUMBOARD_* environment
// variables and an optional YAML file, in that order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"scrumboard/internal/lifecycle"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "SCRUMBOARD"

// Config is the resolved configuration.
type Config struct {
	Addr      string
	DBPath    string
	StaticDir string
	Timezone  string
	LogLevel  slog.Level
	Otel      Otel
}

// Otel toggles telemetry.
type Otel struct {
	Enabled bool
	Stdout  bool
}

var defaults = map[string]any{
	"addr":         ":8080",
	"db_path":      "data/scrumboard.db",
	"static_dir":   "web/dist",
	"timezone":     lifecycle.DefaultTimezone,
	"log_level":    "info",
	"otel.enabled": false,
	"otel.stdout":  false,
}

// Load resolves the configuration. configFile may be empty. Flags in fs
// that were set explicitly override everything else; fs may be nil.
func Load(configFile string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	if fs != nil {
		for key := range defaults {
			if f := fs.Lookup(flagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	cfg := Config{
		Addr:      strings.TrimSpace(v.GetString("addr")),
		DBPath:    strings.TrimSpace(v.GetString("db_path")),
		StaticDir: v.GetString("static_dir"),
		Timezone:  v.GetString("timezone"),
		Otel: Otel{
			Enabled: v.GetBool("otel.enabled"),
			Stdout:  v.GetBool("otel.stdout"),
		},
	}
	if cfg.Addr == "" {
		return Config{}, fmt.Errorf("addr must not be empty")
	}
	if cfg.DBPath == "" {
		return Config{}, fmt.Errorf("db_path must not be empty")
	}
	if _, err := lifecycle.NewCalendar(cfg.Timezone); err != nil {
		return Config{}, fmt.Errorf("timezone: %w", err)
	}
	level, err := parseLevel(v.GetString("log_level"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level
	return cfg, nil
}

// flagName maps a config key to its command line flag: db_path becomes
// db-path and otel.enabled becomes otel-enabled.
func flagName(key string) string {
	return strings.NewReplacer("_", "-", ".", "-").Replace(key)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

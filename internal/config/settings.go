// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/podenv/podenv/internal/notify"
)

const (
	// SettingsFileName is the optional settings file in ConfigDir.
	SettingsFileName = "settings.toml"
	// EnvPrefix prefixes the environment variables read into Settings.
	EnvPrefix = "PODENV"
)

type (
	// Settings are the process-wide options that are not part of an
	// environment declaration.
	Settings struct {
		// Config is the user config file; PODENV_CONFIG wins over --config.
		Config   string `mapstructure:"config"`
		CacheDir string `mapstructure:"cache_dir"`
		Engine   string `mapstructure:"engine"`
		Notify   string `mapstructure:"notify"`
	}

	// SettingsOptions are the inputs of LoadSettings.
	SettingsOptions struct {
		// ConfigFlag is the value of --config.
		ConfigFlag string
		// SettingsPath overrides ConfigDir()/settings.toml.
		SettingsPath string
	}
)

// DefaultCacheDir returns $XDG_CACHE_HOME/podenv, defaulting to ~/.cache/podenv.
func DefaultCacheDir() (string, error) {
	dir := os.Getenv("XDG_CACHE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".cache")
	}
	return filepath.Join(dir, AppName), nil
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() *Settings {
	s := &Settings{Engine: "podman", Notify: notify.ModeAuto}
	s.CacheDir, _ = DefaultCacheDir()
	s.Config, _ = DefaultConfigPath()
	return s
}

// LoadSettings resolves the settings from defaults, settings.toml, PODENV_*
// environment variables and the --config flag.
func LoadSettings(opts SettingsOptions) (*Settings, error) {
	v := viper.New()
	defaults := DefaultSettings()
	v.SetDefault("config", defaults.Config)
	v.SetDefault("cache_dir", defaults.CacheDir)
	v.SetDefault("engine", defaults.Engine)
	v.SetDefault("notify", defaults.Notify)

	path := opts.SettingsPath
	if path == "" {
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, SettingsFileName)
	}
	if err := mergeTOML(v, path); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	for _, key := range []string{"config", "cache_dir", "engine", "notify"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if opts.ConfigFlag != "" {
		if env, ok := os.LookupEnv(EnvPrefix + "_CONFIG"); ok && env != "" {
			if env != opts.ConfigFlag {
				slog.Warn("PODENV_CONFIG overrides --config", "env", env, "flag", opts.ConfigFlag)
			}
		} else {
			v.Set("config", opts.ConfigFlag)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	switch s.Notify {
	case notify.ModeAuto, notify.ModeDesktop, notify.ModeLog, notify.ModeStderr:
	default:
		return nil, fmt.Errorf("settings: invalid notify %q (expected auto, desktop, log or stderr)", s.Notify)
	}
	return &s, nil
}

// mergeTOML decodes the settings file, when present, into v.
func mergeTOML(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := v.MergeConfigMap(m); err != nil {
		return fmt.Errorf("failed to merge settings: %w", err)
	}
	return nil
}

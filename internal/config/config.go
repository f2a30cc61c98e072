package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/NuZard84/go-socket-typeflow/internal/constants"
)

// Config holds the server settings. Secrets (MONGO_URI, the JWT secret)
// stay in the environment; everything tunable lives here.
type Config struct {
	Addr              string   `toml:"addr"`
	AllowedOrigin     string   `toml:"allowed_origin"`
	BroadcastInterval Duration `toml:"broadcast_interval"`
	IdleTimeout       Duration `toml:"idle_timeout"`
	KeystrokeLogCap   int      `toml:"keystroke_log_cap"`
}

// Duration lets TOML carry values like "30s" or "5m".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Default returns the built-in settings: broadcast every 30 seconds, no
// idle reaping, raw keystroke log capped at 5000 entries.
func Default() *Config {
	return &Config{
		Addr:              constants.DefaultAddr,
		BroadcastInterval: Duration{constants.DefaultBroadcastInterval},
		KeystrokeLogCap:   constants.DefaultKeystrokeLogCap,
	}
}

// Load reads the config file at path. A missing file yields the defaults;
// unset fields fall back individually.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Addr == "" {
		cfg.Addr = constants.DefaultAddr
	}
	if cfg.BroadcastInterval.Duration == 0 {
		cfg.BroadcastInterval = Duration{constants.DefaultBroadcastInterval}
	}
	if cfg.KeystrokeLogCap == 0 {
		cfg.KeystrokeLogCap = constants.DefaultKeystrokeLogCap
	}

	return &cfg, nil
}

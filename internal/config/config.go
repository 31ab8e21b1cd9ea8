// Package config loads the slipdemo configuration.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	tomlparser "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrInvalidConfig is returned when a loaded value is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// EnvPrefix is the prefix of environment variables read by [Load].
const EnvPrefix = "SLIP_"

// Report formats.
const (
	FormatText  = "text"
	FormatTable = "table"
)

const (
	defaultFrames          = 120
	defaultCheckpointEvery = 30
	defaultResolution      = "1ns"
	defaultLogLevel        = "info"
)

// Config drives a slipdemo run.
type Config struct {
	// Frames is the number of simulated frames.
	Frames int `koanf:"frames"`

	// CheckpointEvery is the number of frames per statistics window.
	CheckpointEvery int `koanf:"checkpoint_every"`

	// Format selects the final report: "text" or "table".
	Format string `koanf:"format"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Resolution is the length of one clock tick.
	Resolution time.Duration `koanf:"resolution"`

	// Simulate runs on a fake clock advanced by fixed phase costs.
	Simulate bool `koanf:"simulate"`
}

func defaults() map[string]any {
	return map[string]any{
		"frames":           defaultFrames,
		"checkpoint_every": defaultCheckpointEvery,
		"format":           FormatText,
		"log_level":        defaultLogLevel,
		"resolution":       defaultResolution,
		"simulate":         false,
	}
}

// Load builds a Config from, lowest priority first: defaults, the TOML file
// at path (skipped when path is empty), SLIP_* environment variables and
// flags. Flag keys are the koanf keys of [Config].
func Load(path string, flags map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(err, "config file %s", path)
		}
		if err := k.Load(file.Provider(path), tomlparser.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load %s", path)
		}
	}

	envOpt := env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envTransform,
	}
	if err := k.Load(env.Provider(".", envOpt), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load env vars")
	}

	if len(flags) > 0 {
		if err := k.Load(confmap.Provider(flags, "."), nil); err != nil {
			return nil, errors.Wrap(err, "failed to load flags")
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envTransform maps SLIP_CHECKPOINT_EVERY to checkpoint_every.
func envTransform(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ToLower(key), value
}

// Validate reports the first out-of-range value.
func (c *Config) Validate() error {
	switch {
	case c.Frames <= 0:
		return errors.Wrapf(ErrInvalidConfig, "frames must be > 0, got %d", c.Frames)
	case c.CheckpointEvery <= 0:
		return errors.Wrapf(ErrInvalidConfig, "checkpoint_every must be > 0, got %d", c.CheckpointEvery)
	case c.Format != FormatText && c.Format != FormatTable:
		return errors.Wrapf(ErrInvalidConfig, "format must be %q or %q, got %q", FormatText, FormatTable, c.Format)
	case c.Resolution <= 0:
		return errors.Wrapf(ErrInvalidConfig, "resolution must be > 0, got %s", c.Resolution)
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

package ecs

import (
	"errors"
	"io"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config tunes a World. The zero value is not valid; start from DefaultConfig.
type Config struct {
	// CheckTickThreshold is how many ticks CheckChangeTicks waits between
	// sweeps. It may be lowered to sweep more often but never raised above
	// the package constant, which MaxChangeAge is derived from.
	CheckTickThreshold uint32 `yaml:"check_tick_threshold"`

	// InitialEntityCapacity presizes entity metadata and table columns.
	InitialEntityCapacity int `yaml:"initial_entity_capacity"`

	// DefaultBatchSize is the ParForEach batch size used when the caller passes <= 0.
	DefaultBatchSize int `yaml:"default_batch_size"`

	// LogLevel, when set, overrides the level of the world's logger
	// ("trace", "debug", "info", ...).
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration NewWorld uses when none is given.
func DefaultConfig() Config {
	return Config{
		CheckTickThreshold:    CheckTickThreshold,
		InitialEntityCapacity: 64,
		DefaultBatchSize:      1024,
	}
}

// LoadConfig reads a YAML document on top of DefaultConfig. Keys that are
// absent keep their defaults and an empty document yields the defaults.
func LoadConfig(r io.Reader) (Config, error) {
	config := DefaultConfig()
	if err := yaml.NewDecoder(r).Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, eris.Wrap(err, "decode ecs config")
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.CheckTickThreshold == 0 || c.CheckTickThreshold > CheckTickThreshold {
		return eris.Errorf("check_tick_threshold must be in (0, %d], got %d", CheckTickThreshold, c.CheckTickThreshold)
	}
	if c.InitialEntityCapacity < 0 {
		return eris.Errorf("initial_entity_capacity must not be negative, got %d", c.InitialEntityCapacity)
	}
	if c.DefaultBatchSize <= 0 {
		return eris.Errorf("default_batch_size must be positive, got %d", c.DefaultBatchSize)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level, if any.
func (c Config) Level() (zerolog.Level, bool) {
	level, err := c.level()
	if err != nil || c.LogLevel == "" {
		return zerolog.NoLevel, false
	}
	return level, true
}

func (c Config) level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.NoLevel, nil
	}
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, eris.Wrapf(err, "log_level %q", c.LogLevel)
	}
	return level, nil
}

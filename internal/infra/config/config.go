// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Playback PlaybackConfig `yaml:"playback"`
	Library  LibraryConfig  `yaml:"library"`
	Log      LogConfig      `yaml:"log"`
	Sets     []SetConfig    `yaml:"sets" validate:"dive"`
}

// PlaybackConfig represents playback timing configuration. All items share
// one duration; per-set overrides are possible via SetConfig.Overrides.
type PlaybackConfig struct {
	ItemDurationMs int  `yaml:"item_duration_ms" default:"5000" validate:"gt=0,lte=600000"`
	TickPeriodMs   int  `yaml:"tick_period_ms" default:"10" validate:"gt=0,lte=1000"`
	SettleDelayMs  int  `yaml:"settle_delay_ms" default:"100" validate:"gte=0,lte=5000"`
	Loop           bool `yaml:"loop"`
}

// ItemDuration returns the per-item duration.
func (p PlaybackConfig) ItemDuration() time.Duration {
	return time.Duration(p.ItemDurationMs) * time.Millisecond
}

// TickPeriod returns the progress tick period.
func (p PlaybackConfig) TickPeriod() time.Duration {
	return time.Duration(p.TickPeriodMs) * time.Millisecond
}

// SettleDelay returns the entering settle delay.
func (p PlaybackConfig) SettleDelay() time.Duration {
	return time.Duration(p.SettleDelayMs) * time.Millisecond
}

// LibraryConfig represents the story library configuration.
type LibraryConfig struct {
	Path string `yaml:"path"` // Empty means the default data directory
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Output string `yaml:"output" default:"stderr"`
	Level  string `yaml:"level" default:"info"`
	File   string `yaml:"file"`
}

// SetConfig represents an inline story set used to seed the library.
type SetConfig struct {
	Title     string         `yaml:"title" validate:"required"`
	Author    string         `yaml:"author" default:"anonymous"`
	Stories   []StoryConfig  `yaml:"stories" validate:"required,min=1,dive"`
	Overrides map[string]any `yaml:"overrides,omitempty"`
}

// StoryConfig represents a single inline story.
type StoryConfig struct {
	Kind     string `yaml:"kind" default:"image" validate:"oneof=image video"`
	MediaURL string `yaml:"media_url" validate:"required"`
	Caption  string `yaml:"caption"`
}

// SetOverrides are per-set playback overrides, decoded from the free-form
// overrides map of a set.
type SetOverrides struct {
	ItemDurationMs int   `mapstructure:"item_duration_ms"`
	SettleDelayMs  int   `mapstructure:"settle_delay_ms"`
	Loop           *bool `mapstructure:"loop"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// Default returns a configuration with all defaults applied and no sets.
func Default() (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("STORYBOX_LIBRARY_PATH"); v != "" {
		c.Library.Path = v
	}
	if v := os.Getenv("STORYBOX_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate validates the configuration, including each set's overrides.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	for _, set := range c.Sets {
		if _, err := DecodeOverrides(set.Overrides); err != nil {
			return errors.Wrapf(err, "set %q", set.Title)
		}
	}

	return nil
}

// DecodeOverrides decodes a set's free-form overrides map. A nil map yields
// zero overrides.
func DecodeOverrides(settings map[string]any) (SetOverrides, error) {
	var ov SetOverrides
	if settings == nil {
		return ov, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &ov,
		ErrorUnused: true,
	})
	if err != nil {
		return ov, errors.Wrap(err, "failed to build overrides decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return ov, errors.Wrap(err, "failed to decode overrides")
	}

	if ov.ItemDurationMs < 0 {
		return ov, errors.New("item_duration_ms must not be negative")
	}
	if ov.SettleDelayMs < 0 {
		return ov, errors.New("settle_delay_ms must not be negative")
	}
	return ov, nil
}

// Apply merges the overrides onto a base playback configuration.
func (o SetOverrides) Apply(base PlaybackConfig) PlaybackConfig {
	if o.ItemDurationMs > 0 {
		base.ItemDurationMs = o.ItemDurationMs
	}
	if o.SettleDelayMs > 0 {
		base.SettleDelayMs = o.SettleDelayMs
	}
	if o.Loop != nil {
		base.Loop = *o.Loop
	}
	return base
}

// Package config handles texinfo configuration loading and management.
package config

import "github.com/Faultbox/texcore/pkg/texture"

// Config holds all texinfo settings.
type Config struct {
	Loader  LoaderConfig  `yaml:"loader"`
	Data    DataConfig    `yaml:"data"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoaderConfig bounds what a single image load may consume.
type LoaderConfig struct {
	MaxInputBytes int64 `yaml:"max_input_bytes"` // 0 = no cap
	MaxDimension  int   `yaml:"max_dimension"`   // 0 = no cap
	MagentaKey    bool  `yaml:"magenta_key"`     // Magenta BMP pixels become transparent
}

// DataConfig holds archive paths searched for images not found on disk.
type DataConfig struct {
	GRFPaths []string `yaml:"grf_paths"`
}

// CacheConfig holds decoded image cache settings.
type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxEntries int  `yaml:"max_entries"` // 0 = unbounded
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	opts := texture.DefaultOptions()
	return &Config{
		Loader: LoaderConfig{
			MaxInputBytes: opts.MaxInputBytes,
			MaxDimension:  opts.MaxDimension,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 256,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Options returns the texture loader options for this config.
func (c *Config) Options() texture.Options {
	return texture.Options{
		MaxInputBytes: c.Loader.MaxInputBytes,
		MaxDimension:  c.Loader.MaxDimension,
		MagentaKey:    c.Loader.MagentaKey,
	}
}

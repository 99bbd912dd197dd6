// Package config loads reconciler settings from a TOML file.
//
//	[scheduler]
//	slice = "5ms"      # grant length used by the run loop
//	max_units = 100000 # per-pass unit quota (0 disables)
//
//	[journal]
//	path = "journal.db" # SQLite commit journal; empty disables journaling
//
// Every key is optional. Command-line flags override file values.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Default values, applied before the file is decoded.
const (
	DefaultSlice    = 5 * time.Millisecond
	DefaultMaxUnits = 100000
)

// Config is the decoded configuration file.
type Config struct {
	Scheduler Scheduler `toml:"scheduler"`
	Journal   Journal   `toml:"journal"`
}

// Scheduler holds scheduler settings.
type Scheduler struct {
	Slice    Duration `toml:"slice"`
	MaxUnits int      `toml:"max_units"`
}

// Journal holds commit journal settings.
type Journal struct {
	Path string `toml:"path"`
}

// Duration is a time.Duration written as a string ("5ms").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Scheduler: Scheduler{
			Slice:    Duration{DefaultSlice},
			MaxUnits: DefaultMaxUnits,
		},
	}
}

// Load reads the TOML file at path over the defaults.
// An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults.
func Parse(data string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := checkUndecoded(md); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Scheduler.Slice.Duration <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.slice must be positive, got %s", c.Scheduler.Slice.Duration))
	}
	if c.Scheduler.MaxUnits < 0 {
		errs = append(errs, fmt.Errorf("scheduler.max_units must not be negative, got %d", c.Scheduler.MaxUnits))
	}
	return errors.Join(errs...)
}

// checkUndecoded rejects keys the Config does not define.
func checkUndecoded(md toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, len(undecoded))
	for i, k := range undecoded {
		keys[i] = k.String()
	}
	sort.Strings(keys)
	return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
}

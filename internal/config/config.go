// Package config resolves cellsim run settings from defaults, an optional
// YAML file, CELLSIM_* environment variables and bound command flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roach88/cellsim/internal/logging"
)

// Config keys.
const (
	KeyGridWidth   = "grid.width"
	KeyGridHeight  = "grid.height"
	KeyCycles      = "cycles"
	KeyInterval    = "interval"
	KeyPartsDir    = "parts_dir"
	KeyPattern     = "pattern"
	KeyDB          = "db"
	KeyMetricsAddr = "metrics_addr"
	KeyLogLevel    = "log.level"
	KeyShell       = "shell"
)

// EnvPrefix prefixes every environment override, e.g. CELLSIM_GRID_WIDTH.
const EnvPrefix = "CELLSIM"

// Built-in patterns accepted by the pattern key besides a file path.
const (
	PatternBlinker = "blinker"
	PatternGlider  = "glider"
	PatternDemo    = "demo"
)

// Config validation errors.
var (
	ErrGridSize        = errors.New("grid width and height must be positive")
	ErrCyclesNegative  = errors.New("cycles must not be negative")
	ErrIntervalInvalid = errors.New("interval must not be negative")
	ErrLogLevel        = errors.New("unknown log level")
	ErrNothingToRun    = errors.New("cycles must be set when the shell is disabled")
)

// Config holds the settings for one cellsim run.
type Config struct {
	Width       int           `json:"width" yaml:"width"`
	Height      int           `json:"height" yaml:"height"`
	Cycles      int           `json:"cycles" yaml:"cycles"`
	Interval    time.Duration `json:"interval" yaml:"interval"`
	PartsDir    string        `json:"parts_dir,omitempty" yaml:"parts_dir,omitempty"`
	Pattern     string        `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	DB          string        `json:"db,omitempty" yaml:"db,omitempty"`
	MetricsAddr string        `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`
	LogLevel    string        `json:"log_level" yaml:"log_level"`
	Shell       bool          `json:"shell" yaml:"shell"`
}

// New returns a viper instance with defaults and environment overrides set.
// Callers bind command flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyGridWidth, 16)
	v.SetDefault(KeyGridHeight, 16)
	v.SetDefault(KeyCycles, 0)
	v.SetDefault(KeyInterval, "100ms")
	v.SetDefault(KeyPattern, PatternBlinker)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyShell, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file (if non-empty) into v and returns the validated Config.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	c := &Config{
		Width:       v.GetInt(KeyGridWidth),
		Height:      v.GetInt(KeyGridHeight),
		Cycles:      v.GetInt(KeyCycles),
		Interval:    v.GetDuration(KeyInterval),
		PartsDir:    v.GetString(KeyPartsDir),
		Pattern:     v.GetString(KeyPattern),
		DB:          v.GetString(KeyDB),
		MetricsAddr: v.GetString(KeyMetricsAddr),
		LogLevel:    v.GetString(KeyLogLevel),
		Shell:       v.GetBool(KeyShell),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return ErrGridSize
	}
	if c.Cycles < 0 {
		return ErrCyclesNegative
	}
	if c.Interval < 0 {
		return ErrIntervalInvalid
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %q", ErrLogLevel, c.LogLevel)
	}
	if !c.Shell && c.Cycles == 0 {
		return ErrNothingToRun
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := New()
	v.Set(KeyCycles, 5)

	c, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, 16, c.Width)
	assert.Equal(t, 16, c.Height)
	assert.Equal(t, 5, c.Cycles)
	assert.Equal(t, 100*time.Millisecond, c.Interval)
	assert.Equal(t, PatternBlinker, c.Pattern)
	assert.Equal(t, "info", c.LogLevel)
	assert.False(t, c.Shell)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cellsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
grid:
  width: 8
  height: 4
cycles: 12
interval: 5ms
pattern: glider
db: run.db
log:
  level: debug
`), 0o644))

	c, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, 8, c.Width)
	assert.Equal(t, 4, c.Height)
	assert.Equal(t, 12, c.Cycles)
	assert.Equal(t, 5*time.Millisecond, c.Interval)
	assert.Equal(t, PatternGlider, c.Pattern)
	assert.Equal(t, "run.db", c.DB)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cellsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cycles: 3\ngrid:\n  width: 8\n"), 0o644))
	t.Setenv("CELLSIM_GRID_WIDTH", "32")
	t.Setenv("CELLSIM_SHELL", "true")

	c, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, 32, c.Width)
	assert.True(t, c.Shell)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{Width: 4, Height: 4, Cycles: 1, LogLevel: "info"}

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"valid", func(*Config) {}, nil},
		{"zero width", func(c *Config) { c.Width = 0 }, ErrGridSize},
		{"negative height", func(c *Config) { c.Height = -1 }, ErrGridSize},
		{"negative cycles", func(c *Config) { c.Cycles = -2 }, ErrCyclesNegative},
		{"negative interval", func(c *Config) { c.Interval = -time.Second }, ErrIntervalInvalid},
		{"bad level", func(c *Config) { c.LogLevel = "chatty" }, ErrLogLevel},
		{"nothing to run", func(c *Config) { c.Cycles = 0 }, ErrNothingToRun},
		{"shell runs forever", func(c *Config) { c.Cycles = 0; c.Shell = true }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.modify(&c)
			err := c.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

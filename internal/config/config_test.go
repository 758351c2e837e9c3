package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	base := t.TempDir()
	t.Setenv(EnvBaseDir, base)

	cfg, err := Load(filepath.Join(base, "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.MaxHistorySize)
	assert.True(t, cfg.AutoSave)
	assert.Equal(t, 10, cfg.Precision)
	assert.False(t, cfg.ClearPersist)
	assert.Equal(t, filepath.Join(base, "logs", "calculator.log"), cfg.LogFile)
	assert.Equal(t, filepath.Join(base, "history", "calculator_history.csv"), cfg.HistoryFile)
	assert.True(t, cfg.MaxInputValue.Equal(decimal.New(1, 999)))
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
base_dir: ` + dir + `
max_history_size: 50
precision: 6
auto_save: false
max_input_value: "1e6"
history_file: ` + filepath.Join(dir, "h.csv") + `
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv(EnvPrecision, "12")
	t.Setenv(EnvClearPersist, "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.MaxHistorySize)
	assert.Equal(t, 12, cfg.Precision, "env overrides file")
	assert.False(t, cfg.AutoSave)
	assert.True(t, cfg.ClearPersist)
	assert.True(t, cfg.MaxInputValue.Equal(decimal.NewFromInt(1_000_000)))
	assert.Equal(t, filepath.Join(dir, "h.csv"), cfg.HistoryFile)
	assert.Equal(t, filepath.Join(dir, "logs", "calculator.log"), cfg.LogFile)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_history_size: [nope"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config file")
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		check   func(t *testing.T, c Config)
		wantErr string
	}{
		{
			name: "all typed values",
			env: map[string]string{
				EnvMaxHistorySize: "5",
				EnvMaxUndoDepth:   "20",
				EnvAutoSave:       "false",
				EnvPrecision:      "4",
				EnvMaxInputValue:  "250.5",
				EnvClearPersist:   "1",
				EnvAddr:           ":9090",
			},
			check: func(t *testing.T, c Config) {
				assert.Equal(t, 5, c.MaxHistorySize)
				assert.Equal(t, 20, c.MaxUndoDepth)
				assert.False(t, c.AutoSave)
				assert.Equal(t, 4, c.Precision)
				assert.True(t, c.MaxInputValue.Equal(decimal.RequireFromString("250.5")))
				assert.True(t, c.ClearPersist)
				assert.Equal(t, ":9090", c.Addr)
			},
		},
		{
			name: "empty values are ignored",
			env:  map[string]string{EnvPrecision: "", EnvLogLevel: ""},
			check: func(t *testing.T, c Config) {
				assert.Equal(t, 10, c.Precision)
				assert.Equal(t, "info", c.LogLevel)
			},
		},
		{name: "bad int", env: map[string]string{EnvMaxHistorySize: "lots"}, wantErr: EnvMaxHistorySize},
		{name: "bad bool", env: map[string]string{EnvAutoSave: "sometimes"}, wantErr: EnvAutoSave},
		{name: "bad decimal", env: map[string]string{EnvMaxInputValue: "big"}, wantErr: EnvMaxInputValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			err := cfg.applyEnv(func(key string) (string, bool) {
				v, ok := tt.env[key]
				return v, ok
			})

			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := DefaultConfig()
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero history size", func(c *Config) { c.MaxHistorySize = 0 }, "max_history_size must be positive"},
		{"negative undo depth", func(c *Config) { c.MaxUndoDepth = -1 }, "max_undo_depth cannot be negative"},
		{"zero precision", func(c *Config) { c.Precision = 0 }, "precision must be positive"},
		{"zero max input", func(c *Config) { c.MaxInputValue = decimal.Zero }, "max_input_value must be positive"},
		{"negative max input", func(c *Config) { c.MaxInputValue = decimal.NewFromInt(-1) }, "max_input_value must be positive"},
		{"no history file", func(c *Config) { c.HistoryFile = "" }, "history_file cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CALCULATOR_PRECISION=7\nCALCULATOR_ADDR=:1234\n"), 0o644))

	t.Setenv(EnvAddr, ":5555")
	// unset by Setenv cleanup; ensure the key starts absent
	t.Setenv(EnvPrecision, "")
	require.NoError(t, os.Unsetenv(EnvPrecision))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "7", os.Getenv(EnvPrecision))
	assert.Equal(t, ":5555", os.Getenv(EnvAddr), "existing variables are not overridden")

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

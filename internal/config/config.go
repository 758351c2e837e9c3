// Package config handles configuration loading and validation for the
// calculator.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load. Each overrides the matching config
// file key.
const (
	EnvConfig         = "CALCULATOR_CONFIG"
	EnvBaseDir        = "CALCULATOR_BASE_DIR"
	EnvLogDir         = "CALCULATOR_LOG_DIR"
	EnvLogFile        = "CALCULATOR_LOG_FILE"
	EnvLogLevel       = "CALCULATOR_LOG_LEVEL"
	EnvHistoryDir     = "CALCULATOR_HISTORY_DIR"
	EnvHistoryFile    = "CALCULATOR_HISTORY_FILE"
	EnvMaxHistorySize = "CALCULATOR_MAX_HISTORY_SIZE"
	EnvMaxUndoDepth   = "CALCULATOR_MAX_UNDO_DEPTH"
	EnvAutoSave       = "CALCULATOR_AUTO_SAVE"
	EnvPrecision      = "CALCULATOR_PRECISION"
	EnvMaxInputValue  = "CALCULATOR_MAX_INPUT_VALUE"
	EnvClearPersist   = "CALCULATOR_CLEAR_PERSIST"
	EnvAddr           = "CALCULATOR_ADDR"
)

const (
	logFileName     = "calculator.log"
	historyFileName = "calculator_history.csv"
)

// Config holds the calculator configuration. It is read once at startup and
// treated as read-only afterwards.
type Config struct {
	BaseDir     string `yaml:"base_dir"`
	LogDir      string `yaml:"log_dir"`
	LogFile     string `yaml:"log_file"`
	LogLevel    string `yaml:"log_level"`
	HistoryDir  string `yaml:"history_dir"`
	HistoryFile string `yaml:"history_file"`

	MaxHistorySize int             `yaml:"max_history_size"`
	MaxUndoDepth   int             `yaml:"max_undo_depth"` // 0 keeps every action
	AutoSave       bool            `yaml:"auto_save"`
	Precision      int             `yaml:"precision"`
	MaxInputValue  decimal.Decimal `yaml:"max_input_value"`
	ClearPersist   bool            `yaml:"clear_persist"`

	// Addr is the listen address of the HTTP API.
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults. Directory fields are
// left empty and derived from BaseDir by Load.
func DefaultConfig() Config {
	return Config{
		BaseDir:        ".",
		LogLevel:       "info",
		MaxHistorySize: 1000,
		AutoSave:       true,
		Precision:      10,
		MaxInputValue:  decimal.New(1, 999),
		ClearPersist:   false,
		Addr:           ":8080",
	}
}

// Load builds the configuration from defaults, then the YAML file at
// configPath (a missing file is fine), then CALCULATOR_* environment
// variables.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyEnv overrides fields from the environment. lookup is os.LookupEnv
// outside of tests.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{EnvBaseDir, &c.BaseDir},
		{EnvLogDir, &c.LogDir},
		{EnvLogFile, &c.LogFile},
		{EnvLogLevel, &c.LogLevel},
		{EnvHistoryDir, &c.HistoryDir},
		{EnvHistoryFile, &c.HistoryFile},
		{EnvAddr, &c.Addr},
	}
	for _, s := range strs {
		if v, ok := lookup(s.key); ok && v != "" {
			*s.dst = v
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{EnvMaxHistorySize, &c.MaxHistorySize},
		{EnvMaxUndoDepth, &c.MaxUndoDepth},
		{EnvPrecision, &c.Precision},
	}
	for _, i := range ints {
		v, ok := lookup(i.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", i.key, v)
		}
		*i.dst = n
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{EnvAutoSave, &c.AutoSave},
		{EnvClearPersist, &c.ClearPersist},
	}
	for _, b := range bools {
		v, ok := lookup(b.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a boolean", b.key, v)
		}
		*b.dst = parsed
	}

	if v, ok := lookup(EnvMaxInputValue); ok && v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", EnvMaxInputValue, v)
		}
		c.MaxInputValue = d
	}

	return nil
}

// applyDefaults derives unset paths from BaseDir.
func (c *Config) applyDefaults() {
	if c.BaseDir == "" {
		c.BaseDir = DefaultConfig().BaseDir
	}
	if c.LogDir == "" {
		c.LogDir = filepath.Join(c.BaseDir, "logs")
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.LogDir, logFileName)
	}
	if c.HistoryDir == "" {
		c.HistoryDir = filepath.Join(c.BaseDir, "history")
	}
	if c.HistoryFile == "" {
		c.HistoryFile = filepath.Join(c.HistoryDir, historyFileName)
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultConfig().LogLevel
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.MaxHistorySize <= 0 {
		return fmt.Errorf("max_history_size must be positive")
	}

	if c.MaxUndoDepth < 0 {
		return fmt.Errorf("max_undo_depth cannot be negative")
	}

	if c.Precision <= 0 {
		return fmt.Errorf("precision must be positive")
	}

	if !c.MaxInputValue.IsPositive() {
		return fmt.Errorf("max_input_value must be positive")
	}

	if c.HistoryFile == "" {
		return fmt.Errorf("history_file cannot be empty")
	}

	if c.LogFile == "" {
		return fmt.Errorf("log_file cannot be empty")
	}

	return nil
}

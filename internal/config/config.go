package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"mlcshim/internal/common/fsutil"
)

// Built-in defaults, matching the environment variables of existing deployments.
const (
	DefaultAddr           = ":8000"
	DefaultCLIPath        = "/workspace/mlc-llm/build/apps/mlc_cli_chat/mlc_cli_chat"
	DefaultDevice         = "opencl"
	DefaultModelName      = "MLC_LLM_Model"
	DefaultTimeoutMinutes = 20
	DefaultPaceMS         = 50
	DefaultChunkSize      = 64
	DefaultQueueWait      = 30
	DefaultMaxBodyBytes   = 1 << 20
)

// CORSConfig controls the optional CORS middleware.
type CORSConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// Config holds runtime parameters for the service. It is resolved once at
// startup and treated as read-only afterwards.
type Config struct {
	Addr             string     `json:"addr" yaml:"addr" toml:"addr"`
	CLIPath          string     `json:"cli_path" yaml:"cli_path" toml:"cli_path"`
	ModelPath        string     `json:"model_path" yaml:"model_path" toml:"model_path"`
	ModelLib         string     `json:"model_lib" yaml:"model_lib" toml:"model_lib"`
	Device           string     `json:"device" yaml:"device" toml:"device"`
	ModelName        string     `json:"model_name" yaml:"model_name" toml:"model_name"`
	TimeoutSeconds   int        `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
	PaceMS           int        `json:"pace_ms" yaml:"pace_ms" toml:"pace_ms"`
	ChunkSize        int        `json:"chunk_size" yaml:"chunk_size" toml:"chunk_size"`
	MaxConcurrent    int        `json:"max_concurrent" yaml:"max_concurrent" toml:"max_concurrent"`
	QueueWaitSeconds int        `json:"queue_wait_seconds" yaml:"queue_wait_seconds" toml:"queue_wait_seconds"`
	MaxBodyBytes     int64      `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	LogLevel         string     `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat        string     `json:"log_format" yaml:"log_format" toml:"log_format"`
	CORS             CORSConfig `json:"cors" yaml:"cors" toml:"cors"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:             DefaultAddr,
		CLIPath:          DefaultCLIPath,
		Device:           DefaultDevice,
		ModelName:        DefaultModelName,
		TimeoutSeconds:   DefaultTimeoutMinutes * 60,
		PaceMS:           DefaultPaceMS,
		ChunkSize:        DefaultChunkSize,
		QueueWaitSeconds: DefaultQueueWait,
		MaxBodyBytes:     DefaultMaxBodyBytes,
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// Timeout is the per-request wall-clock limit.
func (c Config) Timeout() time.Duration { return time.Duration(c.TimeoutSeconds) * time.Second }

// Pace is the delay between streamed tokens.
func (c Config) Pace() time.Duration { return time.Duration(c.PaceMS) * time.Millisecond }

// QueueWait is how long a request may wait for an admission slot.
func (c Config) QueueWait() time.Duration { return time.Duration(c.QueueWaitSeconds) * time.Second }

// Normalize expands '~' in filesystem paths and trims whitespace.
func (c *Config) Normalize() error {
	for _, p := range []*string{&c.CLIPath, &c.ModelPath, &c.ModelLib} {
		v, err := fsutil.ExpandHome(strings.TrimSpace(*p))
		if err != nil {
			return err
		}
		*p = v
	}
	c.ModelName = strings.TrimSpace(c.ModelName)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	return nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.CLIPath == "" {
		errs = append(errs, errors.New("cli_path is required"))
	}
	if c.ModelName == "" {
		errs = append(errs, errors.New("model_name is required"))
	}
	if c.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("timeout_seconds must be positive, got %d", c.TimeoutSeconds))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize))
	}
	if c.PaceMS < 0 {
		errs = append(errs, fmt.Errorf("pace_ms must not be negative, got %d", c.PaceMS))
	}
	if c.MaxConcurrent < 0 {
		errs = append(errs, fmt.Errorf("max_concurrent must not be negative, got %d", c.MaxConcurrent))
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log_level: %s", c.LogLevel))
	}
	switch c.LogFormat {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("invalid log_format: %s", c.LogFormat))
	}
	return errors.Join(errs...)
}

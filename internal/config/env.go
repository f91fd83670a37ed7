package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"mlcshim/internal/common/fsutil"
)

// binding ties a config key to its environment variable and CLI flag.
type binding struct {
	key   string
	env   string
	flag  string
	usage string
}

var bindings = []binding{
	{"addr", "MLC_ADDR", "addr", "HTTP listen address, e.g. :8000"},
	{"cli_path", "MLC_CLI_BIN", "cli-bin", "Path to the mlc_cli_chat binary"},
	{"model_path", "MLC_MODEL_PATH", "model-path", "Value passed as --model"},
	{"model_lib", "MODEL_LIB", "model-lib", "Value passed as --model-lib"},
	{"device", "MLC_DEVICE", "device", "Value passed as --device"},
	{"model_name", "MLC_MODEL_NAME", "model-name", "Model id advertised in /v1/models and chunks"},
	{"timeout_minutes", "MLC_TIMEOUT", "timeout-minutes", "Per-request wall-clock limit in minutes"},
	{"timeout_seconds", "MLC_TIMEOUT_SECONDS", "timeout-seconds", "Per-request wall-clock limit in seconds (overrides minutes)"},
	{"pace_ms", "MLC_PACE_MS", "pace-ms", "Delay between streamed tokens in milliseconds"},
	{"chunk_size", "MLC_CHUNK_SIZE", "chunk-size", "Bytes read from the CLI per read"},
	{"max_concurrent", "MLC_MAX_CONCURRENT", "max-concurrent", "Maximum concurrent CLI processes (0=unlimited)"},
	{"queue_wait_seconds", "MLC_QUEUE_WAIT_SECONDS", "queue-wait-seconds", "Seconds to wait for a free slot before 429"},
	{"max_body_bytes", "MLC_MAX_BODY_BYTES", "max-body-bytes", "Maximum request body size in bytes"},
	{"log_level", "MLC_LOG_LEVEL", "log-level", "Log level: debug|info|warn|error"},
	{"log_format", "MLC_LOG_FORMAT", "log-format", "Log format: json|console"},
	{"cors_enabled", "MLC_CORS_ENABLED", "cors", "Enable CORS middleware"},
	{"cors_origins", "MLC_CORS_ORIGINS", "cors-origins", "Comma-separated allowed CORS origins"},
}

// RegisterFlags defines the overlay flags on fs. Flag defaults are only shown
// in help; a flag takes effect when it is explicitly set.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	for _, b := range bindings {
		switch b.key {
		case "addr":
			fs.String(b.flag, d.Addr, b.usage)
		case "cli_path":
			fs.String(b.flag, d.CLIPath, b.usage)
		case "model_path", "model_lib", "cors_origins":
			fs.String(b.flag, "", b.usage)
		case "device":
			fs.String(b.flag, d.Device, b.usage)
		case "model_name":
			fs.String(b.flag, d.ModelName, b.usage)
		case "timeout_minutes":
			fs.Int(b.flag, DefaultTimeoutMinutes, b.usage)
		case "timeout_seconds":
			fs.Int(b.flag, 0, b.usage)
		case "pace_ms":
			fs.Int(b.flag, d.PaceMS, b.usage)
		case "chunk_size":
			fs.Int(b.flag, d.ChunkSize, b.usage)
		case "max_concurrent":
			fs.Int(b.flag, d.MaxConcurrent, b.usage)
		case "queue_wait_seconds":
			fs.Int(b.flag, d.QueueWaitSeconds, b.usage)
		case "max_body_bytes":
			fs.Int64(b.flag, d.MaxBodyBytes, b.usage)
		case "log_level":
			fs.String(b.flag, d.LogLevel, b.usage)
		case "log_format":
			fs.String(b.flag, d.LogFormat, b.usage)
		case "cors_enabled":
			fs.Bool(b.flag, false, b.usage)
		}
	}
}

// Sources lists where Resolve reads configuration from.
type Sources struct {
	// File is an optional .yaml/.yml/.json/.toml config file.
	File string
	// DotEnv files are loaded into the process environment; missing files are skipped.
	DotEnv []string
	// Flags holds flags registered with RegisterFlags; nil skips the flag layer.
	Flags *pflag.FlagSet
}

// Resolve builds the effective configuration.
// Precedence: flags > environment > .env files > config file > defaults.
func Resolve(src Sources) (Config, error) {
	cfg := Default()
	if src.File != "" {
		var err error
		if cfg, err = Load(src.File); err != nil {
			return cfg, err
		}
	}
	if err := LoadDotEnv(src.DotEnv...); err != nil {
		return cfg, err
	}

	v := viper.New()
	for _, b := range bindings {
		if err := v.BindEnv(b.key, b.env); err != nil {
			return cfg, fmt.Errorf("bind env %s: %w", b.env, err)
		}
		if src.Flags == nil {
			continue
		}
		if f := src.Flags.Lookup(b.flag); f != nil {
			if err := v.BindPFlag(b.key, f); err != nil {
				return cfg, fmt.Errorf("bind flag %s: %w", b.flag, err)
			}
		}
	}
	applyOverrides(&cfg, v)

	if err := cfg.Normalize(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// LoadDotEnv loads KEY=VALUE files without overriding variables already set.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if p == "" || !fsutil.PathExists(p) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func applyOverrides(cfg *Config, v *viper.Viper) {
	setString(v, "addr", &cfg.Addr)
	setString(v, "cli_path", &cfg.CLIPath)
	setString(v, "model_path", &cfg.ModelPath)
	setString(v, "model_lib", &cfg.ModelLib)
	setString(v, "device", &cfg.Device)
	setString(v, "model_name", &cfg.ModelName)
	if v.IsSet("timeout_minutes") {
		cfg.TimeoutSeconds = v.GetInt("timeout_minutes") * 60
	}
	setInt(v, "timeout_seconds", &cfg.TimeoutSeconds)
	setInt(v, "pace_ms", &cfg.PaceMS)
	setInt(v, "chunk_size", &cfg.ChunkSize)
	setInt(v, "max_concurrent", &cfg.MaxConcurrent)
	setInt(v, "queue_wait_seconds", &cfg.QueueWaitSeconds)
	if v.IsSet("max_body_bytes") {
		cfg.MaxBodyBytes = v.GetInt64("max_body_bytes")
	}
	setString(v, "log_level", &cfg.LogLevel)
	setString(v, "log_format", &cfg.LogFormat)
	if v.IsSet("cors_enabled") {
		cfg.CORS.Enabled = v.GetBool("cors_enabled")
	}
	if v.IsSet("cors_origins") {
		cfg.CORS.Origins = splitCSV(v.GetString("cors_origins"))
	}
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func setInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}

// splitCSV splits a comma-separated list, trimming blanks and dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Package config loads the intake service configuration from YAML with
// environment overrides for secrets.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	// MaxUploadBytes bounds referral letter uploads.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// DatabaseConfig configures the SQLite files.
type DatabaseConfig struct {
	// Path is the consultation database.
	Path string `yaml:"path"`
	// CheckpointPath is the conversation checkpoint database. It may be
	// the same file as Path.
	CheckpointPath string `yaml:"checkpoint_path"`
}

// OpenAIConfig configures the inference service.
type OpenAIConfig struct {
	// APIKey is usually left empty here and supplied via the
	// OPENAI_API_KEY environment variable.
	APIKey       string   `yaml:"api_key"`
	Model        string   `yaml:"model"`
	SummaryModel string   `yaml:"summary_model"`
	Timeout      Duration `yaml:"timeout"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// TelemetryConfig toggles OpenTelemetry metrics and tracing.
type TelemetryConfig struct {
	Metrics bool `yaml:"metrics"`
	Tracing bool `yaml:"tracing"`
}

// Default returns the configuration used when no file is provided.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(120 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
			MaxUploadBytes:  10 << 20,
		},
		Database: DatabaseConfig{
			Path:           "./intake.db",
			CheckpointPath: "./intake.db",
		},
		OpenAI: OpenAIConfig{
			Model:   "gpt-4o",
			Timeout: Duration(30 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML config file and applies environment overrides. An
// empty path loads defaults plus environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	// Secrets come from the environment, never the file on disk.
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAI.APIKey = key
	}
	if addr := os.Getenv("INTAKE_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for required fields.
func (c Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai api key required (set OPENAI_API_KEY)")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path required")
	}
	if c.Database.CheckpointPath == "" {
		return fmt.Errorf("checkpoint path required")
	}
	return nil
}

// SlogLevel converts the configured level name to a slog.Level.
// Unknown names fall back to info.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Duration is a time.Duration that unmarshals from either a Go duration
// string ("30s") or a number of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var seconds float64
	if err := value.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds * float64(time.Second)))
		return nil
	}

	return fmt.Errorf("invalid duration value")
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

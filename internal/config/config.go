// Package config loads calcpad settings from defaults, an optional YAML
// file and CALCPAD_* environment variables, in that order of precedence.
// Command-line flags are applied last by each command.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"nickandperla.net/calcpad/internal/eval"
	apperrors "nickandperla.net/calcpad/internal/errors"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "CALCPAD_"

// FileEnv names the variable holding the YAML config path.
const FileEnv = EnvPrefix + "CONFIG"

// Config holds settings shared by calcd and calcpad.
type Config struct {
	// Server
	ListenAddr string  `yaml:"listen_addr" env:"LISTEN_ADDR"`
	RateLimit  float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	RateBurst  int     `yaml:"rate_burst" env:"RATE_BURST"`

	// Storage
	DBPath     string `yaml:"db_path" env:"DB_PATH"`
	MaxHistory int    `yaml:"max_history" env:"MAX_HISTORY"`

	// Client
	ServerURL      string        `yaml:"server_url" env:"SERVER_URL"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// Tracing is on only when an endpoint is set.
	OTelEndpoint string `yaml:"otel_endpoint" env:"OTEL_ENDPOINT"`
	OTelEnabled  bool   `yaml:"otel_enabled" env:"OTEL_ENABLED"`

	// Evaluation defaults for a fresh store.
	AngleMode     string `yaml:"angle_mode" env:"ANGLE_MODE"`
	DecimalPlaces int    `yaml:"decimal_places" env:"DECIMAL_PLACES"`
	Notation      string `yaml:"notation" env:"NOTATION"`
}

// Default returns the built-in configuration.
func Default() Config {
	d := eval.DefaultSettings()
	return Config{
		ListenAddr:     ":5000",
		RateLimit:      50,
		RateBurst:      100,
		DBPath:         "calcpad.db",
		MaxHistory:     100,
		ServerURL:      "http://localhost:5000",
		RequestTimeout: 10 * time.Second,
		LogLevel:       "info",
		OTelEnabled:    true,
		AngleMode:      string(d.AngleMode),
		DecimalPlaces:  d.DecimalPlaces,
		Notation:       string(d.Notation),
	}
}

// Load reads configuration from the process environment.
func Load() (Config, error) {
	return LoadEnv(Environ())
}

// LoadEnv reads and validates configuration from environ instead of the
// process environment.
func LoadEnv(environ map[string]string) (Config, error) {
	cfg, err := Read(environ, "")
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads path over the defaults, then applies the process
// environment.
func LoadFile(path string) (Config, error) {
	cfg, err := Read(Environ(), path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read layers the YAML file and environ over the defaults without
// validating, so callers can apply flags first. path overrides the file
// named by CALCPAD_CONFIG.
func Read(environ map[string]string, path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = environ[FileEnv]
	}
	if path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	}); err != nil {
		return Config{}, apperrors.Wrap(err, apperrors.ErrCodeConfigLoad, "parse environment")
	}
	return cfg, nil
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	return envMap(os.Environ())
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeConfigLoad, "read config file").
			WithContext("path", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeConfigLoad, "parse config file").
			WithContext("path", path)
	}
	return nil
}

func envMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	invalid := func(field string, format string, args ...any) error {
		return apperrors.Newf(apperrors.ErrCodeConfigInvalid, format, args...).
			WithContext("field", field)
	}
	if c.MaxHistory < 1 {
		return invalid("max_history", "max_history must be positive, got %d", c.MaxHistory)
	}
	if c.RateLimit < 0 {
		return invalid("rate_limit", "rate_limit must not be negative, got %g", c.RateLimit)
	}
	if c.RateBurst < 0 {
		return invalid("rate_burst", "rate_burst must not be negative, got %d", c.RateBurst)
	}
	if c.RequestTimeout < 0 {
		return invalid("request_timeout", "request_timeout must not be negative, got %s", c.RequestTimeout)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return invalid("log_level", "%v", err)
	}
	if err := c.Settings().Validate(); err != nil {
		return invalid("evaluation", "%v", err)
	}
	return nil
}

// Settings returns the evaluation defaults. Aliases such as "degrees" are
// kept for Validate and mapped by Normalize.
func (c Config) Settings() eval.Settings {
	return eval.Settings{
		AngleMode:     eval.AngleMode(strings.ToLower(c.AngleMode)),
		DecimalPlaces: c.DecimalPlaces,
		Notation:      eval.Notation(strings.ToLower(c.Notation)),
	}
}

// TracingEnabled reports whether spans should be exported.
func (c Config) TracingEnabled() bool {
	return c.OTelEnabled && c.OTelEndpoint != ""
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// Package config manages gorcon daemon configuration using koanf/v2.
//
// Supports YAML files and environment variable overrides on top of
// compiled-in defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dantte-lp/gorcon/internal/rcon"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete gorcon configuration.
type Config struct {
	RCON    RCONConfig    `koanf:"rcon"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
}

// RCONConfig holds the seven core parameters of the RCON listener.
type RCONConfig struct {
	// Host is the listen address, e.g. "127.0.0.1".
	Host string `koanf:"host"`

	// Port is the listen port.
	Port int `koanf:"port"`

	// MaxConnections bounds the number of concurrently open sockets.
	MaxConnections int `koanf:"max_connections"`

	// MaxFrameSize bounds the total length (4-byte size prefix included) of
	// any accepted or emitted frame.
	MaxFrameSize int `koanf:"max_frame_size"`

	// ReadTimeout closes a connection that sends nothing for this long.
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// AcceptTimeout is the acceptor wait's own wakeup interval.
	AcceptTimeout time.Duration `koanf:"accept_timeout"`

	// Credential is the on-disk form of the expected password, produced by
	// `rconcli hash`. Empty or "none" disables authentication.
	Credential string `koanf:"credential"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with the documented RCON
// defaults: loopback-only host, the protocol's well-known port 25575, and a
// small connection cap appropriate for a handful of trusted operators.
func DefaultConfig() *Config {
	return &Config{
		RCON: RCONConfig{
			Host:           "127.0.0.1",
			Port:           25575,
			MaxConnections: 10,
			MaxFrameSize:   4096,
			ReadTimeout:    30 * time.Second,
			AcceptTimeout:  5 * time.Second,
			Credential:     "none",
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for gorcon configuration.
// Variables are named GORCON_<section>_<key>, e.g., GORCON_RCON_PORT.
const envPrefix = "GORCON_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (GORCON_ prefix), and merges on top of DefaultConfig().
// Missing fields inherit defaults. An empty path skips the file layer
// entirely, so callers can run on defaults plus env overrides alone.
//
// Environment variable mapping:
//
//	GORCON_RCON_HOST             -> rcon.host
//	GORCON_RCON_PORT             -> rcon.port
//	GORCON_RCON_MAX_CONNECTIONS  -> rcon.max_connections
//	GORCON_RCON_MAX_FRAME_SIZE   -> rcon.max_frame_size
//	GORCON_RCON_READ_TIMEOUT     -> rcon.read_timeout
//	GORCON_RCON_ACCEPT_TIMEOUT   -> rcon.accept_timeout
//	GORCON_RCON_CREDENTIAL       -> rcon.credential
//	GORCON_METRICS_ADDR          -> metrics.addr
//	GORCON_METRICS_PATH          -> metrics.path
//	GORCON_LOG_LEVEL             -> log.level
//	GORCON_LOG_FORMAT            -> log.format
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
	}

	// GORCON_RCON_PORT -> rcon.port (strip prefix, lowercase, first _ -> .).
	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms GORCON_RCON_PORT -> rcon.port.
// Strips the GORCON_ prefix, lowercases, and replaces the first _ (the
// section separator) with . so that multi-word keys such as
// GORCON_RCON_MAX_CONNECTIONS map to rcon.max_connections.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.Replace(s, "_", ".", 1)
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"rcon.host":            defaults.RCON.Host,
		"rcon.port":            defaults.RCON.Port,
		"rcon.max_connections": defaults.RCON.MaxConnections,
		"rcon.max_frame_size":  defaults.RCON.MaxFrameSize,
		"rcon.read_timeout":    defaults.RCON.ReadTimeout.String(),
		"rcon.accept_timeout":  defaults.RCON.AcceptTimeout.String(),
		"rcon.credential":      defaults.RCON.Credential,
		"metrics.addr":         defaults.Metrics.Addr,
		"metrics.path":         defaults.Metrics.Path,
		"log.level":            defaults.Log.Level,
		"log.format":           defaults.Log.Format,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyHost indicates the listen host is empty.
	ErrEmptyHost = errors.New("rcon.host must not be empty")

	// ErrInvalidPort indicates the listen port is out of range.
	ErrInvalidPort = errors.New("rcon.port must be between 1 and 65535")

	// ErrInvalidMaxConnections indicates max_connections is not positive.
	ErrInvalidMaxConnections = errors.New("rcon.max_connections must be >= 1")

	// ErrInvalidMaxFrameSize indicates max_frame_size is below the wire
	// format's own minimum frame size.
	ErrInvalidMaxFrameSize = errors.New("rcon.max_frame_size must be >= 10")

	// ErrInvalidReadTimeout indicates read_timeout is not positive.
	ErrInvalidReadTimeout = errors.New("rcon.read_timeout must be > 0")

	// ErrInvalidAcceptTimeout indicates accept_timeout is not positive.
	ErrInvalidAcceptTimeout = errors.New("rcon.accept_timeout must be > 0")

	// ErrInvalidCredential indicates the credential string is neither the
	// "none" sentinel nor a well-formed salt:digest record.
	ErrInvalidCredential = errors.New("rcon.credential must be \"none\" or a valid salt:digest record")
)

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.RCON.Host == "" {
		return ErrEmptyHost
	}

	if cfg.RCON.Port < 1 || cfg.RCON.Port > 65535 {
		return ErrInvalidPort
	}

	if cfg.RCON.MaxConnections < 1 {
		return ErrInvalidMaxConnections
	}

	if cfg.RCON.MaxFrameSize < 10 {
		return ErrInvalidMaxFrameSize
	}

	if cfg.RCON.ReadTimeout <= 0 {
		return ErrInvalidReadTimeout
	}

	if cfg.RCON.AcceptTimeout <= 0 {
		return ErrInvalidAcceptTimeout
	}

	if _, err := rcon.DecodeRecord(cfg.RCON.Credential); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

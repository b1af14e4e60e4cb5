// Package config loads client settings from the environment and optional
// dotenv files. Variables use the GDS_ prefix, e.g. GDS_URI or GDS_LOG_LEVEL.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix processed by Load.
const Prefix = "GDS"

// Config validation errors
var (
	ErrInvalidURI            = errors.New("uri cannot be empty")
	ErrInvalidURIScheme      = errors.New("uri scheme must be one of bolt, bolt+s, bolt+ssc, neo4j, neo4j+s, neo4j+ssc")
	ErrInvalidMaxMessageSize = errors.New("max_message_size must be positive")
	ErrInvalidConcurrency    = errors.New("concurrency cannot be negative")
	ErrInvalidLogFormat      = errors.New("log_format must be 'json' or 'console'")
	ErrInvalidLogLevel       = errors.New("log_level must be debug, info, warn, or error")
	ErrInvalidSampleRatio    = errors.New("trace_sample_ratio must be within (0, 1]")
)

var uriSchemes = []string{"bolt", "bolt+s", "bolt+ssc", "neo4j", "neo4j+s", "neo4j+ssc"}

// Config holds connection, logging and tracing settings. Fields carry no
// envconfig name tags so that GDS_USER never falls back to $USER.
type Config struct {
	URI      string `split_words:"true" default:"bolt://localhost:7687"`
	User     string `split_words:"true" default:"neo4j"`
	Password string `split_words:"true"`
	Database string `split_words:"true"`

	// ArrowAddr enables the Arrow Flight construction path when set.
	ArrowAddr      string `split_words:"true"`
	ArrowTLS       bool   `split_words:"true" default:"false"`
	MaxMessageSize int    `split_words:"true" default:"104857600"` // 100MB

	// Concurrency 0 means runtime.NumCPU().
	Concurrency int `split_words:"true" default:"0"`

	LogFormat string `split_words:"true" default:"console"`
	LogLevel  string `split_words:"true" default:"info"`

	TraceEndpoint    string  `split_words:"true"`
	TraceInsecure    bool    `split_words:"true" default:"true"`
	TraceStdout      bool    `split_words:"true" default:"false"`
	TraceSampleRatio float64 `split_words:"true" default:"1"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		URI:              "bolt://localhost:7687",
		User:             "neo4j",
		MaxMessageSize:   104857600,
		LogFormat:        "console",
		LogLevel:         "info",
		TraceInsecure:    true,
		TraceSampleRatio: 1,
	}
}

// Load reads the given dotenv files (".env" when none are named) into the
// process environment without overriding variables already set, then
// processes GDS_* variables. A missing default .env file is not an error;
// an explicitly named file that is missing is.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return Config{}, fmt.Errorf("load env files %v: %w", envFiles, err)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process %s_* environment: %w", Prefix, err)
	}
	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func Validate(cfg *Config) error {
	if cfg.URI == "" {
		return ErrInvalidURI
	}
	scheme, _, ok := strings.Cut(cfg.URI, "://")
	if !ok || !contains(uriSchemes, scheme) {
		return ErrInvalidURIScheme
	}
	if cfg.MaxMessageSize <= 0 {
		return ErrInvalidMaxMessageSize
	}
	if cfg.Concurrency < 0 {
		return ErrInvalidConcurrency
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return ErrInvalidLogFormat
	}
	if !contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return ErrInvalidLogLevel
	}
	if cfg.TraceSampleRatio <= 0 || cfg.TraceSampleRatio > 1 {
		return ErrInvalidSampleRatio
	}
	return nil
}

// ArrowEnabled reports whether an Arrow Flight endpoint is configured.
func (c *Config) ArrowEnabled() bool {
	return c.ArrowAddr != ""
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

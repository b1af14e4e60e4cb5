// Package logging builds the zap loggers used by the client and gdsctl. Every
// logger counts its entries in prometheus so that warning and error rates are
// visible next to the procedure call metrics.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// LogEntriesTotal counts written entries per level.
	LogEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gds_log_entries_total",
			Help: "Log entries written, by level",
		},
		[]string{"level"},
	)

	// LogErrorsTotal counts entries at error level and above.
	LogErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gds_log_errors_total",
			Help: "Log entries written at error level or above",
		},
	)
)

// Config selects the encoding, the minimum level and the destination.
type Config struct {
	// Format is "json", or "console" (alias "text") for human readable lines.
	Format string
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Output defaults to os.Stderr, keeping stdout free for command results.
	Output io.Writer
}

// DefaultConfig logs info and above to stderr in console format.
func DefaultConfig() Config {
	return Config{Format: "console", Level: "info", Output: os.Stderr}
}

var levels = map[string]zapcore.Level{
	"":        zapcore.InfoLevel,
	"debug":   zapcore.DebugLevel,
	"info":    zapcore.InfoLevel,
	"warn":    zapcore.WarnLevel,
	"warning": zapcore.WarnLevel,
	"error":   zapcore.ErrorLevel,
}

// ParseLevel maps a configured level name onto a zap level.
func ParseLevel(name string) (zapcore.Level, error) {
	level, ok := levels[strings.ToLower(name)]
	if !ok {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s", name)
	}
	return level, nil
}

// NewLogger builds a logger from cfg.
func NewLogger(cfg Config) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), zapcore.AddSync(out), level)
	return zap.New(countingCore{Core: core}, zap.AddCaller()), nil
}

func newEncoder(format string) zapcore.Encoder {
	switch strings.ToLower(format) {
	case "console", "text":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(ec)
}

// countingCore increments the log metrics for every entry it writes.
type countingCore struct {
	zapcore.Core
}

//nolint:gocritic // hugeParam: zapcore.Core fixes the signature
func (c countingCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return ce
	}
	return ce.AddCore(entry, c)
}

//nolint:gocritic // hugeParam: zapcore.Core fixes the signature
func (c countingCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	LogEntriesTotal.WithLabelValues(entry.Level.String()).Inc()
	if entry.Level >= zapcore.ErrorLevel {
		LogErrorsTotal.Inc()
	}
	return c.Core.Write(entry, fields)
}

func (c countingCore) With(fields []zapcore.Field) zapcore.Core {
	return countingCore{Core: c.Core.With(fields)}
}

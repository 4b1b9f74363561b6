package logger

import (
	"fmt"

	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/isdmx/coderunner/config"
)

// Option adjusts the zap configuration before the logger is built
type Option func(*zap.Config)

// WithOutputPaths sends log entries to the given sinks instead of the mode's default
func WithOutputPaths(paths ...string) Option {
	return func(cfg *zap.Config) {
		cfg.OutputPaths = paths
	}
}

// WithInitialFields attaches fields to every entry, e.g. the service name
func WithInitialFields(fields map[string]any) Option {
	return func(cfg *zap.Config) {
		cfg.InitialFields = fields
	}
}

// NewFromConfig builds the service logger. Entries always go to stderr so
// the stdio MCP transport keeps stdout to itself.
func NewFromConfig(cfg *config.Config) (*zap.Logger, error) {
	return New(cfg.Logging.Mode, cfg.Logging.Level,
		WithOutputPaths("stderr"),
		WithInitialFields(map[string]any{"service": "coderunner"}))
}

// New creates a new logger instance based on configuration
func New(mode, level string, opts ...Option) (*zap.Logger, error) {
	var cfg zap.Config

	switch mode {
	case "development":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "production":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return nil, fmt.Errorf("invalid logging mode: %s, must be 'production' or 'development'", mode)
	}

	// Set the log level
	logLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging level: %s, must be one of 'debug', 'info', 'warn', 'error', 'dpanic', 'panic', 'fatal'", level)
	}
	cfg.Level = zap.NewAtomicLevelAt(logLevel)

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg.Build()
}

// NewFxEventLogger routes fx lifecycle events through the application logger.
// Routine events are logged at debug so they stay out of production output.
func NewFxEventLogger(log *zap.Logger) fxevent.Logger {
	fxLogger := &fxevent.ZapLogger{Logger: log.Named("fx")}
	fxLogger.UseLogLevel(zapcore.DebugLevel)
	return fxLogger
}

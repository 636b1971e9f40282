package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction
type Options struct {
	ServiceName   string
	Level         string
	File          string
	RetentionDays int
}

// NewLogger creates a new structured logger writing JSON to stderr and, when
// File is set, to a rotating log file that keeps RetentionDays of history.
func NewLogger(opts Options) (*zap.Logger, error) {
	level := zapcore.DebugLevel
	if opts.Level != "" {
		parsed, err := parseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
	}
	if opts.File != "" {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(newFileSink(opts.File, opts.RetentionDays)), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if opts.ServiceName != "" {
		logger = logger.With(zap.String("service", opts.ServiceName))
	}
	return logger, nil
}

// parseLevel also accepts the "warning" and "critical" spellings
func parseLevel(raw string) (zapcore.Level, error) {
	switch name := strings.ToLower(strings.TrimSpace(raw)); name {
	case "warning":
		return zapcore.WarnLevel, nil
	case "critical":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.ParseLevel(name)
	}
}

func newFileSink(path string, retentionDays int) *lumberjack.Logger {
	if retentionDays < 0 {
		retentionDays = 0
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxAge:     retentionDays,
		MaxBackups: 0,
		LocalTime:  true,
	}
}

// WithRunID returns a logger with run_id field
func WithRunID(logger *zap.Logger, runID string) *zap.Logger {
	return logger.With(zap.String("run_id", runID))
}

package logging

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity
// when no level is passed explicitly.
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "MODELSERVE_LOG_LEVEL"

// Initialize creates a new logger with the specified level.
// If level is empty, it checks MODELSERVE_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	zapLevel, err := ParseLevel(level)
	if err != nil {
		return err
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q (expected debug, info, warn or error)", level)
	}
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer
// cores to assert on emitted entries.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// LogConnection logs a connection state change
func LogConnection(remoteAddr string, event string) {
	Debug("Connection event",
		zap.String("remote_addr", remoteAddr),
		zap.String("event", event),
	)
}

// LogHTTPRequest logs a completed HTTP request
func LogHTTPRequest(remoteAddr, method, path, rangeHeader string, status int, bytes int64, elapsed time.Duration) {
	fields := []zap.Field{
		zap.String("remote_addr", remoteAddr),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Int64("bytes", bytes),
		zap.Duration("elapsed", elapsed),
	}
	if rangeHeader != "" {
		fields = append(fields, zap.String("range", rangeHeader))
	}
	Info("HTTP request", fields...)
}

// LogTransfer logs a finished body transfer
func LogTransfer(remoteAddr string, start, end, sent int64, shortRead bool) {
	fields := []zap.Field{
		zap.String("remote_addr", remoteAddr),
		zap.Int64("start", start),
		zap.Int64("end", end),
		zap.Int64("sent", sent),
	}
	if shortRead {
		Warn("Short read from artifact, response truncated", fields...)
		return
	}
	Debug("Transfer complete", fields...)
}

// LogDisconnect logs a client that went away mid-transfer
func LogDisconnect(remoteAddr string, sent, expected int64, err error) {
	Info("Client disconnected during transfer",
		zap.String("remote_addr", remoteAddr),
		zap.Int64("sent", sent),
		zap.Int64("expected", expected),
		zap.Error(err),
	)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}

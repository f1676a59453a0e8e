/*
Copyright The Garage Operator Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package log wraps the logr.Logger used across the operator so every
// package logs through the same structured, levelled interface regardless
// of which backend (zap, in this process) is installed.
package log

import (
	"context"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names accepted by the --log-level flag, whose default comes from
// the LOG_LEVEL environment variable.
const (
	ErrorLevelString = "error"
	WarningLevelString = "warning"
	InfoLevelString = "info"
	DebugLevelString = "debug"
	DefaultLevelString = InfoLevelString
)

var baseLogger logr.Logger = logr.Discard()

// SetLogger installs the logger every subsequent Logger()/WithName() call
// derives from. Called once at process start.
func SetLogger(logger logr.Logger) {
	baseLogger = logger
}

// Logger returns the process-wide base logger.
func Logger() logr.Logger {
	return baseLogger
}

// WithName returns a named child of the process-wide logger, the way every
// package-level logger variable in this operator is constructed.
func WithName(name string) logr.Logger {
	return baseLogger.WithName(name)
}

// FromContext extracts a logger from ctx, falling back to the process-wide
// logger when none was attached.
func FromContext(ctx context.Context) logr.Logger {
	if logger, err := logr.FromContext(ctx); err == nil {
		return logger
	}
	return baseLogger
}

// IntoContext attaches logger to ctx for downstream FromContext calls.
func IntoContext(ctx context.Context, logger logr.Logger) context.Context {
	return logr.NewContext(ctx, logger)
}

// NewZapLogger builds a logr.Logger backed by zap, parsing levelSpec as a
// comma-separated directive list whose first element is the global level
// (e.g. "info" or "debug,garageclient=error" — per-package directives
// beyond the first are accepted but only the global level is honored,
// since the operator has no per-package zap cores).
func NewZapLogger(levelSpec string) logr.Logger {
	directives := strings.Split(levelSpec, ",")
	level := parseLevel(strings.TrimSpace(directives[0]))

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zapLog, err := cfg.Build()
	if err != nil {
		return logr.Discard()
	}
	return zapr.NewLogger(zapLog)
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case ErrorLevelString:
		return zapcore.ErrorLevel
	case WarningLevelString:
		return zapcore.WarnLevel
	case DebugLevelString:
		return zapcore.DebugLevel
	case InfoLevelString, "":
		return zapcore.InfoLevel
	default:
		return zapcore.InfoLevel
	}
}

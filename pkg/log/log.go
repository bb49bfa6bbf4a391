// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package log is a thin, structured logging wrapper. The teacher's own
// pkg/log delegated to a sibling monorepo module (luxfi/node/utils/logging)
// that cannot be fetched standalone; this keeps the same small Logger
// interface and call shape (message plus alternating key/value pairs, as
// auction.go already calls it) but delegates straight to zap, which the
// teacher already depends on directly.
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the interface every protocol package logs through.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
	Fatal(msg string, keyvals ...any)
	With(keyvals ...any) Logger
	Sync() error
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// New creates a production logger at info level.
func New() Logger {
	return NewWithLevel("info")
}

// NewWithLevel creates a logger at the named level (debug|info|warn|error|fatal).
func NewWithLevel(level string) Logger {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.Lock(os.Stderr), lvl)
	base := zap.New(core)
	return &zapLogger{sugar: base.Sugar()}
}

// NewLogger creates a named logger, matching the teacher's NewLogger(name).
func NewLogger(name string) Logger {
	l := New()
	return l.With("component", name)
}

// NoOp returns a logger that discards everything; used in tests the way the
// teacher's tests use log.NoOp().
func NoOp() Logger { return &noOpLogger{} }

// NoLog is a shared no-op logger instance.
var NoLog = NoOp()

func (l *zapLogger) Debug(msg string, keyvals ...any) { l.sugar.Debugw(msg, keyvals...) }
func (l *zapLogger) Info(msg string, keyvals ...any)  { l.sugar.Infow(msg, keyvals...) }
func (l *zapLogger) Warn(msg string, keyvals ...any)  { l.sugar.Warnw(msg, keyvals...) }
func (l *zapLogger) Error(msg string, keyvals ...any) { l.sugar.Errorw(msg, keyvals...) }
func (l *zapLogger) Fatal(msg string, keyvals ...any) { l.sugar.Fatalw(msg, keyvals...) }
func (l *zapLogger) With(keyvals ...any) Logger {
	return &zapLogger{sugar: l.sugar.With(keyvals...)}
}
func (l *zapLogger) Sync() error { return l.sugar.Sync() }

type noOpLogger struct{}

func (noOpLogger) Debug(string, ...any)  {}
func (noOpLogger) Info(string, ...any)   {}
func (noOpLogger) Warn(string, ...any)   {}
func (noOpLogger) Error(string, ...any)  {}
func (noOpLogger) Fatal(string, ...any)  {}
func (n noOpLogger) With(...any) Logger  { return n }
func (noOpLogger) Sync() error           { return nil }

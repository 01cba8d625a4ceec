// Package logging wraps go.uber.org/zap in a small leveled-logger type
// threaded through every subsystem via its constructor, rather than a
// package-level global.
package logging

import (
	"go.uber.org/zap"
)

// Logger is the leveled logger every subsystem constructor takes.
type Logger struct {
	s *zap.SugaredLogger
}

// New builds a production-configured Logger. verbose enables debug-level
// output.
func New(verbose bool) (*Logger, error) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{s: base.Sugar()}, nil
}

// NewNop returns a Logger that discards everything, for tests.
func NewNop() *Logger { return &Logger{s: zap.NewNop().Sugar()} }

// With returns a derived Logger that always includes the given key/value
// pairs, e.g. log.With("txid", id).
func (l *Logger) With(args ...interface{}) *Logger { return &Logger{s: l.s.With(args...)} }

func (l *Logger) Debug(msg string, args ...interface{}) { l.s.Debugw(msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.s.Infow(msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.s.Warnw(msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.s.Errorw(msg, args...) }

// Crit logs at the highest severity without terminating the process; the
// caller (package fatal) decides the exit code, since zap's own Fatal
// level always exits with status 1 and invariant violations must exit
// with status 2.
func (l *Logger) Crit(msg string, args ...interface{}) { l.s.Errorw("CRITICAL: "+msg, args...) }

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error { return l.s.Sync() }

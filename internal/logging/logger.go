package logging

import "log/slog"

// Logger is the logging collaborator the CORE depends on (spec.md §1).
// Applications may supply their own implementation through
// cherami.ClientConfig.Logger; SlogLogger is used when none is supplied.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogLogger adapts the package's operational *slog.Logger (Op()) to the
// Logger interface.
type SlogLogger struct {
	l *slog.Logger
}

// Default returns a Logger backed by the package-level operational logger.
func Default() Logger {
	return SlogLogger{l: Op()}
}

func (s SlogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s SlogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s SlogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s SlogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

var _ Logger = SlogLogger{}

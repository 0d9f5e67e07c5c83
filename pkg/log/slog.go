package log

import (
	"context"
	"log/slog"
)

// SlogLogger adapts a *slog.Logger to Logger.
type SlogLogger struct {
	l     *slog.Logger
	level *LevelVar
}

// NewSlogLogger wraps l. Records below level are dropped before reaching
// the handler.
func NewSlogLogger(l *slog.Logger, level Level) *SlogLogger {
	return &SlogLogger{l: l, level: NewLevelVar(level)}
}

// Debug implements Logger.Debug.
func (s *SlogLogger) Debug(msg string, fields ...any) { s.log(LevelDebug, msg, fields) }

// Info implements Logger.Info.
func (s *SlogLogger) Info(msg string, fields ...any) { s.log(LevelInfo, msg, fields) }

// Warn implements Logger.Warn.
func (s *SlogLogger) Warn(msg string, fields ...any) { s.log(LevelWarn, msg, fields) }

// Error implements Logger.Error. A leading error becomes an ErrAttr so that
// ErrFmtHandler can attach its stack trace.
func (s *SlogLogger) Error(msg string, fields ...any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			fields = append([]any{ErrAttr(err)}, fields[1:]...)
		}
	}
	s.log(LevelError, msg, fields)
}

// With implements Logger.With.
func (s *SlogLogger) With(fields ...any) Logger {
	return &SlogLogger{l: s.l.With(fields...), level: s.level}
}

// Enabled implements Logger.Enabled.
func (s *SlogLogger) Enabled(ctx context.Context, level Level) bool {
	return level >= s.level.Level() && s.l.Enabled(ctx, slog.Level(level))
}

func (s *SlogLogger) log(level Level, msg string, fields []any) {
	if level < s.level.Level() {
		return
	}
	s.l.Log(context.Background(), slog.Level(level), msg, fields...)
}

// SlogProvider implements LoggerProvider over one *slog.Logger.
type SlogProvider struct {
	base *SlogLogger
}

// NewSlogProvider creates a provider around l.
func NewSlogProvider(l *slog.Logger, level Level) *SlogProvider {
	return &SlogProvider{base: NewSlogLogger(l, level)}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *SlogProvider) GetLogger() Logger { return p.base }

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *SlogProvider) GetLoggerWithName(name string) Logger {
	return p.base.With(ComponentKey, name)
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *SlogProvider) SetLevel(level Level) { p.base.level.Set(level) }

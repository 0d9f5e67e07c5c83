package log

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// LevelVar is a Level that can be changed while loggers holding it are in use.
type LevelVar struct {
	v atomic.Int64
}

// NewLevelVar returns a LevelVar set to level.
func NewLevelVar(level Level) *LevelVar {
	lv := &LevelVar{}
	lv.Set(level)
	return lv
}

// Level returns the current level.
func (lv *LevelVar) Level() Level { return Level(lv.v.Load()) }

// Set changes the level.
func (lv *LevelVar) Set(level Level) { lv.v.Store(int64(level)) }

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	zl    zerolog.Logger
	level *LevelVar
}

// NewZerologLogger writes JSON records to w. Records below level are dropped.
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	return newZerologLogger(zerolog.New(w).With().Timestamp().Logger(), NewLevelVar(level))
}

// NewConsoleLogger writes human-readable records to w.
func NewConsoleLogger(w io.Writer, level Level) *ZerologLogger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
	return newZerologLogger(zerolog.New(cw).With().Timestamp().Logger(), NewLevelVar(level))
}

func newZerologLogger(zl zerolog.Logger, level *LevelVar) *ZerologLogger {
	// level filtering is done against the shared LevelVar
	return &ZerologLogger{zl: zl.Level(zerolog.TraceLevel), level: level}
}

// Debug implements Logger.Debug.
func (l *ZerologLogger) Debug(msg string, fields ...any) {
	l.emit(LevelDebug, l.zl.Debug(), msg, fields)
}

// Info implements Logger.Info.
func (l *ZerologLogger) Info(msg string, fields ...any) {
	l.emit(LevelInfo, l.zl.Info(), msg, fields)
}

// Warn implements Logger.Warn.
func (l *ZerologLogger) Warn(msg string, fields ...any) {
	l.emit(LevelWarn, l.zl.Warn(), msg, fields)
}

// Error implements Logger.Error.
func (l *ZerologLogger) Error(msg string, fields ...any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev := l.zl.Error().Err(err)
			if st := extractStacktrace(err); st != "" {
				ev = ev.Str(StacktraceAttrKey, st)
			}
			l.emit(LevelError, ev, msg, fields[1:])
			return
		}
	}
	l.emit(LevelError, l.zl.Error(), msg, fields)
}

// With implements Logger.With.
func (l *ZerologLogger) With(fields ...any) Logger {
	return &ZerologLogger{
		zl:    l.zl.With().Fields(pairs(fields)).Logger(),
		level: l.level,
	}
}

// Enabled implements Logger.Enabled.
func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return level >= l.level.Level()
}

func (l *ZerologLogger) emit(level Level, ev *zerolog.Event, msg string, fields []any) {
	if level < l.level.Level() {
		ev.Discard()
		return
	}
	ev.Fields(pairs(fields)).Msg(msg)
}

// pairs drops a trailing key without a value.
func pairs(fields []any) []interface{} {
	if len(fields)%2 == 1 {
		fields = fields[:len(fields)-1]
	}
	return fields
}

package log

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/treeml/pkg/errors"
)

// ZerologProvider hands out ZerologLoggers sharing one destination and level.
type ZerologProvider struct {
	base  *ZerologLogger
	level *LevelVar
}

// NewZerologProvider creates a provider writing JSON records to w.
func NewZerologProvider(w io.Writer, level Level) *ZerologProvider {
	base := NewZerologLogger(w, level)
	return &ZerologProvider{base: base, level: base.level}
}

// NewConsoleProvider creates a provider writing console records to w.
func NewConsoleProvider(w io.Writer, level Level) *ZerologProvider {
	base := NewConsoleLogger(w, level)
	return &ZerologProvider{base: base, level: base.level}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	return p.base
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return p.base.With(ComponentKey, name)
}

// SetLevel implements LoggerProvider.SetLevel. Loggers already handed out
// follow the change.
func (p *ZerologProvider) SetLevel(level Level) {
	p.level.Set(level)
}

var (
	providerMu sync.RWMutex
	provider   LoggerProvider = NewZerologProvider(os.Stderr, LevelWarn)
)

// SetProvider replaces the process-wide provider. Loggers obtained earlier
// keep writing to the old provider.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	provider = p
}

// GetProvider returns the process-wide provider.
func GetProvider() LoggerProvider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider
}

// GetLogger returns the process-wide default logger.
func GetLogger() Logger {
	return GetProvider().GetLogger()
}

// GetLoggerWithName returns a process-wide logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	return GetProvider().GetLoggerWithName(name)
}

// SetLevel sets the level of the process-wide provider.
func SetLevel(level Level) {
	GetProvider().SetLevel(level)
}

func init() {
	errors.SetZerologWarnFunc(logWarning)
}

// logWarning forwards errors.Warn to the process-wide logger, expanding
// structured warnings through their zerolog marshaler.
func logWarning(w error) {
	fields := []any{
		ErrorKindKey, errors.KindOf(w).String(),
	}
	var obj zerolog.LogObjectMarshaler
	if errors.As(w, &obj) {
		fields = append(fields, "warning", obj, ErrorTypeKey, fmt.Sprintf("%T", obj))
	}
	GetLoggerWithName("warnings").Warn(w.Error(), fields...)
}

package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// SetupLogger installs a JSON slog default on stdout and routes the
// process-wide provider through it.
func SetupLogger(loglevel string) error {
	return SetupLoggerTo(os.Stdout, loglevel)
}

// SetupLoggerTo is SetupLogger with an explicit destination.
func SetupLoggerTo(w io.Writer, loglevel string) error {
	level, err := ToLogLevel(loglevel)
	if err != nil {
		return err
	}
	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     level,
		// Replace attributes to convert to CloudLogging format.
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr = slog.Attr{
					Key:   "severity",
					Value: attr.Value,
				}
			case slog.MessageKey:
				attr = slog.Attr{
					Key:   "message",
					Value: attr.Value,
				}
			case slog.SourceKey:
				attr = slog.Attr{
					Key:   "logging.googleapis.com/sourceLocation",
					Value: attr.Value,
				}
			}
			return attr
		},
	}
	handler := slog.NewJSONHandler(w, &ops)
	logger := slog.New(WrapByErrFmtHandler(handler))
	slog.SetDefault(logger)
	SetProvider(NewSlogProvider(logger, Level(level)))
	return nil
}

// ToLogLevel parses a level name.
func ToLogLevel(level string) (slog.Level, error) {
	switch level {
	case "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %q", level)
	}
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

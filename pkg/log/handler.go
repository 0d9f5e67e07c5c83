package log

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	mlerrors "github.com/YuminosukeSato/treeml/pkg/errors"
)

// ErrFmtHandler is a slog handler that adds the error kind and the stack
// trace recorded by cockroachdb/errors, or by a recovered panic, whenever a
// record carries an ErrAttr.
type ErrFmtHandler struct {
	handler slog.Handler
}

// WrapByErrFmtHandler wraps handler with stack trace extraction.
func WrapByErrFmtHandler(handler slog.Handler) slog.Handler {
	return &ErrFmtHandler{
		handler: handler,
	}
}

func (eh *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return eh.handler.Enabled(ctx, l)
}

func (eh *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	var (
		stacktrace string
		kind       mlerrors.Kind
	)
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrAttrKey {
			return true
		}
		if err, ok := attr.Value.Any().(error); ok {
			stacktrace = extractStacktrace(err)
			kind = mlerrors.KindOf(err)
		}
		return false
	})
	if kind != mlerrors.KindUnknown {
		r.AddAttrs(slog.String(ErrorKindKey, kind.String()))
	}
	if stacktrace != "" {
		r.AddAttrs(slog.String(StacktraceAttrKey, stacktrace))
	}
	return eh.handler.Handle(ctx, r)
}

func (eh *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithAttrs(attrs)}
}

func (eh *ErrFmtHandler) WithGroup(g string) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithGroup(g)}
}

// extractStacktrace returns the stack of a recovered panic, else the first
// safe detail found walking err's chain. Errors built with errors.WithStack
// store their stack there.
func extractStacktrace(err error) string {
	var p *mlerrors.PanicError
	if errors.As(err, &p) && p.StackTrace != "" {
		return p.StackTrace
	}
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		if details := errors.GetSafeDetails(e).SafeDetails; len(details) > 0 && details[0] != "" {
			return details[0]
		}
	}
	return ""
}

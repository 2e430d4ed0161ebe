package log

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// ErrFmtHandler decorates records that carry an ErrAttr.
//
// Records at or above stackLevel get the cockroachdb stack trace of the
// error; every such record gets the type of the error's root cause, e.g.
// "*errors.ValidationError", so JSON logs can be filtered by failure kind.
type ErrFmtHandler struct {
	handler    slog.Handler
	stackLevel slog.Level
}

// WrapByErrFmtHandler wraps handler. Stack traces are attached from
// slog.LevelWarn upwards; use WrapByErrFmtHandlerLevel to change that.
func WrapByErrFmtHandler(handler slog.Handler) slog.Handler {
	return WrapByErrFmtHandlerLevel(handler, slog.LevelWarn)
}

// WrapByErrFmtHandlerLevel wraps handler, attaching stack traces to records
// at or above stackLevel.
func WrapByErrFmtHandlerLevel(handler slog.Handler, stackLevel slog.Level) slog.Handler {
	return &ErrFmtHandler{handler: handler, stackLevel: stackLevel}
}

func (eh *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return eh.handler.Enabled(ctx, l)
}

func (eh *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	var logged error
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrAttrKey {
			return true
		}
		logged, _ = attr.Value.Any().(error)
		return false
	})
	if logged == nil {
		return eh.handler.Handle(ctx, r)
	}

	r.AddAttrs(slog.String(ErrorTypeKey, fmt.Sprintf("%T", errors.UnwrapAll(logged))))
	if r.Level >= eh.stackLevel {
		if stacktrace := extractStacktrace(logged); stacktrace != "" {
			r.AddAttrs(slog.String(StacktraceAttrKey, stacktrace))
		}
	}
	return eh.handler.Handle(ctx, r)
}

func (eh *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithAttrs(attrs), stackLevel: eh.stackLevel}
}

func (eh *ErrFmtHandler) WithGroup(g string) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithGroup(g), stackLevel: eh.stackLevel}
}

// extractStacktrace returns the first safe detail recorded by
// cockroachdb/errors, which holds the stack of the innermost WithStack.
func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

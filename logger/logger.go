package logger

import (
	"context"
	"log/slog"
	"os"
)

type contextKey string

const attrKey contextKey = "attrKey"

// ContextHandler implements [slog.Handler] and adds to the log record any
// attributes previously attached to the context with [Ctx].
type ContextHandler struct {
	slog.Handler
}

// NewContextHandler creates a ContextHandler wrapping `handler`.
func NewContextHandler(handler slog.Handler) ContextHandler {
	return ContextHandler{Handler: handler}
}

// Handle implements [slog.Handler].
func (h ContextHandler) Handle(ctx context.Context, record slog.Record) error {
	attrs, ok := ctx.Value(attrKey).([]slog.Attr)
	if !ok {
		return h.Handler.Handle(ctx, record)
	}

	record.AddAttrs(attrs...)

	return h.Handler.Handle(ctx, record)
}

// Ctx returns a context carrying the given attributes.
//
// Anything logged with the resulting context gets them added to the record
// by the [ContextHandler].
func Ctx(ctx context.Context, toAppend ...slog.Attr) context.Context {
	attrs, ok := ctx.Value(attrKey).([]slog.Attr)
	if !ok {
		attrs = []slog.Attr{}
	}

	attrs = append(attrs, toAppend...)
	return context.WithValue(ctx, attrKey, attrs)
}

// New builds the process logger: a text or json handler at the given level,
// wrapped so context attributes make it onto every record.
func New(format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(NewContextHandler(handler))
}

package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/manzanit0/geosearch/pkg/middleware"
)

func InitGlobalSlog(service string, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := NewContextJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	logger = logger.With("service", service)
	slog.SetDefault(logger)
}

// ContextJSONHandler is a JSON handler that also logs the trace and session
// ids carried by the record's context.
type ContextJSONHandler struct {
	jsonHandler slog.Handler
}

func NewContextJSONHandler(w io.Writer, opts *slog.HandlerOptions) *ContextJSONHandler {
	return &ContextJSONHandler{slog.NewJSONHandler(w, opts)}
}

func (h *ContextJSONHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.jsonHandler.Enabled(ctx, level)
}

func (h *ContextJSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextJSONHandler{jsonHandler: h.jsonHandler.WithAttrs(attrs)}
}

func (h *ContextJSONHandler) WithGroup(name string) slog.Handler {
	return &ContextJSONHandler{jsonHandler: h.jsonHandler.WithGroup(name)}
}

func (h *ContextJSONHandler) Handle(ctx context.Context, r slog.Record) error {
	if traceID, ok := ctx.Value(middleware.CtxKeyTraceID).(string); ok {
		r.AddAttrs(slog.String(string(middleware.CtxKeyTraceID), traceID))
	}

	if sessionID, ok := ctx.Value(middleware.CtxKeySessionID).(string); ok {
		r.AddAttrs(slog.String(string(middleware.CtxKeySessionID), sessionID))
	}

	return h.jsonHandler.Handle(ctx, r)
}

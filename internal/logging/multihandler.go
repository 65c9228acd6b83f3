package logging

import (
	"context"
	"log/slog"
)

// MultiHandler fans every record out to a set of handlers, so one session
// can log to the console, the session log file and the telemetry bridge at
// the same time. Nil handlers are dropped at construction.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler builds a handler over all non-nil handlers given.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	kept := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			kept = append(kept, h)
		}
	}
	return &MultiHandler{handlers: kept}
}

// Enabled reports whether at least one handler accepts the level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers the record to every handler that accepts its level. A
// failing handler does not stop delivery to the remaining ones.
func (m *MultiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, h := range m.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		_ = h.Handle(ctx, record.Clone())
	}
	return nil
}

// WithAttrs applies the attributes to each handler.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: next}
}

// WithGroup applies the group name to each handler.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithGroup(name)
	}
	return &MultiHandler{handlers: next}
}

package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Indirection points so tests can capture console output.
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// Manager holds the configured slog logger and the OTel provider used for
// flushing buffered records.
type Manager struct {
	logger *slog.Logger

	logProvider *sdklog.LoggerProvider
}

// NewManager creates a new logging manager.
func NewManager() *Manager {
	return &Manager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes logging. Records go to the given file, or to the
// console when no file is provided, and additionally to OTel when a
// provider is passed. The stage provider, when non-nil, stamps every
// record with the currently running pipeline stage.
func (m *Manager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, stage ContextProvider) {
	lvl := parseLevel(level)
	m.logProvider = provider

	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(osStdout, handlerOpts))
	}

	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler("graphio-extractor", otelslog.WithLoggerProvider(provider)))
	}

	var handler slog.Handler = NewMultiHandler(handlers...)
	if stage != nil {
		handler = NewContextHandler(handler, stage)
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", level)
}

// Logger returns the configured slog.Logger.
func (m *Manager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *Manager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

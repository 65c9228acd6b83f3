package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/graphio/extractor/internal/config"
	"github.com/graphio/extractor/internal/influx"
	"github.com/graphio/extractor/internal/logging"
	intotel "github.com/graphio/extractor/internal/otel"
	"github.com/graphio/extractor/internal/pipeline"
	"github.com/graphio/extractor/internal/symbol"
)

const toolName = "graphio_extractor"

// Version and BuildDate can be set at build time via ldflags.
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

func newRootCommand() *cobra.Command {
	var (
		stageName       string
		pruneLevel      int
		extractInterval int
		noTransformLog  bool
		keepIconSources bool
		configDir       string
	)

	cmd := &cobra.Command{
		Use:     "graphio-extractor <factorio-dir>",
		Short:   "Extract production data and icons from a Factorio installation",
		Long:    "Runs the game headlessly to export prototype data, assembles it into a typed model, renders entity icons and packs them into an atlas.",
		Version: Version + " (built " + BuildDate + ")",
		Args:    cobra.ExactArgs(1),

		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, err := pipeline.ParseStage(stageName)
			if err != nil {
				return err
			}
			if pruneLevel < 0 || pruneLevel > 2 {
				return errors.Newf("prune level must be 0, 1 or 2, got %d", pruneLevel)
			}
			if extractInterval < 1 {
				return errors.Newf("extract interval must be at least 1, got %d", extractInterval)
			}

			opts := pipeline.Options{
				GameDir:         args[0],
				Stage:           stage,
				PruneLevel:      pruneLevel,
				ExtractInterval: extractInterval,
				LogTransform:    !noTransformLog,
				KeepIconSources: keepIconSources,
			}
			return run(cmd.Context(), opts, configDir)
		},
	}

	cmd.Flags().StringVar(&stageName, "stage", "all",
		"stage to run: all, data, icons, extract_data, transform_data, extract_icons, transform_icons")
	cmd.Flags().IntVar(&pruneLevel, "prune-level", 0,
		"how aggressively the export trims unused prototypes (0-2)")
	cmd.Flags().IntVar(&extractInterval, "extract-interval", 5,
		"ticks between icon renders; raise this if icons come out blank")
	cmd.Flags().BoolVar(&noTransformLog, "no-transform-log", false,
		"do not log every assembled entity")
	cmd.Flags().BoolVar(&keepIconSources, "keep-icon-sources", false,
		"keep the rendered icon tiles after the atlas is built")
	cmd.Flags().StringVar(&configDir, "config-dir", ".",
		"directory containing "+toolName+".cfg.json")

	return cmd
}

func run(ctx context.Context, opts pipeline.Options, configDir string) error {
	if err := config.Load(configDir); err != nil {
		return err
	}

	sessionStart := time.Now()
	logLevel := config.GetString("logLevel")
	logsDir := config.GetString("logsDir")

	var logFile *os.File
	if err := os.MkdirAll(logsDir, 0o755); err == nil {
		path := logging.LogFilePath(logsDir, toolName, sessionStart)
		logFile, _ = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	otelProvider, err := setupOTel(logsDir, sessionStart)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = otelProvider.Shutdown(shutdownCtx)
	}()

	tracker := pipeline.NewTracker()
	logManager := logging.NewManager()
	logManager.Setup(fileWriter(logFile), logLevel, otelProvider.LoggerProvider(), func() []slog.Attr {
		return []slog.Attr{slog.String("stage", tracker.Current())}
	})
	logger := logManager.Logger()
	logger.Info("Starting extractor", "version", Version, "buildDate", BuildDate, "stage", string(opts.Stage))
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = logManager.Flush(flushCtx)
	}()

	var zlogWriter io.Writer = os.Stdout
	if logFile != nil {
		zlogWriter = logFile
	}
	zlog := logging.NewZerolog(zlogWriter, logLevel)

	var metrics *influx.Manager
	if config.Influx().Enabled {
		metrics = influx.NewManager(zlog, filepath.Join(logsDir, "influx_backup.gz"))
		if err := metrics.Connect(); err != nil {
			logger.Warn("Stage metrics disabled", "error", err)
			metrics = nil
		} else {
			defer func() { _ = metrics.Close() }()
		}
	}

	p := pipeline.New(opts, symbol.NewTable(), logger, zlog, metrics, tracker)
	if err := p.Run(ctx, config.Storage()); err != nil {
		logger.Error("Extraction failed", "error", err)
		return err
	}

	logger.Info("Extraction finished", "duration", time.Since(sessionStart))
	return nil
}

func setupOTel(logsDir string, sessionStart time.Time) (*intotel.Provider, error) {
	cfg := intotel.Config{
		Enabled:      config.GetBool("otel.enabled"),
		ServiceName:  "graphio-extractor",
		BatchTimeout: 5 * time.Second,
		Endpoint:     config.GetString("otel.endpoint"),
		Insecure:     true,
	}
	if cfg.Enabled {
		path := logging.LogFilePath(logsDir, toolName+".otel", sessionStart)
		if file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
			cfg.LogWriter = file
		}
	}
	return intotel.New(cfg)
}

// fileWriter narrows *os.File to io.Writer without handing Setup a typed
// nil.
func fileWriter(f *os.File) io.Writer {
	if f == nil {
		return nil
	}
	return f
}

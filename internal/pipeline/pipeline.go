// Package pipeline orchestrates the extraction stages against a game
// installation: run the game to export records, assemble the typed model,
// render icon tiles, and build the atlas.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/graphio/extractor/internal/assembly"
	"github.com/graphio/extractor/internal/config"
	"github.com/graphio/extractor/internal/factorio"
	"github.com/graphio/extractor/internal/icon"
	"github.com/graphio/extractor/internal/influx"
	"github.com/graphio/extractor/internal/model"
	"github.com/graphio/extractor/internal/protocol"
	"github.com/graphio/extractor/internal/storage"
	"github.com/graphio/extractor/internal/symbol"
)

const (
	exportScenarioName = "graphio_exporter"
	iconScenarioName   = "graphio_extract_icons"
	iconOutputName     = "graphio_extracted_icons"

	// iconDoneMarker is printed by the icon scenario once every render has
	// been written.
	iconDoneMarker = "\x01done\x04"
)

// Options configure one pipeline run.
type Options struct {
	// GameDir is the game installation root.
	GameDir string
	// Stage selects which steps to run.
	Stage Stage
	// PruneLevel trims the exported data set (0 = everything).
	PruneLevel int
	// ExtractInterval is the tick spacing between icon renders.
	ExtractInterval int
	// LogTransform logs every assembled entity at info level.
	LogTransform bool
	// KeepIconSources leaves the rendered tiles on disk after the atlas
	// is built.
	KeepIconSources bool
}

// Pipeline runs extraction stages and persists their results.
type Pipeline struct {
	opts    Options
	table   *symbol.Table
	logger  *slog.Logger
	zlog    zerolog.Logger
	backend storage.Backend
	metrics *influx.Manager
	tracker *Tracker

	paths factorio.Paths

	// results carried between steps of one run
	records []string
	data    *model.GameData
	iconDir string
}

// New creates a pipeline. The zerolog logger feeds the storage managers.
// The metrics manager may be nil when stage metrics are disabled; the
// tracker may be nil when no stage stamping is wanted.
func New(opts Options, table *symbol.Table, logger *slog.Logger, zlog zerolog.Logger, metrics *influx.Manager, tracker *Tracker) *Pipeline {
	if tracker == nil {
		tracker = NewTracker()
	}
	return &Pipeline{
		opts:    opts,
		table:   table,
		logger:  logger,
		zlog:    zlog,
		metrics: metrics,
		tracker: tracker,
	}
}

// Run executes the selected stage. The storage backend is created here
// because the file backend defaults to the game's script-output directory,
// which is only known once the installation has been inspected.
func (p *Pipeline) Run(ctx context.Context, storageCfg config.StorageConfig) error {
	var err error
	p.paths, err = factorio.DiscoverPaths(p.opts.GameDir)
	if err != nil {
		return errors.Wrap(err, "inspecting game installation")
	}
	p.logger.Info("Found game installation",
		"executable", p.paths.Executable,
		"scriptOutput", p.paths.ScriptOutputDir)

	if storageCfg.Type == "file" && storageCfg.File.OutputDir == "" {
		storageCfg.File.OutputDir = p.paths.ScriptOutputDir
	}
	p.backend, err = storage.NewBackend(storageCfg, p.table, p.zlog)
	if err != nil {
		return err
	}
	if err := p.backend.Init(); err != nil {
		return errors.Wrap(err, "initializing storage backend")
	}
	defer func() {
		if closeErr := p.backend.Close(); closeErr != nil {
			p.logger.Warn("Failed to close storage backend", "error", closeErr)
		}
	}()

	for _, step := range p.opts.Stage.Steps() {
		if err := p.runStep(ctx, step); err != nil {
			return errors.Wrapf(err, "stage %s", step)
		}
	}
	return nil
}

func (p *Pipeline) runStep(ctx context.Context, step Stage) error {
	p.tracker.Set(step)
	p.logger.Info("Running stage")
	start := time.Now()

	var err error
	switch step {
	case StageExtractData:
		err = p.extractData(ctx)
	case StageTransformData:
		err = p.transformData()
	case StageExtractIcons:
		err = p.extractIcons(ctx)
	case StageTransformIcons:
		err = p.transformIcons()
	default:
		err = errors.Newf("stage %q has no runnable step", step)
	}

	duration := time.Since(start)
	p.recordStageMetric(ctx, step, duration, err)
	if err != nil {
		return err
	}
	p.logger.Info("Stage complete", "duration", duration)
	return nil
}

// extractData stages a scenario whose control script prints every prototype
// as framed records, runs the game on it, and stores what came back.
func (p *Pipeline) extractData(ctx context.Context) error {
	output, err := p.runScenario(ctx, exportScenarioName, factorio.ExportScript(p.opts.PruneLevel))
	if err != nil {
		return err
	}

	payload, err := protocol.ExtractPayload(output)
	if err != nil {
		return err
	}
	p.records = protocol.Records(payload)
	p.logger.Info("Exported prototype records", "count", len(p.records))

	location, err := p.backend.SavePrototypes(p.records, false)
	if err != nil {
		return err
	}
	p.logger.Info("Stored prototype records", "location", location)
	return nil
}

// transformData assembles stored records into the typed model.
func (p *Pipeline) transformData() error {
	if p.records == nil {
		records, err := p.backend.LoadPrototypes()
		if err != nil {
			return errors.Wrap(err, "loading prototype records")
		}
		p.records = records
	}

	asm := assembly.New(p.table, p.logger, p.opts.LogTransform)
	gd, err := asm.Assemble(p.records)
	if err != nil {
		return err
	}
	p.data = gd
	p.logger.Info("Assembled game data",
		"items", len(gd.Items),
		"fluids", len(gd.Fluids),
		"recipes", len(gd.Recipes),
		"machines", len(gd.Machines),
		"beacons", len(gd.Beacons))

	location, err := p.backend.SaveGameData(gd, false)
	if err != nil {
		return err
	}
	p.logger.Info("Stored game data", "location", location)
	return nil
}

// extractIcons stages a scenario that renders every entity's icon in a dark
// and a light variant under script-output.
func (p *Pipeline) extractIcons(ctx context.Context) error {
	if err := p.ensureGameData(); err != nil {
		return err
	}

	if _, err := factorio.EnsureDir(p.paths.ScriptOutputDir); err != nil {
		return errors.Wrap(err, "creating script output directory")
	}
	iconDir, err := factorio.CreateDirSafely(p.paths.ScriptOutputDir, iconOutputName)
	if err != nil {
		return errors.Wrap(err, "creating icon output directory")
	}
	p.iconDir = iconDir

	script, err := factorio.IconExtractScript(p.table, p.data, filepath.Base(iconDir), p.opts.ExtractInterval)
	if err != nil {
		return err
	}

	output, err := p.runScenario(ctx, iconScenarioName, script)
	if err != nil {
		return err
	}
	if !strings.Contains(output, iconDoneMarker) {
		return errors.New("icon extraction stopped before rendering every entity")
	}
	p.logger.Info("Rendered icon tiles", "dir", iconDir)
	return nil
}

// transformIcons builds the atlas from rendered tiles, stores it, and
// rewrites the stored game data with atlas slots attached.
func (p *Pipeline) transformIcons() error {
	if err := p.ensureGameData(); err != nil {
		return err
	}
	if p.iconDir == "" {
		p.iconDir = filepath.Join(p.paths.ScriptOutputDir, iconOutputName)
	}
	if _, err := os.Stat(p.iconDir); err != nil {
		return errors.Wrapf(err, "icon directory %s not found, run extract_icons first", p.iconDir)
	}

	builder := icon.NewBuilder(p.table, p.logger)
	builder.DeleteSources = p.deleteIconSources()
	atlas, err := builder.Build(p.data, p.iconDir)
	if err != nil {
		return err
	}

	png, err := atlas.EncodePNG()
	if err != nil {
		return err
	}
	location, err := p.backend.SaveAtlas(png)
	if err != nil {
		return err
	}
	p.logger.Info("Stored icon atlas",
		"location", location,
		"tiles", atlas.Tiles.TileCount,
		"width", atlas.Tiles.Width,
		"height", atlas.Tiles.Height)

	if err := builder.Apply(p.data, atlas); err != nil {
		return err
	}

	if location, err = p.backend.SaveGameData(p.data, true); err != nil {
		return err
	}
	p.logger.Info("Stored game data with icons", "location", location)
	return nil
}

// deleteIconSources reports whether the rendered tiles should be removed
// once the atlas is built. A standalone transform_icons run keeps them so
// the stage can rerun without re-rendering.
func (p *Pipeline) deleteIconSources() bool {
	if p.opts.KeepIconSources {
		return false
	}
	return p.opts.Stage != StageTransformIcons
}

// runScenario stages a temporary scenario directory holding the given
// control script, runs the game on it, and cleans the staging up again.
func (p *Pipeline) runScenario(ctx context.Context, name, script string) (string, error) {
	if _, err := factorio.EnsureDir(p.paths.ScenariosDir); err != nil {
		return "", errors.Wrap(err, "creating scenarios directory")
	}

	scenarioPath, err := factorio.CreateDirSafely(p.paths.ScenariosDir, name)
	if err != nil {
		return "", errors.Wrap(err, "staging scenario directory")
	}
	scenarioDir := factorio.NewTempDir(scenarioPath)
	defer scenarioDir.Cleanup()

	controlPath := filepath.Join(scenarioPath, "control.lua")
	if err := os.WriteFile(controlPath, []byte(script), 0o644); err != nil {
		return "", errors.Wrap(err, "writing control script")
	}
	controlFile := factorio.NewTempFile(controlPath)
	defer controlFile.Cleanup()

	scenario := filepath.Base(scenarioPath)
	p.logger.Debug("Running game scenario", "scenario", scenario)
	return factorio.RunGame(ctx, p.paths, "--scenario2map", scenario)
}

func (p *Pipeline) ensureGameData() error {
	if p.data != nil {
		return nil
	}
	gd, err := p.backend.LoadGameData()
	if err != nil {
		return errors.Wrap(err, "loading game data")
	}
	p.data = gd
	return nil
}

func (p *Pipeline) recordStageMetric(ctx context.Context, step Stage, duration time.Duration, stageErr error) {
	if p.metrics == nil {
		return
	}
	point := influx.StagePoint(string(step), duration, stageErr)
	if err := p.metrics.WritePoint(ctx, influx.StageBucket, point); err != nil {
		p.logger.Warn("Failed to record stage metric", "error", err)
	}
	if step == StageTransformData && stageErr == nil && p.data != nil {
		point = influx.DataPoint(
			len(p.data.Items),
			len(p.data.Fluids),
			len(p.data.Recipes),
			len(p.data.Machines),
			len(p.data.Beacons),
		)
		if err := p.metrics.WritePoint(ctx, influx.DataBucket, point); err != nil {
			p.logger.Warn("Failed to record data metric", "error", err)
		}
	}
}

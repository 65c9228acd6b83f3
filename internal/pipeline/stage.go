package pipeline

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// Stage identifies one pipeline step or a composite of steps.
type Stage string

const (
	// StageAll runs the full pipeline.
	StageAll Stage = "all"
	// StageData runs export and assembly.
	StageData Stage = "data"
	// StageIcons runs icon extraction and the atlas build.
	StageIcons Stage = "icons"

	// StageExtractData runs the game and stores the exported records.
	StageExtractData Stage = "extract_data"
	// StageTransformData assembles stored records into the typed model.
	StageTransformData Stage = "transform_data"
	// StageExtractIcons runs the game to render icon tiles.
	StageExtractIcons Stage = "extract_icons"
	// StageTransformIcons builds the atlas and stamps icon slots into the model.
	StageTransformIcons Stage = "transform_icons"
)

// ParseStage validates a stage name from the command line.
func ParseStage(name string) (Stage, error) {
	switch Stage(name) {
	case StageAll, StageData, StageIcons,
		StageExtractData, StageTransformData,
		StageExtractIcons, StageTransformIcons:
		return Stage(name), nil
	default:
		return "", errors.Newf("unknown stage %q", name)
	}
}

// Steps expands a composite stage into the concrete steps to run, in order.
func (s Stage) Steps() []Stage {
	switch s {
	case StageAll:
		return []Stage{StageExtractData, StageTransformData, StageExtractIcons, StageTransformIcons}
	case StageData:
		return []Stage{StageExtractData, StageTransformData}
	case StageIcons:
		return []Stage{StageExtractIcons, StageTransformIcons}
	default:
		return []Stage{s}
	}
}

// Tracker publishes the currently running stage so the logging layer can
// stamp records with it.
type Tracker struct {
	current atomic.Value
}

// NewTracker creates an idle tracker.
func NewTracker() *Tracker {
	t := &Tracker{}
	t.current.Store("idle")
	return t
}

// Set records the running stage.
func (t *Tracker) Set(stage Stage) {
	t.current.Store(string(stage))
}

// Current returns the running stage name.
func (t *Tracker) Current() string {
	return t.current.Load().(string)
}

package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphio/extractor/internal/model"
	"github.com/graphio/extractor/internal/symbol"
)

func TestParseStage(t *testing.T) {
	for _, name := range []string{
		"all", "data", "icons",
		"extract_data", "transform_data", "extract_icons", "transform_icons",
	} {
		stage, err := ParseStage(name)
		require.NoError(t, err)
		assert.Equal(t, Stage(name), stage)
	}

	_, err := ParseStage("assemble")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stage")
}

func TestStageSteps(t *testing.T) {
	assert.Equal(t,
		[]Stage{StageExtractData, StageTransformData, StageExtractIcons, StageTransformIcons},
		StageAll.Steps())
	assert.Equal(t, []Stage{StageExtractData, StageTransformData}, StageData.Steps())
	assert.Equal(t, []Stage{StageExtractIcons, StageTransformIcons}, StageIcons.Steps())
	assert.Equal(t, []Stage{StageTransformData}, StageTransformData.Steps())
}

func TestTracker(t *testing.T) {
	tracker := NewTracker()
	assert.Equal(t, "idle", tracker.Current())

	tracker.Set(StageExtractIcons)
	assert.Equal(t, "extract_icons", tracker.Current())
}

// fakeBackend keeps everything in memory so stage logic can run without a
// game installation.
type fakeBackend struct {
	prototypes []string
	data       *model.GameData
	atlas      []byte

	gameDataSaves      int
	lastSaveOverwrite  bool
	prototypeLoadCalls int
}

func (f *fakeBackend) Init() error  { return nil }
func (f *fakeBackend) Close() error { return nil }

func (f *fakeBackend) SavePrototypes(records []string, overwrite bool) (string, error) {
	f.prototypes = records
	return "fake/prototypes", nil
}

func (f *fakeBackend) LoadPrototypes() ([]string, error) {
	f.prototypeLoadCalls++
	return f.prototypes, nil
}

func (f *fakeBackend) SaveGameData(gd *model.GameData, overwrite bool) (string, error) {
	f.data = gd
	f.gameDataSaves++
	f.lastSaveOverwrite = overwrite
	return "fake/game_data", nil
}

func (f *fakeBackend) LoadGameData() (*model.GameData, error) {
	return f.data, nil
}

func (f *fakeBackend) SaveAtlas(png []byte) (string, error) {
	f.atlas = png
	return "fake/atlas", nil
}

func testPipeline(t *testing.T, backend *fakeBackend) (*Pipeline, *symbol.Table) {
	t.Helper()
	table := symbol.NewTable()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := New(Options{Stage: StageTransformData}, table, logger, zerolog.Nop(), nil, nil)
	p.backend = backend
	return p, table
}

// Minimal export: no machines, beacons or recipes, one plain item, no
// fluids. Each field travels as its own record.
func itemOnlyRecords() []string {
	return []string{
		"0\x1f0\x1f0\x1f1\x1f0",
		"iron-plate",
		"item-name.iron-plate\x1fIron plate",
		"item-description.iron-plate\x1fUnknown key: \"item-description.iron-plate\"",
		"0",
	}
}

func TestTransformDataLoadsStoredRecords(t *testing.T) {
	backend := &fakeBackend{prototypes: itemOnlyRecords()}
	p, table := testPipeline(t, backend)

	require.NoError(t, p.runStep(context.Background(), StageTransformData))

	assert.Equal(t, 1, backend.prototypeLoadCalls)
	require.NotNil(t, backend.data)
	assert.False(t, backend.lastSaveOverwrite)

	item, ok := backend.data.Items[model.ItemID(table.Intern("iron-plate"))]
	require.True(t, ok)
	assert.Equal(t, "Iron plate", table.MustResolve(item.Metadata.Name))
	assert.False(t, item.Metadata.Description.Valid(), "fallback description stays absent")
}

func TestTransformDataPrefersInMemoryRecords(t *testing.T) {
	backend := &fakeBackend{}
	p, _ := testPipeline(t, backend)
	p.records = itemOnlyRecords()

	require.NoError(t, p.runStep(context.Background(), StageTransformData))

	assert.Zero(t, backend.prototypeLoadCalls)
	require.NotNil(t, backend.data)
	assert.Len(t, backend.data.Items, 1)
}

func TestTransformDataPropagatesAssemblyErrors(t *testing.T) {
	backend := &fakeBackend{prototypes: []string{"not-a-header"}}
	p, _ := testPipeline(t, backend)

	err := p.runStep(context.Background(), StageTransformData)
	require.Error(t, err)
	assert.Zero(t, backend.gameDataSaves)
}

func TestDeleteIconSources(t *testing.T) {
	tests := []struct {
		name        string
		stage       Stage
		keepSources bool
		want        bool
	}{
		{name: "full run deletes", stage: StageAll, want: true},
		{name: "icons composite deletes", stage: StageIcons, want: true},
		{name: "standalone transform keeps", stage: StageTransformIcons, want: false},
		{name: "flag keeps on full run", stage: StageAll, keepSources: true, want: false},
		{name: "flag keeps on standalone transform", stage: StageTransformIcons, keepSources: true, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := testPipeline(t, &fakeBackend{})
			p.opts.Stage = tt.stage
			p.opts.KeepIconSources = tt.keepSources
			assert.Equal(t, tt.want, p.deleteIconSources())
		})
	}
}

package factorio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphio/extractor/internal/icon"
	"github.com/graphio/extractor/internal/model"
	"github.com/graphio/extractor/internal/symbol"
)

func TestExportScript(t *testing.T) {
	script := ExportScript(2)
	assert.True(t, strings.HasPrefix(script, "local prune_level = 2\n"))
	assert.Contains(t, script, "script.on_init")
}

func TestIconExtractScript(t *testing.T) {
	table := symbol.NewTable()
	gd := model.NewGameData()

	item := model.ItemID(table.Intern("iron-plate"))
	gd.Items[item] = model.Item{ID: item}
	machine := model.MachineID(table.Intern("assembler"))
	gd.Machines[machine] = model.Machine{ID: machine}
	// A beacon sharing the machine's name renders once.
	beacon := model.BeaconID(table.Intern("assembler"))
	gd.Beacons[beacon] = model.Beacon{ID: beacon}

	script, err := IconExtractScript(table, gd, "graphio_extracted_icons", 5)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(script, "local output_folder = 'graphio_extracted_icons'\n"))
	assert.Contains(t, script, "local extract_interval = 5\n")
	assert.Contains(t, script, "        'iron-plate',\n")
	assert.Equal(t, 1, strings.Count(script, "        'assembler',\n"))
	assert.Contains(t, script, "on_tick")
}

func TestIconExtractScriptEmpty(t *testing.T) {
	table := symbol.NewTable()

	_, err := IconExtractScript(table, model.NewGameData(), "out", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, icon.ErrEmptyDataSet)
}

func TestLuaEscape(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "iron-plate", want: "iron-plate"},
		{name: "quote", input: "it's", want: `it\'s`},
		{name: "backslash", input: `a\b`, want: `a\\b`},
		{name: "newline", input: "a\nb", want: `a\nb`},
		{name: "control byte", input: "a\x01b", want: `a\x01b`},
		{name: "high byte", input: "caf\xc3\xa9", want: `caf\xc3\xa9`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, luaEscape(tt.input))
		})
	}
}

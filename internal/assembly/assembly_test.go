package assembly

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphio/extractor/internal/model"
	"github.com/graphio/extractor/internal/numeric"
	"github.com/graphio/extractor/internal/protocol"
	"github.com/graphio/extractor/internal/symbol"
)

func testAssembler() (*symbol.Table, *Assembler) {
	table := symbol.NewTable()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return table, New(table, logger, false)
}

// meta builds the two metadata records of an entity: a translated name and
// a description the game has no translation for.
func meta(name string) []string {
	return []string{
		"k\x1f" + name,
		"d\x1fUnknown key: \"d\"",
	}
}

// sampleRecords builds a small but complete export: one machine, one
// beacon, two recipes, three items (two of them modules) and one fluid.
func sampleRecords() []string {
	var records []string
	records = append(records, "1\x1f1\x1f2\x1f3\x1f1")

	// machine
	records = append(records, "assembler")
	records = append(records, meta("Assembler")...)
	records = append(records,
		"1.25", // crafting speed
		"150",  // energy consumption
		"5",    // energy drain
		"2",    // module slots
		"1111", // all effect channels allowed
	)

	// beacon
	records = append(records, "beacon")
	records = append(records, meta("Beacon")...)
	records = append(records,
		"0.5",  // distribution effectivity
		"1100", // only energy and speed allowed
	)

	// recipe iron-gear: one item ingredient, one fixed item product
	records = append(records, "iron-gear")
	records = append(records, meta("Iron gear")...)
	records = append(records,
		"0.5", // time
		"1",   // ingredient count
		"item", "iron-plate", "2", "0",
		"1", // product count
		"item", "iron-gear", "fixed", "1", "0",
		"1", // crafted-in count
		"assembler",
	)

	// recipe steam-condensate: fluid ingredient with a minimum
	// temperature, probabilistic fluid product
	records = append(records, "steam-condensate")
	records = append(records, meta("Steam condensate")...)
	records = append(records,
		"1", // time
		"1", // ingredient count
		"fluid", "steam", "10", "0", "10", "165",
		"1", // product count
		"fluid", "water", "15", "probability", "1", "10", "0.5",
		"1", // crafted-in count
		"assembler",
	)

	// plain item
	records = append(records, "iron-plate")
	records = append(records, meta("Iron plate")...)
	records = append(records, "0")

	// module without limitations: supports every recipe
	records = append(records, "speed-module")
	records = append(records, meta("Speed module")...)
	records = append(records,
		"1",    // is a module
		"0.5",  // energy modifier
		"0.2",  // speed modifier
		"0",    // productivity modifier
		"0",    // pollution modifier
		"0",    // no limitations
	)

	// module limited to iron-gear
	records = append(records, "productivity-module")
	records = append(records, meta("Productivity module")...)
	records = append(records,
		"1",    // is a module
		"0.8",  // energy modifier
		"-0.15", // speed modifier
		"0.35", // productivity modifier
		"0.3",  // pollution modifier
		"1",    // has limitations
		"1",    // limitation count
		"iron-gear",
	)

	// fluid
	records = append(records, "water")
	records = append(records, meta("Water")...)

	return records
}

func TestAssembleSample(t *testing.T) {
	table, a := testAssembler()

	gd, err := a.Assemble(sampleRecords())
	require.NoError(t, err)

	require.Len(t, gd.Machines, 1)
	require.Len(t, gd.Beacons, 1)
	require.Len(t, gd.Recipes, 2)
	require.Len(t, gd.Items, 3)
	require.Len(t, gd.Fluids, 1)
	require.Len(t, gd.Modules, 2)

	machine := gd.Machines[model.MachineID(table.Intern("assembler"))]
	assert.Equal(t, "5/4", machine.CraftingSpeed.RatString())
	assert.Equal(t, "150", machine.EnergyConsumption.RatString())
	assert.Equal(t, "5", machine.EnergyDrain.RatString())
	assert.Equal(t, "2", machine.ModuleSlots.String())
	assert.Equal(t, "Assembler", table.MustResolve(machine.Metadata.Name))
	assert.False(t, machine.Metadata.Description.Valid(), "untranslated description is absent")

	gear := gd.Recipes[model.RecipeID(table.Intern("iron-gear"))]
	assert.Equal(t, "1/2", gear.Time.RatString())
	require.Len(t, gear.Ingredients, 1)
	assert.Equal(t, model.ResourceItem, gear.Ingredients[0].Kind)
	assert.Equal(t, "iron-plate", gear.Ingredients[0].Item.Text(table))
	assert.Equal(t, "2", gear.Ingredients[0].Amount.RatString())
	require.Len(t, gear.Products, 1)
	assert.Equal(t, model.AmountFixed, gear.Products[0].Amount.Kind)
	assert.Equal(t, "1", gear.Products[0].Amount.Amount.RatString())
	require.Len(t, gear.CraftedIn, 1)
	assert.Equal(t, "assembler", gear.CraftedIn[0].Text(table))

	condensate := gd.Recipes[model.RecipeID(table.Intern("steam-condensate"))]
	require.Len(t, condensate.Ingredients, 1)
	steam := condensate.Ingredients[0]
	assert.Equal(t, model.ResourceFluid, steam.Kind)
	assert.Equal(t, "steam", steam.Fluid.Text(table))
	require.NotNil(t, steam.MinimumTemperature)
	assert.Equal(t, "165", steam.MinimumTemperature.RatString())
	assert.Nil(t, steam.MaximumTemperature)
	require.Len(t, condensate.Products, 1)
	water := condensate.Products[0]
	assert.Equal(t, model.ResourceFluid, water.Kind)
	assert.Equal(t, "15", water.Temperature.RatString())
	assert.Equal(t, model.AmountProbability, water.Amount.Kind)
	assert.Equal(t, "1", water.Amount.AmountMin.RatString())
	assert.Equal(t, "10", water.Amount.AmountMax.RatString())
	assert.Equal(t, "1/2", water.Amount.Probability.RatString())

	module := gd.Modules[model.ItemID(table.Intern("speed-module"))]
	assert.Equal(t, "1/2", module.EnergyModifier.RatString())
	assert.Equal(t, "1/5", module.SpeedModifier.RatString())
	assert.Equal(t, "0", module.ProductivityModifier.RatString())
}

func TestAssembleModuleSupport(t *testing.T) {
	table, a := testAssembler()

	gd, err := a.Assemble(sampleRecords())
	require.NoError(t, err)

	names := func(ids []model.ItemID) []string {
		out := make([]string, len(ids))
		for i, id := range ids {
			out[i] = id.Text(table)
		}
		return out
	}

	// The machine allows all channels, so both modules fit.
	machine := gd.Machines[model.MachineID(table.Intern("assembler"))]
	assert.Equal(t, []string{"productivity-module", "speed-module"}, names(machine.SupportedModules))

	// The beacon rejects productivity and pollution effects; only the
	// speed module leaves those channels untouched.
	beacon := gd.Beacons[model.BeaconID(table.Intern("beacon"))]
	assert.Equal(t, []string{"speed-module"}, names(beacon.SupportedModules))

	// The unrestricted module supports every recipe; the limited one only
	// names iron-gear.
	gear := gd.Recipes[model.RecipeID(table.Intern("iron-gear"))]
	assert.ElementsMatch(t, []string{"speed-module", "productivity-module"}, names(gear.SupportedModules))
	condensate := gd.Recipes[model.RecipeID(table.Intern("steam-condensate"))]
	assert.Equal(t, []string{"speed-module"}, names(condensate.SupportedModules))
}

func TestAssembleErrors(t *testing.T) {
	duplicateMachine := []string{"2\x1f0\x1f0\x1f0\x1f0"}
	for i := 0; i < 2; i++ {
		duplicateMachine = append(duplicateMachine, "assembler")
		duplicateMachine = append(duplicateMachine, meta("Assembler")...)
		duplicateMachine = append(duplicateMachine, "1", "150", "5", "2", "1111")
	}

	badIngredientKind := []string{"0\x1f0\x1f1\x1f0\x1f0", "r"}
	badIngredientKind = append(badIngredientKind, meta("R")...)
	badIngredientKind = append(badIngredientKind, "1", "1", "plasma", "x", "1", "0")

	danglingLimitation := []string{"0\x1f0\x1f0\x1f1\x1f0", "some-module"}
	danglingLimitation = append(danglingLimitation, meta("Module")...)
	danglingLimitation = append(danglingLimitation, "1", "0", "0.2", "0", "0", "1", "1", "no-such-recipe")

	tests := []struct {
		name    string
		records []string
		wantErr error
	}{
		{
			name:    "empty stream",
			records: nil,
			wantErr: protocol.ErrMalformedRecord,
		},
		{
			name:    "short header",
			records: []string{"1\x1f2\x1f3"},
			wantErr: protocol.ErrMalformedRecord,
		},
		{
			name:    "non-numeric header",
			records: []string{"1\x1fmany\x1f3\x1f4\x1f5"},
			wantErr: numeric.ErrParse,
		},
		{
			name:    "truncated entity",
			records: []string{"1\x1f0\x1f0\x1f0\x1f0", "assembler"},
			wantErr: protocol.ErrMalformedRecord,
		},
		{
			name:    "duplicate machines",
			records: duplicateMachine,
			wantErr: protocol.ErrSchemaMismatch,
		},
		{
			name:    "unknown ingredient kind",
			records: badIngredientKind,
			wantErr: protocol.ErrUnknownVariant,
		},
		{
			name:    "limitation names unknown recipe",
			records: danglingLimitation,
			wantErr: protocol.ErrReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, a := testAssembler()
			_, err := a.Assemble(tt.records)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

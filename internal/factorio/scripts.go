package factorio

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/graphio/extractor/internal/icon"
	"github.com/graphio/extractor/internal/model"
	"github.com/graphio/extractor/internal/symbol"
)

//go:embed export_prototypes.lua
var exportPrototypesLua string

//go:embed extract_icons.lua
var extractIconsLua string

// ExportScript builds the control.lua that makes the game print its
// prototype data. pruneLevel (0, 1 or 2) controls how aggressively
// internal and unobtainable prototypes are skipped.
func ExportScript(pruneLevel int) string {
	var b strings.Builder
	b.Grow(len(exportPrototypesLua) + 24)
	fmt.Fprintf(&b, "local prune_level = %d\n", pruneLevel)
	b.WriteString(exportPrototypesLua)
	return b.String()
}

// IconExtractScript builds the control.lua that renders every entity's
// icon twice, on black and on white, into outputDirName under the game's
// script output directory. extractInterval is the number of frames the
// scenario waits per icon.
func IconExtractScript(table *symbol.Table, gd *model.GameData, outputDirName string, extractInterval int) (string, error) {
	var b strings.Builder

	b.WriteString("local output_folder = '")
	b.WriteString(outputDirName)
	b.WriteString("'\nlocal extract_interval = ")
	fmt.Fprintf(&b, "%d", extractInterval)
	b.WriteString("\n\n")

	items := make([]model.ItemID, 0, len(gd.Items))
	for id := range gd.Items {
		items = append(items, id)
	}
	model.SortIDs(table, items)
	fluids := make([]model.FluidID, 0, len(gd.Fluids))
	for id := range gd.Fluids {
		fluids = append(fluids, id)
	}
	model.SortIDs(table, fluids)
	recipes := make([]model.RecipeID, 0, len(gd.Recipes))
	for id := range gd.Recipes {
		recipes = append(recipes, id)
	}
	model.SortIDs(table, recipes)

	// Machines and beacons share the entity namespace; a beacon named
	// like a machine renders once.
	seen := make(map[symbol.Symbol]struct{}, len(gd.Machines)+len(gd.Beacons))
	entities := make([]symbol.Symbol, 0, len(gd.Machines)+len(gd.Beacons))
	for id := range gd.Machines {
		if _, ok := seen[symbol.Symbol(id)]; !ok {
			seen[symbol.Symbol(id)] = struct{}{}
			entities = append(entities, symbol.Symbol(id))
		}
	}
	for id := range gd.Beacons {
		if _, ok := seen[symbol.Symbol(id)]; !ok {
			seen[symbol.Symbol(id)] = struct{}{}
			entities = append(entities, symbol.Symbol(id))
		}
	}
	model.SortIDs(table, entities)

	if len(items)+len(fluids)+len(recipes)+len(entities) == 0 {
		return "", errors.Wrap(icon.ErrEmptyDataSet, "game data is empty")
	}

	b.WriteString("local extract_data = {\n    items = {\n")
	for _, id := range items {
		writeLuaEntry(&b, id.Text(table))
	}
	b.WriteString("    },\n    fluids = {\n")
	for _, id := range fluids {
		writeLuaEntry(&b, id.Text(table))
	}
	b.WriteString("    },\n    recipes = {\n")
	for _, id := range recipes {
		writeLuaEntry(&b, id.Text(table))
	}
	b.WriteString("    },\n    entities = {\n")
	for _, sym := range entities {
		writeLuaEntry(&b, table.MustResolve(sym))
	}
	b.WriteString("    },\n}\n\n")

	b.WriteString(extractIconsLua)
	return b.String(), nil
}

func writeLuaEntry(b *strings.Builder, id string) {
	b.WriteString("        '")
	b.WriteString(luaEscape(id))
	b.WriteString("',\n")
}

// luaEscape escapes arbitrary bytes for a single-quoted Lua string
// literal.
func luaEscape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\x07':
			b.WriteString(`\a`)
		case '\x08':
			b.WriteString(`\b`)
		case '\x0c':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\x0b':
			b.WriteString(`\v`)
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		default:
			if c >= 0x20 && c < 0x7f {
				b.WriteByte(c)
			} else {
				fmt.Fprintf(&b, `\x%02x`, c)
			}
		}
	}
	return b.String()
}

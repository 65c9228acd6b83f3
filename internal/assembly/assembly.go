// Package assembly builds the typed production model from the decoded
// record stream. Records are positional: a header of five entity counts,
// then machines, beacons, recipes, items and fluids in that order.
package assembly

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/graphio/extractor/internal/model"
	"github.com/graphio/extractor/internal/numeric"
	"github.com/graphio/extractor/internal/protocol"
	"github.com/graphio/extractor/internal/symbol"
)

// Assembler consumes an export record stream and produces GameData.
type Assembler struct {
	table      *symbol.Table
	logger     *slog.Logger
	logEntries bool
}

// New creates an Assembler. When logEntries is set, every decoded entity
// is logged at Info level.
func New(table *symbol.Table, logger *slog.Logger, logEntries bool) *Assembler {
	return &Assembler{
		table:      table,
		logger:     logger,
		logEntries: logEntries,
	}
}

// effects is the per-machine/per-beacon set of module effect channels the
// entity accepts. Only needed to compute supported modules, then discarded.
type effects struct {
	energy       bool
	speed        bool
	productivity bool
	pollution    bool
}

// supports reports whether a module can be socketed: every effect channel
// must be allowed or unused by the module.
func (e effects) supports(m model.Module) bool {
	return (e.energy || m.EnergyModifier.Sign() == 0) &&
		(e.speed || m.SpeedModifier.Sign() == 0) &&
		(e.productivity || m.ProductivityModifier.Sign() == 0) &&
		(e.pollution || m.PollutionModifier.Sign() == 0)
}

// Assemble decodes the full record stream into a model. Any malformed,
// inconsistent or dangling record aborts with an error; there are no
// partial results.
func (a *Assembler) Assemble(records []string) (*model.GameData, error) {
	r := protocol.NewReader(a.table, records)

	counts, err := a.readHeader(r)
	if err != nil {
		return nil, err
	}

	gd := model.NewGameData()

	machineEffects := make(map[model.MachineID]effects)
	for i := 0; i < counts.machines; i++ {
		machine, allowed, err := a.readMachine(r)
		if err != nil {
			return nil, err
		}
		gd.Machines[machine.ID] = machine
		machineEffects[machine.ID] = allowed
	}
	if len(gd.Machines) != counts.machines {
		return nil, errors.Wrap(protocol.ErrSchemaMismatch, "duplicate machines in exported data set")
	}

	beaconEffects := make(map[model.BeaconID]effects)
	for i := 0; i < counts.beacons; i++ {
		beacon, allowed, err := a.readBeacon(r)
		if err != nil {
			return nil, err
		}
		gd.Beacons[beacon.ID] = beacon
		beaconEffects[beacon.ID] = allowed
	}
	if len(gd.Beacons) != counts.beacons {
		return nil, errors.Wrap(protocol.ErrSchemaMismatch, "duplicate beacons in exported data set")
	}

	for i := 0; i < counts.recipes; i++ {
		recipe, err := a.readRecipe(r)
		if err != nil {
			return nil, err
		}
		gd.Recipes[recipe.ID] = recipe
	}
	if len(gd.Recipes) != counts.recipes {
		return nil, errors.Wrap(protocol.ErrSchemaMismatch, "duplicate recipes in exported data set")
	}

	for i := 0; i < counts.items; i++ {
		if err := a.readItem(r, gd); err != nil {
			return nil, err
		}
	}
	if len(gd.Items) != counts.items {
		return nil, errors.Wrap(protocol.ErrSchemaMismatch, "duplicate items in exported data set")
	}

	for i := 0; i < counts.fluids; i++ {
		fluid, err := a.readFluid(r)
		if err != nil {
			return nil, err
		}
		gd.Fluids[fluid.ID] = fluid
	}
	if len(gd.Fluids) != counts.fluids {
		return nil, errors.Wrap(protocol.ErrSchemaMismatch, "duplicate fluids in exported data set")
	}

	// Cross-reference pass: attach the modules each machine and beacon
	// accepts, based on the effect channels recorded during decode.
	for id, machine := range gd.Machines {
		machine.SupportedModules = a.allowedModules(gd, machineEffects[id])
		gd.Machines[id] = machine
	}
	for id, beacon := range gd.Beacons {
		beacon.SupportedModules = a.allowedModules(gd, beaconEffects[id])
		gd.Beacons[id] = beacon
	}

	return gd, nil
}

type headerCounts struct {
	machines int
	beacons  int
	recipes  int
	items    int
	fluids   int
}

func (a *Assembler) readHeader(r *protocol.Reader) (headerCounts, error) {
	line, err := r.Line()
	if err != nil {
		return headerCounts{}, err
	}
	parts := strings.Split(line, string(rune(protocol.UnitSeparator)))
	if len(parts) != 5 {
		return headerCounts{}, errors.Wrap(protocol.ErrMalformedRecord, "expected 5 lengths on the first line")
	}
	counts := make([]int, 5)
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return headerCounts{}, errors.Wrapf(numeric.ErrParse, "cannot read lengths from the first line: %q", part)
		}
		counts[i] = int(n)
	}
	return headerCounts{
		machines: counts[0],
		beacons:  counts[1],
		recipes:  counts[2],
		items:    counts[3],
		fluids:   counts[4],
	}, nil
}

func (a *Assembler) readMetadata(r *protocol.Reader) (model.Metadata, error) {
	name, err := r.Localised()
	if err != nil {
		return model.Metadata{}, err
	}
	description, err := r.OptionalLocalised()
	if err != nil {
		return model.Metadata{}, err
	}
	return model.Metadata{Name: name, Description: description}, nil
}

func (a *Assembler) readEffects(r *protocol.Reader) (effects, error) {
	bits, err := r.Bits(4)
	if err != nil {
		return effects{}, errors.WithMessage(err, "allowed effects")
	}
	return effects{
		energy:       bits[0],
		speed:        bits[1],
		productivity: bits[2],
		pollution:    bits[3],
	}, nil
}

func (a *Assembler) readMachine(r *protocol.Reader) (model.Machine, effects, error) {
	var machine model.Machine

	sym, err := r.Symbol()
	if err != nil {
		return machine, effects{}, err
	}
	machine.ID = model.MachineID(sym)

	machine.Metadata, err = a.readMetadata(r)
	if err != nil {
		return machine, effects{}, err
	}

	machine.CraftingSpeed, err = r.Decimal()
	if err != nil {
		return machine, effects{}, err
	}
	machine.EnergyConsumption, err = r.Decimal()
	if err != nil {
		return machine, effects{}, err
	}
	machine.EnergyDrain, err = r.Decimal()
	if err != nil {
		return machine, effects{}, err
	}
	machine.ModuleSlots, err = r.Int()
	if err != nil {
		return machine, effects{}, err
	}

	allowed, err := a.readEffects(r)
	if err != nil {
		return machine, effects{}, err
	}

	a.logEntry("machine", machine.ID.Text(a.table), machine.Metadata.Name)
	return machine, allowed, nil
}

func (a *Assembler) readBeacon(r *protocol.Reader) (model.Beacon, effects, error) {
	var beacon model.Beacon

	sym, err := r.Symbol()
	if err != nil {
		return beacon, effects{}, err
	}
	beacon.ID = model.BeaconID(sym)

	beacon.Metadata, err = a.readMetadata(r)
	if err != nil {
		return beacon, effects{}, err
	}

	beacon.DistributionEffectivity, err = r.Decimal()
	if err != nil {
		return beacon, effects{}, err
	}

	allowed, err := a.readEffects(r)
	if err != nil {
		return beacon, effects{}, err
	}

	a.logEntry("beacon", beacon.ID.Text(a.table), beacon.Metadata.Name)
	return beacon, allowed, nil
}

func (a *Assembler) readRecipe(r *protocol.Reader) (model.Recipe, error) {
	var recipe model.Recipe

	sym, err := r.Symbol()
	if err != nil {
		return recipe, err
	}
	recipe.ID = model.RecipeID(sym)

	recipe.Metadata, err = a.readMetadata(r)
	if err != nil {
		return recipe, err
	}

	recipe.Time, err = r.Decimal()
	if err != nil {
		return recipe, err
	}

	ingredientCount, err := r.Count()
	if err != nil {
		return recipe, err
	}
	recipe.Ingredients = make([]model.Ingredient, 0, ingredientCount)
	for i := 0; i < ingredientCount; i++ {
		ingredient, err := a.readIngredient(r)
		if err != nil {
			return recipe, err
		}
		recipe.Ingredients = append(recipe.Ingredients, ingredient)
	}

	productCount, err := r.Count()
	if err != nil {
		return recipe, err
	}
	recipe.Products = make([]model.Product, 0, productCount)
	for i := 0; i < productCount; i++ {
		product, err := a.readProduct(r)
		if err != nil {
			return recipe, err
		}
		recipe.Products = append(recipe.Products, product)
	}

	craftedInCount, err := r.Count()
	if err != nil {
		return recipe, err
	}
	seen := make(map[model.MachineID]struct{}, craftedInCount)
	for i := 0; i < craftedInCount; i++ {
		sym, err := r.Symbol()
		if err != nil {
			return recipe, err
		}
		id := model.MachineID(sym)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		recipe.CraftedIn = append(recipe.CraftedIn, id)
	}

	a.logEntry("recipe", recipe.ID.Text(a.table), recipe.Metadata.Name)
	return recipe, nil
}

func (a *Assembler) readIngredient(r *protocol.Reader) (model.Ingredient, error) {
	var ingredient model.Ingredient

	kind, err := r.Line()
	if err != nil {
		return ingredient, err
	}
	sym, err := r.Symbol()
	if err != nil {
		return ingredient, err
	}
	ingredient.Amount, err = r.Decimal()
	if err != nil {
		return ingredient, err
	}
	ingredient.CatalystAmount, err = r.Decimal()
	if err != nil {
		return ingredient, err
	}

	switch kind {
	case "item":
		ingredient.Kind = model.ResourceItem
		ingredient.Item = model.ItemID(sym)
	case "fluid":
		ingredient.Kind = model.ResourceFluid
		ingredient.Fluid = model.FluidID(sym)

		flags, err := r.Bits(2)
		if err != nil {
			return ingredient, errors.WithMessage(err, "optional field flags in ingredient fluid")
		}
		if flags[0] {
			ingredient.MinimumTemperature, err = r.Decimal()
			if err != nil {
				return ingredient, err
			}
		}
		if flags[1] {
			ingredient.MaximumTemperature, err = r.Decimal()
			if err != nil {
				return ingredient, err
			}
		}
	default:
		return ingredient, errors.Wrapf(protocol.ErrUnknownVariant, "unknown recipe ingredient kind %q", kind)
	}

	return ingredient, nil
}

func (a *Assembler) readProduct(r *protocol.Reader) (model.Product, error) {
	var product model.Product

	kind, err := r.Line()
	if err != nil {
		return product, err
	}
	sym, err := r.Symbol()
	if err != nil {
		return product, err
	}

	switch kind {
	case "item":
		product.Kind = model.ResourceItem
		product.Item = model.ItemID(sym)
	case "fluid":
		product.Kind = model.ResourceFluid
		product.Fluid = model.FluidID(sym)
		product.Temperature, err = r.Decimal()
		if err != nil {
			return product, err
		}
	default:
		return product, errors.Wrapf(protocol.ErrUnknownVariant, "unknown recipe product kind %q", kind)
	}

	amountKind, err := r.Line()
	if err != nil {
		return product, err
	}
	switch amountKind {
	case "fixed":
		product.Amount.Kind = model.AmountFixed
		product.Amount.Amount, err = r.Decimal()
		if err != nil {
			return product, err
		}
		product.Amount.CatalystAmount, err = r.Decimal()
		if err != nil {
			return product, err
		}
	case "probability":
		product.Amount.Kind = model.AmountProbability
		product.Amount.AmountMin, err = r.Decimal()
		if err != nil {
			return product, err
		}
		product.Amount.AmountMax, err = r.Decimal()
		if err != nil {
			return product, err
		}
		product.Amount.Probability, err = r.Decimal()
		if err != nil {
			return product, err
		}
	default:
		return product, errors.Wrapf(protocol.ErrUnknownVariant, "unknown recipe product amount kind %q", amountKind)
	}

	return product, nil
}

// readItem decodes one item and, when it is a module, attaches the module
// to every recipe it is usable with. A module without an explicit
// limitation list supports every recipe decoded so far.
func (a *Assembler) readItem(r *protocol.Reader, gd *model.GameData) error {
	sym, err := r.Symbol()
	if err != nil {
		return err
	}
	id := model.ItemID(sym)

	metadata, err := a.readMetadata(r)
	if err != nil {
		return err
	}

	isModule, err := r.Flag()
	if err != nil {
		return errors.WithMessage(err, "module flag on item")
	}
	if isModule {
		var module model.Module
		module.ID = id
		module.EnergyModifier, err = r.Decimal()
		if err != nil {
			return err
		}
		module.SpeedModifier, err = r.Decimal()
		if err != nil {
			return err
		}
		module.ProductivityModifier, err = r.Decimal()
		if err != nil {
			return err
		}
		module.PollutionModifier, err = r.Decimal()
		if err != nil {
			return err
		}
		gd.Modules[id] = module

		hasLimitations, err := r.Flag()
		if err != nil {
			return errors.WithMessage(err, "limitations flag on item")
		}

		var limitations []model.RecipeID
		if hasLimitations {
			limitationCount, err := r.Count()
			if err != nil {
				return err
			}
			limitations = make([]model.RecipeID, 0, limitationCount)
			for i := 0; i < limitationCount; i++ {
				sym, err := r.Symbol()
				if err != nil {
					return err
				}
				limitations = append(limitations, model.RecipeID(sym))
			}
		} else {
			limitations = make([]model.RecipeID, 0, len(gd.Recipes))
			for recipeID := range gd.Recipes {
				limitations = append(limitations, recipeID)
			}
		}

		for _, recipeID := range limitations {
			recipe, ok := gd.Recipes[recipeID]
			if !ok {
				return errors.Wrapf(protocol.ErrReference,
					"module limitation contains non-existent recipe %q", recipeID.Text(a.table))
			}
			recipe.SupportedModules = append(recipe.SupportedModules, id)
			gd.Recipes[recipeID] = recipe
		}
	}

	a.logEntry("item", id.Text(a.table), metadata.Name)
	gd.Items[id] = model.Item{ID: id, Metadata: metadata}
	return nil
}

func (a *Assembler) readFluid(r *protocol.Reader) (model.Fluid, error) {
	var fluid model.Fluid

	sym, err := r.Symbol()
	if err != nil {
		return fluid, err
	}
	fluid.ID = model.FluidID(sym)

	fluid.Metadata, err = a.readMetadata(r)
	if err != nil {
		return fluid, err
	}

	a.logEntry("fluid", fluid.ID.Text(a.table), fluid.Metadata.Name)
	return fluid, nil
}

// allowedModules returns the modules compatible with the given effect
// channels, sorted by identifier text for deterministic output.
func (a *Assembler) allowedModules(gd *model.GameData, allowed effects) []model.ItemID {
	supported := make([]model.ItemID, 0, len(gd.Modules))
	for id, module := range gd.Modules {
		if allowed.supports(module) {
			supported = append(supported, id)
		}
	}
	model.SortIDs(a.table, supported)
	return supported
}

func (a *Assembler) logEntry(category, id string, name symbol.Symbol) {
	if !a.logEntries {
		a.logger.Debug(category, "id", id, "name", a.table.MustResolve(name))
		return
	}
	a.logger.Info(category, "id", id, "name", a.table.MustResolve(name))
}

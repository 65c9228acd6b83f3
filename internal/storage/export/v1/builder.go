package v1

import (
	"math/big"

	"github.com/cockroachdb/errors"

	"github.com/graphio/extractor/internal/model"
	"github.com/graphio/extractor/internal/numeric"
	"github.com/graphio/extractor/internal/symbol"
)

const (
	kindItem  = "item"
	kindFluid = "fluid"

	amountFixed       = "fixed"
	amountProbability = "probability"
)

// Build flattens the model into its serialized form. Entity lists come out
// sorted by identifier text so repeated exports of the same data compare
// equal byte for byte.
func Build(table *symbol.Table, gd *model.GameData) *Export {
	export := &Export{
		Items:    make([]Item, 0, len(gd.Items)),
		Fluids:   make([]Fluid, 0, len(gd.Fluids)),
		Recipes:  make([]Recipe, 0, len(gd.Recipes)),
		Machines: make([]Machine, 0, len(gd.Machines)),
		Beacons:  make([]Beacon, 0, len(gd.Beacons)),
		Modules:  make([]Module, 0, len(gd.Modules)),
	}

	if gd.Tiles != nil {
		export.TileMetadata = &TileMetadata{
			TileWidth:  gd.Tiles.TileWidth,
			TileHeight: gd.Tiles.TileHeight,
			TileCount:  gd.Tiles.TileCount,
			Width:      gd.Tiles.Width,
			Height:     gd.Tiles.Height,
		}
	}

	for _, id := range sortedKeys(table, gd.Items) {
		item := gd.Items[id]
		export.Items = append(export.Items, Item{
			ID:       id.Text(table),
			Metadata: buildMetadata(table, item.Metadata),
		})
	}

	for _, id := range sortedKeys(table, gd.Fluids) {
		fluid := gd.Fluids[id]
		export.Fluids = append(export.Fluids, Fluid{
			ID:       id.Text(table),
			Metadata: buildMetadata(table, fluid.Metadata),
		})
	}

	for _, id := range sortedKeys(table, gd.Recipes) {
		recipe := gd.Recipes[id]
		export.Recipes = append(export.Recipes, buildRecipe(table, recipe))
	}

	for _, id := range sortedKeys(table, gd.Machines) {
		machine := gd.Machines[id]
		export.Machines = append(export.Machines, Machine{
			ID:                id.Text(table),
			Metadata:          buildMetadata(table, machine.Metadata),
			CraftingSpeed:     machine.CraftingSpeed.RatString(),
			EnergyConsumption: machine.EnergyConsumption.RatString(),
			EnergyDrain:       machine.EnergyDrain.RatString(),
			ModuleSlots:       machine.ModuleSlots.String(),
			SupportedModules:  buildIDs(table, machine.SupportedModules),
		})
	}

	for _, id := range sortedKeys(table, gd.Beacons) {
		beacon := gd.Beacons[id]
		export.Beacons = append(export.Beacons, Beacon{
			ID:                      id.Text(table),
			Metadata:                buildMetadata(table, beacon.Metadata),
			DistributionEffectivity: beacon.DistributionEffectivity.RatString(),
			SupportedModules:        buildIDs(table, beacon.SupportedModules),
		})
	}

	for _, id := range sortedKeys(table, gd.Modules) {
		module := gd.Modules[id]
		export.Modules = append(export.Modules, Module{
			ID:                   id.Text(table),
			EnergyModifier:       module.EnergyModifier.RatString(),
			SpeedModifier:        module.SpeedModifier.RatString(),
			ProductivityModifier: module.ProductivityModifier.RatString(),
			PollutionModifier:    module.PollutionModifier.RatString(),
		})
	}

	return export
}

// Load reconstructs the model from its serialized form, interning every
// identifier into the given table.
func Load(table *symbol.Table, export *Export) (*model.GameData, error) {
	gd := model.NewGameData()

	if export.TileMetadata != nil {
		gd.Tiles = &model.TileMetadata{
			TileWidth:  export.TileMetadata.TileWidth,
			TileHeight: export.TileMetadata.TileHeight,
			TileCount:  export.TileMetadata.TileCount,
			Width:      export.TileMetadata.Width,
			Height:     export.TileMetadata.Height,
		}
	}

	for _, item := range export.Items {
		id := model.ItemID(table.Intern(item.ID))
		gd.Items[id] = model.Item{
			ID:       id,
			Metadata: loadMetadata(table, item.Metadata),
		}
	}

	for _, fluid := range export.Fluids {
		id := model.FluidID(table.Intern(fluid.ID))
		gd.Fluids[id] = model.Fluid{
			ID:       id,
			Metadata: loadMetadata(table, fluid.Metadata),
		}
	}

	for _, recipe := range export.Recipes {
		loaded, err := loadRecipe(table, recipe)
		if err != nil {
			return nil, errors.Wrapf(err, "recipe %q", recipe.ID)
		}
		gd.Recipes[loaded.ID] = loaded
	}

	for _, machine := range export.Machines {
		id := model.MachineID(table.Intern(machine.ID))
		craftingSpeed, err := loadRat(machine.CraftingSpeed)
		if err != nil {
			return nil, errors.Wrapf(err, "machine %q crafting speed", machine.ID)
		}
		energyConsumption, err := loadRat(machine.EnergyConsumption)
		if err != nil {
			return nil, errors.Wrapf(err, "machine %q energy consumption", machine.ID)
		}
		energyDrain, err := loadRat(machine.EnergyDrain)
		if err != nil {
			return nil, errors.Wrapf(err, "machine %q energy drain", machine.ID)
		}
		moduleSlots, err := numeric.ParseInt(machine.ModuleSlots)
		if err != nil {
			return nil, errors.Wrapf(err, "machine %q module slots", machine.ID)
		}
		gd.Machines[id] = model.Machine{
			ID:                id,
			Metadata:          loadMetadata(table, machine.Metadata),
			CraftingSpeed:     craftingSpeed,
			EnergyConsumption: energyConsumption,
			EnergyDrain:       energyDrain,
			ModuleSlots:       moduleSlots,
			SupportedModules:  loadItemIDs(table, machine.SupportedModules),
		}
	}

	for _, beacon := range export.Beacons {
		id := model.BeaconID(table.Intern(beacon.ID))
		effectivity, err := loadRat(beacon.DistributionEffectivity)
		if err != nil {
			return nil, errors.Wrapf(err, "beacon %q distribution effectivity", beacon.ID)
		}
		gd.Beacons[id] = model.Beacon{
			ID:                      id,
			Metadata:                loadMetadata(table, beacon.Metadata),
			DistributionEffectivity: effectivity,
			SupportedModules:        loadItemIDs(table, beacon.SupportedModules),
		}
	}

	for _, module := range export.Modules {
		id := model.ItemID(table.Intern(module.ID))
		energy, err := loadRat(module.EnergyModifier)
		if err != nil {
			return nil, errors.Wrapf(err, "module %q energy modifier", module.ID)
		}
		speed, err := loadRat(module.SpeedModifier)
		if err != nil {
			return nil, errors.Wrapf(err, "module %q speed modifier", module.ID)
		}
		productivity, err := loadRat(module.ProductivityModifier)
		if err != nil {
			return nil, errors.Wrapf(err, "module %q productivity modifier", module.ID)
		}
		pollution, err := loadRat(module.PollutionModifier)
		if err != nil {
			return nil, errors.Wrapf(err, "module %q pollution modifier", module.ID)
		}
		gd.Modules[id] = model.Module{
			ID:                   id,
			EnergyModifier:       energy,
			SpeedModifier:        speed,
			ProductivityModifier: productivity,
			PollutionModifier:    pollution,
		}
	}

	return gd, nil
}

func buildMetadata(table *symbol.Table, m model.Metadata) Metadata {
	out := Metadata{
		LocalisedName: table.MustResolve(m.Name),
		Icon:          uint32(m.Icon),
	}
	if m.Description.Valid() {
		description := table.MustResolve(m.Description)
		out.LocalisedDescription = &description
	}
	return out
}

func loadMetadata(table *symbol.Table, m Metadata) model.Metadata {
	out := model.Metadata{
		Name: table.Intern(m.LocalisedName),
		Icon: model.Icon(m.Icon),
	}
	if m.LocalisedDescription != nil {
		out.Description = table.Intern(*m.LocalisedDescription)
	}
	return out
}

func buildRecipe(table *symbol.Table, recipe model.Recipe) Recipe {
	out := Recipe{
		ID:               recipe.ID.Text(table),
		Metadata:         buildMetadata(table, recipe.Metadata),
		Time:             recipe.Time.RatString(),
		Ingredients:      make([]Ingredient, 0, len(recipe.Ingredients)),
		Products:         make([]Product, 0, len(recipe.Products)),
		CraftedIn:        buildIDs(table, recipe.CraftedIn),
		SupportedModules: buildIDs(table, recipe.SupportedModules),
	}

	for _, ingredient := range recipe.Ingredients {
		built := Ingredient{
			Amount:         ingredient.Amount.RatString(),
			CatalystAmount: ingredient.CatalystAmount.RatString(),
		}
		switch ingredient.Kind {
		case model.ResourceItem:
			built.Kind = kindItem
			built.ID = ingredient.Item.Text(table)
		case model.ResourceFluid:
			built.Kind = kindFluid
			built.ID = ingredient.Fluid.Text(table)
			built.MinimumTemperature = buildOptionalRat(ingredient.MinimumTemperature)
			built.MaximumTemperature = buildOptionalRat(ingredient.MaximumTemperature)
		}
		out.Ingredients = append(out.Ingredients, built)
	}

	for _, product := range recipe.Products {
		built := Product{}
		switch product.Kind {
		case model.ResourceItem:
			built.Kind = kindItem
			built.ID = product.Item.Text(table)
		case model.ResourceFluid:
			built.Kind = kindFluid
			built.ID = product.Fluid.Text(table)
			built.Temperature = buildOptionalRat(product.Temperature)
		}
		switch product.Amount.Kind {
		case model.AmountFixed:
			built.AmountKind = amountFixed
			built.Amount = buildOptionalRat(product.Amount.Amount)
			built.CatalystAmount = buildOptionalRat(product.Amount.CatalystAmount)
		case model.AmountProbability:
			built.AmountKind = amountProbability
			built.AmountMin = buildOptionalRat(product.Amount.AmountMin)
			built.AmountMax = buildOptionalRat(product.Amount.AmountMax)
			built.Probability = buildOptionalRat(product.Amount.Probability)
		}
		out.Products = append(out.Products, built)
	}

	return out
}

func loadRecipe(table *symbol.Table, recipe Recipe) (model.Recipe, error) {
	id := model.RecipeID(table.Intern(recipe.ID))
	time, err := loadRat(recipe.Time)
	if err != nil {
		return model.Recipe{}, errors.Wrap(err, "time")
	}

	out := model.Recipe{
		ID:               id,
		Metadata:         loadMetadata(table, recipe.Metadata),
		Time:             time,
		Ingredients:      make([]model.Ingredient, 0, len(recipe.Ingredients)),
		Products:         make([]model.Product, 0, len(recipe.Products)),
		CraftedIn:        make([]model.MachineID, 0, len(recipe.CraftedIn)),
		SupportedModules: loadItemIDs(table, recipe.SupportedModules),
	}
	for _, text := range recipe.CraftedIn {
		out.CraftedIn = append(out.CraftedIn, model.MachineID(table.Intern(text)))
	}

	for i, ingredient := range recipe.Ingredients {
		loaded := model.Ingredient{}
		switch ingredient.Kind {
		case kindItem:
			loaded.Kind = model.ResourceItem
			loaded.Item = model.ItemID(table.Intern(ingredient.ID))
		case kindFluid:
			loaded.Kind = model.ResourceFluid
			loaded.Fluid = model.FluidID(table.Intern(ingredient.ID))
			if loaded.MinimumTemperature, err = loadOptionalRat(ingredient.MinimumTemperature); err != nil {
				return model.Recipe{}, errors.Wrapf(err, "ingredient %d minimum temperature", i)
			}
			if loaded.MaximumTemperature, err = loadOptionalRat(ingredient.MaximumTemperature); err != nil {
				return model.Recipe{}, errors.Wrapf(err, "ingredient %d maximum temperature", i)
			}
		default:
			return model.Recipe{}, errors.Newf("ingredient %d has unknown kind %q", i, ingredient.Kind)
		}
		if loaded.Amount, err = loadRat(ingredient.Amount); err != nil {
			return model.Recipe{}, errors.Wrapf(err, "ingredient %d amount", i)
		}
		if loaded.CatalystAmount, err = loadRat(ingredient.CatalystAmount); err != nil {
			return model.Recipe{}, errors.Wrapf(err, "ingredient %d catalyst amount", i)
		}
		out.Ingredients = append(out.Ingredients, loaded)
	}

	for i, product := range recipe.Products {
		loaded := model.Product{}
		switch product.Kind {
		case kindItem:
			loaded.Kind = model.ResourceItem
			loaded.Item = model.ItemID(table.Intern(product.ID))
		case kindFluid:
			loaded.Kind = model.ResourceFluid
			loaded.Fluid = model.FluidID(table.Intern(product.ID))
			if loaded.Temperature, err = loadOptionalRat(product.Temperature); err != nil {
				return model.Recipe{}, errors.Wrapf(err, "product %d temperature", i)
			}
		default:
			return model.Recipe{}, errors.Newf("product %d has unknown kind %q", i, product.Kind)
		}
		switch product.AmountKind {
		case amountFixed:
			loaded.Amount.Kind = model.AmountFixed
			if loaded.Amount.Amount, err = loadOptionalRat(product.Amount); err != nil {
				return model.Recipe{}, errors.Wrapf(err, "product %d amount", i)
			}
			if loaded.Amount.CatalystAmount, err = loadOptionalRat(product.CatalystAmount); err != nil {
				return model.Recipe{}, errors.Wrapf(err, "product %d catalyst amount", i)
			}
		case amountProbability:
			loaded.Amount.Kind = model.AmountProbability
			if loaded.Amount.AmountMin, err = loadOptionalRat(product.AmountMin); err != nil {
				return model.Recipe{}, errors.Wrapf(err, "product %d minimum amount", i)
			}
			if loaded.Amount.AmountMax, err = loadOptionalRat(product.AmountMax); err != nil {
				return model.Recipe{}, errors.Wrapf(err, "product %d maximum amount", i)
			}
			if loaded.Amount.Probability, err = loadOptionalRat(product.Probability); err != nil {
				return model.Recipe{}, errors.Wrapf(err, "product %d probability", i)
			}
		default:
			return model.Recipe{}, errors.Newf("product %d has unknown amount kind %q", i, product.AmountKind)
		}
		out.Products = append(out.Products, loaded)
	}

	return out, nil
}

func buildIDs[T ~uint32](table *symbol.Table, ids []T) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, table.MustResolve(symbol.Symbol(id)))
	}
	return out
}

func loadItemIDs(table *symbol.Table, texts []string) []model.ItemID {
	out := make([]model.ItemID, 0, len(texts))
	for _, text := range texts {
		out = append(out, model.ItemID(table.Intern(text)))
	}
	return out
}

func buildOptionalRat(r *big.Rat) *string {
	if r == nil {
		return nil
	}
	text := r.RatString()
	return &text
}

func loadRat(text string) (*big.Rat, error) {
	return numeric.ParseRat(text)
}

func loadOptionalRat(text *string) (*big.Rat, error) {
	if text == nil {
		return nil, nil
	}
	return numeric.ParseRat(*text)
}

func sortedKeys[M ~map[K]V, K ~uint32, V any](table *symbol.Table, m M) []K {
	keys := make([]K, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	model.SortIDs(table, keys)
	return keys
}

package model

// GameData is the fully assembled production model of one game
// installation. Entities are keyed by their identifier; the maps are the
// source of truth and updates happen in place.
type GameData struct {
	// Tiles describes the icon atlas. Nil until the icon stage has run.
	Tiles *TileMetadata

	Items    map[ItemID]Item
	Fluids   map[FluidID]Fluid
	Recipes  map[RecipeID]Recipe
	Machines map[MachineID]Machine
	Beacons  map[BeaconID]Beacon

	// Modules holds module data for the subset of Items flagged as
	// modules. Every key is also present in Items.
	Modules map[ItemID]Module
}

// NewGameData creates an empty model.
func NewGameData() *GameData {
	return &GameData{
		Items:    make(map[ItemID]Item),
		Fluids:   make(map[FluidID]Fluid),
		Recipes:  make(map[RecipeID]Recipe),
		Machines: make(map[MachineID]Machine),
		Beacons:  make(map[BeaconID]Beacon),
		Modules:  make(map[ItemID]Module),
	}
}

// Metadata looks up the metadata of any entity by tagged reference.
func (gd *GameData) Metadata(r Ref) (Metadata, bool) {
	switch r.Kind() {
	case KindItem:
		e, ok := gd.Items[r.Item()]
		return e.Metadata, ok
	case KindFluid:
		e, ok := gd.Fluids[r.Fluid()]
		return e.Metadata, ok
	case KindRecipe:
		e, ok := gd.Recipes[r.Recipe()]
		return e.Metadata, ok
	case KindMachine:
		e, ok := gd.Machines[r.Machine()]
		return e.Metadata, ok
	case KindBeacon:
		e, ok := gd.Beacons[r.Beacon()]
		return e.Metadata, ok
	default:
		return Metadata{}, false
	}
}

// ModifyMetadata rewrites the metadata of every entity in the model. The
// callback receives the entity's tagged reference and current metadata and
// returns the replacement. The first error aborts the rewrite.
func (gd *GameData) ModifyMetadata(f func(Ref, Metadata) (Metadata, error)) error {
	for id, e := range gd.Items {
		meta, err := f(id.Ref(), e.Metadata)
		if err != nil {
			return err
		}
		e.Metadata = meta
		gd.Items[id] = e
	}
	for id, e := range gd.Fluids {
		meta, err := f(id.Ref(), e.Metadata)
		if err != nil {
			return err
		}
		e.Metadata = meta
		gd.Fluids[id] = e
	}
	for id, e := range gd.Recipes {
		meta, err := f(id.Ref(), e.Metadata)
		if err != nil {
			return err
		}
		e.Metadata = meta
		gd.Recipes[id] = e
	}
	for id, e := range gd.Machines {
		meta, err := f(id.Ref(), e.Metadata)
		if err != nil {
			return err
		}
		e.Metadata = meta
		gd.Machines[id] = e
	}
	for id, e := range gd.Beacons {
		meta, err := f(id.Ref(), e.Metadata)
		if err != nil {
			return err
		}
		e.Metadata = meta
		gd.Beacons[id] = e
	}
	return nil
}

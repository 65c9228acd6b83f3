// Package v1 defines the serialized form of the extracted model. Interned
// symbols travel as plain strings and exact numbers as their canonical
// decimal text ("n" or "n/d"), so the format round-trips losslessly and
// stays readable for downstream consumers.
package v1

// Export is the top-level serialized document.
type Export struct {
	TileMetadata *TileMetadata `json:"tileMetadata,omitempty"`
	Items        []Item        `json:"items"`
	Fluids       []Fluid       `json:"fluids"`
	Recipes      []Recipe      `json:"recipes"`
	Machines     []Machine     `json:"machines"`
	Beacons      []Beacon      `json:"beacons"`
	Modules      []Module      `json:"modules"`
}

// TileMetadata mirrors the icon atlas geometry.
type TileMetadata struct {
	TileWidth  int `json:"tileWidth"`
	TileHeight int `json:"tileHeight"`
	TileCount  int `json:"tileCount"`
	Width      int `json:"width"`
	Height     int `json:"height"`
}

// Metadata carries the shared display fields. Icon is the 1-based atlas
// slot; zero or absent means no icon was assigned.
type Metadata struct {
	LocalisedName        string  `json:"localisedName"`
	LocalisedDescription *string `json:"localisedDescription,omitempty"`
	Icon                 uint32  `json:"icon,omitempty"`
}

type Item struct {
	ID       string   `json:"id"`
	Metadata Metadata `json:"metadata"`
}

type Fluid struct {
	ID       string   `json:"id"`
	Metadata Metadata `json:"metadata"`
}

type Machine struct {
	ID                string   `json:"id"`
	Metadata          Metadata `json:"metadata"`
	CraftingSpeed     string   `json:"craftingSpeed"`
	EnergyConsumption string   `json:"energyConsumption"`
	EnergyDrain       string   `json:"energyDrain"`
	ModuleSlots       string   `json:"moduleSlots"`
	SupportedModules  []string `json:"supportedModules"`
}

type Beacon struct {
	ID                      string   `json:"id"`
	Metadata                Metadata `json:"metadata"`
	DistributionEffectivity string   `json:"distributionEffectivity"`
	SupportedModules        []string `json:"supportedModules"`
}

type Module struct {
	ID                   string `json:"id"`
	EnergyModifier       string `json:"energyModifier"`
	SpeedModifier        string `json:"speedModifier"`
	ProductivityModifier string `json:"productivityModifier"`
	PollutionModifier    string `json:"pollutionModifier"`
}

// Ingredient is one recipe input. Kind is "item" or "fluid"; the
// temperature bounds only apply to fluids and are absent when
// unconstrained.
type Ingredient struct {
	Kind               string  `json:"kind"`
	ID                 string  `json:"id"`
	Amount             string  `json:"amount"`
	CatalystAmount     string  `json:"catalystAmount"`
	MinimumTemperature *string `json:"minimumTemperature,omitempty"`
	MaximumTemperature *string `json:"maximumTemperature,omitempty"`
}

// Product is one recipe output. AmountKind is "fixed" or "probability";
// the corresponding field group is set, the other stays absent.
type Product struct {
	Kind        string  `json:"kind"`
	ID          string  `json:"id"`
	Temperature *string `json:"temperature,omitempty"`

	AmountKind     string  `json:"amountKind"`
	Amount         *string `json:"amount,omitempty"`
	CatalystAmount *string `json:"catalystAmount,omitempty"`
	AmountMin      *string `json:"amountMin,omitempty"`
	AmountMax      *string `json:"amountMax,omitempty"`
	Probability    *string `json:"probability,omitempty"`
}

type Recipe struct {
	ID               string       `json:"id"`
	Metadata         Metadata     `json:"metadata"`
	Time             string       `json:"time"`
	Ingredients      []Ingredient `json:"ingredients"`
	Products         []Product    `json:"products"`
	CraftedIn        []string     `json:"craftedIn"`
	SupportedModules []string     `json:"supportedModules"`
}

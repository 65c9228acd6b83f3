package model

import (
	"math/big"

	"github.com/graphio/extractor/internal/symbol"
)

// Metadata carries the display data shared by all entity categories.
type Metadata struct {
	// Name is the localised display name. Always present; when the game
	// has no translation the raw localisation key is kept instead.
	Name symbol.Symbol

	// Description is the localised description. The zero Symbol means the
	// game has none.
	Description symbol.Symbol

	// Icon is the entity's slot in the icon atlas. Zero until the icon
	// stage has run.
	Icon Icon
}

// Item is a solid resource that can occupy inventory slots.
type Item struct {
	ID       ItemID
	Metadata Metadata
}

// Fluid is a liquid or gaseous resource moved through pipes.
type Fluid struct {
	ID       FluidID
	Metadata Metadata
}

// Machine is a crafting machine that executes recipes.
type Machine struct {
	ID                MachineID
	Metadata          Metadata
	CraftingSpeed     *big.Rat
	EnergyConsumption *big.Rat
	EnergyDrain       *big.Rat
	ModuleSlots       *big.Int

	// SupportedModules holds every module whose effects the machine
	// accepts. Filled by the assembly cross-reference pass.
	SupportedModules []ItemID
}

// Beacon transmits module effects to nearby machines.
type Beacon struct {
	ID                      BeaconID
	Metadata                Metadata
	DistributionEffectivity *big.Rat

	// SupportedModules holds every module whose effects the beacon
	// accepts. Filled by the assembly cross-reference pass.
	SupportedModules []ItemID
}

// Module is an item that modifies machine behavior when socketed.
// The modifiers are relative changes; zero means no effect on that channel.
type Module struct {
	ID                   ItemID
	EnergyModifier       *big.Rat
	SpeedModifier        *big.Rat
	ProductivityModifier *big.Rat
	PollutionModifier    *big.Rat
}

// ResourceKind discriminates whether an ingredient or product is an item
// or a fluid.
type ResourceKind uint8

const (
	ResourceItem ResourceKind = iota + 1
	ResourceFluid
)

// Ingredient is one input of a recipe.
type Ingredient struct {
	Kind  ResourceKind
	Item  ItemID  // set when Kind is ResourceItem
	Fluid FluidID // set when Kind is ResourceFluid

	Amount         *big.Rat
	CatalystAmount *big.Rat

	// Temperature bounds accepted for a fluid ingredient. Nil means the
	// bound is unconstrained. Always nil for items.
	MinimumTemperature *big.Rat
	MaximumTemperature *big.Rat
}

// AmountKind discriminates how a product's yield is specified.
type AmountKind uint8

const (
	// AmountFixed is a deterministic yield.
	AmountFixed AmountKind = iota + 1
	// AmountProbability is a randomized yield within a range.
	AmountProbability
)

// ProductAmount is the yield of one product.
type ProductAmount struct {
	Kind AmountKind

	// Fixed yield.
	Amount         *big.Rat
	CatalystAmount *big.Rat

	// Probabilistic yield.
	AmountMin   *big.Rat
	AmountMax   *big.Rat
	Probability *big.Rat
}

// Product is one output of a recipe.
type Product struct {
	Kind  ResourceKind
	Item  ItemID  // set when Kind is ResourceItem
	Fluid FluidID // set when Kind is ResourceFluid

	// Temperature the fluid is produced at. Always nil for items.
	Temperature *big.Rat

	Amount ProductAmount
}

// Recipe transforms ingredients into products over a crafting time.
type Recipe struct {
	ID       RecipeID
	Metadata Metadata
	Time     *big.Rat

	// Ingredients and Products keep the export order.
	Ingredients []Ingredient
	Products    []Product

	// CraftedIn lists the machines able to execute this recipe.
	CraftedIn []MachineID

	// SupportedModules holds every module usable with this recipe,
	// derived from module limitation lists during assembly.
	SupportedModules []ItemID
}

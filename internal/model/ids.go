package model

import (
	"github.com/graphio/extractor/internal/symbol"
)

// Entity identifiers are distinct types over an interned symbol so an item
// can never be confused with a fluid or a recipe of the same name. Identity
// is the interned name; two entities with the same ID are the same entity.

// ItemID identifies an item. Modules are items, so module identifiers are
// ItemIDs as well.
type ItemID symbol.Symbol

// FluidID identifies a fluid.
type FluidID symbol.Symbol

// RecipeID identifies a recipe.
type RecipeID symbol.Symbol

// MachineID identifies a crafting machine.
type MachineID symbol.Symbol

// BeaconID identifies a beacon.
type BeaconID symbol.Symbol

// Text resolves the identifier to its name.
func (id ItemID) Text(t *symbol.Table) string { return t.MustResolve(symbol.Symbol(id)) }

// Text resolves the identifier to its name.
func (id FluidID) Text(t *symbol.Table) string { return t.MustResolve(symbol.Symbol(id)) }

// Text resolves the identifier to its name.
func (id RecipeID) Text(t *symbol.Table) string { return t.MustResolve(symbol.Symbol(id)) }

// Text resolves the identifier to its name.
func (id MachineID) Text(t *symbol.Table) string { return t.MustResolve(symbol.Symbol(id)) }

// Text resolves the identifier to its name.
func (id BeaconID) Text(t *symbol.Table) string { return t.MustResolve(symbol.Symbol(id)) }

// Kind discriminates the entity categories an identifier can belong to.
type Kind uint8

const (
	KindItem Kind = iota + 1
	KindFluid
	KindRecipe
	KindMachine
	KindBeacon
)

// String returns the category name.
func (k Kind) String() string {
	switch k {
	case KindItem:
		return "item"
	case KindFluid:
		return "fluid"
	case KindRecipe:
		return "recipe"
	case KindMachine:
		return "machine"
	case KindBeacon:
		return "beacon"
	default:
		return "invalid"
	}
}

// Ref is a tagged reference to any entity. It lets passes that treat all
// categories uniformly, such as the icon rewrite, dispatch on the kind
// without losing the typed identifier.
type Ref struct {
	kind Kind
	sym  symbol.Symbol
}

// Ref converts the identifier into a tagged reference.
func (id ItemID) Ref() Ref { return Ref{kind: KindItem, sym: symbol.Symbol(id)} }

// Ref converts the identifier into a tagged reference.
func (id FluidID) Ref() Ref { return Ref{kind: KindFluid, sym: symbol.Symbol(id)} }

// Ref converts the identifier into a tagged reference.
func (id RecipeID) Ref() Ref { return Ref{kind: KindRecipe, sym: symbol.Symbol(id)} }

// Ref converts the identifier into a tagged reference.
func (id MachineID) Ref() Ref { return Ref{kind: KindMachine, sym: symbol.Symbol(id)} }

// Ref converts the identifier into a tagged reference.
func (id BeaconID) Ref() Ref { return Ref{kind: KindBeacon, sym: symbol.Symbol(id)} }

// Kind returns the referenced category.
func (r Ref) Kind() Kind { return r.kind }

// Item returns the typed identifier. Valid only when Kind is KindItem.
func (r Ref) Item() ItemID { return ItemID(r.sym) }

// Fluid returns the typed identifier. Valid only when Kind is KindFluid.
func (r Ref) Fluid() FluidID { return FluidID(r.sym) }

// Recipe returns the typed identifier. Valid only when Kind is KindRecipe.
func (r Ref) Recipe() RecipeID { return RecipeID(r.sym) }

// Machine returns the typed identifier. Valid only when Kind is KindMachine.
func (r Ref) Machine() MachineID { return MachineID(r.sym) }

// Beacon returns the typed identifier. Valid only when Kind is KindBeacon.
func (r Ref) Beacon() BeaconID { return BeaconID(r.sym) }

// Text resolves the referenced identifier to its name.
func (r Ref) Text(t *symbol.Table) string { return t.MustResolve(r.sym) }

package model

import (
	"sort"

	"github.com/graphio/extractor/internal/symbol"
)

// SortIDs orders identifiers by their resolved text. Entity maps have no
// iteration order, so passes that need deterministic output sort the
// identifiers they collect.
func SortIDs[T ~uint32](t *symbol.Table, ids []T) {
	sort.Slice(ids, func(i, j int) bool {
		return t.MustResolve(symbol.Symbol(ids[i])) < t.MustResolve(symbol.Symbol(ids[j]))
	})
}

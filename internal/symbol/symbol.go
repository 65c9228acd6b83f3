// Package symbol provides a string interning table. Entity identifiers and
// localised text repeat heavily in an export, so the rest of the pipeline
// passes small Symbol values around instead of strings.
package symbol

import (
	"math"
	"sync"
)

// Symbol identifies a string interned in a Table. The zero value is invalid
// and represents "absent" wherever a Symbol is optional.
type Symbol uint32

// Valid reports whether s refers to an interned string.
func (s Symbol) Valid() bool {
	return s != 0
}

// Table is an append-only interning registry. Interning the same text always
// yields the same Symbol, and a Symbol resolves to its text for the lifetime
// of the table. Safe for concurrent use.
type Table struct {
	mu      sync.RWMutex
	symbols map[string]Symbol
	texts   []string
}

// NewTable creates an empty interning table.
func NewTable() *Table {
	return &Table{symbols: make(map[string]Symbol)}
}

// Intern returns the Symbol for text, registering it on first use.
// Panics if the identifier space is exhausted.
func (t *Table) Intern(text string) Symbol {
	t.mu.RLock()
	s, ok := t.symbols[text]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.symbols[text]; ok {
		return s
	}
	if len(t.texts) >= math.MaxUint32 {
		panic("symbol: table full")
	}
	t.texts = append(t.texts, text)
	s = Symbol(len(t.texts)) // identifiers start at 1, zero stays invalid
	t.symbols[text] = s
	return s
}

// Resolve returns the text s was interned from. The second return value is
// false for the zero Symbol and for values past the end of the table.
// Symbols from different tables must not be mixed: a foreign symbol whose
// index happens to be in range resolves to whatever this table holds there.
func (t *Table) Resolve(s Symbol) (string, bool) {
	if !s.Valid() {
		return "", false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(s) > len(t.texts) {
		return "", false
	}
	return t.texts[s-1], true
}

// MustResolve is Resolve for symbols known to come from this table.
func (t *Table) MustResolve(s Symbol) string {
	text, ok := t.Resolve(s)
	if !ok {
		panic("symbol: resolve of unknown symbol")
	}
	return text
}

// Len returns the number of distinct strings interned so far.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.texts)
}

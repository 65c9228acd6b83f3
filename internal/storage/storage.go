// Package storage persists extraction results between pipeline stages.
package storage

import "github.com/graphio/extractor/internal/model"

// Backend is the interface all storage implementations must satisfy.
// Prototypes are the raw exported records kept so the transform stages can
// rerun without touching the game; game data is the assembled model; the
// atlas is the encoded icon sheet.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Prototype records
	SavePrototypes(records []string, overwrite bool) (string, error)
	LoadPrototypes() ([]string, error)

	// Assembled model
	SaveGameData(gd *model.GameData, overwrite bool) (string, error)
	LoadGameData() (*model.GameData, error)

	// Icon atlas (encoded PNG)
	SaveAtlas(png []byte) (string, error)
}

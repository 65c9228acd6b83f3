package storage

import (
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/graphio/extractor/internal/config"
	"github.com/graphio/extractor/internal/storage/database"
	"github.com/graphio/extractor/internal/storage/file"
	"github.com/graphio/extractor/internal/symbol"
)

// NewBackend creates a storage backend based on configuration.
func NewBackend(cfg config.StorageConfig, table *symbol.Table, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "file":
		return file.New(cfg.File, table, log), nil
	case "database":
		return database.New(cfg.Database, table, log), nil
	default:
		return nil, errors.Newf("unknown storage type: %s", cfg.Type)
	}
}

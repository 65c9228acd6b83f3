// Package database persists extraction results as rows, connecting to
// Postgres and falling back to a local SQLite file when it is unreachable.
package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/graphio/extractor/internal/config"
	"github.com/graphio/extractor/internal/model"
	v1 "github.com/graphio/extractor/internal/storage/export/v1"
	"github.com/graphio/extractor/internal/symbol"
)

// PrototypeSet is one saved batch of raw exported records.
type PrototypeSet struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	Records   datatypes.JSON
}

// GameDataDocument is one saved assembled model.
type GameDataDocument struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	Payload   datatypes.JSON
}

// IconAtlas is one saved encoded icon sheet.
type IconAtlas struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	PNG       []byte
}

var databaseModels = []any{
	&PrototypeSet{},
	&GameDataDocument{},
	&IconAtlas{},
}

// Backend stores results in a relational database. Loads always return the
// most recent row, so reruns of later stages pick up the latest extraction.
type Backend struct {
	cfg    config.DatabaseConfig
	table  *symbol.Table
	logger zerolog.Logger

	db    *gorm.DB
	sqlDB *sql.DB
	local bool
}

// New creates a database storage backend.
func New(cfg config.DatabaseConfig, table *symbol.Table, log zerolog.Logger) *Backend {
	return &Backend{
		cfg:    cfg,
		table:  table,
		logger: log.With().Str("backend", "database").Logger(),
	}
}

// Init connects and migrates the schema, falling back to SQLite if Postgres
// is unreachable.
func (b *Backend) Init() error {
	var err error

	b.db, err = b.openPostgres()
	if err != nil {
		b.logger.Warn().Err(err).Msg("Failed to connect to Postgres, using local SQLite")
		b.local = true
		if b.db, err = b.openSqlite(); err != nil {
			return errors.Wrap(err, "opening local SQLite database")
		}
	}

	if b.sqlDB, err = b.db.DB(); err != nil {
		return errors.Wrap(err, "accessing sql interface")
	}

	if err = b.sqlDB.Ping(); err != nil {
		if b.local {
			return errors.Wrap(err, "validating connection")
		}
		b.logger.Warn().Err(err).Msg("Failed to validate connection, using local SQLite")
		b.local = true
		if b.db, err = b.openSqlite(); err != nil {
			return errors.Wrap(err, "opening local SQLite database")
		}
		if b.sqlDB, err = b.db.DB(); err != nil {
			return errors.Wrap(err, "accessing sql interface")
		}
	}

	if err := b.db.AutoMigrate(databaseModels...); err != nil {
		return errors.Wrap(err, "migrating schema")
	}

	b.logger.Info().Bool("local", b.local).Msg("Connected to database")
	return nil
}

// Close releases the connection.
func (b *Backend) Close() error {
	if b.sqlDB == nil {
		return nil
	}
	return b.sqlDB.Close()
}

// SavePrototypes stores the raw exported records. With overwrite set all
// earlier batches are dropped first.
func (b *Backend) SavePrototypes(records []string, overwrite bool) (string, error) {
	payload, err := json.Marshal(records)
	if err != nil {
		return "", errors.Wrap(err, "encoding prototypes")
	}
	if overwrite {
		if err := b.db.Where("1 = 1").Delete(&PrototypeSet{}).Error; err != nil {
			return "", errors.Wrap(err, "dropping earlier prototype sets")
		}
	}
	row := PrototypeSet{Records: datatypes.JSON(payload)}
	if err := b.db.Create(&row).Error; err != nil {
		return "", errors.Wrap(err, "storing prototypes")
	}
	return fmt.Sprintf("prototype_sets/%d", row.ID), nil
}

// LoadPrototypes reads back the most recent batch of records.
func (b *Backend) LoadPrototypes() ([]string, error) {
	var row PrototypeSet
	if err := b.db.Order("id desc").First(&row).Error; err != nil {
		return nil, errors.Wrap(err, "loading prototypes")
	}
	var records []string
	if err := json.Unmarshal(row.Records, &records); err != nil {
		return nil, errors.Wrap(err, "decoding prototypes")
	}
	return records, nil
}

// SaveGameData stores the assembled model. With overwrite set all earlier
// documents are dropped first.
func (b *Backend) SaveGameData(gd *model.GameData, overwrite bool) (string, error) {
	payload, err := json.Marshal(v1.Build(b.table, gd))
	if err != nil {
		return "", errors.Wrap(err, "encoding game data")
	}
	if overwrite {
		if err := b.db.Where("1 = 1").Delete(&GameDataDocument{}).Error; err != nil {
			return "", errors.Wrap(err, "dropping earlier game data")
		}
	}
	row := GameDataDocument{Payload: datatypes.JSON(payload)}
	if err := b.db.Create(&row).Error; err != nil {
		return "", errors.Wrap(err, "storing game data")
	}
	return fmt.Sprintf("game_data_documents/%d", row.ID), nil
}

// LoadGameData reads back the most recent assembled model.
func (b *Backend) LoadGameData() (*model.GameData, error) {
	var row GameDataDocument
	if err := b.db.Order("id desc").First(&row).Error; err != nil {
		return nil, errors.Wrap(err, "loading game data")
	}
	var export v1.Export
	if err := json.Unmarshal(row.Payload, &export); err != nil {
		return nil, errors.Wrap(err, "decoding game data")
	}
	return v1.Load(b.table, &export)
}

// SaveAtlas stores the encoded icon sheet.
func (b *Backend) SaveAtlas(png []byte) (string, error) {
	row := IconAtlas{PNG: png}
	if err := b.db.Create(&row).Error; err != nil {
		return "", errors.Wrap(err, "storing icon atlas")
	}
	return fmt.Sprintf("icon_atlases/%d", row.ID), nil
}

func (b *Backend) openPostgres() (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		b.cfg.Host,
		b.cfg.Port,
		b.cfg.Username,
		b.cfg.Password,
		b.cfg.Database,
	)

	b.logger.Debug().Str("host", b.cfg.Host).Str("database", b.cfg.Database).Msg("Connecting to Postgres")

	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

func (b *Backend) openSqlite() (*gorm.DB, error) {
	path := b.cfg.SqlitePath
	if path == "" {
		path = "graphio_extractor.db"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	b.logger.Info().Str("path", path).Msg("Using local SQLite database")
	return db, nil
}

// Package file persists extraction results as JSON documents in the game's
// script-output directory (or any configured directory).
package file

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"github.com/graphio/extractor/internal/config"
	"github.com/graphio/extractor/internal/factorio"
	"github.com/graphio/extractor/internal/model"
	v1 "github.com/graphio/extractor/internal/storage/export/v1"
	"github.com/graphio/extractor/internal/symbol"
)

const (
	prototypesName = "prototypes"
	gameDataName   = "game_data"
	atlasName      = "game_icons"
)

// Backend writes results as files. Writes never clobber unrelated files:
// without the overwrite flag a numeric appendix is added to the name until
// it is free.
type Backend struct {
	cfg    config.FileConfig
	table  *symbol.Table
	logger zerolog.Logger
}

// New creates a file storage backend.
func New(cfg config.FileConfig, table *symbol.Table, log zerolog.Logger) *Backend {
	return &Backend{
		cfg:    cfg,
		table:  table,
		logger: log.With().Str("backend", "file").Logger(),
	}
}

// Init ensures the output directory exists.
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return errors.New("file storage output directory not set")
	}
	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}
	return nil
}

// Close is a no-op; every write is flushed when it happens.
func (b *Backend) Close() error {
	return nil
}

// SavePrototypes writes the raw exported records.
func (b *Backend) SavePrototypes(records []string, overwrite bool) (string, error) {
	contents, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encoding prototypes")
	}
	if overwrite {
		return b.overwrite(prototypesName, contents)
	}
	return b.write(prototypesName, contents)
}

// LoadPrototypes reads back previously saved records.
func (b *Backend) LoadPrototypes() ([]string, error) {
	contents, err := b.read(prototypesName)
	if err != nil {
		return nil, err
	}
	var records []string
	if err := json.Unmarshal(contents, &records); err != nil {
		return nil, errors.Wrap(err, "decoding prototypes")
	}
	return records, nil
}

// SaveGameData writes the assembled model. With overwrite set an existing
// file of the same name is replaced; this is how the icon stage updates the
// document in place.
func (b *Backend) SaveGameData(gd *model.GameData, overwrite bool) (string, error) {
	contents, err := json.MarshalIndent(v1.Build(b.table, gd), "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encoding game data")
	}
	if overwrite {
		return b.overwrite(gameDataName, contents)
	}
	return b.write(gameDataName, contents)
}

// LoadGameData reads back a previously saved model.
func (b *Backend) LoadGameData() (*model.GameData, error) {
	contents, err := b.read(gameDataName)
	if err != nil {
		return nil, err
	}
	var export v1.Export
	if err := json.Unmarshal(contents, &export); err != nil {
		return nil, errors.Wrap(err, "decoding game data")
	}
	return v1.Load(b.table, &export)
}

// SaveAtlas writes the encoded icon sheet.
func (b *Backend) SaveAtlas(png []byte) (string, error) {
	path, err := factorio.WriteFileSafely(b.cfg.OutputDir, atlasName, "png", png)
	if err != nil {
		return "", errors.Wrap(err, "writing icon atlas")
	}
	b.logger.Info().Str("path", path).Msg("Wrote icon atlas")
	return path, nil
}

func (b *Backend) extension() string {
	if b.cfg.CompressOutput {
		return "json.gz"
	}
	return "json"
}

func (b *Backend) write(name string, contents []byte) (string, error) {
	contents, err := b.compress(contents)
	if err != nil {
		return "", err
	}
	path, err := factorio.WriteFileSafely(b.cfg.OutputDir, name, b.extension(), contents)
	if err != nil {
		return "", errors.Wrapf(err, "writing %s", name)
	}
	b.logger.Info().Str("path", path).Msg("Wrote document")
	return path, nil
}

func (b *Backend) overwrite(name string, contents []byte) (string, error) {
	contents, err := b.compress(contents)
	if err != nil {
		return "", err
	}
	path := filepath.Join(b.cfg.OutputDir, name+"."+b.extension())
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		return "", errors.Wrapf(err, "writing %s", name)
	}
	b.logger.Info().Str("path", path).Msg("Replaced document")
	return path, nil
}

func (b *Backend) read(name string) ([]byte, error) {
	path := filepath.Join(b.cfg.OutputDir, name+"."+b.extension())
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	if !b.cfg.CompressOutput {
		return contents, nil
	}
	reader, err := gzip.NewReader(bytes.NewReader(contents))
	if err != nil {
		return nil, errors.Wrapf(err, "decompressing %s", name)
	}
	defer reader.Close()
	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrapf(err, "decompressing %s", name)
	}
	return decompressed, nil
}

func (b *Backend) compress(contents []byte) ([]byte, error) {
	if !b.cfg.CompressOutput {
		return contents, nil
	}
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(contents); err != nil {
		return nil, errors.Wrap(err, "compressing output")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "compressing output")
	}
	return buf.Bytes(), nil
}

// Package icon turns the dark/light icon renders exported by the game into
// a single deduplicated RGBA atlas. The game cannot export transparency, so
// every icon is rendered twice, once composited on black and once on white,
// and the original alpha channel is recovered from the difference.
package icon

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	// The game exports PNG renders; BMP shows up with some capture setups.
	_ "golang.org/x/image/bmp"

	"github.com/graphio/extractor/internal/model"
	"github.com/graphio/extractor/internal/symbol"
)

// Icon renders are fixed-size tiles.
const (
	TileWidth  = 32
	TileHeight = 32
)

var (
	// ErrImageDimension marks a render that is not exactly one tile.
	ErrImageDimension = errors.New("image dimension mismatch")

	// ErrEmptyDataSet marks a model with no entities to build an atlas for.
	ErrEmptyDataSet = errors.New("empty data set")
)

// Builder loads icon render pairs and assembles the atlas.
type Builder struct {
	table  *symbol.Table
	logger *slog.Logger

	// DeleteSources removes the render files and their directories after a
	// successful load.
	DeleteSources bool
}

// NewBuilder creates a Builder resolving identifiers through table.
func NewBuilder(table *symbol.Table, logger *slog.Logger) *Builder {
	return &Builder{table: table, logger: logger}
}

// Atlas is the packed result: the atlas image, its geometry, and the slot
// assigned to every entity.
type Atlas struct {
	Image *image.NRGBA
	Tiles model.TileMetadata
	Slots map[model.Ref]model.Icon
}

// Build loads every entity's render pair from iconDir, recovers alpha,
// deduplicates identical tiles across all categories and packs the
// distinct tiles into a square-ish grid.
//
// iconDir holds a dark/ and a light/ tree, each with items/, fluids/,
// recipes/ and entities/ subdirectories. Machines and beacons both draw
// from entities/.
func (b *Builder) Build(gd *model.GameData, iconDir string) (*Atlas, error) {
	b.logger.Info("loading exported images", "dir", iconDir)

	loader := &tileLoader{
		builder: b,
		iconDir: iconDir,
		indices: make(map[string]int),
		slots:   make(map[model.Ref]model.Icon),
	}

	if err := loadCategory(loader, "items", mapKeys(gd.Items)); err != nil {
		return nil, err
	}
	loader.cleanupCategory("items")
	if err := loadCategory(loader, "fluids", mapKeys(gd.Fluids)); err != nil {
		return nil, err
	}
	loader.cleanupCategory("fluids")
	if err := loadCategory(loader, "recipes", mapKeys(gd.Recipes)); err != nil {
		return nil, err
	}
	loader.cleanupCategory("recipes")
	// Machines and beacons share one render directory; identical names
	// resolve to the same files and deduplicate by content.
	if err := loadCategory(loader, "entities", mapKeys(gd.Machines)); err != nil {
		return nil, err
	}
	if err := loadCategory(loader, "entities", mapKeys(gd.Beacons)); err != nil {
		return nil, err
	}
	loader.cleanupCategory("entities")
	loader.cleanupRoot()

	if len(loader.images) == 0 {
		return nil, errors.Wrap(ErrEmptyDataSet, "no icons to combine")
	}

	b.logger.Info("combining images", "count", len(loader.images))
	img, tiles := pack(loader.images)
	return &Atlas{Image: img, Tiles: tiles, Slots: loader.slots}, nil
}

// EncodePNG serializes the atlas image.
func (a *Atlas) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, a.Image); err != nil {
		return nil, errors.Wrap(err, "cannot encode atlas")
	}
	return buf.Bytes(), nil
}

// Apply writes the atlas slots back into the model: every entity metadata
// gets its icon, and the model records the atlas geometry.
func (b *Builder) Apply(gd *model.GameData, atlas *Atlas) error {
	tiles := atlas.Tiles
	gd.Tiles = &tiles
	return gd.ModifyMetadata(func(r model.Ref, meta model.Metadata) (model.Metadata, error) {
		icon, ok := atlas.Slots[r]
		if !ok {
			return meta, errors.Wrapf(ErrEmptyDataSet, "no icon resolved for %s %q", r.Kind(), r.Text(b.table))
		}
		meta.Icon = icon
		return meta, nil
	})
}

// tileLoader accumulates combined tiles and their dedup indices across
// categories.
type tileLoader struct {
	builder *Builder
	iconDir string

	// indices maps raw tile pixels to their first-seen index.
	indices map[string]int
	images  [][]byte
	slots   map[model.Ref]model.Icon
}

// loadCategory resolves one entity category. IDs are processed in
// lexicographic name order so slot assignment is deterministic.
func loadCategory[T interface {
	~uint32
	Ref() model.Ref
}](l *tileLoader, category string, ids []T) error {
	model.SortIDs(l.builder.table, ids)

	for _, id := range ids {
		ref := id.Ref()
		name := ref.Text(l.builder.table) + ".png"
		darkPath := filepath.Join(l.iconDir, "dark", category, name)
		lightPath := filepath.Join(l.iconDir, "light", category, name)

		dark, err := loadTile(darkPath)
		if err != nil {
			return err
		}
		light, err := loadTile(lightPath)
		if err != nil {
			return err
		}

		if l.builder.DeleteSources {
			_ = os.Remove(darkPath)
			_ = os.Remove(lightPath)
		}

		combined := Combine(dark, light)
		key := string(combined.Pix)
		index, ok := l.indices[key]
		if !ok {
			index = len(l.images)
			l.indices[key] = index
			l.images = append(l.images, combined.Pix)
		}
		l.slots[ref] = model.NewIcon(index)
	}
	return nil
}

func (l *tileLoader) cleanupCategory(category string) {
	if !l.builder.DeleteSources {
		return
	}
	_ = os.Remove(filepath.Join(l.iconDir, "dark", category))
	_ = os.Remove(filepath.Join(l.iconDir, "light", category))
}

func (l *tileLoader) cleanupRoot() {
	if !l.builder.DeleteSources {
		return
	}
	_ = os.Remove(filepath.Join(l.iconDir, "dark"))
	_ = os.Remove(filepath.Join(l.iconDir, "light"))
	_ = os.Remove(l.iconDir)
}

// loadTile decodes one render and normalizes it to non-premultiplied RGBA.
func loadTile(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode %s", path)
	}
	bounds := img.Bounds()
	if bounds.Dx() != TileWidth || bounds.Dy() != TileHeight {
		return nil, errors.Wrapf(ErrImageDimension, "expected %s to be %dx%d, got %dx%d",
			path, TileWidth, TileHeight, bounds.Dx(), bounds.Dy())
	}

	tile := image.NewNRGBA(image.Rect(0, 0, TileWidth, TileHeight))
	draw.Draw(tile, tile.Bounds(), img, bounds.Min, draw.Src)
	return tile, nil
}

// Combine recovers the transparent original from its two composites.
//
// With c the original color and a its alpha, the renders satisfy
// dark = a*c and light = a*c + (1-a), so a = dark - light + 1 per channel.
// Alpha is averaged over the three channels and the color is averaged over
// the two estimates dark/a and (light-1)/a + 1.
func Combine(dark, light *image.NRGBA) *image.NRGBA {
	combined := image.NewNRGBA(image.Rect(0, 0, TileWidth, TileHeight))
	for i := 0; i < len(combined.Pix); i += 4 {
		var d, l [3]float64
		for c := 0; c < 3; c++ {
			d[c] = float64(dark.Pix[i+c]) / 255
			l[c] = float64(light.Pix[i+c]) / 255
		}

		a := ((d[0] - l[0] + 1) + (d[1] - l[1] + 1) + (d[2] - l[2] + 1)) / 3

		for c := 0; c < 3; c++ {
			fromDark := d[c] / a
			fromLight := (l[c]-1)/a + 1
			combined.Pix[i+c] = clampByte((fromDark + fromLight) / 2 * 255)
		}
		combined.Pix[i+3] = clampByte(a * 255)
	}
	return combined
}

// clampByte rounds into 0..255. NaN saturates high, which only happens for
// fully transparent pixels where the color is arbitrary anyway.
func clampByte(x float64) uint8 {
	if math.IsNaN(x) {
		x = 255
	}
	x = math.Min(255, x)
	x = math.Max(0, x)
	return uint8(math.Round(x))
}

// pack lays the distinct tiles out on a grid of ceil(sqrt(n)) columns.
func pack(images [][]byte) (*image.NRGBA, model.TileMetadata) {
	columns := int(math.Ceil(math.Sqrt(float64(len(images)))))
	rows := (len(images) + columns - 1) / columns

	width := columns * TileWidth
	height := rows * TileHeight
	atlas := image.NewNRGBA(image.Rect(0, 0, width, height))

	for index, tile := range images {
		bx := (index % columns) * TileWidth
		by := (index / columns) * TileHeight
		for y := 0; y < TileHeight; y++ {
			src := tile[y*TileWidth*4 : (y+1)*TileWidth*4]
			dst := atlas.Pix[((by+y)*width+bx)*4:]
			copy(dst[:TileWidth*4], src)
		}
	}

	return atlas, model.TileMetadata{
		TileWidth:  TileWidth,
		TileHeight: TileHeight,
		TileCount:  len(images),
		Width:      width,
		Height:     height,
	}
}

// mapKeys collects the keys of an entity map.
func mapKeys[K interface {
	~uint32
	Ref() model.Ref
}, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

package icon

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphio/extractor/internal/model"
	"github.com/graphio/extractor/internal/symbol"
)

func fillTile(r, g, b, a uint8) *image.NRGBA {
	tile := image.NewNRGBA(image.Rect(0, 0, TileWidth, TileHeight))
	for i := 0; i < len(tile.Pix); i += 4 {
		tile.Pix[i] = r
		tile.Pix[i+1] = g
		tile.Pix[i+2] = b
		tile.Pix[i+3] = a
	}
	return tile
}

func TestCombineRecoversAlpha(t *testing.T) {
	tests := []struct {
		name  string
		dark  *image.NRGBA
		light *image.NRGBA
		want  [4]uint8
	}{
		{
			name:  "half transparent gray",
			dark:  fillTile(64, 64, 64, 255),
			light: fillTile(191, 191, 191, 255),
			want:  [4]uint8{128, 128, 128, 128},
		},
		{
			name:  "opaque pixel keeps its color",
			dark:  fillTile(10, 200, 30, 255),
			light: fillTile(10, 200, 30, 255),
			want:  [4]uint8{10, 200, 30, 255},
		},
		{
			name:  "fully transparent pixel",
			dark:  fillTile(0, 0, 0, 255),
			light: fillTile(255, 255, 255, 255),
			want:  [4]uint8{255, 255, 255, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			combined := Combine(tt.dark, tt.light)
			got := [4]uint8{combined.Pix[0], combined.Pix[1], combined.Pix[2], combined.Pix[3]}
			assert.Equal(t, tt.want, got)
			// Every pixel of a uniform input is identical.
			last := len(combined.Pix) - 4
			gotLast := [4]uint8{combined.Pix[last], combined.Pix[last+1], combined.Pix[last+2], combined.Pix[last+3]}
			assert.Equal(t, tt.want, gotLast)
		})
	}
}

func TestPackGrid(t *testing.T) {
	// 10 tiles pack into 4 columns and 3 rows.
	images := make([][]byte, 10)
	for i := range images {
		images[i] = fillTile(uint8(i), 0, 0, 255).Pix
	}

	atlas, tiles := pack(images)

	assert.Equal(t, 4, tiles.Columns())
	assert.Equal(t, 10, tiles.TileCount)
	assert.Equal(t, 128, tiles.Width)
	assert.Equal(t, 96, tiles.Height)
	assert.Equal(t, tiles.Width, atlas.Bounds().Dx())
	assert.Equal(t, tiles.Height, atlas.Bounds().Dy())

	// Tile 7 sits at pixel (96, 32).
	x, y := model.NewIcon(7).Position(tiles)
	require.Equal(t, 96, x)
	require.Equal(t, 32, y)
	offset := (y*tiles.Width + x) * 4
	assert.Equal(t, uint8(7), atlas.Pix[offset])

	// The cell after the last tile stays empty.
	x, y = model.NewIcon(11).Position(tiles)
	offset = (y*tiles.Width + x) * 4
	assert.Equal(t, uint8(0), atlas.Pix[offset+3])
}

func writeRender(t *testing.T, dir, category, name string, img *image.NRGBA) {
	t.Helper()
	for _, shade := range []string{"dark", "light"} {
		path := filepath.Join(dir, shade, category)
		require.NoError(t, os.MkdirAll(path, 0o755))
		f, err := os.Create(filepath.Join(path, name+".png"))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}
}

func testBuilder() (*symbol.Table, *Builder) {
	table := symbol.NewTable()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return table, NewBuilder(table, logger)
}

func TestBuildDeduplicatesAcrossCategories(t *testing.T) {
	table, b := testBuilder()
	dir := t.TempDir()

	gd := model.NewGameData()
	alpha := model.ItemID(table.Intern("alpha"))
	beta := model.ItemID(table.Intern("beta"))
	water := model.FluidID(table.Intern("water"))
	gd.Items[alpha] = model.Item{ID: alpha}
	gd.Items[beta] = model.Item{ID: beta}
	gd.Fluids[water] = model.Fluid{ID: water}

	// Identical dark and light renders decode to an opaque tile, so the
	// combined content equals the source color. The water render repeats
	// the alpha content exactly and must share its atlas slot.
	writeRender(t, dir, "items", "alpha", fillTile(10, 20, 30, 255))
	writeRender(t, dir, "items", "beta", fillTile(40, 50, 60, 255))
	writeRender(t, dir, "fluids", "water", fillTile(10, 20, 30, 255))

	atlas, err := b.Build(gd, dir)
	require.NoError(t, err)

	assert.Equal(t, 2, atlas.Tiles.TileCount)
	assert.Equal(t, atlas.Slots[alpha.Ref()], atlas.Slots[water.Ref()])
	assert.NotEqual(t, atlas.Slots[alpha.Ref()], atlas.Slots[beta.Ref()])

	// Slot order follows identifier text: alpha before beta.
	assert.Equal(t, 0, atlas.Slots[alpha.Ref()].Index())
	assert.Equal(t, 1, atlas.Slots[beta.Ref()].Index())

	require.NoError(t, b.Apply(gd, atlas))
	require.NotNil(t, gd.Tiles)
	assert.Equal(t, 2, gd.Tiles.TileCount)
	assert.Equal(t, atlas.Slots[beta.Ref()], gd.Items[beta].Metadata.Icon)
}

func TestBuildDimensionMismatch(t *testing.T) {
	table, b := testBuilder()
	dir := t.TempDir()

	gd := model.NewGameData()
	id := model.ItemID(table.Intern("alpha"))
	gd.Items[id] = model.Item{ID: id}

	small := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for _, shade := range []string{"dark", "light"} {
		path := filepath.Join(dir, shade, "items")
		require.NoError(t, os.MkdirAll(path, 0o755))
		f, err := os.Create(filepath.Join(path, "alpha.png"))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, small))
		require.NoError(t, f.Close())
	}

	_, err := b.Build(gd, dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrImageDimension)
}

func TestBuildEmptyModel(t *testing.T) {
	_, b := testBuilder()

	_, err := b.Build(model.NewGameData(), t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyDataSet)
}

func TestEncodePNGRoundTrip(t *testing.T) {
	images := [][]byte{fillTile(1, 2, 3, 255).Pix}
	img, tiles := pack(images)
	atlas := &Atlas{Image: img, Tiles: tiles}

	data, err := atlas.EncodePNG()
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 32, decoded.Bounds().Dx())
	assert.Equal(t, 32, decoded.Bounds().Dy())
}

package model

// Icon is an entity's slot in the icon atlas, stored as a 1-based dense
// index so the zero value can mean "no icon assigned yet".
type Icon uint32

// NewIcon wraps a 0-based atlas index.
func NewIcon(index int) Icon {
	return Icon(index + 1)
}

// Valid reports whether an icon has been assigned.
func (i Icon) Valid() bool {
	return i != 0
}

// Index returns the 0-based atlas index.
func (i Icon) Index() int {
	return int(i) - 1
}

// Position returns the top-left pixel of the icon's tile in the atlas.
func (i Icon) Position(tiles TileMetadata) (x, y int) {
	columns := tiles.Columns()
	idx := i.Index()
	return (idx % columns) * tiles.TileWidth, (idx / columns) * tiles.TileHeight
}

// TileMetadata describes the geometry of the generated icon atlas.
type TileMetadata struct {
	TileWidth  int
	TileHeight int

	// TileCount is the number of distinct tiles packed into the atlas.
	TileCount int

	// Width and Height are the atlas pixel dimensions.
	Width  int
	Height int
}

// Columns returns the number of tiles per atlas row.
func (tm TileMetadata) Columns() int {
	return tm.Width / tm.TileWidth
}

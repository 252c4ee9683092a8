package world

type TileType uint8

const (
	Grass TileType = iota
	Water
	Sand
	StoneSand
	FarmLand
	WetLand
	Asphalt
	Salt
	Wood
	Concrete
	Granite
	numTileTypes
)

// Tile is one terrain cell. Coords holds the global tile cell in X and Y and
// the terrain height in Z.
type Tile struct {
	Coords   CCoords
	Index    uint32
	Size     CCoords
	Type     TileType
	Holds    *Entity
	Designed *TileType
}

func NewTile(c CCoords, index uint32, tileSize int, typ TileType) Tile {
	s := int32(tileSize)
	return Tile{
		Coords: c,
		Index:  index,
		Size:   CCoords{X: s, Y: s, Z: s},
		Type:   typ,
	}
}

func (t *Tile) clone() Tile {
	c := *t
	if t.Holds != nil {
		h := t.Holds.clone()
		c.Holds = &h
	}
	if t.Designed != nil {
		d := *t.Designed
		c.Designed = &d
	}
	return c
}

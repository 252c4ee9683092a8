package world

import "math"

// Floored is a position component that compares by its floored integer value.
// Two positions are equal when they fall in the same discrete cell; migration
// detection relies on this.
type Floored float32

func (f Floored) Int() int32 {
	return int32(math.Floor(float64(f)))
}

func (f Floored) Float() float32 {
	return float32(f)
}

func (f Floored) Equal(o Floored) bool {
	return f.Int() == o.Int()
}

// Coords is a continuous position in world units.
type Coords struct {
	X, Y, Z Floored
}

func NewCoords(x, y, z float32) Coords {
	return Coords{X: Floored(x), Y: Floored(y), Z: Floored(z)}
}

func (c Coords) Equal(o Coords) bool {
	return c.X.Equal(o.X) && c.Y.Equal(o.Y) && c.Z.Equal(o.Z)
}

// Key is the hashable form of c. Coords that are Equal have the same Key.
func (c Coords) Key() CCoords {
	return CCoords{X: c.X.Int(), Y: c.Y.Int(), Z: c.Z.Int()}
}

// Dist is the planar distance between two positions.
func (c Coords) Dist(o Coords) float64 {
	dx := float64(c.X - o.X)
	dy := float64(c.Y - o.Y)
	return math.Hypot(dx, dy)
}

// Tile returns the global tile cell containing c.
func (c Coords) Tile(tileSize int) (int32, int32) {
	ts := Floored(tileSize)
	return (c.X / ts).Int(), (c.Y / ts).Int()
}

// Snap moves c onto the origin corner of its tile. Z is kept.
func (c Coords) Snap(tileSize int) Coords {
	tx, ty := c.Tile(tileSize)
	return Coords{
		X: Floored(tx * int32(tileSize)),
		Y: Floored(ty * int32(tileSize)),
		Z: c.Z,
	}
}

// CCoords is an integer grid position: chunk indices, or tile cells with a height.
type CCoords struct {
	X, Y, Z int32
}

// Vec3 is a velocity.
type Vec3 struct {
	X, Y, Z float32
}

// heading decomposes an angle pair into a launch velocity: ang steers the
// horizontal direction, traj scales the vertical lift.
func heading(ang, traj float32, speed, lift float64) Vec3 {
	a := float64(ang)
	return Vec3{
		X: float32(math.Sin(a) * speed),
		Y: float32(-math.Cos(a) * speed),
		Z: float32(math.Cos(float64(traj)) * lift),
	}
}

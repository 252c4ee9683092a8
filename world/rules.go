package world

import "time"

// Rules holds the world geometry and the tuned simulation constants.
type Rules struct {
	WorldSize int // chunks per side
	ChunkSize int // tiles per chunk side
	TileSize  int // world units per tile side

	VicinityDist    float64 // interaction radius in world units
	Gravity         float32 // subtracted from a shell's vertical velocity per step
	ShellSpeed      float64
	ShellLift       float64
	ExplosionDecay  int32 // health an explosion loses per step
	ExplosionDamage int32 // health lost per step near an explosion
	FightThreshold  uint8 // aggression above which a victim starts fighting back
	FightRoll       int   // damage roll is strength * [0, FightRoll)
	CannonPeriod    int64 // cannons fire when wall-clock millis % CannonPeriod == 0
}

func DefaultRules() Rules {
	return Rules{
		WorldSize:       64,
		ChunkSize:       16,
		TileSize:        16,
		VicinityDist:    32,
		Gravity:         0.0064,
		ShellSpeed:      1.0,
		ShellLift:       0.5,
		ExplosionDecay:  16,
		ExplosionDamage: 50,
		FightThreshold:  25,
		FightRoll:       10,
		CannonPeriod:    256,
	}
}

// ChunkOf converts a continuous position into the chunk grid.
func (r *Rules) ChunkOf(c Coords) CCoords {
	span := Floored(r.TileSize * r.ChunkSize)
	return CCoords{X: (c.X / span).Int(), Y: (c.Y / span).Int()}
}

func (r *Rules) InBounds(cc CCoords) bool {
	n := int32(r.WorldSize)
	return cc.X >= 0 && cc.Y >= 0 && cc.X < n && cc.Y < n
}

// Env is what entity and chunk resolution need from the world they run in.
type Env struct {
	Rules *Rules
	IDs   *IDAllocator
	// Roll returns a value in [0, n). It must be safe for concurrent use.
	Roll func(n int) int
	Now  func() time.Time
}

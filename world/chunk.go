package world

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// Chunk is a square block of tiles together with the entities standing on it.
type Chunk struct {
	Tiles    []Tile
	Entities []Entity
	Coords   CCoords
	Index    uint32
	Hash     uint64
	Timezone uint8
	// Observed gates simulation: only chunks a client asked about since the
	// previous tick are resolved.
	Observed bool
}

func NewChunk(coords CCoords, index uint32, timezone uint8) *Chunk {
	return &Chunk{Coords: coords, Index: index, Timezone: timezone}
}

// Rehash recomputes the content fingerprint from the tiles and entities.
func (c *Chunk) Rehash() {
	h, _ := blake2b.New256(nil)
	h.Write(appendTiles(nil, c.Tiles))
	h.Write(appendEntities(nil, c.Entities))
	c.Hash = binary.LittleEndian.Uint64(h.Sum(nil)[:8])
}

// TileAt returns the tile at the global tile cell (tx, ty), or nil when the
// cell is not in this chunk.
func (c *Chunk) TileAt(tx, ty int32, chunkSize int) *Tile {
	n := int32(chunkSize)
	lx, ly := tx-c.Coords.X*n, ty-c.Coords.Y*n
	if lx < 0 || ly < 0 || lx >= n || ly >= n {
		return nil
	}
	i := int(ly*n + lx)
	if i >= len(c.Tiles) {
		return nil
	}
	if t := &c.Tiles[i]; t.Coords.X == tx && t.Coords.Y == ty {
		return t
	}
	// Tiles out of row-major order; fall back to a scan.
	for i := range c.Tiles {
		if t := &c.Tiles[i]; t.Coords.X == tx && t.Coords.Y == ty {
			return t
		}
	}
	return nil
}

// Find returns the entity with the given index, or nil.
func (c *Chunk) Find(id EntityID) *Entity {
	for i := range c.Entities {
		if c.Entities[i].Index == id {
			return &c.Entities[i]
		}
	}
	return nil
}

// upsert overwrites the entity with e's index, or appends e.
func (c *Chunk) upsert(e Entity) {
	if existing := c.Find(e.Index); existing != nil {
		*existing = e
		return
	}
	c.Entities = append(c.Entities, e)
}

func (c *Chunk) remove(id EntityID) bool {
	for i := range c.Entities {
		if c.Entities[i].Index == id {
			c.Entities = append(c.Entities[:i], c.Entities[i+1:]...)
			return true
		}
	}
	return false
}

// Resolve runs steps integration steps over the chunk and returns the
// entities that left it. Unobserved chunks are left untouched.
func (c *Chunk) Resolve(steps int, env *Env) []Entity {
	if !c.Observed {
		return nil
	}
	var leftovers []Entity
	for i := 0; i < steps; i++ {
		c.Rehash()
		leftovers = append(leftovers, c.step(env)...)
	}
	return leftovers
}

func (c *Chunk) step(env *Env) []Entity {
	r := env.Rules

	// O(n²): chunks hold tens of entities, not thousands.
	before := make([]Entity, len(c.Entities))
	copy(before, c.Entities)
	for i := range c.Entities {
		for j := range before {
			if i != j {
				c.Entities[i].ResolveAgainst(&before[j], env)
			}
		}
	}

	var spawned []Entity
	for i := range c.Entities {
		e := &c.Entities[i]
		e.Resolve(env)
		if e.Tasks.Fire {
			spawned = append(spawned, e.launchShell(env))
			e.Tasks.Fire = false
		}
		if e.CCoords.X != c.Coords.X || e.CCoords.Y != c.Coords.Y {
			e.Tasks.Migrate = true
		}
	}

	for i := range c.Entities {
		e := &c.Entities[i]
		switch e.Type {
		case Landmine:
			if e.Stats.Health <= 0 {
				spawned = append(spawned, NewExplosion(env.IDs.Next(), e.Coords, r))
			}
		case Shell:
			tx, ty := e.Coords.Tile(r.TileSize)
			t := c.TileAt(tx, ty, r.ChunkSize)
			if t != nil && e.Stats.Health > 0 && e.Coords.Z.Int() < t.Coords.Z {
				e.Stats.Health = -1
				t.Coords.Z--
				spawned = append(spawned, NewExplosion(env.IDs.Next(), e.Coords, r))
			}
		}
	}

	kept := make([]Entity, 0, len(c.Entities)+len(spawned))
	var leftovers []Entity
	for _, e := range c.Entities {
		switch {
		case e.Stats.Health <= 0:
			// Removal wins over migration.
		case e.Tasks.Migrate:
			e.Tasks.Migrate = false
			leftovers = append(leftovers, e)
		default:
			kept = append(kept, e)
		}
	}
	c.Entities = append(kept, spawned...)
	return leftovers
}

// Clone returns a deep copy of c.
func (c *Chunk) Clone() *Chunk {
	out := *c
	out.Tiles = make([]Tile, len(c.Tiles))
	for i := range c.Tiles {
		out.Tiles[i] = c.Tiles[i].clone()
	}
	out.Entities = make([]Entity, len(c.Entities))
	for i := range c.Entities {
		out.Entities[i] = c.Entities[i].clone()
	}
	return &out
}

package worldgen

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"math/rand/v2"
	"os"
	"runtime"

	"github.com/eikrt/dimensioner/world"
	"golang.org/x/sync/errgroup"
)

const (
	noiseScale = 32.0
	// Amplitude of each noise octave.
	octaveAmp = 2.0

	shackChance  = 1000 // one in shackChance tiles starts a shack
	shackSpan    = 9    // tiles a shack plot needs per side
	plantChance  = 64
	npcChance    = 8
	sickChance   = 4
	cattleChance = 8
)

// LoadHeightmap decodes a GIF, PNG or JPEG heightmap.
func LoadHeightmap(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode heightmap %s: %w", path, err)
	}
	return img, nil
}

// Generate builds a populated world. The same seed and heightmap always give
// the same terrain and entity placement; entity stats are rolled.
//
// heightmap may be nil, in which case height comes from noise. Otherwise the
// image is stretched over the whole world and pixels with a zero green channel
// become water.
func Generate(seed uint32, rules world.Rules, heightmap image.Image) *world.World {
	n := rules.WorldSize
	chunks := make([]*world.Chunk, n*n)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range chunks {
		g.Go(func() error {
			x, y := int32(i%n), int32(i/n)
			c := world.NewChunk(world.CCoords{X: x, Y: y}, uint32(i), uint8((n-int(x))/10))
			gen := &chunkGen{
				seed:      seed,
				rules:     &rules,
				heightmap: heightmap,
				rng:       rand.New(rand.NewPCG(uint64(seed), uint64(i))),
				chunk:     c,
			}
			gen.run()
			chunks[i] = c
			return nil
		})
	}
	_ = g.Wait()

	// Ids are handed out after the parallel pass so they do not depend on
	// scheduling.
	ids := world.NewIDAllocator()
	for _, c := range chunks {
		for i := range c.Entities {
			c.Entities[i].Index = ids.Next()
		}
		c.Rehash()
	}
	return world.NewWorld(chunks, rules)
}

type chunkGen struct {
	seed      uint32
	rules     *world.Rules
	heightmap image.Image
	rng       *rand.Rand
	chunk     *world.Chunk
}

func (g *chunkGen) run() {
	faction := g.faction()
	n := int32(g.rules.ChunkSize)
	c := g.chunk
	for i := int32(0); i < n*n; i++ {
		x := c.Coords.X*n + i%n
		y := c.Coords.Y*n + i/n
		h := g.height(x, y)
		typ := world.Sand
		if h < 0 {
			typ = world.Water
		}
		c.Tiles = append(c.Tiles, world.NewTile(world.CCoords{X: x, Y: y, Z: h}, uint32(i), g.rules.TileSize, typ))
		if h >= 0 {
			g.desertPlants(x, y, h)
		}
	}
	for range c.Tiles {
		if g.rng.IntN(shackChance) == 1 && g.shack(faction) {
			break
		}
	}
}

// faction picks who settles the chunk from low-frequency noise.
func (g *chunkGen) faction() world.Faction {
	f := valueNoise(g.seed^0x5bd1e995, float64(g.chunk.Coords.X)+0.1, float64(g.chunk.Coords.Y)+0.1)
	switch {
	case f > 0 && f < 0.2:
		return world.Worm
	case f >= 0.2 && f < 0.5:
		return world.Irregular
	}
	return world.NoFaction
}

func (g *chunkGen) height(x, y int32) int32 {
	if g.heightmap != nil {
		b := g.heightmap.Bounds()
		span := g.rules.WorldSize * g.rules.ChunkSize
		px := b.Min.X + int(x)*b.Dx()/span
		py := b.Min.Y + int(y)*b.Dy()/span
		if _, green, _, _ := g.heightmap.At(px, py).RGBA(); green == 0 {
			return -1
		}
		return 1
	}
	fx, fy := float64(x), float64(y)
	h := valueNoise(g.seed, fx/noiseScale+0.1, fy/noiseScale+0.1)*octaveAmp +
		valueNoise(g.seed+1, fx/noiseScale*2+0.1, fy/noiseScale*2+0.1)*octaveAmp +
		valueNoise(g.seed+2, fx/(noiseScale*8)+0.1, fy/(noiseScale*8)+0.1)*octaveAmp +
		g.rng.Float64()*1.5 - 0.5
	return int32(math.Floor(h))
}

func (g *chunkGen) at(x, y, h int32) world.Coords {
	ts := float32(g.rules.TileSize)
	return world.NewCoords(float32(x)*ts, float32(y)*ts, float32(h))
}

func (g *chunkGen) desertPlants(x, y, h int32) {
	c := g.chunk
	if g.rng.IntN(plantChance) == 1 {
		e := world.NewEntity(0, g.at(x, y, h), world.Cactus, g.rules)
		e.Name = ""
		e.Stats = world.PlantStats(false)
		e.Parts = []world.BodyPart{{Type: world.Stem, Health: 100}, {Type: world.Areoles, Health: 100}}
		c.Entities = append(c.Entities, e)
	}
	if g.rng.IntN(plantChance) == 1 {
		e := world.NewEntity(0, g.at(x, y, h), world.Tumbleweed, g.rules)
		e.Name = ""
		e.Stats = world.PlantStats(false)
		e.Parts = []world.BodyPart{{Type: world.Stem, Health: 100}, {Type: world.Flower, Health: 100}}
		c.Entities = append(c.Entities, e)
	}
}

// shack lays out a house, a field of sick crops and a pasture on a 9x9 plot.
// It reports false when the plot is blocked.
func (g *chunkGen) shack(faction world.Faction) bool {
	n := int32(g.rules.ChunkSize)
	start := n / 8
	if start+shackSpan > n {
		return false
	}
	tile := func(x, y int32) *world.Tile {
		return &g.chunk.Tiles[y*n+x]
	}
	for y := start; y < start+8; y++ {
		for x := start; x < start+8; x++ {
			switch tile(x, y).Type {
			case world.Concrete, world.Water, world.FarmLand:
				return false
			}
		}
	}

	c := g.chunk
	plot := func(x0, y0 int32, typ world.TileType, chance int, spawn func(world.Coords) world.Entity) {
		for y := y0; y < y0+4; y++ {
			for x := x0; x < x0+4; x++ {
				t := tile(x, y)
				if g.rng.IntN(chance) == 1 {
					c.Entities = append(c.Entities, spawn(g.at(t.Coords.X, t.Coords.Y, t.Coords.Z)))
				}
				t.Type = typ
			}
		}
	}
	plot(start, start, world.Concrete, npcChance, func(at world.Coords) world.Entity {
		return world.NewNPC(0, at, faction, g.rules)
	})
	plot(start+5, start, world.FarmLand, sickChance, func(at world.Coords) world.Entity {
		return world.NewSickPlant(0, at, g.rules)
	})
	plot(start+5, start+5, world.Grass, cattleChance, func(at world.Coords) world.Entity {
		return world.NewCattle(0, at, g.rules)
	})
	return true
}

package world

import (
	"errors"
	"math/rand/v2"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

var ErrOutOfBounds = errors.New("chunk coordinates out of bounds")

// ownerSweepInterval is how many ticks pass between rebuilds of the owner index.
const ownerSweepInterval = 4096

// World is the full chunk grid plus the tick counter. It does no locking of
// its own; callers serialize access.
type World struct {
	Chunks []*Chunk
	Time   uint64

	rules Rules
	env   Env
	// owners remembers which chunk an entity was last inserted into so a
	// relocated entity never leaves a stale copy behind. Entries may be stale.
	owners map[EntityID]int
}

// NewWorld wraps a generated grid. chunks must hold WorldSize² chunks with
// chunk (x, y) at index y*WorldSize+x.
func NewWorld(chunks []*Chunk, rules Rules) *World {
	w := &World{
		Chunks: chunks,
		rules:  rules,
	}
	w.env = Env{
		Rules: &w.rules,
		IDs:   NewIDAllocator(),
		Roll:  rand.IntN,
		Now:   time.Now,
	}
	w.rebuildOwners()
	return w
}

// NewEmptyWorld builds a grid of bare chunks with no tiles.
func NewEmptyWorld(rules Rules) *World {
	n := rules.WorldSize
	chunks := make([]*Chunk, 0, n*n)
	for i := 0; i < n*n; i++ {
		chunks = append(chunks, NewChunk(CCoords{X: int32(i % n), Y: int32(i / n)}, uint32(i), 0))
	}
	return NewWorld(chunks, rules)
}

func (w *World) Rules() *Rules {
	return &w.rules
}

func (w *World) Env() *Env {
	return &w.env
}

// SetRoll replaces the random source used by fight rolls.
func (w *World) SetRoll(roll func(n int) int) {
	w.env.Roll = roll
}

// SetClock replaces the wall clock used by cannons.
func (w *World) SetClock(now func() time.Time) {
	w.env.Now = now
}

func (w *World) index(cc CCoords) (int, bool) {
	if !w.rules.InBounds(cc) {
		return 0, false
	}
	return int(cc.Y)*w.rules.WorldSize + int(cc.X), true
}

func (w *World) ChunkAt(cc CCoords) (*Chunk, error) {
	i, ok := w.index(cc)
	if !ok {
		return nil, ErrOutOfBounds
	}
	return w.Chunks[i], nil
}

// FetchChunk returns the chunk at cc, or the origin chunk when cc is outside the world.
func (w *World) FetchChunk(cc CCoords) *Chunk {
	if c, err := w.ChunkAt(cc); err == nil {
		return c
	}
	return w.Chunks[0]
}

// Observe marks the chunk at cc for simulation on the next tick.
func (w *World) Observe(cc CCoords) bool {
	c, err := w.ChunkAt(cc)
	if err != nil {
		return false
	}
	c.Observed = true
	return true
}

// UpdateChunkWithEntity stores e in the chunk covering its position,
// overwriting any entity with the same index there. Entities outside the
// world are dropped.
func (w *World) UpdateChunkWithEntity(e Entity) bool {
	e.CCoords = w.rules.ChunkOf(e.Coords)
	i, ok := w.index(e.CCoords)
	if !ok {
		return false
	}
	if prev, ok := w.owners[e.Index]; ok && prev != i {
		w.Chunks[prev].remove(e.Index)
	}
	c := w.Chunks[i]
	c.Observed = true
	c.upsert(e)
	w.owners[e.Index] = i
	return true
}

// Resolve ticks every observed chunk in parallel, then re-homes entities that
// crossed a chunk border.
func (w *World) Resolve(steps int) {
	w.Time += uint64(steps)

	var active []int
	for i, c := range w.Chunks {
		if c.Observed {
			active = append(active, i)
		}
	}

	leftovers := make([][]Entity, len(active))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for n, i := range active {
		g.Go(func() error {
			c := w.Chunks[i]
			leftovers[n] = c.Resolve(steps, &w.env)
			c.Observed = false
			return nil
		})
	}
	_ = g.Wait()

	// Shells and explosions spawned this tick are only known to their chunk.
	for _, i := range active {
		for _, e := range w.Chunks[i].Entities {
			w.owners[e.Index] = i
		}
	}
	for _, los := range leftovers {
		for _, e := range los {
			w.UpdateChunkWithEntity(e)
		}
	}

	if w.Time%ownerSweepInterval < uint64(steps) {
		w.rebuildOwners()
	}
}

// ResolveBetween is where effects spanning chunk borders belong, such as a
// blast reaching into the neighbouring chunk. Nothing crosses yet.
func (w *World) ResolveBetween(steps int) {}

func (w *World) rebuildOwners() {
	w.owners = make(map[EntityID]int)
	for i, c := range w.Chunks {
		for _, e := range c.Entities {
			w.owners[e.Index] = i
			w.env.IDs.Reserve(e.Index)
		}
	}
}

// ForEachEntity calls fn with every entity and the chunk holding it.
func (w *World) ForEachEntity(fn func(*Chunk, *Entity)) {
	for _, c := range w.Chunks {
		for i := range c.Entities {
			fn(c, &c.Entities[i])
		}
	}
}

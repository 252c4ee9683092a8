package server

import (
	"strconv"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/eikrt/dimensioner/world"
)

// A frame is only reusable within the tick that encoded it.
const frameTTL = 2 * time.Second

// frameCache keeps encoded chunks so clients polling the same chunk in one
// tick share one encoding. A nil cache encodes every time.
type frameCache struct {
	cache *ristretto.Cache[string, []byte]
}

func newFrameCache(maxCost int64) (*frameCache, error) {
	if maxCost <= 0 {
		return &frameCache{}, nil
	}
	cache, err := ristretto.NewCache[string, []byte](&ristretto.Config[string, []byte]{
		NumCounters: 100000,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &frameCache{cache: cache}, nil
}

// frameKey covers every encoded field that can change within a tick. Observed
// flips when another client asks for the chunk, without a rehash.
func frameKey(c *world.Chunk, tick uint64) string {
	return strconv.FormatUint(uint64(c.Index), 10) + "|" +
		strconv.FormatUint(tick, 10) + "|" +
		strconv.FormatUint(c.Hash, 16) + "|" +
		strconv.FormatBool(c.Observed)
}

func (f *frameCache) encode(c *world.Chunk, tick uint64) ([]byte, error) {
	if f.cache == nil {
		return c.MarshalBinary()
	}
	key := frameKey(c, tick)
	if b, ok := f.cache.Get(key); ok {
		return b, nil
	}
	b, err := c.MarshalBinary()
	if err != nil {
		return nil, err
	}
	f.cache.SetWithTTL(key, b, int64(len(b)), frameTTL)
	return b, nil
}

func (f *frameCache) close() {
	if f.cache != nil {
		f.cache.Close()
	}
}

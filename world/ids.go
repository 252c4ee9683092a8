package world

import "sync/atomic"

// EntityID identifies an entity. Uniqueness is only guaranteed for ids handed
// out by an IDAllocator; clients pick their own avatar ids.
type EntityID uint64

// allocatorBase keeps allocated ids clear of client-chosen avatar ids.
const allocatorBase EntityID = 1 << 32

// IDAllocator hands out monotonically increasing entity ids. Safe for
// concurrent use, chunks resolving in parallel share one.
type IDAllocator struct {
	next atomic.Uint64
}

func NewIDAllocator() *IDAllocator {
	a := &IDAllocator{}
	a.next.Store(uint64(allocatorBase))
	return a
}

func (a *IDAllocator) Next() EntityID {
	return EntityID(a.next.Add(1) - 1)
}

// Issued reports whether id came from this allocator.
func (a *IDAllocator) Issued(id EntityID) bool {
	return id >= allocatorBase && uint64(id) < a.next.Load()
}

// Reserve makes sure id is never handed out.
func (a *IDAllocator) Reserve(id EntityID) {
	for {
		cur := a.next.Load()
		if uint64(id) < cur {
			return
		}
		if a.next.CompareAndSwap(cur, uint64(id)+1) {
			return
		}
	}
}

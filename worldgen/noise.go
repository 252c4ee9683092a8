package worldgen

import "math"

// hash32 is a murmur-style finalizer. Output is stable across versions so a
// seed always produces the same world.
func hash32(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}

func hash2(seed uint32, x, y int32) uint32 {
	h := seed
	h ^= uint32(x) * 0x9e3779b1
	h ^= uint32(y) * 0x85ebca6b
	return hash32(h)
}

// lattice maps the hash of a grid point into [-1, 1].
func lattice(seed uint32, x, y int32) float64 {
	return float64(hash2(seed, x, y))/math.MaxUint32*2 - 1
}

func smoothstep(t float64) float64 {
	return t * t * (3 - 2*t)
}

// valueNoise samples smooth 2D value noise in [-1, 1]. Samples are taken at
// world positions so neighbouring chunks line up at their seams.
func valueNoise(seed uint32, x, y float64) float64 {
	fx, fy := math.Floor(x), math.Floor(y)
	ix, iy := int32(fx), int32(fy)
	tx, ty := smoothstep(x-fx), smoothstep(y-fy)

	a := lattice(seed, ix, iy)
	b := lattice(seed, ix+1, iy)
	c := lattice(seed, ix, iy+1)
	d := lattice(seed, ix+1, iy+1)

	top := a + (b-a)*tx
	bottom := c + (d-c)*tx
	return top + (bottom-top)*ty
}

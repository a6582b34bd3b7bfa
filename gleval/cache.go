package gleval

import (
	"slices"
	"sync"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// CachedSDF3 memoizes evaluations of an [SDF3] keyed by the exact bit pattern of
// each position. Meshing algorithms evaluate shared cell corners repeatedly and
// benefit the most. It is safe for concurrent use.
type CachedSDF3 struct {
	SDF     SDF3
	mu      sync.Mutex
	m       map[[3]uint32]float32
	posbuf  []ms3.Vec
	distbuf []float32
	idxbuf  []int
	hits    uint64
	evals   uint64
}

// CacheHits returns total amount of cached evaluations done throughout the SDF's lifetime.
func (c3 *CachedSDF3) CacheHits() uint64 {
	c3.mu.Lock()
	defer c3.mu.Unlock()
	return c3.hits
}

// Evaluations returns total evaluations performed successfully during sdf's lifetime, including cached.
func (c3 *CachedSDF3) Evaluations() uint64 {
	c3.mu.Lock()
	defer c3.mu.Unlock()
	return c3.evals
}

// Distance implements [Field] through the cache.
func (c3 *CachedSDF3) Distance(p ms3.Vec) float32 {
	var d [1]float32
	c3.Evaluate([]ms3.Vec{p}, d[:], nil)
	return d[0]
}

// Evaluate implements the [SDF3] interface with cached evaluation.
func (c3 *CachedSDF3) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	c3.mu.Lock()
	defer c3.mu.Unlock()
	if c3.m == nil {
		c3.m = make(map[[3]uint32]float32)
	}
	seekPos := c3.posbuf[:0]
	idx := c3.idxbuf[:0]
	for i, p := range pos {
		d, cached := c3.m[posKey(p)]
		if cached {
			dist[i] = d
		} else {
			seekPos = append(seekPos, p)
			idx = append(idx, i)
		}
	}
	if len(idx) > 0 {
		// Renew buffers in case they were grown.
		c3.idxbuf = idx
		c3.posbuf = seekPos
		c3.distbuf = slices.Grow(c3.distbuf[:0], len(seekPos))
		seekDist := c3.distbuf[:len(seekPos)]
		err := c3.SDF.Evaluate(seekPos, seekDist, userData)
		if err != nil {
			return err
		}
		for i, p := range seekPos {
			c3.m[posKey(p)] = seekDist[i]
		}
		for i, d := range seekDist {
			dist[idx[i]] = d
		}
	}
	c3.evals += uint64(len(dist))
	c3.hits += uint64(len(dist) - len(seekPos))
	return nil
}

// Bounds returns the SDF's bounding box such that all of the shape is contained within.
func (c3 *CachedSDF3) Bounds() ms3.Box {
	return c3.SDF.Bounds()
}

func posKey(p ms3.Vec) [3]uint32 {
	return [3]uint32{
		math32.Float32bits(p.X),
		math32.Float32bits(p.Y),
		math32.Float32bits(p.Z),
	}
}

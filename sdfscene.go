// Package sdfscene compiles ordered lists of typed geometric primitives into a single
// signed distance field. The field can be sphere traced by [gleval.Marcher],
// shaded by glrender, or emitted as GLSL by glbuild.
//
// Composition is a strict left fold: the first primitive seeds the accumulator and every
// following primitive is combined with the running result using its own [Op].
// Primitives of unknown kind are skipped by the fold whatever their operator; as the
// first primitive they seed the accumulator with [MissDistance].
package sdfscene

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

const (
	// MissDistance is the distance reported by empty scenes and unknown primitive kinds.
	// It is large enough that any raymarch overshoots its maximum distance on the first step.
	MissDistance = 1e20
	// DefaultBlendStrength is the smoothing radius given to primitives built with [NewPrimitive].
	DefaultBlendStrength = 0.1

	tribisect = 0.8660254037844386467637231707529361834714026269051903140279034897
	invsqrt3  = 0.5773502691896257645091487805019574556476017512701268760186023264
	twoPi     = 2 * math32.Pi
	// epstol is used to check for badly conditioned denominators
	// such as lengths used for normalization or scale factors.
	epstol = 6e-7
)

func minf(a, b float32) float32 {
	return math32.Min(a, b)
}

func maxf(a, b float32) float32 {
	return math32.Max(a, b)
}

func absf(a float32) float32 {
	return math32.Abs(a)
}

func hypotf(a, b float32) float32 {
	return math32.Hypot(a, b)
}

func signf(a float32) float32 {
	if a == 0 {
		return 0
	}
	return math32.Copysign(1, a)
}

func clampf(v, Min, Max float32) float32 {
	if v < Min {
		return Min
	} else if v > Max {
		return Max
	}
	return v
}

// mixf interpolates between x and y. The end points are returned verbatim
// so that infinite operands never produce 0*Inf.
func mixf(x, y, a float32) float32 {
	switch a {
	case 0:
		return x
	case 1:
		return y
	}
	return x*(1-a) + y*a
}

// modf is GLSL's mod: the result carries the sign of y.
func modf(x, y float32) float32 {
	return x - y*math32.Floor(x/y)
}

func finite(x float32) bool {
	return !math32.IsNaN(x) && !math32.IsInf(x, 0)
}

func fractf(x float32) float32 {
	f := x - math32.Floor(x)
	if f >= 1 {
		// Tiny negative inputs round up to 1 in float32.
		return 0
	}
	return f
}

func isInf(a float32) bool {
	return math32.IsInf(a, 0)
}

func maxcomp(v ms3.Vec) float32 {
	return maxf(v.X, maxf(v.Y, v.Z))
}

// fingerprint hashes the exact bit patterns of a primitive's structural fields.
// Two primitives with equal fingerprints compile to the same closure.
func fingerprint(p *Primitive) uint64 {
	h := fnv.New64a()
	var buf [4]byte
	putf := func(f float32) {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
		h.Write(buf[:])
	}
	putv := func(v ms3.Vec) {
		putf(v.X)
		putf(v.Y)
		putf(v.Z)
	}
	h.Write([]byte(p.Kind))
	h.Write([]byte{0})
	h.Write([]byte(p.Op))
	h.Write([]byte{0})
	h.Write([]byte(p.Material))
	h.Write([]byte{0})
	putf(p.BlendStrength)
	putv(p.Position)
	putv(p.Rotation)
	putv(p.Scale)
	binary.LittleEndian.PutUint32(buf[:], uint32(len(p.Params)))
	h.Write(buf[:])
	for _, v := range p.Params {
		putf(v)
	}
	if tb := p.Texture; tb != nil {
		for _, id := range [...]string{tb.Diffuse, tb.Normal, tb.Roughness, tb.Metallic, tb.Occlusion, tb.Emission} {
			h.Write([]byte(id))
			h.Write([]byte{0})
		}
		putf(tb.Tiling.X)
		putf(tb.Tiling.Y)
		putf(tb.Offset.X)
		putf(tb.Offset.Y)
	}
	return h.Sum64()
}

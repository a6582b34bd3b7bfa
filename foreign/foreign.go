// Package foreign attaches dependent primitives, foreign bodies, to a host
// primitive and flattens the assembly into one primitive list.
//
// Bodies are authored in the host's local frame. A body may be aligned so its
// canonical up axis follows the host surface normal, found by sphere tracing
// the host's own distance field.
package foreign

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chewxy/math32"
	"github.com/ebb-bloom/sdfscene"
	"github.com/ebb-bloom/sdfscene/gleval"
	"github.com/jinzhu/copier"
	"github.com/soypat/geometry/ms3"
)

// Up is the canonical axis of a body that surface alignment maps onto the surface normal.
var Up = ms3.Vec{Y: 1}

// DefaultSamples is the number of surface samples Flatten takes when a body needs them.
const DefaultSamples = 64

// Sample is a point on the host surface with its unit outward normal,
// both in the host's local frame.
type Sample struct {
	Position ms3.Vec
	Normal   ms3.Vec
}

// Body is a primitive attached to a host. The resolved transform of the body is
// host ∘ translate(Offset) ∘ rotate(Rotation) ∘ [surface alignment] ∘ primitive.
type Body struct {
	// Primitive is authored in the host's local frame.
	Primitive sdfscene.Primitive
	Offset    ms3.Vec
	// Rotation holds Euler angles in radians, see [sdfscene.EulerRotation].
	Rotation ms3.Vec
	// Align rotates the body's up axis onto the surface normal of the sample
	// nearest to the attachment point.
	Align bool
	// Anchor optionally selects a surface sample by index. The body is then
	// placed at the sample position plus Offset and, when Align is set, aligned
	// with that sample's normal instead of the nearest one.
	Anchor *int
}

// Host is a primitive acting as the parent frame of its bodies.
type Host struct {
	Primitive sdfscene.Primitive
	Bodies    []Body
}

// Sampler samples host surfaces and flattens hosts. The zero value is ready to use.
type Sampler struct {
	// Marcher traces sampling rays. Zero fields take gleval defaults;
	// the maximum distance is always the sampling radius.
	Marcher gleval.Marcher
	// Radius of the sphere sampling rays start from. Zero derives it from the host bounds.
	Radius float32
	// Samples taken by Flatten. Zero means DefaultSamples.
	Samples int
	// Compiler compiles host fields. Nil uses a compiler private to the
	// Sampler, created on first use.
	Compiler *sdfscene.Compiler

	once sync.Once
	own  *sdfscene.Compiler
}

// defaultSampler backs the package level functions so their diagnostics are
// reported once per process.
var defaultSampler Sampler

var errAnchorRange = errors.New("anchor index out of range")

// Flatten returns the host followed by every body, all in the host's parent space.
// Hosts without a surface leave aligned and anchored bodies with their attachment
// rotation and offset unchanged.
func Flatten(h Host) ([]sdfscene.Primitive, error) {
	return defaultSampler.Flatten(h)
}

// SurfaceSample returns up to n samples on the host surface using a default [Sampler].
func SurfaceSample(host sdfscene.Primitive, n int) ([]Sample, error) {
	return defaultSampler.SurfaceSample(host, n)
}

// Flatten is the [Sampler] version of the package level [Flatten].
func (s *Sampler) Flatten(h Host) ([]sdfscene.Primitive, error) {
	out := make([]sdfscene.Primitive, 0, 1+len(h.Bodies))
	host, err := clonePrimitive(h.Primitive)
	if err != nil {
		return nil, err
	}
	out = append(out, host)
	var samples []Sample
	for _, b := range h.Bodies {
		if b.Align || b.Anchor != nil {
			n := s.Samples
			if n <= 0 {
				n = DefaultSamples
			}
			samples, err = s.SurfaceSample(h.Primitive, n)
			if err != nil {
				return nil, err
			}
			break
		}
	}

	hostRot := sdfscene.EulerRotation(h.Primitive.Rotation)
	hostScale := h.Primitive.EffectiveScale()
	for i := range h.Bodies {
		b := &h.Bodies[i]
		child, err := clonePrimitive(b.Primitive)
		if err != nil {
			return nil, err
		}
		attach := b.Offset
		var normal ms3.Vec
		haveNormal := false
		if b.Anchor != nil && len(samples) > 0 {
			k := *b.Anchor
			if k < 0 || k >= len(samples) {
				return nil, fmt.Errorf("body %d: %w: %d not in [0,%d)", i, errAnchorRange, k, len(samples))
			}
			attach = ms3.Add(samples[k].Position, b.Offset)
			normal, haveNormal = samples[k].Normal, true
		} else if b.Align && len(samples) > 0 {
			normal, haveNormal = nearest(samples, attach).Normal, true
		}

		local := sdfscene.EulerRotation(b.Rotation)
		if b.Align && haveNormal {
			// Alignment is applied after the attachment rotation, so solve for the
			// rotation in the attachment frame that maps Up onto the normal.
			local = local.Mul(sdfscene.AlignRotation(Up, local.Transpose().Apply(normal)))
		}
		pos := ms3.Add(attach, local.Apply(child.Position))
		child.Position = ms3.Add(h.Primitive.Position, hostRot.Apply(ms3.MulElem(hostScale, pos)))
		child.Rotation = hostRot.Mul(local).Mul(sdfscene.EulerRotation(child.Rotation)).Euler()
		if hostScale != (ms3.Vec{X: 1, Y: 1, Z: 1}) || child.Scale != (ms3.Vec{}) {
			child.Scale = ms3.MulElem(hostScale, child.EffectiveScale())
		}
		out = append(out, child)
	}
	return out, nil
}

// SurfaceSample scatters n directions from the host's local origin with a golden
// angle spiral and sphere traces each one inwards from the sampling radius
// against the host's own field. Rays that find no surface are dropped, so
// hosts without a surface return an empty slice. Only the host's kind and
// parameters are used: samples are in the host's local frame.
func (s *Sampler) SurfaceSample(host sdfscene.Primitive, n int) ([]Sample, error) {
	if n <= 0 {
		return nil, nil
	}
	shape := sdfscene.NewPrimitive(host.Kind, host.Params...)
	field, err := s.compiler().Compile([]sdfscene.Primitive{shape})
	if err != nil {
		return nil, err
	}
	radius := s.Radius
	if radius <= 0 {
		radius = SamplingRadius(host.Kind, host.Params)
	}
	m := s.Marcher.WithDefaults()
	m.MaxDistance = radius

	pos := make([]ms3.Vec, 0, n)
	dirs := make([]ms3.Vec, 0, n)
	for i := 0; i < n; i++ {
		dir := fibonacciDir(i, n)
		inward := ms3.Scale(-1, dir)
		res := m.March(field, ms3.Scale(radius, dir), inward)
		if !res.Hit {
			continue
		}
		pos = append(pos, res.Position)
		dirs = append(dirs, inward)
	}
	if len(pos) == 0 {
		return nil, nil
	}
	grad := make([]ms3.Vec, len(pos))
	err = gleval.NormalsCentralDiff(field, pos, grad, 2*m.NormalEpsilon, nil)
	if err != nil {
		return nil, err
	}
	samples := make([]Sample, len(pos))
	for i := range pos {
		samples[i] = Sample{
			Position: pos[i],
			Normal:   gleval.UnitNormal(grad[i], m.NormalEpsilon, dirs[i]),
		}
	}
	return samples, nil
}

// SamplingRadius is the default radius sampling rays start from: the distance
// from the local origin to the farthest bounding box corner, enlarged by a quarter
// plus 0.1. Unbounded kinds use 10.
func SamplingRadius(kind sdfscene.Kind, params []float32) float32 {
	const unbounded = 10
	bb := sdfscene.Bounds(kind, params)
	far := ms3.Norm(ms3.MaxElem(ms3.AbsElem(bb.Min), ms3.AbsElem(bb.Max)))
	if math32.IsInf(far, 0) || math32.IsNaN(far) {
		return unbounded
	}
	return far*1.25 + 0.1
}

// golden angle in radians.
var golden = math32.Pi * (3 - math32.Sqrt(5))

// fibonacciDir returns the i'th of n unit directions spread over the sphere.
func (s *Sampler) compiler() *sdfscene.Compiler {
	if s.Compiler != nil {
		return s.Compiler
	}
	s.once.Do(func() { s.own = new(sdfscene.Compiler) })
	return s.own
}

func fibonacciDir(i, n int) ms3.Vec {
	y := 1 - 2*(float32(i)+0.5)/float32(n)
	r := math32.Sqrt(math32.Max(0, 1-y*y))
	s, c := math32.Sincos(golden * float32(i))
	return ms3.Vec{X: r * c, Y: y, Z: r * s}
}

func nearest(samples []Sample, p ms3.Vec) Sample {
	best := samples[0]
	bestDist := ms3.Norm(ms3.Sub(best.Position, p))
	for _, s := range samples[1:] {
		if d := ms3.Norm(ms3.Sub(s.Position, p)); d < bestDist {
			best, bestDist = s, d
		}
	}
	return best
}

func clonePrimitive(p sdfscene.Primitive) (sdfscene.Primitive, error) {
	var dst sdfscene.Primitive
	err := copier.CopyWithOption(&dst, &p, copier.Option{DeepCopy: true})
	return dst, err
}

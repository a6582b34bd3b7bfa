// Package gleval evaluates compiled signed distance fields: batch evaluation,
// finite difference normals, caching and sphere tracing.
package gleval

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// SDF3 implements a 3D signed distance field in vectorized form.
type SDF3 interface {
	// Evaluate evaluates the signed distance field over pos positions.
	// dist and pos must be of same length. Resulting distances are stored
	// in dist.
	//
	// userData facilitates getting data to the evaluators for use in processing.
	Evaluate(pos []ms3.Vec, dist []float32, userData any) error
	// Bounds returns the SDF's bounding box such that all of the shape is contained within.
	Bounds() ms3.Box
}

// Field is a signed distance field evaluated one point at a time.
// A compiled [sdfscene.Field] implements both Field and [SDF3].
type Field interface {
	Distance(p ms3.Vec) float32
}

// FieldFunc adapts a plain function to the [Field] interface.
type FieldFunc func(p ms3.Vec) float32

// Distance implements [Field].
func (f FieldFunc) Distance(p ms3.Vec) float32 { return f(p) }

var (
	errEmptyBuffers         = errors.New("empty buffers")
	errMismatchBufferLength = errors.New("position and distance buffer length mismatch")
)

// NormalsCentralDiff uses central differences algorithm for normal calculation, which are stored in normals for each position.
// The returned normals are not normalized (converted to unit length).
func NormalsCentralDiff(s SDF3, pos []ms3.Vec, normals []ms3.Vec, step float32, userData any) error {
	step *= 0.5
	if step <= 0 {
		return errors.New("invalid step")
	} else if len(pos) != len(normals) {
		return errors.New("length of position must match length of normals")
	} else if s == nil {
		return errors.New("nil SDF3")
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	d1 := make([]float32, len(pos))
	d2 := make([]float32, len(pos))
	auxPos := make([]ms3.Vec, len(pos))
	var vecs = [3]ms3.Vec{{X: step}, {Y: step}, {Z: step}}
	for dim := 0; dim < 3; dim++ {
		h := vecs[dim]
		for i, p := range pos {
			auxPos[i] = ms3.Add(p, h)
		}
		err := s.Evaluate(auxPos, d1, userData)
		if err != nil {
			return err
		}
		for i, p := range pos {
			auxPos[i] = ms3.Sub(p, h)
		}
		err = s.Evaluate(auxPos, d2, userData)
		if err != nil {
			return err
		}

		switch dim {
		case 0:
			for i, d := range d1 {
				normals[i].X = d - d2[i]
			}
		case 1:
			for i, d := range d1 {
				normals[i].Y = d - d2[i]
			}
		case 2:
			for i, d := range d1 {
				normals[i].Z = d - d2[i]
			}
		}
	}
	return nil
}

// centralDiff is the single point version of [NormalsCentralDiff] with half step h.
func centralDiff(f Field, p ms3.Vec, h float32) ms3.Vec {
	return ms3.Vec{
		X: f.Distance(ms3.Vec{X: p.X + h, Y: p.Y, Z: p.Z}) - f.Distance(ms3.Vec{X: p.X - h, Y: p.Y, Z: p.Z}),
		Y: f.Distance(ms3.Vec{X: p.X, Y: p.Y + h, Z: p.Z}) - f.Distance(ms3.Vec{X: p.X, Y: p.Y - h, Z: p.Z}),
		Z: f.Distance(ms3.Vec{X: p.X, Y: p.Y, Z: p.Z + h}) - f.Distance(ms3.Vec{X: p.X, Y: p.Y, Z: p.Z - h}),
	}
}

// UnitNormal normalizes a central difference gradient g computed with half step h.
// When the gradient is degenerate it returns the negated ray direction dir instead.
func UnitNormal(g ms3.Vec, h float32, dir ms3.Vec) ms3.Vec {
	n := ms3.Norm(g)
	// g approximates 2h*∇f, flag gradients far below unit magnitude.
	if !(n > 2*h*1e-4) || math32.IsInf(n, 0) {
		if dn := ms3.Norm(dir); dn > 0 {
			return ms3.Scale(-1/dn, dir)
		}
		return ms3.Vec{Z: 1}
	}
	return ms3.Scale(1/n, g)
}

package sdfscene

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// Rotation is a 3x3 orthonormal matrix stored by rows.
type Rotation [3]ms3.Vec

// IdentityRotation returns the rotation that leaves vectors unchanged.
func IdentityRotation() Rotation {
	return Rotation{{X: 1}, {Y: 1}, {Z: 1}}
}

// EulerRotation returns Rz*Ry*Rx for the Euler angles in e (radians).
// A vector is rotated about X first, then Y, then Z.
func EulerRotation(e ms3.Vec) Rotation {
	if e == (ms3.Vec{}) {
		return IdentityRotation()
	}
	sx, cx := math32.Sincos(e.X)
	sy, cy := math32.Sincos(e.Y)
	sz, cz := math32.Sincos(e.Z)
	return Rotation{
		{X: cz * cy, Y: cz*sy*sx - sz*cx, Z: cz*sy*cx + sz*sx},
		{X: sz * cy, Y: sz*sy*sx + cz*cx, Z: sz*sy*cx - cz*sx},
		{X: -sy, Y: cy * sx, Z: cy * cx},
	}
}

// Apply rotates v.
func (r Rotation) Apply(v ms3.Vec) ms3.Vec {
	return ms3.Vec{X: ms3.Dot(r[0], v), Y: ms3.Dot(r[1], v), Z: ms3.Dot(r[2], v)}
}

// Transpose returns the inverse rotation.
func (r Rotation) Transpose() Rotation {
	return Rotation{
		{X: r[0].X, Y: r[1].X, Z: r[2].X},
		{X: r[0].Y, Y: r[1].Y, Z: r[2].Y},
		{X: r[0].Z, Y: r[1].Z, Z: r[2].Z},
	}
}

// Mul returns the composition r*b, which applies b first and then r.
func (r Rotation) Mul(b Rotation) Rotation {
	bt := b.Transpose()
	var out Rotation
	for i := range r {
		out[i] = ms3.Vec{X: ms3.Dot(r[i], bt[0]), Y: ms3.Dot(r[i], bt[1]), Z: ms3.Dot(r[i], bt[2])}
	}
	return out
}

// Euler decomposes the rotation into angles accepted by [EulerRotation].
func (r Rotation) Euler() ms3.Vec {
	sy := clampf(-r[2].X, -1, 1)
	y := math32.Asin(sy)
	if absf(sy) < 1-1e-6 {
		return ms3.Vec{
			X: math32.Atan2(r[2].Y, r[2].Z),
			Y: y,
			Z: math32.Atan2(r[1].X, r[0].X),
		}
	}
	// Gimbal lock: X and Z rotate about the same axis, fold everything into Z.
	return ms3.Vec{Y: y, Z: math32.Atan2(-r[0].Y, r[1].Y)}
}

// AlignRotation returns the shortest rotation that maps direction from onto direction to.
// Both arguments need not be unit length. Antiparallel inputs rotate half a turn about
// an axis perpendicular to from.
func AlignRotation(from, to ms3.Vec) Rotation {
	a, b := ms3.Unit(from), ms3.Unit(to)
	c := ms3.Dot(a, b)
	switch {
	case c > 1-1e-6:
		return IdentityRotation()
	case c < -1+1e-6:
		axis := cross(a, ms3.Vec{X: 1})
		if ms3.Norm(axis) < 1e-3 {
			axis = cross(a, ms3.Vec{Z: 1})
		}
		axis = ms3.Unit(axis)
		// Half turn: R = 2*axis*axisᵀ - I.
		return Rotation{
			{X: 2*axis.X*axis.X - 1, Y: 2 * axis.X * axis.Y, Z: 2 * axis.X * axis.Z},
			{X: 2 * axis.Y * axis.X, Y: 2*axis.Y*axis.Y - 1, Z: 2 * axis.Y * axis.Z},
			{X: 2 * axis.Z * axis.X, Y: 2 * axis.Z * axis.Y, Z: 2*axis.Z*axis.Z - 1},
		}
	}
	v := cross(a, b)
	k := 1 / (1 + c)
	// Rodrigues: R = I + [v]x + [v]x² / (1+c).
	return Rotation{
		{X: 1 - k*(v.Y*v.Y+v.Z*v.Z), Y: -v.Z + k*v.X*v.Y, Z: v.Y + k*v.X*v.Z},
		{X: v.Z + k*v.X*v.Y, Y: 1 - k*(v.X*v.X+v.Z*v.Z), Z: -v.X + k*v.Y*v.Z},
		{X: -v.Y + k*v.X*v.Z, Y: v.X + k*v.Y*v.Z, Z: 1 - k*(v.X*v.X+v.Y*v.Y)},
	}
}

func cross(a, b ms3.Vec) ms3.Vec {
	return ms3.Vec{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

// frame is the precomputed inverse of a primitive's placement.
type frame struct {
	pos      ms3.Vec
	invRot   Rotation
	invScale ms3.Vec
	// comp rescales local distances back to parent units. For non-uniform scale
	// the smallest component is used, which keeps distances conservative but inexact.
	comp     float32
	identity bool
}

func newFrame(p *Primitive) frame {
	s := p.EffectiveScale()
	f := frame{
		pos:      p.Position,
		invRot:   EulerRotation(p.Rotation).Transpose(),
		invScale: ms3.Vec{X: 1 / s.X, Y: 1 / s.Y, Z: 1 / s.Z},
		comp:     minf(absf(s.X), minf(absf(s.Y), absf(s.Z))),
	}
	f.identity = p.Position == (ms3.Vec{}) && p.Rotation == (ms3.Vec{}) && s == ms3.Vec{X: 1, Y: 1, Z: 1}
	return f
}

func (f *frame) toLocal(p ms3.Vec) ms3.Vec {
	if f.identity {
		return p
	}
	return ms3.MulElem(f.invRot.Apply(ms3.Sub(p, f.pos)), f.invScale)
}

package gleval

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// Marcher sphere traces rays through a [Field]. A Marcher holds no state
// between calls: the same field, ray and parameters always produce the same [Result].
type Marcher struct {
	// HitEpsilon is the absolute distance under which a sample counts as a surface hit.
	HitEpsilon float32
	// MaxSteps caps the number of field samples per ray.
	MaxSteps int
	// MaxDistance is the distance along the ray past which the ray misses.
	MaxDistance float32
	// StepDamping in (0,1] scales every step to stay safe on fields whose
	// gradient exceeds unit magnitude.
	StepDamping float32
	// NormalEpsilon is the central difference half step used by [Marcher.Normal].
	NormalEpsilon float32
}

// DefaultMarcher returns the parameters used when none are configured.
func DefaultMarcher() Marcher {
	return Marcher{
		HitEpsilon:    1e-3,
		MaxSteps:      128,
		MaxDistance:   100,
		StepDamping:   0.9,
		NormalEpsilon: 1e-3,
	}
}

// Validate checks the marcher parameters.
func (m Marcher) Validate() error {
	switch {
	case !(m.HitEpsilon > 0):
		return fmt.Errorf("hit epsilon must be positive, got %g", m.HitEpsilon)
	case m.MaxSteps <= 0:
		return fmt.Errorf("max steps must be positive, got %d", m.MaxSteps)
	case !(m.MaxDistance > 0):
		return fmt.Errorf("max distance must be positive, got %g", m.MaxDistance)
	case !(m.StepDamping > 0 && m.StepDamping <= 1):
		return fmt.Errorf("step damping must be in (0,1], got %g", m.StepDamping)
	case !(m.NormalEpsilon > 0):
		return errors.New("normal epsilon must be positive")
	}
	return nil
}

// WithDefaults returns m with zero valued fields replaced by [DefaultMarcher]'s.
func (m Marcher) WithDefaults() Marcher {
	def := DefaultMarcher()
	if m.HitEpsilon == 0 {
		m.HitEpsilon = def.HitEpsilon
	}
	if m.MaxSteps == 0 {
		m.MaxSteps = def.MaxSteps
	}
	if m.MaxDistance == 0 {
		m.MaxDistance = def.MaxDistance
	}
	if m.StepDamping == 0 {
		m.StepDamping = def.StepDamping
	}
	if m.NormalEpsilon == 0 {
		m.NormalEpsilon = def.NormalEpsilon
	}
	return m
}

// Result is the terminal state of a raymarch.
type Result struct {
	// Hit is true when the ray reached a surface.
	Hit bool
	// T is the distance traveled along the ray. On a hit it is the distance to the surface.
	T float32
	// Steps is the number of field samples taken.
	Steps int
	// Position is origin + T*direction.
	Position ms3.Vec
}

// March traces the ray starting at origin along dir. The direction is normalized
// before marching. Starting at t=0, each step samples the field at origin+t*dir:
// a sample with magnitude below HitEpsilon is a hit, otherwise t advances by
// sample*StepDamping. The ray misses once t exceeds MaxDistance or MaxSteps samples were taken.
func (m Marcher) March(f Field, origin, dir ms3.Vec) Result {
	if n := ms3.Norm(dir); n > 0 && n != 1 {
		dir = ms3.Scale(1/n, dir)
	}
	var t float32
	for i := 0; i < m.MaxSteps; i++ {
		p := ms3.Add(origin, ms3.Scale(t, dir))
		d := f.Distance(p)
		if math32.Abs(d) < m.HitEpsilon {
			return Result{Hit: true, T: t, Steps: i + 1, Position: p}
		}
		t += d * m.StepDamping
		if t > m.MaxDistance || math32.IsNaN(t) {
			return Result{T: t, Steps: i + 1, Position: ms3.Add(origin, ms3.Scale(t, dir))}
		}
	}
	return Result{T: t, Steps: m.MaxSteps, Position: ms3.Add(origin, ms3.Scale(t, dir))}
}

// Normal estimates the unit surface normal at p with central differences.
// If the gradient vanishes the negated ray direction dir is returned so that
// shading never sees NaN.
func (m Marcher) Normal(f Field, p, dir ms3.Vec) ms3.Vec {
	h := m.NormalEpsilon
	if h <= 0 {
		h = DefaultMarcher().NormalEpsilon
	}
	return UnitNormal(centralDiff(f, p, h), h, dir)
}

package sdfscene

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// Kind names a shape in the primitive catalog. Kinds outside the catalog are
// representable so that content loaded from files can name shapes this
// package does not know; those evaluate to [MissDistance].
type Kind string

// Catalog kinds. Parameter layouts are documented next to each kind.
const (
	KindSphere         Kind = "sphere"          // radius
	KindBox            Kind = "box"             // half extents x, y, z
	KindRoundedBox     Kind = "rounded-box"     // half extents x, y, z, corner radius
	KindCylinder       Kind = "cylinder"        // half height, radius. Axis is Y.
	KindCappedCylinder Kind = "capped-cylinder" // half height, radius. Axis is Y.
	KindCone           Kind = "cone"            // sin(angle), cos(angle), height. Tip at origin, opening towards -Y.
	KindRoundCone      Kind = "round-cone"      // bottom radius, top radius, height along +Y
	KindPyramid        Kind = "pyramid"         // height over a unit square base
	KindTorus          Kind = "torus"           // major radius, minor radius. Lies on XZ plane.
	KindOctahedron     Kind = "octahedron"      // size
	KindHexPrism       Kind = "hex-prism"       // apothem, half length along Z
	KindTriPrism       Kind = "tri-prism"       // side, half length along Z
	KindCapsule        Kind = "capsule"         // end point x, y, z, radius. Starts at origin.
	KindEllipsoid      Kind = "ellipsoid"       // radii x, y, z
	KindPlane          Kind = "plane"           // normal x, y, z, offset
	KindSuperellipsoid Kind = "superellipsoid"  // east-west exponent, north-south exponent, size
	KindTorusKnot      Kind = "torus-knot"      // p winding, q winding, scale
	KindMengerSponge   Kind = "menger-sponge"   // half size
	KindGyroid         Kind = "gyroid"          // frequency scale, thickness
	KindPOrbital       Kind = "p-orbital"       // size
	KindDOrbital       Kind = "d-orbital"       // size
)

var kindOrder = []Kind{
	KindSphere, KindBox, KindRoundedBox, KindCylinder, KindCappedCylinder, KindCone,
	KindRoundCone, KindPyramid, KindTorus, KindOctahedron, KindHexPrism, KindTriPrism,
	KindCapsule, KindEllipsoid, KindPlane, KindSuperellipsoid, KindTorusKnot,
	KindMengerSponge, KindGyroid, KindPOrbital, KindDOrbital,
}

// Kinds returns every kind in the catalog.
func Kinds() []Kind {
	return append([]Kind(nil), kindOrder...)
}

// Arity returns the number of shape parameters the kind requires.
// ok is false for kinds outside the catalog.
func (k Kind) Arity() (n int, ok bool) {
	e, ok := catalog[k]
	if !ok {
		return 0, false
	}
	return e.arity, true
}

// Known reports whether the kind is part of the catalog.
func (k Kind) Known() bool {
	_, ok := catalog[k]
	return ok
}

// Op is the composition operator used to fold a primitive into the scene accumulator.
// The empty Op is [OpUnion].
type Op string

const (
	OpReplace         Op = "replace"
	OpUnion           Op = "union"
	OpSubtract        Op = "subtract"
	OpIntersect       Op = "intersect"
	OpSmoothUnion     Op = "smooth-union"
	OpSmoothSubtract  Op = "smooth-subtract"
	OpSmoothIntersect Op = "smooth-intersect"
)

func (op Op) normalized() Op {
	if op == "" {
		return OpUnion
	}
	return op
}

// Valid reports whether op is one of the defined operators or empty.
func (op Op) Valid() bool {
	switch op.normalized() {
	case OpReplace, OpUnion, OpSubtract, OpIntersect, OpSmoothUnion, OpSmoothSubtract, OpSmoothIntersect:
		return true
	}
	return false
}

// TextureBinding references external texture resources by id and the UV transform applied before lookup.
// Resolving ids to texel data is the responsibility of the renderer's texture source.
type TextureBinding struct {
	Diffuse   string
	Normal    string
	Roughness string
	Metallic  string
	Occlusion string
	Emission  string
	// Tiling multiplies UV coordinates. A zero component means 1.
	Tiling ms2.Vec
	Offset ms2.Vec
}

// Transform applies tiling and offset to uv and wraps the result into [0,1).
func (tb *TextureBinding) Transform(uv ms2.Vec) ms2.Vec {
	tile := tb.Tiling
	if tile.X == 0 {
		tile.X = 1
	}
	if tile.Y == 0 {
		tile.Y = 1
	}
	return ms2.Vec{
		X: fractf(uv.X*tile.X + tb.Offset.X),
		Y: fractf(uv.Y*tile.Y + tb.Offset.Y),
	}
}

// Primitive describes one shape of a scene in the parent space.
// Primitives are values: the compiler copies what it needs.
type Primitive struct {
	Kind Kind
	// Position, Rotation (Euler angles in radians, applied X then Y then Z) and Scale
	// place the primitive in the parent space. A zero Scale means unit scale.
	Position ms3.Vec
	Rotation ms3.Vec
	Scale    ms3.Vec
	// Params are the shape parameters, their count is fixed per [Kind].
	Params   []float32
	Material string
	// Op folds this primitive into the accumulator. Ignored for the first primitive.
	Op Op
	// BlendStrength is the smoothing radius of smooth operators. Zero gives the hard operator.
	BlendStrength float32
	Texture       *TextureBinding
}

// NewPrimitive returns a union primitive at the origin with unit scale and the default blend strength.
func NewPrimitive(kind Kind, params ...float32) Primitive {
	return Primitive{
		Kind:          kind,
		Scale:         ms3.Vec{X: 1, Y: 1, Z: 1},
		Params:        params,
		Op:            OpUnion,
		BlendStrength: DefaultBlendStrength,
	}
}

// ArityError is returned by the compiler when a primitive's parameter count
// does not match the count its kind requires.
type ArityError struct {
	Index int
	Kind  Kind
	Want  int
	Got   int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("primitive %d (%s): want %d shape parameters, got %d", e.Index, e.Kind, e.Want, e.Got)
}

var (
	errNegativeBlend = errors.New("negative blend strength")
	errBadOp         = errors.New("unknown composition operator")
	errNonFinite     = errors.New("non-finite transform")
	errZeroScale     = errors.New("zero scale component")
)

// Validate checks the authoring contract of the primitive at index i of a scene.
// Unknown kinds are not an error: they compile to a miss field.
func (p *Primitive) Validate(i int) error {
	var errs []error
	if n, ok := p.Kind.Arity(); ok && n != len(p.Params) {
		errs = append(errs, &ArityError{Index: i, Kind: p.Kind, Want: n, Got: len(p.Params)})
	}
	if p.BlendStrength < 0 || math32.IsNaN(p.BlendStrength) {
		errs = append(errs, fmt.Errorf("primitive %d (%s): %w %v", i, p.Kind, errNegativeBlend, p.BlendStrength))
	}
	if !p.Op.Valid() {
		errs = append(errs, fmt.Errorf("primitive %d (%s): %w %q", i, p.Kind, errBadOp, p.Op))
	}
	for _, v := range [...]ms3.Vec{p.Position, p.Rotation, p.Scale} {
		if !finiteVec(v) {
			errs = append(errs, fmt.Errorf("primitive %d (%s): %w", i, p.Kind, errNonFinite))
			break
		}
	}
	if p.Scale != (ms3.Vec{}) && (p.Scale.X == 0 || p.Scale.Y == 0 || p.Scale.Z == 0) {
		errs = append(errs, fmt.Errorf("primitive %d (%s): %w %v", i, p.Kind, errZeroScale, p.Scale))
	}
	return errors.Join(errs...)
}

// EffectiveScale returns the primitive's scale with the zero value mapped to unit scale.
func (p *Primitive) EffectiveScale() ms3.Vec {
	if p.Scale == (ms3.Vec{}) {
		return ms3.Vec{X: 1, Y: 1, Z: 1}
	}
	return p.Scale
}

// ToLocal transforms a point in the parent space into the primitive's local frame.
func (p *Primitive) ToLocal(pos ms3.Vec) ms3.Vec {
	f := newFrame(p)
	return f.toLocal(pos)
}

// ToParent transforms a point in the primitive's local frame into the parent space.
func (p *Primitive) ToParent(local ms3.Vec) ms3.Vec {
	local = ms3.MulElem(local, p.EffectiveScale())
	return ms3.Add(EulerRotation(p.Rotation).Apply(local), p.Position)
}

func finiteVec(v ms3.Vec) bool {
	for _, c := range [3]float32{v.X, v.Y, v.Z} {
		if !finite(c) {
			return false
		}
	}
	return true
}

package sdfscene

import (
	"github.com/jinzhu/copier"
	"github.com/soypat/geometry/ms3"
)

// Camera is a pinhole camera looking from Position at Target.
type Camera struct {
	Position ms3.Vec
	Target   ms3.Vec
	// Up is the camera's vertical reference. Zero means +Y.
	Up ms3.Vec
	// FOV is the vertical field of view in radians. Zero means 60 degrees.
	FOV float32
}

// LightKind selects how a [Light] illuminates the scene.
type LightKind uint8

const (
	LightDirectional LightKind = iota
	LightPoint
	LightSpot
	LightAmbient
)

func (k LightKind) String() string {
	switch k {
	case LightDirectional:
		return "directional"
	case LightPoint:
		return "point"
	case LightSpot:
		return "spot"
	case LightAmbient:
		return "ambient"
	}
	return "unknown"
}

// Light is a single light source. Directional lights use Direction, the
// direction pointing towards the light. Point and spot lights use Position
// and attenuate with distance. Spot lights also use Direction as their axis
// and Angle as the half angle of their cone.
type Light struct {
	Kind      LightKind
	Position  ms3.Vec
	Direction ms3.Vec
	// Color is linear RGB. Zero means white.
	Color     ms3.Vec
	Intensity float32
	Angle     float32
}

// Lighting is the scene lighting: an ambient term, a main directional light and optional extra lights.
type Lighting struct {
	Ambient     float32
	Directional Light
	Extra       []Light
}

// Lights returns every light of the descriptor. The ambient scalar is returned as a white ambient light.
func (l *Lighting) Lights() []Light {
	lights := make([]Light, 0, 2+len(l.Extra))
	if l.Ambient > 0 {
		lights = append(lights, Light{Kind: LightAmbient, Intensity: l.Ambient})
	}
	if l.Directional.Intensity > 0 {
		d := l.Directional
		d.Kind = LightDirectional
		lights = append(lights, d)
	}
	return append(lights, l.Extra...)
}

// Scene is an ordered primitive list with a camera and lighting.
// Order matters: primitives are folded left to right.
type Scene struct {
	Primitives []Primitive
	Camera     Camera
	Lighting   Lighting
}

// DefaultLighting is the lighting used by scenes that do not specify one.
func DefaultLighting() Lighting {
	return Lighting{
		Ambient: 0.3,
		Directional: Light{
			Kind:      LightDirectional,
			Direction: ms3.Vec{X: 1, Y: 1, Z: -1},
			Intensity: 0.8,
		},
	}
}

// Clone returns a deep copy of the scene that shares no slices or pointers with s.
func (s *Scene) Clone() (Scene, error) {
	var dst Scene
	err := copier.CopyWithOption(&dst, s, copier.Option{DeepCopy: true})
	return dst, err
}

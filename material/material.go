// Package material resolves material identifiers into shading parameters.
//
// Materials live in a [Registry] that is passed explicitly to whoever shades a
// scene. Unknown identifiers never fail: they resolve to [Default].
package material

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/chewxy/math32"
	"github.com/ebb-bloom/sdfscene"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
)

// Material is a fully resolved set of shading parameters.
type Material struct {
	ID   string
	Name string
	// Albedo is the linear RGB base color.
	Albedo    ms3.Vec
	Metallic  float32
	Roughness float32
	// EmissiveColor is multiplied by EmissiveIntensity and added to the shaded color.
	EmissiveColor     ms3.Vec
	EmissiveIntensity float32
	// Transparency in [0,1]: 0 is fully opaque.
	Transparency float32
	// IOR is the index of refraction. Zero means 1.5.
	IOR float32
	// Subsurface scattering amount in [0,1].
	Subsurface float32
	// Texture is the texture set used by primitives that carry no binding of their own.
	Texture *sdfscene.TextureBinding
}

// Resolver maps material identifiers to materials. Resolve must never fail:
// unknown identifiers resolve to a default material.
type Resolver interface {
	Resolve(id string) Material
}

// DefaultID is the identifier of the neutral gray material.
const DefaultID = "default"

// Default returns the neutral gray material unknown identifiers resolve to.
func Default() Material {
	return Material{
		ID:            DefaultID,
		Name:          "Default Material",
		Albedo:        ms3.Vec{X: 0.5, Y: 0.5, Z: 0.5},
		Metallic:      0.5,
		Roughness:     0.5,
		EmissiveColor: ms3.Vec{X: 1, Y: 1, Z: 1},
	}
}

// Validate checks every scalar lies in its documented range.
func (m *Material) Validate() error {
	if m.ID == "" {
		return errEmptyID
	}
	unit := []struct {
		name string
		v    float32
	}{
		{"metallic", m.Metallic},
		{"roughness", m.Roughness},
		{"transparency", m.Transparency},
		{"subsurface", m.Subsurface},
	}
	for _, u := range unit {
		if !(u.v >= 0 && u.v <= 1) {
			return fmt.Errorf("material %q: %s %g out of range [0,1]", m.ID, u.name, u.v)
		}
	}
	if !(m.EmissiveIntensity >= 0) {
		return fmt.Errorf("material %q: negative emissive intensity %g", m.ID, m.EmissiveIntensity)
	}
	if m.IOR < 0 {
		return fmt.Errorf("material %q: negative index of refraction %g", m.ID, m.IOR)
	}
	return nil
}

var (
	errEmptyID = errors.New("empty material id")
	// ErrNotFound is returned by operations on identifiers that are not registered.
	ErrNotFound = errors.New("material not found")
	// ErrExists is returned when registering an identifier twice.
	ErrExists = errors.New("material already exists")
)

// Registry is a concurrency safe set of materials keyed by identifier.
// It implements [Resolver].
type Registry struct {
	// Logger receives unknown identifier diagnostics, at most once per identifier. Nil means [log.Default].
	Logger *log.Logger

	mu   sync.RWMutex
	m    map[string]Material
	diag sdfscene.Diagnostics
}

// NewRegistry returns a registry holding the built-in materials: the default
// gray, the chemical bond and the element materials listed by [Builtins].
func NewRegistry() *Registry {
	r := &Registry{m: make(map[string]Material)}
	for _, mat := range Builtins() {
		r.m[mat.ID] = mat
	}
	return r
}

// Register adds m to the registry. It fails if the identifier is taken or m is invalid.
func (r *Registry) Register(m Material) error {
	if err := m.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.m == nil {
		r.m = make(map[string]Material)
	}
	if _, ok := r.m[m.ID]; ok {
		return fmt.Errorf("%w: %q", ErrExists, m.ID)
	}
	r.m[m.ID] = m
	return nil
}

// Get returns the material registered under id.
func (r *Registry) Get(id string) (Material, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.m[id]
	return m, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// List returns the registered identifiers in lexical order.
func (r *Registry) List() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.m))
	for id := range r.m {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Update applies fn to the material registered under id. The identifier cannot be changed.
func (r *Registry) Update(id string, fn func(m *Material)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.m[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	fn(&m)
	m.ID = id
	if err := m.Validate(); err != nil {
		return err
	}
	r.m[id] = m
	return nil
}

// Remove deletes id from the registry and reports whether it was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.m[id]
	delete(r.m, id)
	return ok
}

// Clear removes every material, built-ins included.
func (r *Registry) Clear() {
	r.mu.Lock()
	clear(r.m)
	r.mu.Unlock()
}

// Resolve implements [Resolver]. Unknown identifiers resolve to the registered
// "default" material if present, else to [Default]. Each unknown identifier is logged once.
func (r *Registry) Resolve(id string) Material {
	r.mu.RLock()
	m, ok := r.m[id]
	def, hasDef := r.m[DefaultID]
	r.mu.RUnlock()
	if ok {
		return m
	}
	if id != "" {
		r.diag.OnceTo(r.Logger, id, "material: unknown id %q resolves to default", id)
	}
	if hasDef {
		return def
	}
	return Default()
}

// Blend looks up materials a and b and blends them with [Blend].
func (r *Registry) Blend(a, b string, factor float32, params BlendParams) (Material, error) {
	ma, okA := r.Get(a)
	mb, okB := r.Get(b)
	switch {
	case !okA:
		return Material{}, fmt.Errorf("%w: %q", ErrNotFound, a)
	case !okB:
		return Material{}, fmt.Errorf("%w: %q", ErrNotFound, b)
	}
	return Blend(ma, mb, factor, params), nil
}

// BlendMode selects how a blend factor is remapped before interpolating.
type BlendMode string

const (
	BlendLinear   BlendMode = "linear"
	BlendSmooth   BlendMode = "smooth"
	BlendNoise    BlendMode = "noise"
	BlendGradient BlendMode = "gradient"
)

// BlendParams configures [Blend]. The zero value blends linearly.
type BlendParams struct {
	Mode BlendMode
	// NoiseScale is the frequency of the noise mode. Zero means 1.
	NoiseScale float32
	// GradientDirection biases the gradient mode. Zero leaves the factor unchanged.
	GradientDirection ms3.Vec
}

// Factor returns the interpolation weight for blend factor t, clamped to [0,1] first.
func (bp BlendParams) Factor(t float32) float32 {
	t = ms1.Clamp(t, 0, 1)
	switch bp.Mode {
	case BlendSmooth:
		return t * t * (3 - 2*t)
	case BlendNoise:
		scale := bp.NoiseScale
		if scale == 0 {
			scale = 1
		}
		noise := math32.Sin(t*scale*2*math32.Pi)*0.5 + 0.5
		return ms1.Interp(t, noise, 0.3)
	case BlendGradient:
		n := ms3.Norm(bp.GradientDirection)
		if n == 0 {
			return t
		}
		d := ms3.Scale(1/n, bp.GradientDirection)
		g := math32.Abs(d.X+d.Y+d.Z) / 3
		return ms1.Interp(t, g, 0.5)
	}
	return t
}

// Blend interpolates every numeric field of a and b by the weight params
// derives from factor. The result's identifier is "blend-<a>-<b>". Texture sets
// are not interpolated: the result takes a's set below half weight and b's above.
func Blend(a, b Material, factor float32, params BlendParams) Material {
	t := params.Factor(factor)
	tex := a.Texture
	if t >= 0.5 {
		tex = b.Texture
	}
	return Material{
		ID:                "blend-" + a.ID + "-" + b.ID,
		Name:              a.Name + " + " + b.Name,
		Albedo:            ms3.InterpElem(a.Albedo, b.Albedo, ms3.Vec{X: t, Y: t, Z: t}),
		Metallic:          ms1.Interp(a.Metallic, b.Metallic, t),
		Roughness:         ms1.Interp(a.Roughness, b.Roughness, t),
		EmissiveColor:     ms3.InterpElem(a.EmissiveColor, b.EmissiveColor, ms3.Vec{X: t, Y: t, Z: t}),
		EmissiveIntensity: ms1.Interp(a.EmissiveIntensity, b.EmissiveIntensity, t),
		Transparency:      ms1.Interp(a.Transparency, b.Transparency, t),
		IOR:               ms1.Interp(a.ior(), b.ior(), t),
		Subsurface:        ms1.Interp(a.Subsurface, b.Subsurface, t),
		Texture:           tex,
	}
}

func (m *Material) ior() float32 {
	if m.IOR == 0 {
		return 1.5
	}
	return m.IOR
}

// HexColor parses a "#RRGGBB" color into linear [0,1] components.
func HexColor(hex string) (ms3.Vec, error) {
	s := strings.TrimPrefix(hex, "#")
	if len(s) != 6 {
		return ms3.Vec{}, fmt.Errorf("invalid hex color %q", hex)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return ms3.Vec{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return ms3.Vec{
		X: float32(v>>16&0xff) / 255,
		Y: float32(v>>8&0xff) / 255,
		Z: float32(v&0xff) / 255,
	}, nil
}

package material

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ebb-bloom/sdfscene"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"gopkg.in/yaml.v3"
)

// fileMaterial is the on-disk form of a [Material], shared by YAML and JSON.
// Opacity is stored instead of transparency, a missing opacity meaning opaque.
type fileMaterial struct {
	ID            string       `yaml:"id" json:"id"`
	Name          string       `yaml:"name,omitempty" json:"name,omitempty"`
	BaseColor     [3]float32   `yaml:"baseColor" json:"baseColor"`
	Roughness     float32      `yaml:"roughness" json:"roughness"`
	Metallic      float32      `yaml:"metallic" json:"metallic"`
	Emission      float32      `yaml:"emission" json:"emission"`
	EmissiveColor [3]float32   `yaml:"emissiveColor" json:"emissiveColor"`
	Opacity       *float32     `yaml:"opacity,omitempty" json:"opacity,omitempty"`
	IOR           float32      `yaml:"ior,omitempty" json:"ior,omitempty"`
	Subsurface    float32      `yaml:"subsurface,omitempty" json:"subsurface,omitempty"`
	TextureSet    *FileTexture `yaml:"textureSet,omitempty" json:"textureSet,omitempty"`
}

// FileTexture is the on-disk form of a [sdfscene.TextureBinding].
type FileTexture struct {
	Diffuse   string      `yaml:"diffuse,omitempty" json:"diffuse,omitempty"`
	Normal    string      `yaml:"normal,omitempty" json:"normal,omitempty"`
	Roughness string      `yaml:"roughness,omitempty" json:"roughness,omitempty"`
	Metallic  string      `yaml:"metallic,omitempty" json:"metallic,omitempty"`
	AO        string      `yaml:"ao,omitempty" json:"ao,omitempty"`
	Emission  string      `yaml:"emission,omitempty" json:"emission,omitempty"`
	Tiling    *[2]float32 `yaml:"tiling,omitempty" json:"tiling,omitempty"`
	Offset    *[2]float32 `yaml:"offset,omitempty" json:"offset,omitempty"`
}

// Binding converts the file form into a texture binding.
func (ft *FileTexture) Binding() *sdfscene.TextureBinding {
	if ft == nil {
		return nil
	}
	tb := &sdfscene.TextureBinding{
		Diffuse:   ft.Diffuse,
		Normal:    ft.Normal,
		Roughness: ft.Roughness,
		Metallic:  ft.Metallic,
		Occlusion: ft.AO,
		Emission:  ft.Emission,
	}
	if ft.Tiling != nil {
		tb.Tiling = ms2.Vec{X: ft.Tiling[0], Y: ft.Tiling[1]}
	}
	if ft.Offset != nil {
		tb.Offset = ms2.Vec{X: ft.Offset[0], Y: ft.Offset[1]}
	}
	return tb
}

// NewFileTexture converts a binding to its file form. It returns nil for a nil binding.
func NewFileTexture(tb *sdfscene.TextureBinding) *FileTexture {
	if tb == nil {
		return nil
	}
	ft := &FileTexture{
		Diffuse:   tb.Diffuse,
		Normal:    tb.Normal,
		Roughness: tb.Roughness,
		Metallic:  tb.Metallic,
		AO:        tb.Occlusion,
		Emission:  tb.Emission,
	}
	if tb.Tiling != (ms2.Vec{}) {
		ft.Tiling = &[2]float32{tb.Tiling.X, tb.Tiling.Y}
	}
	if tb.Offset != (ms2.Vec{}) {
		ft.Offset = &[2]float32{tb.Offset.X, tb.Offset.Y}
	}
	return ft
}

func toFile(m Material) fileMaterial {
	fm := fileMaterial{
		ID:            m.ID,
		Name:          m.Name,
		BaseColor:     arr(m.Albedo),
		Roughness:     m.Roughness,
		Metallic:      m.Metallic,
		Emission:      m.EmissiveIntensity,
		EmissiveColor: arr(m.EmissiveColor),
		IOR:           m.IOR,
		Subsurface:    m.Subsurface,
		TextureSet:    NewFileTexture(m.Texture),
	}
	if m.Transparency != 0 {
		op := 1 - m.Transparency
		fm.Opacity = &op
	}
	return fm
}

func (fm *fileMaterial) material() Material {
	m := Material{
		ID:                fm.ID,
		Name:              fm.Name,
		Albedo:            vec(fm.BaseColor),
		Roughness:         fm.Roughness,
		Metallic:          fm.Metallic,
		EmissiveColor:     vec(fm.EmissiveColor),
		EmissiveIntensity: fm.Emission,
		IOR:               fm.IOR,
		Subsurface:        fm.Subsurface,
		Texture:           fm.TextureSet.Binding(),
	}
	if fm.Opacity != nil {
		m.Transparency = 1 - *fm.Opacity
	}
	return m
}

func arr(v ms3.Vec) [3]float32 { return [3]float32{v.X, v.Y, v.Z} }
func vec(a [3]float32) ms3.Vec { return ms3.Vec{X: a[0], Y: a[1], Z: a[2]} }

func (r *Registry) snapshot() []fileMaterial {
	ids := r.List()
	out := make([]fileMaterial, 0, len(ids))
	for _, id := range ids {
		if m, ok := r.Get(id); ok {
			out = append(out, toFile(m))
		}
	}
	return out
}

// MarshalYAML implements [yaml.Marshaler]. Materials are listed in identifier order.
func (r *Registry) MarshalYAML() (any, error) {
	return r.snapshot(), nil
}

// MarshalJSON implements [json.Marshaler]. Materials are listed in identifier order.
func (r *Registry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.snapshot())
}

// Load decodes a YAML or JSON material list into the registry. When merge is
// false the registry is cleared first. Loaded materials replace registered ones
// with the same identifier. All invalid entries are reported together and
// nothing is loaded if any entry is invalid.
func (r *Registry) Load(data []byte, merge bool) error {
	var list []fileMaterial
	// JSON documents are valid YAML.
	if err := yaml.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("decoding material list: %w", err)
	}
	mats := make([]Material, len(list))
	var errs []error
	for i := range list {
		mats[i] = list[i].material()
		if err := mats[i].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("entry %d: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.m == nil {
		r.m = make(map[string]Material)
	}
	if !merge {
		clear(r.m)
	}
	for _, m := range mats {
		r.m[m.ID] = m
	}
	return nil
}

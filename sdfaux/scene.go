package sdfaux

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/ebb-bloom/sdfscene"
	"github.com/ebb-bloom/sdfscene/material"
	"github.com/soypat/geometry/ms3"
	"gopkg.in/yaml.v3"
)

// Format is a scene file encoding.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

var errUnknownFormat = errors.New("unknown scene file extension, want .yaml, .yml or .json")

// FormatFromPath chooses the encoding of a scene file from its extension.
func FormatFromPath(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return 0, fmt.Errorf("%w: %q", errUnknownFormat, filename)
}

// sceneFile is the on-disk form of a [sdfscene.Scene].
type sceneFile struct {
	Camera     *cameraFile     `yaml:"camera,omitempty" json:"camera,omitempty"`
	Lighting   *lightingFile   `yaml:"lighting,omitempty" json:"lighting,omitempty"`
	Primitives []primitiveFile `yaml:"primitives" json:"primitives"`
}

type cameraFile struct {
	Position [3]float32  `yaml:"position" json:"position"`
	Target   [3]float32  `yaml:"target" json:"target"`
	Up       *[3]float32 `yaml:"up,omitempty" json:"up,omitempty"`
	FOV      float32     `yaml:"fov,omitempty" json:"fov,omitempty"`
}

type lightingFile struct {
	Ambient     float32     `yaml:"ambient" json:"ambient"`
	Directional *lightFile  `yaml:"directional,omitempty" json:"directional,omitempty"`
	Lights      []lightFile `yaml:"lights,omitempty" json:"lights,omitempty"`
}

type lightFile struct {
	Kind      string      `yaml:"kind,omitempty" json:"kind,omitempty"`
	Position  [3]float32  `yaml:"position,omitempty" json:"position,omitempty"`
	Direction [3]float32  `yaml:"direction,omitempty" json:"direction,omitempty"`
	Color     *[3]float32 `yaml:"color,omitempty" json:"color,omitempty"`
	Intensity float32     `yaml:"intensity" json:"intensity"`
	Angle     float32     `yaml:"angle,omitempty" json:"angle,omitempty"`
}

// primitiveFile leaves optional fields as pointers so that missing values take
// their defaults: unit scale, union and the default blend strength.
type primitiveFile struct {
	Kind          string                `yaml:"kind" json:"kind"`
	Position      [3]float32            `yaml:"position" json:"position"`
	Rotation      [3]float32            `yaml:"rotation,omitempty" json:"rotation,omitempty"`
	Scale         *[3]float32           `yaml:"scale,omitempty" json:"scale,omitempty"`
	Params        []float32             `yaml:"params,flow" json:"params"`
	Material      string                `yaml:"material,omitempty" json:"material,omitempty"`
	Op            string                `yaml:"op,omitempty" json:"op,omitempty"`
	BlendStrength *float32              `yaml:"blendStrength,omitempty" json:"blendStrength,omitempty"`
	Texture       *material.FileTexture `yaml:"texture,omitempty" json:"texture,omitempty"`
}

// LoadScene reads a scene file. The encoding is chosen by [FormatFromPath].
func LoadScene(filename string) (sdfscene.Scene, error) {
	format, err := FormatFromPath(filename)
	if err != nil {
		return sdfscene.Scene{}, err
	}
	fp, err := os.Open(filename)
	if err != nil {
		return sdfscene.Scene{}, err
	}
	defer fp.Close()
	return DecodeScene(fp, format)
}

// DecodeScene reads a scene in the given format. A missing camera looks at the
// origin from (0,0,5) and missing lighting is [sdfscene.DefaultLighting].
// Primitives are validated with [sdfscene.Primitive.Validate].
func DecodeScene(r io.Reader, format Format) (sdfscene.Scene, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return sdfscene.Scene{}, err
	}
	var sf sceneFile
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &sf)
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&sf)
	default:
		err = errUnknownFormat
	}
	if err != nil {
		return sdfscene.Scene{}, fmt.Errorf("decoding scene: %w", err)
	}
	return sf.scene()
}

// EncodeScene writes sc in the given format. Its output decodes back to an equal scene.
func EncodeScene(w io.Writer, sc *sdfscene.Scene, format Format) error {
	sf := newSceneFile(sc)
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(sf); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sf)
	}
	return errUnknownFormat
}

func (sf *sceneFile) scene() (sdfscene.Scene, error) {
	sc := sdfscene.Scene{
		Camera:   sdfscene.Camera{Position: ms3.Vec{Z: 5}},
		Lighting: sdfscene.DefaultLighting(),
	}
	if c := sf.Camera; c != nil {
		sc.Camera = sdfscene.Camera{Position: vec(c.Position), Target: vec(c.Target), FOV: c.FOV}
		if c.Up != nil {
			sc.Camera.Up = vec(*c.Up)
		}
	}
	if l := sf.Lighting; l != nil {
		sc.Lighting = sdfscene.Lighting{Ambient: l.Ambient}
		if l.Directional != nil {
			d, err := l.Directional.light(sdfscene.LightDirectional)
			if err != nil {
				return sdfscene.Scene{}, fmt.Errorf("directional light: %w", err)
			}
			sc.Lighting.Directional = d
		}
		for i := range l.Lights {
			light, err := l.Lights[i].light(sdfscene.LightPoint)
			if err != nil {
				return sdfscene.Scene{}, fmt.Errorf("light %d: %w", i, err)
			}
			sc.Lighting.Extra = append(sc.Lighting.Extra, light)
		}
	}
	var errs []error
	sc.Primitives = make([]sdfscene.Primitive, len(sf.Primitives))
	for i := range sf.Primitives {
		sc.Primitives[i] = sf.Primitives[i].primitive()
		if err := sc.Primitives[i].Validate(i); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return sdfscene.Scene{}, errors.Join(errs...)
	}
	return sc, nil
}

func (pf *primitiveFile) primitive() sdfscene.Primitive {
	p := sdfscene.NewPrimitive(sdfscene.Kind(pf.Kind), slices.Clone(pf.Params)...)
	p.Position = vec(pf.Position)
	p.Rotation = vec(pf.Rotation)
	if pf.Scale != nil {
		p.Scale = vec(*pf.Scale)
	}
	p.Material = pf.Material
	if pf.Op != "" {
		p.Op = sdfscene.Op(pf.Op)
	}
	if pf.BlendStrength != nil {
		p.BlendStrength = *pf.BlendStrength
	}
	p.Texture = pf.Texture.Binding()
	return p
}

var lightKinds = map[string]sdfscene.LightKind{
	"directional": sdfscene.LightDirectional,
	"point":       sdfscene.LightPoint,
	"spot":        sdfscene.LightSpot,
	"ambient":     sdfscene.LightAmbient,
}

func (lf *lightFile) light(defaultKind sdfscene.LightKind) (sdfscene.Light, error) {
	kind := defaultKind
	if lf.Kind != "" {
		k, ok := lightKinds[strings.ToLower(lf.Kind)]
		if !ok {
			return sdfscene.Light{}, fmt.Errorf("unknown light kind %q", lf.Kind)
		}
		kind = k
	}
	l := sdfscene.Light{
		Kind:      kind,
		Position:  vec(lf.Position),
		Direction: vec(lf.Direction),
		Intensity: lf.Intensity,
		Angle:     lf.Angle,
	}
	if lf.Color != nil {
		l.Color = vec(*lf.Color)
	}
	return l, nil
}

func newSceneFile(sc *sdfscene.Scene) *sceneFile {
	sf := &sceneFile{
		Camera: &cameraFile{
			Position: arr(sc.Camera.Position),
			Target:   arr(sc.Camera.Target),
			FOV:      sc.Camera.FOV,
		},
		Lighting: &lightingFile{Ambient: sc.Lighting.Ambient},
	}
	if sc.Camera.Up != (ms3.Vec{}) {
		up := arr(sc.Camera.Up)
		sf.Camera.Up = &up
	}
	if sc.Lighting.Directional.Intensity > 0 {
		d := newLightFile(&sc.Lighting.Directional)
		d.Kind = ""
		sf.Lighting.Directional = &d
	}
	for i := range sc.Lighting.Extra {
		sf.Lighting.Lights = append(sf.Lighting.Lights, newLightFile(&sc.Lighting.Extra[i]))
	}
	sf.Primitives = make([]primitiveFile, len(sc.Primitives))
	for i := range sc.Primitives {
		p := &sc.Primitives[i]
		scale := arr(p.Scale)
		blend := p.BlendStrength
		sf.Primitives[i] = primitiveFile{
			Kind:          string(p.Kind),
			Position:      arr(p.Position),
			Rotation:      arr(p.Rotation),
			Scale:         &scale,
			Params:        slices.Clone(p.Params),
			Material:      p.Material,
			Op:            string(p.Op),
			BlendStrength: &blend,
			Texture:       material.NewFileTexture(p.Texture),
		}
		if p.Scale == (ms3.Vec{}) {
			sf.Primitives[i].Scale = nil
		}
	}
	return sf
}

func newLightFile(l *sdfscene.Light) lightFile {
	lf := lightFile{
		Kind:      l.Kind.String(),
		Position:  arr(l.Position),
		Direction: arr(l.Direction),
		Intensity: l.Intensity,
		Angle:     l.Angle,
	}
	if l.Color != (ms3.Vec{}) {
		c := arr(l.Color)
		lf.Color = &c
	}
	return lf
}

func arr(v ms3.Vec) [3]float32 { return [3]float32{v.X, v.Y, v.Z} }
func vec(a [3]float32) ms3.Vec { return ms3.Vec{X: a[0], Y: a[1], Z: a[2]} }

//go:embed scenes/*.yaml
var demoFS embed.FS

// DemoScenes returns the names of the built-in scenes in lexical order.
func DemoScenes() []string {
	entries, err := demoFS.ReadDir("scenes")
	if err != nil {
		panic(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	return names
}

var demoCache struct {
	mu     sync.Mutex
	scenes map[string]*sdfscene.Scene
}

// DemoScene returns the built-in scene of the given name. See [DemoScenes].
// Each scene is decoded once; callers receive a deep copy they are free to modify.
func DemoScene(name string) (sdfscene.Scene, error) {
	demoCache.mu.Lock()
	defer demoCache.mu.Unlock()
	sc := demoCache.scenes[name]
	if sc == nil {
		fp, err := demoFS.Open(path.Join("scenes", name+".yaml"))
		if err != nil {
			return sdfscene.Scene{}, fmt.Errorf("no demo scene %q", name)
		}
		decoded, err := DecodeScene(fp, FormatYAML)
		fp.Close()
		if err != nil {
			return sdfscene.Scene{}, err
		}
		if demoCache.scenes == nil {
			demoCache.scenes = make(map[string]*sdfscene.Scene)
		}
		sc = &decoded
		demoCache.scenes[name] = sc
	}
	return sc.Clone()
}

// Package glrender renders compiled scenes on the CPU: camera rays are sphere
// traced against the field, shaded with the resolved materials and lights, and
// written to an image. It also meshes fields for export.
package glrender

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/anthonynsimon/bild/transform"
	"github.com/chewxy/math32"
	"github.com/ebb-bloom/sdfscene"
	"github.com/ebb-bloom/sdfscene/gleval"
	"github.com/ebb-bloom/sdfscene/material"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
)

// Field is a compiled scene as consumed by the renderer. [*sdfscene.Field] implements it.
type Field interface {
	gleval.Field
	// Sample returns the distance at p and the index of the primitive owning the surface there.
	Sample(p ms3.Vec) (dist float32, index int)
	Material(i int) string
	Texture(i int) *sdfscene.TextureBinding
	UV(p ms3.Vec, i int) ms2.Vec
}

// Config configures a [Renderer]. Zero fields take the values of [DefaultConfig].
type Config struct {
	Width, Height int
	// Supersample renders Supersample² rays per pixel and downsizes the
	// result with a Lanczos filter. Values under 2 disable supersampling.
	Supersample int
	Marcher     gleval.Marcher
	// Shadows enables soft shadows traced towards every direct light.
	Shadows bool
	// ShadowSoftness is the penumbra factor of soft shadows. Larger is sharper.
	ShadowSoftness float32
	// AmbientOcclusion darkens creases by sampling the field along the normal.
	AmbientOcclusion bool
	// RimStrength scales the view dependent rim highlight.
	RimStrength float32
	Background  ms3.Vec
	// FogColor is mixed into hits proportionally to FogStrength·t/MaxDistance.
	FogColor    ms3.Vec
	FogStrength float32
	// Workers is the number of goroutines tracing rows. Zero means runtime.NumCPU().
	Workers int
	// Logger receives diagnostics such as unknown texture ids, once per id. Nil means [log.Default].
	Logger *log.Logger
}

// DefaultConfig returns a 640x480 configuration with the default marcher,
// depth fog and no shadows.
func DefaultConfig() Config {
	return Config{
		Width:          640,
		Height:         480,
		Marcher:        gleval.DefaultMarcher(),
		ShadowSoftness: 8,
		RimStrength:    0.2,
		Background:     ms3.Vec{X: 0.05, Y: 0.05, Z: 0.1},
		FogColor:       ms3.Vec{X: 0.1, Y: 0.1, Z: 0.3},
		FogStrength:    0.3,
	}
}

func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.Width == 0 {
		cfg.Width = def.Width
	}
	if cfg.Height == 0 {
		cfg.Height = def.Height
	}
	cfg.Marcher = cfg.Marcher.WithDefaults()
	if cfg.ShadowSoftness == 0 {
		cfg.ShadowSoftness = def.ShadowSoftness
	}
	if cfg.RimStrength == 0 {
		cfg.RimStrength = def.RimStrength
	}
	if cfg.Background == (ms3.Vec{}) {
		cfg.Background = def.Background
	}
	if cfg.FogColor == (ms3.Vec{}) {
		cfg.FogColor = def.FogColor
	}
	if cfg.FogStrength == 0 {
		cfg.FogStrength = def.FogStrength
	}
	return cfg
}

// Renderer traces and shades images of compiled fields. A Renderer is safe for
// concurrent use; diagnostics are shared by every render it performs.
type Renderer struct {
	cfg       Config
	materials material.Resolver
	textures  TextureSource
	diag      sdfscene.Diagnostics
}

var errNilField = errors.New("nil field")

// NewRenderer returns a renderer shading with materials and textures. A nil resolver
// uses a [material.NewRegistry] and a nil texture source disables textures.
func NewRenderer(cfg Config, materials material.Resolver, textures TextureSource) (*Renderer, error) {
	cfg = cfg.withDefaults()
	if cfg.Width < 0 || cfg.Height < 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", cfg.Width, cfg.Height)
	} else if cfg.Supersample < 0 {
		return nil, errors.New("negative supersample factor")
	}
	if err := cfg.Marcher.Validate(); err != nil {
		return nil, fmt.Errorf("marcher: %w", err)
	}
	if materials == nil {
		materials = material.NewRegistry()
	}
	return &Renderer{cfg: cfg, materials: materials, textures: textures}, nil
}

// Config returns the renderer configuration with defaults applied.
func (r *Renderer) Config() Config { return r.cfg }

// Render traces one ray per pixel, or Supersample² rays when supersampling,
// across a pool of workers that claim image rows from a shared counter.
// The field must not change during the call; compiled fields never do.
func (r *Renderer) Render(f Field, cam sdfscene.Camera, lighting sdfscene.Lighting) (*image.RGBA, error) {
	if f == nil {
		return nil, errNilField
	}
	ss := max(r.cfg.Supersample, 1)
	width, height := r.cfg.Width*ss, r.cfg.Height*ss
	view, err := newView(cam, width, height)
	if err != nil {
		return nil, err
	}
	lights := lighting.Lights()
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	workers := r.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, height)
	var nextRow atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for {
				y := int(nextRow.Add(1) - 1)
				if y >= height {
					return
				}
				for x := 0; x < width; x++ {
					origin, dir := view.ray(float32(x)+0.5, float32(y)+0.5)
					s := r.TraceRay(f, lights, origin, dir)
					img.SetRGBA(x, y, toRGBA(s.Color))
				}
			}
		}()
	}
	wg.Wait()
	if ss > 1 {
		img = transform.Resize(img, r.cfg.Width, r.cfg.Height, transform.Lanczos)
	}
	return img, nil
}

// RenderScene compiles the scene with c and renders it from the scene camera.
// Scenes without lights use [sdfscene.DefaultLighting].
func (r *Renderer) RenderScene(c *sdfscene.Compiler, sc *sdfscene.Scene) (*image.RGBA, error) {
	field, err := c.Compile(sc.Primitives)
	if err != nil {
		return nil, err
	}
	lighting := sc.Lighting
	if len(lighting.Lights()) == 0 {
		lighting = sdfscene.DefaultLighting()
	}
	return r.Render(field, sc.Camera, lighting)
}

// Sample is the outcome of tracing a single camera ray.
type Sample struct {
	// Color is the shaded linear RGB color, not clamped.
	Color  ms3.Vec
	March  gleval.Result
	Normal ms3.Vec
	// Primitive is the index of the primitive owning the hit surface, -1 on a miss.
	Primitive int
	Material  material.Material
}

// TraceRay marches a ray through f and shades the first surface hit. Misses
// return the background color.
func (r *Renderer) TraceRay(f Field, lights []sdfscene.Light, origin, dir ms3.Vec) Sample {
	dir = ms3.Unit(dir)
	res := r.cfg.Marcher.March(f, origin, dir)
	if !res.Hit {
		return Sample{Color: r.cfg.Background, March: res, Primitive: -1}
	}
	_, idx := f.Sample(res.Position)
	n := r.cfg.Marcher.Normal(f, res.Position, dir)
	s := Sample{March: res, Normal: n, Primitive: idx}
	if idx < 0 {
		s.Color = r.cfg.Background
		return s
	}
	s.Material = r.materials.Resolve(f.Material(idx))
	surf := r.surface(f, idx, res.Position, n, &s.Material)
	c := r.shade(f, lights, res.Position, dir, surf)

	c = ms3.InterpElem(c, r.cfg.Background, splat(ms1.Clamp(s.Material.Transparency, 0, 1)))
	fog := ms1.Clamp(r.cfg.FogStrength*res.T/r.cfg.Marcher.MaxDistance, 0, 1)
	s.Color = ms3.InterpElem(c, r.cfg.FogColor, splat(fog))
	s.Normal = surf.normal
	return s
}

func splat(v float32) ms3.Vec { return ms3.Vec{X: v, Y: v, Z: v} }

func toRGBA(c ms3.Vec) color.RGBA {
	return color.RGBA{
		R: uint8(ms1.Clamp(c.X, 0, 1)*255 + 0.5),
		G: uint8(ms1.Clamp(c.Y, 0, 1)*255 + 0.5),
		B: uint8(ms1.Clamp(c.Z, 0, 1)*255 + 0.5),
		A: 255,
	}
}

// view generates primary rays of a pinhole camera.
type view struct {
	origin              ms3.Vec
	fwd, right, up      ms3.Vec
	tanHalf, aspect     float32
	invWidth, invHeight float32
}

var errCameraTarget = errors.New("camera target coincides with camera position")

func newView(cam sdfscene.Camera, width, height int) (view, error) {
	if width <= 0 || height <= 0 {
		return view{}, fmt.Errorf("invalid image size %dx%d", width, height)
	}
	fwd := ms3.Sub(cam.Target, cam.Position)
	if ms3.Norm(fwd) == 0 {
		return view{}, errCameraTarget
	}
	fwd = ms3.Unit(fwd)
	up := cam.Up
	if up == (ms3.Vec{}) {
		up = ms3.Vec{Y: 1}
	}
	right := cross(fwd, up)
	if ms3.Norm(right) < 1e-6 {
		// Looking along the up axis.
		right = cross(fwd, ms3.Vec{Z: 1})
	}
	right = ms3.Unit(right)
	fov := cam.FOV
	if fov <= 0 {
		fov = math32.Pi / 3
	}
	return view{
		origin:    cam.Position,
		fwd:       fwd,
		right:     right,
		up:        cross(right, fwd),
		tanHalf:   math32.Tan(fov / 2),
		aspect:    float32(width) / float32(height),
		invWidth:  1 / float32(width),
		invHeight: 1 / float32(height),
	}, nil
}

// ray returns the primary ray through image coordinates (px,py), y growing downwards.
func (v *view) ray(px, py float32) (origin, dir ms3.Vec) {
	sx := (2*px*v.invWidth - 1) * v.aspect * v.tanHalf
	sy := (1 - 2*py*v.invHeight) * v.tanHalf
	dir = ms3.Add(v.fwd, ms3.Add(ms3.Scale(sx, v.right), ms3.Scale(sy, v.up)))
	return v.origin, ms3.Unit(dir)
}

// CameraRay returns the primary ray of cam through the center of pixel (x,y)
// of a width by height image.
func CameraRay(cam sdfscene.Camera, width, height, x, y int) (origin, dir ms3.Vec, err error) {
	v, err := newView(cam, width, height)
	if err != nil {
		return ms3.Vec{}, ms3.Vec{}, err
	}
	origin, dir = v.ray(float32(x)+0.5, float32(y)+0.5)
	return origin, dir, nil
}

func cross(a, b ms3.Vec) ms3.Vec {
	return ms3.Vec{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

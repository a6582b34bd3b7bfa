package glrender_test

import (
	"bytes"
	"image"
	"image/color"
	"log"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/ebb-bloom/sdfscene"
	"github.com/ebb-bloom/sdfscene/glrender"
	"github.com/ebb-bloom/sdfscene/material"
	"github.com/soypat/geometry/ms3"
)

func compile(t *testing.T, prims ...sdfscene.Primitive) *sdfscene.Field {
	t.Helper()
	var c sdfscene.Compiler
	f, err := c.Compile(prims)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func newRenderer(t *testing.T, cfg glrender.Config, mats material.Resolver, tex glrender.TextureSource) *glrender.Renderer {
	t.Helper()
	r, err := glrender.NewRenderer(cfg, mats, tex)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

var frontLight = []sdfscene.Light{
	{Kind: sdfscene.LightAmbient, Intensity: 0.2},
	{Kind: sdfscene.LightDirectional, Direction: ms3.Vec{Z: 1}, Intensity: 1},
}

func TestTraceRaySphere(t *testing.T) {
	reg := material.NewRegistry()
	err := reg.Register(material.Material{ID: "A", Albedo: ms3.Vec{X: 1, Y: 1, Z: 1}, Roughness: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	sphere := sdfscene.NewPrimitive(sdfscene.KindSphere, 1)
	sphere.Material = "A"
	f := compile(t, sphere)
	r := newRenderer(t, glrender.Config{}, reg, nil)
	s := r.TraceRay(f, frontLight, ms3.Vec{Z: 5}, ms3.Vec{Z: -1})
	if !s.March.Hit {
		t.Fatal("expected hit")
	}
	if math32.Abs(s.March.T-4) > 2e-3 {
		t.Errorf("want hit at t=4, got %g", s.March.T)
	}
	if ms3.Norm(ms3.Sub(s.Normal, ms3.Vec{Z: 1})) > 1e-3 {
		t.Errorf("want normal (0,0,1), got %v", s.Normal)
	}
	if s.Primitive != 0 || s.Material.ID != "A" {
		t.Errorf("want primitive 0 with material A, got %d %q", s.Primitive, s.Material.ID)
	}
	bg := r.Config().Background
	if ms3.Norm(ms3.Sub(s.Color, bg)) < 0.1 {
		t.Error("lit sphere should not look like the background")
	}

	miss := r.TraceRay(f, frontLight, ms3.Vec{Z: 5}, ms3.Vec{Z: 1})
	if miss.March.Hit || miss.Primitive != -1 || miss.Color != bg {
		t.Errorf("ray away from geometry should miss with background color, got %+v", miss)
	}
}

func TestRender(t *testing.T) {
	cam := sdfscene.Camera{Position: ms3.Vec{Z: 5}}
	f := compile(t, sdfscene.NewPrimitive(sdfscene.KindSphere, 1))
	cfg := glrender.Config{Width: 33, Height: 25, Workers: 3}
	r := newRenderer(t, cfg, nil, nil)
	img, err := r.Render(f, cam, sdfscene.DefaultLighting())
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 33, 25) {
		t.Fatalf("unexpected image bounds %v", img.Bounds())
	}
	bg := color.RGBA{R: 13, G: 13, B: 26, A: 255}
	if got := img.RGBAAt(0, 0); got != bg {
		t.Errorf("corner should be background %v, got %v", bg, got)
	}
	if got := img.RGBAAt(16, 12); got == bg {
		t.Error("center should show the sphere")
	}
	again, err := r.Render(f, cam, sdfscene.DefaultLighting())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(img.Pix, again.Pix) {
		t.Error("rendering is not deterministic")
	}

	cfg.Supersample = 2
	r = newRenderer(t, cfg, nil, nil)
	img, err = r.Render(f, cam, sdfscene.DefaultLighting())
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 33, 25) {
		t.Errorf("supersampled image should be downsized to %dx%d, got %v", cfg.Width, cfg.Height, img.Bounds())
	}
	if _, err = r.Render(f, sdfscene.Camera{}, sdfscene.DefaultLighting()); err == nil {
		t.Error("camera looking at itself should fail")
	}
}

func TestRenderScene(t *testing.T) {
	var c sdfscene.Compiler
	sc := sdfscene.Scene{
		Primitives: []sdfscene.Primitive{sdfscene.NewPrimitive(sdfscene.KindBox, 1, 1, 1)},
		Camera:     sdfscene.Camera{Position: ms3.Vec{X: 3, Y: 3, Z: 3}},
	}
	r := newRenderer(t, glrender.Config{Width: 8, Height: 8}, nil, nil)
	img, err := r.RenderScene(&c, &sc)
	if err != nil {
		t.Fatal(err)
	}
	if img.RGBAAt(4, 4) == img.RGBAAt(0, 0) {
		t.Error("box should be visible at image center")
	}
	sc.Primitives[0].Params = sc.Primitives[0].Params[:1]
	if _, err = r.RenderScene(&c, &sc); err == nil {
		t.Error("arity violation should fail")
	}
}

func TestShadows(t *testing.T) {
	floor := sdfscene.NewPrimitive(sdfscene.KindPlane, 0, 1, 0, 1)
	blocker := sdfscene.NewPrimitive(sdfscene.KindSphere, 0.5)
	blocker.Position = ms3.Vec{Y: 0.5}
	f := compile(t, floor, blocker)
	overhead := []sdfscene.Light{{Kind: sdfscene.LightDirectional, Direction: ms3.Vec{Y: 1}, Intensity: 1}}
	origin := ms3.Vec{X: 3, Y: 1}
	dir := ms3.Sub(ms3.Vec{Y: -1}, origin)

	lit := newRenderer(t, glrender.Config{}, nil, nil).TraceRay(f, overhead, origin, dir)
	shadowed := newRenderer(t, glrender.Config{Shadows: true}, nil, nil).TraceRay(f, overhead, origin, dir)
	if !lit.March.Hit || lit.Primitive != 0 {
		t.Fatalf("ray should hit the floor, got %+v", lit.March)
	}
	sum := func(v ms3.Vec) float32 { return v.X + v.Y + v.Z }
	if sum(shadowed.Color) >= sum(lit.Color)-0.1 {
		t.Errorf("point under the sphere should be shadowed: lit %v, shadowed %v", lit.Color, shadowed.Color)
	}
}

func TestTexturesAndTransparency(t *testing.T) {
	reg := material.NewRegistry()
	reg.Register(material.Material{ID: "white", Albedo: ms3.Vec{X: 1, Y: 1, Z: 1}, Roughness: 0.5})
	reg.Register(material.Material{ID: "ghost", Albedo: ms3.Vec{X: 1, Y: 1, Z: 1}, Transparency: 1})
	red := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range red.Pix {
		if i%4 == 0 || i%4 == 3 {
			red.Pix[i] = 255
		}
	}
	var logbuf bytes.Buffer
	cfg := glrender.Config{Logger: log.New(&logbuf, "", 0)}
	r := newRenderer(t, cfg, reg, glrender.ImageTextures{"red": red})

	sphere := sdfscene.NewPrimitive(sdfscene.KindSphere, 1)
	sphere.Material = "white"
	sphere.Texture = &sdfscene.TextureBinding{Diffuse: "red", Roughness: "missing"}
	f := compile(t, sphere)
	for i := 0; i < 3; i++ {
		s := r.TraceRay(f, frontLight, ms3.Vec{Z: 5}, ms3.Vec{Z: -1})
		if s.Color.X < 2*s.Color.Y {
			t.Fatalf("diffuse texture should tint the sphere red, got %v", s.Color)
		}
	}
	if n := strings.Count(logbuf.String(), "\n"); n != 1 || !strings.Contains(logbuf.String(), "missing") {
		t.Errorf("unknown texture should be logged exactly once, got:\n%s", logbuf.String())
	}

	sphere.Material = "ghost"
	sphere.Texture = nil
	f = compile(t, sphere)
	s := r.TraceRay(f, frontLight, ms3.Vec{Z: 5}, ms3.Vec{Z: -1})
	if !s.March.Hit {
		t.Fatal("transparent surfaces are still hit")
	}
	if ms3.Norm(ms3.Sub(s.Color, r.Config().Background)) > 0.02 {
		t.Errorf("fully transparent material should show the background, got %v", s.Color)
	}
}

func TestAttenuation(t *testing.T) {
	if glrender.Attenuation(0) != 1 {
		t.Error("no falloff at the light")
	}
	want := 1 / (1 + 0.1*10 + 0.01*100)
	if got := glrender.Attenuation(10); math32.Abs(got-float32(want)) > 1e-6 {
		t.Errorf("want %g, got %g", want, got)
	}
}

func TestCameraRay(t *testing.T) {
	cam := sdfscene.Camera{Position: ms3.Vec{Y: 2, Z: 2}, Target: ms3.Vec{}}
	origin, dir, err := glrender.CameraRay(cam, 31, 31, 15, 15)
	if err != nil {
		t.Fatal(err)
	}
	want := ms3.Unit(ms3.Vec{Y: -1, Z: -1})
	if origin != cam.Position || ms3.Norm(ms3.Sub(dir, want)) > 1e-5 {
		t.Errorf("center ray should point at the target, got %v %v", origin, dir)
	}
	_, top, _ := glrender.CameraRay(cam, 31, 31, 15, 0)
	if top.Y <= dir.Y {
		t.Error("top row should look further up than the center")
	}
	// Looking straight down the up axis must still produce a valid basis.
	_, down, err := glrender.CameraRay(sdfscene.Camera{Position: ms3.Vec{Y: 5}}, 4, 4, 1, 1)
	if err != nil || math32.IsNaN(down.X) {
		t.Errorf("degenerate up axis: %v %v", down, err)
	}
}

func TestSliceRenderer(t *testing.T) {
	f := compile(t, sdfscene.NewPrimitive(sdfscene.KindSphere, 1))
	sr, err := glrender.NewSliceRenderer(128, nil)
	if err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	bb := ms3.Box{Min: ms3.Vec{X: -2, Y: -2}, Max: ms3.Vec{X: 2, Y: 2}}
	err = sr.Render(f, glrender.PlaneXY(bb, 0), img, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c := img.RGBAAt(20, 20); c.R != 0 {
		t.Errorf("sphere interior should be black, got %v", c)
	}
	if c := img.RGBAAt(0, 0); c.R != 255 {
		t.Errorf("outside should be white, got %v", c)
	}
	if _, err = glrender.NewSliceRenderer(8, nil); err == nil {
		t.Error("tiny buffer should be rejected")
	}
}

func TestExportSTL(t *testing.T) {
	f := compile(t, sdfscene.NewPrimitive(sdfscene.KindSphere, 1))
	var buf bytes.Buffer
	n, err := glrender.ExportSTL(&buf, f, 24)
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Fatal("no triangles")
	}
	if buf.Len() != 84+50*n {
		t.Errorf("binary STL size mismatch: %d bytes for %d triangles", buf.Len(), n)
	}
	triangles, err := glrender.ReadBinarySTL(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(triangles) != n {
		t.Fatalf("read %d triangles, wrote %d", len(triangles), n)
	}
	const tol = 0.05
	for _, tri := range triangles {
		for _, v := range tri {
			if r := ms3.Norm(v); math32.Abs(r-1) > tol {
				t.Fatalf("vertex %v off the unit sphere (r=%g)", v, r)
			}
		}
	}

	plane := compile(t, sdfscene.NewPrimitive(sdfscene.KindPlane, 0, 1, 0, 0))
	if _, err = glrender.ExportSTL(&buf, plane, 8); err == nil {
		t.Error("unbounded field should not be meshed")
	}
}

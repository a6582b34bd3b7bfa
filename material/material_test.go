package material_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/ebb-bloom/sdfscene"
	"github.com/ebb-bloom/sdfscene/material"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"gopkg.in/yaml.v3"
)

func TestResolveUnknown(t *testing.T) {
	var buf bytes.Buffer
	r := material.NewRegistry()
	r.Logger = log.New(&buf, "", 0)
	want := material.Default()
	for i := 0; i < 3; i++ {
		got := r.Resolve("unobtainium")
		if got.Albedo != want.Albedo || got.Metallic != 0.5 || got.Roughness != 0.5 {
			t.Fatalf("unknown id should resolve to neutral gray, got %+v", got)
		}
		if got.EmissiveIntensity != 0 || got.Transparency != 0 {
			t.Fatalf("default must be opaque and non emissive, got %+v", got)
		}
	}
	r.Resolve("kryptonite")
	r.Resolve("")
	if n := strings.Count(buf.String(), "\n"); n != 2 {
		t.Errorf("want one log line per unknown id, got %d:\n%s", n, buf.String())
	}
	// A cleared registry still resolves.
	r.Clear()
	if got := r.Resolve("oxygen"); got.Albedo != want.Albedo {
		t.Errorf("cleared registry should fall back to built in default, got %+v", got)
	}
}

func TestRegistryLifecycle(t *testing.T) {
	r := material.NewRegistry()
	for _, id := range []string{"default", "bond", "hydrogen", "oxygen", "carbon", "iron"} {
		if !r.Has(id) {
			t.Errorf("missing built in %q", id)
		}
	}
	glass := material.Material{ID: "glass", Albedo: ms3.Vec{X: 0.9, Y: 0.9, Z: 1}, Roughness: 0.05, Transparency: 0.8, IOR: 1.5}
	if err := r.Register(glass); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(glass); !errors.Is(err, material.ErrExists) {
		t.Errorf("want ErrExists on duplicate, got %v", err)
	}
	if err := r.Register(material.Material{ID: "bad", Roughness: 2}); err == nil {
		t.Error("out of range roughness should fail")
	}
	err := r.Update("glass", func(m *material.Material) {
		m.Roughness = 0.1
		m.ID = "renamed"
	})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := r.Get("glass")
	if got.Roughness != 0.1 || got.ID != "glass" {
		t.Errorf("update not applied correctly: %+v", got)
	}
	if err := r.Update("nope", func(*material.Material) {}); !errors.Is(err, material.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
	ids := r.List()
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("list not sorted: %v", ids)
		}
	}
	if !r.Remove("glass") || r.Remove("glass") {
		t.Error("remove should report presence exactly once")
	}
}

func TestBlend(t *testing.T) {
	r := material.NewRegistry()
	h, _ := r.Get("hydrogen")
	o, _ := r.Get("oxygen")
	for _, mode := range []material.BlendMode{material.BlendLinear, material.BlendSmooth, material.BlendNoise, material.BlendGradient} {
		params := material.BlendParams{Mode: mode, GradientDirection: ms3.Vec{X: 1}}
		for _, f := range []float32{-1, 0, 0.25, 0.5, 1, 2} {
			w := params.Factor(f)
			if !(w >= 0 && w <= 1) {
				t.Errorf("%s: factor(%g)=%g outside [0,1]", mode, f, w)
			}
		}
		m, err := r.Blend("hydrogen", "oxygen", 0.5, params)
		if err != nil {
			t.Fatal(err)
		}
		if m.ID != "blend-hydrogen-oxygen" {
			t.Errorf("unexpected blend id %q", m.ID)
		}
		if err := m.Validate(); err != nil {
			t.Errorf("%s: blended material invalid: %v", mode, err)
		}
	}
	lin := material.Blend(h, o, 0, material.BlendParams{})
	if ms3.Norm(ms3.Sub(lin.Albedo, h.Albedo)) > 1e-6 || math32.Abs(lin.Roughness-h.Roughness) > 1e-6 {
		t.Error("zero factor should return first material's values")
	}
	lin = material.Blend(h, o, 1, material.BlendParams{})
	if ms3.Norm(ms3.Sub(lin.Albedo, o.Albedo)) > 1e-6 || math32.Abs(lin.Roughness-o.Roughness) > 1e-6 {
		t.Error("unit factor should return second material's values")
	}
	smooth := material.BlendParams{Mode: material.BlendSmooth}
	if w := smooth.Factor(0.25); math32.Abs(w-0.15625) > 1e-6 {
		t.Errorf("smoothstep(0.25) want 0.15625, got %g", w)
	}
	if _, err := r.Blend("hydrogen", "nope", 0.5, smooth); !errors.Is(err, material.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestSerialization(t *testing.T) {
	r := material.NewRegistry()
	err := r.Register(material.Material{
		ID:           "tiles",
		Albedo:       ms3.Vec{X: 0.2, Y: 0.4, Z: 0.6},
		Roughness:    0.8,
		Transparency: 0.25,
		Texture:      &sdfscene.TextureBinding{Diffuse: "tiles.png", Tiling: ms2.Vec{X: 4, Y: 4}},
	})
	if err != nil {
		t.Fatal(err)
	}
	y, err := yaml.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	j, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	for name, data := range map[string][]byte{"yaml": y, "json": j} {
		loaded := material.NewRegistry()
		if err := loaded.Load(data, false); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(loaded.List()) != len(r.List()) {
			t.Errorf("%s: want %d materials, got %d", name, len(r.List()), len(loaded.List()))
		}
		got, ok := loaded.Get("tiles")
		if !ok {
			t.Fatalf("%s: tiles not loaded", name)
		}
		if got.Albedo != (ms3.Vec{X: 0.2, Y: 0.4, Z: 0.6}) || math32.Abs(got.Transparency-0.25) > 1e-6 {
			t.Errorf("%s: material fields lost: %+v", name, got)
		}
		if got.Texture == nil || got.Texture.Diffuse != "tiles.png" || got.Texture.Tiling.X != 4 {
			t.Errorf("%s: texture set lost: %+v", name, got.Texture)
		}
	}
	bad := []byte("- id: x\n  roughness: 3\n- id: ''\n")
	if err := r.Load(bad, true); err == nil {
		t.Error("invalid entries should fail to load")
	}
	if !r.Has("tiles") {
		t.Error("failed load must not modify registry")
	}
}

func TestHexColor(t *testing.T) {
	c, err := material.HexColor("#FF8000")
	if err != nil {
		t.Fatal(err)
	}
	if c.X != 1 || math32.Abs(c.Y-128.0/255) > 1e-6 || c.Z != 0 {
		t.Errorf("unexpected color %v", c)
	}
	if _, err := material.HexColor("#FFF"); err == nil {
		t.Error("short hex should fail")
	}
	if material.ElementID("O") != "oxygen" || material.ElementID("Xx") != material.DefaultID {
		t.Error("element id lookup mismatch")
	}
}

package sdfscene_test

import (
	"bytes"
	"errors"
	"log"
	"math/rand"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/ebb-bloom/sdfscene"
	"github.com/soypat/geometry/ms3"
)

const tol = 1e-4

func near(a, b, eps float32) bool {
	return math32.Abs(a-b) <= eps
}

func vecNear(a, b ms3.Vec, eps float32) bool {
	return ms3.Norm(ms3.Sub(a, b)) <= eps
}

func boundaryCases() []struct {
	kind   sdfscene.Kind
	params []float32
	p      ms3.Vec
} {
	const tipSin, tipCos = 0.5, 0.8660254
	return []struct {
		kind   sdfscene.Kind
		params []float32
		p      ms3.Vec
	}{
		{kind: sdfscene.KindSphere, params: []float32{1.5}, p: ms3.Vec{X: 0.9, Y: 1.2}},
		{kind: sdfscene.KindBox, params: []float32{1, 2, 3}, p: ms3.Vec{X: 1, Y: 0.5, Z: -1}},
		{kind: sdfscene.KindRoundedBox, params: []float32{1, 1, 1, 0.2}, p: ms3.Vec{X: 1}},
		{kind: sdfscene.KindCylinder, params: []float32{1, 0.5}, p: ms3.Vec{X: 0.5, Y: 0.3}},
		{kind: sdfscene.KindCappedCylinder, params: []float32{1, 0.5}, p: ms3.Vec{Y: 1}},
		{kind: sdfscene.KindCone, params: []float32{tipSin, tipCos, 1}, p: ms3.Vec{}},
		{kind: sdfscene.KindRoundCone, params: []float32{0.5, 0.2, 1}, p: ms3.Vec{Y: -0.5}},
		{kind: sdfscene.KindPyramid, params: []float32{1}, p: ms3.Vec{Y: 1}},
		{kind: sdfscene.KindTorus, params: []float32{1, 0.25}, p: ms3.Vec{X: 1.25}},
		{kind: sdfscene.KindOctahedron, params: []float32{1}, p: ms3.Vec{X: 1}},
		{kind: sdfscene.KindHexPrism, params: []float32{0.5, 1}, p: ms3.Vec{Y: 0.5}},
		{kind: sdfscene.KindTriPrism, params: []float32{1, 1}, p: ms3.Vec{Y: 1}},
		{kind: sdfscene.KindCapsule, params: []float32{0, 1, 0, 0.3}, p: ms3.Vec{X: -0.3, Y: 0.5}},
		{kind: sdfscene.KindEllipsoid, params: []float32{1, 2, 3}, p: ms3.Vec{Z: 3}},
		{kind: sdfscene.KindPlane, params: []float32{0, 2, 0, 0.5}, p: ms3.Vec{X: 7, Y: -0.5, Z: 3}},
		{kind: sdfscene.KindSuperellipsoid, params: []float32{0.5, 0.5, 2}, p: ms3.Vec{X: 2}},
		{kind: sdfscene.KindTorusKnot, params: []float32{2, 3, 1}, p: ms3.Vec{X: 0.7}},
		{kind: sdfscene.KindMengerSponge, params: []float32{1}, p: ms3.Vec{X: 1, Y: 1, Z: 1}},
		{kind: sdfscene.KindGyroid, params: []float32{2, 0.5}, p: ms3.Vec{X: math32.Asin(0.5) / 2}},
		{kind: sdfscene.KindPOrbital, params: []float32{1}, p: ms3.Vec{Y: 0.7}},
		{kind: sdfscene.KindDOrbital, params: []float32{1}, p: ms3.Vec{X: 0.6}},
	}
}

func TestDistanceBoundary(t *testing.T) {
	covered := make(map[sdfscene.Kind]bool)
	for _, tc := range boundaryCases() {
		covered[tc.kind] = true
		n, ok := tc.kind.Arity()
		if !ok || n != len(tc.params) {
			t.Errorf("%s: arity %d (known=%v) does not match %d test params", tc.kind, n, ok, len(tc.params))
			continue
		}
		d := sdfscene.Distance(tc.kind, tc.p, tc.params)
		if !near(d, 0, 1e-3) {
			t.Errorf("%s: distance at boundary point %v is %g, want 0", tc.kind, tc.p, d)
		}
	}
	for _, k := range sdfscene.Kinds() {
		if !covered[k] {
			t.Errorf("kind %s has no boundary test", k)
		}
	}
	if got := len(sdfscene.Kinds()); got != 21 {
		t.Errorf("want 21 catalog kinds, got %d", got)
	}
}

func TestDistanceSignAndGradient(t *testing.T) {
	// Kinds whose field is exact keep a unit gradient near the surface.
	exact := []struct {
		kind   sdfscene.Kind
		params []float32
	}{
		{sdfscene.KindSphere, []float32{1}},
		{sdfscene.KindBox, []float32{1, 0.5, 0.7}},
		{sdfscene.KindTorus, []float32{1, 0.3}},
		{sdfscene.KindCylinder, []float32{1, 0.5}},
		{sdfscene.KindCapsule, []float32{1, 0, 0, 0.4}},
	}
	rng := rand.New(rand.NewSource(1))
	const h = 1e-3
	for _, tc := range exact {
		for i := 0; i < 64; i++ {
			p := ms3.Vec{X: rng.Float32()*4 - 2, Y: rng.Float32()*4 - 2, Z: rng.Float32()*4 - 2}
			d := sdfscene.Distance(tc.kind, p, tc.params)
			if d > 0.5 || d < 0.05 {
				continue
			}
			g := ms3.Vec{
				X: sdfscene.Distance(tc.kind, ms3.Add(p, ms3.Vec{X: h}), tc.params) - sdfscene.Distance(tc.kind, ms3.Sub(p, ms3.Vec{X: h}), tc.params),
				Y: sdfscene.Distance(tc.kind, ms3.Add(p, ms3.Vec{Y: h}), tc.params) - sdfscene.Distance(tc.kind, ms3.Sub(p, ms3.Vec{Y: h}), tc.params),
				Z: sdfscene.Distance(tc.kind, ms3.Add(p, ms3.Vec{Z: h}), tc.params) - sdfscene.Distance(tc.kind, ms3.Sub(p, ms3.Vec{Z: h}), tc.params),
			}
			if gn := ms3.Norm(g) / (2 * h); !near(gn, 1, 0.05) {
				t.Errorf("%s: gradient magnitude %g at %v, want 1", tc.kind, gn, p)
			}
		}
	}
	if d := sdfscene.Distance(sdfscene.KindSphere, ms3.Vec{}, []float32{1}); d >= 0 {
		t.Errorf("sphere center should be inside, got %g", d)
	}
}

func TestUVRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, tc := range boundaryCases() {
		for i := 0; i < 128; i++ {
			p := ms3.Vec{X: rng.Float32()*6 - 3, Y: rng.Float32()*6 - 3, Z: rng.Float32()*6 - 3}
			uv := sdfscene.UV(tc.kind, p, tc.params)
			if uv.X < 0 || uv.X >= 1 || uv.Y < 0 || uv.Y >= 1 {
				t.Fatalf("%s: uv %v out of [0,1) at %v", tc.kind, uv, p)
			}
		}
	}
	// The +X equator point sits at the center of the texture.
	uv := sdfscene.UV(sdfscene.KindSphere, ms3.Vec{X: 1}, []float32{1})
	if !near(uv.X, 0.5, tol) || !near(uv.Y, 0.5, tol) {
		t.Errorf("sphere equator +X: want uv (0.5,0.5), got %v", uv)
	}

	// Zero extents divide by zero in the projections.
	degenerate := []struct {
		kind   sdfscene.Kind
		params []float32
	}{
		{sdfscene.KindCylinder, []float32{0, 1}},
		{sdfscene.KindCone, []float32{0.5, 0.5, 0}},
		{sdfscene.KindTorusKnot, []float32{2, 3, 0}},
		{sdfscene.KindTriPrism, []float32{0, 1}},
	}
	for _, tc := range degenerate {
		for _, p := range []ms3.Vec{{X: 1, Y: 0.5, Z: 0.3}, {}, {X: -2, Y: -1, Z: 1}} {
			uv := sdfscene.UV(tc.kind, p, tc.params)
			if uv.X < 0 || uv.X >= 1 || uv.Y < 0 || uv.Y >= 1 || math32.IsNaN(uv.X) || math32.IsNaN(uv.Y) {
				t.Errorf("%s %v: uv %v out of [0,1) at %v", tc.kind, tc.params, uv, p)
			}
		}
	}
}

func TestUnknownKind(t *testing.T) {
	if d := sdfscene.Distance("blob", ms3.Vec{}, nil); d != sdfscene.MissDistance {
		t.Errorf("unknown kind distance: want miss sentinel, got %g", d)
	}
	if d := sdfscene.Distance(sdfscene.KindBox, ms3.Vec{}, []float32{1}); d != sdfscene.MissDistance {
		t.Errorf("short params distance: want miss sentinel, got %g", d)
	}
	var buf bytes.Buffer
	c := sdfscene.Compiler{Logger: log.New(&buf, "", 0)}
	prims := []sdfscene.Primitive{
		sdfscene.NewPrimitive(sdfscene.KindSphere, 1),
		sdfscene.NewPrimitive("blob", 1, 2),
		sdfscene.NewPrimitive("blob"),
		sdfscene.NewPrimitive("goo"),
	}
	f, err := c.Compile(prims)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Compile(prims[:3])
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Count(buf.String(), "\n")
	if lines != 2 {
		t.Errorf("want one diagnostic per distinct unknown kind (2), got %d:\n%s", lines, buf.String())
	}
	if d := f.Distance(ms3.Vec{X: 3}); !near(d, 2, tol) {
		t.Errorf("unknown kinds must not affect the scene: got %g, want 2", d)
	}

	// Operators that would discard the accumulator leave it alone for unknown kinds.
	box := sdfscene.NewPrimitive(sdfscene.KindBox, 1, 1, 1)
	for _, op := range []sdfscene.Op{sdfscene.OpIntersect, sdfscene.OpReplace, sdfscene.OpSmoothIntersect, sdfscene.OpSubtract} {
		blob := sdfscene.NewPrimitive("blob", 1, 2)
		blob.Op = op
		f, err := c.Compile([]sdfscene.Primitive{box, blob})
		if err != nil {
			t.Fatal(err)
		}
		p := ms3.Vec{X: 3}
		if d := f.Distance(p); !near(d, 2, tol) {
			t.Errorf("%s with unknown kind: want box distance 2, got %g", op, d)
		}
		if d, idx := f.Sample(p); idx != 0 || !near(d, 2, tol) {
			t.Errorf("%s with unknown kind: want owner 0 at distance 2, got %d at %g", op, idx, d)
		}
		if bb := f.Bounds(); bb.Max.X < 1 || bb.Min.X > -1 {
			t.Errorf("%s with unknown kind: bounds %v lost the box", op, bb)
		}
	}
}

func TestOperationAlgebra(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		d1 := rng.Float32()*10 - 5
		d2 := rng.Float32()*10 - 5
		if sdfscene.Union(d1, d2) != sdfscene.Union(d2, d1) {
			t.Fatalf("union not commutative for %g %g", d1, d2)
		}
		k := rng.Float32()
		if !near(sdfscene.SmoothUnion(d1, d2, k), sdfscene.SmoothUnion(d2, d1, k), tol) {
			t.Fatalf("smooth union not symmetric for %g %g %g", d1, d2, k)
		}
		if sdfscene.SmoothUnion(d1, d2, k) > sdfscene.Union(d1, d2)+tol {
			t.Fatalf("smooth union must not exceed union")
		}
		if sdfscene.SmoothIntersect(d1, d2, k) < sdfscene.Intersect(d1, d2)-tol {
			t.Fatalf("smooth intersect must not be below intersect")
		}
		const k0 = 1e-4
		if !near(sdfscene.SmoothUnion(d1, d2, k0), sdfscene.Union(d1, d2), k0) {
			t.Fatalf("smooth union does not converge to union for k=%g", k0)
		}
		if !near(sdfscene.SmoothSubtract(d1, d2, k0), sdfscene.Subtract(d1, d2), k0) {
			t.Fatalf("smooth subtract does not converge to subtract for k=%g", k0)
		}
		if !near(sdfscene.SmoothIntersect(d1, d2, k0), sdfscene.Intersect(d1, d2), k0) {
			t.Fatalf("smooth intersect does not converge to intersect for k=%g", k0)
		}
		if sdfscene.SmoothUnion(d1, d2, 0) != sdfscene.Union(d1, d2) {
			t.Fatalf("smooth union with k=0 must equal union exactly")
		}
		if sdfscene.SmoothSubtract(d1, d2, 0) != sdfscene.Subtract(d1, d2) {
			t.Fatalf("smooth subtract with k=0 must equal subtract exactly")
		}
		if sdfscene.SmoothIntersect(d1, d2, 0) != sdfscene.Intersect(d1, d2) {
			t.Fatalf("smooth intersect with k=0 must equal intersect exactly")
		}
	}
	if sdfscene.Subtract(1, 2) == sdfscene.Subtract(2, 1) {
		t.Error("subtract must not be commutative")
	}
	inf := math32.Inf(1)
	for _, v := range []float32{
		sdfscene.SmoothUnion(inf, 1, 0.5), sdfscene.SmoothUnion(inf, inf, 0.5), sdfscene.SmoothUnion(-inf, inf, 0.5),
		sdfscene.SmoothSubtract(inf, 1, 0.5), sdfscene.SmoothIntersect(-inf, 1, 0.5),
		sdfscene.SmoothUnion(sdfscene.MissDistance, 1, 0.5),
	} {
		if math32.IsNaN(v) {
			t.Fatal("operator produced NaN for infinite operand")
		}
	}
	if got := sdfscene.SmoothUnion(sdfscene.MissDistance, 1, 0.5); got != 1 {
		t.Errorf("miss sentinel should not contribute to smooth union, got %g", got)
	}
}

func mustCompile(t *testing.T, prims ...sdfscene.Primitive) *sdfscene.Field {
	t.Helper()
	var c sdfscene.Compiler
	f, err := c.Compile(prims)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func at(p sdfscene.Primitive, x, y, z float32) sdfscene.Primitive {
	p.Position = ms3.Vec{X: x, Y: y, Z: z}
	return p
}

func withOp(p sdfscene.Primitive, op sdfscene.Op) sdfscene.Primitive {
	p.Op = op
	return p
}

func TestFoldOrder(t *testing.T) {
	box := sdfscene.NewPrimitive(sdfscene.KindBox, 1, 1, 1)
	sphere := at(sdfscene.NewPrimitive(sdfscene.KindSphere, 0.7), 1.5, 0, 0)
	ab := mustCompile(t, box, withOp(sphere, sdfscene.OpSubtract))
	ba := mustCompile(t, sphere, withOp(box, sdfscene.OpSubtract))
	p := ms3.Vec{}
	if dab, dba := ab.Distance(p), ba.Distance(p); dab >= 0 || dba <= 0 {
		t.Errorf("fold order not observable: box-sphere=%g sphere-box=%g at origin", dab, dba)
	}
	// The first primitive's operator is ignored.
	seeded := mustCompile(t, withOp(box, sdfscene.OpSubtract), withOp(sphere, sdfscene.OpSubtract))
	if seeded.Distance(p) != ab.Distance(p) {
		t.Error("operator of first primitive must be ignored")
	}
}

func TestBoxMinusSphere(t *testing.T) {
	f := mustCompile(t,
		sdfscene.NewPrimitive(sdfscene.KindBox, 1, 1, 1),
		withOp(sdfscene.NewPrimitive(sdfscene.KindSphere, 0.7), sdfscene.OpSubtract),
	)
	if d := f.Distance(ms3.Vec{}); d <= 0 {
		t.Errorf("origin should be outside the carved box, got distance %g", d)
	}
	if d := f.Distance(ms3.Vec{X: 0.9, Y: 0.9, Z: 0.9}); d >= 0 {
		t.Errorf("box corner should remain solid, got distance %g", d)
	}
}

func TestReplaceAndIntersect(t *testing.T) {
	a := sdfscene.NewPrimitive(sdfscene.KindSphere, 1)
	b := at(sdfscene.NewPrimitive(sdfscene.KindSphere, 1), 1, 0, 0)
	p := ms3.Vec{X: -0.5}
	replaced := mustCompile(t, a, withOp(b, sdfscene.OpReplace))
	if !near(replaced.Distance(p), 0.5, tol) {
		t.Errorf("replace should discard the accumulator, got %g", replaced.Distance(p))
	}
	inter := mustCompile(t, a, withOp(b, sdfscene.OpIntersect))
	if !near(inter.Distance(p), 0.5, tol) {
		t.Errorf("intersection at %v: want 0.5, got %g", p, inter.Distance(p))
	}
	if inter.Distance(ms3.Vec{X: 0.5}) >= 0 {
		t.Error("lens center should be inside intersection")
	}
}

func TestCompileErrors(t *testing.T) {
	var c sdfscene.Compiler
	bad := []sdfscene.Primitive{
		sdfscene.NewPrimitive(sdfscene.KindSphere, 1, 2),
		sdfscene.NewPrimitive(sdfscene.KindBox, 1),
		{Kind: sdfscene.KindSphere, Params: []float32{1}, BlendStrength: -1},
		{Kind: sdfscene.KindSphere, Params: []float32{1}, Op: "xor"},
	}
	f, err := c.Compile(bad)
	if err == nil || f != nil {
		t.Fatal("expected compile error")
	}
	var ae *sdfscene.ArityError
	if !errors.As(err, &ae) {
		t.Fatalf("expected ArityError in %v", err)
	}
	if ae.Index != 0 || ae.Want != 1 || ae.Got != 2 {
		t.Errorf("unexpected arity error %+v", ae)
	}
	msg := err.Error()
	for _, want := range []string{"primitive 1", "negative blend", "xor"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %q", msg, want)
		}
	}
}

func TestEmptyField(t *testing.T) {
	f := mustCompile(t)
	for _, p := range []ms3.Vec{{}, {X: 1e6}, {Y: -3}} {
		if d := f.Distance(p); d != sdfscene.MissDistance {
			t.Errorf("empty field at %v: want miss, got %g", p, d)
		}
	}
	var nilField *sdfscene.Field
	if nilField.Distance(ms3.Vec{}) != sdfscene.MissDistance {
		t.Error("nil field should miss")
	}
}

func TestTransforms(t *testing.T) {
	sphere := sdfscene.NewPrimitive(sdfscene.KindSphere, 1)
	sphere.Position = ms3.Vec{X: 2}
	sphere.Scale = ms3.Vec{X: 2, Y: 2, Z: 2}
	f := mustCompile(t, sphere)
	if d := f.Distance(ms3.Vec{X: 5}); !near(d, 1, tol) {
		t.Errorf("scaled translated sphere: want 1, got %g", d)
	}
	slab := sdfscene.NewPrimitive(sdfscene.KindBox, 1, 0.1, 0.1)
	slab.Rotation = ms3.Vec{Z: math32.Pi / 2}
	f = mustCompile(t, slab)
	if d := f.Distance(ms3.Vec{Y: 1}); !near(d, 0, tol) {
		t.Errorf("rotated slab: want surface at (0,1,0), got %g", d)
	}
	if d := f.Distance(ms3.Vec{X: 1}); !near(d, 0.9, tol) {
		t.Errorf("rotated slab: want 0.9 at (1,0,0), got %g", d)
	}
	p := ms3.Vec{X: 0.3, Y: -1.2, Z: 2}
	if got := slab.ToParent(slab.ToLocal(p)); !vecNear(got, p, tol) {
		t.Errorf("ToParent(ToLocal(p)) = %v, want %v", got, p)
	}
}

func TestEulerRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		e := ms3.Vec{
			X: (rng.Float32()*2 - 1) * math32.Pi * 0.99,
			Y: (rng.Float32()*2 - 1) * math32.Pi / 2 * 0.98,
			Z: (rng.Float32()*2 - 1) * math32.Pi * 0.99,
		}
		got := sdfscene.EulerRotation(e).Euler()
		if !vecNear(got, e, 1e-3) {
			t.Fatalf("euler round trip: want %v, got %v", e, got)
		}
	}
}

func TestAlignRotation(t *testing.T) {
	up := ms3.Vec{Y: 1}
	for _, to := range []ms3.Vec{{X: 1}, {Y: 1}, {Y: -1}, {X: 1, Y: 1, Z: 1}, {Z: -2}} {
		r := sdfscene.AlignRotation(up, to)
		if got := r.Apply(up); !vecNear(got, ms3.Unit(to), tol) {
			t.Errorf("align %v: got %v", to, got)
		}
		// Rotations preserve length.
		v := ms3.Vec{X: 0.3, Y: -0.4, Z: 1.2}
		if !near(ms3.Norm(r.Apply(v)), ms3.Norm(v), tol) {
			t.Errorf("align %v is not orthonormal", to)
		}
	}
}

func TestSampleOwner(t *testing.T) {
	a := sdfscene.NewPrimitive(sdfscene.KindSphere, 1)
	a.Material = "A"
	b := at(sdfscene.NewPrimitive(sdfscene.KindSphere, 1), 3, 0, 0)
	b.Material = "B"
	cutter := at(sdfscene.NewPrimitive(sdfscene.KindSphere, 0.5), 3, 1, 0)
	cutter.Op = sdfscene.OpSubtract
	cutter.Material = "C"
	f := mustCompile(t, a, b, cutter)
	_, i := f.Sample(ms3.Vec{X: -1.1})
	if f.Material(i) != "A" {
		t.Errorf("want owner A, got %q", f.Material(i))
	}
	_, i = f.Sample(ms3.Vec{X: 4.1})
	if f.Material(i) != "B" {
		t.Errorf("want owner B, got %q", f.Material(i))
	}
	_, i = f.Sample(ms3.Vec{X: 3, Y: 0.6})
	if f.Material(i) != "B" {
		t.Errorf("carved wall should keep owner B, got %q", f.Material(i))
	}
	empty := mustCompile(t)
	if _, i := empty.Sample(ms3.Vec{}); i != -1 {
		t.Errorf("empty field owner: want -1, got %d", i)
	}
}

func TestFieldBounds(t *testing.T) {
	f := mustCompile(t,
		at(sdfscene.NewPrimitive(sdfscene.KindSphere, 1), -2, 0, 0),
		at(sdfscene.NewPrimitive(sdfscene.KindBox, 1, 1, 1), 2, 0, 0),
	)
	bb := f.Bounds()
	if !vecNear(bb.Min, ms3.Vec{X: -3, Y: -1, Z: -1}, tol) || !vecNear(bb.Max, ms3.Vec{X: 3, Y: 1, Z: 1}, tol) {
		t.Errorf("unexpected bounds %+v", bb)
	}
	pos := []ms3.Vec{{X: -2}, {X: 2}, {X: 10}}
	dist := make([]float32, len(pos))
	if err := f.Evaluate(pos, dist, nil); err != nil {
		t.Fatal(err)
	}
	for i, p := range pos {
		if dist[i] != f.Distance(p) {
			t.Errorf("batch evaluation differs from Distance at %v", p)
		}
	}
	if err := f.Evaluate(pos, dist[:1], nil); err == nil {
		t.Error("expected buffer length mismatch error")
	}
}

func TestStage(t *testing.T) {
	stage := sdfscene.NewStage(nil)
	if stage.Field().Distance(ms3.Vec{}) != sdfscene.MissDistance {
		t.Fatal("new stage should hold an empty field")
	}
	prims := []sdfscene.Primitive{sdfscene.NewPrimitive(sdfscene.KindSphere, 1)}
	changed, err := stage.Update(prims)
	if err != nil || !changed {
		t.Fatalf("first update: changed=%v err=%v", changed, err)
	}
	first := stage.Field()
	changed, err = stage.Update([]sdfscene.Primitive{sdfscene.NewPrimitive(sdfscene.KindSphere, 1)})
	if err != nil || changed || stage.Field() != first {
		t.Fatalf("structurally equal update should not recompile: changed=%v err=%v", changed, err)
	}
	prims[0].Params = []float32{2}
	changed, err = stage.Update(prims)
	if err != nil || !changed || stage.Field() == first {
		t.Fatalf("edited list should recompile: changed=%v err=%v", changed, err)
	}
	if d := first.Distance(ms3.Vec{X: 3}); !near(d, 2, tol) {
		t.Errorf("published fields must never change, got %g", d)
	}
	second := stage.Field()
	_, err = stage.Update([]sdfscene.Primitive{sdfscene.NewPrimitive(sdfscene.KindBox)})
	if err == nil {
		t.Fatal("expected arity error")
	}
	if stage.Field() != second {
		t.Error("failed update must keep the current field")
	}
}

func TestSceneClone(t *testing.T) {
	s := sdfscene.Scene{
		Primitives: []sdfscene.Primitive{sdfscene.NewPrimitive(sdfscene.KindSphere, 1)},
		Lighting:   sdfscene.DefaultLighting(),
	}
	s.Primitives[0].Texture = &sdfscene.TextureBinding{Diffuse: "rock"}
	c, err := s.Clone()
	if err != nil {
		t.Fatal(err)
	}
	c.Primitives[0].Params[0] = 5
	c.Primitives[0].Texture.Diffuse = "sand"
	if s.Primitives[0].Params[0] != 1 || s.Primitives[0].Texture.Diffuse != "rock" {
		t.Error("clone shares memory with the original scene")
	}
	if len(s.Lighting.Lights()) != 2 {
		t.Errorf("default lighting should yield ambient and directional lights")
	}
}

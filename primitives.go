package sdfscene

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

type catalogEntry struct {
	arity  int
	dist   func(p ms3.Vec, a []float32) float32
	uv     func(p ms3.Vec, a []float32) ms2.Vec
	bounds func(a []float32) ms3.Box
}

var catalog map[Kind]catalogEntry

func init() {
	catalog = map[Kind]catalogEntry{
		KindSphere:         {1, sdSphere, uvSphere, boundsSphere},
		KindBox:            {3, sdBox, uvBox, boundsBox},
		KindRoundedBox:     {4, sdRoundedBox, uvBox, boundsBox},
		KindCylinder:       {2, sdCylinder, uvCylinder, boundsCylinder},
		KindCappedCylinder: {2, sdCylinder, uvCylinder, boundsCylinder},
		KindCone:           {3, sdCone, uvCone, boundsCone},
		KindRoundCone:      {3, sdRoundCone, uvRoundCone, boundsRoundCone},
		KindPyramid:        {1, sdPyramid, uvPyramid, boundsPyramid},
		KindTorus:          {2, sdTorus, uvTorus, boundsTorus},
		KindOctahedron:     {1, sdOctahedron, uvOctahedron, boundsSphere},
		KindHexPrism:       {2, sdHexPrism, uvHexPrism, boundsHexPrism},
		KindTriPrism:       {2, sdTriPrism, uvTriPrism, boundsTriPrism},
		KindCapsule:        {4, sdCapsule, uvCapsule, boundsCapsule},
		KindEllipsoid:      {3, sdEllipsoid, uvEllipsoid, boundsBox},
		KindPlane:          {4, sdPlane, uvPlane, boundsInfinite},
		KindSuperellipsoid: {3, sdSuperellipsoid, uvSuperellipsoid, boundsSuperellipsoid},
		KindTorusKnot:      {3, sdTorusKnot, uvTorusKnot, boundsTorusKnot},
		KindMengerSponge:   {1, sdMengerSponge, uvMengerSponge, boundsMenger},
		KindGyroid:         {2, sdGyroid, uvGyroid, boundsInfinite},
		KindPOrbital:       {1, sdPOrbital, uvSphere, boundsPOrbital},
		KindDOrbital:       {1, sdDOrbital, uvDOrbital, boundsDOrbital},
	}
}

// Distance returns the signed distance from p, given in the primitive's local frame,
// to the surface of a primitive of the given kind. Unknown kinds and short parameter
// lists yield [MissDistance]. Compiled fields leave unknown kinds out of the fold.
//
// Every kind is exact or a bound close to exact near its surface except
// ellipsoid, superellipsoid, torus knot, gyroid and menger sponge, whose gradients
// may stray from unit length. Raymarchers compensate with step damping.
func Distance(kind Kind, p ms3.Vec, params []float32) float32 {
	e, ok := catalog[kind]
	if !ok || len(params) < e.arity {
		return MissDistance
	}
	return e.dist(p, params)
}

// UV returns texture coordinates in [0,1)² for p in the primitive's local frame.
// Periodic and fractal kinds use projections that are not bijective.
func UV(kind Kind, p ms3.Vec, params []float32) ms2.Vec {
	e, ok := catalog[kind]
	if !ok || len(params) < e.arity {
		return ms2.Vec{}
	}
	uv := e.uv(p, params)
	if !finite(uv.X) || !finite(uv.Y) {
		// Degenerate parameters divide by zero in the projections.
		return ms2.Vec{}
	}
	return ms2.Vec{X: fractf(uv.X), Y: fractf(uv.Y)}
}

// Bounds returns a local frame box containing the primitive's surface. Unbounded kinds
// (plane, gyroid) and unknown kinds return a box with infinite extents.
func Bounds(kind Kind, params []float32) ms3.Box {
	e, ok := catalog[kind]
	if !ok || len(params) < e.arity {
		return boundsInfinite(nil)
	}
	return e.bounds(params)
}

func sdSphere(p ms3.Vec, a []float32) float32 {
	return ms3.Norm(p) - a[0]
}

func sdBox(p ms3.Vec, a []float32) float32 {
	q := ms3.Sub(ms3.AbsElem(p), ms3.Vec{X: a[0], Y: a[1], Z: a[2]})
	return ms3.Norm(ms3.MaxElem(q, ms3.Vec{})) + minf(maxcomp(q), 0)
}

func sdRoundedBox(p ms3.Vec, a []float32) float32 {
	r := a[3]
	q := ms3.Sub(ms3.AbsElem(p), ms3.Vec{X: a[0] - r, Y: a[1] - r, Z: a[2] - r})
	return ms3.Norm(ms3.MaxElem(q, ms3.Vec{})) + minf(maxcomp(q), 0) - r
}

func sdCylinder(p ms3.Vec, a []float32) float32 {
	h, r := a[0], a[1]
	dx := hypotf(p.X, p.Z) - r
	dy := absf(p.Y) - h
	return minf(maxf(dx, dy), 0) + hypotf(maxf(dx, 0), maxf(dy, 0))
}

func sdCone(p ms3.Vec, a []float32) float32 {
	c := ms2.Vec{X: a[0], Y: a[1]}
	h := a[2]
	q := ms2.Vec{X: h * c.X / c.Y, Y: -h}
	w := ms2.Vec{X: hypotf(p.X, p.Z), Y: p.Y}
	qq := dot2(q, q)
	if qq < epstol {
		return ms3.Norm(p)
	}
	ta := clampf(dot2(w, q)/qq, 0, 1)
	va := ms2.Vec{X: w.X - q.X*ta, Y: w.Y - q.Y*ta}
	var tb float32
	if q.X != 0 {
		tb = clampf(w.X/q.X, 0, 1)
	}
	vb := ms2.Vec{X: w.X - q.X*tb, Y: w.Y - q.Y}
	k := signf(q.Y)
	d := minf(dot2(va, va), dot2(vb, vb))
	s := maxf(k*(w.X*q.Y-w.Y*q.X), k*(w.Y-q.Y))
	return math32.Sqrt(d) * signf(s)
}

func sdRoundCone(p ms3.Vec, a []float32) float32 {
	r1, r2, h := a[0], a[1], a[2]
	if h < epstol {
		return ms3.Norm(p) - maxf(r1, r2)
	}
	q := ms2.Vec{X: hypotf(p.X, p.Z), Y: p.Y}
	b := (r1 - r2) / h
	ca := math32.Sqrt(maxf(1-b*b, 0))
	k := -b*q.X + ca*q.Y
	switch {
	case k < 0:
		return ms2.Norm(q) - r1
	case k > ca*h:
		return hypotf(q.X, q.Y-h) - r2
	}
	return q.X*ca + q.Y*b - r1
}

func sdPyramid(p ms3.Vec, a []float32) float32 {
	h := a[0]
	m2 := h*h + 0.25
	px, pz := absf(p.X), absf(p.Z)
	if pz > px {
		px, pz = pz, px
	}
	px -= 0.5
	pz -= 0.5
	qx := pz
	qy := h*p.Y - 0.5*px
	qz := h*px + 0.5*p.Y
	s := maxf(-qx, 0)
	t := clampf((qy-0.5*pz)/(m2+0.25), 0, 1)
	da := m2*(qx+s)*(qx+s) + qy*qy
	db := m2*(qx+0.5*t)*(qx+0.5*t) + (qy-m2*t)*(qy-m2*t)
	var d2 float32
	if minf(qy, -qx*m2-qy*0.5) <= 0 {
		d2 = minf(da, db)
	}
	return math32.Sqrt((d2+qz*qz)/m2) * signf(maxf(qz, -p.Y))
}

func sdTorus(p ms3.Vec, a []float32) float32 {
	return hypotf(hypotf(p.X, p.Z)-a[0], p.Y) - a[1]
}

func sdOctahedron(p ms3.Vec, a []float32) float32 {
	s := a[0]
	p = ms3.AbsElem(p)
	m := p.X + p.Y + p.Z - s
	var q ms3.Vec
	switch {
	case 3*p.X < m:
		q = p
	case 3*p.Y < m:
		q = ms3.Vec{X: p.Y, Y: p.Z, Z: p.X}
	case 3*p.Z < m:
		q = ms3.Vec{X: p.Z, Y: p.X, Z: p.Y}
	default:
		return m * invsqrt3
	}
	k := clampf(0.5*(q.Z-q.Y+s), 0, s)
	return ms3.Norm(ms3.Vec{X: q.X, Y: q.Y - s + k, Z: q.Z - k})
}

func sdHexPrism(p ms3.Vec, a []float32) float32 {
	const kx, ky, kz = -tribisect, 0.5, invsqrt3
	hx, hy := a[0], a[1]
	p = ms3.AbsElem(p)
	reflect := 2 * minf(kx*p.X+ky*p.Y, 0)
	p.X -= reflect * kx
	p.Y -= reflect * ky
	dx := hypotf(p.X-clampf(p.X, -kz*hx, kz*hx), p.Y-hx) * signf(p.Y-hx)
	dy := p.Z - hy
	return minf(maxf(dx, dy), 0) + hypotf(maxf(dx, 0), maxf(dy, 0))
}

func sdTriPrism(p ms3.Vec, a []float32) float32 {
	hx, hy := a[0], a[1]
	q := ms3.AbsElem(p)
	return maxf(q.Z-hy, maxf(q.X*tribisect+p.Y*0.5, -p.Y)-hx*0.5)
}

func sdCapsule(p ms3.Vec, a []float32) float32 {
	b := ms3.Vec{X: a[0], Y: a[1], Z: a[2]}
	bb := ms3.Dot(b, b)
	if bb < epstol {
		return ms3.Norm(p) - a[3]
	}
	h := clampf(ms3.Dot(p, b)/bb, 0, 1)
	return ms3.Norm(ms3.Sub(p, ms3.Scale(h, b))) - a[3]
}

func sdEllipsoid(p ms3.Vec, a []float32) float32 {
	r := ms3.Vec{X: a[0], Y: a[1], Z: a[2]}
	k0 := ms3.Norm(ms3.DivElem(p, r))
	k1 := ms3.Norm(ms3.DivElem(p, ms3.MulElem(r, r)))
	if k1 < epstol {
		return -minf(r.X, minf(r.Y, r.Z))
	}
	return k0 * (k0 - 1) / k1
}

func sdPlane(p ms3.Vec, a []float32) float32 {
	return ms3.Dot(p, planeNormal(a)) + a[3]
}

func planeNormal(a []float32) ms3.Vec {
	n := ms3.Vec{X: a[0], Y: a[1], Z: a[2]}
	if ms3.Norm(n) < epstol {
		return ms3.Vec{Y: 1}
	}
	return ms3.Unit(n)
}

func sdSuperellipsoid(p ms3.Vec, a []float32) float32 {
	e1, e2, size := a[0], a[1], a[2]
	if e1 <= 0 || e2 <= 0 || size <= 0 {
		return MissDistance
	}
	q := ms3.Scale(1/size, ms3.AbsElem(p))
	x := math32.Pow(q.X, 2/e2)
	y := math32.Pow(q.Y, 2/e2)
	z := math32.Pow(q.Z, 2/e1)
	return (math32.Pow(math32.Pow(x+y, e2/e1)+z, e1/2) - 1) * size
}

func sdTorusKnot(p ms3.Vec, a []float32) float32 {
	pw, qw, scale := a[0], a[1], a[2]
	r1 := 0.5 * scale
	r2 := 0.15 * scale
	theta := math32.Atan2(p.Y, p.X)
	phi := math32.Atan2(p.Z, hypotf(p.X, p.Y)-r1)
	ring := r1 + r2*math32.Cos(qw*phi)
	curve := ms3.Vec{
		X: ring * math32.Cos(pw*theta),
		Y: ring * math32.Sin(pw*theta),
		Z: r2 * math32.Sin(qw*phi),
	}
	return ms3.Norm(ms3.Sub(p, curve)) - 0.05*scale
}

// sdMengerSponge carves three iterations of crosses out of a box of half size a[0].
func sdMengerSponge(p ms3.Vec, a []float32) float32 {
	size := a[0]
	if size <= 0 {
		return MissDistance
	}
	p = ms3.Scale(1/size, p)
	d := sdBox(p, []float32{1, 1, 1})
	var s float32 = 1
	for i := 0; i < 3; i++ {
		ax := modf(p.X*s, 2) - 1
		ay := modf(p.Y*s, 2) - 1
		az := modf(p.Z*s, 2) - 1
		s *= 3
		rx := absf(1 - 3*absf(ax))
		ry := absf(1 - 3*absf(ay))
		rz := absf(1 - 3*absf(az))
		da := maxf(rx, ry)
		db := maxf(ry, rz)
		dc := maxf(rz, rx)
		c := (minf(da, minf(db, dc)) - 1) / s
		d = maxf(d, c)
	}
	return d * size
}

func sdGyroid(p ms3.Vec, a []float32) float32 {
	scale, thickness := a[0], a[1]
	if scale == 0 {
		return MissDistance
	}
	p = ms3.Scale(scale, p)
	g := math32.Sin(p.X)*math32.Cos(p.Y) + math32.Sin(p.Y)*math32.Cos(p.Z) + math32.Sin(p.Z)*math32.Cos(p.X)
	return (absf(g) - thickness) / absf(scale)
}

func sdPOrbital(p ms3.Vec, a []float32) float32 {
	size := a[0]
	off := ms3.Vec{Y: 0.3 * size}
	s1 := ms3.Norm(ms3.Sub(p, off)) - 0.4*size
	s2 := ms3.Norm(ms3.Add(p, off)) - 0.4*size
	return minf(s1, s2)
}

// sdDOrbital is the union of a torus on the XZ plane and the same torus on the XY plane.
func sdDOrbital(p ms3.Vec, a []float32) float32 {
	size := a[0]
	t := []float32{0.5 * size, 0.1 * size}
	return minf(sdTorus(p, t), sdTorus(ms3.Vec{X: p.X, Y: p.Z, Z: p.Y}, t))
}

func dot2(a, b ms2.Vec) float32 {
	return a.X*b.X + a.Y*b.Y
}

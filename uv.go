package sdfscene

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// UV projections return unwrapped coordinates, [UV] wraps them into [0,1).

func longitude(x, z float32) float32 {
	return 0.5 + math32.Atan2(z, x)/twoPi
}

func uvSphere(p ms3.Vec, _ []float32) ms2.Vec {
	n := p
	if l := ms3.Norm(p); l > epstol {
		n = ms3.Scale(1/l, p)
	}
	return ms2.Vec{
		X: longitude(n.X, n.Z),
		Y: 0.5 - math32.Asin(clampf(n.Y, -1, 1))/math32.Pi,
	}
}

func uvEllipsoid(p ms3.Vec, a []float32) ms2.Vec {
	return uvSphere(ms3.DivElem(p, ms3.Vec{X: a[0], Y: a[1], Z: a[2]}), nil)
}

func uvSuperellipsoid(p ms3.Vec, _ []float32) ms2.Vec {
	return uvSphere(p, nil)
}

// boxFaceUV projects p onto the face of a box with half extents b whose normal
// is the dominant axis of p relative to b.
func boxFaceUV(p, b ms3.Vec) ms2.Vec {
	rel := ms3.AbsElem(ms3.DivElem(p, b))
	switch {
	case rel.X >= rel.Y && rel.X >= rel.Z:
		return ms2.Vec{X: p.Z/(2*b.Z) + 0.5, Y: p.Y/(2*b.Y) + 0.5}
	case rel.Y >= rel.Z:
		return ms2.Vec{X: p.X/(2*b.X) + 0.5, Y: p.Z/(2*b.Z) + 0.5}
	}
	return ms2.Vec{X: p.X/(2*b.X) + 0.5, Y: p.Y/(2*b.Y) + 0.5}
}

func uvBox(p ms3.Vec, a []float32) ms2.Vec {
	return boxFaceUV(p, ms3.Vec{X: a[0], Y: a[1], Z: a[2]})
}

func uvMengerSponge(p ms3.Vec, a []float32) ms2.Vec {
	return boxFaceUV(p, ms3.Vec{X: a[0], Y: a[0], Z: a[0]})
}

func heightUV(p ms3.Vec, height float32) ms2.Vec {
	return ms2.Vec{X: longitude(p.X, p.Z), Y: (p.Y + height) / (2 * height)}
}

func uvCylinder(p ms3.Vec, a []float32) ms2.Vec {
	return heightUV(p, a[0])
}

func uvCone(p ms3.Vec, a []float32) ms2.Vec {
	// The cone spans y in [-h, 0].
	return ms2.Vec{X: longitude(p.X, p.Z), Y: (p.Y + a[2]) / a[2]}
}

func uvRoundCone(p ms3.Vec, a []float32) ms2.Vec {
	h := a[2]
	return ms2.Vec{X: longitude(p.X, p.Z), Y: (p.Y + a[0]) / (h + a[0] + a[1])}
}

func uvHexPrism(p ms3.Vec, a []float32) ms2.Vec {
	// Prism axis is Z, so the height coordinate runs along it.
	return ms2.Vec{X: longitude(p.X, p.Y), Y: (p.Z + a[1]) / (2 * a[1])}
}

func uvTriPrism(p ms3.Vec, a []float32) ms2.Vec {
	return ms2.Vec{X: (p.X/a[0] + 1) * 0.5, Y: (p.Z/a[1] + 1) * 0.5}
}

func uvPyramid(p ms3.Vec, a []float32) ms2.Vec {
	return ms2.Vec{X: p.X + 0.5, Y: p.Z + 0.5}
}

func uvTorus(p ms3.Vec, a []float32) ms2.Vec {
	qx := hypotf(p.X, p.Z) - a[0]
	return ms2.Vec{
		X: longitude(p.X, p.Z),
		Y: 0.5 + math32.Atan2(p.Y, qx)/twoPi,
	}
}

func uvDOrbital(p ms3.Vec, a []float32) ms2.Vec {
	return uvTorus(p, []float32{0.5 * a[0], 0.1 * a[0]})
}

func uvOctahedron(p ms3.Vec, _ []float32) ms2.Vec {
	l1 := absf(p.X) + absf(p.Y) + absf(p.Z)
	if l1 < epstol {
		return ms2.Vec{X: 0.5, Y: 0.5}
	}
	n := ms3.Scale(1/l1, p)
	var u, v float32
	if n.Y >= 0 {
		u, v = n.X, n.Z
	} else {
		// Fold the lower hemisphere over the diagonals of the unit square.
		u = (1 - absf(n.Z)) * stepSign(n.X)
		v = (1 - absf(n.X)) * stepSign(n.Z)
	}
	return ms2.Vec{X: u*0.5 + 0.5, Y: v*0.5 + 0.5}
}

func stepSign(a float32) float32 {
	if a >= 0 {
		return 1
	}
	return -1
}

func uvCapsule(p ms3.Vec, a []float32) ms2.Vec {
	b := ms3.Vec{X: a[0], Y: a[1], Z: a[2]}
	var h float32
	if bb := ms3.Dot(b, b); bb > epstol {
		h = clampf(ms3.Dot(p, b)/bb, 0, 0.9999)
	}
	dir := ms3.Sub(p, ms3.Scale(h, b))
	return ms2.Vec{X: longitude(dir.X, dir.Z), Y: h}
}

func uvPlane(p ms3.Vec, a []float32) ms2.Vec {
	n := ms3.AbsElem(planeNormal(a))
	switch {
	case n.Y > n.X && n.Y > n.Z:
		return ms2.Vec{X: p.X * 0.1, Y: p.Z * 0.1}
	case n.X > n.Z:
		return ms2.Vec{X: p.Y * 0.1, Y: p.Z * 0.1}
	}
	return ms2.Vec{X: p.X * 0.1, Y: p.Y * 0.1}
}

func uvGyroid(p ms3.Vec, a []float32) ms2.Vec {
	s := a[0] * 0.1
	return ms2.Vec{X: p.X * s, Y: p.Y * s}
}

func uvTorusKnot(p ms3.Vec, a []float32) ms2.Vec {
	return ms2.Vec{
		X: 0.5 + math32.Atan2(p.Y, p.X)/twoPi,
		Y: ms3.Norm(p) / a[2],
	}
}

func boundsSphere(a []float32) ms3.Box {
	return ms3.NewCenteredBox(ms3.Vec{}, ms3.Vec{X: 2 * a[0], Y: 2 * a[0], Z: 2 * a[0]})
}

func boundsBox(a []float32) ms3.Box {
	return ms3.NewCenteredBox(ms3.Vec{}, ms3.Vec{X: 2 * a[0], Y: 2 * a[1], Z: 2 * a[2]})
}

func boundsCylinder(a []float32) ms3.Box {
	h, r := a[0], a[1]
	return ms3.Box{Min: ms3.Vec{X: -r, Y: -h, Z: -r}, Max: ms3.Vec{X: r, Y: h, Z: r}}
}

func boundsCone(a []float32) ms3.Box {
	h := a[2]
	r := absf(h * a[0] / a[1])
	if math32.IsInf(r, 0) || math32.IsNaN(r) {
		return boundsInfinite(nil)
	}
	return ms3.Box{Min: ms3.Vec{X: -r, Y: -h, Z: -r}, Max: ms3.Vec{X: r, Y: 0, Z: r}}
}

func boundsRoundCone(a []float32) ms3.Box {
	r1, r2, h := a[0], a[1], a[2]
	r := maxf(r1, r2)
	return ms3.Box{Min: ms3.Vec{X: -r, Y: -r1, Z: -r}, Max: ms3.Vec{X: r, Y: h + r2, Z: r}}
}

func boundsPyramid(a []float32) ms3.Box {
	return ms3.Box{Min: ms3.Vec{X: -0.5, Z: -0.5}, Max: ms3.Vec{X: 0.5, Y: a[0], Z: 0.5}}
}

func boundsTorus(a []float32) ms3.Box {
	R := a[0] + a[1]
	return ms3.Box{Min: ms3.Vec{X: -R, Y: -a[1], Z: -R}, Max: ms3.Vec{X: R, Y: a[1], Z: R}}
}

func boundsHexPrism(a []float32) ms3.Box {
	lx := a[0] / tribisect
	return ms3.Box{Min: ms3.Vec{X: -lx, Y: -lx, Z: -a[1]}, Max: ms3.Vec{X: lx, Y: lx, Z: a[1]}}
}

func boundsTriPrism(a []float32) ms3.Box {
	return ms3.Box{Min: ms3.Vec{X: -a[0], Y: -a[0], Z: -a[1]}, Max: ms3.Vec{X: a[0], Y: a[0], Z: a[1]}}
}

func boundsCapsule(a []float32) ms3.Box {
	b := ms3.Vec{X: a[0], Y: a[1], Z: a[2]}
	r := ms3.Vec{X: a[3], Y: a[3], Z: a[3]}
	lo := ms3.Vec{X: minf(0, b.X), Y: minf(0, b.Y), Z: minf(0, b.Z)}
	hi := ms3.Vec{X: maxf(0, b.X), Y: maxf(0, b.Y), Z: maxf(0, b.Z)}
	return ms3.Box{Min: ms3.Sub(lo, r), Max: ms3.Add(hi, r)}
}

func boundsSuperellipsoid(a []float32) ms3.Box {
	s := a[2]
	return ms3.NewCenteredBox(ms3.Vec{}, ms3.Vec{X: 2 * s, Y: 2 * s, Z: 2 * s})
}

func boundsTorusKnot(a []float32) ms3.Box {
	s := a[2]
	R := 0.7 * s
	return ms3.Box{Min: ms3.Vec{X: -R, Y: -R, Z: -0.2 * s}, Max: ms3.Vec{X: R, Y: R, Z: 0.2 * s}}
}

func boundsMenger(a []float32) ms3.Box {
	return boundsSphere(a)
}

func boundsPOrbital(a []float32) ms3.Box {
	s := a[0]
	return ms3.Box{Min: ms3.Vec{X: -0.4 * s, Y: -0.7 * s, Z: -0.4 * s}, Max: ms3.Vec{X: 0.4 * s, Y: 0.7 * s, Z: 0.4 * s}}
}

func boundsDOrbital(a []float32) ms3.Box {
	R := 0.6 * a[0]
	return ms3.NewCenteredBox(ms3.Vec{}, ms3.Vec{X: 2 * R, Y: 2 * R, Z: 2 * R})
}

func boundsInfinite([]float32) ms3.Box {
	inf := math32.Inf(1)
	return ms3.Box{Min: ms3.Vec{X: -inf, Y: -inf, Z: -inf}, Max: ms3.Vec{X: inf, Y: inf, Z: inf}}
}

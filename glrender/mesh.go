package glrender

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/chewxy/math32"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/ebb-bloom/sdfscene/gleval"
	"github.com/soypat/geometry/ms3"
)

// DefaultMeshCells is the number of marching cubes cells along the longest bounding box side.
const DefaultMeshCells = 128

var (
	errUnbounded = errors.New("cannot mesh field with unbounded or empty bounds")
	errSTLHeader = errors.New("short STL header")
)

// Mesh tessellates the surface of s with uniform marching cubes over its bounds,
// padded by 10%. cells is the resolution along the longest side; zero means
// [DefaultMeshCells]. Evaluations go through a [gleval.CachedSDF3] since cubes share corners;
// s is used as is if it already is one.
func Mesh(s gleval.SDF3, cells int) ([]ms3.Triangle, error) {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	bb := s.Bounds()
	if !finiteBox(bb) || bb.Min == bb.Max {
		return nil, errUnbounded
	}
	bb = bb.ScaleCentered(ms3.Vec{X: 1.1, Y: 1.1, Z: 1.1})
	if _, cached := s.(*gleval.CachedSDF3); !cached {
		s = &gleval.CachedSDF3{SDF: s}
	}
	adapter := &sdfxField{
		s: s,
		bb: sdf.Box3{
			Min: v3.Vec{X: float64(bb.Min.X), Y: float64(bb.Min.Y), Z: float64(bb.Min.Z)},
			Max: v3.Vec{X: float64(bb.Max.X), Y: float64(bb.Max.Y), Z: float64(bb.Max.Z)},
		},
	}
	mesh := render.ToTriangles(adapter, render.NewMarchingCubesUniform(cells))
	if err := adapter.Err(); err != nil {
		return nil, err
	}
	triangles := make([]ms3.Triangle, 0, len(mesh))
	for _, tri := range mesh {
		var t ms3.Triangle
		for j := 0; j < 3; j++ {
			t[j] = ms3.Vec{X: float32(tri[j].X), Y: float32(tri[j].Y), Z: float32(tri[j].Z)}
		}
		triangles = append(triangles, t)
	}
	return triangles, nil
}

// ExportSTL meshes s with [Mesh] and writes the result to w as binary STL.
// It returns the number of triangles written.
func ExportSTL(w io.Writer, s gleval.SDF3, cells int) (int, error) {
	triangles, err := Mesh(s, cells)
	if err != nil {
		return 0, err
	}
	_, err = WriteBinarySTL(w, triangles)
	if err != nil {
		return 0, fmt.Errorf("writing STL: %w", err)
	}
	return len(triangles), nil
}

func finiteBox(bb ms3.Box) bool {
	for _, v := range [6]float32{bb.Min.X, bb.Min.Y, bb.Min.Z, bb.Max.X, bb.Max.Y, bb.Max.Z} {
		if math32.IsInf(v, 0) || math32.IsNaN(v) {
			return false
		}
	}
	return true
}

// sdfxField adapts a [gleval.SDF3] to the sdfx SDF3 interface.
// The first evaluation error is kept and every later evaluation returns +Inf.
type sdfxField struct {
	s  gleval.SDF3
	bb sdf.Box3

	mu  sync.Mutex
	err error
}

var _ sdf.SDF3 = (*sdfxField)(nil)

func (a *sdfxField) Evaluate(p v3.Vec) float64 {
	pos := [1]ms3.Vec{{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}}
	var dist [1]float32
	err := a.s.Evaluate(pos[:], dist[:], nil)
	if err != nil {
		a.mu.Lock()
		if a.err == nil {
			a.err = err
		}
		a.mu.Unlock()
		return math.Inf(1)
	}
	return float64(dist[0])
}

func (a *sdfxField) BoundingBox() sdf.Box3 { return a.bb }

func (a *sdfxField) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

const stlTriangleSize = 50 // 12 float32 and a uint16 attribute.

// WriteBinarySTL writes triangles in binary STL format with facet normals computed
// from the winding order.
func WriteBinarySTL(w io.Writer, triangles []ms3.Triangle) (int, error) {
	var header [84]byte
	copy(header[:], "binary STL")
	binary.LittleEndian.PutUint32(header[80:], uint32(len(triangles)))
	n, err := w.Write(header[:])
	if err != nil {
		return n, err
	}
	var buf [stlTriangleSize]byte
	for _, t := range triangles {
		normal := triangleNormal(t)
		putVec(buf[0:], normal)
		putVec(buf[12:], t[0])
		putVec(buf[24:], t[1])
		putVec(buf[36:], t[2])
		ngot, err := w.Write(buf[:])
		n += ngot
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// ReadBinarySTL reads triangles written by [WriteBinarySTL] or any binary STL writer.
func ReadBinarySTL(r io.Reader) ([]ms3.Triangle, error) {
	var header [84]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, errSTLHeader
	}
	count := binary.LittleEndian.Uint32(header[80:])
	triangles := make([]ms3.Triangle, 0, min(count, 1<<20))
	var buf [stlTriangleSize]byte
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return triangles, fmt.Errorf("reading triangle %d of %d: %w", i, count, err)
		}
		triangles = append(triangles, ms3.Triangle{getVec(buf[12:]), getVec(buf[24:]), getVec(buf[36:])})
	}
	return triangles, nil
}

func triangleNormal(t ms3.Triangle) ms3.Vec {
	n := cross(ms3.Sub(t[1], t[0]), ms3.Sub(t[2], t[0]))
	if norm := ms3.Norm(n); norm > 0 {
		return ms3.Scale(1/norm, n)
	}
	return ms3.Vec{}
}

func putVec(b []byte, v ms3.Vec) {
	binary.LittleEndian.PutUint32(b[0:], math32.Float32bits(v.X))
	binary.LittleEndian.PutUint32(b[4:], math32.Float32bits(v.Y))
	binary.LittleEndian.PutUint32(b[8:], math32.Float32bits(v.Z))
}

func getVec(b []byte) ms3.Vec {
	return ms3.Vec{
		X: math32.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		Y: math32.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		Z: math32.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}

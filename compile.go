package sdfscene

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

var errMismatchBufferLength = errors.New("position and distance buffer length mismatch")

// Compiler turns primitive lists into [Field]s. It keeps the per-primitive closures of the
// last compilation so that recompiling a slightly edited list reuses unchanged primitives.
// The zero value is ready to use and a Compiler is safe for concurrent use.
type Compiler struct {
	// Logger receives diagnostics such as unknown primitive kinds,
	// each distinct cause at most once per Compiler. Nil means [log.Default].
	Logger *log.Logger

	mu    sync.Mutex
	diag  Diagnostics
	cache map[uint64]*node
}

// node is one compiled primitive. Nodes are immutable once built and may be shared between fields.
type node struct {
	prim   Primitive
	fp     uint64
	frame  frame
	eval   func(local ms3.Vec) float32
	bounds ms3.Box
	// inert nodes have an unknown kind and are left out of the fold.
	inert bool
}

func (n *node) distance(p ms3.Vec) float32 {
	return n.eval(n.frame.toLocal(p)) * n.frame.comp
}

// Compile validates every primitive and folds them into a single field.
// The only errors are authoring contract violations such as an [*ArityError],
// all of which are reported joined. Empty lists compile to a field that misses everywhere.
func (c *Compiler) Compile(prims []Primitive) (*Field, error) {
	var errs []error
	for i := range prims {
		if err := prims[i].Validate(i); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make(map[uint64]*node, len(prims))
	f := &Field{nodes: make([]*node, len(prims))}
	for i := range prims {
		fp := fingerprint(&prims[i])
		n := next[fp]
		if n == nil {
			n = c.cache[fp]
		}
		if n == nil {
			n = c.buildNode(&prims[i], fp)
		}
		next[fp] = n
		f.nodes[i] = n
	}
	c.cache = next
	f.bounds = f.computeBounds()
	return f, nil
}

func (c *Compiler) buildNode(p *Primitive, fp uint64) *node {
	n := &node{
		prim:  *p,
		fp:    fp,
		frame: newFrame(p),
	}
	n.prim.Params = append([]float32(nil), p.Params...)
	if p.Texture != nil {
		tb := *p.Texture
		n.prim.Texture = &tb
	}
	e, ok := catalog[p.Kind]
	if !ok {
		c.diag.OnceTo(c.Logger, "kind:"+string(p.Kind), "sdfscene: unknown primitive kind %q evaluates as empty space", p.Kind)
		n.eval = func(ms3.Vec) float32 { return MissDistance }
		n.bounds = ms3.Box{}
		n.inert = true
		return n
	}
	params := n.prim.Params
	dist := e.dist
	n.eval = func(local ms3.Vec) float32 { return dist(local, params) }
	n.bounds = parentBounds(&n.prim, e.bounds(params))
	return n
}

// Field is a compiled scene: a pure function from points to signed distance.
// A Field is never modified after compilation and is safe for concurrent use.
type Field struct {
	nodes  []*node
	bounds ms3.Box
}

// Distance returns the signed distance of the scene at p.
// A nil or empty field returns [MissDistance] everywhere.
func (f *Field) Distance(p ms3.Vec) float32 {
	if f == nil || len(f.nodes) == 0 {
		return MissDistance
	}
	acc := f.nodes[0].distance(p)
	for _, n := range f.nodes[1:] {
		if n.inert {
			continue
		}
		acc = n.prim.Op.Fold(acc, n.distance(p), n.prim.BlendStrength)
	}
	return acc
}

// Sample returns the signed distance at p and the index of the primitive that owns
// the nearest surface there. The index is -1 for empty fields.
func (f *Field) Sample(p ms3.Vec) (dist float32, index int) {
	if f == nil || len(f.nodes) == 0 {
		return MissDistance, -1
	}
	acc := f.nodes[0].distance(p)
	for i, n := range f.nodes[1:] {
		if n.inert {
			continue
		}
		cur := n.distance(p)
		if n.prim.Op.owner(acc, cur) {
			index = i + 1
		}
		acc = n.prim.Op.Fold(acc, cur, n.prim.BlendStrength)
	}
	return acc, index
}

// Len returns the number of compiled primitives.
func (f *Field) Len() int {
	if f == nil {
		return 0
	}
	return len(f.nodes)
}

// Primitive returns a copy of the i'th compiled primitive.
func (f *Field) Primitive(i int) Primitive {
	p := f.nodes[i].prim
	p.Params = append([]float32(nil), p.Params...)
	return p
}

// Material returns the material id of the i'th primitive.
func (f *Field) Material(i int) string {
	return f.nodes[i].prim.Material
}

// Texture returns the texture binding of the i'th primitive, or nil.
func (f *Field) Texture(i int) *TextureBinding {
	return f.nodes[i].prim.Texture
}

// UV returns texture coordinates of p, in the parent space, projected with
// the UV function of the i'th primitive. Texture tiling and offset are applied when bound.
func (f *Field) UV(p ms3.Vec, i int) ms2.Vec {
	n := f.nodes[i]
	uv := UV(n.prim.Kind, n.frame.toLocal(p), n.prim.Params)
	if n.prim.Texture != nil {
		uv = n.prim.Texture.Transform(uv)
	}
	return uv
}

// Evaluate evaluates the field over pos and stores results in dist.
// It implements the batch evaluation interface gleval.SDF3.
func (f *Field) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errMismatchBufferLength
	}
	for i, p := range pos {
		dist[i] = f.Distance(p)
	}
	return nil
}

// Bounds returns a box containing every surface of the field. Scenes containing
// unbounded primitives such as planes return infinite extents.
func (f *Field) Bounds() ms3.Box {
	if f == nil {
		return ms3.Box{}
	}
	return f.bounds
}

func (f *Field) computeBounds() ms3.Box {
	if len(f.nodes) == 0 {
		return ms3.Box{}
	}
	bb := f.nodes[0].bounds
	for _, n := range f.nodes[1:] {
		if n.inert {
			continue
		}
		switch n.prim.Op.normalized() {
		case OpSubtract, OpSmoothSubtract:
			// Carving never grows the solid.
		case OpIntersect, OpSmoothIntersect:
			bb = intersectBox(bb, n.bounds)
		case OpReplace:
			bb = n.bounds
		default:
			bb = unionBox(bb, n.bounds)
		}
	}
	return bb
}

// parentBounds transforms a local box into an axis aligned box of the parent space.
func parentBounds(p *Primitive, local ms3.Box) ms3.Box {
	if !finiteVec(local.Min) || !finiteVec(local.Max) {
		return local
	}
	var bb ms3.Box
	for i := 0; i < 8; i++ {
		corner := local.Min
		if i&1 != 0 {
			corner.X = local.Max.X
		}
		if i&2 != 0 {
			corner.Y = local.Max.Y
		}
		if i&4 != 0 {
			corner.Z = local.Max.Z
		}
		w := p.ToParent(corner)
		if i == 0 {
			bb = ms3.Box{Min: w, Max: w}
			continue
		}
		bb = unionBox(bb, ms3.Box{Min: w, Max: w})
	}
	return bb
}

func unionBox(a, b ms3.Box) ms3.Box {
	if a == (ms3.Box{}) {
		return b
	} else if b == (ms3.Box{}) {
		return a
	}
	return ms3.Box{
		Min: ms3.Vec{X: math32.Min(a.Min.X, b.Min.X), Y: math32.Min(a.Min.Y, b.Min.Y), Z: math32.Min(a.Min.Z, b.Min.Z)},
		Max: ms3.Vec{X: math32.Max(a.Max.X, b.Max.X), Y: math32.Max(a.Max.Y, b.Max.Y), Z: math32.Max(a.Max.Z, b.Max.Z)},
	}
}

func intersectBox(a, b ms3.Box) ms3.Box {
	bb := ms3.Box{
		Min: ms3.Vec{X: math32.Max(a.Min.X, b.Min.X), Y: math32.Max(a.Min.Y, b.Min.Y), Z: math32.Max(a.Min.Z, b.Min.Z)},
		Max: ms3.Vec{X: math32.Min(a.Max.X, b.Max.X), Y: math32.Min(a.Max.Y, b.Max.Y), Z: math32.Min(a.Max.Z, b.Max.Z)},
	}
	if bb.Min.X > bb.Max.X || bb.Min.Y > bb.Max.Y || bb.Min.Z > bb.Max.Z {
		return ms3.Box{}
	}
	return bb
}

// Stage holds the field currently used for rendering and swaps it atomically
// when the authored primitive list changes structurally. Readers never observe
// a partially built field.
type Stage struct {
	compiler *Compiler
	mu       sync.Mutex // serializes Update.
	current  atomic.Pointer[Field]
}

// NewStage returns a stage holding an empty field. A nil compiler uses a new zero [Compiler].
func NewStage(c *Compiler) *Stage {
	if c == nil {
		c = new(Compiler)
	}
	s := &Stage{compiler: c}
	s.current.Store(&Field{})
	return s
}

// Field returns the current field. It is never nil.
func (s *Stage) Field() *Field {
	return s.current.Load()
}

// Update recompiles prims if they differ structurally from the list compiled last
// and publishes the result. On error the current field is kept.
func (s *Stage) Update(prims []Primitive) (changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.current.Load()
	if sameStructure(cur, prims) {
		return false, nil
	}
	f, err := s.compiler.Compile(prims)
	if err != nil {
		return false, err
	}
	s.current.Store(f)
	return true, nil
}

func sameStructure(f *Field, prims []Primitive) bool {
	if len(f.nodes) != len(prims) {
		return false
	}
	for i := range prims {
		if f.nodes[i].fp != fingerprint(&prims[i]) {
			return false
		}
	}
	return true
}

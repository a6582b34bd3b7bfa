// Package glbuild generates GLSL programs that evaluate a primitive list with
// the same fold, transforms and operators as a compiled [sdfscene.Field].
package glbuild

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/chewxy/math32"
	"github.com/ebb-bloom/sdfscene"
	"github.com/ebb-bloom/sdfscene/glbuild/glsllib"
	"github.com/ebb-bloom/sdfscene/gleval"
	"github.com/soypat/geometry/ms3"
)

const VersionStr = "#version 430\n"

// Programmer writes scene programs. The zero value writes a sceneSDF function
// preceded by the distance and operator library.
type Programmer struct {
	// FuncName is the name of the scene function. Empty means "sceneSDF".
	FuncName string
	// OmitLibrary skips the library source, for programs that include it separately.
	OmitLibrary bool
	// Version is prepended when not empty, e.g. [VersionStr].
	Version string

	scratch []byte
}

// NewDefaultProgrammer returns a Programmer that writes complete GLSL 4.3 scene programs.
func NewDefaultProgrammer() *Programmer {
	return &Programmer{Version: VersionStr}
}

// WriteSceneSDF writes a GLSL program evaluating prims to w using a default [Programmer]:
//
//	vec2 sceneSDF(vec3 p) // x: signed distance, y: index of the owning primitive.
//	int sceneSDFMaterial(int primitive) // index into materials.
//
// materials lists each distinct material identifier in order of first appearance.
func WriteSceneSDF(w io.Writer, prims []sdfscene.Primitive) (n int, materials []string, err error) {
	var p Programmer
	return p.WriteSceneSDF(w, prims)
}

// WriteSceneSDF writes the scene program of prims to w. Primitives are validated
// first and all violations are returned joined, as by [sdfscene.Compiler.Compile].
// Unknown kinds evaluate as SDS_MISS and are not folded, contributing nothing
// whatever their operator.
func (p *Programmer) WriteSceneSDF(w io.Writer, prims []sdfscene.Primitive) (n int, materials []string, err error) {
	var errs []error
	for i := range prims {
		if err := prims[i].Validate(i); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return 0, nil, errors.Join(errs...)
	}
	name := p.FuncName
	if name == "" {
		name = "sceneSDF"
	}
	b := p.scratch[:0]
	if p.Version != "" {
		b = append(b, p.Version...)
	}
	if !p.OmitLibrary {
		b = append(b, glsllib.Primitives3D()...)
		b = append(b, '\n')
		b = append(b, glsllib.Operations()...)
		b = append(b, '\n')
	}

	matIndex := make([]int, len(prims))
	seen := make(map[string]int)
	for i := range prims {
		idx, ok := seen[prims[i].Material]
		if !ok {
			idx = len(materials)
			seen[prims[i].Material] = idx
			materials = append(materials, prims[i].Material)
		}
		matIndex[i] = idx
	}

	b = append(b, "vec2 "...)
	b = append(b, name...)
	b = append(b, "(vec3 p) {\n"...)
	if len(prims) == 0 {
		b = append(b, "\treturn vec2(SDS_MISS, -1.0);\n}\n"...)
	} else {
		b = append(b, "\tvec3 q;\n\tfloat d;\n\tfloat acc;\n\tfloat id = 0.0;\n"...)
		for i := range prims {
			b = appendPrimitive(b, i, &prims[i])
		}
		b = append(b, "\treturn vec2(acc, id);\n}\n"...)
	}
	b = appendMaterialFunc(b, name, matIndex)
	p.scratch = b
	n, err = w.Write(b)
	return n, materials, err
}

// appendPrimitive appends the statements evaluating the i'th primitive into d
// and folding it into acc, tracking the owner in id.
func appendPrimitive(b []byte, i int, prim *sdfscene.Primitive) []byte {
	b = append(b, "\t// "...)
	b = strconv.AppendInt(b, int64(i), 10)
	b = append(b, ": "...)
	b = append(b, string(prim.Kind)...)
	b = append(b, '\n')

	s := prim.EffectiveScale()
	identity := prim.Position == (ms3.Vec{}) && prim.Rotation == (ms3.Vec{}) && s == ms3.Vec{X: 1, Y: 1, Z: 1}
	b = append(b, "\tq = "...)
	if identity {
		b = append(b, 'p')
	} else {
		invRot := sdfscene.EulerRotation(prim.Rotation).Transpose()
		b = append(b, "((p - "...)
		b = AppendVec3(b, prim.Position)
		b = append(b, ") * "...)
		b = AppendRotation(b, invRot)
		b = append(b, ") * "...)
		b = AppendVec3(b, ms3.Vec{X: 1 / s.X, Y: 1 / s.Y, Z: 1 / s.Z})
	}
	b = append(b, ";\n"...)

	b = append(b, "\td = "...)
	fn, ok := glsllib.DistanceFunc(prim.Kind)
	if !ok {
		b = append(b, "SDS_MISS;\n"...)
		if i > 0 {
			return append(b, "\t// unknown kind, not folded\n"...)
		}
	} else {
		b = append(b, fn...)
		b = append(b, "(q"...)
		for _, v := range prim.Params {
			b = append(b, ", "...)
			b = AppendFloat(b, '-', '.', v)
		}
		b = append(b, ')')
		if comp := math32.Min(math32.Abs(s.X), math32.Min(math32.Abs(s.Y), math32.Abs(s.Z))); comp != 1 {
			b = append(b, " * "...)
			b = AppendFloat(b, '-', '.', comp)
		}
		b = append(b, ";\n"...)
	}

	if i == 0 {
		return append(b, "\tacc = d;\n"...)
	}
	id := strconv.AppendInt(nil, int64(i), 10)
	op := prim.Op
	if op == "" {
		op = sdfscene.OpUnion
	}
	switch op {
	case sdfscene.OpReplace:
		b = append(b, "\tacc = d;\n\tid = "...)
		b = append(b, id...)
		return append(b, ".0;\n"...)
	case sdfscene.OpUnion, sdfscene.OpSmoothUnion:
		b = append(b, "\tif (d < acc) id = "...)
		b = append(b, id...)
		b = append(b, ".0;\n"...)
	case sdfscene.OpIntersect, sdfscene.OpSmoothIntersect:
		b = append(b, "\tif (d > acc) id = "...)
		b = append(b, id...)
		b = append(b, ".0;\n"...)
	}
	fn, smooth := glsllib.OperatorFunc(op)
	b = append(b, "\tacc = "...)
	b = append(b, fn...)
	if op == sdfscene.OpSubtract || op == sdfscene.OpSmoothSubtract {
		b = append(b, "(d, acc"...)
	} else {
		b = append(b, "(acc, d"...)
	}
	if smooth {
		b = append(b, ", "...)
		b = AppendFloat(b, '-', '.', prim.BlendStrength)
	}
	return append(b, ");\n"...)
}

func appendMaterialFunc(b []byte, sceneName string, matIndex []int) []byte {
	b = append(b, "int "...)
	b = append(b, sceneName...)
	b = append(b, "Material(int primitive) {\n"...)
	if len(matIndex) == 0 {
		return append(b, "\treturn -1;\n}\n"...)
	}
	b = append(b, '\t')
	b = AppendIntSliceDecl(b, "materials", matIndex)
	n := strconv.AppendInt(nil, int64(len(matIndex)-1), 10)
	b = append(b, "\treturn materials[clamp(primitive, 0, "...)
	b = append(b, n...)
	return append(b, ")];\n}\n"...)
}

// AppendVec3 appends a GLSL vec3 constructor.
func AppendVec3(b []byte, v ms3.Vec) []byte {
	b = append(b, "vec3("...)
	b = AppendFloats(b, ',', '-', '.', v.X, v.Y, v.Z)
	return append(b, ')')
}

// AppendRotation appends a GLSL mat3 constructor whose columns are the rows of r,
// so that the GLSL expression v*m equals r.Apply(v).
func AppendRotation(b []byte, r sdfscene.Rotation) []byte {
	b = append(b, "mat3("...)
	b = AppendFloats(b, ',', '-', '.',
		r[0].X, r[0].Y, r[0].Z,
		r[1].X, r[1].Y, r[1].Z,
		r[2].X, r[2].Y, r[2].Z,
	)
	return append(b, ')')
}

func AppendVec3Decl(b []byte, vec3Varname string, v ms3.Vec) []byte {
	b = append(b, "vec3 "...)
	b = append(b, vec3Varname...)
	b = append(b, '=')
	b = AppendVec3(b, v)
	return append(b, ';', '\n')
}

func AppendFloatDecl(b []byte, floatVarname string, v float32) []byte {
	b = append(b, "float "...)
	b = append(b, floatVarname...)
	b = append(b, '=')
	b = AppendFloat(b, '-', '.', v)
	b = append(b, ';', '\n')
	return b
}

const decimalDigits = 9

// AppendFloat appends v in fixed point notation with trailing zeroes trimmed.
// The decimal point is always present so the result is a GLSL float literal.
// neg and decimal replace the minus sign and decimal point, which lets callers
// build identifiers out of numbers.
func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if decimal != '.' && idx >= 0 {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	// Finally trim zeroes.
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > idx+start && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

func AppendFloats(b []byte, sep, neg, decimal byte, s ...float32) []byte {
	for i, v := range s {
		b = AppendFloat(b, neg, decimal, v)
		if sep != 0 && i != len(s)-1 {
			b = append(b, sep)
		}
	}
	return b
}

const maxLineLim = 500

func AppendIntSliceDecl(b []byte, intSliceVarname string, ints []int) []byte {
	return AppendGenericSliceDecl(b, "int", intSliceVarname, len(ints), func(b []byte, i int) []byte {
		return strconv.AppendInt(b, int64(ints[i]), 10)
	})
}

func AppendGenericSliceDecl(b []byte, typename, varname string, nelem int, appendElement func(b []byte, i int) []byte) []byte {
	lineStart := len(b)
	b = appendStartSliceDecl(b, typename, varname, nelem)
	for i := 0; i < nelem; i++ {
		last := i == nelem-1
		b = appendElement(b, i)
		if !last {
			b = append(b, ',')
			lineLen := len(b) - lineStart
			if lineLen > maxLineLim {
				b = append(b, '\n') // Break up line for very long scenes.
				lineStart = len(b)
			}
		}
	}
	b = append(b, ");\n"...)
	return b
}

func appendStartSliceDecl(b []byte, typeName, varName string, length int) []byte {
	l := int64(length)
	typeStart := len(b)
	b = append(b, typeName...)
	b = append(b, "["...)
	b = strconv.AppendInt(b, l, 10)
	b = append(b, ']')
	typeEnd := len(b)
	b = append(b, ' ')
	b = append(b, varName...)
	b = append(b, '=')
	b = append(b, b[typeStart:typeEnd]...) // Reuse typename appended earlier.
	b = append(b, '(')
	return b
}

// ErrNoScene is returned by [WriteFragmentVisualizer] for an empty primitive list.
var ErrNoScene = errors.New("glbuild: empty scene")

// WriteFragmentVisualizer writes a ShaderToy style fragment program that raymarches
// the scene program of prims from eye towards the origin with the parameters of m
// and shades hits by surface normal. It is meant for inspecting generated scenes.
func (p *Programmer) WriteFragmentVisualizer(w io.Writer, prims []sdfscene.Primitive, eye ms3.Vec, m gleval.Marcher) (int, error) {
	if len(prims) == 0 {
		return 0, ErrNoScene
	}
	name := p.FuncName
	p.FuncName = "sceneSDF"
	n, _, err := p.WriteSceneSDF(w, prims)
	p.FuncName = name
	if err != nil {
		return n, err
	}
	m = m.WithDefaults()
	var b []byte
	b = append(b, "const int MAX_STEPS = "...)
	b = strconv.AppendInt(b, int64(m.MaxSteps), 10)
	b = append(b, ";\n"...)
	b = AppendFloatDecl(append(b, "const "...), "HIT_EPSILON", m.HitEpsilon)
	b = AppendFloatDecl(append(b, "const "...), "MAX_DISTANCE", m.MaxDistance)
	b = AppendFloatDecl(append(b, "const "...), "STEP_DAMPING", m.StepDamping)
	b = AppendFloatDecl(append(b, "const "...), "NORMAL_EPSILON", m.NormalEpsilon)
	b = AppendVec3Decl(append(b, "const "...), "EYE", eye)
	b = append(b, visualizerBody...)
	n2, err := w.Write(b)
	if err != nil {
		return n + n2, fmt.Errorf("writing visualizer body: %w", err)
	}
	return n + n2, nil
}

const visualizerBody = `vec3 sceneNormal(vec3 p) {
	const float h = NORMAL_EPSILON;
	return normalize(vec3(
		sceneSDF(p + vec3(h, 0, 0)).x - sceneSDF(p - vec3(h, 0, 0)).x,
		sceneSDF(p + vec3(0, h, 0)).x - sceneSDF(p - vec3(0, h, 0)).x,
		sceneSDF(p + vec3(0, 0, h)).x - sceneSDF(p - vec3(0, 0, h)).x));
}

void mainImage(out vec4 fragColor, in vec2 fragCoord) {
	vec2 uv = (2.0 * fragCoord - iResolution.xy) / iResolution.y;
	vec3 ro = EYE;
	vec3 fwd = normalize(-EYE);
	vec3 right = normalize(cross(fwd, abs(fwd.y) > 0.999 ? vec3(0.0, 0.0, 1.0) : vec3(0.0, 1.0, 0.0)));
	vec3 up = cross(right, fwd);
	vec3 rd = normalize(uv.x * right + uv.y * up + 1.5 * fwd);
	float t = 0.0;
	for (int i = 0; i < MAX_STEPS; i++) {
		float d = sceneSDF(ro + t * rd).x;
		if (abs(d) < HIT_EPSILON) {
			fragColor = vec4(0.5 + 0.5 * sceneNormal(ro + t * rd), 1.0);
			return;
		}
		t += d * STEP_DAMPING;
		if (t > MAX_DISTANCE) break;
	}
	fragColor = vec4(0.05, 0.05, 0.1, 1.0);
}
`

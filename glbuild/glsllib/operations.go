package glsllib

import (
	_ "embed"

	"github.com/ebb-bloom/sdfscene"
)

//go:embed operations.glsl
var operationsSrc []byte

// Operations returns the GLSL composition operators:
//
//	float sdsUnion(float d1, float d2)
//	float sdsSmoothUnion(float d1, float d2, float k)
//
// and their subtract and intersect counterparts.
func Operations() []byte {
	return operationsSrc
}

// OperatorFunc returns the GLSL function folding a primitive into the scene with op
// and whether it takes a blend strength argument. Replace has no function.
func OperatorFunc(op sdfscene.Op) (name string, smooth bool) {
	switch op {
	case sdfscene.OpSubtract:
		return "sdsSubtract", false
	case sdfscene.OpIntersect:
		return "sdsIntersect", false
	case sdfscene.OpSmoothUnion:
		return "sdsSmoothUnion", true
	case sdfscene.OpSmoothSubtract:
		return "sdsSmoothSubtract", true
	case sdfscene.OpSmoothIntersect:
		return "sdsSmoothIntersect", true
	case sdfscene.OpReplace:
		return "", false
	}
	return "sdsUnion", false
}

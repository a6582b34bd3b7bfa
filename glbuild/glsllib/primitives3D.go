// Package glsllib holds the GLSL source of the primitive catalog and the composition operators.
package glsllib

import (
	_ "embed"

	"github.com/ebb-bloom/sdfscene"
)

//go:embed primitives3D.glsl
var primitives3DSrc []byte

// Primitives3D returns the GLSL distance functions of every catalog kind, e.g.:
//
//	float sdsBox(vec3 p, float x, float y, float z)
//
// It also declares the SDS_MISS constant returned by degenerate parameters.
func Primitives3D() []byte {
	return primitives3DSrc
}

var kindFuncs = map[sdfscene.Kind]string{
	sdfscene.KindSphere:         "sdsSphere",
	sdfscene.KindBox:            "sdsBox",
	sdfscene.KindRoundedBox:     "sdsRoundedBox",
	sdfscene.KindCylinder:       "sdsCylinder",
	sdfscene.KindCappedCylinder: "sdsCylinder",
	sdfscene.KindCone:           "sdsCone",
	sdfscene.KindRoundCone:      "sdsRoundCone",
	sdfscene.KindPyramid:        "sdsPyramid",
	sdfscene.KindTorus:          "sdsTorus",
	sdfscene.KindOctahedron:     "sdsOctahedron",
	sdfscene.KindHexPrism:       "sdsHexPrism",
	sdfscene.KindTriPrism:       "sdsTriPrism",
	sdfscene.KindCapsule:        "sdsCapsule",
	sdfscene.KindEllipsoid:      "sdsEllipsoid",
	sdfscene.KindPlane:          "sdsPlane",
	sdfscene.KindSuperellipsoid: "sdsSuperellipsoid",
	sdfscene.KindTorusKnot:      "sdsTorusKnot",
	sdfscene.KindMengerSponge:   "sdsMengerSponge",
	sdfscene.KindGyroid:         "sdsGyroid",
	sdfscene.KindPOrbital:       "sdsPOrbital",
	sdfscene.KindDOrbital:       "sdsDOrbital",
}

// DistanceFunc returns the name of the GLSL distance function of kind.
// Its arguments are the local position followed by the kind's parameters.
func DistanceFunc(kind sdfscene.Kind) (name string, ok bool) {
	name, ok = kindFuncs[kind]
	return name, ok
}

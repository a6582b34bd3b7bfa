package sdfaux

import (
	"fmt"

	"github.com/ebb-bloom/sdfscene"
	"github.com/ebb-bloom/sdfscene/material"
	"github.com/soypat/geometry/ms3"
)

// MoleculeBlend is the smooth union strength joining the atoms of a molecule.
const MoleculeBlend = 0.2

// Atom is one atom of a molecule.
type Atom struct {
	Symbol   string
	Position ms3.Vec
	// Radius overrides the radius derived from the atomic mass when positive.
	Radius float32
}

type elementInfo struct {
	number int
	mass   float32
}

var periodic = map[string]elementInfo{
	"H":  {1, 1.008},
	"He": {2, 4.0026},
	"Li": {3, 6.94},
	"C":  {6, 12.011},
	"N":  {7, 14.007},
	"O":  {8, 15.999},
	"F":  {9, 18.998},
	"Na": {11, 22.990},
	"Mg": {12, 24.305},
	"P":  {15, 30.974},
	"S":  {16, 32.06},
	"Cl": {17, 35.45},
	"K":  {19, 39.098},
	"Ca": {20, 40.078},
	"Fe": {26, 55.845},
	"Cu": {29, 63.546},
	"Ag": {47, 107.87},
	"Au": {79, 196.97},
}

// AtomPrimitive returns the primitive an atom renders as. Hydrogen is a sphere,
// the second period are p orbitals, the third and calcium are d orbitals and
// heavier elements are octahedra. The material is chosen by [material.ElementID].
func AtomPrimitive(a Atom) (sdfscene.Primitive, error) {
	info, ok := periodic[a.Symbol]
	if !ok {
		return sdfscene.Primitive{}, fmt.Errorf("unknown element %q", a.Symbol)
	}
	r := a.Radius
	if r <= 0 {
		r = max(0.2, info.mass/100/3)
	}
	var kind sdfscene.Kind
	switch {
	case info.number == 1:
		kind = sdfscene.KindSphere
	case info.number <= 10:
		kind = sdfscene.KindPOrbital
	case info.number <= 20:
		kind = sdfscene.KindDOrbital
	default:
		kind = sdfscene.KindOctahedron
	}
	p := sdfscene.NewPrimitive(kind, r)
	p.Position = a.Position
	p.Material = material.ElementID(a.Symbol)
	p.Op = sdfscene.OpSmoothUnion
	p.BlendStrength = MoleculeBlend
	return p, nil
}

// BuildMolecule converts atoms to primitives joined by smooth unions
// and returns them as a scene with the default camera and lighting.
func BuildMolecule(atoms []Atom) (sdfscene.Scene, error) {
	sc := sdfscene.Scene{
		Camera:   sdfscene.Camera{Position: ms3.Vec{Z: 5}},
		Lighting: sdfscene.DefaultLighting(),
	}
	for i, a := range atoms {
		p, err := AtomPrimitive(a)
		if err != nil {
			return sdfscene.Scene{}, fmt.Errorf("atom %d: %w", i, err)
		}
		sc.Primitives = append(sc.Primitives, p)
	}
	return sc, nil
}

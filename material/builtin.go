package material

import "github.com/soypat/geometry/ms3"

// element describes how an element renders in molecule scenes.
type element struct {
	symbol    string
	id        string
	name      string
	hex       string
	roughness float32
	metallic  float32
	emissive  float32
	gas       bool
}

// CPK colors.
var elements = []element{
	{symbol: "H", id: "hydrogen", name: "Hydrogen", hex: "#FFFFFF", roughness: 0.3, emissive: 0.2, gas: true},
	{symbol: "C", id: "carbon", name: "Carbon", hex: "#909090", roughness: 0.6, metallic: 0.1},
	{symbol: "N", id: "nitrogen", name: "Nitrogen", hex: "#3050F8", roughness: 0.4, emissive: 0.1, gas: true},
	{symbol: "O", id: "oxygen", name: "Oxygen", hex: "#FF0D0D", roughness: 0.4, emissive: 0.15, gas: true},
	{symbol: "Fe", id: "iron", name: "Iron", hex: "#E06633", roughness: 0.35, metallic: 0.9},
}

// ElementID returns the material identifier of the element with the given
// chemical symbol, such as "oxygen" for "O". Unknown symbols return [DefaultID].
func ElementID(symbol string) string {
	for _, e := range elements {
		if e.symbol == symbol {
			return e.id
		}
	}
	return DefaultID
}

// Builtins returns the materials every [NewRegistry] starts with.
func Builtins() []Material {
	mats := []Material{
		Default(),
		{
			ID:                "bond",
			Name:              "Chemical Bond",
			Albedo:            ms3.Vec{X: 1, Y: 1, Z: 1},
			Roughness:         0.7,
			Metallic:          0.1,
			EmissiveColor:     ms3.Vec{X: 0.8, Y: 0.9, Z: 1},
			EmissiveIntensity: 0.4,
		},
	}
	for _, e := range elements {
		c, err := HexColor(e.hex)
		if err != nil {
			panic(err)
		}
		m := Material{
			ID:                e.id,
			Name:              e.name,
			Albedo:            c,
			Roughness:         e.roughness,
			Metallic:          e.metallic,
			EmissiveColor:     c,
			EmissiveIntensity: e.emissive,
			IOR:               1.5,
		}
		if e.gas {
			m.IOR = 1
			m.Subsurface = 0.2
		}
		mats = append(mats, m)
	}
	return mats
}

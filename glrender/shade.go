package glrender

import (
	"github.com/chewxy/math32"
	"github.com/ebb-bloom/sdfscene"
	"github.com/ebb-bloom/sdfscene/gleval"
	"github.com/ebb-bloom/sdfscene/material"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
)

// surface holds the shading inputs at a hit point after texture lookups.
type surface struct {
	normal    ms3.Vec
	albedo    ms3.Vec
	metallic  float32
	roughness float32
	occlusion float32
	emissive  ms3.Vec
}

// surface resolves the shading inputs of primitive idx at p. Texture slots
// override the matching material scalar. The primitive's own texture binding
// takes precedence over its material's.
func (r *Renderer) surface(f Field, idx int, p, n ms3.Vec, m *material.Material) surface {
	s := surface{
		normal:    n,
		albedo:    m.Albedo,
		metallic:  m.Metallic,
		roughness: m.Roughness,
		occlusion: 1,
		emissive:  ms3.Scale(m.EmissiveIntensity, m.EmissiveColor),
	}
	if r.textures == nil {
		return s
	}
	tb := f.Texture(idx)
	uv := f.UV(p, idx)
	if tb == nil && m.Texture != nil {
		tb = m.Texture
		uv = tb.Transform(uv)
	}
	if tb == nil {
		return s
	}
	if c, ok := r.texel(tb.Diffuse, uv); ok {
		s.albedo = c
	}
	if c, ok := r.texel(tb.Roughness, uv); ok {
		s.roughness = c.X
	}
	if c, ok := r.texel(tb.Metallic, uv); ok {
		s.metallic = c.X
	}
	if c, ok := r.texel(tb.Occlusion, uv); ok {
		s.occlusion = c.X
	}
	if c, ok := r.texel(tb.Emission, uv); ok {
		s.emissive = ms3.Add(s.emissive, c)
	}
	if c, ok := r.texel(tb.Normal, uv); ok {
		s.normal = perturbNormal(n, c)
	}
	return s
}

// perturbNormal applies a tangent space normal map texel to n. The tangent
// frame is built from n alone since SDF surfaces carry no parametrization.
func perturbNormal(n, texel ms3.Vec) ms3.Vec {
	t := ms3.Vec{X: texel.X*2 - 1, Y: texel.Y*2 - 1, Z: texel.Z*2 - 1}
	ref := ms3.Vec{Y: 1}
	if math32.Abs(n.Y) > 0.999 {
		ref = ms3.Vec{X: 1}
	}
	tangent := ms3.Unit(cross(ref, n))
	bitangent := cross(n, tangent)
	p := ms3.Add(ms3.Add(ms3.Scale(t.X, tangent), ms3.Scale(t.Y, bitangent)), ms3.Scale(t.Z, n))
	if ms3.Norm(p) == 0 {
		return n
	}
	return ms3.Unit(p)
}

// shade sums the contribution of every light with a Cook-Torrance BRDF and
// adds the rim and emissive terms.
func (r *Renderer) shade(f Field, lights []sdfscene.Light, p, dir ms3.Vec, s surface) ms3.Vec {
	n := s.normal
	v := ms3.Scale(-1, dir)
	ao := s.occlusion
	if r.cfg.AmbientOcclusion {
		ao *= ambientOcclusion(f, p, n)
	}
	var direct, ambient ms3.Vec
	for i := range lights {
		l := &lights[i]
		c := lightColor(l)
		if l.Kind == sdfscene.LightAmbient {
			ambient = ms3.Add(ambient, ms3.Scale(l.Intensity, c))
			continue
		}
		toLight, dist, intensity, ok := incidence(l, p)
		if !ok {
			continue
		}
		shadow := float32(1)
		if r.cfg.Shadows {
			origin := ms3.Add(p, ms3.Scale(4*r.cfg.Marcher.HitEpsilon, n))
			shadow = softShadow(f, origin, toLight, 0.01, math32.Min(dist, r.cfg.Marcher.MaxDistance), r.cfg.ShadowSoftness)
		}
		if shadow <= 0 {
			continue
		}
		lo := cookTorrance(n, v, toLight, s.albedo, s.metallic, s.roughness)
		direct = ms3.Add(direct, ms3.Scale(intensity*shadow, ms3.MulElem(lo, c)))
	}
	color := ms3.Add(direct, ms3.Scale(ao, ms3.MulElem(ambient, s.albedo)))

	ndotv := math32.Max(ms3.Dot(n, v), 0)
	rim := r.cfg.RimStrength * math32.Pow(1-ndotv, 3)
	color = ms3.Add(color, splat(rim))
	return ms3.Add(color, s.emissive)
}

func lightColor(l *sdfscene.Light) ms3.Vec {
	if l.Color == (ms3.Vec{}) {
		return ms3.Vec{X: 1, Y: 1, Z: 1}
	}
	return l.Color
}

// Attenuation returns the intensity falloff of point and spot lights at distance d.
func Attenuation(d float32) float32 {
	return 1 / (1 + 0.1*d + 0.01*d*d)
}

// incidence returns the unit direction from p towards the light, the distance to
// it and the light intensity reaching p. ok is false when no light reaches p.
func incidence(l *sdfscene.Light, p ms3.Vec) (toLight ms3.Vec, dist, intensity float32, ok bool) {
	switch l.Kind {
	case sdfscene.LightDirectional:
		if ms3.Norm(l.Direction) == 0 {
			return ms3.Vec{}, 0, 0, false
		}
		return ms3.Unit(l.Direction), math32.Inf(1), l.Intensity, true
	case sdfscene.LightPoint, sdfscene.LightSpot:
		d := ms3.Sub(l.Position, p)
		dist = ms3.Norm(d)
		if dist == 0 {
			return ms3.Vec{}, 0, 0, false
		}
		toLight = ms3.Scale(1/dist, d)
		intensity = l.Intensity * Attenuation(dist)
		if l.Kind == sdfscene.LightSpot && l.Angle > 0 && ms3.Norm(l.Direction) > 0 {
			cosTheta := -ms3.Dot(toLight, ms3.Unit(l.Direction))
			outer := math32.Cos(l.Angle)
			inner := math32.Cos(0.8 * l.Angle)
			intensity *= ms1.SmoothStep(outer, inner, cosTheta)
		}
		return toLight, dist, intensity, intensity > 0
	}
	return ms3.Vec{}, 0, 0, false
}

// cookTorrance evaluates the reflected radiance towards v from a unit light along l
// with a GGX distribution, Smith geometry term and Schlick Fresnel.
func cookTorrance(n, v, l, albedo ms3.Vec, metallic, roughness float32) ms3.Vec {
	ndotl := ms3.Dot(n, l)
	if ndotl <= 0 {
		return ms3.Vec{}
	}
	ndotv := math32.Max(ms3.Dot(n, v), 1e-4)
	h := ms3.Unit(ms3.Add(v, l))
	ndoth := math32.Max(ms3.Dot(n, h), 0)
	hdotv := math32.Max(ms3.Dot(h, v), 0)
	roughness = ms1.Clamp(roughness, 0.04, 1)

	a := roughness * roughness
	a2 := a * a
	denom := ndoth*ndoth*(a2-1) + 1
	distribution := a2 / (math32.Pi * denom * denom)

	k := (roughness + 1) * (roughness + 1) / 8
	geometry := ndotv / (ndotv*(1-k) + k) * ndotl / (ndotl*(1-k)+k)

	f0 := ms3.InterpElem(splat(0.04), albedo, splat(metallic))
	fresnel := ms3.Add(f0, ms3.Scale(math32.Pow(1-hdotv, 5), ms3.Sub(splat(1), f0)))

	specular := ms3.Scale(distribution*geometry/(4*ndotv*ndotl+1e-4), fresnel)
	kd := ms3.Scale(1-metallic, ms3.Sub(splat(1), fresnel))
	diffuse := ms3.Scale(1/math32.Pi, ms3.MulElem(kd, albedo))
	return ms3.Scale(ndotl, ms3.Add(diffuse, specular))
}

// softShadow marches from p towards the light and returns the fraction of light
// reaching p in [0,1]. k controls the penumbra width.
func softShadow(f gleval.Field, p, toLight ms3.Vec, tmin, tmax, k float32) float32 {
	const maxSteps = 64
	res := float32(1)
	t := tmin
	for i := 0; i < maxSteps && t < tmax; i++ {
		h := f.Distance(ms3.Add(p, ms3.Scale(t, toLight)))
		if h < 1e-3 {
			return 0
		}
		res = math32.Min(res, k*h/t)
		t += ms1.Clamp(h, 0.01, 0.5)
	}
	return ms1.Clamp(res, 0, 1)
}

// ambientOcclusion samples the field at growing distances along the normal and
// returns 1 for an unoccluded point, less inside creases.
func ambientOcclusion(f gleval.Field, p, n ms3.Vec) float32 {
	var occ float32
	scale := float32(1)
	for i := 0; i < 5; i++ {
		h := 0.01 + 0.12*float32(i)/4
		d := f.Distance(ms3.Add(p, ms3.Scale(h, n)))
		occ += (h - d) * scale
		scale *= 0.95
	}
	return ms1.Clamp(1-3*occ, 0, 1)
}

package glrender

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// TextureSource resolves texture ids referenced by texture bindings to images.
type TextureSource interface {
	Texture(id string) (image.Image, bool)
}

// ImageTextures is an in-memory [TextureSource].
type ImageTextures map[string]image.Image

// Texture implements [TextureSource].
func (it ImageTextures) Texture(id string) (image.Image, bool) {
	img, ok := it[id]
	return img, ok && img != nil
}

// texel samples texture id at uv. Empty ids are unbound slots. Ids the source
// does not know are logged once per renderer and treated as unbound.
func (r *Renderer) texel(id string, uv ms2.Vec) (ms3.Vec, bool) {
	if id == "" {
		return ms3.Vec{}, false
	}
	img, ok := r.textures.Texture(id)
	if !ok {
		r.diag.OnceTo(r.cfg.Logger, "texture:"+id, "glrender: unknown texture %q ignored", id)
		return ms3.Vec{}, false
	}
	return SampleBilinear(img, uv), true
}

// SampleBilinear samples img at uv with bilinear filtering and repeat wrapping.
// uv (0,0) is the top left corner of the image. Channels are returned in [0,1].
func SampleBilinear(img image.Image, uv ms2.Vec) ms3.Vec {
	bb := img.Bounds()
	w, h := bb.Dx(), bb.Dy()
	if w == 0 || h == 0 {
		return ms3.Vec{}
	}
	x := wrap(uv.X)*float32(w) - 0.5
	y := wrap(uv.Y)*float32(h) - 0.5
	x0, y0 := math32.Floor(x), math32.Floor(y)
	fx, fy := x-x0, y-y0
	ix, iy := int(x0), int(y0)
	at := func(i, j int) ms3.Vec {
		i = (i%w + w) % w
		j = (j%h + h) % h
		return rgb(img.At(bb.Min.X+i, bb.Min.Y+j))
	}
	top := lerp(at(ix, iy), at(ix+1, iy), fx)
	bottom := lerp(at(ix, iy+1), at(ix+1, iy+1), fx)
	return lerp(top, bottom, fy)
}

func wrap(v float32) float32 {
	v -= math32.Floor(v)
	if v >= 1 {
		return 0
	}
	return v
}

func lerp(a, b ms3.Vec, t float32) ms3.Vec {
	return ms3.InterpElem(a, b, splat(t))
}

func rgb(c color.Color) ms3.Vec {
	r, g, b, _ := c.RGBA()
	return ms3.Vec{X: float32(r) / 0xffff, Y: float32(g) / 0xffff, Z: float32(b) / 0xffff}
}

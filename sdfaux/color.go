package sdfaux

import (
	"image/color"

	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
)

// HSV handling follows Esme Lamb's (@dedelala) color work presented at Gophercon AU 2024.
// https://github.com/dedelala/disco/tree/main/color

var (
	red     = color.RGBA{R: 255, A: 255}
	outside = ms3.Vec{X: 0.9, Y: 0.6, Z: 0.3}
	inside  = ms3.Vec{X: 0.65, Y: 0.85, Z: 1.0}
)

// ColorConversionInigoQuilez creates a distance to color conversion using [Inigo Quilez]'s style:
// orange bands outside the surface, blue bands inside and a white contour on it.
// A good value for characteristic distance is the bounding box diagonal divided by 3. Returns red for NaN values.
//
// [Inigo Quilez]: https://iquilezles.org/articles/distfunctions2d/
func ColorConversionInigoQuilez(characteristicDistance float32) func(float32) color.Color {
	inv := 1 / characteristicDistance
	return func(d float32) color.Color {
		if math.IsNaN(d) {
			return red
		}
		d *= inv
		c := inside
		if d > 0 {
			c = outside
		}
		ad := math.Abs(d)
		c = ms3.Scale(1-math.Exp(-6*ad), c)
		c = ms3.Scale(0.8+0.2*math.Cos(150*d), c)
		contour := 1 - ms1.SmoothStep(0, 0.01, ad)
		c = ms3.InterpElem(c, ms3.Vec{X: 1, Y: 1, Z: 1}, ms3.Vec{X: contour, Y: contour, Z: contour})
		return vecToRGBA(c)
	}
}

// ColorConversionLinearGradient creates a color conversion function with a gradient
// from c0 to c1 centered on d=0 that extends gradientLength. The interpolation runs in HSV space.
func ColorConversionLinearGradient(gradientLength float32, c0, c1 color.Color) func(d float32) color.Color {
	if c0 == color.Black && c1 == color.White {
		return blackAndWhite(gradientLength)
	}
	h0 := colorToHSV(c0)
	h1 := colorToHSV(c1)
	return func(d float32) color.Color {
		blend := d/gradientLength + 0.5
		if blend <= 0 {
			return c0
		} else if blend >= 1 {
			return c1
		}
		return vecToRGBA(hsvToRGB(interpHSV(h0, h1, blend)))
	}
}

// blackAndWhite returns a grayscale conversion smoothed over edgeSmooth around the surface.
func blackAndWhite(edgeSmooth float32) func(d float32) color.Color {
	if edgeSmooth == 0 {
		return func(d float32) color.Color {
			if d < 0 {
				return color.Black
			}
			return color.White
		}
	}
	return func(d float32) color.Color {
		blend := d/edgeSmooth + 0.5
		if blend <= 0 {
			return color.Black
		} else if blend >= 1 {
			return color.White
		}
		return color.Gray{Y: uint8(blend * 255)}
	}
}

func vecToRGBA(c ms3.Vec) color.RGBA {
	return color.RGBA{
		R: uint8(ms1.Clamp(c.X, 0, 1) * 255),
		G: uint8(ms1.Clamp(c.Y, 0, 1) * 255),
		B: uint8(ms1.Clamp(c.Z, 0, 1) * 255),
		A: 255,
	}
}

func percentUint64(num, denom uint64) float32 {
	if denom == 0 {
		return 0
	}
	return math.Trunc(10000*float32(num)/float32(denom)) / 100
}

// hsv holds hue, saturation and value in X, Y and Z, all in [0,1].
type hsv = ms3.Vec

// interpHSV interpolates along the shortest way around the hue circle.
func interpHSV(c0, c1 hsv, t float32) hsv {
	switch {
	case c1.X-c0.X > 0.5:
		c0.X += 1
	case c1.X-c0.X < -0.5:
		c1.X += 1
	}
	c := ms3.InterpElem(c0, c1, ms3.Vec{X: t, Y: t, Z: t})
	if c.X >= 1 {
		c.X -= 1
	}
	return c
}

func colorToHSV(c color.Color) hsv {
	r, g, b, _ := c.RGBA()
	return rgbToHSV(ms3.Vec{X: float32(r>>8) / 255, Y: float32(g>>8) / 255, Z: float32(b>>8) / 255})
}

// hsvToRGB converts a HSV color to linear RGB, both on the range 0 to 1.
func hsvToRGB(c hsv) ms3.Vec {
	h, s, v := c.X, c.Y, c.Z
	chroma := s * v
	x := chroma * (1 - math.Abs(math.Mod(h*6, 2)-1))
	m := v - chroma
	var rgb ms3.Vec
	switch {
	case h <= 1.0/6:
		rgb = ms3.Vec{X: chroma, Y: x}
	case h <= 2.0/6:
		rgb = ms3.Vec{X: x, Y: chroma}
	case h <= 3.0/6:
		rgb = ms3.Vec{Y: chroma, Z: x}
	case h <= 4.0/6:
		rgb = ms3.Vec{Y: x, Z: chroma}
	case h <= 5.0/6:
		rgb = ms3.Vec{X: x, Z: chroma}
	default:
		rgb = ms3.Vec{X: chroma, Z: x}
	}
	return ms3.Add(rgb, ms3.Vec{X: m, Y: m, Z: m})
}

// rgbToHSV converts a RGB color to HSV, both on the range 0 to 1.
func rgbToHSV(c ms3.Vec) hsv {
	r, g, b := c.X, c.Y, c.Z
	xmax := max(r, g, b)
	chroma := xmax - min(r, g, b)
	var h, s float32
	switch {
	case chroma == 0:
		h = 0
	case xmax == r:
		h = (g - b) / (chroma * 6)
	case xmax == g:
		h = 1.0/3 + (b-r)/(chroma*6)
	default:
		h = 2.0/3 + (r-g)/(chroma*6)
	}
	if h < 0 {
		h += 1
	}
	if xmax > 0 {
		s = chroma / xmax
	}
	return hsv{X: h, Y: s, Z: xmax}
}

package glrender

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/ebb-bloom/sdfscene/gleval"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

type setImage = interface {
	image.Image
	Set(x, y int, c color.Color)
}

// Plane is a rectangular planar cross-section of 3D space. Points of the section
// are Origin + u·U + v·V for (u,v) inside Bounds.
type Plane struct {
	Origin ms3.Vec
	U, V   ms3.Vec
	Bounds ms2.Box
}

// PlaneXY returns the section of the z=z0 plane spanned by bb.
func PlaneXY(bb ms3.Box, z0 float32) Plane {
	return Plane{
		Origin: ms3.Vec{Z: z0},
		U:      ms3.Vec{X: 1},
		V:      ms3.Vec{Y: 1},
		Bounds: ms2.Box{Min: ms2.Vec{X: bb.Min.X, Y: bb.Min.Y}, Max: ms2.Vec{X: bb.Max.X, Y: bb.Max.Y}},
	}
}

// At returns the 3D point of section coordinates (u,v).
func (pl *Plane) At(u, v float32) ms3.Vec {
	return ms3.Add(pl.Origin, ms3.Add(ms3.Scale(u, pl.U), ms3.Scale(v, pl.V)))
}

// SliceRenderer converts planar sections of 3D SDFs to images.
type SliceRenderer struct {
	conv func(f float32) color.Color
	pos  []ms3.Vec
	dist []float32
}

// NewSliceRenderer instances a new [SliceRenderer] to render images of SDF sections. A nil float->color conversion
// function results in a simple black-white color scheme where black is the interior of the SDF (negative distance).
func NewSliceRenderer(evalBufferSize int, conversion func(float32) color.Color) (*SliceRenderer, error) {
	if evalBufferSize <= 64 {
		return nil, errors.New("too small evaluation buffer size")
	}
	if conversion == nil {
		conversion = func(f float32) color.Color {
			switch {
			case math32.IsNaN(f) || math32.IsInf(f, 0):
				return color.RGBA{R: 255, A: 255}
			case f > 0:
				return color.White
			default:
				return color.Black
			}
		}
	}
	sr := &SliceRenderer{
		conv: conversion,
		pos:  make([]ms3.Vec, evalBufferSize),
		dist: make([]float32, evalBufferSize),
	}
	return sr, nil
}

// Render maps the section pl of the SDF onto the image and renders it, image rows
// growing towards -V. It uses userData as an argument to all [gleval.SDF3.Evaluate] calls.
func (sr *SliceRenderer) Render(sdf gleval.SDF3, pl Plane, img setImage, userData any) error {
	imgBB := img.Bounds()
	dxi := imgBB.Dx()
	dyi := imgBB.Dy()
	if len(sr.dist) < dyi {
		return fmt.Errorf("require evaluation buffer (%d) to be at least of length of image rows (%d)", len(sr.dist), dyi)
	}
	bb := pl.Bounds
	du := (bb.Max.X - bb.Min.X) / float32(dxi)
	dv := (bb.Max.Y - bb.Min.Y) / float32(dyi)
	// Offset to pixel centers.
	umin := bb.Min.X + du/2
	vmax := bb.Max.Y - dv/2
	for i := 0; i < dxi; i++ {
		u := float32(i)*du + umin
		err := sr.renderColumn(sdf, &pl, i, u, vmax, dv, imgBB, img, userData)
		if err != nil {
			return err
		}
	}
	return nil
}

func (sr *SliceRenderer) renderColumn(sdf gleval.SDF3, pl *Plane, col int, u, vmax, dv float32, imgBB image.Rectangle, img setImage, userData any) error {
	dyi := imgBB.Dy()
	for j := 0; j < dyi; j++ {
		v := vmax - float32(j)*dv
		sr.pos[j] = pl.At(u, v)
	}
	err := sdf.Evaluate(sr.pos[:dyi], sr.dist[:dyi], userData)
	if err != nil {
		return err
	}
	conv := sr.conv
	for j := 0; j < dyi; j++ {
		d := sr.dist[j]
		img.Set(col+imgBB.Min.X, j+imgBB.Min.Y, conv(d))
	}
	return nil
}

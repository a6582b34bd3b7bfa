// Package sdfaux has helpers for getting scenes on screen and on disk quickly:
// scene files, built-in demo scenes, a molecule builder and image and mesh output.
// Applications with specific needs should drive the sdfscene packages directly.
package sdfaux

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ebb-bloom/sdfscene"
	"github.com/ebb-bloom/sdfscene/glbuild"
	"github.com/ebb-bloom/sdfscene/gleval"
	"github.com/ebb-bloom/sdfscene/glrender"
	"github.com/ebb-bloom/sdfscene/material"
	"github.com/soypat/geometry/ms3"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

type RenderConfig struct {
	// ImageOutput receives the raymarched image as PNG.
	ImageOutput io.Writer
	// STLOutput receives the marching cubes mesh of the scene as binary STL.
	STLOutput io.Writer
	// VisualOutput receives a standalone GLSL fragment shader of the scene.
	VisualOutput io.Writer
	Render       glrender.Config
	// MeshCells is the marching cubes resolution. Zero means [glrender.DefaultMeshCells].
	MeshCells int
	Materials material.Resolver
	Textures  glrender.TextureSource
	Silent    bool
}

// RenderScene is an auxiliary function to aid users in getting setup quickly.
// It compiles the scene once and writes every output set in cfg.
func RenderScene(sc *sdfscene.Scene, cfg RenderConfig) (err error) {
	if cfg.ImageOutput == nil && cfg.STLOutput == nil && cfg.VisualOutput == nil {
		return errors.New("RenderScene requires output parameter in config")
	}
	log := func(args ...any) {
		if !cfg.Silent {
			fmt.Println(args...)
		}
	}
	watch := stopwatch()
	var compiler sdfscene.Compiler
	field, err := compiler.Compile(sc.Primitives)
	if err != nil {
		return fmt.Errorf("compiling scene: %w", err)
	}
	log("compiled", field.Len(), "primitives in", watch())

	if cfg.ImageOutput != nil {
		renderer, err := glrender.NewRenderer(cfg.Render, cfg.Materials, cfg.Textures)
		if err != nil {
			return err
		}
		lighting := sc.Lighting
		if len(lighting.Lights()) == 0 {
			lighting = sdfscene.DefaultLighting()
		}
		watch = stopwatch()
		img, err := renderer.Render(field, sc.Camera, lighting)
		if err != nil {
			return fmt.Errorf("rendering image: %w", err)
		}
		rcfg := renderer.Config()
		log("raymarched", rcfg.Width, "x", rcfg.Height, "image in", watch())
		watch = stopwatch()
		err = png.Encode(cfg.ImageOutput, img)
		if err != nil {
			return fmt.Errorf("writing PNG: %w", err)
		}
		log("wrote", outputName(cfg.ImageOutput, "image"), "in", watch())
	}

	if cfg.VisualOutput != nil {
		watch = stopwatch()
		marcher := cfg.Render.Marcher.WithDefaults()
		_, err = glbuild.NewDefaultProgrammer().WriteFragmentVisualizer(cfg.VisualOutput, sc.Primitives, sc.Camera.Position, marcher)
		if err != nil {
			return fmt.Errorf("writing visual GLSL: %w", err)
		}
		log("wrote", outputName(cfg.VisualOutput, "GLSL visualization"), "in", watch())
	}

	if cfg.STLOutput != nil {
		watch = stopwatch()
		cache := &gleval.CachedSDF3{SDF: field}
		n, err := glrender.ExportSTL(cfg.STLOutput, cache, cfg.MeshCells)
		if err != nil {
			return fmt.Errorf("exporting STL: %w", err)
		}
		pcnt := percentUint64(cache.CacheHits(), cache.Evaluations())
		log("meshed", n, "triangles in", watch(), "with", pcnt, "percent of", cache.Evaluations(), "evaluations cached")
		log("wrote", outputName(cfg.STLOutput, "STL"))
	}
	return nil
}

func outputName(w io.Writer, fallback string) string {
	if fp, ok := w.(*os.File); ok {
		return fp.Name()
	}
	return fallback
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

// RenderSlicePNG renders the z=z0 section of s over its XY bounds and saves the result to a PNG file.
// The image width is sized automatically from the image height argument to preserve the aspect ratio.
// If a nil color conversion function is passed then [ColorConversionInigoQuilez] is used.
func RenderSlicePNG(filename string, s gleval.SDF3, z0 float32, picHeight int, colorConversion func(float32) color.Color) error {
	img, err := RenderSlice(s, z0, picHeight, colorConversion)
	if err != nil {
		return err
	}
	return WriteImage(filename, img)
}

// RenderSlice is [RenderSlicePNG] without writing the image.
func RenderSlice(s gleval.SDF3, z0 float32, picHeight int, colorConversion func(float32) color.Color) (*image.RGBA, error) {
	bb := s.Bounds()
	sz := ms3.Sub(bb.Max, bb.Min)
	if !(sz.X > 0 && sz.Y > 0) || sz.X > 1e6 || sz.Y > 1e6 {
		return nil, fmt.Errorf("cannot slice SDF with bounds %v", bb)
	}
	if colorConversion == nil {
		colorConversion = ColorConversionInigoQuilez(ms3.Norm(sz) / 3)
	}
	pixPerUnit := float64(picHeight) / float64(sz.Y)
	picWidth := max(1, int(pixPerUnit*float64(sz.X)))
	img := image.NewRGBA(image.Rect(0, 0, picWidth, picHeight))
	renderer, err := glrender.NewSliceRenderer(max(4096, picHeight), colorConversion)
	if err != nil {
		return nil, err
	}
	err = renderer.Render(s, glrender.PlaneXY(bb, z0), img, nil)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// WriteImage encodes img to filename in the format given by its extension:
// .png, .jpg, .jpeg, .bmp, .tif or .tiff.
func WriteImage(filename string, img image.Image) error {
	var encode func(io.Writer, image.Image) error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		encode = png.Encode
	case ".jpg", ".jpeg":
		encode = func(w io.Writer, img image.Image) error { return jpeg.Encode(w, img, &jpeg.Options{Quality: 95}) }
	case ".bmp":
		encode = bmp.Encode
	case ".tif", ".tiff":
		encode = func(w io.Writer, img image.Image) error { return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate}) }
	default:
		return fmt.Errorf("unsupported image extension %q", filepath.Ext(filename))
	}
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	err = encode(fp, img)
	if err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}

// LoadMaterials merges the material library in filename, YAML or JSON, into reg.
func LoadMaterials(filename string, reg *material.Registry) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	err = reg.Load(data, true)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	return nil
}

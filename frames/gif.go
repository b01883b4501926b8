package frames

import (
	"image"
	"image/color"
	"image/gif"
	"io"
	"math"

	fluid "github.com/esimov/mac-fluid/fluid-solver"
	"github.com/mazznoer/colorgrad"
)

// GIFWriter collects the density of every frame into an animated GIF, each
// grid cell drawn as a scale x scale block. The animation is encoded on Close.
type GIFWriter struct {
	w       io.Writer
	scale   int
	delay   int
	palette color.Palette
	anim    gif.GIF
}

// NewGIFWriter returns a GIF sink. delay is the time between frames in
// hundredths of a second.
func NewGIFWriter(w io.Writer, scale, delay int) *GIFWriter {
	if scale < 1 {
		scale = 1
	}
	return &GIFWriter{
		w:       w,
		scale:   scale,
		delay:   delay,
		palette: color.Palette(colorgrad.Viridis().Colors(256)),
	}
}

// Accept renders the density of f. Densities are clamped to [0, 1].
func (gw *GIFWriter) Accept(f *fluid.Frame) error {
	img := image.NewPaletted(image.Rect(0, 0, f.Width*gw.scale, f.Height*gw.scale), gw.palette)
	top := len(gw.palette) - 1

	for y := 0; y < f.Height; y++ {
		// Images grow downwards, the simulation grows upwards.
		py := (f.Height - 1 - y) * gw.scale
		for x := 0; x < f.Width; x++ {
			d := math.Max(0, math.Min(f.DensityAt(x, y), 1))
			idx := uint8(math.Round(d * float64(top)))

			px := x * gw.scale
			for j := 0; j < gw.scale; j++ {
				for i := 0; i < gw.scale; i++ {
					img.SetColorIndex(px+i, py+j, idx)
				}
			}
		}
	}

	gw.anim.Image = append(gw.anim.Image, img)
	gw.anim.Delay = append(gw.anim.Delay, gw.delay)

	return nil
}

// Close encodes the collected frames.
func (gw *GIFWriter) Close() error {
	return gif.EncodeAll(gw.w, &gw.anim)
}

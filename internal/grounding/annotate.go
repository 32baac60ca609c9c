package grounding

import (
	"image"

	"github.com/fogleman/gg"

	"ocrgate/internal/domain"
)

const (
	boxLineWidth  = 3.0
	labelOffsetPx = 4.0
)

// Annotate draws each detection's box and label onto a copy of the
// source image. Degenerate boxes (zero or negative area) are skipped.
// The source image is never mutated.
func Annotate(src image.Image, dets []domain.PixelDetection) image.Image {
	// NewContextForImage draws onto a fresh RGBA canvas, leaving src intact.
	dc := gg.NewContextForImage(src)
	dc.SetRGB(1, 0, 0)
	dc.SetLineWidth(boxLineWidth)

	for _, d := range dets {
		if d.X1 <= d.X0 || d.Y1 <= d.Y0 {
			continue
		}
		dc.DrawRectangle(float64(d.X0), float64(d.Y0), float64(d.X1-d.X0), float64(d.Y1-d.Y0))
		dc.Stroke()
		if d.Label != "" {
			y := float64(d.Y0) - labelOffsetPx
			if y < labelOffsetPx {
				y = float64(d.Y0) + 3*labelOffsetPx
			}
			dc.DrawString(d.Label, float64(d.X0), y)
		}
	}

	return dc.Image()
}

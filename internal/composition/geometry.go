package composition

import (
	"image"
	"math"

	"github.com/curio-labs/curio/internal/backgrounds"
)

// Box is a rectangle in output-canvas coordinates before rounding
type Box struct {
	X      float64 `json:"x" yaml:"x" parquet:"x"`
	Y      float64 `json:"y" yaml:"y" parquet:"y"`
	Width  float64 `json:"width" yaml:"width" parquet:"width"`
	Height float64 `json:"height" yaml:"height" parquet:"height"`
}

// ScaleBox maps a bounding box from the background's native pixel space
// onto a canvas of outW x outH. X and Y scale independently.
func ScaleBox(box backgrounds.BoundingBox, nativeW, nativeH, outW, outH int) Box {
	scaleX := float64(outW) / float64(nativeW)
	scaleY := float64(outH) / float64(nativeH)
	return Box{
		X:      float64(box.X) * scaleX,
		Y:      float64(box.Y) * scaleY,
		Width:  float64(box.Width) * scaleX,
		Height: float64(box.Height) * scaleY,
	}
}

// ClampBox rounds b to whole pixels and then fits it inside the canvas.
// An overflowing box is shifted back towards the origin first and only
// shrunk once it no longer fits; it never errors.
func ClampBox(b Box, outW, outH int) image.Rectangle {
	x, y := roundHalfUp(b.X), roundHalfUp(b.Y)
	w, h := max(0, roundHalfUp(b.Width)), max(0, roundHalfUp(b.Height))

	cx := max(0, min(x, outW-w))
	cy := max(0, min(y, outH-h))
	cw := min(w, outW-cx)
	ch := min(h, outH-cy)

	return image.Rect(cx, cy, cx+cw, cy+ch)
}

// roundHalfUp rounds .5 towards positive infinity, unlike math.Round
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

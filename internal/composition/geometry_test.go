package composition

import (
	"image"
	"math"
	"testing"

	"github.com/curio-labs/curio/internal/backgrounds"
)

func TestScaleBox(t *testing.T) {
	box := backgrounds.BoundingBox{X: 131, Y: 284, Width: 124, Height: 173}
	got := ScaleBox(box, 750, 1000, CanvasWidth, CanvasHeight)

	want := Box{
		X:      131 * 393.0 / 750,
		Y:      284 * 852.0 / 1000,
		Width:  124 * 393.0 / 750,
		Height: 173 * 852.0 / 1000,
	}
	for _, c := range []struct {
		name      string
		got, want float64
	}{
		{"x", got.X, want.X},
		{"y", got.Y, want.Y},
		{"width", got.Width, want.Width},
		{"height", got.Height, want.Height},
	} {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Errorf("Expected %s=%f, got %f", c.name, c.want, c.got)
		}
	}
}

func TestScaleBoxIndependentAxes(t *testing.T) {
	box := backgrounds.BoundingBox{X: 10, Y: 10, Width: 10, Height: 10}
	got := ScaleBox(box, 100, 50, 200, 200)
	if got.X != 20 || got.Width != 20 {
		t.Errorf("Expected x axis scaled by 2, got %+v", got)
	}
	if got.Y != 40 || got.Height != 40 {
		t.Errorf("Expected y axis scaled by 4, got %+v", got)
	}
}

func TestClampBox(t *testing.T) {
	const w, h = CanvasWidth, CanvasHeight

	tests := []struct {
		name string
		in   Box
		want image.Rectangle
	}{
		{
			name: "inside stays put after rounding",
			in:   Box{X: 68.644, Y: 241.968, Width: 64.976, Height: 147.396},
			want: image.Rect(69, 242, 69+65, 242+147),
		},
		{
			name: "half rounds up",
			in:   Box{X: 10.5, Y: 20.5, Width: 30.5, Height: 40.5},
			want: image.Rect(11, 21, 11+31, 21+41),
		},
		{
			name: "overflow right shifts left",
			in:   Box{X: 380, Y: 100, Width: 50, Height: 50},
			want: image.Rect(w-50, 100, w, 150),
		},
		{
			name: "overflow bottom shifts up",
			in:   Box{X: 10, Y: 840, Width: 20, Height: 100},
			want: image.Rect(10, h-100, 30, h),
		},
		{
			name: "negative origin shifts in",
			in:   Box{X: -30, Y: -5, Width: 40, Height: 40},
			want: image.Rect(0, 0, 40, 40),
		},
		{
			name: "wider than canvas shrinks",
			in:   Box{X: 50, Y: 0, Width: 1000, Height: 2000},
			want: image.Rect(0, 0, w, h),
		},
		{
			name: "exact canvas",
			in:   Box{X: 0, Y: 0, Width: w, Height: h},
			want: image.Rect(0, 0, w, h),
		},
		{
			name: "negative size collapses",
			in:   Box{X: 5000, Y: 5000, Width: -10, Height: -10},
			want: image.Rect(w, h, w, h),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClampBox(tt.in, w, h)
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestClampBoxAlwaysInsideCanvas(t *testing.T) {
	const w, h = CanvasWidth, CanvasHeight
	values := []float64{-2000, -393, -1, 0, 0.4, 0.5, 1, 196.5, 392, 393, 394, 851, 852, 853, 5000}

	for _, x := range values {
		for _, y := range values {
			for _, bw := range values {
				for _, bh := range values {
					r := ClampBox(Box{X: x, Y: y, Width: bw, Height: bh}, w, h)
					if r.Min.X < 0 || r.Min.Y < 0 || r.Max.X > w || r.Max.Y > h {
						t.Fatalf("Box %v,%v,%v,%v clamped outside canvas: %v", x, y, bw, bh, r)
					}
					if r.Dx() < 0 || r.Dy() < 0 {
						t.Fatalf("Box %v,%v,%v,%v clamped to negative size: %v", x, y, bw, bh, r)
					}
				}
			}
		}
	}
}

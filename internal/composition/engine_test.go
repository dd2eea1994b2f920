package composition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"testing"

	"github.com/curio-labs/curio/internal/backgrounds"
)

type mapFetcher map[string][]byte

func (m mapFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	data, ok := m[ref]
	if !ok {
		return nil, fmt.Errorf("no asset %s", ref)
	}
	return data, nil
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeJPEGBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func decodeResult(t *testing.T, res *Result) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(res.Image))
	if err != nil {
		t.Fatalf("Expected composite to be a JPEG, got %v", err)
	}
	return img
}

func near(a, b color.Color, tol int) bool {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	d := func(x, y uint32) int {
		v := int(x>>8) - int(y>>8)
		if v < 0 {
			return -v
		}
		return v
	}
	return d(ar, br) <= tol && d(ag, bg) <= tol && d(ab, bb) <= tol
}

var (
	green = color.RGBA{G: 200, A: 255}
	red   = color.RGBA{R: 220, A: 255}
	blue  = color.RGBA{B: 220, A: 255}
)

func TestComposeChineseScenario(t *testing.T) {
	tpl := backgrounds.Template{
		ID:          "bg-cn-03",
		Category:    backgrounds.Chinese,
		ImagePath:   "backgrounds/Chinese/chinese_3.png",
		BoundingBox: backgrounds.BoundingBox{X: 131, Y: 284, Width: 124, Height: 173},
	}
	fetcher := mapFetcher{tpl.ImagePath: encodePNG(t, solid(750, 1000, green))}
	user := encodeJPEGBytes(t, solid(4000, 3000, red))

	res, err := New(fetcher).Compose(context.Background(), user, tpl)
	if err != nil {
		t.Fatalf("Expected composition to succeed, got %v", err)
	}

	if res.Width != 393 || res.Height != 852 {
		t.Errorf("Expected 393x852 result, got %dx%d", res.Width, res.Height)
	}
	img := decodeResult(t, res)
	if b := img.Bounds(); b.Dx() != 393 || b.Dy() != 852 {
		t.Errorf("Expected 393x852 pixels, got %v", b)
	}
	if res.BackgroundID != "bg-cn-03" {
		t.Errorf("Expected background id bg-cn-03, got %s", res.BackgroundID)
	}
	if res.ContentType != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %s", res.ContentType)
	}

	if res.ScaledBox.X < 68 || res.ScaledBox.X > 69 || res.ScaledBox.Y < 241 || res.ScaledBox.Y > 242.5 {
		t.Errorf("Expected scaled origin near (68.6, 242.0), got %+v", res.ScaledBox)
	}
	want := image.Rect(69, 242, 134, 389)
	if res.UsedBox != want {
		t.Errorf("Expected used box %v, got %v", want, res.UsedBox)
	}

	center := image.Pt((want.Min.X+want.Max.X)/2, (want.Min.Y+want.Max.Y)/2)
	if c := img.At(center.X, center.Y); !near(c, red, 24) {
		t.Errorf("Expected user photo inside frame, got %v", c)
	}
	if c := img.At(10, 10); !near(c, green, 24) {
		t.Errorf("Expected background outside frame, got %v", c)
	}
}

func TestComposeOutputSizeIsFixed(t *testing.T) {
	sizes := [][2]int{{1, 1}, {393, 852}, {1200, 300}, {64, 2048}}

	for _, bgSize := range sizes {
		for _, userSize := range sizes {
			name := fmt.Sprintf("bg%dx%d_user%dx%d", bgSize[0], bgSize[1], userSize[0], userSize[1])
			t.Run(name, func(t *testing.T) {
				tpl := backgrounds.Template{
					ID:          "bg",
					ImagePath:   "bg.png",
					BoundingBox: backgrounds.BoundingBox{X: bgSize[0] / 4, Y: bgSize[1] / 4, Width: bgSize[0], Height: bgSize[1]},
				}
				fetcher := mapFetcher{"bg.png": encodePNG(t, solid(bgSize[0], bgSize[1], green))}
				user := encodePNG(t, solid(userSize[0], userSize[1], red))

				res, err := New(fetcher).Compose(context.Background(), user, tpl)
				if err != nil {
					t.Fatalf("Expected success, got %v", err)
				}
				b := decodeResult(t, res).Bounds()
				if b.Dx() != CanvasWidth || b.Dy() != CanvasHeight {
					t.Errorf("Expected %dx%d, got %v", CanvasWidth, CanvasHeight, b)
				}
				if res.UsedBox.Max.X > CanvasWidth || res.UsedBox.Max.Y > CanvasHeight || res.UsedBox.Min.X < 0 || res.UsedBox.Min.Y < 0 {
					t.Errorf("Expected used box inside canvas, got %v", res.UsedBox)
				}
			})
		}
	}
}

func TestComposeFullCanvasFrameOccludesBackground(t *testing.T) {
	tpl := backgrounds.Template{
		ID:          "full",
		ImagePath:   "full.png",
		BoundingBox: backgrounds.BoundingBox{X: 0, Y: 0, Width: 300, Height: 600},
	}
	fetcher := mapFetcher{"full.png": encodePNG(t, solid(300, 600, green))}
	user := encodePNG(t, solid(40, 30, red))

	res, err := New(fetcher).Compose(context.Background(), user, tpl)
	if err != nil {
		t.Fatal(err)
	}
	if res.UsedBox != image.Rect(0, 0, CanvasWidth, CanvasHeight) {
		t.Fatalf("Expected frame to equal the canvas, got %v", res.UsedBox)
	}

	img := decodeResult(t, res)
	for _, p := range []image.Point{{0, 0}, {392, 0}, {0, 851}, {392, 851}, {196, 426}} {
		if c := img.At(p.X, p.Y); !near(c, red, 24) {
			t.Errorf("Expected user photo at %v, got %v", p, c)
		}
	}
}

func TestComposeStretchesWithoutLetterbox(t *testing.T) {
	// left half red, right half blue, square photo into a tall frame
	user := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			if x < 50 {
				user.Set(x, y, red)
			} else {
				user.Set(x, y, blue)
			}
		}
	}

	tpl := backgrounds.Template{
		ID:          "tall",
		ImagePath:   "tall.png",
		BoundingBox: backgrounds.BoundingBox{X: 100, Y: 100, Width: 100, Height: 400},
	}
	fetcher := mapFetcher{"tall.png": encodePNG(t, solid(CanvasWidth, CanvasHeight, green))}

	res, err := New(fetcher).Compose(context.Background(), encodePNG(t, user), tpl)
	if err != nil {
		t.Fatal(err)
	}
	img := decodeResult(t, res)

	// the top and bottom rows of the frame would be background if the
	// photo were letterboxed
	for _, y := range []int{105, 300, 495} {
		if c := img.At(120, y); !near(c, red, 30) {
			t.Errorf("Expected red at (120,%d), got %v", y, c)
		}
		if c := img.At(180, y); !near(c, blue, 30) {
			t.Errorf("Expected blue at (180,%d), got %v", y, c)
		}
	}
}

func TestComposeLoadErrors(t *testing.T) {
	tpl := backgrounds.Template{ID: "bg", ImagePath: "bg.png"}
	good := encodePNG(t, solid(10, 10, green))

	tests := []struct {
		name    string
		fetcher mapFetcher
		user    []byte
		which   Which
	}{
		{"missing background", mapFetcher{}, good, Background},
		{"corrupt background", mapFetcher{"bg.png": []byte("nope")}, good, Background},
		{"corrupt user", mapFetcher{"bg.png": good}, []byte("not an image"), User},
		{"empty user", mapFetcher{"bg.png": good}, nil, User},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.fetcher).Compose(context.Background(), tt.user, tpl)
			var loadErr *ImageLoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("Expected ImageLoadError, got %v", err)
			}
			if loadErr.Which != tt.which {
				t.Errorf("Expected failure on %s, got %s", tt.which, loadErr.Which)
			}
		})
	}
}

func TestComposeEncodeError(t *testing.T) {
	tpl := backgrounds.Template{ID: "bg", ImagePath: "bg.png"}
	fetcher := mapFetcher{"bg.png": encodePNG(t, solid(10, 10, green))}
	failing := func(io.Writer, image.Image, int) error { return errors.New("canvas tainted") }

	_, err := New(fetcher, WithEncoder("image/jpeg", failing)).Compose(context.Background(), encodePNG(t, solid(5, 5, red)), tpl)

	var encErr *EncodeError
	if !errors.As(err, &encErr) {
		t.Fatalf("Expected EncodeError, got %v", err)
	}
}

func TestDrawDoesNotMutateInputs(t *testing.T) {
	bg := solid(50, 80, green)
	user := solid(20, 20, red)
	bgBefore := append([]uint8(nil), bg.Pix...)
	userBefore := append([]uint8(nil), user.Pix...)

	tpl := backgrounds.Template{ID: "bg", BoundingBox: backgrounds.BoundingBox{X: 5, Y: 5, Width: 30, Height: 30}}
	if _, err := New(nil).Draw(user, bg, tpl); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(bg.Pix, bgBefore) {
		t.Error("Expected background pixels unchanged")
	}
	if !bytes.Equal(user.Pix, userBefore) {
		t.Error("Expected user pixels unchanged")
	}
}

func TestOptions(t *testing.T) {
	e := New(nil, WithCanvas(100, 200), WithQuality(50), WithCanvas(-1, 5), WithQuality(0))
	w, h := e.Canvas()
	if w != 100 || h != 200 {
		t.Errorf("Expected 100x200 canvas, got %dx%d", w, h)
	}
	if e.quality != 50 {
		t.Errorf("Expected quality 50, got %d", e.quality)
	}
}

// Package composition flattens a user photo into the frame of a themed
// background, producing one fixed-size image.
package composition

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"time"

	"github.com/curio-labs/curio/internal/backgrounds"
	"github.com/curio-labs/curio/internal/images"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// Phone viewport the composite is rendered for
const (
	CanvasWidth    = 393
	CanvasHeight   = 852
	DefaultQuality = 90
)

// Fetcher resolves an image reference to its bytes
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Result is one flattened composite. The caller owns Image.
type Result struct {
	Image        []byte          `json:"-"`
	ContentType  string          `json:"content_type"`
	BackgroundID string          `json:"background_id"`
	Width        int             `json:"width"`
	Height       int             `json:"height"`
	ScaledBox    Box             `json:"scaled_box"`
	UsedBox      image.Rectangle `json:"used_box"`
}

// Engine composes images on a canvas of fixed size
type Engine struct {
	fetcher Fetcher
	width   int
	height  int
	quality int
	scaler  draw.Scaler
	logger  *slog.Logger

	contentType string
	encode      EncodeFunc
}

// EncodeFunc serializes the finished canvas
type EncodeFunc func(w io.Writer, img image.Image, quality int) error

func encodeJPEG(w io.Writer, img image.Image, quality int) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}

// Option configures an Engine
type Option func(*Engine)

// WithCanvas overrides the output dimensions
func WithCanvas(width, height int) Option {
	return func(e *Engine) {
		if width > 0 && height > 0 {
			e.width, e.height = width, height
		}
	}
}

// WithQuality sets the JPEG quality (1-100)
func WithQuality(q int) Option {
	return func(e *Engine) {
		if q >= 1 && q <= 100 {
			e.quality = q
		}
	}
}

// WithScaler sets the interpolator used for both draws
func WithScaler(s draw.Scaler) Option {
	return func(e *Engine) {
		if s != nil {
			e.scaler = s
		}
	}
}

// WithEncoder replaces the JPEG encoder
func WithEncoder(contentType string, fn EncodeFunc) Option {
	return func(e *Engine) {
		if fn != nil {
			e.contentType, e.encode = contentType, fn
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an engine that loads backgrounds through fetcher
func New(fetcher Fetcher, opts ...Option) *Engine {
	e := &Engine{
		fetcher: fetcher,
		width:   CanvasWidth,
		height:  CanvasHeight,
		quality: DefaultQuality,
		scaler:  draw.ApproxBiLinear,
		logger:  slog.Default(),

		contentType: "image/jpeg",
		encode:      encodeJPEG,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Canvas returns the output dimensions
func (e *Engine) Canvas() (int, int) {
	return e.width, e.height
}

// Compose stretches the background over the whole canvas and the user
// photo over the template's frame. It blocks until both inputs have been
// loaded; a failure to load either returns *ImageLoadError.
func (e *Engine) Compose(ctx context.Context, userImage []byte, tpl backgrounds.Template) (*Result, error) {
	start := time.Now()

	var bg, user image.Image
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := e.fetcher.Fetch(gctx, tpl.ImagePath)
		if err != nil {
			return &ImageLoadError{Which: Background, Err: err}
		}
		img, _, err := images.Decode(data)
		if err != nil {
			return &ImageLoadError{Which: Background, Err: err}
		}
		bg = img
		return nil
	})
	g.Go(func() error {
		img, _, err := images.Decode(userImage)
		if err != nil {
			return &ImageLoadError{Which: User, Err: err}
		}
		user = img
		return nil
	})
	if err := g.Wait(); err != nil {
		e.logger.Error("Composite inputs failed to load", "background_id", tpl.ID, "error", err)
		return nil, err
	}

	result, err := e.Draw(user, bg, tpl)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Composite created",
		"background_id", tpl.ID,
		"used_box", result.UsedBox.String(),
		"bytes", len(result.Image),
		"duration", time.Since(start))
	return result, nil
}

// Draw composes already decoded images. Neither input is modified.
func (e *Engine) Draw(user, bg image.Image, tpl backgrounds.Template) (*Result, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, e.width, e.height))
	// JPEG has no alpha, so transparent regions end up black as in a canvas export
	draw.Draw(canvas, canvas.Bounds(), image.Black, image.Point{}, draw.Src)

	bgBounds := bg.Bounds()
	e.scaler.Scale(canvas, canvas.Bounds(), bg, bgBounds, draw.Over, nil)

	scaled := ScaleBox(tpl.BoundingBox, bgBounds.Dx(), bgBounds.Dy(), e.width, e.height)
	frame := ClampBox(scaled, e.width, e.height)

	e.logger.Debug("Frame area scaled",
		"background_id", tpl.ID,
		"native", fmt.Sprintf("%dx%d", bgBounds.Dx(), bgBounds.Dy()),
		"scaled_x", scaled.X, "scaled_y", scaled.Y,
		"scaled_w", scaled.Width, "scaled_h", scaled.Height,
		"clamped", frame.String())

	if !frame.Empty() {
		e.scaler.Scale(canvas, frame, user, user.Bounds(), draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := e.encode(&buf, canvas, e.quality); err != nil {
		return nil, &EncodeError{Err: err}
	}

	return &Result{
		Image:        buf.Bytes(),
		ContentType:  e.contentType,
		BackgroundID: tpl.ID,
		Width:        e.width,
		Height:       e.height,
		ScaledBox:    scaled,
		UsedBox:      frame,
	}, nil
}

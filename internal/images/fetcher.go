// Package images loads and sniffs image bytes from the asset tree or from
// remote URLs.
package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxRemoteSize caps how much of a remote image is read
const MaxRemoteSize = 20 * 1024 * 1024

// Fetcher retrieves image bytes by reference. References starting with
// http:// or https:// are downloaded; anything else is read from Root.
type Fetcher struct {
	Root       fs.FS
	HTTPClient *http.Client
}

// NewFetcher creates a fetcher rooted at the given asset tree
func NewFetcher(root fs.FS) *Fetcher {
	return &Fetcher{
		Root: root,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch returns the raw bytes behind ref
func (f *Fetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if IsRemote(ref) {
		return f.download(ctx, ref)
	}

	if f.Root == nil {
		return nil, fmt.Errorf("no asset root configured for %s", ref)
	}

	data, err := fs.ReadFile(f.Root, strings.TrimPrefix(ref, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to read asset: %w", err)
	}
	return data, nil
}

// IsRemote reports whether ref points at an http(s) resource
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxRemoteSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > MaxRemoteSize {
		return nil, fmt.Errorf("image too large (max %d MB)", MaxRemoteSize/(1024*1024))
	}

	slog.Debug("Downloaded image", "url", url, "bytes", len(data))
	return data, nil
}

// Info describes a decodable image without decoding its pixels
type Info struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Sniff checks that data is an image in one of the registered formats
func Sniff(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("not a decodable image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, fmt.Errorf("image has empty dimensions %dx%d", cfg.Width, cfg.Height)
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Decode fully decodes data
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, "", fmt.Errorf("image has empty dimensions %dx%d", b.Dx(), b.Dy())
	}
	return img, format, nil
}

// ContentType maps a decoder format name to its MIME type
func ContentType(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png", "gif", "bmp", "tiff", "webp":
		return "image/" + format
	default:
		return "application/octet-stream"
	}
}

package cmd

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/curio-labs/curio/internal/backgrounds"
	"github.com/curio-labs/curio/internal/report"
	"github.com/spf13/cobra"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{B: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

// assetTree writes a small image for every registered background
func assetTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, tpl := range backgrounds.MustDefault().All() {
		writePNG(t, filepath.Join(dir, filepath.FromSlash(tpl.ImagePath)), 75, 100)
	}
	return dir
}

func TestFlagsFromEnv(t *testing.T) {
	var port string
	var delay time.Duration
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().StringVar(&port, "port", "8888", "")
	cmd.Flags().DurationVar(&delay, "analysis-delay", time.Second, "")

	t.Setenv("CURIO_PORT", "9999")
	t.Setenv("CURIO_ANALYSIS_DELAY", "250ms")
	if err := cmd.Flags().Parse([]string{"--port", "7000"}); err != nil {
		t.Fatal(err)
	}
	if err := flagsFromEnv(cmd, map[string]string{"port": "CURIO_PORT", "analysis-delay": "CURIO_ANALYSIS_DELAY"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if port != "7000" {
		t.Errorf("Expected explicit flag to win, got %s", port)
	}
	if delay != 250*time.Millisecond {
		t.Errorf("Expected delay from env, got %v", delay)
	}

	t.Setenv("CURIO_ANALYSIS_DELAY", "soon")
	cmd.Flags().Lookup("analysis-delay").Changed = false
	if err := flagsFromEnv(cmd, map[string]string{"analysis-delay": "CURIO_ANALYSIS_DELAY"}); err == nil {
		t.Error("Expected an error for an invalid duration")
	}
}

func TestListPhotos(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.jpg", "b.PNG", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0755); err != nil {
		t.Fatal(err)
	}

	photos, err := listPhotos(dir)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(photos) != 2 {
		t.Errorf("Expected 2 photos, got %v", photos)
	}
}

func TestBatchCommand(t *testing.T) {
	assets := assetTree(t)
	input := t.TempDir()
	writePNG(t, filepath.Join(input, "vase.png"), 40, 60)
	writePNG(t, filepath.Join(input, "lamp.png"), 80, 20)
	if err := os.WriteFile(filepath.Join(input, "broken.jpg"), []byte("not a jpeg"), 0644); err != nil {
		t.Fatal(err)
	}

	out := t.TempDir()
	yamlPath := filepath.Join(out, "batch.yaml")
	parquetPath := filepath.Join(out, "batch.parquet")

	root := NewRootCmd()
	root.SetArgs([]string{"batch",
		"--input", input,
		"--assets", assets,
		"--category", "Modern",
		"--output-yaml", yamlPath,
		"--output-parquet", parquetPath,
		"--concurrency", "2",
	})
	root.SetOut(&bytes.Buffer{})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Expected batch to succeed, got %v", err)
	}

	r, err := report.LoadYAML(yamlPath)
	if err != nil {
		t.Fatalf("Expected a YAML report, got %v", err)
	}
	if len(r.Rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(r.Rows))
	}
	if r.Failed() != 1 {
		t.Errorf("Expected 1 failed photo, got %d", r.Failed())
	}
	for _, row := range r.Rows {
		if row.Error != "" {
			continue
		}
		if row.Category != "Modern" {
			t.Errorf("Expected Modern background for %s, got %s", row.Photo, row.Category)
		}
		if row.UsedBox.Width <= 0 || row.UsedBox.Height <= 0 {
			t.Errorf("Expected a placed photo for %s, got %+v", row.Photo, row.UsedBox)
		}
	}

	rows, err := report.LoadParquet(parquetPath)
	if err != nil {
		t.Fatalf("Expected a parquet report, got %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("Expected 3 parquet rows, got %d", len(rows))
	}
}

func TestComposeCommand(t *testing.T) {
	assets := assetTree(t)
	photo := filepath.Join(t.TempDir(), "vase.png")
	writePNG(t, photo, 30, 30)
	out := filepath.Join(t.TempDir(), "framed.jpg")

	root := NewRootCmd()
	root.SetArgs([]string{"compose", "--photo", photo, "--background", "bg-cn-03", "--assets", assets, "--out", out})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Expected compose to succeed, got %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("Expected output file, got %v", err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("Expected decodable output, got %v", err)
	}
	if format != "jpeg" || cfg.Width != 393 || cfg.Height != 852 {
		t.Errorf("Expected 393x852 jpeg, got %dx%d %s", cfg.Width, cfg.Height, format)
	}

	root = NewRootCmd()
	root.SetArgs([]string{"compose", "--photo", photo, "--background", "bg-xx-99", "--assets", assets, "--out", out})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Error("Expected an error for an unknown background")
	}

	root = NewRootCmd()
	root.SetArgs([]string{"compose", "--photo", photo, "--background", "bg-cn-03", "--assets", t.TempDir(), "--out", out})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.ExecuteContext(context.Background()); err == nil || !strings.Contains(err.Error(), "backgrounds/") {
		t.Errorf("Expected a missing asset tree error, got %v", err)
	}
}

func TestOpenAssets(t *testing.T) {
	registry := backgrounds.MustDefault()

	partial := t.TempDir()
	if err := os.Mkdir(filepath.Join(partial, "backgrounds"), 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		dir     string
		wantErr bool
	}{
		{"full tree", assetTree(t), false},
		{"backgrounds without images", partial, false},
		{"empty dir", t.TempDir(), true},
		{"missing dir", filepath.Join(t.TempDir(), "nope"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assets, err := openAssets(tt.dir, registry)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected an error")
				}
				return
			}
			if err != nil || assets == nil {
				t.Errorf("Expected assets, got %v", err)
			}
		})
	}
}

package report

import (
	"errors"
	"image"
	"path/filepath"
	"testing"
	"time"

	"github.com/curio-labs/curio/internal/backgrounds"
	"github.com/curio-labs/curio/internal/composition"
)

func sampleRows() []Row {
	tpl := backgrounds.Template{ID: "bg-cn-03", Category: backgrounds.Chinese}
	res := &composition.Result{
		BackgroundID: "bg-cn-03",
		ScaledBox:    composition.Box{X: 69.4, Y: 242.3, Width: 134.0, Height: 389.4},
		UsedBox:      image.Rect(69, 242, 69+134, 242+389),
	}
	return []Row{
		NewRow("photos/vase.jpg", tpl, res, 1500*time.Millisecond, nil),
		NewRow("photos/broken.jpg", tpl, nil, 20*time.Millisecond, errors.New("failed to load user image")),
	}
}

func TestNewRow(t *testing.T) {
	rows := sampleRows()

	ok := rows[0]
	if ok.Category != "Chinese" || ok.BackgroundID != "bg-cn-03" {
		t.Errorf("Expected Chinese bg-cn-03, got %s %s", ok.Category, ok.BackgroundID)
	}
	if ok.UsedBox != (Rect{X: 69, Y: 242, Width: 134, Height: 389}) {
		t.Errorf("Expected used box 69,242 134x389, got %+v", ok.UsedBox)
	}
	if ok.DurationMS != 1500 {
		t.Errorf("Expected 1500ms, got %d", ok.DurationMS)
	}
	if ok.Error != "" {
		t.Errorf("Expected no error, got %s", ok.Error)
	}

	failed := rows[1]
	if failed.Error == "" {
		t.Error("Expected an error on the failed row")
	}
	if failed.UsedBox != (Rect{}) {
		t.Errorf("Expected empty used box on failure, got %+v", failed.UsedBox)
	}
}

func TestSaveYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "batch.yaml")
	r := &Report{
		Config: Config{Input: "photos", Assets: "assets", Concurrency: 2, Canvas: "393x852", Timestamp: "2026-10-14_10-00-00"},
		Rows:   sampleRows(),
	}
	if err := SaveYAML(path, r); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.Config != r.Config {
		t.Errorf("Expected config %+v, got %+v", r.Config, got.Config)
	}
	if len(got.Rows) != 2 || got.Rows[0] != r.Rows[0] {
		t.Errorf("Expected rows to survive, got %+v", got.Rows)
	}
	if got.Failed() != 1 {
		t.Errorf("Expected 1 failed row, got %d", got.Failed())
	}
}

func TestSaveParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.parquet")
	rows := sampleRows()
	if err := SaveParquet(path, rows); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got, err := LoadParquet(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("Expected %d rows, got %d", len(rows), len(got))
	}
	for i := range rows {
		if got[i] != rows[i] {
			t.Errorf("Row %d: expected %+v, got %+v", i, rows[i], got[i])
		}
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := LoadParquet(filepath.Join(t.TempDir(), "nope.parquet")); err == nil {
		t.Error("Expected an error for a missing parquet file")
	}
	if _, err := LoadYAML(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected an error for a missing YAML file")
	}
}

// Package report writes batch composition results as YAML and Parquet.
package report

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/curio-labs/curio/internal/backgrounds"
	"github.com/curio-labs/curio/internal/composition"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Config is the header of a batch report
type Config struct {
	Input       string `yaml:"input"`
	Assets      string `yaml:"assets"`
	Category    string `yaml:"category,omitempty"`
	Concurrency int    `yaml:"concurrency"`
	Canvas      string `yaml:"canvas"`
	Timestamp   string `yaml:"timestamp"`
}

// Rect is a whole-pixel placement on the canvas
type Rect struct {
	X      int64 `yaml:"x" parquet:"x"`
	Y      int64 `yaml:"y" parquet:"y"`
	Width  int64 `yaml:"width" parquet:"width"`
	Height int64 `yaml:"height" parquet:"height"`
}

// Row is the outcome of composing one photo
type Row struct {
	Photo        string          `yaml:"photo" parquet:"photo"`
	BackgroundID string          `yaml:"backgroundid" parquet:"background_id"`
	Category     string          `yaml:"category" parquet:"category"`
	ScaledBox    composition.Box `yaml:"scaledbox" parquet:"scaled_box"`
	UsedBox      Rect            `yaml:"usedbox" parquet:"used_box"`
	DurationMS   int64           `yaml:"durationms" parquet:"duration_ms"`
	Error        string          `yaml:"error,omitempty" parquet:"error"`
}

// Report is a complete batch run
type Report struct {
	Config Config `yaml:"config"`
	Rows   []Row  `yaml:"rows"`
}

// NewRow records one composition. res may be nil when err is set.
func NewRow(photo string, tpl backgrounds.Template, res *composition.Result, elapsed time.Duration, err error) Row {
	row := Row{
		Photo:        photo,
		BackgroundID: tpl.ID,
		Category:     string(tpl.Category),
		DurationMS:   elapsed.Milliseconds(),
	}
	if err != nil {
		row.Error = err.Error()
	}
	if res != nil {
		row.ScaledBox = res.ScaledBox
		row.UsedBox = rectOf(res.UsedBox)
	}
	return row
}

func rectOf(r image.Rectangle) Rect {
	return Rect{X: int64(r.Min.X), Y: int64(r.Min.Y), Width: int64(r.Dx()), Height: int64(r.Dy())}
}

// Failed counts rows with an error
func (r *Report) Failed() int {
	n := 0
	for _, row := range r.Rows {
		if row.Error != "" {
			n++
		}
	}
	return n
}

// SaveYAML writes the report to path, creating its directory
func SaveYAML(path string, r *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}

	slog.Debug("Wrote YAML report", "path", path, "rows", len(r.Rows))
	return nil
}

// LoadYAML reads a report written by SaveYAML
func LoadYAML(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML file: %w", err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &r, nil
}

// SaveParquet writes the rows to path
func SaveParquet(path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[Row](file)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}

	slog.Debug("Wrote Parquet report", "path", path, "rows", len(rows))
	return nil
}

// LoadParquet reads back rows written by SaveParquet
func LoadParquet(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	rows := make([]Row, 0, pf.NumRows())
	batch := make([]Row, 128)
	for {
		n, err := reader.Read(batch)
		rows = append(rows, batch[:n]...)
		if err != nil {
			break
		}
	}
	return rows, nil
}

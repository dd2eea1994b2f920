package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"
)

// Summary aggregates the rows of a batch run
type Summary struct {
	TotalPhotos  int
	SuccessCount int
	FailureCount int

	// ClampedCount counts photos whose box had to be moved or shrunk to
	// stay on the canvas
	ClampedCount int

	Categories []CategoryStats

	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
}

// CategoryStats covers the successful photos framed in one category
type CategoryStats struct {
	Category string
	Count    int
	// AverageCoverage is the mean share of the canvas the photo occupies
	AverageCoverage float64
	Backgrounds     map[string]int
}

// Summarize aggregates rows against a canvas of canvasW x canvasH
func Summarize(rows []Row, canvasW, canvasH int) *Summary {
	s := &Summary{TotalPhotos: len(rows)}
	byCategory := map[string]*CategoryStats{}
	canvasArea := float64(canvasW * canvasH)

	var successDuration time.Duration
	for _, row := range rows {
		d := time.Duration(row.DurationMS) * time.Millisecond
		s.TotalProcessingTime += d

		if row.Error != "" {
			s.FailureCount++
			continue
		}

		s.SuccessCount++
		successDuration += d
		if clamped(row) {
			s.ClampedCount++
		}

		cs, ok := byCategory[row.Category]
		if !ok {
			cs = &CategoryStats{Category: row.Category, Backgrounds: map[string]int{}}
			byCategory[row.Category] = cs
		}
		cs.Count++
		cs.Backgrounds[row.BackgroundID]++
		if canvasArea > 0 {
			cs.AverageCoverage += float64(row.UsedBox.Width*row.UsedBox.Height) / canvasArea
		}
	}

	for _, cs := range byCategory {
		cs.AverageCoverage /= float64(cs.Count)
		s.Categories = append(s.Categories, *cs)
	}
	sort.Slice(s.Categories, func(i, j int) bool { return s.Categories[i].Category < s.Categories[j].Category })

	if s.SuccessCount > 0 {
		s.AverageProcessingTime = successDuration / time.Duration(s.SuccessCount)
	}
	return s
}

// clamped reports whether the used box differs from the rounded scaled box
func clamped(row Row) bool {
	b := row.ScaledBox
	want := Rect{
		X:      int64(math.Floor(b.X + 0.5)),
		Y:      int64(math.Floor(b.Y + 0.5)),
		Width:  int64(math.Floor(b.Width + 0.5)),
		Height: int64(math.Floor(b.Height + 0.5)),
	}
	return want != row.UsedBox
}

// Print writes a human-readable summary
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 70))
	fmt.Fprintln(w, "CURIO BATCH SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Total Photos: %d\n", s.TotalPhotos)
	if s.TotalPhotos > 0 {
		fmt.Fprintf(w, "Composed: %d (%.1f%%)\n", s.SuccessCount, float64(s.SuccessCount)/float64(s.TotalPhotos)*100)
		fmt.Fprintf(w, "Failed: %d (%.1f%%)\n", s.FailureCount, float64(s.FailureCount)/float64(s.TotalPhotos)*100)
	}
	fmt.Fprintf(w, "Clamped to canvas: %d\n", s.ClampedCount)
	fmt.Fprintf(w, "Average Processing Time: %s\n", s.AverageProcessingTime)
	fmt.Fprintf(w, "Total Processing Time: %s\n", s.TotalProcessingTime)

	for _, cs := range s.Categories {
		fmt.Fprintf(w, "\n%s:\n", cs.Category)
		fmt.Fprintf(w, "  Photos: %d\n", cs.Count)
		fmt.Fprintf(w, "  Average Coverage: %.2f%%\n", cs.AverageCoverage*100)

		ids := make([]string, 0, len(cs.Backgrounds))
		for id := range cs.Backgrounds {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(w, "  %s: %d\n", id, cs.Backgrounds[id])
		}
	}
	fmt.Fprintln(w, strings.Repeat("=", 70))
}

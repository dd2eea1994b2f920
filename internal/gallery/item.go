// Package gallery models the photos a session has analyzed and the state
// of their composites.
package gallery

import (
	"context"
	"sync"
	"time"

	"github.com/curio-labs/curio/internal/backgrounds"
	"github.com/curio-labs/curio/internal/composition"
	"github.com/google/uuid"
)

// Status is the composite state of an item
type Status string

const (
	Pending Status = "pending"
	Ready   Status = "ready"
	Failed  Status = "failed"
)

// Source is where a photo came from
type Source string

const (
	Camera Source = "camera"
	Upload Source = "upload"
)

// ParseSource defaults anything unknown to Upload
func ParseSource(s string) Source {
	if Source(s) == Camera {
		return Camera
	}
	return Upload
}

// Capture is a photo as it arrived, before analysis
type Capture struct {
	Data        []byte
	ContentType string
	Filename    string
	Source      Source
	Width       int
	Height      int
}

// Analysis is what the classifier said about the capture
type Analysis struct {
	Label       string
	Confidence  float64
	Category    backgrounds.Category
	Name        string
	Description string
}

// Item is one analyzed photo. Everything except the composite state is
// fixed at construction.
type Item struct {
	ID         string
	Capture    Capture
	Analysis   Analysis
	Background backgrounds.Template
	CreatedAt  time.Time

	mu        sync.Mutex
	status    Status
	composite *composition.Result
	err       error
	attempts  int
	done      chan struct{}
}

// NewItem returns a pending item with a fresh id
func NewItem(capture Capture, analysis Analysis, bg backgrounds.Template) *Item {
	return New(uuid.NewString(), capture, analysis, bg)
}

// New returns a pending item with the given id
func New(id string, capture Capture, analysis Analysis, bg backgrounds.Template) *Item {
	return &Item{
		ID:         id,
		Capture:    capture,
		Analysis:   analysis,
		Background: bg,
		CreatedAt:  time.Now(),
		status:     Pending,
		attempts:   1,
		done:       make(chan struct{}),
	}
}

// Resolve stores a finished composite. Only the first outcome of an
// attempt is kept.
func (it *Item) Resolve(res *composition.Result) bool {
	return it.settle(Ready, res, nil)
}

// Fail records a failed composition
func (it *Item) Fail(err error) bool {
	return it.settle(Failed, nil, err)
}

func (it *Item) settle(status Status, res *composition.Result, err error) bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.status != Pending {
		return false
	}
	it.status, it.composite, it.err = status, res, err
	close(it.done)
	return true
}

// Reset puts a failed item back to pending for another attempt
func (it *Item) Reset() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.status != Failed {
		return false
	}
	it.status, it.err = Pending, nil
	it.attempts++
	it.done = make(chan struct{})
	return true
}

// Status returns the composite state
func (it *Item) Status() Status {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.status
}

// Composite returns the finished composite, if any
func (it *Item) Composite() (*composition.Result, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.composite, it.composite != nil
}

// Err returns the last composition failure
func (it *Item) Err() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.err
}

// Done is closed when the current attempt settles
func (it *Item) Done() <-chan struct{} {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.done
}

// Wait blocks until the current attempt settles or ctx ends
func (it *Item) Wait(ctx context.Context) (Status, error) {
	select {
	case <-it.Done():
		return it.Status(), nil
	case <-ctx.Done():
		return Pending, ctx.Err()
	}
}

// Snapshot is a read-only view of an item for display and JSON
type Snapshot struct {
	ID           string               `json:"id"`
	Source       Source               `json:"source"`
	Filename     string               `json:"filename,omitempty"`
	Label        string               `json:"label"`
	Confidence   float64              `json:"confidence"`
	Category     backgrounds.Category `json:"category"`
	Name         string               `json:"name"`
	Description  string               `json:"description"`
	BackgroundID string               `json:"background_id"`
	Status       Status               `json:"status"`
	Error        string               `json:"error,omitempty"`
	Attempts     int                  `json:"attempts"`
	UsedBox      *[4]int              `json:"used_box,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

// Snapshot copies the item's current state
func (it *Item) Snapshot() Snapshot {
	it.mu.Lock()
	defer it.mu.Unlock()

	s := Snapshot{
		ID:           it.ID,
		Source:       it.Capture.Source,
		Filename:     it.Capture.Filename,
		Label:        it.Analysis.Label,
		Confidence:   it.Analysis.Confidence,
		Category:     it.Analysis.Category,
		Name:         it.Analysis.Name,
		Description:  it.Analysis.Description,
		BackgroundID: it.Background.ID,
		Status:       it.status,
		Attempts:     it.attempts,
		CreatedAt:    it.CreatedAt,
	}
	if it.err != nil {
		s.Error = it.err.Error()
	}
	if it.composite != nil {
		r := it.composite.UsedBox
		s.UsedBox = &[4]int{r.Min.X, r.Min.Y, r.Dx(), r.Dy()}
	}
	return s
}

// Package backgrounds holds the static table of themed background frames
// that user photos are composited into.
package backgrounds

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"unicode/utf16"

	"gopkg.in/yaml.v3"
)

//go:embed backgrounds.yaml
var defaultRegistry []byte

var (
	// ErrEmptyCategory is returned when no template is registered for a category
	ErrEmptyCategory = errors.New("no backgrounds registered for category")
	// ErrNotFound is returned for an unknown template id
	ErrNotFound = errors.New("background not found")
)

// Category is the background style a classification collapses to
type Category string

const (
	Chinese  Category = "Chinese"
	European Category = "European"
	Modern   Category = "Modern"
)

// FallbackCategory is used whenever a category has no registered backgrounds
const FallbackCategory = European

// Categories lists the known categories in a stable order
var Categories = []Category{Chinese, European, Modern}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	switch c {
	case Chinese, European, Modern:
		return true
	default:
		return false
	}
}

// folder returns the asset directory name. The Modern assets still live
// under their original "Morden" directory.
func (c Category) folder() string {
	if c == Modern {
		return "Morden"
	}
	return string(c)
}

// BoundingBox is a rectangle in the native pixel space of a background image
type BoundingBox struct {
	X      int `yaml:"x" json:"x"`
	Y      int `yaml:"y" json:"y"`
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Template is one background image available for compositing
type Template struct {
	ID          string      `json:"id"`
	Category    Category    `json:"category"`
	ImagePath   string      `json:"image_path"`
	BoundingBox BoundingBox `json:"bounding_box"`
}

type registryFile struct {
	Backgrounds []struct {
		ID          string      `yaml:"id"`
		Category    Category    `yaml:"category"`
		Filename    string      `yaml:"filename"`
		BoundingBox BoundingBox `yaml:"bounding_box"`
	} `yaml:"backgrounds"`
}

// Registry is an immutable lookup of templates by id and by category
type Registry struct {
	byID       map[string]Template
	byCategory map[Category][]Template
	order      []string
}

// Default returns the registry embedded in the binary
func Default() (*Registry, error) {
	return Load(bytes.NewReader(defaultRegistry))
}

// MustDefault is Default for program start-up, where a broken embedded
// table is a build defect
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(fmt.Sprintf("embedded background registry is invalid: %v", err))
	}
	return r
}

// Load parses a YAML registry
func Load(r io.Reader) (*Registry, error) {
	var file registryFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode background registry: %w", err)
	}

	templates := make([]Template, 0, len(file.Backgrounds))
	for _, bg := range file.Backgrounds {
		if bg.ID == "" {
			return nil, fmt.Errorf("background entry without id")
		}
		if !bg.Category.Valid() {
			return nil, fmt.Errorf("background %s has unknown category %q", bg.ID, bg.Category)
		}
		if bg.Filename == "" {
			return nil, fmt.Errorf("background %s has no filename", bg.ID)
		}
		templates = append(templates, Template{
			ID:          bg.ID,
			Category:    bg.Category,
			ImagePath:   path.Join("backgrounds", bg.Category.folder(), bg.Filename),
			BoundingBox: bg.BoundingBox,
		})
	}

	return New(templates)
}

// New builds a registry from templates. Ids must be unique.
func New(templates []Template) (*Registry, error) {
	reg := &Registry{
		byID:       make(map[string]Template, len(templates)),
		byCategory: make(map[Category][]Template),
	}

	for _, t := range templates {
		if _, dup := reg.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate background id %s", t.ID)
		}
		reg.byID[t.ID] = t
		reg.byCategory[t.Category] = append(reg.byCategory[t.Category], t)
		reg.order = append(reg.order, t.ID)
	}

	for c := range reg.byCategory {
		list := reg.byCategory[c]
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}
	sort.Strings(reg.order)

	return reg, nil
}

// ListByCategory returns the templates registered for c
func (r *Registry) ListByCategory(c Category) ([]Template, error) {
	list := r.byCategory[c]
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCategory, c)
	}
	out := make([]Template, len(list))
	copy(out, list)
	return out, nil
}

// Backgrounds returns the templates for c, falling back to the European
// set when c has none
func (r *Registry) Backgrounds(c Category) []Template {
	list, err := r.ListByCategory(c)
	if err == nil {
		return list
	}
	list, _ = r.ListByCategory(FallbackCategory)
	return list
}

// Get returns the template with the given id
func (r *Registry) Get(id string) (Template, error) {
	t, ok := r.byID[id]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, nil
}

// Select picks one template for c. The choice depends only on key, so
// the same item always lands on the same background.
func (r *Registry) Select(c Category, key string) (Template, error) {
	list := r.Backgrounds(c)
	if len(list) == 0 {
		return Template{}, fmt.Errorf("%w: %s (and fallback %s)", ErrEmptyCategory, c, FallbackCategory)
	}
	return list[Hash(key)%uint32(len(list))], nil
}

// Categories returns the known categories that have at least one template
func (r *Registry) Categories() []Category {
	var out []Category
	for _, c := range Categories {
		if len(r.byCategory[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// All returns every template ordered by id
func (r *Registry) All() []Template {
	out := make([]Template, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Hash is the 32-bit shift-subtract string hash shared by background and
// music selection: h = h*31 + c over UTF-16 code units, wrapped to int32,
// then made non-negative.
func Hash(s string) uint32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(u)
	}
	if h < 0 {
		// -MinInt32 overflows back to itself; its magnitude still fits uint32
		return uint32(-int64(h))
	}
	return uint32(h)
}

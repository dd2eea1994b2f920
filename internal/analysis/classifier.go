// Package analysis classifies captured photos. Only a randomized mock is
// provided.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/curio-labs/curio/internal/backgrounds"
)

// Result describes a classified photo
type Result struct {
	Number      int                  `json:"category_number"`
	Label       string               `json:"category_label"`
	Confidence  float64              `json:"confidence"`
	Category    backgrounds.Category `json:"category"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
}

// Classifier defines the interface for a photo classifier
type Classifier interface {
	Classify(ctx context.Context, image []byte) (Result, error)
}

// Label is one of the fixed classification labels
type Label struct {
	Number      int
	Name        string
	Category    backgrounds.Category
	Summary     string
	Keywords    []string
	names       []string
	description string
}

// Labels are the seven classes. They collapse onto three categories.
var Labels = []Label{
	{
		Number:   1,
		Name:     "Chinese Historical Artifact",
		Category: backgrounds.Chinese,
		Summary:  "Ancient Chinese cultural or ceremonial objects. Often made of porcelain, jade, bronze, or lacquer.",
		Keywords: []string{"porcelain", "jade", "bronze", "dragon", "calligraphy", "ceramics", "ancient", "dynasty"},
		names:    []string{"Ming Dynasty Celestial Vase", "Tang Sancai Horse", "Han Dynasty Jade Bi", "Qing Blue and White Bowl", "Song Dynasty Celadon Jar"},
		description: "This exquisite Chinese artifact showcases the masterful craftsmanship of ancient dynasties. %s represents the pinnacle of " +
			"traditional Chinese artistry, with intricate details that whisper tales of imperial courts and ceremonial grandeur.",
	},
	{
		Number:   2,
		Name:     "European Historical Artifact",
		Category: backgrounds.European,
		Summary:  "Pre-modern European items with historical or aristocratic value.",
		Keywords: []string{"armor", "medieval", "stone", "heraldic", "renaissance", "baroque", "roman", "gothic"},
		names:    []string{"Roman Ceremonial Helmet", "Medieval Silver Goblet", "Baroque Candleholder", "Renaissance Bronze Medal", "Gothic Stone Carving"},
		description: "A remarkable European historical piece that embodies the elegance and sophistication of bygone eras. %s reflects the " +
			"artistic achievements of European civilization, crafted with meticulous attention to detail and cultural significance.",
	},
	{
		Number:   3,
		Name:     "Modern Product",
		Category: backgrounds.Modern,
		Summary:  "Mass-produced or contemporary consumer goods from any culture.",
		Keywords: []string{"electronics", "gadget", "modern", "plastic", "design", "consumer", "technology", "contemporary"},
		names:    []string{"AirPods of Delphi", "Modern Ceramic Mug", "Designer Desk Lamp", "Wireless Headphones", "Contemporary Figurine"},
		description: "%s represents modern design philosophy, blending functionality with contemporary aesthetics. This piece exemplifies " +
			"the innovation and creativity of modern manufacturing, designed to enhance daily life with style and efficiency.",
	},
	{
		Number:   4,
		Name:     "Pet",
		Category: backgrounds.European,
		Summary:  "Photographs of domesticated animals, typically taken by pet owners.",
		Keywords: []string{"cat", "dog", "pet", "animal", "fur", "cute", "domestic", "companion"},
		names:    []string{"Sir Whiskers, Duke of Purrington", "Golden Retriever Guardian", "Persian Cat Princess", "Hamster of Happiness", "Loyal Companion"},
		description: "Meet %s, a beloved companion who brings joy and warmth to every moment. This charming pet captures hearts with " +
			"natural grace and playful spirit, reminding us of the simple pleasures in life.",
	},
	{
		Number:   5,
		Name:     "Portrait / People",
		Category: backgrounds.European,
		Summary:  "Photographs, paintings, or drawings that primarily depict a human face or body.",
		Keywords: []string{"person", "face", "portrait", "human", "people", "photo", "painting", "figure"},
		names:    []string{"Portrait of the Unknown Scholar", "Lady in Velvet Dreams", "The Contemplative Figure", "Renaissance Portrait Study", "Mysterious Stranger"},
		description: "%s captures the essence of humanity in this compelling portrait. The subject's expression tells a story of life, " +
			"dreams, and experiences, frozen in time through the artist's skillful interpretation.",
	},
	{
		Number:   6,
		Name:     "Chinese Painting / Calligraphy",
		Category: backgrounds.Chinese,
		Summary:  "Traditional Chinese ink or brush art on scrolls or paper.",
		Keywords: []string{"ink", "brush", "scroll", "calligraphy", "landscape", "traditional", "chinese art", "painting"},
		names:    []string{"Landscape of Distant Mountains", "Bamboo in Morning Mist", "Calligraphy of Ancient Wisdom", "Birds in Autumn Wind", "Ink Wash Meditation"},
		description: "%s embodies the philosophical depth of Chinese artistic tradition. Created with ink and brush on silk, this work " +
			"reflects the harmony between nature and human spirit that defines classical Chinese art.",
	},
	{
		Number:   7,
		Name:     "European Painting / Calligraphy",
		Category: backgrounds.European,
		Summary:  "Western-style figurative or calligraphic artworks.",
		Keywords: []string{"oil painting", "canvas", "western art", "renaissance", "impressionist", "european art", "classical"},
		names:    []string{"Portrait of a Noble Lady", "Impressionist Garden Study", "Still Life with Fruits", "Classical Landscape", "European Master's Work"},
		description: "%s showcases the technical mastery and emotional depth of European artistic tradition. This work demonstrates the " +
			"artist's ability to capture both physical beauty and psychological complexity through masterful technique.",
	},
}

// CategoryFor maps a label number to its background category. Unknown
// numbers map to the fallback category.
func CategoryFor(number int) backgrounds.Category {
	for _, l := range Labels {
		if l.Number == number {
			return l.Category
		}
	}
	return backgrounds.FallbackCategory
}

// Names returns the display names a label can produce
func (l Label) Names() []string {
	return append([]string(nil), l.names...)
}

// Describe fills the label's description template with name
func (l Label) Describe(name string) string {
	return fmt.Sprintf(l.description, name)
}

// MockClassifier picks a random label after a simulated processing delay
type MockClassifier struct {
	delay  time.Duration
	jitter time.Duration
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// MockOption configures a MockClassifier
type MockOption func(*MockClassifier)

// WithDelay sets the base delay and the random extra on top of it
func WithDelay(delay, jitter time.Duration) MockOption {
	return func(m *MockClassifier) {
		m.delay, m.jitter = max(0, delay), max(0, jitter)
	}
}

// WithSeed makes the classifier reproducible
func WithSeed(seed uint64) MockOption {
	return func(m *MockClassifier) {
		m.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) MockOption {
	return func(m *MockClassifier) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMockClassifier returns a mock that waits 2-3s like the prototype
func NewMockClassifier(opts ...MockOption) *MockClassifier {
	m := &MockClassifier{
		delay:  2 * time.Second,
		jitter: time.Second,
		logger: slog.Default(),
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Classify ignores the image content. It returns early with ctx's error if
// ctx ends during the delay.
func (m *MockClassifier) Classify(ctx context.Context, image []byte) (Result, error) {
	m.mu.Lock()
	wait := m.delay
	if m.jitter > 0 {
		wait += time.Duration(m.rng.Int64N(int64(m.jitter)))
	}
	label := Labels[m.rng.IntN(len(Labels))]
	confidence := math.Round((0.85+m.rng.Float64()*0.14)*1000) / 1000
	name := label.names[m.rng.IntN(len(label.names))]
	m.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return Result{}, fmt.Errorf("classification interrupted: %w", ctx.Err())
		}
	}

	res := Result{
		Number:      label.Number,
		Label:       label.Name,
		Confidence:  confidence,
		Category:    label.Category,
		Name:        name,
		Description: label.Describe(name),
	}
	m.logger.Info("Image classified",
		"label", res.Label,
		"category", string(res.Category),
		"confidence", res.Confidence,
		"bytes", len(image),
		"delay", wait)
	return res, nil
}

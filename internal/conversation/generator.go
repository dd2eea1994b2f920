// Package conversation produces the canned multi-character chat shown in
// the live room.
package conversation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/curio-labs/curio/internal/backgrounds"
	"github.com/google/uuid"
)

// Character is one member of the chat roster
type Character struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Description   string `json:"description" yaml:"description"`
	Personality   string `json:"personality" yaml:"personality"`
	SpeakingStyle string `json:"speaking_style" yaml:"speaking_style"`
}

// Roster is the fixed set of speakers
var Roster = []Character{
	{
		ID:            "lu-xun",
		Name:          "Lu Xun",
		Description:   "Chinese writer and social critic, known for his sharp observations on society and culture.",
		Personality:   "intellectual, critical, observant",
		SpeakingStyle: "Direct and thoughtful, often draws connections to social themes",
	},
	{
		ID:            "su-shi",
		Name:          "Su Shi",
		Description:   "Song Dynasty poet and scholar, celebrated for his lyrical and philosophical insights.",
		Personality:   "poetic, philosophical, graceful",
		SpeakingStyle: "Elegant and metaphorical, often uses nature imagery",
	},
	{
		ID:            "vincent-van-gogh",
		Name:          "Vincent van Gogh",
		Description:   "Dutch post-impressionist painter, known for his emotional and expressive style.",
		Personality:   "passionate, emotional, artistic",
		SpeakingStyle: "Emotional and vivid, focuses on colors and artistic techniques",
	},
}

// FindCharacter looks a roster member up by id or name
func FindCharacter(key string) (Character, bool) {
	for _, c := range Roster {
		if c.ID == key || c.Name == key {
			return c, true
		}
	}
	return Character{}, false
}

// Reactions are the emoji a viewer can send
var Reactions = []string{"❤️", "👍", "👏", "🎉", "😍", "🤔", "💡", "🔥"}

// Theme selects the opening lines
type Theme string

const (
	ChineseArtifact Theme = "chinese_artifact"
	WesternArt      Theme = "western_art"
	ModernObject    Theme = "modern_object"
)

// ThemeFor derives the theme from a background category
func ThemeFor(c backgrounds.Category) Theme {
	switch c {
	case backgrounds.Chinese:
		return ChineseArtifact
	case backgrounds.Modern:
		return ModernObject
	case backgrounds.European:
		return WesternArt
	default:
		return ChineseArtifact
	}
}

type line struct {
	speaker string
	text    string
}

var openings = map[Theme][]line{
	ChineseArtifact: {
		{"Lu Xun", "Who else thinks this belonged to a rich kid showing off at court?"},
		{"Su Shi", "Hold on, I just found a 17th-century receipt about this thing!"},
		{"Vincent van Gogh", "Unpacking centuries of opinions."},
	},
	WesternArt: {
		{"Vincent van Gogh", "The colors in this piece remind me of my nights in Arles..."},
		{"Lu Xun", "Art should serve the people, not just the wealthy collectors."},
		{"Su Shi", "Like capturing moonlight in a brush stroke - timeless beauty."},
	},
	ModernObject: {
		{"Lu Xun", "This modern creation reflects our changing society."},
		{"Vincent van Gogh", "Even in modernity, I see the eternal struggle of creation."},
		{"Su Shi", "New forms, ancient spirits - poetry continues to evolve."},
	},
}

var loopLines = map[string][]string{
	"Lu Xun": {
		"This artifact reflects the social conditions of its time.",
		"Who had the privilege to own such beauty?",
		"Art should speak to the common people, not just elites.",
		"Every object carries the weight of its society.",
	},
	"Su Shi": {
		"Like poetry written in stone and time.",
		"The moon would shine differently on this piece.",
		"Beauty flows like a river through the ages.",
		"In this craft, I see the harmony of heaven and earth.",
	},
	"Vincent van Gogh": {
		"The colors dance with emotions I recognize.",
		"Such passion in every stroke and curve!",
		"This speaks to the loneliness of creation.",
		"I would paint this under starlight.",
	},
}

var contextual = []string{
	"This piece tells a story of its era...",
	"The craftsmanship here is extraordinary.",
	"I wonder about the hands that created this.",
	"Such artistry transcends time itself.",
	"Every detail speaks of dedication.",
}

var replies = map[string][]string{
	"Lu Xun": {
		"Your perspective reminds me of the common people's wisdom.",
		"That's an astute observation about society.",
		"You speak truth that many prefer to ignore.",
	},
	"Su Shi": {
		"Your words flow like poetry, my friend.",
		"Such insight deserves to be written in verse.",
		"You see beauty where others see mere objects.",
	},
	"Vincent van Gogh": {
		"Your passion reminds me of my own struggles.",
		"I feel the emotion in your words deeply.",
		"You understand the artist's heart.",
	},
}

// Message is one chat line
type Message struct {
	ID        string    `json:"id"`
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Request is the context for one conversation turn
type Request struct {
	ItemID   string
	Category backgrounds.Category
	// Message is the viewer's message; empty for an automatic turn
	Message string
	// NewLoop asks for a multi-line loop instead of a single remark
	NewLoop bool
}

// Turn is the generator's answer
type Turn struct {
	ID       string    `json:"id"`
	Theme    Theme     `json:"theme"`
	User     *Message  `json:"user,omitempty"`
	Messages []Message `json:"messages"`
}

// Generator defines the interface for a conversation source
type Generator interface {
	Open(ctx context.Context, req Request) (Turn, error)
	Next(ctx context.Context, req Request) (Turn, error)
}

// MockGenerator draws canned lines at random
type MockGenerator struct {
	delay time.Duration
	now   func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// MockOption configures a MockGenerator
type MockOption func(*MockGenerator)

// WithDelay sets the simulated generation latency
func WithDelay(d time.Duration) MockOption {
	return func(g *MockGenerator) { g.delay = max(0, d) }
}

// WithSeed makes the generator reproducible
func WithSeed(seed uint64) MockOption {
	return func(g *MockGenerator) {
		g.rng = rand.New(rand.NewPCG(seed, seed^0x2545f4914f6cdd1d))
	}
}

// NewMockGenerator returns a generator without delay
func NewMockGenerator(opts ...MockOption) *MockGenerator {
	g := &MockGenerator{
		now: time.Now,
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Open returns the theme's opening lines, staggered two seconds apart and
// ending now
func (g *MockGenerator) Open(ctx context.Context, req Request) (Turn, error) {
	if err := g.wait(ctx); err != nil {
		return Turn{}, err
	}
	theme := ThemeFor(req.Category)
	lines := openings[theme]
	now := g.now()

	turn := Turn{ID: uuid.NewString(), Theme: theme}
	for i, l := range lines {
		turn.Messages = append(turn.Messages, Message{
			ID:        fmt.Sprintf("init_%d", i),
			Speaker:   l.speaker,
			Text:      l.text,
			Timestamp: now.Add(-time.Duration(len(lines)-i) * 2 * time.Second),
		})
	}
	return turn, nil
}

// Next answers the viewer when req.Message is set. Otherwise it returns a
// 2-4 line loop if req.NewLoop, or one contextual remark.
func (g *MockGenerator) Next(ctx context.Context, req Request) (Turn, error) {
	if err := g.wait(ctx); err != nil {
		return Turn{}, err
	}
	now := g.now()
	turn := Turn{ID: uuid.NewString(), Theme: ThemeFor(req.Category)}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case req.Message != "":
		turn.User = &Message{ID: "user", Speaker: "User", Text: req.Message, Timestamp: now}
		n := g.rng.IntN(2) + 1
		for i := 0; i < n; i++ {
			speaker := g.speaker()
			turn.Messages = append(turn.Messages, Message{
				ID:        fmt.Sprintf("response_%d", i),
				Speaker:   speaker,
				Text:      g.pick(replies[speaker]),
				Timestamp: now.Add(time.Duration(i+1) * 2 * time.Second),
			})
		}
	case req.NewLoop:
		n := g.rng.IntN(3) + 2
		for i := 0; i < n; i++ {
			speaker := g.speaker()
			turn.Messages = append(turn.Messages, Message{
				ID:        fmt.Sprintf("loop_%d", i),
				Speaker:   speaker,
				Text:      g.pick(loopLines[speaker]),
				Timestamp: now.Add(time.Duration(i) * time.Second),
			})
		}
	default:
		turn.Messages = []Message{{
			ID:        "contextual",
			Speaker:   g.speaker(),
			Text:      g.pick(contextual),
			Timestamp: now,
		}}
	}
	return turn, nil
}

// Reaction picks a random emoji
func (g *MockGenerator) Reaction() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pick(Reactions)
}

func (g *MockGenerator) speaker() string {
	return Roster[g.rng.IntN(len(Roster))].Name
}

func (g *MockGenerator) pick(options []string) string {
	return options[g.rng.IntN(len(options))]
}

func (g *MockGenerator) wait(ctx context.Context) error {
	if g.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(g.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("conversation interrupted: %w", ctx.Err())
	}
}

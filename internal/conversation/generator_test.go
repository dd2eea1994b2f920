package conversation

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/curio-labs/curio/internal/backgrounds"
)

func TestThemeFor(t *testing.T) {
	tests := map[backgrounds.Category]Theme{
		backgrounds.Chinese:  ChineseArtifact,
		backgrounds.European: WesternArt,
		backgrounds.Modern:   ModernObject,
		"Martian":            ChineseArtifact,
	}
	for c, want := range tests {
		if got := ThemeFor(c); got != want {
			t.Errorf("Expected %s for %s, got %s", want, c, got)
		}
	}
}

func TestOpen(t *testing.T) {
	g := NewMockGenerator()
	fixed := time.Date(2025, 8, 13, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	turn, err := g.Open(context.Background(), Request{Category: backgrounds.Chinese})
	if err != nil {
		t.Fatal(err)
	}
	if turn.Theme != ChineseArtifact {
		t.Errorf("Expected %s, got %s", ChineseArtifact, turn.Theme)
	}
	if len(turn.Messages) != 3 {
		t.Fatalf("Expected 3 opening lines, got %d", len(turn.Messages))
	}
	if turn.Messages[0].Text != "Who else thinks this belonged to a rich kid showing off at court?" {
		t.Errorf("Expected first chinese line, got %q", turn.Messages[0].Text)
	}
	if want := fixed.Add(-6 * time.Second); !turn.Messages[0].Timestamp.Equal(want) {
		t.Errorf("Expected first line at %v, got %v", want, turn.Messages[0].Timestamp)
	}
	if want := fixed.Add(-2 * time.Second); !turn.Messages[2].Timestamp.Equal(want) {
		t.Errorf("Expected last line at %v, got %v", want, turn.Messages[2].Timestamp)
	}
}

func TestNextShapes(t *testing.T) {
	g := NewMockGenerator(WithSeed(3))
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		loop, err := g.Next(ctx, Request{Category: backgrounds.European, NewLoop: true})
		if err != nil {
			t.Fatal(err)
		}
		if n := len(loop.Messages); n < 2 || n > 4 {
			t.Fatalf("Expected 2-4 loop lines, got %d", n)
		}
		for _, m := range loop.Messages {
			if !slices.Contains(loopLines[m.Speaker], m.Text) {
				t.Fatalf("Expected %q to be one of %s's lines", m.Text, m.Speaker)
			}
		}

		reply, err := g.Next(ctx, Request{Message: "hello"})
		if err != nil {
			t.Fatal(err)
		}
		if n := len(reply.Messages); n < 1 || n > 2 {
			t.Fatalf("Expected 1-2 replies, got %d", n)
		}
		if reply.User == nil || reply.User.Text != "hello" {
			t.Fatalf("Expected the user message echoed, got %+v", reply.User)
		}
		for _, m := range reply.Messages {
			if !slices.Contains(replies[m.Speaker], m.Text) {
				t.Fatalf("Expected %q to be one of %s's replies", m.Text, m.Speaker)
			}
		}

		single, err := g.Next(ctx, Request{})
		if err != nil {
			t.Fatal(err)
		}
		if len(single.Messages) != 1 || !slices.Contains(contextual, single.Messages[0].Text) {
			t.Fatalf("Expected one contextual remark, got %+v", single.Messages)
		}
	}
}

func TestRosterSpeakersOnly(t *testing.T) {
	g := NewMockGenerator()
	for i := 0; i < 50; i++ {
		turn, _ := g.Next(context.Background(), Request{NewLoop: true})
		for _, m := range turn.Messages {
			if _, ok := FindCharacter(m.Speaker); !ok {
				t.Fatalf("Expected a roster speaker, got %q", m.Speaker)
			}
		}
	}
}

func TestReaction(t *testing.T) {
	g := NewMockGenerator()
	if r := g.Reaction(); !slices.Contains(Reactions, r) {
		t.Errorf("Expected a known reaction, got %q", r)
	}
}

func TestDelayHonorsContext(t *testing.T) {
	g := NewMockGenerator(WithDelay(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Next(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected canceled, got %v", err)
	}
}

func TestFindCharacter(t *testing.T) {
	if c, ok := FindCharacter("su-shi"); !ok || c.Name != "Su Shi" {
		t.Errorf("Expected Su Shi by id, got %+v", c)
	}
	if c, ok := FindCharacter("Vincent van Gogh"); !ok || c.ID != "vincent-van-gogh" {
		t.Errorf("Expected van Gogh by name, got %+v", c)
	}
	if _, ok := FindCharacter("Shakespeare"); ok {
		t.Error("Expected unknown character")
	}
}

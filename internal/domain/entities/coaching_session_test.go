package entities

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCooldownElapsed(t *testing.T) {
	sess := NewCoachingSession("meet-1", "org-1", uuid.New(), DefaultCoachingConfig())

	now := time.Now()
	if !sess.CooldownElapsed(now) {
		t.Fatalf("expected cooldown elapsed when no suggestion dispatched yet")
	}

	sess.LastSuggestionAt = now.Add(-10 * time.Second)
	if sess.CooldownElapsed(now) {
		t.Fatalf("expected cooldown active 10s after dispatch with 30s cooldown")
	}

	sess.LastSuggestionAt = now.Add(-31 * time.Second)
	if !sess.CooldownElapsed(now) {
		t.Fatalf("expected cooldown elapsed 31s after dispatch")
	}
}

func TestConfigApplyPartial(t *testing.T) {
	cfg := DefaultCoachingConfig()

	alerts := false
	threshold := -0.5
	competitors := []string{"Acme", "Globex"}

	merged := cfg.Apply(CoachingConfigUpdate{
		CompetitorAlerts:   &alerts,
		SentimentThreshold: &threshold,
		Competitors:        &competitors,
	})

	if merged.CompetitorAlerts {
		t.Fatalf("expected competitor alerts disabled")
	}
	if merged.SentimentThreshold != -0.5 {
		t.Fatalf("expected threshold -0.5 got %f", merged.SentimentThreshold)
	}
	if len(merged.Competitors) != 2 {
		t.Fatalf("expected 2 competitors got %d", len(merged.Competitors))
	}

	// Untouched fields keep their values
	if !merged.SentimentMonitoring {
		t.Fatalf("expected sentiment monitoring untouched")
	}
	if merged.SuggestionCooldown != 30*time.Second {
		t.Fatalf("expected cooldown untouched got %v", merged.SuggestionCooldown)
	}

	// Original config is not mutated
	if !cfg.CompetitorAlerts {
		t.Fatalf("expected original config unchanged")
	}
}

func TestEstimatedDuration(t *testing.T) {
	chunk := TranscriptChunk{Text: "one two three four five"}
	// 5 words at 150 wpm is 2 seconds rounded up
	if got := chunk.EstimatedDuration(); got != 2 {
		t.Fatalf("expected 2s got %f", got)
	}

	explicit := 3.5
	chunk.Duration = &explicit
	if got := chunk.EstimatedDuration(); got != 3.5 {
		t.Fatalf("expected explicit duration 3.5 got %f", got)
	}

	empty := TranscriptChunk{Text: "   "}
	if got := empty.EstimatedDuration(); got != 0 {
		t.Fatalf("expected 0 for empty text got %f", got)
	}
}

func TestEndsSentence(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"That sounds great.", true},
		{"Does that work for you?", true},
		{"Absolutely!", true},
		{"Well I was thinking", false},
		{"", false},
		{"   ", false},
	}
	for _, tc := range cases {
		chunk := TranscriptChunk{Text: tc.text}
		if got := chunk.EndsSentence(); got != tc.want {
			t.Fatalf("EndsSentence(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestValidSuggestionType(t *testing.T) {
	for _, valid := range []SuggestionType{
		SuggestionQuestion, SuggestionObjectionHandler, SuggestionTalkingPoint,
		SuggestionWarning, SuggestionEncouragement, SuggestionNextStep,
	} {
		if !ValidSuggestionType(valid) {
			t.Fatalf("expected %q valid", valid)
		}
	}
	if ValidSuggestionType("pep_talk") {
		t.Fatalf("expected unknown type rejected")
	}
}

func TestNeutralSentiment(t *testing.T) {
	n := NeutralSentiment()
	if n.Score != 0 || n.Label != SentimentNeutral || n.Confidence != 0.5 {
		t.Fatalf("unexpected neutral default: %+v", n)
	}
}

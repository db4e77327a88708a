package sentiment

import (
	"math"
	"testing"

	"github.com/zhouzirui/daybook/internal/model/journal"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBuildEmpty(t *testing.T) {
	s := Build(nil)
	if len(s.Dates) != 0 {
		t.Fatalf("expected no dates, got %v", s.Dates)
	}
	if s.Overall != emptyOverall {
		t.Fatalf("expected default overall, got %+v", s.Overall)
	}
}

func TestBuildOrdersAndFillsDefaults(t *testing.T) {
	entries := []journal.Entry{
		{Date: "2025-03-10", Metadata: journal.EntryMetadata{Emotions: &journal.EmotionVector{Stress: 8, Happiness: 2, Energy: 4, Motivation: 3}}},
		{Date: "2025-03-08"},
	}

	s := Build(entries)
	if s.Dates[0] != "2025-03-08" || s.Dates[1] != "2025-03-10" {
		t.Fatalf("expected chronological dates, got %v", s.Dates)
	}
	if s.Labels[0] != "08/03" {
		t.Fatalf("expected dd/mm label, got %s", s.Labels[0])
	}
	if s.Stress[0] != 5 || s.Happiness[0] != 6 || s.Energy[0] != 6 {
		t.Fatalf("expected defaults for missing scores, got %v %v %v", s.Stress[0], s.Happiness[0], s.Energy[0])
	}

	if !near(s.Overall.Happiness, 4) {
		t.Fatalf("happiness average: %v", s.Overall.Happiness)
	}
	if !near(s.Overall.Calm, 10-6.5) {
		t.Fatalf("calm: %v", s.Overall.Calm)
	}
	if !near(s.Overall.Motivation, 4.5) {
		t.Fatalf("motivation: %v", s.Overall.Motivation)
	}
	if !near(s.Overall.Wellbeing, (2+6+4+6)/4.0) {
		t.Fatalf("wellbeing: %v", s.Overall.Wellbeing)
	}
}

func TestDisplayDateFallback(t *testing.T) {
	if got := DisplayDate("2025-12-01T10:00:00"); got != "01/12" {
		t.Fatalf("got %s", got)
	}
	if got := DisplayDate("not-a-date"); got != "-date" {
		t.Fatalf("got %s", got)
	}
}

func TestAnalyzeMood(t *testing.T) {
	tests := []struct {
		name string
		v    journal.EmotionVector
		want Mood
	}{
		{"neutral", journal.NeutralEmotions(), Balanced},
		{"joy", journal.EmotionVector{Stress: 3, Happiness: 9.5, Anger: 1, Energy: 7, Calm: 6, Motivation: 7}, Joyful},
		{"stress", journal.EmotionVector{Stress: 9, Happiness: 4, Anger: 3, Energy: 5, Calm: 3, Motivation: 5}, Stressed},
		{"drained", journal.EmotionVector{Stress: 5, Happiness: 5, Anger: 2, Energy: 1, Calm: 5, Motivation: 5}, Drained},
	}
	for _, tt := range tests {
		if got := Analyze(tt.v).Mood; got != tt.want {
			t.Fatalf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}
}

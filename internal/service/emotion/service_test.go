package emotion

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/daybook/internal/model/journal"
	"github.com/zhouzirui/daybook/internal/service/ai/aitest"
)

func TestAssessParsesAndClamps(t *testing.T) {
	fake := aitest.Static("```json\n{\"stress\": 12, \"happiness\": 7.5, \"anger\": -3, \"energy\": \"6\", \"calm\": 5, \"motivation\": 8}\n```")
	s := NewScorer(fake, nil)

	got := s.Assess(context.Background(), "Passed my exam today!")
	require.NoError(t, got.Err)
	assert.False(t, got.Degraded)

	want := journal.EmotionVector{Stress: 10, Happiness: 7.5, Anger: 0, Energy: 6, Calm: 5, Motivation: 8}
	if diff := cmp.Diff(want, got.Vector); diff != "" {
		t.Fatalf("vector mismatch (-want +got):\n%s", diff)
	}

	call, _ := fake.LastCall()
	assert.Contains(t, call.Instructions, `"maximum":10`)
	assert.InDelta(t, 0.3, call.Temperature, 1e-6)
}

func TestAssessMissingFieldsDefaultToMidpoint(t *testing.T) {
	s := NewScorer(aitest.Static(`Here you go: {"Stress": 8, "happiness": 2}`), nil)

	got := s.Assess(context.Background(), "awful commute")
	require.NoError(t, got.Err)
	assert.True(t, got.Degraded)

	want := journal.EmotionVector{Stress: 8, Happiness: 2, Anger: 5, Energy: 5, Calm: 5, Motivation: 5}
	assert.Equal(t, want, got.Vector)
}

func TestAssessFailuresReturnNeutral(t *testing.T) {
	tests := []struct {
		name string
		fake *aitest.Fake
	}{
		{"service failure", aitest.Failing(aitest.ErrUnavailable)},
		{"no json", aitest.Static("I cannot rate that")},
		{"broken json", aitest.Static(`{"stress": }`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewScorer(tt.fake, nil).Assess(context.Background(), "text")
			assert.True(t, got.Degraded)
			assert.Error(t, got.Err)
			assert.Equal(t, journal.NeutralEmotions(), got.Vector)
		})
	}
}

func TestScoreWithoutGenerator(t *testing.T) {
	var s *Scorer
	assert.Equal(t, journal.NeutralEmotions(), s.Score(context.Background(), "text"))
	assert.Equal(t, journal.NeutralEmotions(), NewScorer(nil, nil).Score(context.Background(), "text"))
}

func TestScoreEmptyTextSkipsCall(t *testing.T) {
	fake := aitest.Static(`{}`)
	got := NewScorer(fake, nil).Assess(context.Background(), "   ")
	assert.True(t, got.Degraded)
	assert.Zero(t, fake.CallCount())
}

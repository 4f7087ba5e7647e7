package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateActivitySuggestionsRanking(t *testing.T) {
	records := map[string]*PreferenceRecord{
		"breathing_exercise": {Frequency: 5, CompletedCount: 5, Effectiveness: 0.96, Rating: 5},
		"untouched":          {Frequency: 1},
	}

	suggestions := generateActivitySuggestions(records)
	require.NotEmpty(t, suggestions)
	require.Equal(t, "breathing_exercise", suggestions[0].Type)

	for _, s := range suggestions {
		require.GreaterOrEqual(t, s.Score, 0.0)
		require.LessOrEqual(t, s.Score, 1.0)
		require.Contains(t, []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}, s.Priority)
	}
}

func TestGenerateActivitySuggestionsTopThree(t *testing.T) {
	records := map[string]*PreferenceRecord{}
	for _, activityType := range []string{"a", "b", "c", "d", "e"} {
		records[activityType] = &PreferenceRecord{Frequency: 2, CompletedCount: 1}
	}
	suggestions := generateActivitySuggestions(records)
	require.Len(t, suggestions, 3)
}

func TestActivityReasonDominance(t *testing.T) {
	tests := []struct {
		name                                             string
		frequency, completion, effectiveness, ratingNorm float64
		want                                             string
	}{
		{"completion dominates", 0.2, 1.0, 0.2, 0.2, "you usually finish this activity"},
		{"frequency dominates", 1.0, 0.1, 0.1, 0.1, "you do this activity often"},
		{"effectiveness dominates", 0.1, 0.1, 1.0, 0.1, "this activity has worked well for you"},
		{"completion wins ties", 1.0, 1.0, 1.0, 1.0, "you usually finish this activity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := activityReason(tt.frequency, tt.completion, tt.effectiveness, tt.ratingNorm)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestMergeContentAveragesOverlap(t *testing.T) {
	fromAI := []Recommendation{
		{Type: "meditation", Score: 0.8, Confidence: 0.9, Source: SourceAI, Reason: "suggested for you"},
	}
	personalized := []Recommendation{
		{Type: "meditation", Score: 0.4, Confidence: 0.4, Source: SourceRule},
		{Type: "walk", Score: 0.6, Confidence: 0.6, Source: SourceRule},
	}

	merged := mergeContent(fromAI, personalized)
	require.Len(t, merged, 2)

	byType := map[string]Recommendation{}
	for _, rec := range merged {
		byType[rec.Type] = rec
	}
	require.InDelta(t, 0.6, byType["meditation"].Score, 1e-9)
	require.Equal(t, SourceAI, byType["meditation"].Source)
	require.InDelta(t, 0.6, byType["walk"].Score, 1e-9)
}

func TestMergeContentSortsByScore(t *testing.T) {
	merged := mergeContent([]Recommendation{
		{Type: "a", Score: 0.2},
		{Type: "b", Score: 0.9},
		{Type: "c", Score: 0.5},
	})
	require.Equal(t, []string{"b", "c", "a"}, []string{merged[0].Type, merged[1].Type, merged[2].Type})
}

func TestBuildTrendingContent(t *testing.T) {
	recommendations := buildTrendingContent(map[string]int64{
		"meditation": 100,
		"walk":       50,
	})
	require.Len(t, recommendations, 2)
	require.Equal(t, "meditation", recommendations[0].Type)
	require.InDelta(t, 0.7, recommendations[0].Score, 1e-9)
	require.InDelta(t, 0.5, recommendations[1].Score, 1e-9)
}

func TestBuildDiversityPicksSkipsRecentTypes(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	events := []InteractionEvent{
		makeEvent("meditation", base, nil),
		makeEvent("walk", base.Add(time.Minute), nil),
	}

	picks := buildDiversityPicks(events)
	for _, pick := range picks {
		require.NotEqual(t, "meditation", pick.Type)
		require.NotEqual(t, "walk", pick.Type)
		require.Equal(t, diversityScore, pick.Score)
	}
	require.NotEmpty(t, picks)
}

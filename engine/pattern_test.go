package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeMood(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"joy", "happy"},
		{"happiness", "happy"},
		{"anxiety", "anxious"},
		{"worried", "anxious"},
		{"overwhelmed", "stressed"},
		{"calm", "calm"},
		{"gibberish", "neutral"},
		{"", "neutral"},
	}
	for _, tt := range tests {
		if got := normalizeMood(tt.raw); got != tt.want {
			t.Errorf("normalizeMood(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestAnalyzeContentPreferences(t *testing.T) {
	aggregator := NewPreferenceAggregator()
	ts := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) // morning

	for i := 0; i < 5; i++ {
		event := makeEvent("breathing_exercise", ts.Add(time.Duration(i)*time.Minute), map[string]any{
			"completed": true,
			"rating":    5.0,
		})
		aggregator.Update(&event)
	}

	learner := NewPatternLearner()
	prefs := learner.AnalyzeContentPreferences(aggregator.Records())

	pref, ok := prefs["breathing_exercise"]
	require.True(t, ok)
	require.Equal(t, 5, pref.Frequency)
	require.Equal(t, 1.0, pref.CompletionRate)
	require.Equal(t, 5.0, pref.Rating)
	require.Greater(t, pref.Effectiveness, 0.9)
}

func TestAnalyzeTimeAndMoodPreferences(t *testing.T) {
	morning := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)

	events := []InteractionEvent{
		makeEvent("meditation", morning, nil),
		makeEvent("meditation", morning.Add(time.Hour), nil),
		makeEvent("reflection", evening, nil),
	}
	events[0].Context.Mood = &MoodReading{Category: "worried", Confidence: 0.8}
	events[1].Context.Mood = &MoodReading{Category: "anxiety", Confidence: 0.9}

	patterns := NewPatternLearner().Analyze(events, nil)

	require.Equal(t, 2, patterns.TimePreferences[BucketMorning]["meditation"])
	require.Equal(t, 1, patterns.TimePreferences[BucketEvening]["reflection"])
	require.Equal(t, 2, patterns.MoodPreferences["anxious"]["meditation"])
}

func TestAnalyzeEngagementSessions(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	events := []InteractionEvent{
		makeEvent("meditation", base, map[string]any{"completed": true}),
		makeEvent("walk", base.Add(10*time.Minute), nil),
		// 40 minute gap: new session.
		makeEvent("meditation", base.Add(50*time.Minute), map[string]any{"completed": true, "rating": 5.0}),
	}

	pattern := NewPatternLearner().analyzeEngagement(events)
	require.Equal(t, 2, pattern.SessionCount)

	// meditation: completionRate 1.0, avgRating 5/5 -> 0.7 + 0.3 = 1.0
	require.InDelta(t, 1.0, pattern.EngagementScores["meditation"], 1e-9)
	// walk: nothing completed, nothing rated.
	require.InDelta(t, 0.0, pattern.EngagementScores["walk"], 1e-9)
}

func TestAnalyzeContextualPeakHours(t *testing.T) {
	base := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	events := []InteractionEvent{}
	addAt := func(hour, n int) {
		for i := 0; i < n; i++ {
			events = append(events, makeEvent("meditation", base.Add(time.Duration(hour)*time.Hour).Add(time.Duration(i)*time.Minute), nil))
		}
	}
	addAt(9, 4)
	addAt(13, 3)
	addAt(20, 2)
	addAt(7, 1)

	pattern := NewPatternLearner().analyzeContextual(events)
	require.Equal(t, []int{9, 13, 20}, pattern.PeakHours)
	require.Equal(t, 5, pattern.TimeDay["morning_monday"])
}

func TestAnalyzeEmptyInputs(t *testing.T) {
	patterns := NewPatternLearner().Analyze(nil, nil)
	require.NotNil(t, patterns.TimePreferences)
	require.NotNil(t, patterns.ContentPreferences)
	require.NotNil(t, patterns.MoodPreferences)
	require.Equal(t, 0, patterns.Engagement.SessionCount)
	require.Empty(t, patterns.Contextual.PeakHours)
}

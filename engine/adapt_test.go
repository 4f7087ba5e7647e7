package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestContextSignatureDeterminism(t *testing.T) {
	base := ContextSnapshot{
		TimeOfDay: BucketMorning,
		DayOfWeek: time.Monday,
		Hour:      9,
		Mood:      &MoodReading{Category: "anxious", Confidence: 0.9},
		Timestamp: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	other := base
	other.Hour = 11
	other.Timestamp = base.Timestamp.Add(2 * time.Hour)
	other.Mood = &MoodReading{Category: "anxious", Confidence: 0.2}

	require.Equal(t, contextSignature(base), contextSignature(other))

	different := base
	different.TimeOfDay = BucketEvening
	require.NotEqual(t, contextSignature(base), contextSignature(different))
}

func TestContextSignatureWithoutMood(t *testing.T) {
	snapshot := ContextSnapshot{TimeOfDay: BucketNight, DayOfWeek: time.Friday}
	require.Equal(t, "night|friday|none", contextSignature(snapshot))
}

func TestMergeCacheEntriesIdempotent(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	entry := CacheEntry{
		Signature: "morning|monday|anxious",
		Score:     0.6,
		Recommendations: []Recommendation{
			{Type: "meditation", Score: 0.7, Confidence: 0.7},
			{Type: "walk", Score: 0.5, Confidence: 0.5},
		},
		CreatedAt: now,
		ExpiresAt: now.Add(cacheTTL),
	}

	once := mergeCacheEntries(&entry, &entry)
	twice := mergeCacheEntries(&once, &once)

	require.Equal(t, entry.Score, once.Score)
	require.Equal(t, once.Score, twice.Score)
	require.Len(t, once.Recommendations, 2)
	require.Equal(t, once.Recommendations, twice.Recommendations)
}

func TestMergeCacheEntriesHigherConfidenceWins(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	existing := CacheEntry{
		Score: 0.4,
		Recommendations: []Recommendation{
			{Type: "meditation", Score: 0.5, Confidence: 0.5, Source: SourceRule},
		},
		CreatedAt: now,
		ExpiresAt: now.Add(cacheTTL),
	}
	incoming := CacheEntry{
		Score: 0.8,
		Recommendations: []Recommendation{
			{Type: "meditation", Score: 0.9, Confidence: 0.9, Source: SourceAI},
			{Type: "walk", Score: 0.3, Confidence: 0.3},
		},
		ExpiresAt: now.Add(cacheTTL),
	}

	merged := mergeCacheEntries(&existing, &incoming)
	require.InDelta(t, 0.6, merged.Score, 1e-9)
	require.Len(t, merged.Recommendations, 2)
	require.Equal(t, SourceAI, merged.Recommendations[0].Source)
}

func TestApplyMoodFilterScenarioB(t *testing.T) {
	recs := []Recommendation{
		{Type: "breathing_exercise", Score: 0.5},
		{Type: "meditation", Score: 0.5},
		{Type: "social_activity", Score: 0.5},
	}
	mood := &MoodReading{Category: "anxious", Confidence: 0.9}

	out := applyMoodFilter(recs, mood)
	byType := map[string]Recommendation{}
	for _, rec := range out {
		byType[rec.Type] = rec
	}
	require.InDelta(t, 0.7, byType["breathing_exercise"].Score, 1e-9)
	require.InDelta(t, 0.7, byType["meditation"].Score, 1e-9)
	require.InDelta(t, 0.5, byType["social_activity"].Score, 1e-9, "non-matching entry must not be boosted")
}

func TestApplyMoodFilterRequiresConfidence(t *testing.T) {
	recs := []Recommendation{{Type: "meditation", Score: 0.5}}
	out := applyMoodFilter(recs, &MoodReading{Category: "anxious", Confidence: 0.6})
	require.InDelta(t, 0.5, out[0].Score, 1e-9)

	out = applyMoodFilter(recs, nil)
	require.InDelta(t, 0.5, out[0].Score, 1e-9)
}

func TestApplyTimeBoostLateNightCalming(t *testing.T) {
	snapshot := &ContextSnapshot{TimeOfDay: BucketNight, Hour: 23}
	recs := []Recommendation{
		{Type: "meditation", Score: 0.5},
		{Type: "social_activity", Score: 0.5},
	}

	out := applyTimeBoost(recs, snapshot)
	// meditation: in the night table (+0.1) and calming (+0.15).
	require.InDelta(t, 0.75, out[0].Score, 1e-9)
	require.InDelta(t, 0.5, out[1].Score, 1e-9)
}

func TestApplyStressOverrideCritical(t *testing.T) {
	recs := []Recommendation{
		{Type: "social_activity", Score: 0.9},
		{Type: "breathing_exercise", Score: 0.5},
	}

	out, state := applyStressOverride(recs, 9)
	require.Equal(t, StressCritical, state)
	require.Len(t, out, 1)
	require.Equal(t, "breathing_exercise", out[0].Type)
	require.Equal(t, PriorityUrgent, out[0].Priority)
}

func TestApplyStressOverrideCriticalEmptyBase(t *testing.T) {
	out, state := applyStressOverride(nil, 10)
	require.Equal(t, StressCritical, state)
	require.NotEmpty(t, out, "crisis relief must be surfaced even with an empty base")
	for _, rec := range out {
		require.True(t, crisisAllowlist[rec.Type])
		require.Equal(t, PriorityUrgent, rec.Priority)
	}
}

func TestApplyStressOverrideElevated(t *testing.T) {
	recs := []Recommendation{
		{Type: "meditation", Score: 0.5},
		{Type: "social_activity", Score: 0.5},
	}

	out, state := applyStressOverride(recs, 6)
	require.Equal(t, StressElevated, state)
	require.Len(t, out, 2, "elevated level must not discard anything")
	require.InDelta(t, 0.75, out[0].Score, 1e-9)
	require.InDelta(t, 0.5, out[1].Score, 1e-9)
}

func TestApplyStressOverrideNone(t *testing.T) {
	recs := []Recommendation{{Type: "meditation", Score: 0.5}}
	out, state := applyStressOverride(recs, 5)
	require.Equal(t, StressNone, state)
	require.Equal(t, recs, out)
}

func TestStressLevelOfTakesMax(t *testing.T) {
	stress, anxiety := 4, 8
	snapshot := &ContextSnapshot{StressLevel: &stress, AnxietyLevel: &anxiety}
	require.Equal(t, 8, stressLevelOf(snapshot))
	require.Equal(t, 0, stressLevelOf(&ContextSnapshot{}))
}

func TestRecomputeConfidence(t *testing.T) {
	confident := &MoodReading{Category: "happy", Confidence: 0.9}
	vague := &MoodReading{Category: "happy", Confidence: 0.2}

	require.InDelta(t, 0.7, recomputeConfidence(0.5, confident, 60), 1e-9)
	require.InDelta(t, 0.4, recomputeConfidence(0.5, vague, 10), 1e-9)
	require.InDelta(t, 0.4, recomputeConfidence(0.5, nil, 10), 1e-9)
	require.InDelta(t, 1.0, recomputeConfidence(0.95, confident, 60), 1e-9)
	require.InDelta(t, 0.0, recomputeConfidence(0.05, nil, 0), 1e-9)
}

func TestApplyCachedOverlay(t *testing.T) {
	base := []Recommendation{
		{Type: "meditation", Score: 0.5, Confidence: 0.5},
		{Type: "walk", Score: 0.6, Confidence: 0.6},
	}
	cached := []Recommendation{
		{Type: "meditation", Score: 0.9, Confidence: 0.9},
		{Type: "reflection", Score: 0.4, Confidence: 0.4},
	}

	out := applyCachedOverlay(base, cached)
	require.Len(t, out, 3)
	require.InDelta(t, 0.9, out[0].Score, 1e-9, "higher confidence cached entry replaces base")
	require.Equal(t, "reflection", out[2].Type)
}

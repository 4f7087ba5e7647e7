package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestBucketForHour(t *testing.T) {
	tests := []struct {
		hour int
		want TimeBucket
	}{
		{0, BucketNight},
		{5, BucketNight},
		{6, BucketMorning},
		{11, BucketMorning},
		{12, BucketAfternoon},
		{16, BucketAfternoon},
		{17, BucketEvening},
		{20, BucketEvening},
		{21, BucketNight},
		{23, BucketNight},
	}
	for _, tt := range tests {
		if got := bucketForHour(tt.hour); got != tt.want {
			t.Errorf("bucketForHour(%d) = %s, want %s", tt.hour, got, tt.want)
		}
	}
}

func TestResolveSnapshot(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC) // Monday morning
	resolver := NewContextResolver(fixedClock(now))

	snapshot := resolver.Resolve()
	require.Equal(t, BucketMorning, snapshot.TimeOfDay)
	require.Equal(t, time.Monday, snapshot.DayOfWeek)
	require.Equal(t, 9, snapshot.Hour)
	require.Nil(t, snapshot.Mood)
}

func TestResolveIncludesFreshMood(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	resolver := NewContextResolver(fixedClock(now))

	stress := 7
	resolver.ObserveMood(MoodState{
		Category:    "anxious",
		Confidence:  0.9,
		StressLevel: &stress,
		ObservedAt:  now.Add(-10 * time.Minute),
	})

	snapshot := resolver.Resolve()
	require.NotNil(t, snapshot.Mood)
	require.Equal(t, "anxious", snapshot.Mood.Category)
	require.InDelta(t, 0.9, snapshot.Mood.Confidence, 1e-9)
	require.NotNil(t, snapshot.StressLevel)
	require.Equal(t, 7, *snapshot.StressLevel)
}

func TestResolveDropsStaleMood(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	resolver := NewContextResolver(fixedClock(now))

	resolver.ObserveMood(MoodState{
		Category:   "happy",
		Confidence: 0.8,
		ObservedAt: now.Add(-3 * time.Hour),
	})

	snapshot := resolver.Resolve()
	require.Nil(t, snapshot.Mood, "stale mood must not appear in the snapshot")
}

func TestResolveDegradesOnZeroClock(t *testing.T) {
	resolver := NewContextResolver(fixedClock(time.Time{}))
	snapshot := resolver.Resolve()
	require.Equal(t, BucketUnknown, snapshot.TimeOfDay)
	require.Nil(t, snapshot.Mood)
}

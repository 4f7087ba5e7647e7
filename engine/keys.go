package engine

import (
	"fmt"
	"strings"
	"time"
)

// contextKey builds the preference-counter key for a (bucket, weekday) pair,
// e.g. "morning_monday". Pure and deterministic.
func contextKey(bucket TimeBucket, day time.Weekday) string {
	return fmt.Sprintf("%s_%s", bucket, strings.ToLower(day.String()))
}

// moodDayKey builds the (mood, weekday) key, e.g. "anxious_monday".
func moodDayKey(mood string, day time.Weekday) string {
	return fmt.Sprintf("%s_%s", mood, strings.ToLower(day.String()))
}

// contextSignature builds the adaptation cache key. It depends only on the
// time bucket, the day of week, and the normalized mood category; snapshots
// that agree on those three fields share a signature no matter what else
// differs.
func contextSignature(snapshot ContextSnapshot) string {
	mood := "none"
	if snapshot.Mood != nil && snapshot.Mood.Category != "" {
		mood = normalizeMood(snapshot.Mood.Category)
	}
	return fmt.Sprintf("%s|%s|%s", snapshot.TimeOfDay, strings.ToLower(snapshot.DayOfWeek.String()), mood)
}

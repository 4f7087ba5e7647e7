package engine

import (
	"log/slog"
	"sort"
	"time"
)

// sessionGap is the inactivity threshold that splits two interactions into
// separate sessions.
const sessionGap = 30 * time.Minute

// moodSynonyms maps raw mood strings onto canonical categories. Unmapped
// strings fall back to "neutral".
var moodSynonyms = map[string]string{
	"happy":      "happy",
	"joy":        "happy",
	"joyful":     "happy",
	"happiness":  "happy",
	"content":    "happy",
	"excited":    "happy",
	"sad":        "sad",
	"sadness":    "sad",
	"down":       "sad",
	"depressed":  "sad",
	"lonely":     "sad",
	"anxious":    "anxious",
	"anxiety":    "anxious",
	"worried":    "anxious",
	"nervous":    "anxious",
	"panicked":   "anxious",
	"stressed":   "stressed",
	"stress":     "stressed",
	"overwhelmed": "stressed",
	"tense":      "stressed",
	"calm":       "calm",
	"relaxed":    "calm",
	"peaceful":   "calm",
	"angry":      "angry",
	"frustrated": "angry",
	"irritated":  "angry",
	"tired":      "tired",
	"exhausted":  "tired",
	"fatigued":   "tired",
	"neutral":    "neutral",
}

// normalizeMood maps a raw mood string to its canonical category.
func normalizeMood(raw string) string {
	if canonical, ok := moodSynonyms[raw]; ok {
		return canonical
	}
	return "neutral"
}

// PatternLearner derives higher-level patterns from the event log and the
// aggregated preference records. Each analysis slice degrades independently:
// a failing slice yields its empty value and the pass continues.
type PatternLearner struct{}

// NewPatternLearner creates a learner.
func NewPatternLearner() *PatternLearner {
	return &PatternLearner{}
}

// Analyze runs all pattern analyses over the given events and records.
func (l *PatternLearner) Analyze(events []InteractionEvent, records map[string]*PreferenceRecord) PatternSet {
	patterns := PatternSet{
		TimePreferences:    map[TimeBucket]map[string]int{},
		ContentPreferences: map[string]ContentPreference{},
		MoodPreferences:    map[string]map[string]int{},
		Engagement:         EngagementPattern{EngagementScores: map[string]float64{}},
		Contextual:         ContextualPattern{TimeDay: map[string]int{}, MoodDay: map[string]int{}, PeakHours: []int{}},
	}

	runSlice("time_preferences", func() {
		patterns.TimePreferences = l.analyzeTimePreferences(events)
	})
	runSlice("content_preferences", func() {
		patterns.ContentPreferences = l.AnalyzeContentPreferences(records)
	})
	runSlice("mood_preferences", func() {
		patterns.MoodPreferences = l.analyzeMoodPreferences(events)
	})
	runSlice("engagement", func() {
		patterns.Engagement = l.analyzeEngagement(events)
	})
	runSlice("contextual", func() {
		patterns.Contextual = l.analyzeContextual(events)
	})
	return patterns
}

// runSlice contains a panicking analysis so one bad slice cannot abort the
// whole learning pass.
func runSlice(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("pattern analysis slice failed", "slice", name, "panic", r)
		}
	}()
	fn()
}

func (l *PatternLearner) analyzeTimePreferences(events []InteractionEvent) map[TimeBucket]map[string]int {
	prefs := map[TimeBucket]map[string]int{}
	for i := range events {
		event := &events[i]
		bucket := event.Context.TimeOfDay
		if prefs[bucket] == nil {
			prefs[bucket] = map[string]int{}
		}
		prefs[bucket][event.Type]++
	}
	return prefs
}

// AnalyzeContentPreferences reduces preference records to per-type content
// statistics. Exported because the generator reuses it directly.
func (l *PatternLearner) AnalyzeContentPreferences(records map[string]*PreferenceRecord) map[string]ContentPreference {
	prefs := map[string]ContentPreference{}
	for interactionType, record := range records {
		if record == nil || record.Frequency == 0 {
			continue
		}
		prefs[interactionType] = ContentPreference{
			Frequency:      record.Frequency,
			Effectiveness:  record.Effectiveness,
			Rating:         record.Rating,
			CompletionRate: float64(record.CompletedCount) / float64(record.Frequency),
		}
	}
	return prefs
}

func (l *PatternLearner) analyzeMoodPreferences(events []InteractionEvent) map[string]map[string]int {
	prefs := map[string]map[string]int{}
	for i := range events {
		event := &events[i]
		if event.Context.Mood == nil {
			continue
		}
		mood := normalizeMood(event.Context.Mood.Category)
		if prefs[mood] == nil {
			prefs[mood] = map[string]int{}
		}
		prefs[mood][event.Type]++
	}
	return prefs
}

func (l *PatternLearner) analyzeEngagement(events []InteractionEvent) EngagementPattern {
	pattern := EngagementPattern{EngagementScores: map[string]float64{}}
	if len(events) == 0 {
		return pattern
	}

	sorted := make([]InteractionEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	// Group into sessions by the inactivity gap, then average session spans.
	var totalMinutes float64
	sessionStart := sorted[0].Timestamp
	sessionEnd := sorted[0].Timestamp
	sessions := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Timestamp.Sub(sessionEnd) > sessionGap {
			totalMinutes += sessionEnd.Sub(sessionStart).Minutes()
			sessions++
			sessionStart = sorted[i].Timestamp
		}
		sessionEnd = sorted[i].Timestamp
	}
	totalMinutes += sessionEnd.Sub(sessionStart).Minutes()

	pattern.SessionCount = sessions
	pattern.AvgSessionMinutes = totalMinutes / float64(sessions)

	// Per-type engagement blends completion rate and normalized rating.
	type typeStats struct {
		total     int
		completed int
		ratingSum float64
		rated     int
	}
	stats := map[string]*typeStats{}
	for i := range sorted {
		event := &sorted[i]
		st, ok := stats[event.Type]
		if !ok {
			st = &typeStats{}
			stats[event.Type] = st
		}
		st.total++
		if event.Completed() {
			st.completed++
		}
		if rating, ok := event.Rating(); ok {
			st.ratingSum += rating
			st.rated++
		}
	}
	for interactionType, st := range stats {
		completionRate := float64(st.completed) / float64(st.total)
		avgRating := 0.0
		if st.rated > 0 {
			avgRating = clamp01(st.ratingSum / float64(st.rated) / 5)
		}
		pattern.EngagementScores[interactionType] = clamp01(0.7*completionRate + 0.3*avgRating)
	}
	return pattern
}

func (l *PatternLearner) analyzeContextual(events []InteractionEvent) ContextualPattern {
	pattern := ContextualPattern{TimeDay: map[string]int{}, MoodDay: map[string]int{}, PeakHours: []int{}}
	hourCounts := map[int]int{}
	for i := range events {
		event := &events[i]
		pattern.TimeDay[contextKey(event.Context.TimeOfDay, event.Context.DayOfWeek)]++
		if event.Context.Mood != nil {
			mood := normalizeMood(event.Context.Mood.Category)
			pattern.MoodDay[moodDayKey(mood, event.Context.DayOfWeek)]++
		}
		hourCounts[event.Context.Hour]++
	}
	pattern.PeakHours = topNHours(hourCounts, 3)
	return pattern
}

// topNHours returns the n most frequent hours, most frequent first. Ties
// break toward the earlier hour for determinism.
func topNHours(counts map[int]int, n int) []int {
	hours := make([]int, 0, len(counts))
	for hour := range counts {
		hours = append(hours, hour)
	}
	sort.Slice(hours, func(i, j int) bool {
		if counts[hours[i]] != counts[hours[j]] {
			return counts[hours[i]] > counts[hours[j]]
		}
		return hours[i] < hours[j]
	})
	if len(hours) > n {
		hours = hours[:n]
	}
	return hours
}

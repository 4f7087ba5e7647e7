// Package engine implements the adaptive behavior-learning and recommendation
// engine. It records interaction events, aggregates them into per-type
// preference statistics and higher-level patterns, and produces personalized,
// mood- and time-sensitive recommendations that adapt in near real time.
package engine

import (
	"time"
)

// TimeBucket is a coarse time-of-day bucket derived from the hour.
type TimeBucket string

const (
	BucketMorning   TimeBucket = "morning"
	BucketAfternoon TimeBucket = "afternoon"
	BucketEvening   TimeBucket = "evening"
	BucketNight     TimeBucket = "night"
	BucketUnknown   TimeBucket = "unknown"
)

// MoodReading is the most recent known mood with its classifier confidence.
type MoodReading struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// MoodState is a full mood observation including stress and anxiety levels,
// fed into the engine by the mood check-in surface.
type MoodState struct {
	Category     string    `json:"category"`
	Confidence   float64   `json:"confidence"`
	StressLevel  *int      `json:"stressLevel,omitempty"`
	AnxietyLevel *int      `json:"anxietyLevel,omitempty"`
	ObservedAt   time.Time `json:"observedAt"`
}

// ContextSnapshot captures "now" as seen by the engine: time-of-day bucket,
// day-of-week, and the most recent mood/stress reading if one is known.
type ContextSnapshot struct {
	TimeOfDay    TimeBucket   `json:"timeOfDay"`
	DayOfWeek    time.Weekday `json:"dayOfWeek"`
	Hour         int          `json:"hour"`
	Mood         *MoodReading `json:"mood,omitempty"`
	StressLevel  *int         `json:"stressLevel,omitempty"`
	AnxietyLevel *int         `json:"anxietyLevel,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
}

// InteractionEvent is a single recorded user interaction. Immutable once
// created; the local window and the durable copy are both append-only.
type InteractionEvent struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   map[string]any  `json:"payload,omitempty"`
	Context   ContextSnapshot `json:"context"`
	SessionID string          `json:"sessionId"`
	Timestamp time.Time       `json:"timestamp"`
}

// Completed reports whether the payload marks the interaction as completed.
func (e *InteractionEvent) Completed() bool {
	v, ok := e.Payload["completed"].(bool)
	return ok && v
}

// Rating returns the user rating from the payload, if present. Ratings are
// on a 1-5 scale.
func (e *InteractionEvent) Rating() (float64, bool) {
	switch v := e.Payload["rating"].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// PreferenceRecord holds rolling statistics for one interaction type.
type PreferenceRecord struct {
	Frequency      int            `json:"frequency"`
	CompletedCount int            `json:"completedCount"`
	LastUsed       time.Time      `json:"lastUsed"`
	ContextCounts  map[string]int `json:"contextCounts"`
	Effectiveness  float64        `json:"effectiveness"`
	Rating         float64        `json:"rating"`
}

// Category classifies a recommendation.
type Category string

const (
	CategoryActivity Category = "activity"
	CategoryContent  Category = "content"
	CategoryPeer     Category = "peer"
)

// Priority orders recommendations for presentation.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Source tags where a recommendation came from.
type Source string

const (
	SourceAI   Source = "ai"
	SourceRule Source = "rule"
)

// Recommendation is a single scored suggestion.
type Recommendation struct {
	Category   Category `json:"category"`
	Type       string   `json:"type"`
	Score      float64  `json:"score"`
	Reason     string   `json:"reason"`
	Priority   Priority `json:"priority"`
	Source     Source   `json:"source"`
	Confidence float64  `json:"confidence"`
	PeerID     string   `json:"peerId,omitempty"`
	MatchKind  string   `json:"matchKind,omitempty"`
}

// RecommendationsBundle is the full output of one generation pass.
type RecommendationsBundle struct {
	SuggestedActivities []Recommendation `json:"suggestedActivities"`
	Content             []Recommendation `json:"content"`
	Peers               []Recommendation `json:"peers"`
	Confidence          float64          `json:"confidence"`
	GeneratedAt         time.Time        `json:"generatedAt"`
}

// StressState marks the stress/anxiety override level of an adapted bundle.
type StressState string

const (
	StressNone     StressState = ""
	StressElevated StressState = "elevated"
	StressCritical StressState = "critical"
)

// AdaptedBundle is the result of real-time adaptation of a base bundle.
type AdaptedBundle struct {
	Recommendations []Recommendation `json:"recommendations"`
	Confidence      float64          `json:"confidence"`
	StressState     StressState      `json:"stressState,omitempty"`
	Signature       string           `json:"signature"`
	AdaptedAt       time.Time        `json:"adaptedAt"`
}

// CacheEntry is a context-keyed adaptation cache entry. Entries expire 24h
// after their last write; repeated writes to the same signature average the
// score and merge the recommendation lists by type.
type CacheEntry struct {
	Signature       string           `json:"signature"`
	Score           float64          `json:"score"`
	Recommendations []Recommendation `json:"recommendations"`
	CreatedAt       time.Time        `json:"createdAt"`
	ExpiresAt       time.Time        `json:"expiresAt"`
}

// Live reports whether the entry is still valid at the given instant.
func (e *CacheEntry) Live(now time.Time) bool {
	return e.ExpiresAt.After(now)
}

// ContentPreference is the per-type content slice of a pattern set.
type ContentPreference struct {
	Frequency      int     `json:"frequency"`
	Effectiveness  float64 `json:"effectiveness"`
	Rating         float64 `json:"rating"`
	CompletionRate float64 `json:"completionRate"`
}

// EngagementPattern summarizes session behavior.
type EngagementPattern struct {
	SessionCount      int                `json:"sessionCount"`
	AvgSessionMinutes float64            `json:"avgSessionMinutes"`
	EngagementScores  map[string]float64 `json:"engagementScores"`
}

// ContextualPattern holds joint time/mood/day distributions and peak hours.
type ContextualPattern struct {
	TimeDay   map[string]int `json:"timeDay"`
	MoodDay   map[string]int `json:"moodDay"`
	PeakHours []int          `json:"peakHours"`
}

// PatternSet is the full output of one learning pass.
type PatternSet struct {
	TimePreferences    map[TimeBucket]map[string]int `json:"timePreferences"`
	ContentPreferences map[string]ContentPreference  `json:"contentPreferences"`
	MoodPreferences    map[string]map[string]int     `json:"moodPreferences"`
	Engagement         EngagementPattern             `json:"engagement"`
	Contextual         ContextualPattern             `json:"contextual"`
}

// AdaptationSettings tunes how aggressively the engine adapts.
type AdaptationSettings struct {
	LearningRate        float64 `json:"learningRate"`
	AdaptationThreshold float64 `json:"adaptationThreshold"`
	ContextSensitivity  float64 `json:"contextSensitivity"`
}

// DefaultAdaptationSettings returns the settings applied to new profiles.
func DefaultAdaptationSettings() AdaptationSettings {
	return AdaptationSettings{
		LearningRate:        0.1,
		AdaptationThreshold: 0.3,
		ContextSensitivity:  0.5,
	}
}

// BehaviorProfile is the durable learned state for one user.
type BehaviorProfile struct {
	Preferences        map[string]*PreferenceRecord `json:"preferences"`
	Patterns           PatternSet                   `json:"patterns"`
	AdaptationSettings AdaptationSettings           `json:"adaptationSettings"`
	UpdatedAt          time.Time                    `json:"updatedAt"`
}

// PeerCandidate describes one potential peer connection.
type PeerCandidate struct {
	ID                 string   `json:"id"`
	Interests          []string `json:"interests"`
	Experiences        []string `json:"experiences"`
	CommunicationStyle string   `json:"communicationStyle"`
	AgeRange           string   `json:"ageRange"`
	ActiveBuckets      []string `json:"activeBuckets"`
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

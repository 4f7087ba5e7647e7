package engine

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// cacheTTL is the lifetime of one adaptation cache entry.
const cacheTTL = 24 * time.Hour

// Boost magnitudes applied by the adaptation passes.
const (
	moodBoost        = 0.2
	timeBoost        = 0.1
	nightCalmBoost   = 0.15
	stressReliefBoost = 0.25
)

// Stress/anxiety override thresholds.
const (
	criticalStressLevel = 8
	elevatedStressLevel = 6
)

// moodPriorityTypes maps a normalized mood category to the content types to
// favor while that mood is active. Only distress moods trigger filtering.
var moodPriorityTypes = map[string][]string{
	"anxious":  {"breathing_exercise", "meditation", "mindfulness"},
	"sad":      {"gratitude_journal", "mood_boost", "social_activity"},
	"stressed": {"breathing_exercise", "progressive_relaxation", "meditation"},
}

// timePriorityTypes maps a time bucket to the types to nudge forward.
var timePriorityTypes = map[TimeBucket][]string{
	BucketMorning:   {"morning_routine", "meditation", "exercise"},
	BucketAfternoon: {"walk", "breathing_exercise", "hydration"},
	BucketEvening:   {"reflection", "gratitude_journal", "wind_down"},
	BucketNight:     {"sleep_hygiene", "meditation", "breathing_exercise"},
}

// calmingTypes get an extra boost late at night.
var calmingTypes = map[string]bool{
	"meditation":             true,
	"breathing_exercise":     true,
	"sleep_hygiene":          true,
	"progressive_relaxation": true,
	"wind_down":              true,
}

// crisisAllowlist is the fixed set of immediate-relief types that survive a
// critical stress override. It is a pure local rule with no external
// dependency, so crisis content is still surfaced under full provider and
// persistence failure.
var crisisAllowlist = map[string]bool{
	"breathing_exercise":  true,
	"grounding_technique": true,
	"crisis_support":      true,
}

// stressReliefTypes get boosted under an elevated (non-critical) override.
var stressReliefTypes = map[string]bool{
	"breathing_exercise":     true,
	"meditation":             true,
	"progressive_relaxation": true,
	"grounding_technique":    true,
}

func typeSetContains(list []string, t string) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}

// mergeCacheEntries merges a fresh observation into an existing entry for the
// same signature: scores are averaged, recommendation lists are merged by
// type with the higher-confidence entry winning on conflict. Merging an
// entry into itself is idempotent.
func mergeCacheEntries(existing, incoming *CacheEntry) CacheEntry {
	merged := CacheEntry{
		Signature: incoming.Signature,
		Score:     clamp01((existing.Score + incoming.Score) / 2),
		CreatedAt: existing.CreatedAt,
		ExpiresAt: incoming.ExpiresAt,
	}

	byType := map[string]Recommendation{}
	order := []string{}
	add := func(rec Recommendation) {
		current, ok := byType[rec.Type]
		if !ok {
			byType[rec.Type] = rec
			order = append(order, rec.Type)
			return
		}
		if rec.Confidence > current.Confidence {
			byType[rec.Type] = rec
		}
	}
	for _, rec := range existing.Recommendations {
		add(rec)
	}
	for _, rec := range incoming.Recommendations {
		add(rec)
	}
	for _, contentType := range order {
		merged.Recommendations = append(merged.Recommendations, byType[contentType])
	}
	return merged
}

// applyCachedOverlay overlays cached recommendations onto the base list:
// matching types keep the higher-confidence entry, cached-only entries are
// appended.
func applyCachedOverlay(base []Recommendation, cached []Recommendation) []Recommendation {
	byType := map[string]int{}
	out := make([]Recommendation, len(base))
	copy(out, base)
	for i, rec := range out {
		byType[rec.Type] = i
	}
	for _, rec := range cached {
		if i, ok := byType[rec.Type]; ok {
			if rec.Confidence > out[i].Confidence {
				out[i] = rec
			}
			continue
		}
		byType[rec.Type] = len(out)
		out = append(out, rec)
	}
	return out
}

// applyMoodFilter boosts content matching the active distress mood. It only
// fires on a confident reading of a distress category.
func applyMoodFilter(recs []Recommendation, mood *MoodReading) []Recommendation {
	if mood == nil || mood.Confidence <= 0.7 {
		return recs
	}
	priority, ok := moodPriorityTypes[normalizeMood(mood.Category)]
	if !ok {
		return recs
	}
	out := make([]Recommendation, len(recs))
	copy(out, recs)
	for i := range out {
		if typeSetContains(priority, out[i].Type) {
			out[i].Score = clamp01(out[i].Score + moodBoost)
			out[i].Priority = priorityForScore(out[i].Score)
		}
	}
	return out
}

// applyTimeBoost nudges bucket-appropriate types forward, with an extra
// boost for calming types late at night (22:00-06:00).
func applyTimeBoost(recs []Recommendation, snapshot *ContextSnapshot) []Recommendation {
	priority := timePriorityTypes[snapshot.TimeOfDay]
	lateNight := snapshot.Hour >= 22 || snapshot.Hour < 6
	out := make([]Recommendation, len(recs))
	copy(out, recs)
	for i := range out {
		if typeSetContains(priority, out[i].Type) {
			out[i].Score = clamp01(out[i].Score + timeBoost)
		}
		if lateNight && calmingTypes[out[i].Type] {
			out[i].Score = clamp01(out[i].Score + nightCalmBoost)
		}
		out[i].Priority = priorityForScore(out[i].Score)
	}
	return out
}

// stressLevelOf returns max(anxiety, stress) for the snapshot, or 0 when
// neither is known.
func stressLevelOf(snapshot *ContextSnapshot) int {
	level := 0
	if snapshot.StressLevel != nil && *snapshot.StressLevel > level {
		level = *snapshot.StressLevel
	}
	if snapshot.AnxietyLevel != nil && *snapshot.AnxietyLevel > level {
		level = *snapshot.AnxietyLevel
	}
	return level
}

// applyStressOverride applies the crisis rules. At critical levels only the
// crisis allowlist survives; at elevated levels stress-relief types are
// boosted without discarding anything.
func applyStressOverride(recs []Recommendation, level int) ([]Recommendation, StressState) {
	switch {
	case level >= criticalStressLevel:
		out := []Recommendation{}
		for _, rec := range recs {
			if crisisAllowlist[rec.Type] {
				rec.Priority = PriorityUrgent
				out = append(out, rec)
			}
		}
		// The allowlist itself backstops an empty result so crisis
		// relief is always surfaced.
		if len(out) == 0 {
			for contentType := range crisisAllowlist {
				out = append(out, Recommendation{
					Category:   CategoryContent,
					Type:       contentType,
					Score:      1,
					Reason:     "immediate relief",
					Priority:   PriorityUrgent,
					Source:     SourceRule,
					Confidence: 1,
				})
			}
			sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
		}
		return out, StressCritical
	case level >= elevatedStressLevel:
		out := make([]Recommendation, len(recs))
		copy(out, recs)
		for i := range out {
			if stressReliefTypes[out[i].Type] {
				out[i].Score = clamp01(out[i].Score + stressReliefBoost)
				out[i].Priority = priorityForScore(out[i].Score)
			}
		}
		return out, StressElevated
	default:
		return recs, StressNone
	}
}

// AdaptRecommendations applies real-time context adaptation to a base
// bundle: cached overlays, mood filtering, time prioritization, and the
// stress override. The hot path touches only local state; the updated cache
// entry is persisted in the background.
func (e *Engine) AdaptRecommendations(ctx context.Context, base *RecommendationsBundle, snapshot *ContextSnapshot) AdaptedBundle {
	now := e.clock()
	var snap ContextSnapshot
	if snapshot != nil {
		snap = *snapshot
	} else {
		snap = e.resolver.Resolve()
	}
	signature := contextSignature(snap)

	recs := baseRecommendations(base)
	confidence := 0.0
	if base != nil {
		confidence = base.Confidence
	}

	e.mu.Lock()
	existing, ok := e.cache[signature]
	interactionCount := e.interactionCount
	e.mu.Unlock()

	hit := ok && existing.Live(now)
	e.metrics.AdaptationCache(hit)
	if hit {
		recs = applyCachedOverlay(recs, existing.Recommendations)
		confidence = clamp01((confidence + existing.Score) / 2)
	}

	recs = applyMoodFilter(recs, snap.Mood)
	recs = applyTimeBoost(recs, &snap)
	recs, stressState := applyStressOverride(recs, stressLevelOf(&snap))
	confidence = recomputeConfidence(confidence, snap.Mood, interactionCount)

	entry := CacheEntry{
		Signature:       signature,
		Score:           confidence,
		Recommendations: recs,
		CreatedAt:       now,
		ExpiresAt:       now.Add(cacheTTL),
	}
	if hit {
		entry = mergeCacheEntries(&existing, &entry)
	}
	e.mu.Lock()
	e.cache[signature] = entry
	e.mu.Unlock()

	persisted := entry
	e.background("persist adaptation cache", func(ctx context.Context) error {
		return e.gateway.UpsertAdaptationCache(ctx, e.userID, &persisted)
	})

	return AdaptedBundle{
		Recommendations: recs,
		Confidence:      confidence,
		StressState:     stressState,
		Signature:       signature,
		AdaptedAt:       now,
	}
}

// baseRecommendations flattens a bundle into the working list for
// adaptation: the content list plus any activities not already represented.
func baseRecommendations(base *RecommendationsBundle) []Recommendation {
	if base == nil {
		return nil
	}
	out := make([]Recommendation, len(base.Content))
	copy(out, base.Content)
	present := map[string]bool{}
	for _, rec := range out {
		present[rec.Type] = true
	}
	for _, rec := range base.SuggestedActivities {
		if present[rec.Type] {
			continue
		}
		present[rec.Type] = true
		out = append(out, rec)
	}
	return out
}

// prewarmAdaptations asks the provider for contextual adaptations and merges
// them into the cache entry for the current signature. Runs only from the
// background learning pass; the interactive adaptation path never calls the
// provider.
func (e *Engine) prewarmAdaptations(ctx context.Context, input *SuggestionInput) {
	result := e.callProvider(ctx, "adaptations", func(ctx context.Context) (*SuggestionResult, error) {
		return e.provider.GenerateAdaptations(ctx, input)
	})
	if result == nil || len(result.Suggestions) == 0 {
		return
	}

	now := e.clock()
	signature := contextSignature(input.Context)
	entry := CacheEntry{
		Signature:       signature,
		Score:           clamp01(result.Confidence),
		Recommendations: result.Suggestions,
		CreatedAt:       now,
		ExpiresAt:       now.Add(cacheTTL),
	}
	e.mu.Lock()
	if existing, ok := e.cache[signature]; ok && existing.Live(now) {
		entry = mergeCacheEntries(&existing, &entry)
	}
	e.cache[signature] = entry
	e.mu.Unlock()

	if err := e.gateway.UpsertAdaptationCache(ctx, e.userID, &entry); err != nil {
		slog.Warn("failed to persist prewarmed adaptation cache", "user", e.userID, "error", err)
	}
}

// recomputeConfidence derives the adapted bundle confidence from the base
// confidence, the mood reading, and the interaction history size.
func recomputeConfidence(base float64, mood *MoodReading, interactionCount int) float64 {
	confidence := base
	if mood != nil && mood.Confidence > 0.8 {
		confidence += 0.1
	}
	if interactionCount > 50 {
		confidence += 0.1
	}
	if mood == nil || mood.Confidence < 0.3 {
		confidence -= 0.1
	}
	return clamp01(confidence)
}

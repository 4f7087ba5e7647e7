package engine

import (
	"sort"
)

// Activity score weights. Completion carries the most signal; a high raw
// frequency alone should not dominate.
const (
	weightFrequency     = 0.3
	weightCompletion    = 0.4
	weightEffectiveness = 0.2
	weightRating        = 0.1
)

const (
	maxActivitySuggestions = 3
	trendingWindowDays     = 7
	diversityLookback      = 20
	diversityScore         = 0.4
)

// defaultCatalog lists the content types every installation knows about,
// used for diversity picks and fallback recommendations.
var defaultCatalog = []string{
	"breathing_exercise",
	"meditation",
	"mindfulness",
	"gratitude_journal",
	"mood_boost",
	"social_activity",
	"progressive_relaxation",
	"exercise",
	"walk",
	"reflection",
	"sleep_hygiene",
	"morning_routine",
	"wind_down",
	"hydration",
}

func priorityForScore(score float64) Priority {
	switch {
	case score >= 0.75:
		return PriorityHigh
	case score >= 0.45:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// generateActivitySuggestions scores every known interaction type and returns
// the top suggestions, each with a reason naming the dominant score term.
func generateActivitySuggestions(records map[string]*PreferenceRecord) []Recommendation {
	maxFrequency := 0
	for _, record := range records {
		if record != nil && record.Frequency > maxFrequency {
			maxFrequency = record.Frequency
		}
	}
	if maxFrequency == 0 {
		return nil
	}

	suggestions := make([]Recommendation, 0, len(records))
	for interactionType, record := range records {
		if record == nil || record.Frequency == 0 {
			continue
		}
		frequencyNorm := float64(record.Frequency) / float64(maxFrequency)
		completionRate := float64(record.CompletedCount) / float64(record.Frequency)
		ratingNorm := clamp01(record.Rating / 5)

		score := clamp01(weightFrequency*frequencyNorm +
			weightCompletion*completionRate +
			weightEffectiveness*record.Effectiveness +
			weightRating*ratingNorm)

		suggestions = append(suggestions, Recommendation{
			Category:   CategoryActivity,
			Type:       interactionType,
			Score:      score,
			Reason:     activityReason(frequencyNorm, completionRate, record.Effectiveness, ratingNorm),
			Priority:   priorityForScore(score),
			Source:     SourceRule,
			Confidence: score,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Type < suggestions[j].Type
	})
	if len(suggestions) > maxActivitySuggestions {
		suggestions = suggestions[:maxActivitySuggestions]
	}
	return suggestions
}

// activityReason names the weighted term that contributes most to the score.
// Ties resolve in the order completion, rating, effectiveness, frequency.
func activityReason(frequencyNorm, completionRate, effectiveness, ratingNorm float64) string {
	terms := []struct {
		value  float64
		reason string
	}{
		{weightCompletion * completionRate, "you usually finish this activity"},
		{weightRating * ratingNorm, "you rated this activity highly"},
		{weightEffectiveness * effectiveness, "this activity has worked well for you"},
		{weightFrequency * frequencyNorm, "you do this activity often"},
	}
	best := terms[0]
	for _, term := range terms[1:] {
		if term.value > best.value {
			best = term
		}
	}
	return best.reason
}

// buildPersonalizedContent reuses the activity scoring formula for content,
// keyed by content type.
func buildPersonalizedContent(records map[string]*PreferenceRecord) []Recommendation {
	suggestions := generateActivitySuggestions(records)
	content := make([]Recommendation, 0, len(suggestions))
	for _, s := range suggestions {
		s.Category = CategoryContent
		content = append(content, s)
	}
	return content
}

// buildTrendingContent turns user-base-wide interaction counts from the last
// seven days into content recommendations, scored by normalized popularity.
func buildTrendingContent(trending map[string]int64) []Recommendation {
	var maxCount int64
	for _, count := range trending {
		if count > maxCount {
			maxCount = count
		}
	}
	if maxCount == 0 {
		return nil
	}

	recommendations := make([]Recommendation, 0, len(trending))
	for contentType, count := range trending {
		norm := float64(count) / float64(maxCount)
		score := clamp01(0.3 + 0.4*norm)
		recommendations = append(recommendations, Recommendation{
			Category:   CategoryContent,
			Type:       contentType,
			Score:      score,
			Reason:     "popular with other members this week",
			Priority:   priorityForScore(score),
			Source:     SourceRule,
			Confidence: score,
		})
	}
	sort.SliceStable(recommendations, func(i, j int) bool {
		if recommendations[i].Score != recommendations[j].Score {
			return recommendations[i].Score > recommendations[j].Score
		}
		return recommendations[i].Type < recommendations[j].Type
	})
	return recommendations
}

// buildDiversityPicks suggests catalog types absent from the user's recent
// interactions, countering filter-bubble effects.
func buildDiversityPicks(recentEvents []InteractionEvent) []Recommendation {
	seen := map[string]bool{}
	start := 0
	if len(recentEvents) > diversityLookback {
		start = len(recentEvents) - diversityLookback
	}
	for _, event := range recentEvents[start:] {
		seen[event.Type] = true
	}

	picks := []Recommendation{}
	for _, contentType := range defaultCatalog {
		if seen[contentType] {
			continue
		}
		picks = append(picks, Recommendation{
			Category:   CategoryContent,
			Type:       contentType,
			Score:      diversityScore,
			Reason:     "something new to try",
			Priority:   PriorityLow,
			Source:     SourceRule,
			Confidence: diversityScore,
		})
	}
	return picks
}

// mergeContent folds recommendation lists together. Entries sharing a type
// have their scores averaged; everything else is kept. The result is sorted
// by score descending.
func mergeContent(lists ...[]Recommendation) []Recommendation {
	byType := map[string]Recommendation{}
	order := []string{}
	for _, list := range lists {
		for _, rec := range list {
			existing, ok := byType[rec.Type]
			if !ok {
				byType[rec.Type] = rec
				order = append(order, rec.Type)
				continue
			}
			existing.Score = clamp01((existing.Score + rec.Score) / 2)
			if rec.Confidence > existing.Confidence {
				existing.Reason = rec.Reason
				existing.Source = rec.Source
				existing.Confidence = rec.Confidence
			}
			existing.Priority = priorityForScore(existing.Score)
			byType[rec.Type] = existing
		}
	}

	merged := make([]Recommendation, 0, len(byType))
	for _, contentType := range order {
		merged = append(merged, byType[contentType])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Type < merged[j].Type
	})
	return merged
}

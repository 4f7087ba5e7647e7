package engine

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	trendingLimit  = 10
	peerCandidates = 25
)

// GenerateRecommendations produces the full recommendation bundle: scored
// activities, merged content from every available source, and peer matches.
// Provider failure never empties the bundle; the rule-based half of each
// family always survives.
func (e *Engine) GenerateRecommendations(ctx context.Context) RecommendationsBundle {
	now := e.clock()
	snapshot := e.resolver.Resolve()
	records := e.aggregator.Records()

	e.mu.Lock()
	events := make([]InteractionEvent, len(e.events))
	copy(events, e.events)
	patterns := e.patterns
	interactionCount := e.interactionCount
	e.mu.Unlock()

	input := &SuggestionInput{
		UserID:      e.userID,
		Context:     snapshot,
		Patterns:    patterns,
		Preferences: records,
		RecentTypes: recentTypes(events, diversityLookback),
	}

	// The provider calls are independent of each other and of the gateway
	// reads, so fan them out. Each call swallows its own failure.
	var (
		aiPersonalized *SuggestionResult
		aiContent      *SuggestionResult
		peers          []Recommendation
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		aiPersonalized = e.callProvider(groupCtx, "personalized", func(ctx context.Context) (*SuggestionResult, error) {
			return e.provider.GeneratePersonalized(ctx, input)
		})
		return nil
	})
	group.Go(func() error {
		aiContent = e.callProvider(groupCtx, "content", func(ctx context.Context) (*SuggestionResult, error) {
			return e.provider.GenerateContent(ctx, input)
		})
		return nil
	})
	group.Go(func() error {
		peers = e.generatePeers(groupCtx, input)
		return nil
	})

	// Activities: rule-based scoring, with provider suggestions blended in
	// through the bundle confidence below.
	activities := generateActivitySuggestions(records)
	if len(activities) == 0 {
		activities = fallbackActivities()
	}

	// Content: AI + personalized + trending + diversity, merged by type.
	personalized := buildPersonalizedContent(records)
	trending := e.loadTrending(ctx, now)
	diversity := buildDiversityPicks(events)

	_ = group.Wait()
	var aiContentRecs []Recommendation
	if aiContent != nil {
		aiContentRecs = aiContent.Suggestions
	}
	content := mergeContent(aiContentRecs, personalized, buildTrendingContent(trending), diversity)

	confidence := baseConfidence(interactionCount)
	if aiPersonalized != nil && aiPersonalized.Confidence > 0 {
		confidence = clamp01((confidence + aiPersonalized.Confidence) / 2)
	}

	e.metrics.RecommendationsGenerated("activity", len(activities))
	e.metrics.RecommendationsGenerated("content", len(content))
	e.metrics.RecommendationsGenerated("peer", len(peers))

	return RecommendationsBundle{
		SuggestedActivities: activities,
		Content:             content,
		Peers:               peers,
		Confidence:          confidence,
		GeneratedAt:         now,
	}
}

// callProvider invokes one provider method behind a timeout and a panic
// boundary. Any failure resolves to nil.
func (e *Engine) callProvider(ctx context.Context, name string, fn func(context.Context) (*SuggestionResult, error)) (result *SuggestionResult) {
	if e.provider == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("suggestion provider panicked", "call", name, "panic", r)
			result = nil
		}
	}()
	callCtx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()
	res, err := fn(callCtx)
	if err != nil {
		slog.Warn("suggestion provider failed", "call", name, "user", e.userID, "error", err)
		return nil
	}
	return res
}

func (e *Engine) loadTrending(ctx context.Context, now time.Time) map[string]int64 {
	since := now.AddDate(0, 0, -trendingWindowDays)
	trending, err := e.gateway.LoadTrendingContent(ctx, since, trendingLimit)
	if err != nil {
		slog.Warn("failed to load trending content", "error", err)
		return nil
	}
	return trending
}

func (e *Engine) generatePeers(ctx context.Context, input *SuggestionInput) []Recommendation {
	var fromRules []Recommendation
	self, err := e.gateway.LoadPeerProfile(ctx, e.userID)
	if err != nil {
		slog.Warn("failed to load peer profile", "user", e.userID, "error", err)
	} else if self != nil {
		candidates, err := e.gateway.ListPeerCandidates(ctx, e.userID, peerCandidates)
		if err != nil {
			slog.Warn("failed to list peer candidates", "user", e.userID, "error", err)
		} else {
			fromRules = generatePeerRecommendations(self, candidates)
		}
	}

	var fromProvider []Recommendation
	if e.provider != nil {
		if result := e.callProviderPeers(ctx, input); result != nil {
			fromProvider = result
		}
	}
	return mergePeerRecommendations(fromProvider, fromRules)
}

func (e *Engine) callProviderPeers(ctx context.Context, input *SuggestionInput) (result []Recommendation) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("suggestion provider panicked", "call", "peers", "panic", r)
			result = nil
		}
	}()
	callCtx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()
	peers, err := e.provider.GeneratePeers(callCtx, input)
	if err != nil {
		slog.Warn("suggestion provider failed", "call", "peers", "user", e.userID, "error", err)
		return nil
	}
	return peers
}

// recentTypes lists the distinct types of the user's most recent events,
// newest last.
func recentTypes(events []InteractionEvent, n int) []string {
	start := 0
	if len(events) > n {
		start = len(events) - n
	}
	seen := map[string]bool{}
	types := []string{}
	for _, event := range events[start:] {
		if seen[event.Type] {
			continue
		}
		seen[event.Type] = true
		types = append(types, event.Type)
	}
	return types
}

// fallbackActivities is the generic starter set returned before any history
// exists.
func fallbackActivities() []Recommendation {
	starters := []string{"breathing_exercise", "gratitude_journal", "walk"}
	out := make([]Recommendation, 0, len(starters))
	for _, activityType := range starters {
		out = append(out, Recommendation{
			Category:   CategoryActivity,
			Type:       activityType,
			Score:      0.3,
			Reason:     "a good place to start",
			Priority:   PriorityLow,
			Source:     SourceRule,
			Confidence: 0.3,
		})
	}
	return out
}

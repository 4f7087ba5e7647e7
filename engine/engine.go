package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
)

const (
	// eventWindow bounds the local interaction log.
	eventWindow = 200
	// learnEvery is the interaction cadence of the background learning pass.
	learnEvery = 10
	// backgroundTimeout bounds every fire-and-forget persistence call.
	backgroundTimeout = 10 * time.Second
	// providerTimeout bounds every suggestion provider call.
	providerTimeout = 15 * time.Second
)

// Engine is the per-user adaptive recommendation engine. It owns all
// in-memory state for one user session; the gateway owns the durable copies.
// Every public method returns a best-effort result and never propagates
// gateway or provider failures.
type Engine struct {
	userID   int32
	gateway  Gateway
	provider SuggestionProvider
	metrics  Metrics
	clock    func() time.Time

	resolver   *ContextResolver
	aggregator *PreferenceAggregator
	learner    *PatternLearner

	mu               sync.Mutex
	events           []InteractionEvent
	patterns         PatternSet
	settings         AdaptationSettings
	cache            map[string]CacheEntry
	sessionID        string
	lastEventAt      time.Time
	interactionCount int

	bg sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithProvider attaches an optional suggestion provider.
func WithProvider(provider SuggestionProvider) Option {
	return func(e *Engine) { e.provider = provider }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(metrics Metrics) Option {
	return func(e *Engine) { e.metrics = metrics }
}

// WithClock overrides the engine clock.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
		e.resolver = NewContextResolver(clock)
	}
}

// New creates an engine for one user backed by the given gateway.
func New(userID int32, gateway Gateway, opts ...Option) *Engine {
	e := &Engine{
		userID:     userID,
		gateway:    gateway,
		metrics:    NoopMetrics(),
		clock:      time.Now,
		aggregator: NewPreferenceAggregator(),
		learner:    NewPatternLearner(),
		settings:   DefaultAdaptationSettings(),
		cache:      map[string]CacheEntry{},
	}
	e.resolver = NewContextResolver(e.clock)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Bootstrap loads durable state into the engine. Every load is best-effort:
// a missing or unreachable store leaves the engine running local-only.
func (e *Engine) Bootstrap(ctx context.Context) {
	if err := e.gateway.EnsureUserProfile(ctx, e.userID); err != nil {
		slog.Warn("failed to ensure user profile, continuing local-only", "user", e.userID, "error", err)
	}

	// The profile restores first; interactions newer than its snapshot then
	// replay on top, so the tail recorded since the last learning pass is
	// not lost and counters never move backwards.
	var profileUpdatedAt time.Time
	if profile, err := e.gateway.LoadBehaviorProfile(ctx, e.userID); err != nil {
		slog.Warn("failed to load behavior profile", "user", e.userID, "error", err)
	} else if profile != nil {
		e.aggregator.Restore(profile.Preferences)
		profileUpdatedAt = profile.UpdatedAt
		e.mu.Lock()
		e.patterns = profile.Patterns
		if profile.AdaptationSettings != (AdaptationSettings{}) {
			e.settings = profile.AdaptationSettings
		}
		e.mu.Unlock()
	}

	if events, err := e.gateway.LoadInteractions(ctx, e.userID, eventWindow); err != nil {
		slog.Warn("failed to load interactions", "user", e.userID, "error", err)
	} else if len(events) > 0 {
		e.mu.Lock()
		e.mergeEventsLocked(events)
		e.mu.Unlock()
		for i := range events {
			if events[i].Timestamp.After(profileUpdatedAt) {
				e.aggregator.Update(&events[i])
			}
		}
	}

	if entries, err := e.gateway.LoadAdaptationCache(ctx, e.userID); err != nil {
		slog.Warn("failed to load adaptation cache", "user", e.userID, "error", err)
	} else if len(entries) > 0 {
		now := e.clock()
		e.mu.Lock()
		for _, entry := range entries {
			if entry.Live(now) {
				e.cache[entry.Signature] = entry
			}
		}
		e.mu.Unlock()
	}

	if mood, err := e.gateway.LoadRecentMood(ctx, e.userID); err != nil {
		slog.Warn("failed to load recent mood", "user", e.userID, "error", err)
	} else if mood != nil {
		e.resolver.ObserveMood(*mood)
	}
}

// Close waits for in-flight background tasks to settle.
func (e *Engine) Close() {
	e.bg.Wait()
}

// ObserveMood feeds a mood observation into the context resolver.
func (e *Engine) ObserveMood(state MoodState) {
	e.resolver.ObserveMood(state)
}

// ResolveContext returns the current context snapshot.
func (e *Engine) ResolveContext() ContextSnapshot {
	return e.resolver.Resolve()
}

// InteractionCount returns the number of interactions known to the engine.
func (e *Engine) InteractionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interactionCount
}

// mergeEventsLocked folds durable events into the local window without
// duplicating ids, keeping the window bounded and ordered by time.
func (e *Engine) mergeEventsLocked(incoming []InteractionEvent) {
	known := map[string]bool{}
	for _, event := range e.events {
		known[event.ID] = true
	}
	for _, event := range incoming {
		if event.ID != "" && known[event.ID] {
			continue
		}
		known[event.ID] = true
		e.events = append(e.events, event)
	}
	if len(e.events) > 1 {
		for i := 1; i < len(e.events); i++ {
			if e.events[i].Timestamp.Before(e.events[i-1].Timestamp) {
				sortEventsByTime(e.events)
				break
			}
		}
	}
	if len(e.events) > eventWindow {
		e.events = e.events[len(e.events)-eventWindow:]
	}
	e.interactionCount = len(e.events)
	if n := len(e.events); n > 0 {
		e.lastEventAt = e.events[n-1].Timestamp
		e.sessionID = e.events[n-1].SessionID
	}
}

// TrackInteraction records one interaction event. The event is stored
// locally, forwarded to the gateway best-effort, and folded into the
// preference statistics before returning. Every tenth call additionally
// triggers a background learning pass and cache sweep.
func (e *Engine) TrackInteraction(ctx context.Context, interactionType string, payload map[string]any) InteractionEvent {
	snapshot := e.resolver.Resolve()
	now := snapshot.Timestamp
	if now.IsZero() {
		now = e.clock()
	}

	e.mu.Lock()
	if e.sessionID == "" || now.Sub(e.lastEventAt) > sessionGap {
		e.sessionID = shortuuid.New()
	}
	event := InteractionEvent{
		ID:        uuid.NewString(),
		Type:      interactionType,
		Payload:   payload,
		Context:   snapshot,
		SessionID: e.sessionID,
		Timestamp: now,
	}
	e.lastEventAt = now
	e.events = append(e.events, event)
	if len(e.events) > eventWindow {
		e.events = e.events[len(e.events)-eventWindow:]
	}
	e.interactionCount++
	count := e.interactionCount
	e.mu.Unlock()

	e.aggregator.Update(&event)
	e.metrics.InteractionTracked(interactionType)

	e.background("append interaction", func(ctx context.Context) error {
		return e.gateway.AppendInteraction(ctx, e.userID, &event)
	})

	if count%learnEvery == 0 {
		e.background("learning pass", func(ctx context.Context) error {
			e.runLearningPass(ctx)
			return nil
		})
	}
	return event
}

// background runs fn as a fire-and-forget task with its own timeout. Panics
// and errors are contained and logged, never surfaced to the caller.
func (e *Engine) background(name string, fn func(context.Context) error) {
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("background task panicked", "task", name, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			slog.Warn("background task failed", "task", name, "user", e.userID, "error", err)
		}
	}()
}

// runLearningPass re-derives patterns, persists the behavior profile, and
// sweeps expired cache entries.
func (e *Engine) runLearningPass(ctx context.Context) {
	started := e.clock()
	var passErr error
	defer func() {
		e.metrics.LearningPass(e.clock().Sub(started), passErr)
	}()

	e.mu.Lock()
	events := make([]InteractionEvent, len(e.events))
	copy(events, e.events)
	e.mu.Unlock()

	records := e.aggregator.Records()
	patterns := e.learner.Analyze(events, records)

	e.mu.Lock()
	e.patterns = patterns
	settings := e.settings
	now := e.clock()
	for signature, entry := range e.cache {
		if !entry.Live(now) {
			delete(e.cache, signature)
		}
	}
	e.mu.Unlock()

	profile := &BehaviorProfile{
		Preferences:        records,
		Patterns:           patterns,
		AdaptationSettings: settings,
		UpdatedAt:          now,
	}
	if err := e.gateway.UpsertBehaviorProfile(ctx, e.userID, profile); err != nil {
		slog.Warn("failed to persist behavior profile", "user", e.userID, "error", err)
		passErr = err
	}
	if err := e.gateway.DeleteExpiredCache(ctx, e.userID, now); err != nil {
		slog.Warn("failed to sweep adaptation cache", "user", e.userID, "error", err)
		if passErr == nil {
			passErr = err
		}
	}

	if e.provider != nil {
		e.prewarmAdaptations(ctx, &SuggestionInput{
			UserID:      e.userID,
			Context:     e.resolver.Resolve(),
			Patterns:    patterns,
			Preferences: records,
			RecentTypes: recentTypes(events, diversityLookback),
		})
	}
}

// Patterns returns the most recently learned pattern set.
func (e *Engine) Patterns() PatternSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.patterns
}

// RelearnNow synchronously runs a learning pass. Used by the scheduled
// refresher; the interactive path goes through TrackInteraction.
func (e *Engine) RelearnNow(ctx context.Context) {
	e.runLearningPass(ctx)
}

func sortEventsByTime(events []InteractionEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}

// baseConfidence grows with the amount of observed history, from 0.3 for a
// fresh user toward 0.9 at a hundred interactions.
func baseConfidence(interactionCount int) float64 {
	frac := float64(interactionCount) / 100
	if frac > 1 {
		frac = 1
	}
	return clamp01(0.3 + 0.6*frac)
}

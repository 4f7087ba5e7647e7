package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// failingProvider errors on every call.
type failingProvider struct{}

var _ SuggestionProvider = (*failingProvider)(nil)

func (failingProvider) GeneratePersonalized(context.Context, *SuggestionInput) (*SuggestionResult, error) {
	return nil, errors.New("provider down")
}

func (failingProvider) GenerateContent(context.Context, *SuggestionInput) (*SuggestionResult, error) {
	return nil, errors.New("provider down")
}

func (failingProvider) GeneratePeers(context.Context, *SuggestionInput) ([]Recommendation, error) {
	return nil, errors.New("provider down")
}

func (failingProvider) GenerateAdaptations(context.Context, *SuggestionInput) (*SuggestionResult, error) {
	return nil, errors.New("provider down")
}

func newTestEngine(t *testing.T, clock *fakeClock, opts ...Option) (*Engine, *MockGateway) {
	t.Helper()
	gateway := NewMockGateway()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	e := New(42, gateway, opts...)
	return e, gateway
}

func TestTrackInteractionSessions(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	e, _ := newTestEngine(t, clock)
	defer e.Close()

	first := e.TrackInteraction(context.Background(), "meditation", nil)

	clock.Advance(10 * time.Minute)
	second := e.TrackInteraction(context.Background(), "walk", nil)
	require.Equal(t, first.SessionID, second.SessionID, "10 minute gap stays in one session")

	clock.Advance(40 * time.Minute)
	third := e.TrackInteraction(context.Background(), "meditation", nil)
	require.NotEqual(t, second.SessionID, third.SessionID, "40 minute gap starts a new session")
}

func TestTrackInteractionPersistsBestEffort(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	e, gateway := newTestEngine(t, clock)

	event := e.TrackInteraction(context.Background(), "meditation", map[string]any{"completed": true})
	require.NotEmpty(t, event.ID)
	require.Equal(t, "meditation", event.Type)
	require.Equal(t, BucketMorning, event.Context.TimeOfDay)

	e.Close()
	require.Equal(t, 1, gateway.AppendCalls)
}

func TestTrackInteractionSurvivesGatewayFailure(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	gateway := NewMockGateway()
	gateway.FailAll = true
	e := New(42, gateway, WithClock(clock.Now))
	defer e.Close()

	event := e.TrackInteraction(context.Background(), "meditation", nil)
	require.NotEmpty(t, event.ID, "local-first: the event is returned even when persistence fails")
	require.Equal(t, 1, e.InteractionCount())
}

func TestEveryTenthInteractionRunsLearningPass(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	e, gateway := newTestEngine(t, clock)

	for i := 0; i < 10; i++ {
		e.TrackInteraction(context.Background(), "meditation", map[string]any{"completed": true})
		clock.Advance(time.Minute)
	}
	e.Close()

	require.GreaterOrEqual(t, gateway.UpsertCalls, 1, "10th interaction must trigger a profile upsert")
	patterns := e.Patterns()
	require.Equal(t, 10, patterns.ContentPreferences["meditation"].Frequency)
}

func TestGenerateRecommendationsFallbackGuarantee(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	e, _ := newTestEngine(t, clock, WithProvider(failingProvider{}))
	defer e.Close()

	e.TrackInteraction(context.Background(), "breathing_exercise", map[string]any{"completed": true, "rating": 5.0})

	bundle := e.GenerateRecommendations(context.Background())
	require.NotEmpty(t, bundle.SuggestedActivities, "provider failure must not empty the bundle")
	require.Equal(t, "breathing_exercise", bundle.SuggestedActivities[0].Type)
	for _, rec := range bundle.SuggestedActivities {
		require.GreaterOrEqual(t, rec.Score, 0.0)
		require.LessOrEqual(t, rec.Score, 1.0)
	}
}

func TestGenerateRecommendationsFreshUser(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	e, _ := newTestEngine(t, clock)
	defer e.Close()

	bundle := e.GenerateRecommendations(context.Background())
	require.NotEmpty(t, bundle.SuggestedActivities, "a fresh user still gets a starter set")
	require.InDelta(t, 0.3, bundle.Confidence, 1e-9)
}

func TestGenerateRecommendationsIncludesTrendingAndPeers(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	e, gateway := newTestEngine(t, clock)
	defer e.Close()

	gateway.SetTrending(map[string]int64{"gratitude_journal": 40})
	self := PeerCandidate{
		ID:                 "42",
		Interests:          []string{"yoga"},
		Experiences:        []string{"anxiety"},
		CommunicationStyle: "direct",
		AgeRange:           "25-34",
		ActiveBuckets:      []string{"morning"},
	}
	peer := self
	peer.ID = "7"
	gateway.SetPeerProfile(42, self)
	gateway.SetPeerProfile(7, peer)

	e.TrackInteraction(context.Background(), "meditation", nil)
	bundle := e.GenerateRecommendations(context.Background())

	found := false
	for _, rec := range bundle.Content {
		if rec.Type == "gratitude_journal" {
			found = true
		}
	}
	require.True(t, found, "trending content must appear in the merged list")
	require.NotEmpty(t, bundle.Peers)
	require.Equal(t, "7", bundle.Peers[0].PeerID)
}

func TestAdaptRecommendationsStressOverride(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	e, _ := newTestEngine(t, clock)
	defer e.Close()

	anxiety := 9
	e.ObserveMood(MoodState{Category: "anxious", Confidence: 0.95, AnxietyLevel: &anxiety, ObservedAt: clock.Now()})

	base := &RecommendationsBundle{
		Content: []Recommendation{
			{Type: "social_activity", Score: 0.9, Confidence: 0.9},
			{Type: "breathing_exercise", Score: 0.4, Confidence: 0.4},
		},
		Confidence: 0.6,
	}
	adapted := e.AdaptRecommendations(context.Background(), base, nil)

	require.Equal(t, StressCritical, adapted.StressState)
	for _, rec := range adapted.Recommendations {
		require.True(t, crisisAllowlist[rec.Type], "only allowlisted types survive a critical override")
	}
	require.NotEmpty(t, adapted.Recommendations)
}

func TestAdaptRecommendationsCachesBySignature(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	e, gateway := newTestEngine(t, clock)

	base := &RecommendationsBundle{
		Content:    []Recommendation{{Type: "meditation", Score: 0.5, Confidence: 0.5}},
		Confidence: 0.5,
	}
	first := e.AdaptRecommendations(context.Background(), base, nil)
	second := e.AdaptRecommendations(context.Background(), base, nil)
	require.Equal(t, first.Signature, second.Signature)

	e.Close()
	entries := gateway.CacheEntries(42)
	require.Len(t, entries, 1)
	entry := entries[first.Signature]
	require.Equal(t, clock.Now().Add(cacheTTL), entry.ExpiresAt)
}

// captureMetrics records adaptation cache hit/miss observations.
type captureMetrics struct {
	mu   sync.Mutex
	hits []bool
}

func (c *captureMetrics) InteractionTracked(string)            {}
func (c *captureMetrics) RecommendationsGenerated(string, int) {}
func (c *captureMetrics) LearningPass(time.Duration, error)    {}
func (c *captureMetrics) AdaptationCache(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits = append(c.hits, hit)
}

func TestAdaptRecommendationsIgnoresExpiredCache(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	metrics := &captureMetrics{}
	e, _ := newTestEngine(t, clock, WithMetrics(metrics))
	defer e.Close()

	base := &RecommendationsBundle{
		Content:    []Recommendation{{Type: "meditation", Score: 0.5, Confidence: 0.5}},
		Confidence: 0.5,
	}
	// A pinned snapshot keeps the signature constant while the clock moves.
	snapshot := ContextSnapshot{TimeOfDay: BucketMorning, DayOfWeek: time.Monday, Hour: 9, Timestamp: clock.Now()}
	e.AdaptRecommendations(context.Background(), base, &snapshot)
	e.AdaptRecommendations(context.Background(), base, &snapshot)

	// A day later the entry has expired, so the same signature misses.
	clock.Advance(24*time.Hour + time.Minute)
	e.AdaptRecommendations(context.Background(), base, &snapshot)

	require.Equal(t, []bool{false, true, false}, metrics.hits)
}

func TestBootstrapRestoresDurableState(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	gateway := NewMockGateway()

	seed := New(42, gateway, WithClock(clock.Now))
	for i := 0; i < 10; i++ {
		seed.TrackInteraction(context.Background(), "meditation", map[string]any{"completed": true})
		clock.Advance(time.Minute)
	}
	seed.Close()

	restored := New(42, gateway, WithClock(clock.Now))
	restored.Bootstrap(context.Background())
	defer restored.Close()

	require.Equal(t, 10, restored.InteractionCount())
	record := restored.aggregator.Record("meditation")
	require.NotNil(t, record)
	require.Equal(t, 10, record.Frequency)
}

func TestBootstrapReplaysEventsNewerThanProfile(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	gateway := NewMockGateway()

	// 15 durable events, but the persisted profile only covers the first
	// 10. The 5-event tail must replay on top of the restored records.
	var profileAt time.Time
	for i := 0; i < 15; i++ {
		event := &InteractionEvent{
			ID:        fmt.Sprintf("event-%d", i),
			Type:      "meditation",
			Payload:   map[string]any{"completed": true},
			Timestamp: clock.Now(),
		}
		require.NoError(t, gateway.AppendInteraction(context.Background(), 42, event))
		if i == 9 {
			profileAt = clock.Now()
		}
		clock.Advance(time.Minute)
	}
	require.NoError(t, gateway.UpsertBehaviorProfile(context.Background(), 42, &BehaviorProfile{
		Preferences: map[string]*PreferenceRecord{
			"meditation": {Frequency: 10, CompletedCount: 10, LastUsed: profileAt},
		},
		UpdatedAt: profileAt,
	}))

	e := New(42, gateway, WithClock(clock.Now))
	e.Bootstrap(context.Background())
	defer e.Close()

	require.Equal(t, 15, e.InteractionCount())
	record := e.aggregator.Record("meditation")
	require.NotNil(t, record)
	require.Equal(t, 15, record.Frequency)
	require.Equal(t, 15, record.CompletedCount)
}

func TestBootstrapRestoresAdaptationCache(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	gateway := NewMockGateway()

	live := &CacheEntry{
		Signature:       "morning|monday|none",
		Score:           0.6,
		Recommendations: []Recommendation{{Type: "meditation", Score: 0.6, Confidence: 0.6}},
		CreatedAt:       clock.Now(),
		ExpiresAt:       clock.Now().Add(12 * time.Hour),
	}
	expired := &CacheEntry{
		Signature: "evening|sunday|none",
		Score:     0.4,
		CreatedAt: clock.Now().Add(-48 * time.Hour),
		ExpiresAt: clock.Now().Add(-24 * time.Hour),
	}
	require.NoError(t, gateway.UpsertAdaptationCache(context.Background(), 42, live))
	require.NoError(t, gateway.UpsertAdaptationCache(context.Background(), 42, expired))

	e := New(42, gateway, WithClock(clock.Now))
	e.Bootstrap(context.Background())
	defer e.Close()

	base := &RecommendationsBundle{
		Content:    []Recommendation{{Type: "meditation", Score: 0.5, Confidence: 0.5}},
		Confidence: 0.5,
	}
	snapshot := ContextSnapshot{TimeOfDay: BucketMorning, DayOfWeek: time.Monday, Hour: 9, Timestamp: clock.Now()}
	metrics := &captureMetrics{}
	e.metrics = metrics
	e.AdaptRecommendations(context.Background(), base, &snapshot)

	// The live entry was restored; the expired one was dropped on load.
	require.Equal(t, []bool{true}, metrics.hits)
	e.mu.Lock()
	_, hasExpired := e.cache["evening|sunday|none"]
	e.mu.Unlock()
	require.False(t, hasExpired)
}

func TestBootstrapSurvivesGatewayFailure(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	gateway := NewMockGateway()
	gateway.FailAll = true

	e := New(42, gateway, WithClock(clock.Now))
	e.Bootstrap(context.Background())
	defer e.Close()

	require.Equal(t, 0, e.InteractionCount())
	bundle := e.GenerateRecommendations(context.Background())
	require.NotEmpty(t, bundle.SuggestedActivities)
}

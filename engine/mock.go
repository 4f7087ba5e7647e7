package engine

import (
	"context"
	"sync"
	"time"
)

// MockGateway is an in-memory Gateway for tests and local development.
type MockGateway struct {
	mu sync.RWMutex

	users        map[int32]bool
	interactions map[int32][]InteractionEvent
	profiles     map[int32]*BehaviorProfile
	caches       map[int32]map[string]CacheEntry
	moods        map[int32]MoodState
	trending     map[string]int64
	peerProfiles map[int32]PeerCandidate

	// FailAll makes every call return ErrGatewayDown, for degradation tests.
	FailAll bool

	AppendCalls int
	UpsertCalls int
}

// ErrGatewayDown is returned by a MockGateway with FailAll set.
var ErrGatewayDown = errGatewayDown{}

type errGatewayDown struct{}

func (errGatewayDown) Error() string { return "gateway down" }

var _ Gateway = (*MockGateway)(nil)

// NewMockGateway creates an empty in-memory gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		users:        map[int32]bool{},
		interactions: map[int32][]InteractionEvent{},
		profiles:     map[int32]*BehaviorProfile{},
		caches:       map[int32]map[string]CacheEntry{},
		moods:        map[int32]MoodState{},
		trending:     map[string]int64{},
		peerProfiles: map[int32]PeerCandidate{},
	}
}

// SetTrending seeds the trending counts.
func (m *MockGateway) SetTrending(trending map[string]int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trending = trending
}

// SetPeerProfile seeds one peer profile.
func (m *MockGateway) SetPeerProfile(userID int32, candidate PeerCandidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peerProfiles[userID] = candidate
}

// SetMood seeds the latest mood for a user.
func (m *MockGateway) SetMood(userID int32, state MoodState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moods[userID] = state
}

// CacheEntries returns a copy of the persisted cache entries for a user.
func (m *MockGateway) CacheEntries(userID int32) map[string]CacheEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[string]CacheEntry{}
	for signature, entry := range m.caches[userID] {
		out[signature] = entry
	}
	return out
}

func (m *MockGateway) EnsureUserProfile(_ context.Context, userID int32) error {
	if m.FailAll {
		return ErrGatewayDown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = true
	return nil
}

func (m *MockGateway) LoadInteractions(_ context.Context, userID int32, limit int) ([]InteractionEvent, error) {
	if m.FailAll {
		return nil, ErrGatewayDown
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := m.interactions[userID]
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	out := make([]InteractionEvent, len(events))
	copy(out, events)
	return out, nil
}

func (m *MockGateway) AppendInteraction(_ context.Context, userID int32, event *InteractionEvent) error {
	if m.FailAll {
		return ErrGatewayDown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendCalls++
	m.interactions[userID] = append(m.interactions[userID], *event)
	return nil
}

func (m *MockGateway) LoadBehaviorProfile(_ context.Context, userID int32) (*BehaviorProfile, error) {
	if m.FailAll {
		return nil, ErrGatewayDown
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profiles[userID], nil
}

func (m *MockGateway) UpsertBehaviorProfile(_ context.Context, userID int32, profile *BehaviorProfile) error {
	if m.FailAll {
		return ErrGatewayDown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls++
	m.profiles[userID] = profile
	return nil
}

func (m *MockGateway) UpsertAdaptationCache(_ context.Context, userID int32, entry *CacheEntry) error {
	if m.FailAll {
		return ErrGatewayDown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.caches[userID] == nil {
		m.caches[userID] = map[string]CacheEntry{}
	}
	m.caches[userID][entry.Signature] = *entry
	return nil
}

func (m *MockGateway) LoadAdaptationCache(_ context.Context, userID int32) ([]CacheEntry, error) {
	if m.FailAll {
		return nil, ErrGatewayDown
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CacheEntry, 0, len(m.caches[userID]))
	for _, entry := range m.caches[userID] {
		out = append(out, entry)
	}
	return out, nil
}

func (m *MockGateway) DeleteExpiredCache(_ context.Context, userID int32, now time.Time) error {
	if m.FailAll {
		return ErrGatewayDown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for signature, entry := range m.caches[userID] {
		if !entry.Live(now) {
			delete(m.caches[userID], signature)
		}
	}
	return nil
}

func (m *MockGateway) LoadRecentMood(_ context.Context, userID int32) (*MoodState, error) {
	if m.FailAll {
		return nil, ErrGatewayDown
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.moods[userID]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (m *MockGateway) LoadTrendingContent(_ context.Context, _ time.Time, _ int) (map[string]int64, error) {
	if m.FailAll {
		return nil, ErrGatewayDown
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[string]int64{}
	for contentType, count := range m.trending {
		out[contentType] = count
	}
	return out, nil
}

func (m *MockGateway) LoadPeerProfile(_ context.Context, userID int32) (*PeerCandidate, error) {
	if m.FailAll {
		return nil, ErrGatewayDown
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	candidate, ok := m.peerProfiles[userID]
	if !ok {
		return nil, nil
	}
	return &candidate, nil
}

func (m *MockGateway) ListPeerCandidates(_ context.Context, userID int32, limit int) ([]PeerCandidate, error) {
	if m.FailAll {
		return nil, ErrGatewayDown
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []PeerCandidate{}
	for id, candidate := range m.peerProfiles {
		if id == userID {
			continue
		}
		out = append(out, candidate)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/wellspring-io/wellspring/store"
)

// Gateway is the durable-persistence boundary of the engine. The store owns
// the durable copies; the engine owns the in-memory state and treats every
// gateway failure as "continue local-only".
type Gateway interface {
	EnsureUserProfile(ctx context.Context, userID int32) error
	LoadInteractions(ctx context.Context, userID int32, limit int) ([]InteractionEvent, error)
	AppendInteraction(ctx context.Context, userID int32, event *InteractionEvent) error
	LoadBehaviorProfile(ctx context.Context, userID int32) (*BehaviorProfile, error)
	UpsertBehaviorProfile(ctx context.Context, userID int32, profile *BehaviorProfile) error
	UpsertAdaptationCache(ctx context.Context, userID int32, entry *CacheEntry) error
	LoadAdaptationCache(ctx context.Context, userID int32) ([]CacheEntry, error)
	DeleteExpiredCache(ctx context.Context, userID int32, now time.Time) error
	LoadRecentMood(ctx context.Context, userID int32) (*MoodState, error)
	LoadTrendingContent(ctx context.Context, since time.Time, limit int) (map[string]int64, error)
	LoadPeerProfile(ctx context.Context, userID int32) (*PeerCandidate, error)
	ListPeerCandidates(ctx context.Context, userID int32, limit int) ([]PeerCandidate, error)
}

// StoreGateway implements Gateway on top of the SQL-backed store.
type StoreGateway struct {
	store *store.Store
}

var _ Gateway = (*StoreGateway)(nil)

// NewStoreGateway creates a gateway backed by the given store.
func NewStoreGateway(s *store.Store) *StoreGateway {
	return &StoreGateway{store: s}
}

func (g *StoreGateway) EnsureUserProfile(ctx context.Context, userID int32) error {
	_, err := g.store.EnsureUser(ctx, userID)
	return err
}

func (g *StoreGateway) LoadInteractions(ctx context.Context, userID int32, limit int) ([]InteractionEvent, error) {
	rows, err := g.store.ListInteractions(ctx, &store.FindInteraction{UserID: &userID, Limit: limit})
	if err != nil {
		return nil, err
	}

	events := make([]InteractionEvent, 0, len(rows))
	for _, row := range rows {
		event := InteractionEvent{
			ID:        row.ID,
			Type:      row.Type,
			SessionID: row.SessionID,
			Timestamp: time.Unix(row.CreatedTs, 0),
		}
		if err := json.Unmarshal([]byte(row.Payload), &event.Payload); err != nil {
			slog.Warn("discarding malformed interaction payload", "id", row.ID, "error", err)
			event.Payload = map[string]any{}
		}
		if err := json.Unmarshal([]byte(row.Context), &event.Context); err != nil {
			slog.Warn("discarding malformed interaction context", "id", row.ID, "error", err)
			event.Context = ContextSnapshot{TimeOfDay: BucketUnknown}
		}
		events = append(events, event)
	}
	return events, nil
}

func (g *StoreGateway) AppendInteraction(ctx context.Context, userID int32, event *InteractionEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}
	snapshot, err := json.Marshal(event.Context)
	if err != nil {
		return err
	}
	_, err = g.store.CreateInteraction(ctx, &store.Interaction{
		ID:        event.ID,
		UserID:    userID,
		Type:      event.Type,
		Payload:   string(payload),
		Context:   string(snapshot),
		SessionID: event.SessionID,
		CreatedTs: event.Timestamp.Unix(),
	})
	return err
}

func (g *StoreGateway) LoadBehaviorProfile(ctx context.Context, userID int32) (*BehaviorProfile, error) {
	row, err := g.store.GetBehaviorProfile(ctx, &store.FindBehaviorProfile{UserID: &userID})
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	profile := &BehaviorProfile{}
	if err := json.Unmarshal([]byte(row.Payload), profile); err != nil {
		// Corrupt durable state is discarded, not fatal; the engine
		// relearns from the interaction log.
		slog.Warn("discarding malformed behavior profile", "user", userID, "error", err)
		return nil, nil
	}
	return profile, nil
}

func (g *StoreGateway) UpsertBehaviorProfile(ctx context.Context, userID int32, profile *BehaviorProfile) error {
	payload, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	_, err = g.store.UpsertBehaviorProfile(ctx, &store.UpsertBehaviorProfile{
		UserID:  userID,
		Payload: string(payload),
	})
	return err
}

func (g *StoreGateway) UpsertAdaptationCache(ctx context.Context, userID int32, entry *CacheEntry) error {
	recommendations, err := json.Marshal(entry.Recommendations)
	if err != nil {
		return err
	}
	_, err = g.store.UpsertAdaptationCache(ctx, &store.UpsertAdaptationCache{
		UserID:          userID,
		Signature:       entry.Signature,
		Score:           entry.Score,
		Recommendations: string(recommendations),
		ExpiresTs:       entry.ExpiresAt.Unix(),
	})
	return err
}

func (g *StoreGateway) LoadAdaptationCache(ctx context.Context, userID int32) ([]CacheEntry, error) {
	rows, err := g.store.ListAdaptationCaches(ctx, &store.FindAdaptationCache{UserID: &userID})
	if err != nil {
		return nil, err
	}
	entries := make([]CacheEntry, 0, len(rows))
	for _, row := range rows {
		entry := CacheEntry{
			Signature: row.Signature,
			Score:     row.Score,
			CreatedAt: time.Unix(row.CreatedTs, 0),
			ExpiresAt: time.Unix(row.ExpiresTs, 0),
		}
		if err := json.Unmarshal([]byte(row.Recommendations), &entry.Recommendations); err != nil {
			slog.Warn("discarding malformed cached adaptation", "user", userID, "signature", row.Signature, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (g *StoreGateway) DeleteExpiredCache(ctx context.Context, userID int32, now time.Time) error {
	_, err := g.store.DeleteExpiredAdaptationCaches(ctx, &store.DeleteExpiredAdaptationCache{
		UserID:   userID,
		BeforeTs: now.Unix(),
	})
	return err
}

func (g *StoreGateway) LoadRecentMood(ctx context.Context, userID int32) (*MoodState, error) {
	entries, err := g.store.ListMoodEntries(ctx, &store.FindMoodEntry{UserID: &userID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	entry := entries[0]
	state := &MoodState{
		Category:   entry.Category,
		Confidence: entry.Confidence,
		ObservedAt: time.Unix(entry.CreatedTs, 0),
	}
	if entry.StressLevel != nil {
		level := int(*entry.StressLevel)
		state.StressLevel = &level
	}
	if entry.AnxietyLevel != nil {
		level := int(*entry.AnxietyLevel)
		state.AnxietyLevel = &level
	}
	return state, nil
}

func (g *StoreGateway) LoadTrendingContent(ctx context.Context, since time.Time, limit int) (map[string]int64, error) {
	counts, err := g.store.AggregateInteractionTypes(ctx, since.Unix(), limit)
	if err != nil {
		return nil, err
	}
	trending := make(map[string]int64, len(counts))
	for _, tc := range counts {
		trending[tc.Type] = tc.Count
	}
	return trending, nil
}

func (g *StoreGateway) LoadPeerProfile(ctx context.Context, userID int32) (*PeerCandidate, error) {
	rows, err := g.store.ListPeerProfiles(ctx, &store.FindPeerProfile{UserID: &userID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	candidate := peerCandidateFromRow(rows[0])
	return &candidate, nil
}

func (g *StoreGateway) ListPeerCandidates(ctx context.Context, userID int32, limit int) ([]PeerCandidate, error) {
	rows, err := g.store.ListPeerProfiles(ctx, &store.FindPeerProfile{ExcludeUserID: &userID, Limit: limit})
	if err != nil {
		return nil, err
	}
	candidates := make([]PeerCandidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, peerCandidateFromRow(row))
	}
	return candidates, nil
}

func peerCandidateFromRow(row *store.PeerProfile) PeerCandidate {
	candidate := PeerCandidate{
		ID:                 formatPeerID(row.UserID),
		CommunicationStyle: row.CommunicationStyle,
		AgeRange:           row.AgeRange,
	}
	decodeStrings(row.Interests, &candidate.Interests)
	decodeStrings(row.Experiences, &candidate.Experiences)
	decodeStrings(row.ActiveBuckets, &candidate.ActiveBuckets)
	return candidate
}

func formatPeerID(userID int32) string {
	return strconv.FormatInt(int64(userID), 10)
}

func decodeStrings(raw string, out *[]string) {
	if raw == "" {
		return
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		slog.Warn("discarding malformed peer profile field", "error", err)
	}
}

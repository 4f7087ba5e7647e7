package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/wellspring-io/wellspring/internal/profile"
	"github.com/wellspring-io/wellspring/store/cache"
)

// ErrFeatureUnavailable marks a non-fatal persistence condition (missing
// schema, feature not provisioned). Callers treat it as "continue with local
// state only"; it must never trigger a retry loop in the request path.
var ErrFeatureUnavailable = errors.New("persistence feature unavailable")

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// Caches
	behaviorProfileCache *cache.Cache // cache for behavior profiles
	peerProfileCache     *cache.Cache // cache for peer profiles
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	cacheConfig := cache.Config{
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		Capacity:        1000,
	}

	return &Store{
		driver:               driver,
		profile:              profile,
		behaviorProfileCache: cache.New(cacheConfig),
		peerProfileCache:     cache.New(cacheConfig),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	s.behaviorProfileCache.Close()
	s.peerProfileCache.Close()
	return s.driver.Close()
}

// classifyError maps missing-schema database errors to ErrFeatureUnavailable
// so callers can degrade to local-only mode instead of failing hard.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "42P01" { // undefined_table
		return fmt.Errorf("%w: %v", ErrFeatureUnavailable, err)
	}
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%w: %v", ErrFeatureUnavailable, err)
	}
	return err
}

func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	user, err := s.driver.CreateUser(ctx, create)
	return user, classifyError(err)
}

func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	user, err := s.driver.GetUser(ctx, find)
	return user, classifyError(err)
}

// EnsureUser gets or lazily creates the minimal user row. Idempotent.
func (s *Store) EnsureUser(ctx context.Context, userID int32) (*User, error) {
	user, err := s.GetUser(ctx, &FindUser{ID: &userID})
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}
	user, err = s.CreateUser(ctx, &User{ID: userID, CreatedTs: time.Now().Unix()})
	return user, classifyError(err)
}

func (s *Store) CreateInteraction(ctx context.Context, create *Interaction) (*Interaction, error) {
	interaction, err := s.driver.CreateInteraction(ctx, create)
	return interaction, classifyError(err)
}

func (s *Store) ListInteractions(ctx context.Context, find *FindInteraction) ([]*Interaction, error) {
	list, err := s.driver.ListInteractions(ctx, find)
	return list, classifyError(err)
}

func (s *Store) AggregateInteractionTypes(ctx context.Context, sinceTs int64, limit int) ([]*TypeCount, error) {
	counts, err := s.driver.AggregateInteractionTypes(ctx, sinceTs, limit)
	return counts, classifyError(err)
}

func (s *Store) ListActiveUserIDs(ctx context.Context, sinceTs int64) ([]int32, error) {
	ids, err := s.driver.ListActiveUserIDs(ctx, sinceTs)
	return ids, classifyError(err)
}

func (s *Store) UpsertBehaviorProfile(ctx context.Context, upsert *UpsertBehaviorProfile) (*BehaviorProfile, error) {
	bp, err := s.driver.UpsertBehaviorProfile(ctx, upsert)
	if err != nil {
		return nil, classifyError(err)
	}
	s.behaviorProfileCache.Set(behaviorProfileCacheKey(upsert.UserID), []byte(bp.Payload), 0)
	return bp, nil
}

func (s *Store) GetBehaviorProfile(ctx context.Context, find *FindBehaviorProfile) (*BehaviorProfile, error) {
	if find.UserID != nil {
		if payload, ok := s.behaviorProfileCache.Get(behaviorProfileCacheKey(*find.UserID)); ok {
			return &BehaviorProfile{UserID: *find.UserID, Payload: string(payload)}, nil
		}
	}
	bp, err := s.driver.GetBehaviorProfile(ctx, find)
	if err != nil {
		return nil, classifyError(err)
	}
	if bp != nil {
		s.behaviorProfileCache.Set(behaviorProfileCacheKey(bp.UserID), []byte(bp.Payload), 0)
	}
	return bp, nil
}

func (s *Store) UpsertAdaptationCache(ctx context.Context, upsert *UpsertAdaptationCache) (*AdaptationCache, error) {
	entry, err := s.driver.UpsertAdaptationCache(ctx, upsert)
	return entry, classifyError(err)
}

func (s *Store) ListAdaptationCaches(ctx context.Context, find *FindAdaptationCache) ([]*AdaptationCache, error) {
	entries, err := s.driver.ListAdaptationCaches(ctx, find)
	return entries, classifyError(err)
}

func (s *Store) DeleteExpiredAdaptationCaches(ctx context.Context, delete *DeleteExpiredAdaptationCache) (int64, error) {
	n, err := s.driver.DeleteExpiredAdaptationCaches(ctx, delete)
	return n, classifyError(err)
}

func (s *Store) CreateMoodEntry(ctx context.Context, create *MoodEntry) (*MoodEntry, error) {
	entry, err := s.driver.CreateMoodEntry(ctx, create)
	return entry, classifyError(err)
}

func (s *Store) ListMoodEntries(ctx context.Context, find *FindMoodEntry) ([]*MoodEntry, error) {
	entries, err := s.driver.ListMoodEntries(ctx, find)
	return entries, classifyError(err)
}

func (s *Store) UpsertPeerProfile(ctx context.Context, upsert *UpsertPeerProfile) (*PeerProfile, error) {
	pp, err := s.driver.UpsertPeerProfile(ctx, upsert)
	return pp, classifyError(err)
}

func (s *Store) ListPeerProfiles(ctx context.Context, find *FindPeerProfile) ([]*PeerProfile, error) {
	list, err := s.driver.ListPeerProfiles(ctx, find)
	return list, classifyError(err)
}

func behaviorProfileCacheKey(userID int32) string {
	return fmt.Sprintf("behavior_profile:%d", userID)
}

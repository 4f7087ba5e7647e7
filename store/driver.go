package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// User model related methods.
	CreateUser(ctx context.Context, create *User) (*User, error)
	GetUser(ctx context.Context, find *FindUser) (*User, error)

	// Interaction model related methods. Interactions are append-only.
	CreateInteraction(ctx context.Context, create *Interaction) (*Interaction, error)
	ListInteractions(ctx context.Context, find *FindInteraction) ([]*Interaction, error)
	AggregateInteractionTypes(ctx context.Context, sinceTs int64, limit int) ([]*TypeCount, error)
	ListActiveUserIDs(ctx context.Context, sinceTs int64) ([]int32, error)

	// BehaviorProfile model related methods.
	UpsertBehaviorProfile(ctx context.Context, upsert *UpsertBehaviorProfile) (*BehaviorProfile, error)
	GetBehaviorProfile(ctx context.Context, find *FindBehaviorProfile) (*BehaviorProfile, error)

	// AdaptationCache model related methods.
	UpsertAdaptationCache(ctx context.Context, upsert *UpsertAdaptationCache) (*AdaptationCache, error)
	ListAdaptationCaches(ctx context.Context, find *FindAdaptationCache) ([]*AdaptationCache, error)
	DeleteExpiredAdaptationCaches(ctx context.Context, delete *DeleteExpiredAdaptationCache) (int64, error)

	// MoodEntry model related methods.
	CreateMoodEntry(ctx context.Context, create *MoodEntry) (*MoodEntry, error)
	ListMoodEntries(ctx context.Context, find *FindMoodEntry) ([]*MoodEntry, error)

	// PeerProfile model related methods.
	UpsertPeerProfile(ctx context.Context, upsert *UpsertPeerProfile) (*PeerProfile, error)
	ListPeerProfiles(ctx context.Context, find *FindPeerProfile) ([]*PeerProfile, error)
}

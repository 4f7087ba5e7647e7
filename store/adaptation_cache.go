package store

// AdaptationCache is a persisted real-time adaptation cache entry, keyed by
// the deterministic context signature.
type AdaptationCache struct {
	UserID          int32
	Signature       string
	Score           float64
	Recommendations string // JSON array
	CreatedTs       int64
	ExpiresTs       int64
}

// FindAdaptationCache specifies the conditions for listing cache entries.
type FindAdaptationCache struct {
	UserID    *int32
	Signature *string
}

// UpsertAdaptationCache specifies the data for upserting a cache entry.
type UpsertAdaptationCache struct {
	UserID          int32
	Signature       string
	Score           float64
	Recommendations string // JSON array
	ExpiresTs       int64
}

// DeleteExpiredAdaptationCache specifies the cutoff for purging entries.
type DeleteExpiredAdaptationCache struct {
	UserID   int32
	BeforeTs int64
}

package store

// BehaviorProfile holds the learned behavior profile for one user.
// The payload is an opaque JSON document owned by the engine.
type BehaviorProfile struct {
	UserID    int32
	Payload   string // JSON
	CreatedTs int64
	UpdatedTs int64
}

// FindBehaviorProfile specifies the conditions for finding a behavior profile.
type FindBehaviorProfile struct {
	UserID *int32
}

// UpsertBehaviorProfile specifies the data for upserting a behavior profile.
type UpsertBehaviorProfile struct {
	UserID  int32
	Payload string // JSON
}

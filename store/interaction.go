package store

// Interaction is a single recorded user interaction event.
// Rows are append-only; events are never updated after creation.
type Interaction struct {
	ID        string
	UserID    int32
	Type      string
	Payload   string // JSON key/value map
	Context   string // JSON context snapshot
	SessionID string
	CreatedTs int64
}

// FindInteraction specifies the conditions for listing interactions.
type FindInteraction struct {
	UserID  *int32
	Type    *string
	SinceTs *int64
	Limit   int
}

// TypeCount is an aggregate interaction count for one interaction type.
type TypeCount struct {
	Type  string
	Count int64
}

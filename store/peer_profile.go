package store

// PeerProfile describes a user's peer-matching traits. Interests,
// experiences and active buckets are JSON string arrays.
type PeerProfile struct {
	UserID             int32
	Interests          string // JSON array
	Experiences        string // JSON array
	CommunicationStyle string
	AgeRange           string
	ActiveBuckets      string // JSON array of time-of-day buckets
	UpdatedTs          int64
}

// FindPeerProfile specifies the conditions for listing peer profiles.
type FindPeerProfile struct {
	UserID        *int32
	ExcludeUserID *int32
	Limit         int
}

// UpsertPeerProfile specifies the data for upserting a peer profile.
type UpsertPeerProfile struct {
	UserID             int32
	Interests          string
	Experiences        string
	CommunicationStyle string
	AgeRange           string
	ActiveBuckets      string
}

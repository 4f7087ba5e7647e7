package store

// User is the minimal user record the engine needs. Account management is
// owned by an external service; rows here exist only to anchor foreign data.
type User struct {
	ID        int32
	CreatedTs int64
}

// FindUser specifies the conditions for finding a user.
type FindUser struct {
	ID *int32
}

package store

// MoodEntry is a recorded mood reading, fed by the mood check-in surface of
// the app. The engine only reads the most recent entry per user.
type MoodEntry struct {
	ID           int64
	UserID       int32
	Category     string
	Confidence   float64
	StressLevel  *int32
	AnxietyLevel *int32
	CreatedTs    int64
}

// FindMoodEntry specifies the conditions for finding mood entries.
type FindMoodEntry struct {
	UserID  *int32
	SinceTs *int64
	Limit   int
}

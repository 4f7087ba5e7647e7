package engine

import (
	"sync"
	"time"
)

// moodFreshness bounds how long a mood observation keeps informing context
// snapshots before it is considered stale.
const moodFreshness = 2 * time.Hour

// bucketForHour maps an hour of day to its time bucket.
func bucketForHour(hour int) TimeBucket {
	switch {
	case hour >= 6 && hour < 12:
		return BucketMorning
	case hour >= 12 && hour < 17:
		return BucketAfternoon
	case hour >= 17 && hour < 21:
		return BucketEvening
	case hour >= 0 && hour < 24:
		return BucketNight
	default:
		return BucketUnknown
	}
}

// ContextResolver computes snapshots of "now" from the process clock and the
// most recently observed mood. Resolution never fails: when the clock or mood
// cannot be read, the snapshot degrades to an unknown bucket with no mood.
type ContextResolver struct {
	clock func() time.Time

	mu   sync.RWMutex
	mood *MoodState
}

// NewContextResolver creates a resolver using the given clock. A nil clock
// falls back to time.Now.
func NewContextResolver(clock func() time.Time) *ContextResolver {
	if clock == nil {
		clock = time.Now
	}
	return &ContextResolver{clock: clock}
}

// ObserveMood records a mood observation into the recent-mood cache.
func (r *ContextResolver) ObserveMood(state MoodState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state.ObservedAt.IsZero() {
		state.ObservedAt = r.clock()
	}
	r.mood = &state
}

// RecentMood returns the cached mood if it is still fresh.
func (r *ContextResolver) RecentMood() *MoodState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.mood == nil {
		return nil
	}
	if r.clock().Sub(r.mood.ObservedAt) > moodFreshness {
		return nil
	}
	mood := *r.mood
	return &mood
}

// Resolve computes the current context snapshot.
func (r *ContextResolver) Resolve() ContextSnapshot {
	now := r.clock()
	if now.IsZero() {
		return ContextSnapshot{TimeOfDay: BucketUnknown}
	}

	snapshot := ContextSnapshot{
		TimeOfDay: bucketForHour(now.Hour()),
		DayOfWeek: now.Weekday(),
		Hour:      now.Hour(),
		Timestamp: now,
	}

	if mood := r.RecentMood(); mood != nil {
		snapshot.Mood = &MoodReading{Category: mood.Category, Confidence: mood.Confidence}
		snapshot.StressLevel = mood.StressLevel
		snapshot.AnxietyLevel = mood.AnxietyLevel
	}
	return snapshot
}

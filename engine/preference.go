package engine

import (
	"sync"
)

// PreferenceAggregator maintains rolling per-interaction-type statistics,
// updated synchronously on every recorded event.
type PreferenceAggregator struct {
	mu      sync.RWMutex
	records map[string]*PreferenceRecord
}

// NewPreferenceAggregator creates an empty aggregator.
func NewPreferenceAggregator() *PreferenceAggregator {
	return &PreferenceAggregator{records: map[string]*PreferenceRecord{}}
}

// Update folds one interaction into the record for its type. The frequency
// counter only ever grows; effectiveness is averaged with the latest
// observation, where an explicit rating wins over the completed flag.
func (a *PreferenceAggregator) Update(event *InteractionEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	record, ok := a.records[event.Type]
	if !ok {
		record = &PreferenceRecord{ContextCounts: map[string]int{}}
		a.records[event.Type] = record
	}
	if record.ContextCounts == nil {
		record.ContextCounts = map[string]int{}
	}

	record.Frequency++
	record.LastUsed = event.Timestamp
	record.ContextCounts[contextKey(event.Context.TimeOfDay, event.Context.DayOfWeek)]++

	if event.Completed() {
		record.CompletedCount++
	}

	rating, hasRating := event.Rating()
	if hasRating {
		record.Rating = rating
	}

	if _, ok := event.Payload["completed"]; ok || hasRating {
		observed := 0.0
		if hasRating {
			observed = clamp01(rating / 5)
		} else if event.Completed() {
			observed = 1
		}
		record.Effectiveness = clamp01((record.Effectiveness + observed) / 2)
	}
}

// Record returns a copy of the record for one type, or nil if unseen.
func (a *PreferenceAggregator) Record(interactionType string) *PreferenceRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	record, ok := a.records[interactionType]
	if !ok {
		return nil
	}
	return copyRecord(record)
}

// Records returns a copy of all records keyed by interaction type.
func (a *PreferenceAggregator) Records() map[string]*PreferenceRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]*PreferenceRecord, len(a.records))
	for t, record := range a.records {
		out[t] = copyRecord(record)
	}
	return out
}

// Restore replaces the aggregator state with previously persisted records.
// Nil maps inside records are reinitialized so later updates never panic.
func (a *PreferenceAggregator) Restore(records map[string]*PreferenceRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = map[string]*PreferenceRecord{}
	for t, record := range records {
		if record == nil {
			continue
		}
		restored := copyRecord(record)
		restored.Effectiveness = clamp01(restored.Effectiveness)
		a.records[t] = restored
	}
}

func copyRecord(record *PreferenceRecord) *PreferenceRecord {
	out := &PreferenceRecord{
		Frequency:      record.Frequency,
		CompletedCount: record.CompletedCount,
		LastUsed:       record.LastUsed,
		ContextCounts:  make(map[string]int, len(record.ContextCounts)),
		Effectiveness:  record.Effectiveness,
		Rating:         record.Rating,
	}
	for k, v := range record.ContextCounts {
		out.ContextCounts[k] = v
	}
	return out
}

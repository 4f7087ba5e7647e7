package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func makeEvent(interactionType string, ts time.Time, payload map[string]any) InteractionEvent {
	return InteractionEvent{
		ID:      interactionType + ts.String(),
		Type:    interactionType,
		Payload: payload,
		Context: ContextSnapshot{
			TimeOfDay: bucketForHour(ts.Hour()),
			DayOfWeek: ts.Weekday(),
			Hour:      ts.Hour(),
			Timestamp: ts,
		},
		Timestamp: ts,
	}
}

func TestUpdateIncrementsCounters(t *testing.T) {
	aggregator := NewPreferenceAggregator()
	ts := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) // Monday morning

	event := makeEvent("meditation", ts, nil)
	aggregator.Update(&event)
	aggregator.Update(&event)

	record := aggregator.Record("meditation")
	require.NotNil(t, record)
	require.Equal(t, 2, record.Frequency)
	require.Equal(t, ts, record.LastUsed)
	require.Equal(t, 2, record.ContextCounts["morning_monday"])
}

func TestUpdateEffectivenessAveragesObservation(t *testing.T) {
	aggregator := NewPreferenceAggregator()
	ts := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	completed := makeEvent("meditation", ts, map[string]any{"completed": true})
	aggregator.Update(&completed)
	record := aggregator.Record("meditation")
	require.InDelta(t, 0.5, record.Effectiveness, 1e-9) // (0 + 1) / 2

	aggregator.Update(&completed)
	record = aggregator.Record("meditation")
	require.InDelta(t, 0.75, record.Effectiveness, 1e-9) // (0.5 + 1) / 2
}

func TestUpdateRatingWinsOverCompleted(t *testing.T) {
	aggregator := NewPreferenceAggregator()
	ts := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	event := makeEvent("meditation", ts, map[string]any{"completed": false, "rating": 5.0})
	aggregator.Update(&event)

	record := aggregator.Record("meditation")
	require.Equal(t, 5.0, record.Rating)
	require.InDelta(t, 0.5, record.Effectiveness, 1e-9) // observed = 5/5 = 1
}

func TestUpdateWithoutOutcomeLeavesEffectiveness(t *testing.T) {
	aggregator := NewPreferenceAggregator()
	ts := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	rated := makeEvent("walk", ts, map[string]any{"rating": 4.0})
	aggregator.Update(&rated)
	before := aggregator.Record("walk").Effectiveness

	plain := makeEvent("walk", ts.Add(time.Minute), nil)
	aggregator.Update(&plain)

	record := aggregator.Record("walk")
	require.Equal(t, before, record.Effectiveness, "events without completed/rating must not move effectiveness")
	require.Equal(t, 2, record.Frequency)
}

func TestRestoreClampsAndCopies(t *testing.T) {
	aggregator := NewPreferenceAggregator()
	aggregator.Restore(map[string]*PreferenceRecord{
		"meditation": {Frequency: 3, Effectiveness: 1.7},
		"broken":     nil,
	})

	record := aggregator.Record("meditation")
	require.NotNil(t, record)
	require.Equal(t, 3, record.Frequency)
	require.Equal(t, 1.0, record.Effectiveness)
	require.NotNil(t, record.ContextCounts)
	require.Nil(t, aggregator.Record("broken"))
}

package state

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"axiapac.com/timeclock/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

func at(hh, mm int, typ model.EventType) model.TimeClockEvent {
	return model.TimeClockEvent{
		EventUUID:    fmt.Sprintf("%s-%02d%02d", typ.Path(), hh, mm),
		Type:         typ,
		TimestampUTC: day.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute),
	}
}

func TestComputeTotalsFromEvents(t *testing.T) {
	tests := []struct {
		name   string
		events []model.TimeClockEvent
		want   int
	}{
		{
			name:   "Empty",
			events: nil,
			want:   0,
		},
		{
			name: "Full day with break",
			events: []model.TimeClockEvent{
				at(9, 0, model.ClockIn), at(12, 0, model.BreakStart), at(12, 30, model.BreakEnd), at(17, 0, model.ClockOut),
			},
			want: 480,
		},
		{
			name: "Unsorted input",
			events: []model.TimeClockEvent{
				at(17, 0, model.ClockOut), at(12, 30, model.BreakEnd), at(9, 0, model.ClockIn), at(12, 0, model.BreakStart),
			},
			want: 480,
		},
		{
			name: "Two shifts",
			events: []model.TimeClockEvent{
				at(6, 0, model.ClockIn), at(10, 0, model.ClockOut), at(14, 0, model.ClockIn), at(15, 30, model.ClockOut),
			},
			want: 330,
		},
		{
			name: "Break after a closed shift is deducted",
			events: []model.TimeClockEvent{
				at(8, 0, model.ClockIn), at(12, 0, model.ClockOut), at(12, 0, model.BreakStart), at(12, 45, model.BreakEnd),
			},
			want: 195,
		},
		{
			name: "Double clock in overwrites the marker",
			events: []model.TimeClockEvent{
				at(8, 0, model.ClockIn), at(9, 0, model.ClockIn), at(10, 0, model.ClockOut),
			},
			want: 60,
		},
		{
			name:   "Clock out without clock in",
			events: []model.TimeClockEvent{at(10, 0, model.ClockOut)},
			want:   0,
		},
		{
			name:   "Open shift is not counted",
			events: []model.TimeClockEvent{at(10, 0, model.ClockIn)},
			want:   0,
		},
		{
			name:   "Lonely break never goes negative",
			events: []model.TimeClockEvent{at(10, 0, model.BreakStart), at(11, 0, model.BreakEnd)},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeTotalsFromEvents(tt.events).TodaysMinutes)
		})
	}
}

func TestComputeTotalsFromEvents_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		n := rng.Intn(12)
		events := make([]model.TimeClockEvent, n)
		for j := range events {
			events[j] = at(rng.Intn(24), rng.Intn(60), model.EventTypes[rng.Intn(len(model.EventTypes))])
		}

		got := ComputeTotalsFromEvents(events)
		require.GreaterOrEqual(t, got.TodaysMinutes, 0)

		sorted := sortedByTimestamp(sortedByTimestamp(events))
		assert.Equal(t, got, ComputeTotalsFromEvents(sorted))
	}
}

func TestComputeLiveMinutes(t *testing.T) {
	t.Run("Running after break", func(t *testing.T) {
		live := ComputeLiveMinutes([]model.TimeClockEvent{
			at(9, 0, model.ClockIn), at(12, 0, model.BreakStart), at(12, 30, model.BreakEnd),
		})
		assert.Equal(t, 180, live.Minutes)
		require.NotNil(t, live.RunningSince)
		assert.Equal(t, day.Add(12*time.Hour+30*time.Minute), *live.RunningSince)
		assert.Equal(t, 180+90, live.At(day.Add(14*time.Hour)))
	})

	t.Run("Closed day", func(t *testing.T) {
		live := ComputeLiveMinutes([]model.TimeClockEvent{
			at(9, 0, model.ClockIn), at(12, 0, model.BreakStart), at(12, 30, model.BreakEnd), at(17, 0, model.ClockOut),
		})
		assert.Equal(t, 450, live.Minutes)
		assert.Nil(t, live.RunningSince)
		assert.Equal(t, 450, live.At(day.Add(20*time.Hour)))
	})

	t.Run("Pause without resume", func(t *testing.T) {
		live := ComputeLiveMinutes([]model.TimeClockEvent{at(9, 0, model.BreakStart)})
		assert.Equal(t, 0, live.Minutes)
		assert.Nil(t, live.RunningSince)
	})
}

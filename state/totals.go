package state

import (
	"sort"
	"time"

	"axiapac.com/timeclock/model"
)

type Totals struct {
	TodaysMinutes int `json:"todaysMinutes"`
}

// LiveMinutes is the worked time up to the last pause plus, while the clock is
// running, the time the current stretch started.
type LiveMinutes struct {
	Minutes      int        `json:"minutes"`
	RunningSince *time.Time `json:"runningSince,omitempty"`
}

// At returns the worked minutes as of now.
func (l LiveMinutes) At(now time.Time) int {
	if l.RunningSince == nil || now.Before(*l.RunningSince) {
		return l.Minutes
	}
	return l.Minutes + int(now.Sub(*l.RunningSince)/time.Minute)
}

func sortedByTimestamp(events []model.TimeClockEvent) []model.TimeClockEvent {
	sorted := make([]model.TimeClockEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimestampUTC.Before(sorted[j].TimestampUTC)
	})
	return sorted
}

// ComputeTotalsFromEvents walks events in timestamp order. A clock_out adds the
// time since the last clock_in and a break_end subtracts the time since the
// last break_start. Repeated start events overwrite their marker. The running
// total is floored at zero.
func ComputeTotalsFromEvents(events []model.TimeClockEvent) Totals {
	var total time.Duration
	var start, pause *time.Time

	for _, e := range sortedByTimestamp(events) {
		ts := e.TimestampUTC
		switch e.Type {
		case model.ClockIn:
			start = &ts
		case model.ClockOut:
			if start != nil {
				total += ts.Sub(*start)
				start = nil
			}
		case model.BreakStart:
			pause = &ts
		case model.BreakEnd:
			if pause != nil {
				total -= ts.Sub(*pause)
				pause = nil
			}
		}
		if total < 0 {
			total = 0
		}
	}

	return Totals{TodaysMinutes: int(total / time.Minute)}
}

// ComputeLiveMinutes treats clock_in and break_end as resume and break_start and
// clock_out as pause.
func ComputeLiveMinutes(events []model.TimeClockEvent) LiveMinutes {
	var total time.Duration
	var running *time.Time

	for _, e := range sortedByTimestamp(events) {
		ts := e.TimestampUTC
		switch e.Type {
		case model.ClockIn, model.BreakEnd:
			running = &ts
		case model.BreakStart, model.ClockOut:
			if running != nil {
				if d := ts.Sub(*running); d > 0 {
					total += d
				}
				running = nil
			}
		}
	}

	return LiveMinutes{Minutes: int(total / time.Minute), RunningSince: running}
}

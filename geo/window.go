package geo

import (
	"time"

	"axiapac.com/timeclock/model"
)

// parseClock converts "HH:MM" or "HH:MM:SS" into minutes since midnight.
func parseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		t, err = time.Parse("15:04:05", s)
	}
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// IsWithinAllowedWindow reports whether at falls inside the job's daily window.
//
// Missing or unparseable bounds allow the punch (fail-open), and so does a
// degenerate window where start equals end. A window whose start is after its
// end runs overnight.
func IsWithinAllowedWindow(job *model.Job, at time.Time) bool {
	if job == nil {
		return true
	}
	start, ok := parseClock(job.AllowedHours.Start)
	if !ok {
		return true
	}
	end, ok := parseClock(job.AllowedHours.End)
	if !ok {
		return true
	}
	if start == end {
		return true
	}

	minutes := at.Hour()*60 + at.Minute()
	if start < end {
		return minutes >= start && minutes <= end
	}
	return minutes >= start || minutes <= end
}

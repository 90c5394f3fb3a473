package event

import (
	"fmt"
	"time"
)

const deviceTimeLayout = "2006-01-02T15:04:05"

// TimezoneOffsetMinutes returns the offset of t's zone as minutes west of UTC,
// e.g. -600 for UTC+10 and 300 for UTC-5.
func TimezoneOffsetMinutes(t time.Time) int {
	_, east := t.Zone()
	return -east / 60
}

// FormatDeviceTime renders t as local wall time with a numeric offset suffix.
// The sign comes from the minutes-west offset: a positive offset is written as "-".
func FormatDeviceTime(t time.Time) string {
	offset := TimezoneOffsetMinutes(t)
	sign := "+"
	if offset > 0 {
		sign = "-"
	}
	abs := offset
	if abs < 0 {
		abs = -abs
	}
	return fmt.Sprintf("%s%s%02d:%02d", t.Format(deviceTimeLayout), sign, abs/60, abs%60)
}

package geo

import (
	"fmt"
	"math"

	"axiapac.com/timeclock/model"
)

const DefaultMaxAccuracyM = 100.0

type Check struct {
	CanProceed bool   `json:"canProceed"`
	Reason     string `json:"reason,omitempty"`
}

// ValidateAccuracy fails closed: a reading worse than maxAccuracy blocks the punch.
// A non-positive maxAccuracy falls back to DefaultMaxAccuracyM.
func ValidateAccuracy(gps model.GPS, maxAccuracy float64) Check {
	if maxAccuracy <= 0 {
		maxAccuracy = DefaultMaxAccuracyM
	}
	if math.IsNaN(gps.AccuracyM) || math.IsInf(gps.AccuracyM, 0) {
		return Check{CanProceed: false, Reason: "GPS accuracy is unknown. Wait for a location fix and try again."}
	}
	if gps.AccuracyM > maxAccuracy {
		return Check{
			CanProceed: false,
			Reason: fmt.Sprintf("GPS accuracy is %.0f m but at most %.0f m is required. Move to an open area and try again.",
				gps.AccuracyM, maxAccuracy),
		}
	}
	return Check{CanProceed: true}
}

package geo

import (
	"math"

	"axiapac.com/timeclock/model"
)

// EarthRadiusM is the mean Earth radius in meters.
const EarthRadiusM = 6371000.0

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// HaversineDistance returns the great-circle distance in meters between a and b.
func HaversineDistance(a, b model.LatLng) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusM * c
}

type GeofenceResult struct {
	Distance float64 `json:"distance"`
	IsInside bool    `json:"isInside"`
}

// IsWithinGeofence measures the reading against the job's geofence. The boundary is inclusive.
func IsWithinGeofence(gps model.GPS, job *model.Job) GeofenceResult {
	distance := HaversineDistance(model.LatLng{Lat: gps.Lat, Lng: gps.Lng}, job.GeofenceCenter)
	return GeofenceResult{
		Distance: distance,
		IsInside: distance <= job.GeofenceRadiusM,
	}
}

package geo

import (
	"math"
	"testing"

	"axiapac.com/timeclock/model"
	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance(t *testing.T) {
	t.Run("Same point is zero", func(t *testing.T) {
		for _, p := range []model.LatLng{
			{Lat: 0, Lng: 0},
			{Lat: -27.4698, Lng: 153.0251},
			{Lat: 89.9, Lng: -179.9},
		} {
			assert.Equal(t, 0.0, HaversineDistance(p, p))
		}
	})

	t.Run("Brisbane to Sydney", func(t *testing.T) {
		brisbane := model.LatLng{Lat: -27.4698, Lng: 153.0251}
		sydney := model.LatLng{Lat: -33.8688, Lng: 151.2093}
		assert.InDelta(t, 732000, HaversineDistance(brisbane, sydney), 2000)
	})

	t.Run("Symmetric", func(t *testing.T) {
		a := model.LatLng{Lat: 10, Lng: 20}
		b := model.LatLng{Lat: 11, Lng: 21}
		assert.InDelta(t, HaversineDistance(a, b), HaversineDistance(b, a), 1e-9)
	})

	t.Run("One degree of latitude", func(t *testing.T) {
		d := HaversineDistance(model.LatLng{Lat: 0, Lng: 0}, model.LatLng{Lat: 1, Lng: 0})
		assert.InDelta(t, EarthRadiusM*toRadians(1), d, 1e-6)
	})
}

func TestIsWithinGeofence(t *testing.T) {
	center := model.LatLng{Lat: -27.4698, Lng: 153.0251}
	// 100 m due north
	north := model.GPS{Lat: center.Lat + (100/EarthRadiusM)*180/math.Pi, Lng: center.Lng}

	t.Run("Boundary is inclusive", func(t *testing.T) {
		radius := HaversineDistance(model.LatLng{Lat: north.Lat, Lng: north.Lng}, center)
		assert.InDelta(t, 100, radius, 1e-6)

		job := &model.Job{GeofenceCenter: center, GeofenceRadiusM: radius}
		res := IsWithinGeofence(north, job)
		assert.True(t, res.IsInside)
		assert.Equal(t, radius, res.Distance)
	})

	t.Run("Inside", func(t *testing.T) {
		job := &model.Job{GeofenceCenter: center, GeofenceRadiusM: 150}
		assert.True(t, IsWithinGeofence(north, job).IsInside)
	})

	t.Run("Outside", func(t *testing.T) {
		job := &model.Job{GeofenceCenter: center, GeofenceRadiusM: 50}
		res := IsWithinGeofence(north, job)
		assert.False(t, res.IsInside)
		assert.InDelta(t, 100, res.Distance, 1e-6)
	})
}

package model

type LatLng struct {
	Lat float64 `gorm:"column:lat" json:"lat" yaml:"lat"`
	Lng float64 `gorm:"column:lng" json:"lng" yaml:"lng"`
}

// AllowedHours holds "HH:MM" or "HH:MM:SS" bounds. Empty bounds mean always allowed.
type AllowedHours struct {
	Start string `gorm:"column:start;size:8" json:"start" yaml:"start"`
	End   string `gorm:"column:end;size:8" json:"end" yaml:"end"`
}

// Job is the read-mostly job summary cached so job selection works offline.
type Job struct {
	ID              string       `gorm:"primaryKey;size:64;column:id" json:"id" yaml:"id"`
	Name            string       `gorm:"size:255;column:name" json:"name" yaml:"name"`
	Active          bool         `gorm:"column:active;not null" json:"active" yaml:"active"`
	GeofenceCenter  LatLng       `gorm:"embedded;embeddedPrefix:center_" json:"geofence_center" yaml:"geofence_center"`
	GeofenceRadiusM float64      `gorm:"column:geofence_radius_m" json:"geofence_radius_m" yaml:"geofence_radius_m"`
	AllowedHours    AllowedHours `gorm:"embedded;embeddedPrefix:allowed_" json:"allowed_hours" yaml:"allowed_hours"`

	CachedAt int64 `gorm:"column:cached_at" json:"cachedAt,omitempty" yaml:"-"`
}

func (Job) TableName() string {
	return "jobs"
}

// HasGeofence reports whether the job defines a usable geofence.
func (j *Job) HasGeofence() bool {
	return j.GeofenceRadiusM > 0
}

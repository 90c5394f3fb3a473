package location

import (
	"context"
	"errors"

	"axiapac.com/timeclock/model"
)

var ErrUnavailable = errors.New("position unavailable")

// Provider is the device's geolocation source.
type Provider interface {
	Current(ctx context.Context) (model.GPS, error)
	Permission(ctx context.Context) (model.PermissionState, error)
}

// Static reports a fixed position, for kiosks bolted to a site.
type Static struct {
	GPS   model.GPS
	State model.PermissionState
}

func (s *Static) Current(ctx context.Context) (model.GPS, error) {
	if s.State != model.PermissionGranted {
		return model.GPS{}, ErrUnavailable
	}
	gps := s.GPS
	if gps.Address != nil {
		address := *gps.Address
		gps.Address = &address
	}
	return gps, nil
}

func (s *Static) Permission(ctx context.Context) (model.PermissionState, error) {
	if s.State == "" {
		return model.PermissionPrompt, nil
	}
	return s.State, nil
}

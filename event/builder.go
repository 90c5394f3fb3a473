package event

import (
	"fmt"
	"time"

	"axiapac.com/timeclock/model"
	"github.com/google/uuid"
)

// Device is the ambient device state sampled when a punch is built.
type Device struct {
	UserAgent string
	Platform  string
	Language  string
	Canvas    string
	Screen    Screen
}

// Input is everything the caller supplies for one punch.
type Input struct {
	Type             model.EventType
	JobID            string
	UserID           string
	GPS              model.GPS
	Online           bool
	PublicIP         *string
	Permissions      map[string]string
	SpoofCheckPassed bool
}

type Builder struct {
	Device Device
	// Now defaults to time.Now. Its location is used for device_time.
	Now func() time.Time
}

func NewBuilder(device Device) *Builder {
	return &Builder{Device: device, Now: time.Now}
}

// Build assembles a new event with a fresh random event_uuid.
func (b *Builder) Build(in Input) (*model.TimeClockEvent, error) {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	return b.BuildAt(in, now())
}

// BuildAt is Build with an explicit capture time. local's location is used for
// device_time.
func (b *Builder) BuildAt(in Input, local time.Time) (*model.TimeClockEvent, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("build event: unknown type %q", in.Type)
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("build event: generate uuid: %w", err)
	}

	permissions := make(map[string]string, len(in.Permissions))
	for k, v := range in.Permissions {
		permissions[k] = v
	}

	gps := in.GPS
	if gps.Address != nil {
		address := *gps.Address
		gps.Address = &address
	}

	return &model.TimeClockEvent{
		EventUUID:    id.String(),
		UserID:       in.UserID,
		JobID:        in.JobID,
		Type:         in.Type,
		TimestampUTC: local.UTC(),
		DeviceTime:   FormatDeviceTime(local),
		GPS:          gps,
		Device: model.DeviceInfo{
			UserAgent:   b.Device.UserAgent,
			Platform:    b.Device.Platform,
			Language:    b.Device.Language,
			Fingerprint: Fingerprint(b.Device.Canvas, b.Device.Language, b.Device.Screen),
		},
		Network: model.NetworkInfo{
			Online:   in.Online,
			PublicIP: in.PublicIP,
		},
		AntiFraud: model.AntiFraudInfo{
			Permissions:      permissions,
			SpoofCheckPassed: in.SpoofCheckPassed,
		},
	}, nil
}

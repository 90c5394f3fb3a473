package location

import (
	"context"
	"log/slog"
	"time"

	"axiapac.com/timeclock/model"
)

// Sink receives position and permission updates.
type Sink interface {
	SetGeoposition(gps *model.GPS)
	SetPermission(p model.PermissionState)
}

// Watch polls provider every interval and pushes the results into sink until
// ctx is cancelled. A denied permission clears the stored position.
func Watch(ctx context.Context, provider Provider, interval time.Duration, sink Sink, log *slog.Logger) error {
	log = log.With("component", "location")
	if interval <= 0 {
		interval = 30 * time.Second
	}

	Poll(ctx, provider, sink, log)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			Poll(ctx, provider, sink, log)
		}
	}
}

// Poll reads provider once.
func Poll(ctx context.Context, provider Provider, sink Sink, log *slog.Logger) {
	permission, err := provider.Permission(ctx)
	if err != nil {
		log.Warn("permission query failed", "error", err)
		return
	}
	sink.SetPermission(permission)

	if permission != model.PermissionGranted {
		sink.SetGeoposition(nil)
		return
	}

	gps, err := provider.Current(ctx)
	if err != nil {
		log.Warn("position unavailable", "error", err)
		return
	}
	sink.SetGeoposition(&gps)
}

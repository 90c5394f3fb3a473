package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"axiapac.com/timeclock/event"
	"axiapac.com/timeclock/model"
	"axiapac.com/timeclock/replay"
	"axiapac.com/timeclock/security"
	"axiapac.com/timeclock/state"
	"axiapac.com/timeclock/store"
)

var (
	ErrPermissionDenied = errors.New("location permission is required to punch")
	ErrNoPosition       = errors.New("no location fix yet")
	ErrJobNotFound      = errors.New("job not found")
	ErrJobInactive      = errors.New("job is not active")
)

type JobLister interface {
	List(ctx context.Context) ([]model.Job, error)
}

type PendingSource interface {
	GetPendingEvents(ctx context.Context) ([]model.TimeEventRecord, error)
}

// ActionInput is a punch requested by the user.
type ActionInput struct {
	Type             model.EventType
	JobID            string
	PublicIP         *string
	SpoofCheckPassed bool
}

// Service is the foreground entry point: it turns a user action into a
// validated, submitted event.
type Service struct {
	UserID string
	// Now is the capture clock. Its location is the device time zone.
	Now func() time.Time

	builder   *event.Builder
	validator *event.Validator
	submitter *Submitter
	state     *state.Store
	jobs      JobCache
	remote    JobLister
	pending   PendingSource
	net       Connectivity
	log       *slog.Logger
}

type ServiceDeps struct {
	Builder   *event.Builder
	Validator *event.Validator
	Submitter *Submitter
	State     *state.Store
	Jobs      JobCache
	Remote    JobLister
	// Pending may be nil when the store is unavailable.
	Pending PendingSource
	Net     Connectivity
}

func NewService(userID string, deps ServiceDeps, log *slog.Logger) *Service {
	return &Service{
		UserID:    userID,
		Now:       time.Now,
		builder:   deps.Builder,
		validator: deps.Validator,
		submitter: deps.Submitter,
		state:     deps.State,
		jobs:      deps.Jobs,
		remote:    deps.Remote,
		pending:   deps.Pending,
		net:       deps.Net,
		log:       log.With("component", "pipeline"),
	}
}

// InitEncryption derives the user's payload key into state. Without crypto
// support, or when disabled, payloads are stored as plaintext.
func (s *Service) InitEncryption(enabled bool) {
	if !enabled {
		s.log.Info("payload encryption disabled")
		return
	}
	if !security.HasCryptoSupport() {
		s.log.Warn("no crypto support, payloads stored as plaintext")
		return
	}
	key, err := security.DeriveUserKey(s.UserID)
	if err != nil {
		s.log.Warn("key derivation failed, payloads stored as plaintext", "error", err)
		return
	}
	s.state.SetEncryptionKey(key)
}

// HandleAction validates and submits one punch. Validation failures are
// returned before anything is stored or sent.
func (s *Service) HandleAction(ctx context.Context, in ActionInput) (*Result, error) {
	if s.submitter.IsSubmitting() {
		return nil, ErrSubmissionInProgress
	}

	permission := s.state.Permission()
	if permission != model.PermissionGranted {
		return nil, ErrPermissionDenied
	}
	gps := s.state.Geoposition()
	if gps == nil {
		return nil, ErrNoPosition
	}

	job, err := s.jobs.GetCachedJob(ctx, in.JobID)
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", in.JobID, err)
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, in.JobID)
	}
	if !job.Active {
		return nil, fmt.Errorf("%w: %s", ErrJobInactive, in.JobID)
	}

	now := s.Now()
	if err := s.validator.Precheck(*gps, job, now); err != nil {
		return nil, err
	}

	evt, err := s.builder.BuildAt(event.Input{
		Type:             in.Type,
		JobID:            job.ID,
		UserID:           s.UserID,
		GPS:              *gps,
		Online:           s.net.Online(),
		PublicIP:         in.PublicIP,
		Permissions:      map[string]string{model.PermissionGeolocation: string(permission)},
		SpoofCheckPassed: in.SpoofCheckPassed,
	}, now)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidatePayload(evt); err != nil {
		return nil, err
	}

	return s.submitter.Submit(ctx, evt)
}

// Rehydrate loads pending records into state. Records that cannot be decoded
// are logged and skipped.
func (s *Service) Rehydrate(ctx context.Context) (int, error) {
	if s.pending == nil {
		return 0, nil
	}
	records, err := s.pending.GetPendingEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("rehydrate: %w", err)
	}

	key := s.state.EncryptionKey()
	entries := make([]state.EventEntry, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		evt, err := store.DecodeRecord(&rec, key)
		if err != nil {
			s.log.Warn("skipping unreadable punch", "event_uuid", rec.EventUUID, "error", err)
			continue
		}
		entries = append(entries, state.EventEntry{Event: *evt, Status: rec.Status})
	}

	s.state.Hydrate(entries)
	s.log.Info("state rehydrated", "pending", len(entries), "skipped", len(records)-len(entries))
	return len(entries), nil
}

// RefreshJobs replaces the job cache with the backend's list.
func (s *Service) RefreshJobs(ctx context.Context) (int, error) {
	jobs, err := s.remote.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("refresh jobs: %w", err)
	}
	if err := s.jobs.CacheJobs(ctx, jobs); err != nil {
		return 0, fmt.Errorf("refresh jobs: %w", err)
	}
	return len(jobs), nil
}

func (s *Service) Jobs(ctx context.Context) ([]model.Job, error) {
	return s.jobs.GetCachedJobs(ctx)
}

// ListenWorker applies replay worker notifications until ctx is done or ch closes.
func (s *Service) ListenWorker(ctx context.Context, ch <-chan replay.Notification) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-ch:
			if !ok {
				return nil
			}
			s.submitter.HandleNotification(ctx, n)
		}
	}
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	v1 "axiapac.com/timeclock/backend/v1"
	"axiapac.com/timeclock/model"
	"axiapac.com/timeclock/replay"
	"axiapac.com/timeclock/security"
	"axiapac.com/timeclock/state"
	"axiapac.com/timeclock/store"
)

var ErrSubmissionInProgress = errors.New("a submission is already in progress")

// EventStore is the durable side of the submitter.
type EventStore interface {
	PutTimeEvent(ctx context.Context, event *model.TimeClockEvent, opts store.PutOptions) error
	UpdateTimeEventStatus(ctx context.Context, eventUUID string, status model.EventStatus) (bool, error)
}

type Backend interface {
	Submit(ctx context.Context, event *model.TimeClockEvent) (*v1.SubmitResponse, error)
}

type Connectivity interface {
	Online() bool
}

// SyncRegistrar is the worker's background-sync registration.
type SyncRegistrar interface {
	RegisterSync(ctx context.Context, tag string) error
}

// Result is the outcome of one submission.
type Result struct {
	EventUUID string             `json:"event_uuid"`
	Status    model.EventStatus  `json:"status"`
	Queued    bool               `json:"queued"`
	Response  *v1.SubmitResponse `json:"-"`
}

type SubmitterOptions struct {
	// Encrypt stores payloads encrypted whenever the state holds a key.
	Encrypt bool
	SyncTag string
}

// Submitter persists an event as pending, then posts it. Only one submission
// runs at a time.
type Submitter struct {
	store   EventStore
	backend Backend
	state   *state.Store
	net     Connectivity
	sync    SyncRegistrar
	opts    SubmitterOptions
	log     *slog.Logger

	inFlight atomic.Bool
}

// NewSubmitter wires a submitter. eventStore and registrar may be nil; without a
// store the submitter runs memory-only.
func NewSubmitter(eventStore EventStore, backend Backend, st *state.Store, net Connectivity, registrar SyncRegistrar, opts SubmitterOptions, log *slog.Logger) *Submitter {
	if opts.SyncTag == "" {
		opts.SyncTag = replay.DefaultSyncTag
	}
	return &Submitter{
		store:   eventStore,
		backend: backend,
		state:   st,
		net:     net,
		sync:    registrar,
		opts:    opts,
		log:     log.With("component", "pipeline"),
	}
}

func (s *Submitter) IsSubmitting() bool {
	return s.inFlight.Load()
}

// Submit records event as pending locally before any network I/O, then posts
// it. Offline failures are reported as queued with a nil error, unless the
// request could not be queued: the event then stays pending and the error is
// returned. Online failures mark the event failed and return the error.
//
// Once started a submission runs to completion; cancelling ctx does not stop it.
func (s *Submitter) Submit(ctx context.Context, event *model.TimeClockEvent) (*Result, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInProgress
	}
	defer s.inFlight.Store(false)
	ctx = context.WithoutCancel(ctx)

	s.persist(ctx, event, model.StatusPending)
	s.state.UpsertPendingEvent(*event, model.StatusPending)

	result := &Result{EventUUID: event.EventUUID, Status: model.StatusPending}

	resp, err := s.backend.Submit(ctx, event)
	if err != nil {
		var httpErr *v1.HTTPError
		if errors.Is(err, replay.ErrNotQueued) {
			s.log.Warn("offline and not queued, punch needs a resubmit", "event_uuid", event.EventUUID, "error", err)
			return result, fmt.Errorf("submit %s: %w", event.EventUUID, err)
		}
		if !errors.As(err, &httpErr) && !s.net.Online() {
			s.log.Info("offline, punch left for background sync", "event_uuid", event.EventUUID, "error", err)
			s.registerSync(ctx)
			result.Queued = true
			return result, nil
		}

		s.setStatus(ctx, event.EventUUID, model.StatusFailed)
		result.Status = model.StatusFailed
		return result, fmt.Errorf("submit %s: %w", event.EventUUID, err)
	}

	result.Response = resp
	if resp.Queued {
		s.log.Info("punch queued by replay worker", "event_uuid", event.EventUUID)
		s.registerSync(ctx)
		result.Queued = true
		return result, nil
	}

	s.setStatus(ctx, event.EventUUID, model.StatusSynced)
	result.Status = model.StatusSynced
	return result, nil
}

// MarkSynced applies a server ack that arrived outside Submit.
func (s *Submitter) MarkSynced(ctx context.Context, eventUUID string) {
	s.setStatus(ctx, eventUUID, model.StatusSynced)
}

// HandleNotification reconciles a replay worker outcome with local status.
func (s *Submitter) HandleNotification(ctx context.Context, n replay.Notification) {
	switch n.Type {
	case replay.NotificationReplayed:
		if n.StatusCode >= http.StatusOK && n.StatusCode < http.StatusMultipleChoices {
			s.MarkSynced(ctx, n.EventUUID)
			return
		}
		s.log.Warn("replayed punch rejected by server", "event_uuid", n.EventUUID, "status", n.StatusCode)
		s.setStatus(ctx, n.EventUUID, model.StatusFailed)
	case replay.NotificationExpired:
		s.setStatus(ctx, n.EventUUID, model.StatusFailed)
	case replay.NotificationActivated:
		s.log.Debug("replay worker active")
	}
}

func (s *Submitter) persist(ctx context.Context, event *model.TimeClockEvent, status model.EventStatus) {
	if s.store == nil {
		return
	}

	opts := store.PutOptions{Status: status}
	if key := s.state.EncryptionKey(); s.opts.Encrypt && key != nil {
		cipher, err := security.EncryptJSON(event, key)
		if err != nil {
			s.log.Warn("encryption failed, storing plaintext", "event_uuid", event.EventUUID, "error", err)
		} else {
			opts.Cipher = cipher
		}
	}

	if err := s.store.PutTimeEvent(ctx, event, opts); err != nil {
		s.log.Warn("persist punch failed, continuing in memory", "event_uuid", event.EventUUID, "error", err)
	}
}

func (s *Submitter) setStatus(ctx context.Context, eventUUID string, status model.EventStatus) {
	if s.store != nil {
		if _, err := s.store.UpdateTimeEventStatus(ctx, eventUUID, status); err != nil {
			s.log.Warn("update punch status failed", "event_uuid", eventUUID, "status", status, "error", err)
		}
	}
	s.state.MarkEventStatus(eventUUID, status)
}

func (s *Submitter) registerSync(ctx context.Context) {
	if s.sync == nil {
		return
	}
	if err := s.sync.RegisterSync(ctx, s.opts.SyncTag); err != nil {
		s.log.Warn("sync registration failed", "tag", s.opts.SyncTag, "error", err)
	}
}

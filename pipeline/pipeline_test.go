package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	v1 "axiapac.com/timeclock/backend/v1"
	"axiapac.com/timeclock/core"
	"axiapac.com/timeclock/event"
	"axiapac.com/timeclock/model"
	"axiapac.com/timeclock/replay"
	"axiapac.com/timeclock/security"
	"axiapac.com/timeclock/state"
	"axiapac.com/timeclock/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendFunc func(ctx context.Context, e *model.TimeClockEvent) (*v1.SubmitResponse, error)

func (f backendFunc) Submit(ctx context.Context, e *model.TimeClockEvent) (*v1.SubmitResponse, error) {
	return f(ctx, e)
}

type fakeNet struct{ online atomic.Bool }

func (n *fakeNet) Online() bool { return n.online.Load() }

func netState(online bool) *fakeNet {
	n := &fakeNet{}
	n.online.Store(online)
	return n
}

type fakeRegistrar struct {
	mu   sync.Mutex
	tags []string
}

func (r *fakeRegistrar) RegisterSync(ctx context.Context, tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags = append(r.tags, tag)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "pipeline.db"), core.LogLevelSilent)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testEvent() *model.TimeClockEvent {
	return &model.TimeClockEvent{
		EventUUID:    uuid.NewString(),
		UserID:       "user-1",
		JobID:        "job-1",
		Type:         model.ClockIn,
		TimestampUTC: time.Now().UTC(),
		DeviceTime:   "2024-05-06T09:00:00+10:00",
		GPS:          model.GPS{Lat: -27.47, Lng: 153.02, AccuracyM: 10},
	}
}

func ok() backendFunc {
	return func(ctx context.Context, e *model.TimeClockEvent) (*v1.SubmitResponse, error) {
		return &v1.SubmitResponse{StatusCode: http.StatusOK}, nil
	}
}

func failing(err error) backendFunc {
	return func(ctx context.Context, e *model.TimeClockEvent) (*v1.SubmitResponse, error) {
		return nil, err
	}
}

func status(t *testing.T, s *store.Store, st *state.Store, id string) (model.EventStatus, model.EventStatus) {
	t.Helper()
	rec, err := s.GetTimeEvent(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	entry, found := st.Event(id)
	require.True(t, found)
	return rec.Status, entry.Status
}

func TestSubmit_Online(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	st := state.NewStore()
	e := testEvent()

	backend := backendFunc(func(ctx context.Context, got *model.TimeClockEvent) (*v1.SubmitResponse, error) {
		rec, err := s.GetTimeEvent(ctx, got.EventUUID)
		require.NoError(t, err)
		require.NotNil(t, rec, "persisted before the network call")
		assert.Equal(t, model.StatusPending, rec.Status)

		entry, found := st.Event(got.EventUUID)
		require.True(t, found, "state updated before the network call")
		assert.Equal(t, model.StatusPending, entry.Status)
		return &v1.SubmitResponse{StatusCode: http.StatusCreated}, nil
	})

	sub := NewSubmitter(s, backend, st, netState(true), nil, SubmitterOptions{}, testLogger())
	res, err := sub.Submit(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSynced, res.Status)
	assert.False(t, res.Queued)

	durable, memory := status(t, s, st, e.EventUUID)
	assert.Equal(t, model.StatusSynced, durable)
	assert.Equal(t, model.StatusSynced, memory)
	assert.False(t, sub.IsSubmitting())
}

func TestSubmit_OfflineIsQueued(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	st := state.NewStore()
	reg := &fakeRegistrar{}
	e := testEvent()

	sub := NewSubmitter(s, failing(errors.New("dial tcp: connection refused")), st, netState(false), reg, SubmitterOptions{}, testLogger())
	res, err := sub.Submit(ctx, e)
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Equal(t, model.StatusPending, res.Status)

	durable, memory := status(t, s, st, e.EventUUID)
	assert.Equal(t, model.StatusPending, durable)
	assert.Equal(t, model.StatusPending, memory)
	assert.Equal(t, []string{replay.DefaultSyncTag}, reg.tags)
}

func TestSubmit_NotQueued(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	st := state.NewStore()
	reg := &fakeRegistrar{}
	e := testEvent()

	cause := fmt.Errorf("%w: %w", replay.ErrNotQueued, errors.New("dial tcp: connection refused"))
	sub := NewSubmitter(s, failing(cause), st, netState(false), reg, SubmitterOptions{}, testLogger())
	res, err := sub.Submit(ctx, e)
	require.Error(t, err)
	assert.ErrorIs(t, err, replay.ErrNotQueued)
	assert.False(t, res.Queued)
	assert.Equal(t, model.StatusPending, res.Status)

	durable, memory := status(t, s, st, e.EventUUID)
	assert.Equal(t, model.StatusPending, durable, "left for a resubmit")
	assert.Equal(t, model.StatusPending, memory)
	assert.Empty(t, reg.tags)
}

func TestSubmit_CallerCancelsAfterAck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := openTestStore(t)
	st := state.NewStore()
	e := testEvent()

	backend := backendFunc(func(ctx context.Context, got *model.TimeClockEvent) (*v1.SubmitResponse, error) {
		cancel()
		return &v1.SubmitResponse{StatusCode: http.StatusCreated}, nil
	})
	sub := NewSubmitter(s, backend, st, netState(true), nil, SubmitterOptions{}, testLogger())
	res, err := sub.Submit(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSynced, res.Status)

	durable, memory := status(t, s, st, e.EventUUID)
	assert.Equal(t, model.StatusSynced, durable)
	assert.Equal(t, model.StatusSynced, memory)
}

func TestSubmit_OnlineFailure(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		online bool
		err    error
	}{
		{"Transport error while online", true, errors.New("connection reset")},
		{"Server error while online", true, &v1.HTTPError{Method: "POST", Path: "/time/clock-in", StatusCode: 500}},
		{"Server answered even though flagged offline", false, &v1.HTTPError{Method: "POST", Path: "/time/clock-in", StatusCode: 422}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openTestStore(t)
			st := state.NewStore()
			reg := &fakeRegistrar{}
			e := testEvent()

			sub := NewSubmitter(s, failing(tt.err), st, netState(tt.online), reg, SubmitterOptions{}, testLogger())
			res, err := sub.Submit(ctx, e)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.err))
			assert.Equal(t, model.StatusFailed, res.Status)

			durable, memory := status(t, s, st, e.EventUUID)
			assert.Equal(t, model.StatusFailed, durable, "failed records are kept")
			assert.Equal(t, model.StatusFailed, memory)
			assert.Empty(t, reg.tags)
		})
	}
}

func TestSubmit_QueuedByWorker(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	st := state.NewStore()
	reg := &fakeRegistrar{}
	e := testEvent()

	backend := backendFunc(func(ctx context.Context, e *model.TimeClockEvent) (*v1.SubmitResponse, error) {
		return &v1.SubmitResponse{StatusCode: http.StatusAccepted, Queued: true}, nil
	})
	sub := NewSubmitter(s, backend, st, netState(true), reg, SubmitterOptions{SyncTag: "custom"}, testLogger())
	res, err := sub.Submit(ctx, e)
	require.NoError(t, err)
	assert.True(t, res.Queued)

	durable, memory := status(t, s, st, e.EventUUID)
	assert.Equal(t, model.StatusPending, durable)
	assert.Equal(t, model.StatusPending, memory)
	assert.Equal(t, []string{"custom"}, reg.tags)
}

func TestSubmit_Encryption(t *testing.T) {
	ctx := context.Background()
	key, err := security.DeriveUserKey("user-1")
	require.NoError(t, err)

	t.Run("Key present", func(t *testing.T) {
		s := openTestStore(t)
		st := state.NewStore()
		st.SetEncryptionKey(key)
		e := testEvent()

		sub := NewSubmitter(s, ok(), st, netState(true), nil, SubmitterOptions{Encrypt: true}, testLogger())
		_, err := sub.Submit(ctx, e)
		require.NoError(t, err)

		rec, err := s.GetTimeEvent(ctx, e.EventUUID)
		require.NoError(t, err)
		assert.True(t, rec.Encrypted())
		assert.Nil(t, rec.Payload)

		got, err := store.DecodeRecord(rec, key)
		require.NoError(t, err)
		assert.Equal(t, e.EventUUID, got.EventUUID)
	})

	t.Run("No key", func(t *testing.T) {
		s := openTestStore(t)
		e := testEvent()

		sub := NewSubmitter(s, ok(), state.NewStore(), netState(true), nil, SubmitterOptions{Encrypt: true}, testLogger())
		_, err := sub.Submit(ctx, e)
		require.NoError(t, err)

		rec, err := s.GetTimeEvent(ctx, e.EventUUID)
		require.NoError(t, err)
		assert.False(t, rec.Encrypted())
		assert.NotNil(t, rec.Payload)
	})
}

func TestSubmit_MemoryOnly(t *testing.T) {
	st := state.NewStore()
	e := testEvent()

	sub := NewSubmitter(nil, ok(), st, netState(true), nil, SubmitterOptions{}, testLogger())
	res, err := sub.Submit(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSynced, res.Status)

	entry, found := st.Event(e.EventUUID)
	require.True(t, found)
	assert.Equal(t, model.StatusSynced, entry.Status)
}

func TestSubmit_OneAtATime(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	backend := backendFunc(func(ctx context.Context, e *model.TimeClockEvent) (*v1.SubmitResponse, error) {
		close(entered)
		<-release
		return &v1.SubmitResponse{StatusCode: http.StatusOK}, nil
	})
	sub := NewSubmitter(nil, backend, state.NewStore(), netState(true), nil, SubmitterOptions{}, testLogger())

	done := make(chan error, 1)
	go func() {
		_, err := sub.Submit(context.Background(), testEvent())
		done <- err
	}()
	<-entered

	assert.True(t, sub.IsSubmitting())
	_, err := sub.Submit(context.Background(), testEvent())
	assert.ErrorIs(t, err, ErrSubmissionInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, sub.IsSubmitting())
}

func TestHandleNotification(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		n    func(id string) replay.Notification
		want model.EventStatus
	}{
		{"Replayed and accepted", func(id string) replay.Notification {
			return replay.Notification{Type: replay.NotificationReplayed, EventUUID: id, StatusCode: http.StatusOK}
		}, model.StatusSynced},
		{"Replayed and rejected", func(id string) replay.Notification {
			return replay.Notification{Type: replay.NotificationReplayed, EventUUID: id, StatusCode: http.StatusBadRequest}
		}, model.StatusFailed},
		{"Expired", func(id string) replay.Notification {
			return replay.Notification{Type: replay.NotificationExpired, EventUUID: id}
		}, model.StatusFailed},
		{"Activated", func(id string) replay.Notification {
			return replay.Notification{Type: replay.NotificationActivated}
		}, model.StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openTestStore(t)
			st := state.NewStore()
			e := testEvent()
			sub := NewSubmitter(s, failing(errors.New("offline")), st, netState(false), nil, SubmitterOptions{}, testLogger())
			_, err := sub.Submit(ctx, e)
			require.NoError(t, err)

			sub.HandleNotification(ctx, tt.n(e.EventUUID))

			durable, memory := status(t, s, st, e.EventUUID)
			assert.Equal(t, tt.want, durable)
			assert.Equal(t, tt.want, memory)
		})
	}
}

// service

type fakeJobs struct {
	jobs []model.Job
	err  error
}

func (f *fakeJobs) List(ctx context.Context) ([]model.Job, error) {
	return f.jobs, f.err
}

var site = model.Job{
	ID:              "job-1",
	Name:            "Warehouse",
	Active:          true,
	GeofenceCenter:  model.LatLng{Lat: -27.4698, Lng: 153.0251},
	GeofenceRadiusM: 150,
	AllowedHours:    model.AllowedHours{Start: "06:00", End: "18:00"},
}

type serviceFixture struct {
	svc   *Service
	store *store.Store
	state *state.Store
	net   *fakeNet
	calls *atomic.Int32
}

func newServiceFixture(t *testing.T, backend backendFunc) *serviceFixture {
	t.Helper()
	s := openTestStore(t)
	st := state.NewStore()
	net := netState(true)
	calls := &atomic.Int32{}
	counted := backendFunc(func(ctx context.Context, e *model.TimeClockEvent) (*v1.SubmitResponse, error) {
		calls.Add(1)
		return backend(ctx, e)
	})

	require.NoError(t, s.CacheJobs(context.Background(), []model.Job{
		site,
		{ID: "job-2", Name: "Closed site", Active: false},
	}))

	sub := NewSubmitter(s, counted, st, net, nil, SubmitterOptions{Encrypt: true}, testLogger())
	svc := NewService("user-1", ServiceDeps{
		Builder:   event.NewBuilder(event.Device{UserAgent: "test", Language: "en-AU"}),
		Validator: event.NewValidator(100),
		Submitter: sub,
		State:     st,
		Jobs:      s,
		Remote:    &fakeJobs{jobs: []model.Job{site}},
		Pending:   s,
		Net:       net,
	}, testLogger())
	svc.Now = func() time.Time { return time.Date(2024, 5, 6, 9, 0, 0, 0, time.FixedZone("AEST", 10*3600)) }

	st.SetPermission(model.PermissionGranted)
	st.SetGeoposition(&model.GPS{Lat: -27.4698, Lng: 153.0251, AccuracyM: 12})

	return &serviceFixture{svc: svc, store: s, state: st, net: net, calls: calls}
}

func TestHandleAction(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, ok())
	f.svc.InitEncryption(true)

	res, err := f.svc.HandleAction(ctx, ActionInput{Type: model.ClockIn, JobID: "job-1", SpoofCheckPassed: true})
	require.NoError(t, err)
	assert.Equal(t, model.StatusSynced, res.Status)

	rec, err := f.store.GetTimeEvent(ctx, res.EventUUID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.Encrypted())

	entry, found := f.state.Event(res.EventUUID)
	require.True(t, found)
	assert.Equal(t, "user-1", entry.Event.UserID)
	assert.Equal(t, "2024-05-06T09:00:00+10:00", entry.Event.DeviceTime)
	assert.Equal(t, "granted", entry.Event.AntiFraud.Permissions[model.PermissionGeolocation])
	assert.True(t, entry.Event.Network.Online)
}

func TestHandleAction_Rejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		prepare func(f *serviceFixture)
		input   ActionInput
		wantErr error
	}{
		{
			name:    "Permission denied",
			prepare: func(f *serviceFixture) { f.state.SetPermission(model.PermissionDenied) },
			input:   ActionInput{Type: model.ClockIn, JobID: "job-1"},
			wantErr: ErrPermissionDenied,
		},
		{
			name:    "No position",
			prepare: func(f *serviceFixture) { f.state.SetGeoposition(nil) },
			input:   ActionInput{Type: model.ClockIn, JobID: "job-1"},
			wantErr: ErrNoPosition,
		},
		{
			name:    "Unknown job",
			input:   ActionInput{Type: model.ClockIn, JobID: "job-9"},
			wantErr: ErrJobNotFound,
		},
		{
			name:    "Inactive job",
			input:   ActionInput{Type: model.ClockIn, JobID: "job-2"},
			wantErr: ErrJobInactive,
		},
		{
			name: "Poor accuracy",
			prepare: func(f *serviceFixture) {
				f.state.SetGeoposition(&model.GPS{Lat: -27.4698, Lng: 153.0251, AccuracyM: 150})
			},
			input:   ActionInput{Type: model.ClockIn, JobID: "job-1"},
			wantErr: event.ErrValidation,
		},
		{
			name: "Outside geofence",
			prepare: func(f *serviceFixture) {
				f.state.SetGeoposition(&model.GPS{Lat: -27.50, Lng: 153.0251, AccuracyM: 10})
			},
			input:   ActionInput{Type: model.ClockIn, JobID: "job-1"},
			wantErr: event.ErrValidation,
		},
		{
			name: "Outside allowed hours",
			prepare: func(f *serviceFixture) {
				f.svc.Now = func() time.Time { return time.Date(2024, 5, 6, 20, 0, 0, 0, time.UTC) }
			},
			input:   ActionInput{Type: model.ClockIn, JobID: "job-1"},
			wantErr: event.ErrValidation,
		},
		{
			name:    "Unknown action",
			input:   ActionInput{Type: "nap", JobID: "job-1"},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t, ok())
			if tt.prepare != nil {
				tt.prepare(f)
			}

			_, err := f.svc.HandleAction(ctx, tt.input)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			assert.Equal(t, int32(0), f.calls.Load(), "nothing is sent")
			all, err := f.store.ListTimeEvents(ctx)
			require.NoError(t, err)
			assert.Empty(t, all, "nothing is stored")
		})
	}
}

func TestRehydrate(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, failing(errors.New("offline")))
	f.net.online.Store(false)
	f.svc.InitEncryption(true)

	var ids []string
	for _, typ := range []model.EventType{model.ClockIn, model.BreakStart} {
		res, err := f.svc.HandleAction(ctx, ActionInput{Type: typ, JobID: "job-1"})
		require.NoError(t, err)
		require.True(t, res.Queued)
		ids = append(ids, res.EventUUID)
	}

	// a record written under another user's key cannot be read back
	otherKey, err := security.DeriveUserKey("someone-else")
	require.NoError(t, err)
	stray := testEvent()
	cipher, err := security.EncryptJSON(stray, otherKey)
	require.NoError(t, err)
	require.NoError(t, f.store.PutTimeEvent(ctx, stray, store.PutOptions{Status: model.StatusPending, Cipher: cipher}))

	// simulate a restart: fresh state, same store and user
	fresh := state.NewStore()
	svc := NewService("user-1", ServiceDeps{
		Builder:   event.NewBuilder(event.Device{}),
		Validator: event.NewValidator(100),
		Submitter: NewSubmitter(f.store, ok(), fresh, f.net, nil, SubmitterOptions{}, testLogger()),
		State:     fresh,
		Jobs:      f.store,
		Pending:   f.store,
		Net:       f.net,
	}, testLogger())
	svc.InitEncryption(true)

	n, err := svc.Rehydrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	snap := fresh.Snapshot()
	require.Len(t, snap.PendingEvents, 2)
	assert.Equal(t, ids[1], snap.PendingEvents[0].Event.EventUUID, "newest first")
	assert.Equal(t, ids[0], snap.PendingEvents[1].Event.EventUUID)
}

func TestRefreshJobs(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, ok())

	n, err := f.svc.RefreshJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	jobs, err := f.svc.Jobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-1", jobs[0].ID)

	f.svc.remote = &fakeJobs{err: errors.New("offline")}
	_, err = f.svc.RefreshJobs(ctx)
	assert.Error(t, err)

	jobs, err = f.svc.Jobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 1, "a failed refresh keeps the cache")
}

func TestListenWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newServiceFixture(t, failing(errors.New("offline")))
	f.net.online.Store(false)
	res, err := f.svc.HandleAction(ctx, ActionInput{Type: model.ClockIn, JobID: "job-1"})
	require.NoError(t, err)

	ch := make(chan replay.Notification, 1)
	done := make(chan error, 1)
	go func() { done <- f.svc.ListenWorker(ctx, ch) }()

	ch <- replay.Notification{Type: replay.NotificationReplayed, EventUUID: res.EventUUID, StatusCode: http.StatusOK}
	assert.Eventually(t, func() bool {
		entry, _ := f.state.Event(res.EventUUID)
		return entry.Status == model.StatusSynced
	}, time.Second, 5*time.Millisecond)

	close(ch)
	require.NoError(t, <-done)
}

func TestMemoryJobCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryJobCache()
	require.NoError(t, c.CacheJobs(ctx, []model.Job{{ID: "b", Name: "Yard"}, {ID: "a", Name: "Depot"}}))

	jobs, err := c.GetCachedJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Depot", jobs[0].Name)

	j, err := c.GetCachedJob(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "Yard", j.Name)

	j, err = c.GetCachedJob(ctx, "zzz")
	require.NoError(t, err)
	assert.Nil(t, j)
}

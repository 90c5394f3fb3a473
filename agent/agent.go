// Package agent assembles the punch pipeline, the replay worker and their
// collaborators from configuration.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	v1 "axiapac.com/timeclock/backend/v1"
	"axiapac.com/timeclock/config"
	"axiapac.com/timeclock/core"
	"axiapac.com/timeclock/event"
	"axiapac.com/timeclock/infrastructure/communication"
	"axiapac.com/timeclock/location"
	"axiapac.com/timeclock/model"
	"axiapac.com/timeclock/netstate"
	"axiapac.com/timeclock/pipeline"
	"axiapac.com/timeclock/replay"
	"axiapac.com/timeclock/state"
	"axiapac.com/timeclock/store"
	"axiapac.com/timeclock/utils"
	"golang.org/x/sync/errgroup"
)

var ErrNoUser = errors.New("user.id is required")

type Agent struct {
	Config *config.Config
	Log    *slog.Logger

	// Store is nil when the on-device database could not be opened.
	Store     *store.Store
	State     *state.Store
	Worker    *replay.Worker
	Monitor   *netstate.Monitor
	Location  location.Provider
	Client    *v1.Client
	Submitter *pipeline.Submitter
	Service   *pipeline.Service
}

// New wires an agent. A database that cannot be opened degrades the agent to
// memory-only operation instead of failing.
func New(cfg *config.Config, log *slog.Logger) (*Agent, error) {
	if cfg.User.ID == "" {
		return nil, ErrNoUser
	}

	a := &Agent{Config: cfg, Log: log, State: state.NewStore()}

	st, err := store.Open(cfg.Store.Path, core.ParseLogLevel(cfg.Store.LogLevel))
	if err != nil {
		log.Warn("local store unavailable, running memory-only", "path", cfg.Store.Path, "error", err)
	} else {
		a.Store = st
	}

	direct := &http.Client{Timeout: cfg.API.Timeout}
	pageClient := direct

	var (
		events    pipeline.EventStore
		pending   pipeline.PendingSource
		jobs      pipeline.JobCache
		registrar pipeline.SyncRegistrar
		poster    netstate.Poster
	)
	jobs = pipeline.NewMemoryJobCache()
	if a.Store != nil {
		events, pending, jobs = a.Store, a.Store, a.Store

		var notifier replay.Notifier
		if slack := communication.FromConfig(cfg.Notify); slack != nil {
			notifier = slack
		}
		a.Worker = replay.NewWorker(a.Store, direct, notifier, log, replay.Options{
			Retention:   cfg.Replay.Retention,
			MaxAttempts: cfg.Replay.MaxAttempts,
			SkipWaiting: cfg.Replay.SkipWaiting,
			SyncTag:     cfg.Replay.SyncTag,
		})
		registrar, poster = a.Worker, a.Worker
		pageClient = &http.Client{
			Timeout:   cfg.API.Timeout,
			Transport: a.Worker.Interceptor(http.DefaultTransport, cfg.Replay.SyncTag),
		}
	}

	a.Client = v1.NewClient(cfg.API.BaseURL, cfg.API.Token, pageClient)
	a.Monitor = netstate.NewMonitor(cfg.API.BaseURL+"/ping", cfg.Replay.ProbeInterval, cfg.Replay.SyncTag, direct, poster, log)
	a.Location = NewLocationProvider(cfg.Location)

	a.Submitter = pipeline.NewSubmitter(events, a.Client.TimeClock, a.State, a.Monitor, registrar, pipeline.SubmitterOptions{
		Encrypt: cfg.Encryption.Enabled,
		SyncTag: cfg.Replay.SyncTag,
	}, log)

	builder := event.NewBuilder(event.Device{
		UserAgent: cfg.Device.UserAgent,
		Platform:  cfg.Device.Platform,
		Language:  cfg.Device.Language,
		Canvas:    cfg.Device.Canvas,
		Screen: event.Screen{
			Width:      cfg.Device.ScreenWidth,
			Height:     cfg.Device.ScreenHeight,
			ColorDepth: cfg.Device.ColorDepth,
		},
	})

	a.Service = pipeline.NewService(cfg.User.ID, pipeline.ServiceDeps{
		Builder:   builder,
		Validator: event.NewValidator(cfg.Validation.MaxAccuracyM),
		Submitter: a.Submitter,
		State:     a.State,
		Jobs:      jobs,
		Remote:    a.Client.Jobs,
		Pending:   pending,
		Net:       a.Monitor,
	}, log)

	return a, nil
}

// NewLocationProvider returns the fixed-position provider described by cfg.
func NewLocationProvider(cfg config.LocationConfig) *location.Static {
	gps := model.GPS{Lat: cfg.Lat, Lng: cfg.Lng, AccuracyM: cfg.AccuracyM}
	if cfg.Address != "" {
		gps.Address = utils.Ptr(cfg.Address)
	}
	return &location.Static{GPS: gps, State: model.PermissionState(cfg.Permission)}
}

// Start prepares the session: key, worker install, pending rehydration, first
// location fix and connectivity probe.
func (a *Agent) Start(ctx context.Context) error {
	a.Service.InitEncryption(a.Config.Encryption.Enabled)
	if a.Worker != nil {
		a.Worker.Install()
	}
	if _, err := a.Service.Rehydrate(ctx); err != nil {
		a.Log.Warn("rehydrate failed", "error", err)
	}
	location.Poll(ctx, a.Location, a.State, a.Log)
	a.Monitor.Check(ctx)
	return nil
}

// Run keeps the worker, the connectivity monitor, the location watcher and the
// notification listener alive until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.Worker != nil {
		g.Go(func() error { return a.Worker.Run(gctx) })
		g.Go(func() error { return a.Service.ListenWorker(gctx, a.Worker.Notifications()) })
	}
	g.Go(func() error { return a.Monitor.Run(gctx) })
	g.Go(func() error {
		return location.Watch(gctx, a.Location, a.Config.Location.PollInterval, a.State, a.Log)
	})
	g.Go(func() error {
		a.refreshJobs(gctx)
		ticker := time.NewTicker(15 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				a.refreshJobs(gctx)
			}
		}
	})

	return g.Wait()
}

func (a *Agent) refreshJobs(ctx context.Context) {
	if !a.Monitor.Online() {
		return
	}
	n, err := a.Service.RefreshJobs(ctx)
	if err != nil {
		a.Log.Warn("job refresh failed", "error", err)
		return
	}
	a.Log.Info("jobs refreshed", "count", n)
}

// Punch runs one user action. The job cache is refreshed first when online.
func (a *Agent) Punch(ctx context.Context, action model.EventType, jobID string) (*pipeline.Result, error) {
	a.refreshJobs(ctx)
	return a.Service.HandleAction(ctx, pipeline.ActionInput{Type: action, JobID: jobID, SpoofCheckPassed: true})
}

// Sync replays the queue once and applies the outcomes to local status.
func (a *Agent) Sync(ctx context.Context) (replay.ReplayResult, error) {
	if a.Worker == nil {
		return replay.ReplayResult{}, errors.New("sync needs the local store")
	}
	a.Worker.Install()
	res, err := a.Worker.Replay(ctx)
	a.drainNotifications(ctx)
	return res, err
}

func (a *Agent) drainNotifications(ctx context.Context) {
	for {
		select {
		case n := <-a.Worker.Notifications():
			a.Submitter.HandleNotification(ctx, n)
		default:
			return
		}
	}
}

// Status is a point-in-time report for the status command.
type Status struct {
	Online       bool                      `json:"online"`
	Lifecycle    replay.Lifecycle          `json:"lifecycle,omitempty"`
	Counts       map[model.EventStatus]int `json:"counts"`
	Queued       int                       `json:"queued"`
	TodaysTotals state.Totals              `json:"todaysTotals"`
	Live         state.LiveMinutes         `json:"live"`
	Snapshot     state.Snapshot            `json:"state"`
}

func (a *Agent) Status(ctx context.Context) (*Status, error) {
	s := &Status{
		Online:   a.Monitor.Online(),
		Counts:   map[model.EventStatus]int{},
		Snapshot: a.State.Snapshot(),
	}
	if a.Worker != nil {
		s.Lifecycle = a.Worker.Lifecycle()
	}
	if a.Store == nil {
		s.TodaysTotals, s.Live = s.Snapshot.TodaysTotals, s.Snapshot.Live
		return s, nil
	}

	records, err := a.Store.ListTimeEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	queued, err := a.Store.GetQueueEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	s.Queued = len(queued)

	today := utils.StartOfDay(time.Now())
	key := a.State.EncryptionKey()
	for status, group := range utils.GroupBy(records, func(r model.TimeEventRecord) model.EventStatus { return r.Status }) {
		s.Counts[status] = len(group)
	}

	var events []model.TimeClockEvent
	for i := range records {
		evt, err := store.DecodeRecord(&records[i], key)
		if err != nil {
			continue
		}
		if !evt.TimestampUTC.Before(today) {
			events = append(events, *evt)
		}
	}
	s.TodaysTotals = state.ComputeTotalsFromEvents(events)
	s.Live = state.ComputeLiveMinutes(events)
	return s, nil
}

func (a *Agent) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

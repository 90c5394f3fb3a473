package replay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"axiapac.com/timeclock/model"
)

const DefaultSyncTag = "time-clock-sync"

// Queue is the durable sync_queue the worker owns.
type Queue interface {
	WriteQueueRequest(ctx context.Context, eventUUID string, req model.QueuedRequest) error
	MarkQueueAttempt(ctx context.Context, eventUUID string) error
	RemoveFromQueue(ctx context.Context, eventUUID string) error
	GetQueueEntries(ctx context.Context) ([]model.SyncQueueEntry, error)
	PruneQueue(ctx context.Context, cutoff time.Time) ([]model.SyncQueueEntry, error)
}

// Notifier receives operator alerts.
type Notifier interface {
	Error(message string) error
}

type Options struct {
	// Retention drops entries queued longer ago than this. Zero keeps them forever.
	Retention time.Duration
	// MaxAttempts drops entries after this many failed replays. Zero means no cap.
	MaxAttempts int
	SkipWaiting bool
	// SyncTag is the tag the worker registers for queued punches.
	SyncTag string
}

// ReplayResult summarises one pass over the queue.
type ReplayResult struct {
	Replayed  int
	Expired   int
	Remaining int
}

// Worker is the background replay actor. It shares nothing with the
// foreground except the durable queue: commands arrive through Post and
// outcomes leave through Notifications.
type Worker struct {
	queue    Queue
	client   *http.Client
	notifier Notifier
	log      *slog.Logger
	opts     Options

	inbox         chan Message
	notifications chan Notification

	mu        sync.Mutex
	lifecycle Lifecycle
	tags      map[string]bool

	replayMu sync.Mutex
	now      func() time.Time
}

// NewWorker creates a worker. client must talk to the network directly, never
// through the worker's own Interceptor. notifier may be nil.
func NewWorker(queue Queue, client *http.Client, notifier Notifier, log *slog.Logger, opts Options) *Worker {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.SyncTag == "" {
		opts.SyncTag = DefaultSyncTag
	}
	return &Worker{
		queue:         queue,
		client:        client,
		notifier:      notifier,
		log:           log.With("component", "replay"),
		opts:          opts,
		inbox:         make(chan Message, 16),
		notifications: make(chan Notification, 64),
		lifecycle:     LifecycleInstalling,
		tags:          map[string]bool{},
		now:           time.Now,
	}
}

// Notifications delivers worker outcomes. Notifications are dropped when
// nobody is reading.
func (w *Worker) Notifications() <-chan Notification {
	return w.notifications
}

// Post hands a message to the worker.
func (w *Worker) Post(ctx context.Context, msg Message) error {
	select {
	case w.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterSync asks for tag to be replayed the next time the platform fires it.
func (w *Worker) RegisterSync(ctx context.Context, tag string) error {
	return w.Post(ctx, Message{Type: MessageRegisterSync, Tag: tag})
}

func (w *Worker) Lifecycle() Lifecycle {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lifecycle
}

func (w *Worker) Active() bool {
	return w.Lifecycle() == LifecycleActive
}

// SyncRegistered reports whether tag is waiting to be fired.
func (w *Worker) SyncRegistered(tag string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tags[tag]
}

// pendingSync reports whether tag should be replayed now. The worker's own tag
// counts as registered while the durable queue holds entries, so queued punches
// survive a restart that loses the in-memory registration.
func (w *Worker) pendingSync(ctx context.Context, tag string) bool {
	if w.SyncRegistered(tag) {
		return true
	}
	if tag != w.opts.SyncTag {
		return false
	}
	entries, err := w.queue.GetQueueEntries(ctx)
	if err != nil {
		w.log.Warn("read sync queue failed", "tag", tag, "error", err)
		return false
	}
	return len(entries) > 0
}

// Install runs the install step. With SkipWaiting the worker activates at once.
func (w *Worker) Install() {
	w.mu.Lock()
	if w.lifecycle != LifecycleInstalling {
		w.mu.Unlock()
		return
	}
	w.lifecycle = LifecycleWaiting
	w.mu.Unlock()

	w.log.Info("worker installed", "skip_waiting", w.opts.SkipWaiting)
	if w.opts.SkipWaiting {
		w.activate()
	}
}

func (w *Worker) activate() {
	w.mu.Lock()
	if w.lifecycle == LifecycleActive {
		w.mu.Unlock()
		return
	}
	w.lifecycle = LifecycleActive
	w.mu.Unlock()

	w.log.Info("worker activated")
	w.notify(Notification{Type: NotificationActivated})
}

// Run installs the worker and processes messages until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	w.Install()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopped")
			return nil
		case msg := <-w.inbox:
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg Message) {
	switch msg.Type {
	case MessageSkipWaiting:
		w.activate()

	case MessageRegisterSync:
		w.mu.Lock()
		w.tags[msg.Tag] = true
		w.mu.Unlock()
		w.log.Debug("sync registered", "tag", msg.Tag)

	case MessageSync:
		if !w.Active() || !w.pendingSync(ctx, msg.Tag) {
			w.log.Debug("sync ignored", "tag", msg.Tag, "lifecycle", w.Lifecycle())
			return
		}
		res, err := w.Replay(ctx)
		if err != nil {
			w.log.Warn("background sync incomplete", "tag", msg.Tag, "remaining", res.Remaining, "error", err)
			return
		}
		w.mu.Lock()
		delete(w.tags, msg.Tag)
		w.mu.Unlock()

	case MessageReplayQueue:
		if !w.Active() {
			w.log.Debug("replay ignored, worker not active")
			return
		}
		if _, err := w.Replay(ctx); err != nil {
			w.log.Warn("replay incomplete", "error", err)
		}

	default:
		w.log.Warn("unknown message", "type", msg.Type)
	}
}

// Replay evicts expired entries, then sends the rest oldest first. It stops at
// the first entry that fails and returns that failure.
func (w *Worker) Replay(ctx context.Context) (ReplayResult, error) {
	w.replayMu.Lock()
	defer w.replayMu.Unlock()

	var result ReplayResult

	expired, err := w.evict(ctx)
	result.Expired = expired
	if err != nil {
		return result, err
	}

	entries, err := w.queue.GetQueueEntries(ctx)
	if err != nil {
		return result, err
	}

	for i, entry := range entries {
		status, err := w.send(ctx, entry.Request.Data())
		if err == nil && retryable(status) {
			err = fmt.Errorf("server answered %d", status)
		}
		if err != nil {
			if markErr := w.queue.MarkQueueAttempt(ctx, entry.EventUUID); markErr != nil {
				w.log.Warn("mark queue attempt failed", "event_uuid", entry.EventUUID, "error", markErr)
			}
			result.Remaining = len(entries) - i
			return result, fmt.Errorf("replay %s: %w", entry.EventUUID, err)
		}

		if err := w.queue.RemoveFromQueue(ctx, entry.EventUUID); err != nil {
			result.Remaining = len(entries) - i
			return result, err
		}
		result.Replayed++
		w.log.Info("request replayed", "event_uuid", entry.EventUUID, "status", status, "attempts", entry.Attempts+1)
		w.notify(Notification{
			Type:       NotificationReplayed,
			EventUUID:  entry.EventUUID,
			StatusCode: status,
			Attempts:   entry.Attempts + 1,
		})
	}
	return result, nil
}

func (w *Worker) evict(ctx context.Context) (int, error) {
	var expired []model.SyncQueueEntry
	reasons := map[string]string{}

	if w.opts.Retention > 0 {
		pruned, err := w.queue.PruneQueue(ctx, w.now().Add(-w.opts.Retention))
		if err != nil {
			return 0, err
		}
		for _, e := range pruned {
			reasons[e.EventUUID] = fmt.Sprintf("queued longer than %s", w.opts.Retention)
		}
		expired = append(expired, pruned...)
	}

	if w.opts.MaxAttempts > 0 {
		entries, err := w.queue.GetQueueEntries(ctx)
		if err != nil {
			return len(expired), err
		}
		for _, e := range entries {
			if e.Attempts < w.opts.MaxAttempts {
				continue
			}
			if err := w.queue.RemoveFromQueue(ctx, e.EventUUID); err != nil {
				return len(expired), err
			}
			reasons[e.EventUUID] = fmt.Sprintf("gave up after %d attempts", e.Attempts)
			expired = append(expired, e)
		}
	}

	for _, e := range expired {
		reason := reasons[e.EventUUID]
		w.log.Warn("queued request expired", "event_uuid", e.EventUUID, "attempts", e.Attempts, "reason", reason)
		w.notify(Notification{Type: NotificationExpired, EventUUID: e.EventUUID, Attempts: e.Attempts, Reason: reason})
		if w.notifier != nil {
			msg := fmt.Sprintf("Time clock event %s was dropped from the sync queue undelivered: %s.", e.EventUUID, reason)
			if err := w.notifier.Error(msg); err != nil {
				w.log.Warn("expiry alert failed", "event_uuid", e.EventUUID, "error", err)
			}
		}
	}
	return len(expired), nil
}

func (w *Worker) send(ctx context.Context, queued model.QueuedRequest) (int, error) {
	req, err := http.NewRequestWithContext(ctx, queued.Method, queued.URL, bytes.NewReader(queued.Body))
	if err != nil {
		return 0, err
	}
	for k, v := range queued.Headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// enqueue stores a failed punch request and registers background sync for it.
func (w *Worker) enqueue(ctx context.Context, eventUUID string, req model.QueuedRequest, tag string) error {
	if err := w.queue.WriteQueueRequest(ctx, eventUUID, req); err != nil {
		return err
	}

	select {
	case w.inbox <- Message{Type: MessageRegisterSync, Tag: tag}:
	default:
		w.log.Warn("inbox full, sync registration dropped", "tag", tag)
	}
	return nil
}

func (w *Worker) notify(n Notification) {
	select {
	case w.notifications <- n:
	default:
		w.log.Warn("notification dropped", "type", n.Type, "event_uuid", n.EventUUID)
	}
}

// retryable reports whether a response status means the request should stay
// queued.
func retryable(status int) bool {
	return status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500
}

var errNotPunch = errors.New("not a punch request")

// ErrNotQueued marks a failed punch request that could not be written to the
// sync queue. Only a resubmit can deliver it.
var ErrNotQueued = errors.New("punch request not queued")

package netstate

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"axiapac.com/timeclock/replay"
)

// Poster is the worker's message inbox.
type Poster interface {
	Post(ctx context.Context, msg replay.Message) error
}

// Monitor tracks whether the API is reachable. Any HTTP answer counts as
// online; only transport failures count as offline.
type Monitor struct {
	URL      string
	Interval time.Duration
	SyncTag  string

	client *http.Client
	worker Poster
	log    *slog.Logger

	mu      sync.RWMutex
	online  bool
	checked bool
}

// NewMonitor probes url. client should bypass the replay interceptor.
func NewMonitor(url string, interval time.Duration, syncTag string, client *http.Client, worker Poster, log *slog.Logger) *Monitor {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Monitor{
		URL:      url,
		Interval: interval,
		SyncTag:  syncTag,
		client:   client,
		worker:   worker,
		log:      log.With("component", "netstate"),
	}
}

// Online reports the last probe result. Before the first probe it is false.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Check probes once and records the result. On an offline to online change it
// fires the background-sync tag on the worker.
func (m *Monitor) Check(ctx context.Context) bool {
	online := m.probe(ctx)

	m.mu.Lock()
	wasOnline, checked := m.online, m.checked
	m.online, m.checked = online, true
	m.mu.Unlock()

	if checked && wasOnline == online {
		return online
	}
	m.log.Info("connectivity changed", "online", online)

	if online && m.worker != nil {
		if err := m.worker.Post(ctx, replay.Message{Type: replay.MessageSync, Tag: m.SyncTag}); err != nil {
			m.log.Warn("fire sync failed", "tag", m.SyncTag, "error", err)
		}
	}
	return online
}

// Run probes every Interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	m.Check(ctx)

	interval := m.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.URL, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		m.log.Debug("probe failed", "url", m.URL, "error", err)
		return false
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return true
}

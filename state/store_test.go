package state

import (
	"sync"
	"testing"
	"time"

	"axiapac.com/timeclock/model"
	"axiapac.com/timeclock/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	s := NewStore()
	s.Now = func() time.Time { return day.Add(18 * time.Hour) }
	return s
}

func uuids(entries []EventEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Event.EventUUID
	}
	return out
}

func TestUpsertPendingEvent(t *testing.T) {
	s := newTestStore()
	a := at(9, 0, model.ClockIn)
	b := at(12, 0, model.BreakStart)
	c := at(12, 30, model.BreakEnd)

	s.UpsertPendingEvent(a, model.StatusPending)
	s.UpsertPendingEvent(b, model.StatusPending)
	s.UpsertPendingEvent(c, model.StatusPending)
	assert.Equal(t, []string{c.EventUUID, b.EventUUID, a.EventUUID}, uuids(s.Snapshot().PendingEvents))

	// replacing keeps the position
	s.UpsertPendingEvent(b, model.StatusSynced)
	snap := s.Snapshot()
	assert.Equal(t, []string{c.EventUUID, b.EventUUID, a.EventUUID}, uuids(snap.PendingEvents))
	assert.Equal(t, model.StatusSynced, snap.PendingEvents[1].Status)
}

func TestMarkEventStatus(t *testing.T) {
	s := newTestStore()
	e := at(9, 0, model.ClockIn)
	s.UpsertPendingEvent(e, model.StatusPending)

	assert.False(t, s.MarkEventStatus("unknown", model.StatusSynced))
	assert.True(t, s.MarkEventStatus(e.EventUUID, model.StatusFailed))
	assert.True(t, s.MarkEventStatus(e.EventUUID, model.StatusSynced))
	assert.False(t, s.MarkEventStatus(e.EventUUID, model.StatusPending))

	got, ok := s.Event(e.EventUUID)
	require.True(t, ok)
	assert.Equal(t, model.StatusSynced, got.Status)
}

func TestTotalsFollowEvents(t *testing.T) {
	s := newTestStore()
	for _, e := range []model.TimeClockEvent{
		at(9, 0, model.ClockIn), at(12, 0, model.BreakStart), at(12, 30, model.BreakEnd), at(17, 0, model.ClockOut),
	} {
		s.UpsertPendingEvent(e, model.StatusPending)
	}

	// yesterday's punch does not count towards today
	old := at(9, 0, model.ClockIn)
	old.EventUUID = "yesterday"
	old.TimestampUTC = old.TimestampUTC.AddDate(0, 0, -1)
	s.UpsertPendingEvent(old, model.StatusSynced)

	snap := s.Snapshot()
	assert.Equal(t, 480, snap.TodaysTotals.TodaysMinutes)
	assert.Equal(t, 450, snap.Live.Minutes)
	assert.Nil(t, snap.Live.RunningSince)
}

func TestHydrate(t *testing.T) {
	s := newTestStore()
	s.UpsertPendingEvent(at(8, 0, model.ClockIn), model.StatusPending)

	s.Hydrate([]EventEntry{
		{Event: at(9, 0, model.ClockIn), Status: model.StatusPending},
		{Event: at(11, 0, model.ClockOut), Status: model.StatusPending},
	})

	snap := s.Snapshot()
	assert.Len(t, snap.PendingEvents, 2)
	assert.Equal(t, 120, snap.TodaysTotals.TodaysMinutes)
}

func TestAmbientState(t *testing.T) {
	s := newTestStore()
	assert.Equal(t, model.PermissionPrompt, s.Permission())
	assert.Nil(t, s.Geoposition())
	assert.Nil(t, s.EncryptionKey())

	gps := &model.GPS{Lat: 1, Lng: 2, AccuracyM: 3}
	s.SetGeoposition(gps)
	gps.Lat = 99
	assert.Equal(t, 1.0, s.Geoposition().Lat, "state keeps its own copy")

	s.SetPermission(model.PermissionDenied)
	assert.Equal(t, model.PermissionDenied, s.Permission())

	key, err := security.DeriveUserKey("u")
	require.NoError(t, err)
	s.SetEncryptionKey(key)
	assert.Same(t, key, s.EncryptionKey())
	assert.True(t, s.Snapshot().HasEncryptionKey)

	snap := s.Snapshot()
	snap.Geoposition.Lat = 50
	assert.Equal(t, 1.0, s.Geoposition().Lat, "snapshots are copies")
}

func TestSubscribe(t *testing.T) {
	s := newTestStore()

	var mu sync.Mutex
	var got []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, snap)
	})

	s.UpsertPendingEvent(at(9, 0, model.ClockIn), model.StatusPending)
	s.SetPermission(model.PermissionGranted)
	s.SetPermission(model.PermissionGranted) // unchanged, no publish

	mu.Lock()
	require.Len(t, got, 2)
	assert.Len(t, got[0].PendingEvents, 1)
	assert.Equal(t, model.PermissionGranted, got[1].PermissionStatus)
	mu.Unlock()

	unsubscribe()
	s.UpsertPendingEvent(at(10, 0, model.ClockOut), model.StatusPending)

	mu.Lock()
	assert.Len(t, got, 2)
	mu.Unlock()
}

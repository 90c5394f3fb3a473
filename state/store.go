package state

import (
	"sync"
	"time"

	"axiapac.com/timeclock/model"
	"axiapac.com/timeclock/security"
	"axiapac.com/timeclock/utils"
)

// EventEntry is one event known to this session with its last known status.
type EventEntry struct {
	Event  model.TimeClockEvent `json:"event"`
	Status model.EventStatus    `json:"status"`
}

// Snapshot is an immutable copy of the state handed to readers and subscribers.
type Snapshot struct {
	PendingEvents    []EventEntry          `json:"pendingEvents"`
	TodaysTotals     Totals                `json:"todaysTotals"`
	Live             LiveMinutes           `json:"live"`
	Geoposition      *model.GPS            `json:"geoposition,omitempty"`
	PermissionStatus model.PermissionState `json:"permissionStatus"`
	HasEncryptionKey bool                  `json:"hasEncryptionKey"`
}

// Store is the in-memory application state. It has no persistence of its own
// and is rebuilt from the durable store with Hydrate.
type Store struct {
	mu          sync.RWMutex
	events      []EventEntry
	totals      Totals
	live        LiveMinutes
	geoposition *model.GPS
	permission  model.PermissionState
	key         *security.Key

	subMu       sync.Mutex
	nextID      int
	subscribers map[int]func(Snapshot)

	// Now decides which events count towards today's totals.
	Now func() time.Time
}

func NewStore() *Store {
	return &Store{
		permission:  model.PermissionPrompt,
		subscribers: map[int]func(Snapshot){},
		Now:         time.Now,
	}
}

// Subscribe registers fn to receive a snapshot after every mutation. The
// returned function unsubscribes.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *Store) publish() {
	snap := s.Snapshot()

	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]EventEntry, len(s.events))
	copy(events, s.events)

	var gps *model.GPS
	if s.geoposition != nil {
		g := *s.geoposition
		gps = &g
	}

	return Snapshot{
		PendingEvents:    events,
		TodaysTotals:     s.totals,
		Live:             s.live,
		Geoposition:      gps,
		PermissionStatus: s.permission,
		HasEncryptionKey: s.key != nil,
	}
}

// UpsertPendingEvent replaces the entry with the same event_uuid in place, or
// puts a new entry at the front of the list.
func (s *Store) UpsertPendingEvent(event model.TimeClockEvent, status model.EventStatus) {
	s.mu.Lock()
	entry := EventEntry{Event: event, Status: status}
	if existing := utils.Find(s.events, func(e *EventEntry) bool { return e.Event.EventUUID == event.EventUUID }); existing != nil {
		*existing = entry
	} else {
		s.events = append([]EventEntry{entry}, s.events...)
	}
	s.recompute()
	s.mu.Unlock()

	s.publish()
}

// MarkEventStatus updates the status of a known event. It reports false when the
// event is unknown or the transition is not allowed.
func (s *Store) MarkEventStatus(eventUUID string, status model.EventStatus) bool {
	s.mu.Lock()
	existing := utils.Find(s.events, func(e *EventEntry) bool { return e.Event.EventUUID == eventUUID })
	if existing == nil || !existing.Status.CanTransitionTo(status) {
		s.mu.Unlock()
		return false
	}
	existing.Status = status
	s.recompute()
	s.mu.Unlock()

	s.publish()
	return true
}

// Hydrate replaces the event list, e.g. with pending records read at startup.
func (s *Store) Hydrate(entries []EventEntry) {
	s.mu.Lock()
	s.events = make([]EventEntry, len(entries))
	copy(s.events, entries)
	s.recompute()
	s.mu.Unlock()

	s.publish()
}

func (s *Store) SetGeoposition(gps *model.GPS) {
	s.mu.Lock()
	if gps == nil {
		s.geoposition = nil
	} else {
		g := *gps
		s.geoposition = &g
	}
	s.mu.Unlock()

	s.publish()
}

func (s *Store) SetPermission(p model.PermissionState) {
	s.mu.Lock()
	changed := s.permission != p
	s.permission = p
	s.mu.Unlock()

	if changed {
		s.publish()
	}
}

func (s *Store) SetEncryptionKey(key *security.Key) {
	s.mu.Lock()
	s.key = key
	s.mu.Unlock()

	s.publish()
}

func (s *Store) EncryptionKey() *security.Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

func (s *Store) Geoposition() *model.GPS {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.geoposition == nil {
		return nil
	}
	g := *s.geoposition
	return &g
}

func (s *Store) Permission() model.PermissionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permission
}

// Event returns the entry for eventUUID, if known.
func (s *Store) Event(eventUUID string) (EventEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e := utils.Find(s.events, func(e *EventEntry) bool { return e.Event.EventUUID == eventUUID }); e != nil {
		return *e, true
	}
	return EventEntry{}, false
}

// recompute derives totals from today's events. Callers hold mu.
func (s *Store) recompute() {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	today := utils.StartOfDay(now())
	tomorrow := today.AddDate(0, 0, 1)

	todays := utils.Filter(s.events, func(e EventEntry) bool {
		ts := e.Event.TimestampUTC
		return !ts.Before(today) && ts.Before(tomorrow)
	})
	events := utils.Map(todays, func(e EventEntry) model.TimeClockEvent { return e.Event })
	s.totals = ComputeTotalsFromEvents(events)
	s.live = ComputeLiveMinutes(events)
}

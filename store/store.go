package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"axiapac.com/timeclock/core"
	"axiapac.com/timeclock/model"
	"gorm.io/gorm"
)

// Store is the on-device database. It holds three tables: jobs, time_events
// and sync_queue. Every operation runs in its own transaction; nothing spans
// time_events and sync_queue.
type Store struct {
	db *gorm.DB

	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// Open opens (or creates) the SQLite database at path.
func Open(path string, level core.LogLevel) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000"
	}
	db, err := core.OpenDatabase(core.DriverSQLite, dsn, level)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	s, err := New(db)
	if err != nil {
		core.CloseDatabase(db)
		return nil, err
	}
	return s, nil
}

// New wraps an open gorm handle and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&model.Job{}, &model.TimeEventRecord{}, &model.SyncQueueEntry{}); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return core.CloseDatabase(s.db)
}

// stamp returns the current unix millisecond time, never smaller than a
// previously returned value.
func (s *Store) stamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := s.now().UnixMilli()
	if ms < s.last {
		ms = s.last
	}
	s.last = ms
	return ms
}

func (s *Store) tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

package store

import (
	"context"
	"fmt"
	"time"

	"axiapac.com/timeclock/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WriteQueueRequest stores (or replaces) the replay record for eventUUID.
// Replacing resets attempts and queued_at.
func (s *Store) WriteQueueRequest(ctx context.Context, eventUUID string, req model.QueuedRequest) error {
	entry := model.SyncQueueEntry{
		EventUUID: eventUUID,
		Request:   datatypes.NewJSONType(req),
		Attempts:  0,
		QueuedAt:  s.stamp(),
	}
	err := s.tx(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_uuid"}},
			UpdateAll: true,
		}).Create(&entry).Error
	})
	if err != nil {
		return fmt.Errorf("write queue request %s: %w", eventUUID, err)
	}
	return nil
}

// MarkQueueAttempt increments attempts for eventUUID. Absent entries are ignored.
func (s *Store) MarkQueueAttempt(ctx context.Context, eventUUID string) error {
	ts := s.stamp()
	err := s.tx(ctx, func(tx *gorm.DB) error {
		return tx.Model(&model.SyncQueueEntry{}).
			Where("event_uuid = ?", eventUUID).
			Updates(map[string]any{
				"attempts":        gorm.Expr("attempts + 1"),
				"last_attempt_at": ts,
			}).Error
	})
	if err != nil {
		return fmt.Errorf("mark queue attempt %s: %w", eventUUID, err)
	}
	return nil
}

func (s *Store) RemoveFromQueue(ctx context.Context, eventUUID string) error {
	err := s.tx(ctx, func(tx *gorm.DB) error {
		return tx.Where("event_uuid = ?", eventUUID).Delete(&model.SyncQueueEntry{}).Error
	})
	if err != nil {
		return fmt.Errorf("remove from queue %s: %w", eventUUID, err)
	}
	return nil
}

// GetQueueEntries returns the queue oldest first.
func (s *Store) GetQueueEntries(ctx context.Context) ([]model.SyncQueueEntry, error) {
	var entries []model.SyncQueueEntry
	err := s.tx(ctx, func(tx *gorm.DB) error {
		return tx.Order("queued_at ASC, event_uuid ASC").Find(&entries).Error
	})
	if err != nil {
		return nil, fmt.Errorf("get queue entries: %w", err)
	}
	return entries, nil
}

// PruneQueue deletes entries queued before cutoff and returns them.
func (s *Store) PruneQueue(ctx context.Context, cutoff time.Time) ([]model.SyncQueueEntry, error) {
	var pruned []model.SyncQueueEntry
	err := s.tx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("queued_at < ?", cutoff.UnixMilli()).Order("queued_at ASC").Find(&pruned).Error; err != nil {
			return err
		}
		if len(pruned) == 0 {
			return nil
		}
		return tx.Where("queued_at < ?", cutoff.UnixMilli()).Delete(&model.SyncQueueEntry{}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("prune queue: %w", err)
	}
	return pruned, nil
}

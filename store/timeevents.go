package store

import (
	"context"
	"encoding/json"
	"fmt"

	"axiapac.com/timeclock/model"
	"axiapac.com/timeclock/security"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PutOptions struct {
	Status model.EventStatus
	// Cipher, when set, is stored instead of the plaintext payload.
	Cipher *security.CipherPayload
}

// PutTimeEvent inserts or fully replaces the record for event.EventUUID.
func (s *Store) PutTimeEvent(ctx context.Context, event *model.TimeClockEvent, opts PutOptions) error {
	if !opts.Status.Valid() {
		return fmt.Errorf("put time event: invalid status %q", opts.Status)
	}

	ts := s.stamp()
	record := model.TimeEventRecord{
		EventUUID: event.EventUUID,
		Status:    opts.Status,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if opts.Cipher != nil {
		record.PayloadCipher = &opts.Cipher.Cipher
		record.PayloadIV = &opts.Cipher.IV
	} else {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("put time event: encode payload: %w", err)
		}
		plain := string(payload)
		record.Payload = &plain
	}

	return s.tx(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_uuid"}},
			UpdateAll: true,
		}).Create(&record).Error
	})
}

// UpdateTimeEventStatus moves a record to status. It reports false without
// error when the record is absent or the transition is not allowed.
func (s *Store) UpdateTimeEventStatus(ctx context.Context, eventUUID string, status model.EventStatus) (bool, error) {
	applied := false
	err := s.tx(ctx, func(tx *gorm.DB) error {
		var record model.TimeEventRecord
		if err := tx.Where("event_uuid = ?", eventUUID).First(&record).Error; err != nil {
			if notFound(err) {
				return nil
			}
			return err
		}
		if !record.Status.CanTransitionTo(status) {
			return nil
		}

		applied = true
		return tx.Model(&model.TimeEventRecord{}).
			Where("event_uuid = ?", eventUUID).
			Updates(map[string]any{"status": status, "updated_at": s.stamp()}).Error
	})
	if err != nil {
		return false, fmt.Errorf("update time event %s: %w", eventUUID, err)
	}
	return applied, nil
}

// GetTimeEvent returns nil, nil when no record exists.
func (s *Store) GetTimeEvent(ctx context.Context, eventUUID string) (*model.TimeEventRecord, error) {
	var record model.TimeEventRecord
	err := s.tx(ctx, func(tx *gorm.DB) error {
		return tx.Where("event_uuid = ?", eventUUID).First(&record).Error
	})
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get time event %s: %w", eventUUID, err)
	}
	return &record, nil
}

// GetPendingEvents returns every record still awaiting a server ack.
func (s *Store) GetPendingEvents(ctx context.Context) ([]model.TimeEventRecord, error) {
	return s.ListTimeEvents(ctx, model.StatusPending)
}

// ListTimeEvents returns records in creation order, optionally filtered by status.
func (s *Store) ListTimeEvents(ctx context.Context, statuses ...model.EventStatus) ([]model.TimeEventRecord, error) {
	var records []model.TimeEventRecord
	err := s.tx(ctx, func(tx *gorm.DB) error {
		q := tx.Order("created_at ASC, event_uuid ASC")
		if len(statuses) > 0 {
			q = q.Where("status IN ?", statuses)
		}
		return q.Find(&records).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list time events: %w", err)
	}
	return records, nil
}

// DecodeRecord returns the event stored in record, decrypting when needed.
func DecodeRecord(record *model.TimeEventRecord, key *security.Key) (*model.TimeClockEvent, error) {
	var event model.TimeClockEvent
	if record.Encrypted() {
		if record.PayloadIV == nil {
			return nil, fmt.Errorf("record %s: %w: missing iv", record.EventUUID, security.ErrDecrypt)
		}
		cipher := security.CipherPayload{Cipher: *record.PayloadCipher, IV: *record.PayloadIV}
		if err := security.DecryptJSON(cipher, key, &event); err != nil {
			return nil, fmt.Errorf("record %s: %w", record.EventUUID, err)
		}
		return &event, nil
	}

	if record.Payload == nil {
		return nil, fmt.Errorf("record %s: no payload", record.EventUUID)
	}
	if err := json.Unmarshal([]byte(*record.Payload), &event); err != nil {
		return nil, fmt.Errorf("record %s: decode payload: %w", record.EventUUID, err)
	}
	return &event, nil
}

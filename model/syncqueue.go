package model

import "gorm.io/datatypes"

// QueuedRequest is everything needed to replay the original network call.
type QueuedRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    []byte            `json:"body,omitempty"`
}

// SyncQueueEntry is a raw HTTP retry record owned by the replay worker.
// It is reconciled with time_events only through EventUUID.
type SyncQueueEntry struct {
	EventUUID     string                            `gorm:"primaryKey;size:36;column:event_uuid" json:"event_uuid"`
	Request       datatypes.JSONType[QueuedRequest] `gorm:"column:request;not null" json:"request"`
	Attempts      int                               `gorm:"column:attempts;not null;default:0" json:"attempts"`
	QueuedAt      int64                             `gorm:"column:queued_at;not null;index" json:"queued_at"`
	LastAttemptAt int64                             `gorm:"column:last_attempt_at" json:"last_attempt_at"`
}

func (SyncQueueEntry) TableName() string {
	return "sync_queue"
}

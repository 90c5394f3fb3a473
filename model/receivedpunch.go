package model

import (
	"time"

	"gorm.io/datatypes"
)

// ReceivedPunch is the dev receiver's server-side copy of a submitted event.
type ReceivedPunch struct {
	EventUUID    string         `gorm:"primaryKey;size:36;column:event_uuid" json:"eventUuid"`
	UserID       string         `gorm:"size:64;index;column:user_id" json:"userId"`
	JobID        string         `gorm:"size:64;column:job_id" json:"jobId"`
	Type         EventType      `gorm:"size:16;column:type" json:"type"`
	TimestampUTC time.Time      `gorm:"column:timestamp_utc;index" json:"timestampUtc"`
	DeviceTime   string         `gorm:"size:40;column:device_time" json:"deviceTime"`
	Payload      datatypes.JSON `gorm:"column:payload" json:"payload"`
	Deliveries   int            `gorm:"column:deliveries;not null;default:1" json:"deliveries"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ReceivedPunch) TableName() string {
	return "received_punches"
}

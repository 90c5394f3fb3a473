package model

// TimeEventRecord is the durable projection of a TimeClockEvent. Exactly one of
// Payload or PayloadCipher/PayloadIV is populated.
type TimeEventRecord struct {
	EventUUID     string      `gorm:"primaryKey;size:36;column:event_uuid" json:"event_uuid"`
	Status        EventStatus `gorm:"size:16;not null;index;column:status" json:"status"`
	Payload       *string     `gorm:"column:payload;type:text" json:"payload,omitempty"`
	PayloadCipher *string     `gorm:"column:payload_cipher" json:"payloadCipher,omitempty"`
	PayloadIV     *string     `gorm:"column:payload_iv" json:"payloadIv,omitempty"`

	// store-local unix milliseconds
	CreatedAt int64 `gorm:"column:created_at;not null;autoCreateTime:false" json:"created_at"`
	UpdatedAt int64 `gorm:"column:updated_at;not null;autoUpdateTime:false" json:"updated_at"`
}

func (TimeEventRecord) TableName() string {
	return "time_events"
}

func (r *TimeEventRecord) Encrypted() bool {
	return r.PayloadCipher != nil
}

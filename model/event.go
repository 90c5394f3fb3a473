package model

import (
	"fmt"
	"strings"
	"time"
)

type EventType string

const (
	ClockIn    EventType = "clock_in"
	ClockOut   EventType = "clock_out"
	BreakStart EventType = "break_start"
	BreakEnd   EventType = "break_end"
)

var EventTypes = []EventType{ClockIn, ClockOut, BreakStart, BreakEnd}

func (t EventType) Valid() bool {
	switch t {
	case ClockIn, ClockOut, BreakStart, BreakEnd:
		return true
	}
	return false
}

// Path returns the URL segment used by the submission endpoints, e.g. "clock-in".
func (t EventType) Path() string {
	return strings.ReplaceAll(string(t), "_", "-")
}

// ParseEventType accepts both the wire form ("clock_in") and the path form ("clock-in").
func ParseEventType(s string) (EventType, error) {
	t := EventType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !t.Valid() {
		return "", fmt.Errorf("unknown event type %q", s)
	}
	return t, nil
}

type GPS struct {
	Lat       float64 `json:"lat" validate:"latitude"`
	Lng       float64 `json:"lng" validate:"longitude"`
	AccuracyM float64 `json:"accuracy_m" validate:"gte=0"`
	Address   *string `json:"address,omitempty"`
}

type DeviceInfo struct {
	UserAgent   string `json:"user_agent"`
	Platform    string `json:"platform"`
	Language    string `json:"language"`
	Fingerprint string `json:"fingerprint"`
}

type NetworkInfo struct {
	Online   bool    `json:"online"`
	PublicIP *string `json:"public_ip,omitempty"`
}

// AntiFraudInfo is an audit snapshot only. Nothing in it blocks a punch on its own.
type AntiFraudInfo struct {
	Permissions      map[string]string `json:"permissions"`
	SpoofCheckPassed bool              `json:"spoof_check_passed"`
}

// TimeClockEvent is one real-world punch. Business fields never change after the
// event is built; EventUUID is the idempotency key end to end.
type TimeClockEvent struct {
	EventUUID    string        `json:"event_uuid" validate:"required,uuid4"`
	UserID       string        `json:"user_id" validate:"required"`
	JobID        string        `json:"job_id" validate:"required"`
	Type         EventType     `json:"type" validate:"required,oneof=clock_in clock_out break_start break_end"`
	TimestampUTC time.Time     `json:"timestamp_utc" validate:"required"`
	DeviceTime   string        `json:"device_time" validate:"required"`
	GPS          GPS           `json:"gps" validate:"required"`
	Device       DeviceInfo    `json:"device"`
	Network      NetworkInfo   `json:"network"`
	AntiFraud    AntiFraudInfo `json:"anti_fraud"`
}

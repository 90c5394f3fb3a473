package model

type EventStatus string

const (
	StatusPending EventStatus = "pending"
	StatusSynced  EventStatus = "synced"
	StatusFailed  EventStatus = "failed"
)

func (s EventStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSynced, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether a status update from s to next is allowed.
// Nothing leaves synced; rewriting the same status is always allowed.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusSynced || next == StatusFailed
	case StatusFailed:
		return next == StatusSynced
	}
	return false
}

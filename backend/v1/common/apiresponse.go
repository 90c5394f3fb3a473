package common

// APIResponse is the backend envelope: data on success, message on error.
type APIResponse[T any] struct {
	Data    T      `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// PunchReceipt acknowledges a stored punch.
type PunchReceipt struct {
	EventUUID  string `json:"event_uuid"`
	Deliveries int    `json:"deliveries"`
	Duplicate  bool   `json:"duplicate"`
}

// QueuedResponse is the synthetic body returned when a punch was queued for
// background replay instead of reaching the server.
type QueuedResponse struct {
	Queued    bool   `json:"queued"`
	EventUUID string `json:"event_uuid"`
}

package replay

// MessageType is a command posted to the worker.
type MessageType string

const (
	// MessageReplayQueue forces an immediate replay attempt.
	MessageReplayQueue MessageType = "REPLAY_QUEUE"
	// MessageSkipWaiting activates a waiting worker.
	MessageSkipWaiting MessageType = "SKIP_WAITING"
	// MessageRegisterSync registers a background-sync tag.
	MessageRegisterSync MessageType = "SYNC_REGISTER"
	// MessageSync is the platform firing a registered background-sync tag.
	MessageSync MessageType = "SYNC"
)

type Message struct {
	Type MessageType `json:"type"`
	Tag  string      `json:"tag,omitempty"`
}

// NotificationType is an event sent from the worker to the foreground.
type NotificationType string

const (
	// NotificationReplayed means a queued request reached the server and was
	// removed from the queue. StatusCode carries the server's answer.
	NotificationReplayed NotificationType = "REPLAYED"
	// NotificationExpired means a queued request was evicted undelivered.
	NotificationExpired NotificationType = "EXPIRED"
	// NotificationActivated means the worker took control.
	NotificationActivated NotificationType = "ACTIVATED"
)

type Notification struct {
	Type       NotificationType `json:"type"`
	EventUUID  string           `json:"event_uuid,omitempty"`
	StatusCode int              `json:"status_code,omitempty"`
	Attempts   int              `json:"attempts,omitempty"`
	Reason     string           `json:"reason,omitempty"`
}

// Lifecycle is the worker's installation state.
type Lifecycle string

const (
	LifecycleInstalling Lifecycle = "installing"
	LifecycleWaiting    Lifecycle = "waiting"
	LifecycleActive     Lifecycle = "active"
)

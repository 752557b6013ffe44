package outbox

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Event is one outbox row, written in the same transaction as the
// mutation it announces and relayed to Kafka afterwards.
type Event struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Headers       map[string]string
	Traceparent   string
	CreatedAt     time.Time
	Status        Status
	RelayID       string
	RetryCount    int
	LastError     *string
}

// Notification is the payload shape observers receive. It is
// deliberately thin: delivery is at-least-once and unordered, so
// subscribers re-fetch authoritative state by entity id instead of
// trusting these fields as final truth.
type Notification struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	ChangeKind string `json:"change_kind"`
}

const (
	EntityOrder       = "order"
	EntityReservation = "reservation"

	ChangeCreated          = "created"
	ChangeStatusChanged    = "status_changed"
	ChangePaymentConfirmed = "payment_confirmed"
	ChangeCancelled        = "cancelled"
)

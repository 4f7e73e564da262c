package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/result-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventResultUploaded      EventType = "result_uploaded"
	EventResultStatusChanged EventType = "result_status_changed"
)

// Actor identifies who caused an event.
type Actor struct {
	IdentityID int64       `json:"identity_id"`
	Role       domain.Role `json:"role"`
}

// Event represents a domain event emitted by services after a commit.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ResultIDs []int64     `json:"result_ids"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ResultUploadedPayload payload.
type ResultUploadedPayload struct {
	Count      int     `json:"count"`
	StudentIDs []int64 `json:"student_ids"`
}

// ResultStatusChangedPayload payload.
type ResultStatusChangedPayload struct {
	Transition string              `json:"transition"`
	OldStatus  domain.ResultStatus `json:"old_status"`
	NewStatus  domain.ResultStatus `json:"new_status"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, actor domain.Principal, resultIDs []int64, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ResultIDs: resultIDs,
		Actor:     Actor{IdentityID: actor.IdentityID, Role: actor.Role},
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

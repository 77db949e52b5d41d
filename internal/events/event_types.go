package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionOpened     EventType = "session_opened"
	EventSessionClosed     EventType = "session_closed"
	EventComplaintAssigned EventType = "complaint_assigned"
	EventComplaintReleased EventType = "complaint_released"
	EventComplaintAnswered EventType = "complaint_answered"
	EventRerouteRequested  EventType = "complaint_reroute_requested"
)

// Actor identifies the agent behind an event.
type Actor struct {
	AgentID int64 `json:"agent_id"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Type        EventType `json:"type"`
	ComplaintID int64     `json:"complaint_id"`
	SessionID   uuid.UUID `json:"session_id"`
	Actor       Actor     `json:"actor"`
	Timestamp   time.Time `json:"timestamp"`
	Payload     any       `json:"payload,omitempty"`
}

// AnsweredPayload payload.
type AnsweredPayload struct {
	IsTemporary bool `json:"is_temporary"`
	Length      int  `json:"length"`
}

// RerouteRequestedPayload payload.
type RerouteRequestedPayload struct {
	TargetDepartmentID int64  `json:"target_department_id"`
	Reason             string `json:"reason"`
}

// SessionClosedPayload payload.
type SessionClosedPayload struct {
	Reason string `json:"reason"`
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActionKind names a complaint action recorded in the audit trail.
type ActionKind string

const (
	ActionAssign  ActionKind = "ASSIGN"
	ActionRelease ActionKind = "RELEASE"
	ActionAnswer  ActionKind = "ANSWER"
	ActionReroute ActionKind = "REROUTE"
)

// ActionLog is one successful complaint action taken through a workcenter session.
type ActionLog struct {
	ID                 uuid.UUID
	ComplaintID        int64
	AgentID            int64
	SessionID          uuid.UUID
	Action             ActionKind
	TargetDepartmentID *int64
	Reason             *string
	IsTemporary        *bool
	CreatedAt          time.Time
}

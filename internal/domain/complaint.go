package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ComplaintStatus enumerates lifecycle states for complaints and their follow-ups.
type ComplaintStatus string

const (
	ComplaintStatusReceived    ComplaintStatus = "RECEIVED"
	ComplaintStatusNormalized  ComplaintStatus = "NORMALIZED"
	ComplaintStatusRecommended ComplaintStatus = "RECOMMENDED"
	ComplaintStatusInProgress  ComplaintStatus = "IN_PROGRESS"
	ComplaintStatusResolved    ComplaintStatus = "RESOLVED"
	ComplaintStatusClosed      ComplaintStatus = "CLOSED"
	ComplaintStatusCanceled    ComplaintStatus = "CANCELED"
)

// IsTerminal reports whether no further answer may be written in this status.
func (s ComplaintStatus) IsTerminal() bool {
	return s == ComplaintStatusClosed || s == ComplaintStatusResolved
}

// UrgencyLevel enumerates complaint urgency.
type UrgencyLevel string

const (
	UrgencyLow    UrgencyLevel = "LOW"
	UrgencyMedium UrgencyLevel = "MEDIUM"
	UrgencyHigh   UrgencyLevel = "HIGH"
)

// IncidentSummary describes the cluster a complaint belongs to.
type IncidentSummary struct {
	Ref            string
	Title          string
	Status         string
	ComplaintCount int64
}

// Complaint is the aggregate root of one workcenter session.
type Complaint struct {
	OriginalID     int64
	DisplayID      string
	Title          string
	Address        string
	ReceivedAt     string
	Urgency        UrgencyLevel
	DepartmentName string
	Category       string
	ManagerName    string
	AssigneeID     *int64
	CurrentStatus  ComplaintStatus
	IncidentRef    *string
	Incident       *IncidentSummary
	History        []HistoryEntry
}

// Latest returns the newest history entry. History is never empty for a loaded complaint.
func (c *Complaint) Latest() *HistoryEntry {
	if len(c.History) == 0 {
		return nil
	}
	return &c.History[len(c.History)-1]
}

// Parent returns the original filing.
func (c *Complaint) Parent() *HistoryEntry {
	for i := range c.History {
		if c.History[i].IsParent {
			return &c.History[i]
		}
	}
	return nil
}

// Entry finds a history entry by id.
func (c *Complaint) Entry(entryID string) (*HistoryEntry, bool) {
	for i := range c.History {
		if c.History[i].EntryID == entryID {
			return &c.History[i], true
		}
	}
	return nil, false
}

// HistoryEntry is one item of the append-only complaint timeline.
type HistoryEntry struct {
	EntryID       string
	OriginalID    int64
	IsParent      bool
	ReceivedAt    string
	Title         string
	Body          string
	Answer        *string
	AnsweredBy    *int64
	Status        ComplaintStatus
	Normalization *Normalization
}

// PersistedAnswer returns the stored answer or an empty string.
func (e *HistoryEntry) PersistedAnswer() string {
	if e == nil || e.Answer == nil {
		return ""
	}
	return *e.Answer
}

// Normalization holds the AI normalization of the original filing.
type Normalization struct {
	NeutralSummary string
	CoreRequest    string
	CoreCause      string
	TargetObject   string
	Keywords       []string
	LocationHint   string
}

// ParseComplaintID accepts a numeric id or a display id such as "C2026-0008".
func ParseComplaintID(ref string) (int64, error) {
	ref = strings.TrimSpace(ref)
	if idx := strings.LastIndex(ref, "-"); idx >= 0 {
		ref = ref[idx+1:]
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid complaint reference %q", ref)
	}
	return id, nil
}

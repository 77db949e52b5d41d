package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/complaint-workcenter/internal/domain"
	"github.com/spec-kit/complaint-workcenter/internal/workcenter"
)

// OpenSessionRequest payload. ComplaintID is numeric or a display id.
type OpenSessionRequest struct {
	ComplaintID string `json:"complaintId" validate:"required,max=64"`
}

// SelectEntryRequest payload.
type SelectEntryRequest struct {
	EntryID string `json:"entryId" validate:"required"`
}

// DraftRequest payload. An empty text clears the buffer.
type DraftRequest struct {
	Text string `json:"text" validate:"max=20000"`
}

// AnswerRequest payload.
type AnswerRequest struct {
	IsTemporary bool `json:"isTemporary"`
}

// DepartmentRequest selects a bureau or division.
type DepartmentRequest struct {
	ID int64 `json:"id" validate:"gt=0"`
}

// ReasonRequest payload.
type ReasonRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

// ChatRequest payload.
type ChatRequest struct {
	Query string `json:"query" validate:"required,max=4000"`
	Mode  string `json:"mode" validate:"omitempty,oneof=chat search_law search_case"`
}

// GenerateDraftRequest payload.
type GenerateDraftRequest struct {
	ConfirmOverwrite bool `json:"confirmOverwrite"`
}

// ReleaseRequest payload. Releasing requires Confirm.
type ReleaseRequest struct {
	Confirm bool `json:"confirm"`
}

// SessionResponse wraps the view of a freshly opened session.
type SessionResponse struct {
	SessionID uuid.UUID    `json:"sessionId"`
	OpenedAt  time.Time    `json:"openedAt"`
	View      ViewResponse `json:"view"`
}

// ViewResponse is the rendered workcenter snapshot.
type ViewResponse struct {
	State           string                 `json:"state"`
	Complaint       *ComplaintResponse     `json:"complaint,omitempty"`
	Identity        *IdentityResponse      `json:"identity,omitempty"`
	Permissions     PermissionsResponse    `json:"permissions"`
	Actions         ActionsResponse        `json:"actions"`
	SelectedEntryID string                 `json:"selectedEntryId,omitempty"`
	Draft           string                 `json:"draft"`
	DraftState      string                 `json:"draftState"`
	ReadOnlyNotice  bool                   `json:"readOnlyNotice"`
	Reroute         RerouteResponse        `json:"reroute"`
	Chat            ChatResponse           `json:"chat"`
	Notifications   []NotificationResponse `json:"notifications"`
}

// ComplaintResponse describes the loaded complaint.
type ComplaintResponse struct {
	ID             int64                  `json:"id"`
	DisplayID      string                 `json:"displayId"`
	Title          string                 `json:"title"`
	Address        string                 `json:"address,omitempty"`
	ReceivedAt     string                 `json:"receivedAt,omitempty"`
	Urgency        string                 `json:"urgency,omitempty"`
	DepartmentName string                 `json:"departmentName,omitempty"`
	Category       string                 `json:"category,omitempty"`
	ManagerName    string                 `json:"managerName,omitempty"`
	AssigneeID     *int64                 `json:"assigneeId"`
	Status         string                 `json:"status"`
	IncidentRef    *string                `json:"incidentId,omitempty"`
	Incident       *IncidentResponse      `json:"incident,omitempty"`
	History        []HistoryEntryResponse `json:"history"`
}

// IncidentResponse summarises the complaint cluster.
type IncidentResponse struct {
	Ref            string `json:"id"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	ComplaintCount int64  `json:"complaintCount"`
}

// HistoryEntryResponse is one timeline item.
type HistoryEntryResponse struct {
	EntryID       string                 `json:"entryId"`
	OriginalID    int64                  `json:"originalId"`
	IsParent      bool                   `json:"isParent"`
	ReceivedAt    string                 `json:"receivedAt,omitempty"`
	Title         string                 `json:"title,omitempty"`
	Body          string                 `json:"body"`
	Answer        *string                `json:"answer"`
	AnsweredBy    *int64                 `json:"answeredBy,omitempty"`
	Status        string                 `json:"status"`
	Normalization *NormalizationResponse `json:"normalization,omitempty"`
}

// NormalizationResponse is the AI normalization of the original filing.
type NormalizationResponse struct {
	NeutralSummary string   `json:"neutralSummary"`
	CoreRequest    string   `json:"coreRequest"`
	CoreCause      string   `json:"coreCause"`
	TargetObject   string   `json:"targetObject"`
	Keywords       []string `json:"keywords"`
	LocationHint   string   `json:"locationHint"`
}

// IdentityResponse describes the caller.
type IdentityResponse struct {
	UserID         int64  `json:"userId"`
	DisplayName    string `json:"displayName"`
	Role           string `json:"role"`
	DepartmentName string `json:"departmentName,omitempty"`
}

// PermissionsResponse mirrors workcenter.Permissions.
type PermissionsResponse struct {
	IsUnassigned bool `json:"isUnassigned"`
	IsMine       bool `json:"isMine"`
	IsOthers     bool `json:"isOthers"`
	IsLatest     bool `json:"isLatest"`
	IsTerminal   bool `json:"isTerminal"`
	IsEditable   bool `json:"isEditable"`
}

// ActionsResponse mirrors workcenter.Actions.
type ActionsResponse struct {
	CanAssign        bool `json:"canAssign"`
	CanRelease       bool `json:"canRelease"`
	CanReroute       bool `json:"canReroute"`
	CanAnswer        bool `json:"canAnswer"`
	CanEditDraft     bool `json:"canEditDraft"`
	CanGenerateDraft bool `json:"canGenerateDraft"`
}

// DepartmentResponse is a selectable department.
type DepartmentResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	ParentID *int64 `json:"parentId,omitempty"`
}

// RerouteResponse is the reroute dialog state.
type RerouteResponse struct {
	Open       bool                 `json:"open"`
	Bureaus    []DepartmentResponse `json:"bureaus"`
	Divisions  []DepartmentResponse `json:"divisions"`
	BureauID   *int64               `json:"bureauId"`
	DivisionID *int64               `json:"divisionId"`
	Reason     string               `json:"reason"`
	CanSubmit  bool                 `json:"canSubmit"`
}

// ChatResponse is the chat panel state.
type ChatResponse struct {
	State      string                `json:"state"`
	Transcript []ChatMessageResponse `json:"transcript"`
	Documents  []DocumentResponse    `json:"documents"`
}

// ChatMessageResponse is one transcript bubble.
type ChatMessageResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	IsError bool   `json:"isError,omitempty"`
}

// DocumentResponse is a reference document shown next to a chat answer.
type DocumentResponse struct {
	Type       string   `json:"type"`
	Title      string   `json:"title"`
	Snippet    string   `json:"snippet"`
	Section    *string  `json:"section,omitempty"`
	CaseNumber *string  `json:"caseNumber,omitempty"`
	Score      *float64 `json:"score,omitempty"`
	URL        *string  `json:"url,omitempty"`
}

// NotificationResponse is a toast.
type NotificationResponse struct {
	ID        string    `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// DraftResponse returns the inserted AI draft.
type DraftResponse struct {
	Draft string       `json:"draft"`
	View  ViewResponse `json:"view"`
}

// ChatReplyResponse returns the assistant bubble.
type ChatReplyResponse struct {
	Message ChatMessageResponse `json:"message"`
	View    ViewResponse        `json:"view"`
}

// ActionLogResponse is one audited complaint action.
type ActionLogResponse struct {
	ID                 uuid.UUID `json:"id"`
	ComplaintID        int64     `json:"complaintId"`
	AgentID            int64     `json:"agentId"`
	SessionID          uuid.UUID `json:"sessionId"`
	Action             string    `json:"action"`
	TargetDepartmentID *int64    `json:"targetDepartmentId,omitempty"`
	Reason             *string   `json:"reason,omitempty"`
	IsTemporary        *bool     `json:"isTemporary,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// NewViewResponse maps an engine snapshot.
func NewViewResponse(v workcenter.View) ViewResponse {
	resp := ViewResponse{
		State:           string(v.State),
		Permissions:     PermissionsResponse(v.Permissions),
		Actions:         ActionsResponse(v.Actions),
		SelectedEntryID: v.SelectedEntryID,
		Draft:           v.Draft,
		DraftState:      string(v.DraftState),
		ReadOnlyNotice:  v.ReadOnlyNotice,
		Reroute: RerouteResponse{
			Open:       v.Reroute.Open,
			Bureaus:    NewDepartmentResponses(v.Reroute.Bureaus),
			Divisions:  NewDepartmentResponses(v.Reroute.Divisions),
			BureauID:   v.Reroute.BureauID,
			DivisionID: v.Reroute.DivisionID,
			Reason:     v.Reroute.Reason,
			CanSubmit:  v.Reroute.CanSubmit,
		},
		Chat: ChatResponse{
			State:      string(v.Chat.State),
			Transcript: NewChatMessageResponses(v.Chat.Transcript),
			Documents:  newDocumentResponses(v.Chat.Documents),
		},
		Notifications: NewNotificationResponses(v.Notifications),
	}
	if v.Identity != nil {
		resp.Identity = &IdentityResponse{
			UserID:         v.Identity.UserID,
			DisplayName:    v.Identity.DisplayName,
			Role:           string(v.Identity.Role),
			DepartmentName: v.Identity.DepartmentName,
		}
	}
	if v.Complaint != nil {
		resp.Complaint = newComplaintResponse(v.Complaint)
	}
	return resp
}

func newComplaintResponse(c *domain.Complaint) *ComplaintResponse {
	out := &ComplaintResponse{
		ID:             c.OriginalID,
		DisplayID:      c.DisplayID,
		Title:          c.Title,
		Address:        c.Address,
		ReceivedAt:     c.ReceivedAt,
		Urgency:        string(c.Urgency),
		DepartmentName: c.DepartmentName,
		Category:       c.Category,
		ManagerName:    c.ManagerName,
		AssigneeID:     c.AssigneeID,
		Status:         string(c.CurrentStatus),
		IncidentRef:    c.IncidentRef,
		History:        make([]HistoryEntryResponse, 0, len(c.History)),
	}
	if c.Incident != nil {
		out.Incident = &IncidentResponse{
			Ref:            c.Incident.Ref,
			Title:          c.Incident.Title,
			Status:         c.Incident.Status,
			ComplaintCount: c.Incident.ComplaintCount,
		}
	}
	for _, e := range c.History {
		entry := HistoryEntryResponse{
			EntryID:    e.EntryID,
			OriginalID: e.OriginalID,
			IsParent:   e.IsParent,
			ReceivedAt: e.ReceivedAt,
			Title:      e.Title,
			Body:       e.Body,
			Answer:     e.Answer,
			AnsweredBy: e.AnsweredBy,
			Status:     string(e.Status),
		}
		if n := e.Normalization; n != nil {
			entry.Normalization = &NormalizationResponse{
				NeutralSummary: n.NeutralSummary,
				CoreRequest:    n.CoreRequest,
				CoreCause:      n.CoreCause,
				TargetObject:   n.TargetObject,
				Keywords:       n.Keywords,
				LocationHint:   n.LocationHint,
			}
		}
		out.History = append(out.History, entry)
	}
	return out
}

// NewDepartmentResponses maps departments.
func NewDepartmentResponses(in []domain.Department) []DepartmentResponse {
	out := make([]DepartmentResponse, 0, len(in))
	for _, d := range in {
		out = append(out, DepartmentResponse{ID: d.ID, Name: d.Name, Category: string(d.Category), ParentID: d.ParentID})
	}
	return out
}

// NewChatMessageResponse maps one chat message.
func NewChatMessageResponse(m domain.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{Role: string(m.Role), Content: m.Content, IsError: m.IsError}
}

// NewChatMessageResponses maps a transcript.
func NewChatMessageResponses(in []domain.ChatMessage) []ChatMessageResponse {
	out := make([]ChatMessageResponse, 0, len(in))
	for _, m := range in {
		out = append(out, NewChatMessageResponse(m))
	}
	return out
}

func newDocumentResponses(in []domain.ReferenceDocument) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(in))
	for _, d := range in {
		out = append(out, DocumentResponse{
			Type:       string(d.Kind),
			Title:      d.Title,
			Snippet:    d.Snippet,
			Section:    d.Section,
			CaseNumber: d.CaseNumber,
			Score:      d.Score,
			URL:        d.URL,
		})
	}
	return out
}

// NewNotificationResponses maps toasts.
func NewNotificationResponses(in []domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(in))
	for _, n := range in {
		out = append(out, NotificationResponse{ID: n.ID, Level: string(n.Level), Message: n.Message, CreatedAt: n.CreatedAt})
	}
	return out
}

// NewActionLogResponses maps audit rows.
func NewActionLogResponses(in []domain.ActionLog) []ActionLogResponse {
	out := make([]ActionLogResponse, 0, len(in))
	for _, e := range in {
		out = append(out, ActionLogResponse{
			ID:                 e.ID,
			ComplaintID:        e.ComplaintID,
			AgentID:            e.AgentID,
			SessionID:          e.SessionID,
			Action:             string(e.Action),
			TargetDepartmentID: e.TargetDepartmentID,
			Reason:             e.Reason,
			IsTemporary:        e.IsTemporary,
			CreatedAt:          e.CreatedAt,
		})
	}
	return out
}

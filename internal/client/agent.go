package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/complaint-workcenter/internal/domain"
)

// ErrInvalidDetail marks a complaint detail the workcenter cannot operate on.
var ErrInvalidDetail = errors.New("invalid complaint detail")

// AgentClient talks to the complaint backend on behalf of one agent.
type AgentClient struct {
	api *jsonClient
}

// NewAgentClient creates a client for the backend rooted at baseURL.
func NewAgentClient(baseURL string, timeout time.Duration) (*AgentClient, error) {
	c, err := newJSONClient(baseURL, timeout)
	if err != nil {
		return nil, fmt.Errorf("agent api: %w", err)
	}
	return &AgentClient{api: c}, nil
}

// WithAuthorization returns a copy that forwards the given Authorization header.
func (c *AgentClient) WithAuthorization(authorization string) *AgentClient {
	return &AgentClient{api: c.api.withAuthorization(authorization)}
}

type meResponse struct {
	ID             int64  `json:"id"`
	DisplayName    string `json:"displayName"`
	Role           string `json:"role"`
	DepartmentName string `json:"departmentName"`
}

type historyItemResponse struct {
	ID             string   `json:"id"`
	OriginalID     int64    `json:"originalId"`
	Parent         bool     `json:"parent"`
	ReceivedAt     string   `json:"receivedAt"`
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	Answer         *string  `json:"answer"`
	AnsweredBy     *int64   `json:"answeredBy"`
	Status         string   `json:"status"`
	NeutralSummary string   `json:"neutralSummary"`
	CoreRequest    string   `json:"coreRequest"`
	CoreCause      string   `json:"coreCause"`
	TargetObject   string   `json:"targetObject"`
	Keywords       []string `json:"keywords"`
	LocationHint   string   `json:"locationHint"`
}

type detailResponse struct {
	ID                     string                `json:"id"`
	OriginalID             int64                 `json:"originalId"`
	Title                  string                `json:"title"`
	Address                string                `json:"address"`
	ReceivedAt             string                `json:"receivedAt"`
	Status                 string                `json:"status"`
	Urgency                string                `json:"urgency"`
	DepartmentName         string                `json:"departmentName"`
	Category               string                `json:"category"`
	ManagerName            string                `json:"managerName"`
	History                []historyItemResponse `json:"history"`
	IncidentID             *string               `json:"incidentId"`
	IncidentTitle          string                `json:"incidentTitle"`
	IncidentStatus         string                `json:"incidentStatus"`
	IncidentComplaintCount int64                 `json:"incidentComplaintCount"`
	AssigneeID             *int64                `json:"assigneeId"`
	AnsweredBy             *int64                `json:"answeredBy"`
}

type departmentResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	ParentID *int64 `json:"parentId"`
}

type chatMessageResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type answerRequest struct {
	Answer      string `json:"answer"`
	IsTemporary bool   `json:"isTemporary"`
}

type rerouteRequest struct {
	TargetDeptID int64  `json:"targetDeptId"`
	Reason       string `json:"reason"`
}

// Me returns the caller's identity.
func (c *AgentClient) Me(ctx context.Context) (*domain.Identity, error) {
	var out meResponse
	if err := c.api.doJSON(ctx, http.MethodGet, "/agent/me", nil, &out); err != nil {
		return nil, err
	}
	if out.ID <= 0 {
		return nil, fmt.Errorf("agent me: missing id")
	}
	role := domain.AgentRole(strings.ToUpper(out.Role))
	if role == "" {
		role = domain.AgentRoleAgent
	}
	return &domain.Identity{
		UserID:         out.ID,
		DisplayName:    out.DisplayName,
		Role:           role,
		DepartmentName: out.DepartmentName,
	}, nil
}

// ComplaintDetail fetches and validates the complaint with its full history.
func (c *AgentClient) ComplaintDetail(ctx context.Context, complaintID int64) (*domain.Complaint, error) {
	var out detailResponse
	if err := c.api.doJSON(ctx, http.MethodGet, fmt.Sprintf("/agent/complaints/%d", complaintID), nil, &out); err != nil {
		return nil, err
	}
	return out.toDomain(complaintID)
}

func (r detailResponse) toDomain(requestedID int64) (*domain.Complaint, error) {
	if len(r.History) == 0 {
		return nil, fmt.Errorf("%w: complaint %d has no history", ErrInvalidDetail, requestedID)
	}
	originalID := r.OriginalID
	if originalID == 0 {
		originalID = requestedID
	}
	assignee := r.AssigneeID
	if assignee == nil {
		assignee = r.AnsweredBy
	}

	c := &domain.Complaint{
		OriginalID:     originalID,
		DisplayID:      r.ID,
		Title:          r.Title,
		Address:        r.Address,
		ReceivedAt:     r.ReceivedAt,
		Urgency:        domain.UrgencyLevel(r.Urgency),
		DepartmentName: r.DepartmentName,
		Category:       r.Category,
		ManagerName:    r.ManagerName,
		AssigneeID:     assignee,
		CurrentStatus:  domain.ComplaintStatus(r.Status),
		IncidentRef:    r.IncidentID,
		History:        make([]domain.HistoryEntry, 0, len(r.History)),
	}
	if r.IncidentID != nil && *r.IncidentID != "" {
		c.Incident = &domain.IncidentSummary{
			Ref:            *r.IncidentID,
			Title:          r.IncidentTitle,
			Status:         r.IncidentStatus,
			ComplaintCount: r.IncidentComplaintCount,
		}
	}

	seen := make(map[string]struct{}, len(r.History))
	for _, h := range r.History {
		if h.ID == "" {
			return nil, fmt.Errorf("%w: history entry without id", ErrInvalidDetail)
		}
		if _, dup := seen[h.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate history entry %q", ErrInvalidDetail, h.ID)
		}
		seen[h.ID] = struct{}{}

		entry := domain.HistoryEntry{
			EntryID:    h.ID,
			OriginalID: h.OriginalID,
			IsParent:   h.Parent,
			ReceivedAt: h.ReceivedAt,
			Title:      h.Title,
			Body:       h.Body,
			Answer:     h.Answer,
			AnsweredBy: h.AnsweredBy,
			Status:     domain.ComplaintStatus(h.Status),
		}
		if h.Parent && (h.NeutralSummary != "" || h.CoreRequest != "" || len(h.Keywords) > 0) {
			entry.Normalization = &domain.Normalization{
				NeutralSummary: h.NeutralSummary,
				CoreRequest:    h.CoreRequest,
				CoreCause:      h.CoreCause,
				TargetObject:   h.TargetObject,
				Keywords:       h.Keywords,
				LocationHint:   h.LocationHint,
			}
		}
		c.History = append(c.History, entry)
	}
	if c.CurrentStatus == "" {
		c.CurrentStatus = c.Latest().Status
	}
	return c, nil
}

// Assign takes the complaint for the caller.
func (c *AgentClient) Assign(ctx context.Context, complaintID int64) error {
	return c.api.doJSON(ctx, http.MethodPost, fmt.Sprintf("/agent/complaints/%d/assign", complaintID), nil, nil)
}

// Release gives up the caller's assignment.
func (c *AgentClient) Release(ctx context.Context, complaintID int64) error {
	return c.api.doJSON(ctx, http.MethodPost, fmt.Sprintf("/agent/complaints/%d/release", complaintID), nil, nil)
}

// Answer saves or sends the answer of the latest entry.
func (c *AgentClient) Answer(ctx context.Context, complaintID int64, answer string, isTemporary bool) error {
	body := answerRequest{Answer: answer, IsTemporary: isTemporary}
	return c.api.doJSON(ctx, http.MethodPost, fmt.Sprintf("/agent/complaints/%d/answer", complaintID), body, nil)
}

// Reroute files a reroute request for approval.
func (c *AgentClient) Reroute(ctx context.Context, req domain.RerouteRequest) error {
	body := rerouteRequest{TargetDeptID: req.TargetDepartmentID, Reason: req.Reason}
	return c.api.doJSON(ctx, http.MethodPost, fmt.Sprintf("/agent/complaints/%d/reroute", req.ComplaintID), body, nil)
}

// Departments lists all active departments.
func (c *AgentClient) Departments(ctx context.Context) ([]domain.Department, error) {
	var out []departmentResponse
	if err := c.api.doJSON(ctx, http.MethodGet, "/agent/departments", nil, &out); err != nil {
		return nil, err
	}
	depts := make([]domain.Department, 0, len(out))
	for _, d := range out {
		depts = append(depts, domain.Department{
			ID:       d.ID,
			Name:     d.Name,
			Category: domain.ParseDepartmentCategory(d.Category),
			ParentID: d.ParentID,
		})
	}
	return depts, nil
}

// ChatHistory returns the persisted chat transcript of a complaint.
func (c *AgentClient) ChatHistory(ctx context.Context, complaintID int64) ([]domain.ChatMessage, error) {
	var out []chatMessageResponse
	if err := c.api.doJSON(ctx, http.MethodGet, fmt.Sprintf("/agent/complaints/%d/chat-history", complaintID), nil, &out); err != nil {
		return nil, err
	}
	msgs := make([]domain.ChatMessage, 0, len(out))
	for _, m := range out {
		role := domain.ChatRole(strings.ToLower(m.Role))
		if role != domain.ChatRoleUser && role != domain.ChatRoleAssistant {
			continue
		}
		msgs = append(msgs, domain.ChatMessage{Role: role, Content: m.Content})
	}
	return msgs, nil
}

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/complaint-workcenter/internal/domain"
)

const (
	envelopeSuccess  = "success"
	DefaultDraftPath = "/complaints/draft"
)

// ErrInvalidReply marks an AI response that does not match the contract.
var ErrInvalidReply = errors.New("invalid ai reply")

// AppError is an application-level failure reported by the AI service
// inside a 2xx envelope.
type AppError struct {
	Message string
}

func (e *AppError) Error() string {
	return "ai service: " + e.Message
}

// AssistantMessage is the text shown to the agent in the chat transcript.
func (e *AppError) AssistantMessage() string {
	return e.Message
}

// Drafter generates an answer draft from the original filing.
type Drafter interface {
	GenerateDraft(ctx context.Context, complaintID int64, bodyText string) (string, error)
}

// AIClient talks to the AI service.
type AIClient struct {
	api       *jsonClient
	draftPath string
	drafter   Drafter
}

// AIOption customizes an AIClient.
type AIOption func(*AIClient)

// WithDraftPath overrides the draft endpoint path.
func WithDraftPath(path string) AIOption {
	return func(c *AIClient) {
		if strings.TrimSpace(path) != "" {
			c.draftPath = "/" + strings.TrimLeft(strings.TrimSpace(path), "/")
		}
	}
}

// WithDrafter routes draft generation to d instead of the AI service.
func WithDrafter(d Drafter) AIOption {
	return func(c *AIClient) {
		c.drafter = d
	}
}

// NewAIClient creates a client for the AI service rooted at baseURL.
func NewAIClient(baseURL string, timeout time.Duration, opts ...AIOption) (*AIClient, error) {
	api, err := newJSONClient(baseURL, timeout)
	if err != nil {
		return nil, fmt.Errorf("ai service: %w", err)
	}
	c := &AIClient{api: api, draftPath: DefaultDraftPath}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (e envelope) decode(out any) error {
	if !strings.EqualFold(e.Status, envelopeSuccess) {
		msg := strings.TrimSpace(e.Message)
		if msg == "" {
			msg = "request failed"
		}
		return &AppError{Message: msg}
	}
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return fmt.Errorf("%w: missing data", ErrInvalidReply)
	}
	if err := json.Unmarshal(e.Data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	return nil
}

type chatRequest struct {
	Query  string `json:"query"`
	Action string `json:"action"`
}

type documentResponse struct {
	Type       string   `json:"type"`
	Title      string   `json:"title"`
	Snippet    string   `json:"snippet"`
	Section    *string  `json:"section"`
	CaseNumber *string  `json:"caseNumber"`
	Score      *float64 `json:"score"`
	URL        *string  `json:"url"`
}

type chatData struct {
	Answer    string             `json:"answer"`
	Documents []documentResponse `json:"documents"`
}

type draftRequest struct {
	ComplaintID int64  `json:"complaintId"`
	BodyText    string `json:"bodyText"`
}

// Chat sends a query about a complaint.
func (c *AIClient) Chat(ctx context.Context, complaintID int64, query string, mode domain.ChatMode) (*domain.ChatReply, error) {
	var env envelope
	req := chatRequest{Query: query, Action: string(mode)}
	if err := c.api.doJSON(ctx, http.MethodPost, fmt.Sprintf("/complaints/%d/ai-chat", complaintID), req, &env); err != nil {
		return nil, err
	}
	var data chatData
	if err := env.decode(&data); err != nil {
		return nil, err
	}

	reply := &domain.ChatReply{
		Answer:    data.Answer,
		Documents: make([]domain.ReferenceDocument, 0, len(data.Documents)),
	}
	for _, d := range data.Documents {
		kind, err := domain.ParseDocumentKind(strings.ToLower(d.Type))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidReply, err)
		}
		doc := domain.ReferenceDocument{
			Kind:    kind,
			Title:   d.Title,
			Snippet: d.Snippet,
			Score:   d.Score,
			URL:     d.URL,
		}
		switch kind {
		case domain.DocumentKindCase:
			doc.CaseNumber = d.CaseNumber
		default:
			doc.Section = d.Section
		}
		reply.Documents = append(reply.Documents, doc)
	}
	return reply, nil
}

// GenerateDraft asks for an answer draft of the original filing.
func (c *AIClient) GenerateDraft(ctx context.Context, complaintID int64, bodyText string) (string, error) {
	if c.drafter != nil {
		return c.drafter.GenerateDraft(ctx, complaintID, bodyText)
	}
	var env envelope
	req := draftRequest{ComplaintID: complaintID, BodyText: bodyText}
	if err := c.api.doJSON(ctx, http.MethodPost, c.draftPath, req, &env); err != nil {
		return "", err
	}
	var text string
	if err := env.decode(&text); err != nil {
		return "", err
	}
	return text, nil
}

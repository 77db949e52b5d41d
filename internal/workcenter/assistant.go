package workcenter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-workcenter/internal/domain"
)

// ChatState is the chat flow state.
type ChatState string

const (
	ChatIdle    ChatState = "IDLE"
	ChatSending ChatState = "SENDING"
)

// DraftState is the draft flow state.
type DraftState string

const (
	DraftIdle     DraftState = "IDLE"
	DraftDrafting DraftState = "DRAFTING"
)

// assistantPanel holds the chat transcript and both assistant flows. Each
// in-flight request owns a token; a result applies only while its token is current.
type assistantPanel struct {
	transcript []domain.ChatMessage
	documents  []domain.ReferenceDocument

	chatState  ChatState
	chatToken  uint64
	chatCancel context.CancelFunc

	draftState  DraftState
	draftToken  uint64
	draftCancel context.CancelFunc
}

func newAssistantPanel() assistantPanel {
	return assistantPanel{chatState: ChatIdle, draftState: DraftIdle}
}

func (p *assistantPanel) cancelChat() bool {
	if p.chatState != ChatSending {
		return false
	}
	if p.chatCancel != nil {
		p.chatCancel()
	}
	p.chatToken++
	p.chatState = ChatIdle
	p.chatCancel = nil
	return true
}

func (p *assistantPanel) cancelDraft() bool {
	if p.draftState != DraftDrafting {
		return false
	}
	if p.draftCancel != nil {
		p.draftCancel()
	}
	p.draftToken++
	p.draftState = DraftIdle
	p.draftCancel = nil
	return true
}

// SendChat appends the query to the transcript right away, asks the AI
// service and appends its answer. Transport and application failures become
// an error bubble in the transcript rather than an error return.
func (w *Workcenter) SendChat(ctx context.Context, query string, mode domain.ChatMode) (domain.ChatMessage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.ChatMessage{}, ErrEmptyQuery
	}
	if mode == "" {
		mode = domain.ChatModeChat
	}
	if !mode.Valid() {
		return domain.ChatMessage{}, ErrInvalidChatMode
	}

	w.mu.Lock()
	if err := w.readyLocked(); err != nil {
		w.mu.Unlock()
		return domain.ChatMessage{}, err
	}
	if w.panel.chatState == ChatSending {
		w.mu.Unlock()
		return domain.ChatMessage{}, ErrChatInFlight
	}
	w.panel.transcript = append(w.panel.transcript, domain.ChatMessage{Role: domain.ChatRoleUser, Content: query})
	w.panel.chatState = ChatSending
	w.panel.chatToken++
	token := w.panel.chatToken
	reqCtx, stop := w.scoped(ctx)
	w.panel.chatCancel = stop
	complaintID := w.complaint.OriginalID
	w.mu.Unlock()

	reply, err := w.assistant.Chat(reqCtx, complaintID, query, mode)
	stop()

	w.mu.Lock()
	defer w.mu.Unlock()
	if token != w.panel.chatToken || w.state == StateClosed {
		return domain.ChatMessage{}, ErrStaleResult
	}
	w.panel.chatState = ChatIdle
	w.panel.chatCancel = nil

	if err != nil {
		w.logger.Warn("ai chat failed", zap.Int64("complaint_id", complaintID), zap.String("mode", string(mode)), zap.Error(err))
		msg := domain.ChatMessage{Role: domain.ChatRoleAssistant, Content: chatFailureText(err), IsError: true}
		w.panel.transcript = append(w.panel.transcript, msg)
		return msg, nil
	}
	msg := domain.ChatMessage{Role: domain.ChatRoleAssistant, Content: reply.Answer}
	w.panel.transcript = append(w.panel.transcript, msg)
	w.panel.documents = append([]domain.ReferenceDocument(nil), reply.Documents...)
	return msg, nil
}

func chatFailureText(err error) string {
	var appErr interface{ AssistantMessage() string }
	if errors.As(err, &appErr) && appErr.AssistantMessage() != "" {
		return "Error: " + appErr.AssistantMessage()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "The AI service did not answer in time."
	}
	return "Could not reach the AI service."
}

// GenerateDraft replaces the answer buffer with an AI draft of the original
// filing. A non-empty buffer is only overwritten with confirmOverwrite. The
// buffer is read-only until the request ends; failures leave it untouched.
func (w *Workcenter) GenerateDraft(ctx context.Context, confirmOverwrite bool) (string, error) {
	w.mu.Lock()
	if err := w.readyLocked(); err != nil {
		w.mu.Unlock()
		return "", err
	}
	if _, actions := w.gateLocked(); !actions.CanGenerateDraft {
		w.mu.Unlock()
		return "", ErrActionNotPermitted
	}
	if w.panel.draftState == DraftDrafting {
		w.mu.Unlock()
		return "", ErrDraftInProgress
	}
	if w.timeline.Draft() != "" && !confirmOverwrite {
		w.mu.Unlock()
		return "", ErrOverwriteNotConfirmed
	}
	parent := w.complaint.Parent()
	body := parent.Body
	complaintID := w.complaint.OriginalID
	entryID := w.timeline.SelectedID()
	w.panel.draftState = DraftDrafting
	w.panel.draftToken++
	token := w.panel.draftToken
	reqCtx, stop := w.scoped(ctx)
	w.panel.draftCancel = stop
	w.mu.Unlock()

	text, err := w.assistant.GenerateDraft(reqCtx, complaintID, body)
	stop()

	w.mu.Lock()
	defer w.mu.Unlock()
	if token != w.panel.draftToken || w.state == StateClosed {
		return "", ErrStaleResult
	}
	w.panel.draftState = DraftIdle
	w.panel.draftCancel = nil
	if err != nil {
		w.notifyLocked(domain.NotificationError, "AI draft generation failed")
		w.logger.Warn("ai draft failed", zap.Int64("complaint_id", complaintID), zap.Error(err))
		return "", fmt.Errorf("generate draft: %w", err)
	}
	if w.timeline.SelectedID() != entryID {
		return "", ErrStaleResult
	}
	w.timeline.SetDraft(text)
	w.notifyLocked(domain.NotificationSuccess, "AI draft inserted")
	return text, nil
}

package workcenter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-workcenter/internal/domain"
)

type chatOutcome struct {
	msg domain.ChatMessage
	err error
}

type draftOutcome struct {
	text string
	err  error
}

func (h *harness) sendChatAsync(query string, mode domain.ChatMode) <-chan chatOutcome {
	out := make(chan chatOutcome, 1)
	go func() {
		msg, err := h.wc.SendChat(context.Background(), query, mode)
		out <- chatOutcome{msg: msg, err: err}
	}()
	<-h.assistant.started
	return out
}

func (h *harness) generateDraftAsync(confirm bool) <-chan draftOutcome {
	out := make(chan draftOutcome, 1)
	go func() {
		text, err := h.wc.GenerateDraft(context.Background(), confirm)
		out <- draftOutcome{text: text, err: err}
	}()
	<-h.assistant.started
	return out
}

type assistantAppError struct{ message string }

func (e *assistantAppError) Error() string            { return "ai service: " + e.message }
func (e *assistantAppError) AssistantMessage() string { return e.message }

func TestSendChat(t *testing.T) {
	t.Run("appends query immediately and the answer afterwards", func(t *testing.T) {
		h := newHarness(t, sampleComplaint(ptr(callerID), domain.ComplaintStatusInProgress))
		h.load(t)

		pending := h.sendChatAsync("  which law applies?  ", domain.ChatModeSearchLaw)
		v := h.wc.View()
		assert.Equal(t, ChatSending, v.Chat.State)
		require.Len(t, v.Chat.Transcript, 1)
		assert.Equal(t, domain.ChatMessage{Role: domain.ChatRoleUser, Content: "which law applies?"}, v.Chat.Transcript[0])

		h.assistant.chatReplies <- assistantChatResult{reply: &domain.ChatReply{
			Answer:    "Road Act article 31.",
			Documents: []domain.ReferenceDocument{{Kind: domain.DocumentKindLaw, Title: "Road Act"}},
		}}
		res := <-pending
		require.NoError(t, res.err)
		assert.Equal(t, "Road Act article 31.", res.msg.Content)

		v = h.wc.View()
		assert.Equal(t, ChatIdle, v.Chat.State)
		require.Len(t, v.Chat.Transcript, 2)
		assert.Equal(t, domain.ChatRoleAssistant, v.Chat.Transcript[1].Role)
		require.Len(t, v.Chat.Documents, 1)

		pending = h.sendChatAsync("and cases?", domain.ChatModeSearchCase)
		h.assistant.chatReplies <- assistantChatResult{reply: &domain.ChatReply{Answer: "none"}}
		require.NoError(t, (<-pending).err)
		assert.Empty(t, h.wc.View().Chat.Documents, "documents are replaced, not merged")
	})

	t.Run("failure becomes an error bubble", func(t *testing.T) {
		h := newHarness(t, sampleComplaint(nil, domain.ComplaintStatusInProgress))
		h.load(t)

		pending := h.sendChatAsync("hello", "")
		h.assistant.chatReplies <- assistantChatResult{err: errBoom}
		res := <-pending
		require.NoError(t, res.err)
		assert.True(t, res.msg.IsError)
		assert.Equal(t, "Could not reach the AI service.", res.msg.Content)

		pending = h.sendChatAsync("hello again", "")
		h.assistant.chatReplies <- assistantChatResult{err: &assistantAppError{message: "quota exceeded"}}
		res = <-pending
		assert.Equal(t, "Error: quota exceeded", res.msg.Content)
		assert.Len(t, h.wc.View().Chat.Transcript, 4)
	})

	t.Run("one question at a time", func(t *testing.T) {
		h := newHarness(t, sampleComplaint(ptr(callerID), domain.ComplaintStatusInProgress))
		h.load(t)

		pending := h.sendChatAsync("first", domain.ChatModeChat)
		_, err := h.wc.SendChat(context.Background(), "second", domain.ChatModeChat)
		assert.ErrorIs(t, err, ErrChatInFlight)

		h.assistant.chatReplies <- assistantChatResult{reply: &domain.ChatReply{Answer: "ok"}}
		require.NoError(t, (<-pending).err)
		assert.Len(t, h.wc.View().Chat.Transcript, 2)
	})

	t.Run("rejects blank query and unknown mode", func(t *testing.T) {
		h := newHarness(t, sampleComplaint(ptr(callerID), domain.ComplaintStatusInProgress))
		h.load(t)
		_, err := h.wc.SendChat(context.Background(), "   ", domain.ChatModeChat)
		assert.ErrorIs(t, err, ErrEmptyQuery)
		_, err = h.wc.SendChat(context.Background(), "hi", domain.ChatMode("translate"))
		assert.ErrorIs(t, err, ErrInvalidChatMode)
		assert.Empty(t, h.wc.View().Chat.Transcript)
	})

	t.Run("close discards the late answer", func(t *testing.T) {
		h := newHarness(t, sampleComplaint(ptr(callerID), domain.ComplaintStatusInProgress))
		h.load(t)
		pending := h.sendChatAsync("hello", domain.ChatModeChat)
		h.wc.Close()
		assert.ErrorIs(t, (<-pending).err, ErrStaleResult)
	})
}

func TestGenerateDraft(t *testing.T) {
	t.Run("empty buffer needs no confirmation", func(t *testing.T) {
		h := newHarness(t, sampleComplaint(ptr(callerID), domain.ComplaintStatusInProgress))
		h.load(t)

		pending := h.generateDraftAsync(false)
		v := h.wc.View()
		assert.Equal(t, DraftDrafting, v.DraftState)
		assert.False(t, v.Actions.CanEditDraft)
		assert.False(t, v.Actions.CanAnswer)
		assert.ErrorIs(t, h.wc.SetDraft("typing"), ErrDraftLocked)
		_, err := h.wc.SubmitAnswer(context.Background(), true)
		assert.ErrorIs(t, err, ErrDraftLocked)
		_, err = h.wc.GenerateDraft(context.Background(), true)
		assert.ErrorIs(t, err, ErrDraftInProgress)

		h.assistant.draftReplies <- assistantDraftResult{text: "Dear resident, ..."}
		res := <-pending
		require.NoError(t, res.err)
		v = h.wc.View()
		assert.Equal(t, DraftIdle, v.DraftState)
		assert.Equal(t, "Dear resident, ...", v.Draft)
		require.NotEmpty(t, v.Notifications)
		assert.Equal(t, domain.NotificationSuccess, v.Notifications[len(v.Notifications)-1].Level)
	})

	t.Run("non-empty buffer requires confirmation", func(t *testing.T) {
		h := newHarness(t, sampleComplaint(ptr(callerID), domain.ComplaintStatusInProgress))
		h.load(t)
		require.NoError(t, h.wc.SetDraft("my own words"))

		_, err := h.wc.GenerateDraft(context.Background(), false)
		require.ErrorIs(t, err, ErrOverwriteNotConfirmed)
		assert.Equal(t, "my own words", h.wc.View().Draft)

		pending := h.generateDraftAsync(true)
		h.assistant.draftReplies <- assistantDraftResult{text: "generated"}
		require.NoError(t, (<-pending).err)
		assert.Equal(t, "generated", h.wc.View().Draft)
	})

	t.Run("whitespace-only buffer still requires confirmation", func(t *testing.T) {
		h := newHarness(t, sampleComplaint(ptr(callerID), domain.ComplaintStatusInProgress))
		h.load(t)
		require.NoError(t, h.wc.SetDraft("   \n  "))

		_, err := h.wc.GenerateDraft(context.Background(), false)
		require.ErrorIs(t, err, ErrOverwriteNotConfirmed)
		v := h.wc.View()
		assert.Equal(t, "   \n  ", v.Draft)
		assert.Equal(t, DraftIdle, v.DraftState)
	})

	t.Run("reselecting the shown entry keeps the draft running", func(t *testing.T) {
		h := newHarness(t, sampleComplaint(ptr(callerID), domain.ComplaintStatusInProgress))
		h.load(t)
		require.NoError(t, h.wc.SetDraft("before"))

		pending := h.generateDraftAsync(true)
		assert.ErrorIs(t, h.wc.SelectEntry("C-3"), ErrDraftLocked)
		v := h.wc.View()
		assert.Equal(t, DraftDrafting, v.DraftState)
		assert.Equal(t, "before", v.Draft)

		h.assistant.draftReplies <- assistantDraftResult{text: "after"}
		require.NoError(t, (<-pending).err)
		assert.Equal(t, "after", h.wc.View().Draft)
	})

	t.Run("failure leaves the buffer untouched", func(t *testing.T) {
		h := newHarness(t, sampleComplaint(ptr(callerID), domain.ComplaintStatusInProgress))
		h.load(t)
		require.NoError(t, h.wc.SetDraft("keep me"))

		pending := h.generateDraftAsync(true)
		h.assistant.draftReplies <- assistantDraftResult{err: errBoom}
		res := <-pending
		require.ErrorIs(t, res.err, errBoom)

		v := h.wc.View()
		assert.Equal(t, "keep me", v.Draft)
		assert.Equal(t, DraftIdle, v.DraftState)
		assert.Equal(t, domain.NotificationError, v.Notifications[len(v.Notifications)-1].Level)
	})

	t.Run("switching entries cancels and discards the draft", func(t *testing.T) {
		h := newHarness(t, sampleComplaint(ptr(callerID), domain.ComplaintStatusInProgress))
		h.load(t)

		pending := h.generateDraftAsync(false)
		require.NoError(t, h.wc.SelectEntry("P-7"))
		assert.ErrorIs(t, (<-pending).err, ErrStaleResult)

		v := h.wc.View()
		assert.Equal(t, DraftIdle, v.DraftState)
		assert.Equal(t, "We dispatched a crew.", v.Draft)
	})

	t.Run("chat and draft may run together", func(t *testing.T) {
		h := newHarness(t, sampleComplaint(ptr(callerID), domain.ComplaintStatusInProgress))
		h.load(t)

		draft := h.generateDraftAsync(false)
		chat := h.sendChatAsync("summarise", domain.ChatModeChat)
		h.assistant.chatReplies <- assistantChatResult{reply: &domain.ChatReply{Answer: "summary"}}
		h.assistant.draftReplies <- assistantDraftResult{text: "draft"}
		require.NoError(t, (<-chat).err)
		require.NoError(t, (<-draft).err)
		assert.Equal(t, "draft", h.wc.View().Draft)
	})

	t.Run("not permitted for others' complaints", func(t *testing.T) {
		h := newHarness(t, sampleComplaint(ptr[int64](7), domain.ComplaintStatusInProgress))
		h.load(t)
		_, err := h.wc.GenerateDraft(context.Background(), true)
		assert.ErrorIs(t, err, ErrActionNotPermitted)
	})
}

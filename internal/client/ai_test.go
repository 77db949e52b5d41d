package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-workcenter/internal/domain"
)

func newAITestClient(t *testing.T, handler http.HandlerFunc, opts ...AIOption) *AIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewAIClient(srv.URL, time.Second, opts...)
	require.NoError(t, err)
	return c
}

func TestAIClient_Chat(t *testing.T) {
	c := newAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/complaints/8/ai-chat", r.URL.Path)
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, chatRequest{Query: "which law?", Action: "search_law"}, req)
		_, _ = w.Write([]byte(`{"status": "success", "data": {"answer": "Road Act", "documents": [
			{"type": "law", "title": "Road Act", "section": "Art. 31", "score": 0.9},
			{"type": "case", "title": "Similar case", "caseNumber": "C2025-0001", "section": "ignored"}
		]}}`))
	})

	reply, err := c.Chat(context.Background(), 8, "which law?", domain.ChatModeSearchLaw)
	require.NoError(t, err)
	assert.Equal(t, "Road Act", reply.Answer)
	require.Len(t, reply.Documents, 2)
	assert.Equal(t, domain.DocumentKindLaw, reply.Documents[0].Kind)
	require.NotNil(t, reply.Documents[0].Section)
	assert.Equal(t, "Art. 31", *reply.Documents[0].Section)
	assert.Equal(t, domain.DocumentKindCase, reply.Documents[1].Kind)
	assert.Nil(t, reply.Documents[1].Section)
	require.NotNil(t, reply.Documents[1].CaseNumber)
}

func TestAIClient_ChatFailures(t *testing.T) {
	t.Run("application error", func(t *testing.T) {
		c := newAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status": "error", "message": "index unavailable"}`))
		})
		_, err := c.Chat(context.Background(), 8, "q", domain.ChatModeChat)
		var appErr *AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "index unavailable", appErr.AssistantMessage())
	})

	t.Run("unknown document kind", func(t *testing.T) {
		c := newAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status": "success", "data": {"answer": "a", "documents": [{"type": "blog"}]}}`))
		})
		_, err := c.Chat(context.Background(), 8, "q", domain.ChatModeChat)
		assert.ErrorIs(t, err, ErrInvalidReply)
	})

	t.Run("transport error", func(t *testing.T) {
		c := newAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := c.Chat(context.Background(), 8, "q", domain.ChatModeChat)
		var statusErr *StatusError
		assert.ErrorAs(t, err, &statusErr)
	})
}

func TestAIClient_GenerateDraft(t *testing.T) {
	c := newAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ai/draft", r.URL.Path)
		var req draftRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, draftRequest{ComplaintID: 8, BodyText: "The light is out."}, req)
		_, _ = w.Write([]byte(`{"status": "success", "data": "Dear resident"}`))
	}, WithDraftPath("ai/draft"))

	text, err := c.GenerateDraft(context.Background(), 8, "The light is out.")
	require.NoError(t, err)
	assert.Equal(t, "Dear resident", text)
}

type stubDrafter struct{ text string }

func (s stubDrafter) GenerateDraft(ctx context.Context, complaintID int64, bodyText string) (string, error) {
	return s.text, nil
}

func TestAIClient_GenerateDraftWithDrafter(t *testing.T) {
	c := newAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call to %s", r.URL.Path)
	}, WithDrafter(stubDrafter{text: "from drafter"}))

	text, err := c.GenerateDraft(context.Background(), 8, "body")
	require.NoError(t, err)
	assert.Equal(t, "from drafter", text)
}

func TestOpenAIDrafter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "choices": [
			{"index": 0, "message": {"role": "assistant", "content": "  Dear resident, thank you.  "}, "finish_reason": "stop"}
		]}`))
	}))
	t.Cleanup(srv.Close)

	d, err := NewOpenAIDrafter("sk-test", "", srv.URL+"/v1")
	require.NoError(t, err)
	text, err := d.GenerateDraft(context.Background(), 8, "The light is out.")
	require.NoError(t, err)
	assert.Equal(t, "Dear resident, thank you.", text)

	_, err = NewOpenAIDrafter("", "", "")
	assert.Error(t, err)
}

package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const draftSystemPrompt = "You draft replies from a city office to a resident's complaint. " +
	"Answer in formal, polite language, address the request directly and do not invent facts. " +
	"Reply with the letter text only."

// OpenAIDrafter generates answer drafts with the OpenAI chat completions API.
type OpenAIDrafter struct {
	client *openai.Client
	model  string
}

// NewOpenAIDrafter creates a drafter. An empty baseURL uses the public API.
func NewOpenAIDrafter(apiKey, model, baseURL string) (*OpenAIDrafter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai drafter: api key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIDrafter{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// GenerateDraft implements Drafter.
func (d *OpenAIDrafter) GenerateDraft(ctx context.Context, complaintID int64, bodyText string) (string, error) {
	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: draftSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: bodyText},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion for complaint %d: %w", complaintID, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no completion choices", ErrInvalidReply)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

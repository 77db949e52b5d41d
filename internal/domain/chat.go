package domain

import "fmt"

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMode selects how the AI service treats a query.
type ChatMode string

const (
	ChatModeChat       ChatMode = "chat"
	ChatModeSearchLaw  ChatMode = "search_law"
	ChatModeSearchCase ChatMode = "search_case"
)

// Valid reports whether the mode is known.
func (m ChatMode) Valid() bool {
	switch m {
	case ChatModeChat, ChatModeSearchLaw, ChatModeSearchCase:
		return true
	}
	return false
}

// ChatMessage is one transcript item. IsError marks failure bubbles.
type ChatMessage struct {
	Role    ChatRole
	Content string
	IsError bool
}

// DocumentKind tags a reference document variant.
type DocumentKind string

const (
	DocumentKindLaw    DocumentKind = "law"
	DocumentKindCase   DocumentKind = "case"
	DocumentKindManual DocumentKind = "manual"
)

// ParseDocumentKind validates a wire kind.
func ParseDocumentKind(raw string) (DocumentKind, error) {
	switch DocumentKind(raw) {
	case DocumentKindLaw, DocumentKindCase, DocumentKindManual:
		return DocumentKind(raw), nil
	}
	return "", fmt.Errorf("unknown document kind %q", raw)
}

// ReferenceDocument is a source returned alongside an AI answer.
// Section is set for laws and manuals, CaseNumber for cases.
type ReferenceDocument struct {
	Kind       DocumentKind
	Title      string
	Snippet    string
	Section    *string
	CaseNumber *string
	Score      *float64
	URL        *string
}

// ChatReply is a validated AI chat response.
type ChatReply struct {
	Answer    string
	Documents []ReferenceDocument
}

package workcenter

import (
	"context"
	"errors"
	"sync"

	"github.com/spec-kit/complaint-workcenter/internal/domain"
)

var errBoom = errors.New("boom")

type fakeBackend struct {
	mu sync.Mutex

	identity    *domain.Identity
	identityErr error
	detail      *domain.Complaint
	detailErr   error
	chatHistory []domain.ChatMessage
	historyErr  error

	// onDetail, when set, replaces the detail response on each call.
	onDetail func(call int) (*domain.Complaint, error)

	actionErr    error
	detailCalls  int
	assigned     int
	released     int
	answers      []answerCall
	reroutes     []domain.RerouteRequest
	historyCalls int
}

type answerCall struct {
	text        string
	isTemporary bool
}

func (f *fakeBackend) Me(ctx context.Context) (*domain.Identity, error) {
	if f.identityErr != nil {
		return nil, f.identityErr
	}
	return f.identity, nil
}

func (f *fakeBackend) ComplaintDetail(ctx context.Context, complaintID int64) (*domain.Complaint, error) {
	f.mu.Lock()
	f.detailCalls++
	call := f.detailCalls
	onDetail := f.onDetail
	detail, err := f.detail, f.detailErr
	f.mu.Unlock()
	if onDetail != nil {
		return onDetail(call)
	}
	if err != nil {
		return nil, err
	}
	return cloneComplaint(detail), nil
}

func (f *fakeBackend) Assign(ctx context.Context, complaintID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.actionErr != nil {
		return f.actionErr
	}
	f.assigned++
	return nil
}

func (f *fakeBackend) Release(ctx context.Context, complaintID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.actionErr != nil {
		return f.actionErr
	}
	f.released++
	return nil
}

func (f *fakeBackend) Answer(ctx context.Context, complaintID int64, answer string, isTemporary bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.actionErr != nil {
		return f.actionErr
	}
	f.answers = append(f.answers, answerCall{text: answer, isTemporary: isTemporary})
	return nil
}

func (f *fakeBackend) Reroute(ctx context.Context, req domain.RerouteRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.actionErr != nil {
		return f.actionErr
	}
	f.reroutes = append(f.reroutes, req)
	return nil
}

func (f *fakeBackend) ChatHistory(ctx context.Context, complaintID int64) ([]domain.ChatMessage, error) {
	f.mu.Lock()
	f.historyCalls++
	f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.chatHistory, nil
}

func (f *fakeBackend) setDetail(c *domain.Complaint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detail = c
}

type fakeDepartments struct {
	list  []domain.Department
	err   error
	calls int
}

func (f *fakeDepartments) Departments(ctx context.Context) ([]domain.Department, error) {
	f.calls++
	return f.list, f.err
}

// fakeAssistant blocks each call until a response is pushed on the matching channel.
type fakeAssistant struct {
	chatReplies  chan assistantChatResult
	draftReplies chan assistantDraftResult
	started      chan string
}

type assistantChatResult struct {
	reply *domain.ChatReply
	err   error
}

type assistantDraftResult struct {
	text string
	err  error
}

func newFakeAssistant() *fakeAssistant {
	return &fakeAssistant{
		chatReplies:  make(chan assistantChatResult, 4),
		draftReplies: make(chan assistantDraftResult, 4),
		started:      make(chan string, 8),
	}
}

func (f *fakeAssistant) Chat(ctx context.Context, complaintID int64, query string, mode domain.ChatMode) (*domain.ChatReply, error) {
	f.started <- "chat"
	select {
	case res := <-f.chatReplies:
		return res.reply, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeAssistant) GenerateDraft(ctx context.Context, complaintID int64, bodyText string) (string, error) {
	f.started <- "draft"
	select {
	case res := <-f.draftReplies:
		return res.text, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func ptr[T any](v T) *T {
	return &v
}

const callerID int64 = 42

func sampleComplaint(assignee *int64, latestStatus domain.ComplaintStatus) *domain.Complaint {
	return &domain.Complaint{
		OriginalID:    7,
		DisplayID:     "C2026-0007",
		Title:         "Pothole on main road",
		AssigneeID:    assignee,
		CurrentStatus: domain.ComplaintStatusInProgress,
		History: []domain.HistoryEntry{
			{
				EntryID:    "P-7",
				OriginalID: 7,
				IsParent:   true,
				Body:       "There is a large pothole near the crossing.",
				Answer:     ptr("We dispatched a crew."),
				Status:     domain.ComplaintStatusResolved,
			},
			{
				EntryID:    "C-3",
				OriginalID: 3,
				Body:       "The pothole is back.",
				Status:     latestStatus,
			},
		},
	}
}

func cloneComplaint(c *domain.Complaint) *domain.Complaint {
	if c == nil {
		return nil
	}
	out := *c
	out.History = append([]domain.HistoryEntry(nil), c.History...)
	return &out
}

func sampleDepartments() []domain.Department {
	return []domain.Department{
		{ID: 1, Name: "Transport Bureau", Category: domain.DepartmentCategoryBureau},
		{ID: 2, Name: "Environment Bureau", Category: domain.DepartmentCategoryBureau},
		{ID: 10, Name: "Traffic Administration", Category: domain.DepartmentCategoryDivision, ParentID: ptr[int64](1)},
		{ID: 11, Name: "Traffic Safety", Category: domain.DepartmentCategoryDivision, ParentID: ptr[int64](1)},
		{ID: 20, Name: "Waste Management", Category: domain.DepartmentCategoryDivision, ParentID: ptr[int64](2)},
		{ID: 99, Name: "Gangnam-gu", Category: domain.DepartmentCategoryOther},
	}
}

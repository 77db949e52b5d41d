package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-workcenter/internal/client"
	"github.com/spec-kit/complaint-workcenter/internal/domain"
	"github.com/spec-kit/complaint-workcenter/internal/events"
	"github.com/spec-kit/complaint-workcenter/internal/observability"
	"github.com/spec-kit/complaint-workcenter/internal/workcenter"
	apperrors "github.com/spec-kit/complaint-workcenter/pkg/util/errorutil"
)

const agentID int64 = 42

type stubBackend struct {
	mu            sync.Mutex
	authorization string
	assignee      *int64
	detailErr     error
	actionErr     error
	reroutes      []domain.RerouteRequest
}

func (b *stubBackend) Me(ctx context.Context) (*domain.Identity, error) {
	return &domain.Identity{UserID: agentID, DisplayName: "Kim", Role: domain.AgentRoleAgent}, nil
}

func (b *stubBackend) ComplaintDetail(ctx context.Context, complaintID int64) (*domain.Complaint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.detailErr != nil {
		return nil, b.detailErr
	}
	return &domain.Complaint{
		OriginalID:    complaintID,
		DisplayID:     fmt.Sprintf("C2026-%04d", complaintID),
		AssigneeID:    b.assignee,
		CurrentStatus: domain.ComplaintStatusInProgress,
		History: []domain.HistoryEntry{
			{EntryID: "P-1", IsParent: true, Body: "Streetlight is out.", Status: domain.ComplaintStatusInProgress},
		},
	}, nil
}

func (b *stubBackend) Assign(ctx context.Context, complaintID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.actionErr != nil {
		return b.actionErr
	}
	id := agentID
	b.assignee = &id
	return nil
}

func (b *stubBackend) Release(ctx context.Context, complaintID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.assignee = nil
	return b.actionErr
}

func (b *stubBackend) Answer(ctx context.Context, complaintID int64, answer string, isTemporary bool) error {
	return b.actionErr
}

func (b *stubBackend) Reroute(ctx context.Context, req domain.RerouteRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reroutes = append(b.reroutes, req)
	return b.actionErr
}

func (b *stubBackend) ChatHistory(ctx context.Context, complaintID int64) ([]domain.ChatMessage, error) {
	return nil, nil
}

func (b *stubBackend) Departments(ctx context.Context) ([]domain.Department, error) {
	parent := int64(1)
	return []domain.Department{
		{ID: 1, Name: "Transport Bureau", Category: domain.DepartmentCategoryBureau},
		{ID: 10, Name: "Traffic", Category: domain.DepartmentCategoryDivision, ParentID: &parent},
	}, nil
}

type stubAssistant struct{}

func (stubAssistant) Chat(ctx context.Context, complaintID int64, query string, mode domain.ChatMode) (*domain.ChatReply, error) {
	return &domain.ChatReply{Answer: "echo: " + query}, nil
}

func (stubAssistant) GenerateDraft(ctx context.Context, complaintID int64, bodyText string) (string, error) {
	return "draft", nil
}

type memoryActionLogs struct {
	mu      sync.Mutex
	entries []domain.ActionLog
}

func (m *memoryActionLogs) Create(ctx context.Context, entry *domain.ActionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActionLogs) ListByComplaint(ctx context.Context, complaintID int64, limit int) ([]domain.ActionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ActionLog(nil), m.entries...), nil
}

type fixture struct {
	svc      *SessionService
	backend  *stubBackend
	logs     *memoryActionLogs
	events   *[]events.EventType
	payloads map[events.EventType]any
	clock    *time.Time
}

func newFixture(t *testing.T, opts ...func(*SessionDependencies)) *fixture {
	t.Helper()
	backend := &stubBackend{}
	logs := &memoryActionLogs{}
	dispatcher := events.NewInMemoryDispatcher()
	NewAuditService(dispatcher, logs, zap.NewNop()).RegisterHandlers()

	var seen []events.EventType
	for _, et := range []events.EventType{events.EventSessionOpened, events.EventSessionClosed, events.EventComplaintAssigned} {
		dispatcher.Subscribe(et, func(ctx context.Context, e events.Event) error {
			seen = append(seen, e.Type)
			return nil
		})
	}
	payloads := map[events.EventType]any{}
	for _, et := range []events.EventType{events.EventComplaintAnswered, events.EventRerouteRequested} {
		dispatcher.Subscribe(et, func(ctx context.Context, e events.Event) error {
			payloads[e.Type] = e.Payload
			return nil
		})
	}

	clock := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	deps := SessionDependencies{
		Backends: func(authorization string) AgentBackend {
			backend.authorization = authorization
			return backend
		},
		Assistant:  stubAssistant{},
		Dispatcher: dispatcher,
		Metrics:    observability.NewMetrics(),
		IdleTTL:    10 * time.Minute,
		Now:        func() time.Time { return clock },
	}
	for _, opt := range opts {
		opt(&deps)
	}
	svc := NewSessionService(deps)
	t.Cleanup(func() { svc.Shutdown(context.Background()) })
	return &fixture{svc: svc, backend: backend, logs: logs, events: &seen, payloads: payloads, clock: &clock}
}

func (f *fixture) open(t *testing.T) *Session {
	t.Helper()
	sess, err := f.svc.Open(context.Background(), Caller{AgentID: agentID, Authorization: "Bearer t"}, "C2026-0007")
	require.NoError(t, err)
	return sess
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, code, de.Code)
}

func TestSessionService_Open(t *testing.T) {
	f := newFixture(t)
	sess := f.open(t)

	assert.Equal(t, "Bearer t", f.backend.authorization)
	assert.Equal(t, 1, f.svc.Count())
	assert.Equal(t, workcenter.StateReady, sess.Workcenter().State())
	assert.Equal(t, []events.EventType{events.EventSessionOpened}, *f.events)

	got, err := f.svc.Get(sess.ID, agentID)
	require.NoError(t, err)
	assert.Same(t, sess, got)
}

func TestSessionService_OpenNotFound(t *testing.T) {
	f := newFixture(t)
	f.backend.detailErr = &client.StatusError{StatusCode: http.StatusNotFound}
	_, err := f.svc.Open(context.Background(), Caller{AgentID: agentID}, "7")
	requireCode(t, err, "NOT_FOUND")
	assert.Zero(t, f.svc.Count())

	_, err = f.svc.Open(context.Background(), Caller{}, "7")
	requireCode(t, err, "UNAUTHORIZED")
}

func TestSessionService_OwnerCheck(t *testing.T) {
	f := newFixture(t)
	sess := f.open(t)

	_, err := f.svc.Get(sess.ID, 7)
	requireCode(t, err, "FORBIDDEN")
	_, err = f.svc.Get(uuid.New(), agentID)
	requireCode(t, err, "NOT_FOUND")
	requireCode(t, f.svc.Close(context.Background(), sess.ID, 7), "FORBIDDEN")
}

func TestSessionService_AssignIsAudited(t *testing.T) {
	f := newFixture(t)
	sess := f.open(t)

	require.NoError(t, f.svc.Assign(context.Background(), sess))
	assert.True(t, sess.Workcenter().View().Permissions.IsMine)
	assert.Contains(t, *f.events, events.EventComplaintAssigned)

	require.Len(t, f.logs.entries, 1)
	entry := f.logs.entries[0]
	assert.Equal(t, domain.ActionAssign, entry.Action)
	assert.Equal(t, int64(7), entry.ComplaintID)
	assert.Equal(t, agentID, entry.AgentID)
	assert.Equal(t, sess.ID, entry.SessionID)

	requireCode(t, f.svc.Assign(context.Background(), sess), "PRECONDITION_FAILED")
	assert.Len(t, f.logs.entries, 1)
}

func TestSessionService_ActionFailureIsNotAudited(t *testing.T) {
	f := newFixture(t)
	sess := f.open(t)
	f.backend.actionErr = &client.StatusError{StatusCode: http.StatusConflict}

	err := f.svc.Assign(context.Background(), sess)
	requireCode(t, err, "UPSTREAM_FAILED")
	assert.Empty(t, f.logs.entries)
}

func TestSessionService_RerouteAndAnswer(t *testing.T) {
	f := newFixture(t)
	id := agentID
	f.backend.assignee = &id
	sess := f.open(t)
	ctx := context.Background()
	wc := sess.Workcenter()

	require.NoError(t, wc.SetDraft("Straße gesperrt."))
	require.NoError(t, f.svc.SubmitAnswer(ctx, sess, true))
	assert.Equal(t, events.AnsweredPayload{IsTemporary: true, Length: 16}, f.payloads[events.EventComplaintAnswered])

	requireCode(t, f.svc.SubmitReroute(ctx, sess), "PRECONDITION_FAILED")
	require.NoError(t, wc.OpenReroute(ctx))
	require.NoError(t, wc.SelectRerouteBureau(1))
	require.NoError(t, wc.SelectRerouteDivision(10))
	require.NoError(t, wc.SetRerouteReason("traffic signals"))
	require.NoError(t, f.svc.SubmitReroute(ctx, sess))
	assert.Equal(t,
		events.RerouteRequestedPayload{TargetDepartmentID: 10, Reason: "traffic signals"},
		f.payloads[events.EventRerouteRequested])
	require.Len(t, f.backend.reroutes, 1)
	assert.Equal(t, int64(10), f.backend.reroutes[0].TargetDepartmentID)

	require.Len(t, f.logs.entries, 2)
	answer, reroute := f.logs.entries[0], f.logs.entries[1]
	require.NotNil(t, answer.IsTemporary)
	assert.True(t, *answer.IsTemporary)
	assert.Equal(t, domain.ActionReroute, reroute.Action)
	require.NotNil(t, reroute.TargetDepartmentID)
	assert.Equal(t, int64(10), *reroute.TargetDepartmentID)
	assert.Equal(t, "traffic signals", *reroute.Reason)
}

func TestSessionService_ReleaseNeedsConfirmation(t *testing.T) {
	f := newFixture(t)
	id := agentID
	f.backend.assignee = &id
	sess := f.open(t)
	ctx := context.Background()

	err := f.svc.Release(ctx, sess, false)
	requireCode(t, err, "CONFLICT")
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, map[string]any{"confirm": "required"}, de.Details)
	assert.NotNil(t, f.backend.assignee)
	assert.Empty(t, f.logs.entries)

	require.NoError(t, f.svc.Release(ctx, sess, true))
	assert.Nil(t, f.backend.assignee)
	require.Len(t, f.logs.entries, 1)
	assert.Equal(t, domain.ActionRelease, f.logs.entries[0].Action)
}

func TestSessionService_EvictsLeastRecentlyUsed(t *testing.T) {
	f := newFixture(t, func(d *SessionDependencies) { d.MaxSessionsPerAgent = 2 })
	ctx := context.Background()

	first := f.open(t)
	*f.clock = f.clock.Add(time.Minute)
	second := f.open(t)
	*f.clock = f.clock.Add(time.Minute)
	_, err := f.svc.Get(first.ID, agentID)
	require.NoError(t, err)
	*f.clock = f.clock.Add(time.Minute)

	other, err := f.svc.Open(ctx, Caller{AgentID: 99, Authorization: "Bearer o"}, "C2026-0008")
	require.NoError(t, err)
	third := f.open(t)

	assert.Equal(t, 3, f.svc.Count())
	assert.Equal(t, workcenter.StateClosed, second.Workcenter().State())
	_, err = f.svc.Get(second.ID, agentID)
	requireCode(t, err, "NOT_FOUND")
	for _, kept := range []*Session{first, third} {
		_, err := f.svc.Get(kept.ID, agentID)
		assert.NoError(t, err)
	}
	_, err = f.svc.Get(other.ID, 99)
	assert.NoError(t, err)
}

func TestAuditService_History(t *testing.T) {
	f := newFixture(t)
	sess := f.open(t)
	require.NoError(t, f.svc.Assign(context.Background(), sess))

	audit := NewAuditService(nil, f.logs, zap.NewNop())
	entries, err := audit.History(context.Background(), 7, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionAssign, entries[0].Action)

	empty, err := NewAuditService(nil, nil, zap.NewNop()).History(context.Background(), 7, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)
}

func TestSessionService_SweepAndClose(t *testing.T) {
	f := newFixture(t)
	stale := f.open(t)
	*f.clock = f.clock.Add(6 * time.Minute)
	fresh := f.open(t)
	*f.clock = f.clock.Add(6 * time.Minute)

	assert.Equal(t, 1, f.svc.Sweep(context.Background()))
	assert.Equal(t, workcenter.StateClosed, stale.Workcenter().State())
	_, err := f.svc.Get(stale.ID, agentID)
	requireCode(t, err, "NOT_FOUND")

	require.NoError(t, f.svc.Close(context.Background(), fresh.ID, agentID))
	assert.Zero(t, f.svc.Count())
	assert.Equal(t, events.EventSessionClosed, (*f.events)[len(*f.events)-1])
}

func TestSessionService_Shutdown(t *testing.T) {
	f := newFixture(t)
	sess := f.open(t)
	f.svc.Shutdown(context.Background())
	assert.Equal(t, workcenter.StateClosed, sess.Workcenter().State())
	_, err := f.svc.Open(context.Background(), Caller{AgentID: agentID}, "7")
	requireCode(t, err, "CONFLICT")
}

func TestMapWorkcenterError(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{fmt.Errorf("load: %w", workcenter.ErrNotFound), "NOT_FOUND"},
		{workcenter.ErrActionNotPermitted, "PRECONDITION_FAILED"},
		{workcenter.ErrRerouteIncomplete, "PRECONDITION_FAILED"},
		{workcenter.ErrEmptyQuery, "VALIDATION_FAILED"},
		{workcenter.ErrUnknownEntry, "VALIDATION_FAILED"},
		{workcenter.ErrOverwriteNotConfirmed, "CONFLICT"},
		{workcenter.ErrReleaseNotConfirmed, "CONFLICT"},
		{workcenter.ErrChatInFlight, "CONFLICT"},
		{fmt.Errorf("assign: %w", &client.StatusError{StatusCode: 409}), "UPSTREAM_FAILED"},
		{errors.New("dial tcp: refused"), "UPSTREAM_FAILED"},
		{apperrors.NewForbidden("x"), "FORBIDDEN"},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			requireCode(t, MapWorkcenterError(tc.err), tc.code)
		})
	}
	assert.NoError(t, MapWorkcenterError(nil))
}

package workcenter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/complaint-workcenter/internal/domain"
)

// State is the lifecycle of a workcenter session.
type State string

const (
	StateLoading  State = "LOADING"
	StateReady    State = "READY"
	StateMutating State = "MUTATING"
	StateNotFound State = "NOT_FOUND"
	StateClosed   State = "CLOSED"
)

// ErrNotFound is returned by Load when the complaint detail cannot be fetched.
var ErrNotFound = errors.New("complaint not found")

const maxNotifications = 50

// Backend is the complaint backend as seen by one agent.
type Backend interface {
	Me(ctx context.Context) (*domain.Identity, error)
	ComplaintDetail(ctx context.Context, complaintID int64) (*domain.Complaint, error)
	Assign(ctx context.Context, complaintID int64) error
	Release(ctx context.Context, complaintID int64) error
	Answer(ctx context.Context, complaintID int64, answer string, isTemporary bool) error
	Reroute(ctx context.Context, req domain.RerouteRequest) error
	ChatHistory(ctx context.Context, complaintID int64) ([]domain.ChatMessage, error)
}

// DepartmentSource provides the flat department list.
type DepartmentSource interface {
	Departments(ctx context.Context) ([]domain.Department, error)
}

// Assistant is the AI collaborator.
type Assistant interface {
	Chat(ctx context.Context, complaintID int64, query string, mode domain.ChatMode) (*domain.ChatReply, error)
	GenerateDraft(ctx context.Context, complaintID int64, bodyText string) (string, error)
}

// Dependencies bundles collaborators of a workcenter.
type Dependencies struct {
	Backend     Backend
	Departments DepartmentSource
	Assistant   Assistant
	Logger      *zap.Logger
	Now         func() time.Time
}

// Workcenter is one agent's session over one complaint. It is safe for
// concurrent use; collaborator calls never run under the state lock.
type Workcenter struct {
	ref         string
	backend     Backend
	departments DepartmentSource
	assistant   Assistant
	logger      *zap.Logger
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	state          State
	inflight       int
	identity       *domain.Identity
	complaint      *domain.Complaint
	timeline       Timeline
	reroute        RerouteWorkflow
	panel          assistantPanel
	notifications  []domain.Notification
	refetchIssued  uint64
	refetchApplied uint64
}

// New creates a workcenter for complaintRef (numeric or display id). The
// session scope is derived from parent and cancelled by Close.
func New(parent context.Context, complaintRef string, deps Dependencies) *Workcenter {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(parent)
	return &Workcenter{
		ref:         complaintRef,
		backend:     deps.Backend,
		departments: deps.Departments,
		assistant:   deps.Assistant,
		logger:      logger.With(zap.String("complaint_ref", complaintRef)),
		now:         now,
		ctx:         ctx,
		cancel:      cancel,
		state:       StateLoading,
		panel:       newAssistantPanel(),
	}
}

// Load fetches identity and complaint detail concurrently, then the chat history.
// Identity failure degrades to an unknown caller; detail failure is fatal.
func (w *Workcenter) Load(ctx context.Context) error {
	complaintID, err := domain.ParseComplaintID(w.ref)
	if err != nil {
		w.fail(err)
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	ctx, stop := w.scoped(ctx)
	defer stop()

	var (
		identity  *domain.Identity
		complaint *domain.Complaint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		me, err := w.backend.Me(gctx)
		if err != nil {
			w.logger.Warn("identity unavailable; continuing as unknown caller", zap.Error(err))
			return nil
		}
		identity = me
		return nil
	})
	g.Go(func() error {
		detail, err := w.backend.ComplaintDetail(gctx, complaintID)
		if err != nil {
			return err
		}
		complaint = detail
		return nil
	})
	if err := g.Wait(); err != nil {
		w.fail(err)
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	transcript, err := w.backend.ChatHistory(ctx, complaint.OriginalID)
	if err != nil {
		w.logger.Warn("chat history unavailable", zap.Int64("complaint_id", complaint.OriginalID), zap.Error(err))
		transcript = nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateClosed {
		return ErrClosed
	}
	w.identity = identity
	w.complaint = complaint
	w.timeline = NewTimeline(complaint.History)
	w.panel.transcript = append([]domain.ChatMessage(nil), transcript...)
	w.state = StateReady
	w.logger.Info("workcenter ready",
		zap.Int64("complaint_id", complaint.OriginalID),
		zap.Int("history_entries", len(complaint.History)),
		zap.Bool("identity_known", identity != nil))
	return nil
}

func (w *Workcenter) fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateClosed {
		return
	}
	w.state = StateNotFound
	w.notifyLocked(domain.NotificationError, "complaint could not be loaded")
	w.logger.Warn("complaint load failed", zap.Error(err))
}

// Close cancels every in-flight request of the session. It is idempotent.
func (w *Workcenter) Close() {
	w.mu.Lock()
	if w.state == StateClosed {
		w.mu.Unlock()
		return
	}
	w.state = StateClosed
	w.panel.cancelChat()
	w.panel.cancelDraft()
	w.mu.Unlock()
	w.cancel()
}

// State returns the lifecycle state.
func (w *Workcenter) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// ComplaintID returns the authoritative numeric id once loaded.
func (w *Workcenter) ComplaintID() (int64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.complaint == nil {
		return 0, false
	}
	return w.complaint.OriginalID, true
}

// SelectEntry shows another history entry. The draft buffer is replaced by
// that entry's persisted answer and an outstanding draft generation is
// cancelled. Reselecting the shown entry while a draft is generated is
// rejected with ErrDraftLocked.
func (w *Workcenter) SelectEntry(entryID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.readyLocked(); err != nil {
		return err
	}
	if _, ok := w.complaint.Entry(entryID); !ok {
		return ErrUnknownEntry
	}
	if entryID == w.timeline.SelectedID() && w.panel.draftState == DraftDrafting {
		return ErrDraftLocked
	}
	if entryID != w.timeline.SelectedID() && w.panel.cancelDraft() {
		w.notifyLocked(domain.NotificationInfo, "AI draft generation cancelled")
	}
	return w.timeline.Select(w.complaint.History, entryID)
}

// SetDraft edits the answer buffer.
func (w *Workcenter) SetDraft(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.readyLocked(); err != nil {
		return err
	}
	if _, actions := w.gateLocked(); !actions.CanEditDraft {
		return ErrActionNotPermitted
	}
	if w.panel.draftState == DraftDrafting {
		return ErrDraftLocked
	}
	w.timeline.SetDraft(text)
	return nil
}

// Assign takes the complaint for the caller.
func (w *Workcenter) Assign(ctx context.Context) error {
	return w.mutate(ctx, mutation{
		name:    "assign",
		success: "complaint assigned to you",
		failure: "assignment failed",
		prepare: func(a Actions) error {
			if !a.CanAssign {
				return ErrActionNotPermitted
			}
			return nil
		},
		call: w.backend.Assign,
	})
}

// Release gives up the caller's assignment. The caller must confirm it.
func (w *Workcenter) Release(ctx context.Context, confirmed bool) error {
	return w.mutate(ctx, mutation{
		name:    "release",
		success: "assignment released",
		level:   domain.NotificationInfo,
		failure: "release failed",
		prepare: func(a Actions) error {
			if !a.CanRelease {
				return ErrActionNotPermitted
			}
			if !confirmed {
				return ErrReleaseNotConfirmed
			}
			return nil
		},
		call: w.backend.Release,
	})
}

// SubmitAnswer saves (isTemporary) or sends the draft buffer as the answer
// and returns the text that was sent.
func (w *Workcenter) SubmitAnswer(ctx context.Context, isTemporary bool) (string, error) {
	var text string
	success := "answer sent"
	if isTemporary {
		success = "answer saved"
	}
	err := w.mutate(ctx, mutation{
		name:    "answer",
		success: success,
		failure: "answer submission failed",
		prepare: func(a Actions) error {
			if !a.CanAnswer {
				return ErrActionNotPermitted
			}
			if w.panel.draftState == DraftDrafting {
				return ErrDraftLocked
			}
			text = w.timeline.Draft()
			if strings.TrimSpace(text) == "" {
				w.notifyLocked(domain.NotificationWarning, "answer is empty")
				return ErrEmptyAnswer
			}
			return nil
		},
		call: func(ctx context.Context, id int64) error {
			return w.backend.Answer(ctx, id, text, isTemporary)
		},
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// OpenReroute shows the reroute dialog, loading the department snapshot on first use.
func (w *Workcenter) OpenReroute(ctx context.Context) error {
	w.mu.Lock()
	if err := w.readyLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	if _, actions := w.gateLocked(); !actions.CanReroute {
		w.mu.Unlock()
		return ErrActionNotPermitted
	}
	if w.reroute.departments != nil {
		w.reroute.Open(w.reroute.departments)
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	ctx, stop := w.scoped(ctx)
	defer stop()
	departments, err := w.departments.Departments(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.notifyLocked(domain.NotificationError, "departments could not be loaded")
		return fmt.Errorf("load departments: %w", err)
	}
	if err := w.readyLocked(); err != nil {
		return err
	}
	if orphans := Orphans(departments); len(orphans) > 0 {
		w.logger.Warn("divisions without a known bureau are hidden", zap.Int("count", len(orphans)))
	}
	if departments == nil {
		departments = []domain.Department{}
	}
	w.reroute.Open(departments)
	return nil
}

// CancelReroute hides the dialog, keeping entered data.
func (w *Workcenter) CancelReroute() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.readyLocked(); err != nil {
		return err
	}
	w.reroute.Cancel()
	return nil
}

// SelectRerouteBureau switches the bureau and clears the division.
func (w *Workcenter) SelectRerouteBureau(bureauID int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.readyLocked(); err != nil {
		return err
	}
	return w.reroute.SelectBureau(bureauID)
}

// SelectRerouteDivision picks a division of the selected bureau.
func (w *Workcenter) SelectRerouteDivision(divisionID int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.readyLocked(); err != nil {
		return err
	}
	return w.reroute.SelectDivision(divisionID)
}

// SetRerouteReason stores the reason text.
func (w *Workcenter) SetRerouteReason(reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.readyLocked(); err != nil {
		return err
	}
	return w.reroute.SetReason(reason)
}

// SubmitReroute sends the reroute request and returns it. On failure the
// dialog stays open with its data; on success it is cleared and closed.
func (w *Workcenter) SubmitReroute(ctx context.Context) (domain.RerouteRequest, error) {
	var req domain.RerouteRequest
	err := w.mutate(ctx, mutation{
		name:    "reroute",
		success: "reroute request submitted for approval",
		failure: "reroute request failed",
		prepare: func(a Actions) error {
			if !a.CanReroute {
				return ErrActionNotPermitted
			}
			var err error
			req, err = w.reroute.Request(w.complaint.OriginalID)
			return err
		},
		call: func(ctx context.Context, id int64) error {
			return w.backend.Reroute(ctx, req)
		},
		applied: func() {
			w.reroute.Reset()
		},
	})
	if err != nil {
		return domain.RerouteRequest{}, err
	}
	return req, nil
}

// Refresh refetches the complaint detail.
func (w *Workcenter) Refresh(ctx context.Context) error {
	w.mu.Lock()
	if err := w.readyLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()
	ctx, stop := w.scoped(ctx)
	defer stop()
	return w.refetch(ctx)
}

type mutation struct {
	name    string
	success string
	level   domain.NotificationLevel
	failure string
	prepare func(Actions) error
	call    func(ctx context.Context, complaintID int64) error
	applied func()
}

// mutate runs one backend action followed by an unconditional refetch. Local
// state is never patched optimistically.
func (w *Workcenter) mutate(ctx context.Context, m mutation) error {
	w.mu.Lock()
	if err := w.readyLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	_, actions := w.gateLocked()
	if err := m.prepare(actions); err != nil {
		w.mu.Unlock()
		return err
	}
	complaintID := w.complaint.OriginalID
	w.inflight++
	w.state = StateMutating
	w.mu.Unlock()

	defer w.finishMutation()

	ctx, stop := w.scoped(ctx)
	defer stop()

	if err := m.call(ctx, complaintID); err != nil {
		w.mu.Lock()
		w.notifyLocked(domain.NotificationError, m.failure)
		w.mu.Unlock()
		w.logger.Warn("workcenter action failed", zap.String("action", m.name), zap.Int64("complaint_id", complaintID), zap.Error(err))
		return fmt.Errorf("%s: %w", m.name, err)
	}

	w.mu.Lock()
	if m.applied != nil {
		m.applied()
	}
	level := m.level
	if level == "" {
		level = domain.NotificationSuccess
	}
	w.notifyLocked(level, m.success)
	w.mu.Unlock()
	w.logger.Info("workcenter action applied", zap.String("action", m.name), zap.Int64("complaint_id", complaintID))

	if err := w.refetch(ctx); err != nil && !errors.Is(err, ErrStaleResult) {
		w.logger.Warn("refetch after action failed", zap.String("action", m.name), zap.Error(err))
	}
	return nil
}

func (w *Workcenter) finishMutation() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inflight--
	if w.inflight == 0 && w.state == StateMutating {
		w.state = StateReady
	}
}

// refetch replaces the complaint with fresh detail. A response older than the
// last applied one is discarded.
func (w *Workcenter) refetch(ctx context.Context) error {
	w.mu.Lock()
	w.refetchIssued++
	generation := w.refetchIssued
	complaintID := w.complaint.OriginalID
	w.mu.Unlock()

	detail, err := w.backend.ComplaintDetail(ctx, complaintID)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateClosed {
		return ErrClosed
	}
	if err != nil {
		w.notifyLocked(domain.NotificationError, "complaint could not be refreshed")
		return fmt.Errorf("refetch: %w", err)
	}
	if generation <= w.refetchApplied {
		return ErrStaleResult
	}
	w.refetchApplied = generation
	previous := w.timeline.SelectedID()
	w.complaint = detail
	w.timeline.Refresh(detail.History)
	if w.timeline.SelectedID() != previous {
		w.panel.cancelDraft()
	}
	return nil
}

func (w *Workcenter) readyLocked() error {
	switch w.state {
	case StateReady, StateMutating:
		return nil
	case StateClosed:
		return ErrClosed
	default:
		return ErrNotReady
	}
}

func (w *Workcenter) gateLocked() (Permissions, Actions) {
	var callerID *int64
	if w.identity != nil {
		id := w.identity.UserID
		callerID = &id
	}
	p := DerivePermissions(GateInput{
		CallerID:        callerID,
		AssigneeID:      w.complaint.AssigneeID,
		ComplaintStatus: w.complaint.CurrentStatus,
		History:         w.complaint.History,
		SelectedEntryID: w.timeline.SelectedID(),
	})
	return p, DeriveActions(p, w.complaint.CurrentStatus, w.complaint.Parent())
}

func (w *Workcenter) notifyLocked(level domain.NotificationLevel, message string) {
	w.notifications = append(w.notifications, domain.Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: w.now(),
	})
	if over := len(w.notifications) - maxNotifications; over > 0 {
		w.notifications = append([]domain.Notification(nil), w.notifications[over:]...)
	}
}

// DrainNotifications returns pending notifications and clears them.
func (w *Workcenter) DrainNotifications() []domain.Notification {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.notifications
	w.notifications = nil
	return out
}

// scoped derives a request context that ends with either the session or the caller.
func (w *Workcenter) scoped(caller context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(w.ctx)
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

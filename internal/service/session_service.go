package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-workcenter/internal/domain"
	"github.com/spec-kit/complaint-workcenter/internal/events"
	"github.com/spec-kit/complaint-workcenter/internal/observability"
	"github.com/spec-kit/complaint-workcenter/internal/workcenter"
	apperrors "github.com/spec-kit/complaint-workcenter/pkg/util/errorutil"
)

// AgentBackend is the complaint backend bound to one agent's credentials.
type AgentBackend interface {
	workcenter.Backend
	workcenter.DepartmentSource
}

// BackendFactory binds the backend to the caller's Authorization header.
type BackendFactory func(authorization string) AgentBackend

// DepartmentWrapper decorates a department source, typically with a cache.
type DepartmentWrapper func(workcenter.DepartmentSource) workcenter.DepartmentSource

// Caller is the authenticated agent driving a session.
type Caller struct {
	AgentID       int64
	Authorization string
}

// Session is one open workcenter owned by one agent.
type Session struct {
	ID      uuid.UUID
	AgentID int64
	Ref     string
	Opened  time.Time

	wc *workcenter.Workcenter

	mu       sync.Mutex
	lastSeen time.Time
}

// Workcenter returns the session engine.
func (s *Session) Workcenter() *workcenter.Workcenter {
	return s.wc
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SessionDependencies bundles collaborators.
type SessionDependencies struct {
	Backends    BackendFactory
	Departments DepartmentWrapper
	Assistant   workcenter.Assistant
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	IdleTTL     time.Duration

	// MaxSessionsPerAgent caps concurrent sessions per agent; opening one
	// more evicts that agent's least recently used session.
	MaxSessionsPerAgent int
	Now                 func() time.Time
}

// SessionService owns all live workcenter sessions.
type SessionService struct {
	backends    BackendFactory
	departments DepartmentWrapper
	assistant   workcenter.Assistant
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	idleTTL     time.Duration
	maxPerAgent int
	now         func() time.Time

	root   context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewSessionService creates the service. Sessions live until closed, idle
// expiry or Shutdown.
func NewSessionService(deps SessionDependencies) *SessionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	idle := deps.IdleTTL
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	maxPerAgent := deps.MaxSessionsPerAgent
	if maxPerAgent <= 0 {
		maxPerAgent = 20
	}
	root, cancel := context.WithCancel(context.Background())
	return &SessionService{
		backends:    deps.Backends,
		departments: deps.Departments,
		assistant:   &instrumentedAssistant{next: deps.Assistant, metrics: deps.Metrics},
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		idleTTL:     idle,
		maxPerAgent: maxPerAgent,
		now:         now,
		root:        root,
		cancel:      cancel,
		sessions:    make(map[uuid.UUID]*Session),
	}
}

// Open creates a session for complaintRef and loads it.
func (s *SessionService) Open(ctx context.Context, caller Caller, complaintRef string) (*Session, error) {
	if caller.AgentID <= 0 {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	if s.root.Err() != nil {
		return nil, apperrors.NewConflict("service is shutting down", nil)
	}

	backend := s.backends(caller.Authorization)
	var departments workcenter.DepartmentSource = backend
	if s.departments != nil {
		departments = s.departments(backend)
	}

	id := uuid.New()
	logger := s.logger.With(zap.String("session_id", id.String()), zap.Int64("agent_id", caller.AgentID))
	wc := workcenter.New(s.root, complaintRef, workcenter.Dependencies{
		Backend:     backend,
		Departments: departments,
		Assistant:   s.assistant,
		Logger:      logger,
		Now:         s.now,
	})
	if err := wc.Load(ctx); err != nil {
		wc.Close()
		return nil, MapWorkcenterError(err)
	}

	now := s.now()
	sess := &Session{ID: id, AgentID: caller.AgentID, Ref: complaintRef, Opened: now, wc: wc, lastSeen: now}
	s.mu.Lock()
	s.sessions[id] = sess
	count := len(s.sessions)
	evicted := s.overflowLocked(caller.AgentID)
	s.mu.Unlock()
	s.metrics.SetSessionsOpen(count)

	complaintID, _ := wc.ComplaintID()
	logger.Info("session opened", zap.Int64("complaint_id", complaintID))
	s.publish(ctx, sess, events.EventSessionOpened, nil)
	for _, old := range evicted {
		s.remove(ctx, old, "evicted")
	}
	return sess, nil
}

// overflowLocked picks the agent's least recently used sessions beyond the cap.
func (s *SessionService) overflowLocked(agentID int64) []*Session {
	var owned []*Session
	for _, sess := range s.sessions {
		if sess.AgentID == agentID {
			owned = append(owned, sess)
		}
	}
	if len(owned) <= s.maxPerAgent {
		return nil
	}
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].idleSince().Before(owned[j].idleSince())
	})
	return owned[:len(owned)-s.maxPerAgent]
}

// Get returns the caller's session.
func (s *SessionService) Get(sessionID uuid.UUID, agentID int64) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFound("session", map[string]any{"session_id": sessionID.String()})
	}
	if sess.AgentID != agentID {
		return nil, apperrors.NewForbidden("session belongs to another agent")
	}
	sess.touch(s.now())
	return sess, nil
}

// Close ends the caller's session and cancels its in-flight requests.
func (s *SessionService) Close(ctx context.Context, sessionID uuid.UUID, agentID int64) error {
	sess, err := s.Get(sessionID, agentID)
	if err != nil {
		return err
	}
	s.remove(ctx, sess, "closed")
	return nil
}

// Sweep closes sessions idle for longer than the idle TTL and returns how many were closed.
func (s *SessionService) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.idleTTL)
	s.mu.RLock()
	var idle []*Session
	for _, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			idle = append(idle, sess)
		}
	}
	s.mu.RUnlock()

	for _, sess := range idle {
		s.remove(ctx, sess, "idle")
	}
	return len(idle)
}

// Count returns the number of open sessions.
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Shutdown closes every session.
func (s *SessionService) Shutdown(ctx context.Context) {
	s.cancel()
	s.mu.RLock()
	all := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.RUnlock()
	for _, sess := range all {
		s.remove(ctx, sess, "shutdown")
	}
}

func (s *SessionService) remove(ctx context.Context, sess *Session, reason string) {
	s.mu.Lock()
	if _, ok := s.sessions[sess.ID]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, sess.ID)
	count := len(s.sessions)
	s.mu.Unlock()

	sess.wc.Close()
	s.metrics.SetSessionsOpen(count)
	s.logger.Info("session closed", zap.String("session_id", sess.ID.String()), zap.String("reason", reason))
	s.publish(ctx, sess, events.EventSessionClosed, events.SessionClosedPayload{Reason: reason})
}

// Assign takes the complaint for the session owner.
func (s *SessionService) Assign(ctx context.Context, sess *Session) error {
	err := sess.wc.Assign(ctx)
	return s.afterAction(ctx, sess, domain.ActionAssign, events.EventComplaintAssigned, nil, err)
}

// Release gives up the owner's assignment once the agent confirmed it.
func (s *SessionService) Release(ctx context.Context, sess *Session, confirmed bool) error {
	err := sess.wc.Release(ctx, confirmed)
	return s.afterAction(ctx, sess, domain.ActionRelease, events.EventComplaintReleased, nil, err)
}

// SubmitAnswer saves or sends the draft buffer.
func (s *SessionService) SubmitAnswer(ctx context.Context, sess *Session, isTemporary bool) error {
	sent, err := sess.wc.SubmitAnswer(ctx, isTemporary)
	payload := events.AnsweredPayload{IsTemporary: isTemporary, Length: utf8.RuneCountInString(sent)}
	return s.afterAction(ctx, sess, domain.ActionAnswer, events.EventComplaintAnswered, payload, err)
}

// SubmitReroute files the reroute request held by the dialog.
func (s *SessionService) SubmitReroute(ctx context.Context, sess *Session) error {
	sent, err := sess.wc.SubmitReroute(ctx)
	payload := events.RerouteRequestedPayload{TargetDepartmentID: sent.TargetDepartmentID, Reason: sent.Reason}
	return s.afterAction(ctx, sess, domain.ActionReroute, events.EventRerouteRequested, payload, err)
}

func (s *SessionService) afterAction(ctx context.Context, sess *Session, action domain.ActionKind, eventType events.EventType, payload any, err error) error {
	if isLocalRejection(err) {
		return MapWorkcenterError(err)
	}
	s.metrics.RecordAction(string(action), err)
	if err != nil {
		return MapWorkcenterError(err)
	}
	s.publish(ctx, sess, eventType, payload)
	return nil
}

// isLocalRejection reports errors raised before any collaborator call.
func isLocalRejection(err error) bool {
	for _, target := range []error{
		workcenter.ErrNotReady,
		workcenter.ErrClosed,
		workcenter.ErrActionNotPermitted,
		workcenter.ErrEmptyAnswer,
		workcenter.ErrDraftLocked,
		workcenter.ErrReleaseNotConfirmed,
		workcenter.ErrRerouteClosed,
		workcenter.ErrRerouteIncomplete,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *SessionService) publish(ctx context.Context, sess *Session, eventType events.EventType, payload any) {
	if s.dispatcher == nil {
		return
	}
	complaintID, _ := sess.wc.ComplaintID()
	event := events.Event{
		ID:          uuid.New(),
		Type:        eventType,
		ComplaintID: complaintID,
		SessionID:   sess.ID,
		Actor:       events.Actor{AgentID: sess.AgentID},
		Timestamp:   s.now(),
		Payload:     payload,
	}
	if err := s.dispatcher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

// instrumentedAssistant records assistant latency and outcome.
type instrumentedAssistant struct {
	next    workcenter.Assistant
	metrics *observability.Metrics
}

func (a *instrumentedAssistant) Chat(ctx context.Context, complaintID int64, query string, mode domain.ChatMode) (*domain.ChatReply, error) {
	start := time.Now()
	reply, err := a.next.Chat(ctx, complaintID, query, mode)
	a.metrics.ObserveAssistant("chat", time.Since(start), err)
	return reply, err
}

func (a *instrumentedAssistant) GenerateDraft(ctx context.Context, complaintID int64, bodyText string) (string, error) {
	start := time.Now()
	text, err := a.next.GenerateDraft(ctx, complaintID, bodyText)
	a.metrics.ObserveAssistant("draft", time.Since(start), err)
	return text, err
}

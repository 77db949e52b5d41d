package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-workcenter/internal/domain"
	"github.com/spec-kit/complaint-workcenter/internal/events"
	"github.com/spec-kit/complaint-workcenter/internal/repository"
	apperrors "github.com/spec-kit/complaint-workcenter/pkg/util/errorutil"
)

// AuditService turns complaint action events into action log rows.
type AuditService struct {
	dispatcher events.Dispatcher
	repo       repository.ActionLogRepository
	logger     *zap.Logger
}

// NewAuditService creates the service. A nil repository only logs.
func NewAuditService(dispatcher events.Dispatcher, repo repository.ActionLogRepository, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		repo:       repo,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventComplaintAssigned, a.handleAction(domain.ActionAssign))
	a.dispatcher.Subscribe(events.EventComplaintReleased, a.handleAction(domain.ActionRelease))
	a.dispatcher.Subscribe(events.EventComplaintAnswered, a.handleAction(domain.ActionAnswer))
	a.dispatcher.Subscribe(events.EventRerouteRequested, a.handleAction(domain.ActionReroute))
	a.dispatcher.Subscribe(events.EventSessionOpened, a.handleSession)
	a.dispatcher.Subscribe(events.EventSessionClosed, a.handleSession)
}

func (a *AuditService) handleAction(action domain.ActionKind) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		entry := &domain.ActionLog{
			ID:          event.ID,
			ComplaintID: event.ComplaintID,
			AgentID:     event.Actor.AgentID,
			SessionID:   event.SessionID,
			Action:      action,
			CreatedAt:   event.Timestamp,
		}
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		switch p := event.Payload.(type) {
		case events.AnsweredPayload:
			temp := p.IsTemporary
			entry.IsTemporary = &temp
		case events.RerouteRequestedPayload:
			target, reason := p.TargetDepartmentID, p.Reason
			entry.TargetDepartmentID = &target
			entry.Reason = &reason
		}

		a.logger.Info("complaint action",
			zap.String("action", string(action)),
			zap.Int64("complaint_id", event.ComplaintID),
			zap.Int64("agent_id", event.Actor.AgentID),
			zap.String("session_id", event.SessionID.String()))

		if a.repo == nil {
			return nil
		}
		if err := a.repo.Create(ctx, entry); err != nil {
			return fmt.Errorf("store action log: %w", err)
		}
		return nil
	}
}

// History returns the newest action log rows of a complaint. Without a
// repository there is no stored trail and the result is empty.
func (a *AuditService) History(ctx context.Context, complaintID int64, limit int) ([]domain.ActionLog, error) {
	if a.repo == nil {
		return []domain.ActionLog{}, nil
	}
	entries, err := a.repo.ListByComplaint(ctx, complaintID, limit)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("list action logs: %w", err))
	}
	if entries == nil {
		entries = []domain.ActionLog{}
	}
	return entries, nil
}

func (a *AuditService) handleSession(ctx context.Context, event events.Event) error {
	a.logger.Debug(string(event.Type),
		zap.Int64("complaint_id", event.ComplaintID),
		zap.String("session_id", event.SessionID.String()),
		zap.Any("payload", event.Payload))
	return nil
}

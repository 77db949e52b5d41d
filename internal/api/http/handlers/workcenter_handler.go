package handlers

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/complaint-workcenter/internal/api/dto"
	"github.com/spec-kit/complaint-workcenter/internal/auth"
	"github.com/spec-kit/complaint-workcenter/internal/domain"
	"github.com/spec-kit/complaint-workcenter/internal/service"
	"github.com/spec-kit/complaint-workcenter/internal/workcenter"
	apperrors "github.com/spec-kit/complaint-workcenter/pkg/util/errorutil"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// WorkcenterHandler exposes workcenter sessions to agents.
type WorkcenterHandler struct {
	sessions *service.SessionService
	audit    *service.AuditService
}

// NewWorkcenterHandler constructs handler.
func NewWorkcenterHandler(sessions *service.SessionService, audit *service.AuditService) *WorkcenterHandler {
	return &WorkcenterHandler{sessions: sessions, audit: audit}
}

// Open POST /workcenter/sessions.
func (h *WorkcenterHandler) Open(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.OpenSessionRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	caller := service.Caller{AgentID: principal.AgentID, Authorization: principal.Authorization}
	sess, err := h.sessions.Open(c.UserContext(), caller, req.ComplaintID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.SessionResponse{
		SessionID: sess.ID,
		OpenedAt:  sess.Opened,
		View:      dto.NewViewResponse(sess.Workcenter().View()),
	}})
}

// Get GET /workcenter/sessions/:sid.
func (h *WorkcenterHandler) Get(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	return h.view(c, sess)
}

// Close DELETE /workcenter/sessions/:sid.
func (h *WorkcenterHandler) Close(c *fiber.Ctx) error {
	principal, sid, err := h.target(c)
	if err != nil {
		return err
	}
	if err := h.sessions.Close(c.UserContext(), sid, principal.AgentID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Refresh POST /workcenter/sessions/:sid/refresh.
func (h *WorkcenterHandler) Refresh(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	if err := sess.Workcenter().Refresh(c.UserContext()); err != nil {
		return service.MapWorkcenterError(err)
	}
	return h.view(c, sess)
}

// SelectEntry POST /workcenter/sessions/:sid/history/select.
func (h *WorkcenterHandler) SelectEntry(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req dto.SelectEntryRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := sess.Workcenter().SelectEntry(req.EntryID); err != nil {
		return service.MapWorkcenterError(err)
	}
	return h.view(c, sess)
}

// SetDraft PUT /workcenter/sessions/:sid/draft.
func (h *WorkcenterHandler) SetDraft(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req dto.DraftRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := sess.Workcenter().SetDraft(req.Text); err != nil {
		return service.MapWorkcenterError(err)
	}
	return h.view(c, sess)
}

// Assign POST /workcenter/sessions/:sid/assign.
func (h *WorkcenterHandler) Assign(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	if err := h.sessions.Assign(c.UserContext(), sess); err != nil {
		return err
	}
	return h.view(c, sess)
}

// Release POST /workcenter/sessions/:sid/release.
func (h *WorkcenterHandler) Release(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req dto.ReleaseRequest
	if len(c.Body()) > 0 {
		if err := bindJSON(c, &req); err != nil {
			return err
		}
	}
	if err := h.sessions.Release(c.UserContext(), sess, req.Confirm); err != nil {
		return err
	}
	return h.view(c, sess)
}

// Answer POST /workcenter/sessions/:sid/answer.
func (h *WorkcenterHandler) Answer(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req dto.AnswerRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := h.sessions.SubmitAnswer(c.UserContext(), sess, req.IsTemporary); err != nil {
		return err
	}
	return h.view(c, sess)
}

// OpenReroute POST /workcenter/sessions/:sid/reroute/open.
func (h *WorkcenterHandler) OpenReroute(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	if err := sess.Workcenter().OpenReroute(c.UserContext()); err != nil {
		return service.MapWorkcenterError(err)
	}
	return h.view(c, sess)
}

// CancelReroute POST /workcenter/sessions/:sid/reroute/cancel.
func (h *WorkcenterHandler) CancelReroute(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	if err := sess.Workcenter().CancelReroute(); err != nil {
		return service.MapWorkcenterError(err)
	}
	return h.view(c, sess)
}

// SelectBureau PUT /workcenter/sessions/:sid/reroute/bureau.
func (h *WorkcenterHandler) SelectBureau(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req dto.DepartmentRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := sess.Workcenter().SelectRerouteBureau(req.ID); err != nil {
		return service.MapWorkcenterError(err)
	}
	return h.view(c, sess)
}

// SelectDivision PUT /workcenter/sessions/:sid/reroute/division.
func (h *WorkcenterHandler) SelectDivision(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req dto.DepartmentRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := sess.Workcenter().SelectRerouteDivision(req.ID); err != nil {
		return service.MapWorkcenterError(err)
	}
	return h.view(c, sess)
}

// SetReason PUT /workcenter/sessions/:sid/reroute/reason.
func (h *WorkcenterHandler) SetReason(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req dto.ReasonRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := sess.Workcenter().SetRerouteReason(req.Reason); err != nil {
		return service.MapWorkcenterError(err)
	}
	return h.view(c, sess)
}

// SubmitReroute POST /workcenter/sessions/:sid/reroute/submit.
func (h *WorkcenterHandler) SubmitReroute(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	if err := h.sessions.SubmitReroute(c.UserContext(), sess); err != nil {
		return err
	}
	return h.view(c, sess)
}

// Chat POST /workcenter/sessions/:sid/chat.
func (h *WorkcenterHandler) Chat(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req dto.ChatRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	msg, err := sess.Workcenter().SendChat(c.UserContext(), req.Query, domain.ChatMode(req.Mode))
	if err != nil {
		return service.MapWorkcenterError(err)
	}
	return c.JSON(fiber.Map{"data": dto.ChatReplyResponse{
		Message: dto.NewChatMessageResponse(msg),
		View:    dto.NewViewResponse(sess.Workcenter().View()),
	}})
}

// GenerateDraft POST /workcenter/sessions/:sid/draft/generate.
func (h *WorkcenterHandler) GenerateDraft(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req dto.GenerateDraftRequest
	if len(c.Body()) > 0 {
		if err := bindJSON(c, &req); err != nil {
			return err
		}
	}
	text, err := sess.Workcenter().GenerateDraft(c.UserContext(), req.ConfirmOverwrite)
	if err != nil {
		return service.MapWorkcenterError(err)
	}
	return c.JSON(fiber.Map{"data": dto.DraftResponse{
		Draft: text,
		View:  dto.NewViewResponse(sess.Workcenter().View()),
	}})
}

// Notifications GET /workcenter/sessions/:sid/notifications.
func (h *WorkcenterHandler) Notifications(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	drained := sess.Workcenter().DrainNotifications()
	return c.JSON(fiber.Map{"data": dto.NewNotificationResponses(drained)})
}

// Audit GET /workcenter/sessions/:sid/audit.
func (h *WorkcenterHandler) Audit(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	complaintID, ok := sess.Workcenter().ComplaintID()
	if !ok {
		return service.MapWorkcenterError(workcenter.ErrNotReady)
	}
	limit := c.QueryInt("limit", defaultAuditLimit)
	if limit <= 0 || limit > maxAuditLimit {
		return apperrors.NewValidationError("invalid limit", map[string]any{"limit": fmt.Sprintf("1..%d", maxAuditLimit)})
	}
	if h.audit == nil {
		return c.JSON(fiber.Map{"data": []dto.ActionLogResponse{}})
	}
	entries, err := h.audit.History(c.UserContext(), complaintID, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewActionLogResponses(entries)})
}

func (h *WorkcenterHandler) target(c *fiber.Ctx) (*auth.Principal, uuid.UUID, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, uuid.Nil, apperrors.NewUnauthorized("agent required")
	}
	sid, err := uuid.Parse(c.Params("sid"))
	if err != nil {
		return nil, uuid.Nil, apperrors.NewValidationError("invalid session id", nil)
	}
	return principal, sid, nil
}

func (h *WorkcenterHandler) session(c *fiber.Ctx) (*service.Session, error) {
	principal, sid, err := h.target(c)
	if err != nil {
		return nil, err
	}
	return h.sessions.Get(sid, principal.AgentID)
}

func (h *WorkcenterHandler) view(c *fiber.Ctx, sess *service.Session) error {
	return c.JSON(fiber.Map{"data": dto.NewViewResponse(sess.Workcenter().View())})
}

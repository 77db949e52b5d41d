package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/complaint-workcenter/pkg/util/errorutil"
)

// DepartmentInvalidator drops the shared department snapshot.
type DepartmentInvalidator interface {
	Invalidate(ctx context.Context) error
}

// AdminHandler serves operator maintenance endpoints.
type AdminHandler struct {
	departments DepartmentInvalidator
}

// NewAdminHandler constructs handler. A nil invalidator means there is no
// department cache to drop.
func NewAdminHandler(departments DepartmentInvalidator) *AdminHandler {
	return &AdminHandler{departments: departments}
}

// InvalidateDepartments POST /workcenter/admin/departments/invalidate.
func (h *AdminHandler) InvalidateDepartments(c *fiber.Ctx) error {
	if h.departments == nil {
		return c.SendStatus(http.StatusNoContent)
	}
	if err := h.departments.Invalidate(c.UserContext()); err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

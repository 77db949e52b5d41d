package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-workcenter/internal/domain"
	apperrors "github.com/spec-kit/complaint-workcenter/pkg/util/errorutil"
)

// RequireRole ensures the principal has one of the allowed roles. With no
// roles given any authenticated agent passes.
func RequireRole(allowed ...domain.AgentRole) fiber.Handler {
	allowedSet := make(map[domain.AgentRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAgent admits operators of the complaint workcenter.
func RequireAgent() fiber.Handler {
	return RequireRole(domain.AgentRoleAgent, domain.AgentRoleAdmin)
}

package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/complaint-workcenter/internal/api/http/handlers"
	"github.com/spec-kit/complaint-workcenter/internal/auth"
	"github.com/spec-kit/complaint-workcenter/internal/domain"
	"github.com/spec-kit/complaint-workcenter/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Workcenter     *handlers.WorkcenterHandler
	Admin          *handlers.AdminHandler
	Metrics        *observability.Metrics
	AuthMiddleware *auth.AuthMiddleware

	// AssistantTimeout bounds the chat and draft routes, which skip the
	// global request timeout.
	AssistantTimeout time.Duration
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	wc := app.Group("/workcenter", cfg.AuthMiddleware.Handle, auth.RequireAgent())
	wc.Post("/sessions", cfg.Workcenter.Open)

	sess := wc.Group("/sessions/:sid")
	sess.Get("", cfg.Workcenter.Get)
	sess.Delete("", cfg.Workcenter.Close)
	sess.Post("/refresh", cfg.Workcenter.Refresh)
	sess.Post("/history/select", cfg.Workcenter.SelectEntry)
	sess.Put("/draft", cfg.Workcenter.SetDraft)
	sess.Post("/draft/generate", assistantTimeout(cfg.AssistantTimeout), cfg.Workcenter.GenerateDraft)
	sess.Post("/assign", cfg.Workcenter.Assign)
	sess.Post("/release", cfg.Workcenter.Release)
	sess.Post("/answer", cfg.Workcenter.Answer)

	reroute := sess.Group("/reroute")
	reroute.Post("/open", cfg.Workcenter.OpenReroute)
	reroute.Post("/cancel", cfg.Workcenter.CancelReroute)
	reroute.Put("/bureau", cfg.Workcenter.SelectBureau)
	reroute.Put("/division", cfg.Workcenter.SelectDivision)
	reroute.Put("/reason", cfg.Workcenter.SetReason)
	reroute.Post("/submit", cfg.Workcenter.SubmitReroute)

	sess.Post("/chat", assistantTimeout(cfg.AssistantTimeout), cfg.Workcenter.Chat)
	sess.Get("/notifications", cfg.Workcenter.Notifications)
	sess.Get("/audit", cfg.Workcenter.Audit)

	if cfg.Admin != nil {
		admin := wc.Group("/admin", auth.RequireRole(domain.AgentRoleAdmin))
		admin.Post("/departments/invalidate", cfg.Admin.InvalidateDepartments)
	}
}

func assistantTimeout(timeout time.Duration) fiber.Handler {
	if timeout <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return requestTimeoutMiddleware(timeout)
}

package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/helpdesk-core/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-core/internal/auth"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Dashboard      *handlers.DashboardHandler
	Events         *handlers.EventsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(
			cfg.Metrics.Registry,
			promhttp.HandlerOpts{EnableOpenMetrics: true},
		)))
	}

	api := app.Group("/api/v1")

	// anonymous submissions carry contact details instead of an account
	api.Post("/public/tickets", cfg.Tickets.CreatePublic)

	protected := api.Group("", cfg.AuthMiddleware.Handle)

	tickets := protected.Group("/tickets")
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Post("/bulk/assign", auth.RequireStaff(), cfg.Tickets.BulkAssign)
	tickets.Post("/bulk/status", auth.RequireStaff(), cfg.Tickets.BulkChangeStatus)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Post("/:id/assign", auth.RequireStaff(), cfg.Tickets.Assign)
	tickets.Post("/:id/status", auth.RequireStaff(), cfg.Tickets.ChangeStatus)
	tickets.Post("/:id/priority", auth.RequireRole(domain.RoleHead, domain.RoleAdmin), cfg.Tickets.ChangePriority)
	tickets.Post("/:id/reopen", cfg.Tickets.Reopen)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Post("/:id/attachments", cfg.Tickets.AddAttachment)
	tickets.Post("/:id/rating", cfg.Tickets.Rate)

	dashboard := protected.Group("/dashboard", auth.RequireStaff())
	dashboard.Get("/overview", cfg.Dashboard.Overview)
	dashboard.Get("/analytics", cfg.Dashboard.Analytics)
	dashboard.Get("/team-performance", cfg.Dashboard.TeamPerformance)

	protected.Get("/ws", cfg.Events.Upgrade, cfg.Events.Serve())
}

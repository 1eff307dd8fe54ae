package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/plantops/escalation-service/internal/api/http/handlers"
	"github.com/plantops/escalation-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Inbox          *handlers.InboxHandler
	WS             *handlers.WSHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.PatchTicket)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Post("/:id/attachments", cfg.Tickets.UploadAttachment)
	tickets.Get("/:id/attachments", cfg.Tickets.ListAttachments)
	tickets.Post("/:id/status", cfg.Tickets.SetStatus)
	tickets.Post("/:id/forward", cfg.Tickets.ForwardTicket)

	inbox := app.Group("/inbox", cfg.AuthMiddleware.Handle)
	inbox.Get("", cfg.Inbox.List)
	inbox.Post("/read-all", cfg.Inbox.MarkAllRead)
	inbox.Post("/read/:id", cfg.Inbox.MarkRead)
	inbox.Post("/clear", cfg.Inbox.Clear)
	inbox.Delete("/:id", cfg.Inbox.Delete)

	app.Get("/ws/notifications", cfg.AuthMiddleware.Handle, cfg.WS.Upgrade, cfg.WS.Serve())
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/history-diff-service/internal/api/http/handlers"
	"github.com/spec-kit/history-diff-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	History        *handlers.HistoryHandler
	Settings       *handlers.SettingsHandler
	Events         *handlers.EventsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle)

	protected.Get("/projects/:project/items/:id/history", cfg.History.Load)
	protected.Post("/projects/:project/items/:id/history/recompute", cfg.History.Recompute)

	protected.Post("/sessions/:session/cells/:cell/expand", cfg.History.Expand)
	protected.Post("/sessions/:session/show-all", cfg.History.ShowAll)
	protected.Post("/sessions/:session/restore", cfg.History.Restore)

	protected.Get("/settings", cfg.Settings.Get)
	protected.Put("/settings", cfg.Settings.Put)

	protected.Post("/events", cfg.Events.Publish)
}

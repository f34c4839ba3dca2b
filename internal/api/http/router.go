package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/devlab/internal/api/http/handlers"
	"github.com/spec-kit/devlab/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Registrations  *handlers.RegistrationsHandler
	Users          *handlers.UsersHandler
	Projects       *handlers.ProjectsHandler
	Teams          *handlers.TeamsHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/public/overview", cfg.Dashboard.Public)
	app.Post("/registrations", cfg.Registrations.Submit)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)

	authed := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	authed.Post("/auth/logout", cfg.Auth.Logout)
	authed.Get("/auth/me", cfg.Auth.Me)
	authed.Post("/auth/password/change", cfg.Auth.ChangePassword)
	authed.Get("/dashboard", cfg.Dashboard.Dashboard)

	// Directory reads are open to every role; the service narrows the view.
	authed.Get("/projects", cfg.Projects.List)
	authed.Get("/projects/:id", cfg.Projects.Get)
	authed.Get("/projects/:id/participants", cfg.Projects.Participants)
	authed.Get("/teams", cfg.Teams.List)
	authed.Get("/teams/:id", cfg.Teams.Get)

	coord := authed.Group("", auth.RequireCoordinator())
	coord.Get("/metrics", cfg.Health.Metrics)

	coord.Get("/registrations", cfg.Registrations.List)
	coord.Get("/registrations/:id", cfg.Registrations.Get)
	coord.Post("/registrations/:id/approve", cfg.Registrations.Approve)
	coord.Post("/registrations/:id/reject", cfg.Registrations.Reject)

	coord.Get("/users", cfg.Users.List)
	coord.Post("/users", cfg.Users.Create)
	coord.Get("/users/:id", cfg.Users.Get)
	coord.Put("/users/:id", cfg.Users.Update)
	coord.Delete("/users/:id", cfg.Users.Delete)

	coord.Post("/projects", cfg.Projects.Create)
	coord.Put("/projects/:id", cfg.Projects.Update)
	coord.Delete("/projects/:id", cfg.Projects.Delete)

	coord.Post("/teams", cfg.Teams.Create)
	coord.Put("/teams/:id", cfg.Teams.Update)
	coord.Delete("/teams/:id", cfg.Teams.Delete)
	coord.Post("/teams/:id/members", cfg.Teams.AddMember)
	coord.Delete("/teams/:id/members/:userID", cfg.Teams.RemoveMember)
}

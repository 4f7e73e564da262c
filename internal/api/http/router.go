package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/result-service/internal/api/http/handlers"
	"github.com/spec-kit/result-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Results        *handlers.ResultsHandler
	AuthMiddleware *auth.AuthMiddleware
	LoginLimiter   *LoginRateLimiter
	Metrics        fiber.Handler
}

// RegisterRoutes wires HTTP routes. Every protected route names its operation so
// the role policy table is the only place roles are decided.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.LoginLimiter.Handle, cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, auth.RequireOperation(auth.OpViewProfile), cfg.Auth.Me)

	results := app.Group("/results", cfg.AuthMiddleware.Handle)
	results.Post("/", auth.RequireOperation(auth.OpUploadResults), cfg.Results.Upload)
	results.Put("/submit", auth.RequireOperation(auth.OpSubmitResults), cfg.Results.Submit)
	results.Put("/department-approve", auth.RequireOperation(auth.OpDepartmentApprove), cfg.Results.DepartmentApprove)
	results.Put("/faculty-approve", auth.RequireOperation(auth.OpFacultyApprove), cfg.Results.FacultyApprove)
	results.Put("/final-approve", auth.RequireOperation(auth.OpFinalApprove), cfg.Results.FinalApprove)
	results.Get("/mine", auth.RequireOperation(auth.OpListOwnResults), cfg.Results.Mine)
	results.Get("/pending", auth.RequireOperation(auth.OpListPending), cfg.Results.Pending)
	results.Get("/student/:id", auth.RequireOperation(auth.OpViewStudentResult), cfg.Results.ForStudent)
	results.Get("/:id/history", auth.RequireOperation(auth.OpViewHistory), cfg.Results.History)
}

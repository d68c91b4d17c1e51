package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/klasse-app/klasse-api/internal/config"
	"github.com/klasse-app/klasse-api/internal/handler"
	"github.com/klasse-app/klasse-api/internal/middleware"
	"github.com/klasse-app/klasse-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ClassHandler        *handler.ClassHandler
	UnitHandler         *handler.UnitHandler
	AssignmentHandler   *handler.AssignmentHandler
	EnrollmentHandler   *handler.EnrollmentHandler
	SubmissionHandler   *handler.SubmissionHandler
	GradingHandler      *handler.GradingHandler
	ReportHandler       *handler.ReportHandler
	NotificationHandler *handler.NotificationHandler
	CommentHandler      *handler.CommentHandler
	UserHandler         *handler.UserHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	protected := api.Group("", jwtMiddleware)

	// Coarse role gate for teacher-facing groups; per-class ownership is
	// enforced in the services.
	teacherOnly := middleware.WithAuth(func(c *fiber.Ctx) error {
		return c.Next()
	}, middleware.AuthOptions{Role: middleware.AuthRoleTeacher})

	if deps.ClassHandler != nil {
		classes := protected.Group("/classes", teacherOnly)
		deps.ClassHandler.Register(classes)
	}

	if deps.UnitHandler != nil {
		units := protected.Group("/units", teacherOnly)
		deps.UnitHandler.Register(units)
	}

	if deps.AssignmentHandler != nil {
		assignments := protected.Group("/assignments")
		deps.AssignmentHandler.Register(assignments)
	}

	if deps.EnrollmentHandler != nil {
		enroll := protected.Group("/enrollments", middleware.RateLimit("enroll", 10, time.Minute))
		deps.EnrollmentHandler.Register(enroll)
	}

	if deps.SubmissionHandler != nil {
		submissions := protected.Group("/submissions")
		deps.SubmissionHandler.Register(submissions)

		if deps.GradingHandler != nil {
			deps.GradingHandler.Register(submissions)
		}
	}

	if deps.ReportHandler != nil {
		reports := protected.Group("/reports", teacherOnly)
		deps.ReportHandler.Register(reports)
	}

	if deps.NotificationHandler != nil {
		notifications := protected.Group("/notifications")
		deps.NotificationHandler.Register(notifications)
	}

	if deps.CommentHandler != nil {
		comments := protected.Group("/comments")
		deps.CommentHandler.Register(comments)
	}

	if deps.UserHandler != nil {
		users := protected.Group("/users")
		deps.UserHandler.Register(users)
	}
}

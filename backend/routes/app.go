package routes

import (
	"context"
	"time"

	"learning-platform/backend/middleware"
	"learning-platform/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberutils "github.com/gofiber/fiber/v2/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewApp builds the Fiber application with middleware, the API routes and
// the operational endpoints.
func NewApp(d Deps, reporter *utils.Reporter) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      d.Cfg.AppName,
		BodyLimit:    d.Cfg.MaxUploadMB * 1024 * 1024,
		ErrorHandler: errorHandler(reporter),
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	app.Use(middleware.LoggingMiddleware(d.Logger))
	app.Use(middleware.MetricsMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := d.DB.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Static("/files", d.Cfg.StorageDir)

	SetupRoutes(app, d)

	app.Use(func(c *fiber.Ctx) error {
		return utils.NotFound(c, "Route not found")
	})
	return app
}

// errorHandler writes the error envelope for errors handlers returned
// instead of writing themselves. Server errors are reported and their
// details kept out of the response. Rollbar sends asynchronously, so the
// extras must not alias request memory.
func errorHandler(reporter *utils.Reporter) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := utils.StatusFor(err)
		if status >= fiber.StatusInternalServerError {
			reporter.Error(err, map[string]interface{}{
				"method": fiberutils.CopyString(c.Method()),
				"path":   fiberutils.CopyString(c.Path()),
			})
			return utils.Error(c, status, fiber.NewError(status, "Internal server error"))
		}
		return utils.Error(c, status, err)
	}
}

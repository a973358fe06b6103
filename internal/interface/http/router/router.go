package router

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"

	"github.com/wichananm65/users-api/internal/interface/http/handler"
	"github.com/wichananm65/users-api/internal/logging"
)

// New builds the fiber app with middleware, health check and user routes.
func New(userHandler *handler.UserHandler, logger logging.Logger, allowOrigins string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "users-api",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	setupCORS(app, allowOrigins)
	app.Use(requestLogger(logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	userHandler.RegisterRoutes(app)

	return app
}

func setupCORS(app *fiber.App, allowOrigins string) {
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: "GET,POST,HEAD,DELETE",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
}

// requestLogger logs one line per request once the response status is known.
// Errors from later handlers are rendered here so the logged status matches.
func requestLogger(logger logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if hErr := c.App().Config().ErrorHandler(c, err); hErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		logger.Info(c.UserContext(), "request",
			"method", c.Method(),
			"url", c.OriginalURL(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
			"request_id", handler.RequestID(c),
		)
		return nil
	}
}

func errorHandler(logger logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			switch {
			case fe.Code == fiber.StatusNotFound:
				return c.Status(fe.Code).JSON(fiber.Map{"detail": "Not Found"})
			case fe.Code == fiber.StatusMethodNotAllowed:
				return c.Status(fe.Code).JSON(fiber.Map{"detail": "Method Not Allowed"})
			case fe.Code < fiber.StatusInternalServerError:
				return c.Status(fe.Code).JSON(fiber.Map{"detail": utils.StatusMessage(fe.Code)})
			}
		}

		logger.Error(c.UserContext(), "unhandled error",
			"error", err,
			"request_id", handler.RequestID(c),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
	}
}

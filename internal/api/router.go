package api

import (
	"fintrack/docs"
	"fintrack/internal/api/handlers"
	"fintrack/pkg/auth"
	"fintrack/pkg/config"
	"fintrack/pkg/metrics"
	"fintrack/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Transaction  *handlers.TransactionHandler
	Budget       *handlers.BudgetHandler
	Goal         *handlers.GoalHandler
	Import       *handlers.ImportHandler
	Advisor      *handlers.AdvisorHandler
	Notification *handlers.NotificationHandler
}

func SetupRouter(h Handlers, jwtManager *auth.JWTManager, cfg *config.Config, appLogger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BodyLimit:    cfg.Server.BodyLimit,
		ErrorHandler: handlers.ErrorHandler(appLogger),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Cron-Secret",
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	_ = docs.SwaggerInfo // registers the swagger spec through init()
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if cfg.Metrics.Enabled {
		app.Get("/metrics", metrics.Handler())
	}

	// Auth routes (public)
	authGroup := app.Group("/user/auth")
	authGroup.Post("/register", h.Auth.Register)
	authGroup.Post("/login", h.Auth.Login)
	authGroup.Post("/refresh", h.Auth.RefreshToken)

	// Registered before the protected group so the JWT middleware never runs for them
	cronOnly := middleware.CronSecret(cfg.Server.CronSecret, appLogger)
	app.Post("/api/v1/notifications/send-daily", cronOnly, h.Notification.SendDaily)
	app.Delete("/api/v1/notifications/schedule", cronOnly, h.Notification.CancelSchedule)
	app.Get("/api/v1/notifications/vapid-public-key", h.Notification.PublicKey)

	// Protected routes
	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))

	protected.Get("/categories", h.Transaction.Categories)

	transactions := protected.Group("/transactions")
	transactions.Get("", h.Transaction.List)
	transactions.Post("", h.Transaction.Create)
	transactions.Get("/export", h.Transaction.Export)
	transactions.Put("/:id", h.Transaction.Update)
	transactions.Delete("/:id", h.Transaction.Delete)

	budgets := protected.Group("/budgets")
	budgets.Get("", h.Budget.List)
	budgets.Post("", h.Budget.Upsert)
	budgets.Delete("/:id", h.Budget.Delete)

	goals := protected.Group("/goals")
	goals.Get("", h.Goal.List)
	goals.Post("", h.Goal.Create)
	goals.Put("/:id", h.Goal.Update)
	goals.Delete("/:id", h.Goal.Delete)
	goals.Post("/:id/contribute", h.Goal.Contribute)

	imports := protected.Group("/import")
	imports.Post("/upload", h.Import.Upload)
	imports.Post("/parse", h.Import.Parse)
	imports.Post("/classify", h.Import.Classify)
	imports.Post("/bulk-import", h.Import.BulkImport)

	protected.Post("/analysis/analyze", h.Advisor.Analyze)
	protected.Post("/chat", h.Advisor.Chat)

	notifications := protected.Group("/notifications")
	notifications.Post("/subscribe", h.Notification.Subscribe)
	notifications.Delete("/subscribe", h.Notification.Unsubscribe)
	notifications.Post("/test", h.Notification.Test)
	notifications.Get("/schedule", h.Notification.Schedule)

	return app
}

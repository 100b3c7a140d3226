package api

import (
	"keeper/docs"
	"keeper/internal/api/handlers"
	"keeper/pkg/auth"
	"keeper/pkg/config"
	"keeper/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

type Handlers struct {
	Customers *handlers.CustomerHandler
	Matches   *handlers.MatchHandler
	Insights  *handlers.InsightHandler
}

func SetupRouter(h Handlers, jwtManager *auth.JWTManager, cfg config.ServerConfig, appLogger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Protected routes
	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))

	protected.Post("/customers", h.Customers.IngestCustomers)
	protected.Post("/customers/embeddings", h.Customers.BackfillEmbeddings)
	protected.Post("/transactions", h.Customers.IngestTransactions)

	protected.Post("/matches", h.Matches.FindMatches)
	protected.Post("/matches/batch", h.Matches.MatchBatch)

	insights := protected.Group("/insights")
	insights.Get("", h.Insights.ListInsights)
	insights.Post("/generate", h.Insights.GenerateInsights)
	insights.Post("/consensus", h.Insights.RunConsensus)

	return app
}

package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/spatialtiles/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestLoggerMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 600 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        600,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler())
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")

	// Geometry
	v1.Get("/spatial-ids/:z/:f/:x/:y/cuboid", timeout.NewWithContext(CuboidHandler(deps), requestTimeout))
	v1.Get("/tilesets/spatial-ids", timeout.NewWithContext(SpatialIDTilesetHandler(deps), requestTimeout))
	v1.Get("/content/spatial-ids.i3dm", timeout.NewWithContext(SpatialIDContentHandler(deps), requestTimeout))
	v1.Post("/tilesets", timeout.NewWithContext(CreateTilesetHandler(deps), requestTimeout))
	v1.Get("/geoid", timeout.NewWithContext(GeoidHandler(deps), requestTimeout))

	// Barriers
	v1.Post("/barriers", timeout.NewWithContext(UpsertBarrierHandler(deps), requestTimeout))
	v1.Get("/barriers", timeout.NewWithContext(ListBarriersHandler(deps), requestTimeout))
	v1.Get("/barriers/:id", timeout.NewWithContext(GetBarrierHandler(deps), requestTimeout))
	v1.Delete("/barriers/:id", timeout.NewWithContext(DeleteBarrierHandler(deps), requestTimeout))
	v1.Get("/barriers/:id/tileset.json", timeout.NewWithContext(BarrierTilesetHandler(deps), requestTimeout))
	v1.Get("/barriers/:id/content.i3dm", timeout.NewWithContext(BarrierContentHandler(deps), requestTimeout))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app, deps.DocsPath)

	// WebSocket relay of barrier change events
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}

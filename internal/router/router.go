package router

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/lostfound-api/internal/config"
	"github.com/noah-isme/lostfound-api/internal/handler"
	"github.com/noah-isme/lostfound-api/internal/middleware"
	"github.com/noah-isme/lostfound-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ItemHandler  *handler.ItemHandler
	ChatHandler  *handler.ChatHandler
	HealthProbes map[string]handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	if deps.ItemHandler != nil {
		deps.ItemHandler.Register(api.Group("/items"))
	}
	if deps.ChatHandler != nil {
		deps.ChatHandler.Register(api.Group("/chat"))
	}

	app.Get("/metrics", observability.MetricsHandler())

	registerStatic(app, cfg.StaticDir)
}

// registerStatic serves the app shell when the directory exists.
func registerStatic(app *fiber.App, dir string) {
	if dir == "" {
		return
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return
	}

	app.Use(middleware.StaticCacheControl())
	app.Static("/", dir, fiber.Static{
		Index:         "index.html",
		CacheDuration: 10 * time.Second,
	})
}

// RateLimiter returns the limiter applied to chat posting.
func RateLimiter(cfg config.Config) fiber.Handler {
	return middleware.RateLimit("chat", cfg.ChatRateLimit, time.Minute)
}

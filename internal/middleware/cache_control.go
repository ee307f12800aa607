package middleware

import (
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	noStore         = "no-cache, no-store, must-revalidate"
	longLivedAssets = "public, max-age=86400"
)

// StaticCacheControl sets cache headers on app shell responses. Markup, styles
// and scripts always revalidate so a new release is picked up; images may be
// cached for a day. The offline worker script may control the whole origin.
func StaticCacheControl() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/api") || c.Path() == "/metrics" {
			return c.Next()
		}

		err := c.Next()

		switch ext := strings.ToLower(path.Ext(c.Path())); ext {
		case "", ".html", ".css", ".js", ".json", ".webmanifest":
			c.Set(fiber.HeaderCacheControl, noStore)
			c.Set(fiber.HeaderPragma, "no-cache")
			c.Set(fiber.HeaderExpires, "0")
		case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".ico":
			c.Set(fiber.HeaderCacheControl, longLivedAssets)
		}

		if c.Path() == "/sw.js" {
			c.Set("Service-Worker-Allowed", "/")
		}

		return err
	}
}

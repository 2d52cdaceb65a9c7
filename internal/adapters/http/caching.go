package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on successful GET responses that did
// not set one. Geometry depends only on the request and the geoid grid, so
// it is cacheable for a day; stored barriers change and must revalidate.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || c.Response().StatusCode() != fiber.StatusOK {
			return err
		}
		if len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}

		path := c.Path()
		var ttl string
		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"
		case path == "/metrics":
			ttl = "no-cache"
		case strings.HasPrefix(path, "/v1/barriers"):
			ttl = "no-cache"
		case strings.HasPrefix(path, "/v1/spatial-ids/"),
			strings.HasPrefix(path, "/v1/tilesets/"),
			strings.HasPrefix(path, "/v1/content/"),
			path == "/v1/geoid":
			ttl = "public, max-age=86400"
		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=300"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}

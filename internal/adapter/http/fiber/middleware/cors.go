package middleware

import (
	"github.com/gofiber/fiber/v2"
	fibercors "github.com/gofiber/fiber/v2/middleware/cors"
)

// DefaultCORS allows any origin to reach the operator HTTP surface. The
// surface is deliberately unauthenticated (SPEC_FULL.md §4.9), so there is
// no origin allowlist to honor.
func DefaultCORS() fiber.Handler {
	return fibercors.New(fibercors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	})
}

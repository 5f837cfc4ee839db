package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/sigec-ve/internal/infrastructure/circuitbreaker"
)

// CircuitBreaker wraps the HTTP surface with the same breaker implementation
// guarding the C7 command path, so an operator request fails fast the same
// way an outbound OCPP Call does rather than piling up behind a stuck
// dependency.
func CircuitBreaker(manager *circuitbreaker.Manager, log *zap.Logger) fiber.Handler {
	cb := manager.Get("http-api", circuitbreaker.Settings{
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	})

	return func(c *fiber.Ctx) error {
		_, err := cb.Execute(func() (interface{}, error) {
			return nil, c.Next()
		})

		if circuitbreaker.IsCircuitOpen(err) || circuitbreaker.IsTooManyRequests(err) {
			log.Warn("circuit breaker rejecting request",
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.Error(err),
			)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "service temporarily unavailable",
			})
		}

		return err
	}
}

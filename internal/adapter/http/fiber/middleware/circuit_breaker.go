package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/seu-repo/botcore/internal/infrastructure/circuitbreaker"
)

// CircuitBreaker sheds load with 503 while the API keeps failing with 5xx.
// Client errors do not count against the breaker.
func CircuitBreaker(settings circuitbreaker.Settings, log *zap.Logger) fiber.Handler {
	cb := circuitbreaker.New(settings, log)

	return func(c *fiber.Ctx) error {
		var handlerErr error
		_, err := cb.Execute(func() (interface{}, error) {
			handlerErr = c.Next()
			if handlerErr == nil {
				return nil, nil
			}
			if code, _ := Status(handlerErr); code < fiber.StatusInternalServerError {
				return nil, nil
			}
			return nil, handlerErr
		})

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Service temporarily unavailable",
				"code":  "circuit_open",
			})
		}

		return handlerErr
	}
}

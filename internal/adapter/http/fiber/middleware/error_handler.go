package middleware

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/botcore/internal/domain"
)

// RetryAfterSeconds is advertised on 503 responses caused by a store outage.
const RetryAfterSeconds = 1

// Status maps an engine error onto an HTTP status and a stable error code.
func Status(err error) (int, string) {
	var (
		fe           *fiber.Error
		notTrained   *domain.NotTrainedError
		ended        *domain.SessionEndedError
		unavailable  *domain.ContextStoreUnavailableError
		insufficient *domain.InsufficientDataError
		dimension    *domain.EmbeddingDimensionMismatchError
		limit        *domain.TrainingLimitExceededError
	)
	switch {
	case errors.As(err, &fe):
		return fe.Code, "http_error"
	case errors.As(err, &notTrained):
		return fiber.StatusConflict, "not_ready"
	case errors.As(err, &ended):
		return fiber.StatusGone, "session_ended"
	case errors.As(err, &unavailable):
		return fiber.StatusServiceUnavailable, "store_unavailable"
	case errors.As(err, &insufficient), errors.As(err, &dimension), errors.As(err, &limit),
		errors.Is(err, domain.ErrDuplicateEntity):
		return fiber.StatusUnprocessableEntity, "training_failed"
	case errors.Is(err, domain.ErrBotNotFound), errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrJobNotFound), errors.Is(err, domain.ErrModelNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrEmptyMessage), errors.Is(err, domain.ErrInvalidSessionID):
		return fiber.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrBotInactive):
		return fiber.StatusForbidden, "bot_inactive"
	case errors.Is(err, domain.ErrTrainingQueueFull):
		return fiber.StatusServiceUnavailable, "queue_full"
	case errors.Is(err, domain.ErrVersionConflict):
		return fiber.StatusConflict, "conflict"
	}
	return fiber.StatusInternalServerError, "internal"
}

func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, kind := Status(err)

		if code == fiber.StatusInternalServerError {
			log.Error("Internal Server Error", zap.Error(err), zap.String("path", c.Path()))
		}
		if code == fiber.StatusServiceUnavailable {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(RetryAfterSeconds))
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
			"code":  kind,
		})
	}
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/botcore/internal/ports"
)

type TrainingHandler struct {
	trainer ports.Trainer
	log     *zap.Logger
}

func NewTrainingHandler(trainer ports.Trainer, log *zap.Logger) *TrainingHandler {
	return &TrainingHandler{
		trainer: trainer,
		log:     log,
	}
}

// Train builds and publishes a model. With ?async=true the run is queued and
// the job is returned with 202.
func (h *TrainingHandler) Train(c *fiber.Ctx) error {
	botID := c.Params("bot")

	if c.QueryBool("async") {
		job, err := h.trainer.Enqueue(c.UserContext(), botID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusAccepted).JSON(job)
	}

	summary, err := h.trainer.Train(c.UserContext(), botID)
	if err != nil {
		h.log.Warn("Training failed", zap.String("bot_id", botID), zap.Error(err))
		return err
	}
	return c.JSON(summary)
}

func (h *TrainingHandler) Status(c *fiber.Ctx) error {
	status, err := h.trainer.Status(c.UserContext(), c.Params("bot"))
	if err != nil {
		return err
	}
	return c.JSON(status)
}

func (h *TrainingHandler) Job(c *fiber.Ctx) error {
	job, err := h.trainer.Job(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(job)
}

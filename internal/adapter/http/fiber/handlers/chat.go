package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/botcore/internal/domain"
	"github.com/seu-repo/botcore/internal/ports"
)

type ChatHandler struct {
	engine ports.Engine
	log    *zap.Logger
}

func NewChatHandler(engine ports.Engine, log *zap.Logger) *ChatHandler {
	return &ChatHandler{
		engine: engine,
		log:    log,
	}
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	Restart   bool   `json:"restart"`
}

func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body", "code": "invalid_request"})
	}

	resp, err := h.engine.Chat(c.UserContext(), domain.ChatRequest{
		BotID:     c.Params("bot"),
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Message:   req.Message,
		Restart:   req.Restart,
	})
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *ChatHandler) History(c *fiber.Ctx) error {
	turns, err := h.engine.GetHistory(c.UserContext(), c.Params("bot"), c.Params("session"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"session_id": c.Params("session"),
		"turns":      turns,
	})
}

func (h *ChatHandler) End(c *fiber.Ctx) error {
	if err := h.engine.EndConversation(c.UserContext(), c.Params("bot"), c.Params("session")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

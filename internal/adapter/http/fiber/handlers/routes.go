package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/botcore/internal/ports"
)

// Register mounts the engine API on router, normally the /api/v1 group.
func Register(router fiber.Router, engine ports.Engine, log *zap.Logger) {
	training := NewTrainingHandler(engine, log)
	chat := NewChatHandler(engine, log)

	bots := router.Group("/bots/:bot")
	bots.Post("/train", training.Train)
	bots.Get("/status", training.Status)
	bots.Post("/chat", chat.Chat)
	bots.Get("/sessions/:session/history", chat.History)
	bots.Post("/sessions/:session/end", chat.End)

	router.Get("/training/jobs/:id", training.Job)
}

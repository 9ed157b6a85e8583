package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/botcore/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/botcore/internal/domain"
	"github.com/seu-repo/botcore/internal/ports"
)

type ChatStreamHandler struct {
	engine      ports.Engine
	turnTimeout time.Duration
	logger      *zap.Logger
}

func NewChatStreamHandler(engine ports.Engine, turnTimeout time.Duration, logger *zap.Logger) *ChatStreamHandler {
	if turnTimeout <= 0 {
		turnTimeout = 10 * time.Second
	}
	return &ChatStreamHandler{
		engine:      engine,
		turnTimeout: turnTimeout,
		logger:      logger,
	}
}

type inbound struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	Restart   bool   `json:"restart"`
}

type outbound struct {
	*domain.ChatResponse
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// HandleChatStream runs one conversation per connection. Each text frame is
// one user message; the reply is a ChatResponse or an error frame. Without
// an explicit session_id the connection gets its own session.
func (h *ChatStreamHandler) HandleChatStream(c *websocket.Conn) {
	botID := c.Params("bot")
	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	log := h.logger.With(zap.String("bot_id", botID), zap.String("session_id", sessionID))

	for {
		messageType, data, err := c.ReadMessage()
		if err != nil {
			log.Debug("Chat stream closed", zap.Error(err))
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		reply := h.turn(botID, sessionID, data)
		payload, _ := json.Marshal(reply)
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Warn("Failed to write chat reply", zap.Error(err))
			return
		}
	}
}

func (h *ChatStreamHandler) turn(botID, sessionID string, data []byte) outbound {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		// Plain text frames are accepted as the message itself.
		msg = inbound{Message: string(data)}
	}
	if msg.SessionID == "" {
		msg.SessionID = sessionID
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.turnTimeout)
	defer cancel()

	resp, err := h.engine.Chat(ctx, domain.ChatRequest{
		BotID:     botID,
		SessionID: msg.SessionID,
		UserID:    msg.UserID,
		Message:   msg.Message,
		Restart:   msg.Restart,
	})
	if err != nil {
		_, code := middleware.Status(err)
		return outbound{Error: err.Error(), Code: code}
	}
	return outbound{ChatResponse: resp}
}

// SetupChatRoutes registers the chat stream under /ws/bots/:bot/chat.
func SetupChatRoutes(app *fiber.App, handler *ChatStreamHandler) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/bots/:bot/chat", websocket.New(handler.HandleChatStream))
}

// SetupEventRoutes registers the operator event stream under /ws/events.
func SetupEventRoutes(app *fiber.App, hub *Hub) {
	app.Get("/ws/events", websocket.New(hub.Serve))
}

// Package engine is the single entry point transports talk to. It fronts the
// training service and the dialogue orchestrator.
package engine

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/botcore/internal/adapter/queue"
	"github.com/seu-repo/botcore/internal/domain"
	"github.com/seu-repo/botcore/internal/ports"
	"github.com/seu-repo/botcore/internal/service/dialogue"
	"github.com/seu-repo/botcore/internal/service/training"
)

var _ ports.Engine = (*Service)(nil)

type Service struct {
	trainer      *training.Service
	orchestrator *dialogue.Orchestrator
	sessions     *dialogue.Manager
	mq           queue.MessageQueue
	log          *zap.Logger
}

func NewService(trainer *training.Service, orchestrator *dialogue.Orchestrator, sessions *dialogue.Manager, mq queue.MessageQueue, log *zap.Logger) *Service {
	return &Service{
		trainer:      trainer,
		orchestrator: orchestrator,
		sessions:     sessions,
		mq:           mq,
		log:          log,
	}
}

func (s *Service) Train(ctx context.Context, botID string) (*domain.TrainingSummary, error) {
	return s.trainer.Train(ctx, botID)
}

func (s *Service) Status(ctx context.Context, botID string) (*domain.ModelStatus, error) {
	return s.trainer.Status(ctx, botID)
}

func (s *Service) Enqueue(ctx context.Context, botID string) (*domain.TrainingJob, error) {
	return s.trainer.Enqueue(ctx, botID)
}

func (s *Service) Job(ctx context.Context, jobID string) (*domain.TrainingJob, error) {
	return s.trainer.Job(ctx, jobID)
}

func (s *Service) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	resp, err := s.orchestrator.HandleMessage(ctx, req)
	if err != nil {
		s.log.Debug("chat turn failed",
			zap.String("bot_id", req.BotID),
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
		return nil, err
	}
	return resp, nil
}

func (s *Service) GetHistory(ctx context.Context, botID, sessionID string) ([]domain.Turn, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, domain.ErrInvalidSessionID
	}
	return s.sessions.History(ctx, domain.SessionKey{BotID: botID, SessionID: sessionID})
}

// EndConversation marks the session ended and announces it. A failed
// announcement is logged, the session stays ended.
func (s *Service) EndConversation(ctx context.Context, botID, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return domain.ErrInvalidSessionID
	}
	session, err := s.sessions.End(ctx, domain.SessionKey{BotID: botID, SessionID: sessionID})
	if err != nil {
		return err
	}

	event := queue.SessionEnded{
		BotID:     botID,
		SessionID: sessionID,
		Turns:     len(session.Turns),
		EndedAt:   time.Now().UTC(),
	}
	if err := queue.PublishJSON(s.mq, queue.SubjectSessionEnded, event); err != nil {
		s.log.Warn("failed to publish session ended event",
			zap.String("bot_id", botID),
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
	s.log.Info("conversation ended",
		zap.String("bot_id", botID),
		zap.String("session_id", sessionID),
		zap.Int("turns", len(session.Turns)),
	)
	return nil
}

// Ready reports whether the session store answers.
func (s *Service) Ready(ctx context.Context) error {
	return s.sessions.Ping(ctx)
}

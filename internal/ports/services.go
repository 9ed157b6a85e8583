package ports

import (
	"context"

	"github.com/seu-repo/botcore/internal/domain"
)

// Embedder turns text into fixed-size vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// Trainer builds and publishes compiled models.
type Trainer interface {
	Train(ctx context.Context, botID string) (*domain.TrainingSummary, error)
	Status(ctx context.Context, botID string) (*domain.ModelStatus, error)
	Enqueue(ctx context.Context, botID string) (*domain.TrainingJob, error)
	Job(ctx context.Context, jobID string) (*domain.TrainingJob, error)
}

// Engine is the surface exposed to transports.
type Engine interface {
	Trainer
	Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error)
	GetHistory(ctx context.Context, botID, sessionID string) ([]domain.Turn, error)
	EndConversation(ctx context.Context, botID, sessionID string) error
}

package ports

import (
	"context"

	"github.com/seu-repo/botcore/internal/domain"
)

// Catalog is the read-only view of the bot authoring layer.
type Catalog interface {
	GetBotConfig(ctx context.Context, botID string) (*domain.BotConfig, error)
	GetIntents(ctx context.Context, botID string) ([]domain.Intent, error)
	GetEntityDefinitions(ctx context.Context, botID string) ([]domain.EntityDefinition, error)
	ListBots(ctx context.Context) ([]string, error)
}

// ModelRepository stores versioned model artifacts. Publish writes the blob
// and moves the current pointer atomically; earlier versions are never touched.
type ModelRepository interface {
	Publish(ctx context.Context, artifact *domain.ModelArtifact) error
	Current(ctx context.Context, botID string) (*domain.ModelArtifact, error)
	Get(ctx context.Context, botID string, version int64) (*domain.ModelArtifact, error)
	LatestVersion(ctx context.Context, botID string) (int64, error)
}

// SessionStore persists dialogue sessions keyed by (bot, session).
//
// Put is a compare-and-swap: it succeeds only when the stored revision equals
// expected (0 meaning "no live record"), and stores the session with
// Revision = expected+1. A mismatch returns domain.ErrVersionConflict.
// Get returns domain.ErrSessionNotFound for missing or expired records.
type SessionStore interface {
	Get(ctx context.Context, key domain.SessionKey) (*domain.Session, error)
	Put(ctx context.Context, session *domain.Session, expected int64) error
	Delete(ctx context.Context, key domain.SessionKey) error
	Ping(ctx context.Context) error
	Close() error
}

package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/seu-repo/botcore/internal/domain"
	"github.com/seu-repo/botcore/internal/ports"
)

// ModelRepository keeps published artifacts in process memory. Artifacts
// are lost on restart, so deployments using it retrain on start.
type ModelRepository struct {
	mu       sync.RWMutex
	versions map[string]map[int64]*domain.ModelArtifact
	current  map[string]int64
	log      *zap.Logger
}

func NewModelRepository(log *zap.Logger) ports.ModelRepository {
	log.Info("In-memory model repository initialized")
	return &ModelRepository{
		versions: make(map[string]map[int64]*domain.ModelArtifact),
		current:  make(map[string]int64),
		log:      log,
	}
}

func (r *ModelRepository) Publish(ctx context.Context, a *domain.ModelArtifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byVersion := r.versions[a.BotID]
	if byVersion == nil {
		byVersion = make(map[int64]*domain.ModelArtifact)
		r.versions[a.BotID] = byVersion
	}
	if _, exists := byVersion[a.Version]; exists {
		return domain.ErrVersionConflict
	}
	byVersion[a.Version] = a

	if cur, ok := r.current[a.BotID]; !ok || cur < a.Version {
		r.current[a.BotID] = a.Version
	}

	r.log.Debug("Model published",
		zap.String("bot_id", a.BotID),
		zap.Int64("version", a.Version),
	)
	return nil
}

func (r *ModelRepository) Current(ctx context.Context, botID string) (*domain.ModelArtifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.current[botID]
	if !ok {
		return nil, domain.ErrModelNotFound
	}
	return r.versions[botID][v], nil
}

func (r *ModelRepository) Get(ctx context.Context, botID string, version int64) (*domain.ModelArtifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.versions[botID][version]
	if !ok {
		return nil, domain.ErrModelNotFound
	}
	return a, nil
}

func (r *ModelRepository) LatestVersion(ctx context.Context, botID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest int64
	for v := range r.versions[botID] {
		if v > latest {
			latest = v
		}
	}
	return latest, nil
}

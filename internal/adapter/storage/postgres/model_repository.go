package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seu-repo/botcore/internal/domain"
	"github.com/seu-repo/botcore/internal/ports"
)

type ModelRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewModelRepository(db *gorm.DB, log *zap.Logger) ports.ModelRepository {
	return &ModelRepository{
		db:  db,
		log: log,
	}
}

// Publish inserts the artifact and moves the current pointer in one
// transaction. The pointer never moves backwards, and an existing
// (bot, version) row is a conflict.
func (r *ModelRepository) Publish(ctx context.Context, a *domain.ModelArtifact) error {
	blob, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	rec := &modelRecord{
		BotID:       a.BotID,
		Version:     a.Version,
		Checksum:    a.Checksum,
		IntentCount: len(a.Intents),
		PhraseCount: len(a.Phrases),
		Artifact:    blob,
		BuiltAt:     a.BuiltAt,
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bot_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"version", "updated_at"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "nlu_current_models.version < excluded.version"},
			}},
		}).Create(&currentModelRecord{BotID: a.BotID, Version: a.Version}).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrVersionConflict
	}
	if err != nil {
		r.log.Error("Failed to publish model",
			zap.String("bot_id", a.BotID),
			zap.Int64("version", a.Version),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *ModelRepository) Current(ctx context.Context, botID string) (*domain.ModelArtifact, error) {
	var cur currentModelRecord
	result := r.db.WithContext(ctx).First(&cur, "bot_id = ?", botID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrModelNotFound
		}
		return nil, result.Error
	}
	return r.Get(ctx, botID, cur.Version)
}

func (r *ModelRepository) Get(ctx context.Context, botID string, version int64) (*domain.ModelArtifact, error) {
	var rec modelRecord
	result := r.db.WithContext(ctx).First(&rec, "bot_id = ? AND version = ?", botID, version)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrModelNotFound
		}
		return nil, result.Error
	}

	var a domain.ModelArtifact
	if err := json.Unmarshal(rec.Artifact, &a); err != nil {
		return nil, fmt.Errorf("decode artifact %s@%d: %w", botID, version, err)
	}
	return &a, nil
}

func (r *ModelRepository) LatestVersion(ctx context.Context, botID string) (int64, error) {
	var latest int64
	result := r.db.WithContext(ctx).Model(&modelRecord{}).
		Where("bot_id = ?", botID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&latest)
	return latest, result.Error
}

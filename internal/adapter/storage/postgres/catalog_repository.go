package postgres

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seu-repo/botcore/internal/domain"
	"github.com/seu-repo/botcore/internal/ports"
)

// CatalogRepository reads bot definitions owned by the authoring layer.
type CatalogRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewCatalogRepository(db *gorm.DB, log *zap.Logger) *CatalogRepository {
	return &CatalogRepository{
		db:  db,
		log: log,
	}
}

var _ ports.Catalog = (*CatalogRepository)(nil)

func (r *CatalogRepository) GetBotConfig(ctx context.Context, botID string) (*domain.BotConfig, error) {
	var rec botRecord
	result := r.db.WithContext(ctx).First(&rec, "id = ?", botID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBotNotFound
		}
		return nil, result.Error
	}
	return rec.toDomain(), nil
}

func (r *CatalogRepository) GetIntents(ctx context.Context, botID string) ([]domain.Intent, error) {
	if err := r.exists(ctx, botID); err != nil {
		return nil, err
	}
	var recs []intentRecord
	if err := r.db.WithContext(ctx).Where("bot_id = ?", botID).Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Intent, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toDomain())
	}
	return out, nil
}

func (r *CatalogRepository) GetEntityDefinitions(ctx context.Context, botID string) ([]domain.EntityDefinition, error) {
	if err := r.exists(ctx, botID); err != nil {
		return nil, err
	}
	var recs []entityRecord
	if err := r.db.WithContext(ctx).Where("bot_id = ?", botID).Order("name").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.EntityDefinition, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toDomain())
	}
	return out, nil
}

func (r *CatalogRepository) ListBots(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&botRecord{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

// Import replaces a bot's definition with the given one in a single
// transaction. Used to seed the database from YAML definitions.
func (r *CatalogRepository) Import(ctx context.Context, bot *domain.BotConfig, intents []domain.Intent, entities []domain.EntityDefinition) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(newBotRecord(bot)).Error; err != nil {
			return err
		}
		if err := tx.Where("bot_id = ?", bot.ID).Delete(&intentRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("bot_id = ?", bot.ID).Delete(&entityRecord{}).Error; err != nil {
			return err
		}
		for _, in := range intents {
			rec := &intentRecord{
				BotID:     bot.ID,
				ID:        in.ID,
				Name:      in.Name,
				Priority:  in.Priority,
				Active:    in.Active,
				Phrases:   in.TrainingPhrases,
				Responses: in.Responses,
				Slots:     in.Slots,
				Patterns:  in.Patterns,
			}
			if err := tx.Create(rec).Error; err != nil {
				return err
			}
		}
		for _, e := range entities {
			rec := &entityRecord{
				BotID:   bot.ID,
				Name:    e.Name,
				Kind:    string(e.Kind),
				System:  string(e.System),
				Values:  e.Values,
				Pattern: e.Pattern,
			}
			if err := tx.Create(rec).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return domain.ErrDuplicateEntity
				}
				return err
			}
		}
		r.log.Info("Imported bot definition",
			zap.String("bot_id", bot.ID),
			zap.Int("intents", len(intents)),
			zap.Int("entities", len(entities)),
		)
		return nil
	})
}

func (r *CatalogRepository) exists(ctx context.Context, botID string) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&botRecord{}).Where("id = ?", botID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrBotNotFound
	}
	return nil
}

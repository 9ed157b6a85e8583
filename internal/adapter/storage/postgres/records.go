package postgres

import (
	"time"

	"github.com/seu-repo/botcore/internal/domain"
)

type botRecord struct {
	ID                  string  `gorm:"primaryKey"`
	Name                string
	Active              bool    `gorm:"not null"`
	Language            string  `gorm:"not null"`
	ConfidenceThreshold float64 `gorm:"not null"`
	FallbackIntent      string
	DefaultResponse     string
	RuleWeight          float64
	EmbedWeight         float64
	ResponseSelection   string `gorm:"not null"`
	SelectionSeed       int64
	UpdatedAt           time.Time
}

func (botRecord) TableName() string { return "bots" }

type intentRecord struct {
	BotID     string                    `gorm:"primaryKey"`
	ID        string                    `gorm:"primaryKey"`
	Name      string                    `gorm:"not null"`
	Priority  int                       `gorm:"not null;default:0"`
	Active    bool                      `gorm:"not null"`
	Phrases   []domain.Phrase           `gorm:"type:jsonb;serializer:json"`
	Responses []domain.ResponseTemplate `gorm:"type:jsonb;serializer:json"`
	Slots     []domain.SlotSpec         `gorm:"type:jsonb;serializer:json"`
	Patterns  []domain.RulePattern      `gorm:"type:jsonb;serializer:json"`
	UpdatedAt time.Time
}

func (intentRecord) TableName() string { return "intents" }

type entityRecord struct {
	BotID   string               `gorm:"primaryKey"`
	Name    string               `gorm:"primaryKey"`
	Kind    string               `gorm:"not null"`
	System  string
	Values  []domain.EntityValue `gorm:"type:jsonb;serializer:json"`
	Pattern string
}

func (entityRecord) TableName() string { return "entity_definitions" }

// modelRecord is one immutable published artifact.
type modelRecord struct {
	BotID       string `gorm:"primaryKey"`
	Version     int64  `gorm:"primaryKey;autoIncrement:false"`
	Checksum    string `gorm:"not null"`
	IntentCount int
	PhraseCount int
	Artifact    []byte    `gorm:"not null"`
	BuiltAt     time.Time `gorm:"not null"`
	CreatedAt   time.Time
}

func (modelRecord) TableName() string { return "nlu_models" }

// currentModelRecord points at the version served for a bot.
type currentModelRecord struct {
	BotID     string `gorm:"primaryKey"`
	Version   int64  `gorm:"not null"`
	UpdatedAt time.Time
}

func (currentModelRecord) TableName() string { return "nlu_current_models" }

func (r *botRecord) toDomain() *domain.BotConfig {
	return &domain.BotConfig{
		ID:                  r.ID,
		Name:                r.Name,
		Active:              r.Active,
		Language:            r.Language,
		ConfidenceThreshold: r.ConfidenceThreshold,
		FallbackIntent:      r.FallbackIntent,
		DefaultResponse:     r.DefaultResponse,
		RuleWeight:          r.RuleWeight,
		EmbedWeight:         r.EmbedWeight,
		ResponseSelection:   domain.ResponseSelection(r.ResponseSelection),
		SelectionSeed:       r.SelectionSeed,
	}
}

func newBotRecord(b *domain.BotConfig) *botRecord {
	selection := string(b.ResponseSelection)
	if selection == "" {
		selection = string(domain.ResponseSelectionRoundRobin)
	}
	language := b.Language
	if language == "" {
		language = "en"
	}
	return &botRecord{
		ID:                  b.ID,
		Name:                b.Name,
		Active:              b.Active,
		Language:            language,
		ConfidenceThreshold: b.ConfidenceThreshold,
		FallbackIntent:      b.FallbackIntent,
		DefaultResponse:     b.DefaultResponse,
		RuleWeight:          b.RuleWeight,
		EmbedWeight:         b.EmbedWeight,
		ResponseSelection:   selection,
		SelectionSeed:       b.SelectionSeed,
	}
}

func (r *intentRecord) toDomain() domain.Intent {
	return domain.Intent{
		ID:              r.ID,
		BotID:           r.BotID,
		Name:            r.Name,
		Priority:        r.Priority,
		Active:          r.Active,
		TrainingPhrases: r.Phrases,
		Responses:       r.Responses,
		Slots:           r.Slots,
		Patterns:        r.Patterns,
	}
}

func (r *entityRecord) toDomain() domain.EntityDefinition {
	return domain.EntityDefinition{
		Name:    r.Name,
		Kind:    domain.EntityKind(r.Kind),
		System:  domain.SystemRecognizer(r.System),
		Values:  r.Values,
		Pattern: r.Pattern,
	}
}

package training

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/botcore/internal/domain"
	"github.com/seu-repo/botcore/internal/nlu/model"
	"github.com/seu-repo/botcore/internal/nlu/rules"
	"github.com/seu-repo/botcore/internal/nlu/text"
	"github.com/seu-repo/botcore/internal/ports"
)

const (
	DefaultMaxTrainingExamples = 10000
	DefaultEmbedBatchSize      = 64
)

type PipelineConfig struct {
	StripPunctuation    bool         `mapstructure:"strip_punctuation"`
	MaxTrainingExamples int          `mapstructure:"max_training_examples"`
	EmbedBatchSize      int          `mapstructure:"embed_batch_size"`
	Rules               rules.Config `mapstructure:"rules"`
}

// Pipeline turns catalog definitions into a model artifact. It holds no
// per-bot state.
type Pipeline struct {
	embedder ports.Embedder
	cfg      PipelineConfig
	clock    func() time.Time
	log      *zap.Logger
}

func NewPipeline(embedder ports.Embedder, cfg PipelineConfig, log *zap.Logger) *Pipeline {
	if cfg.MaxTrainingExamples <= 0 {
		cfg.MaxTrainingExamples = DefaultMaxTrainingExamples
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = DefaultEmbedBatchSize
	}
	return &Pipeline{
		embedder: embedder,
		cfg:      cfg,
		clock:    time.Now,
		log:      log,
	}
}

// CompileOptions are the options used to rebuild runtime models from
// artifacts produced by this pipeline.
func (p *Pipeline) CompileOptions() model.Options {
	return model.Options{Rules: p.cfg.Rules}
}

// Build validates the definitions, embeds every training phrase and compiles
// the result. Nothing is persisted here.
func (p *Pipeline) Build(ctx context.Context, bot *domain.BotConfig, intents []domain.Intent, entities []domain.EntityDefinition, version int64) (*model.Compiled, error) {
	norm := text.Normalizer{StripPunctuation: p.cfg.StripPunctuation}

	seen := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateEntity, e.Name)
		}
		seen[e.Name] = struct{}{}
	}

	active := make([]domain.Intent, 0, len(intents))
	for _, in := range intents {
		if in.Active {
			active = append(active, in)
		}
	}
	if len(active) == 0 {
		return nil, &domain.InsufficientDataError{}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	var (
		metas   = make([]domain.IntentMeta, 0, len(active))
		phrases []domain.CompiledPhrase
	)
	for _, in := range active {
		isFallback := bot.FallbackIntent != "" && (in.Name == bot.FallbackIntent || in.ID == bot.FallbackIntent)

		responses := make([]domain.ResponseTemplate, 0, len(in.Responses))
		for _, r := range in.Responses {
			if r.Selectable() && r.Text != "" {
				responses = append(responses, r)
			}
		}
		if len(responses) == 0 {
			return nil, &domain.InsufficientDataError{Intent: in.Name, Reason: "no text responses"}
		}

		dedup := make(map[string]struct{}, len(in.TrainingPhrases))
		var own []domain.CompiledPhrase
		for i, ph := range in.TrainingPhrases {
			normalized := norm.Normalize(ph.Text)
			if normalized == "" {
				continue
			}
			if _, dup := dedup[normalized]; dup {
				continue
			}
			dedup[normalized] = struct{}{}
			id := ph.ID
			if id == "" {
				id = fmt.Sprintf("%s#%d", in.ID, i)
			}
			own = append(own, domain.CompiledPhrase{ID: id, IntentID: in.ID, Text: normalized})
		}
		if len(own) == 0 && !isFallback {
			return nil, &domain.InsufficientDataError{Intent: in.Name, Reason: "no training phrases"}
		}
		phrases = append(phrases, own...)

		metas = append(metas, domain.IntentMeta{
			ID:        in.ID,
			Name:      in.Name,
			Priority:  in.Priority,
			Responses: responses,
			Slots:     in.Slots,
			Patterns:  in.Patterns,
		})
	}

	if len(phrases) > p.cfg.MaxTrainingExamples {
		return nil, &domain.TrainingLimitExceededError{Limit: p.cfg.MaxTrainingExamples, Got: len(phrases)}
	}

	dims, err := p.embed(ctx, phrases)
	if err != nil {
		return nil, err
	}

	artifact := &domain.ModelArtifact{
		BotID:            bot.ID,
		Version:          version,
		Dimensions:       dims,
		StripPunctuation: p.cfg.StripPunctuation,
		Phrases:          phrases,
		Intents:          metas,
		Entities:         entities,
		BuiltAt:          p.clock().UTC(),
	}
	artifact.Checksum, err = checksum(artifact)
	if err != nil {
		return nil, err
	}

	compiled, err := model.Compile(artifact, p.CompileOptions())
	if err != nil {
		return nil, err
	}

	p.log.Debug("model built",
		zap.String("bot_id", bot.ID),
		zap.Int64("version", version),
		zap.Int("intents", len(metas)),
		zap.Int("phrases", len(phrases)),
		zap.Int("dimensions", dims),
	)
	return compiled, nil
}

// embed fills phrase vectors in batches and returns the common dimension.
func (p *Pipeline) embed(ctx context.Context, phrases []domain.CompiledPhrase) (int, error) {
	dims := 0
	for start := 0; start < len(phrases); start += p.cfg.EmbedBatchSize {
		end := min(start+p.cfg.EmbedBatchSize, len(phrases))
		texts := make([]string, 0, end-start)
		for _, ph := range phrases[start:end] {
			texts = append(texts, ph.Text)
		}

		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed training phrases: %w", err)
		}
		if len(vectors) != len(texts) {
			return 0, fmt.Errorf("embedder returned %d vectors for %d phrases", len(vectors), len(texts))
		}

		for i, vec := range vectors {
			ph := &phrases[start+i]
			if dims == 0 {
				if len(vec) == 0 {
					return 0, &domain.EmbeddingDimensionMismatchError{Phrase: ph.Text, Expected: 1, Got: 0}
				}
				dims = len(vec)
			}
			if len(vec) != dims {
				return 0, &domain.EmbeddingDimensionMismatchError{Phrase: ph.Text, Expected: dims, Got: len(vec)}
			}
			ph.Vector = vec
		}
	}
	return dims, nil
}

// checksum fingerprints the training content, excluding version and build time,
// so identical inputs hash identically across retrains.
func checksum(a *domain.ModelArtifact) (string, error) {
	content := struct {
		StripPunctuation bool
		Phrases          []domain.CompiledPhrase
		Intents          []domain.IntentMeta
		Entities         []domain.EntityDefinition
	}{a.StripPunctuation, a.Phrases, a.Intents, a.Entities}

	data, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("checksum: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

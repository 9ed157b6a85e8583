// Package classifier ranks intents for an utterance by combining the rule
// matcher with embedding similarity.
package classifier

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seu-repo/botcore/internal/domain"
	"github.com/seu-repo/botcore/internal/nlu/model"
	"github.com/seu-repo/botcore/internal/nlu/rules"
	"github.com/seu-repo/botcore/internal/observability/telemetry"
	"github.com/seu-repo/botcore/internal/ports"
)

const (
	DefaultTopK               = 5
	DefaultSuggestionLimit    = 3
	DefaultSuggestionMinScore = 0.3
	DefaultSuggestionBelow    = 0.8
)

type Config struct {
	TopK               int     `mapstructure:"top_k"`
	SuggestionLimit    int     `mapstructure:"suggestion_limit"`
	SuggestionMinScore float64 `mapstructure:"suggestion_min_score"`
	SuggestionBelow    float64 `mapstructure:"suggestion_below"`
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.SuggestionLimit <= 0 {
		c.SuggestionLimit = DefaultSuggestionLimit
	}
	if c.SuggestionMinScore <= 0 {
		c.SuggestionMinScore = DefaultSuggestionMinScore
	}
	if c.SuggestionBelow <= 0 {
		c.SuggestionBelow = DefaultSuggestionBelow
	}
	return c
}

type Classifier struct {
	embedder ports.Embedder
	cfg      Config
	log      *zap.Logger
}

func New(embedder ports.Embedder, cfg Config, log *zap.Logger) *Classifier {
	return &Classifier{
		embedder: embedder,
		cfg:      cfg.withDefaults(),
		log:      log,
	}
}

// Classify scores every intent of m against text. The rule matcher and the
// embedding lookup run concurrently. If the embedder fails the decision is
// made from rules alone; if no rule fires the embedding score is used alone.
func (c *Classifier) Classify(ctx context.Context, text string, m *model.Compiled, bot *domain.BotConfig) (*domain.ClassificationResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "classifier.Classify")
	defer span.End()
	start := time.Now()
	defer func() { telemetry.ClassificationLatency.Observe(time.Since(start).Seconds()) }()

	normalized := m.Normalizer.Normalize(text)

	var (
		ruleMatches []rules.Match
		embedScores map[string]float64
		embedErr    error
	)

	if normalized != "" {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			ruleMatches = m.Rules.Match(normalized)
			return nil
		})
		g.Go(func() error {
			embedScores, embedErr = c.embedScores(gctx, normalized, m)
			return nil
		})
		_ = g.Wait()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if embedErr != nil {
		telemetry.EmbeddingFailuresTotal.WithLabelValues(c.embedder.Name()).Inc()
		c.log.Warn("embedding unavailable, classifying with rules only",
			zap.String("bot_id", bot.ID),
			zap.Error(embedErr),
		)
	}

	ruleScores := make(map[string]float64, len(ruleMatches))
	for _, rm := range ruleMatches {
		ruleScores[rm.IntentID] = rm.Score
	}

	wRule, wEmbed := bot.Weights()
	switch {
	case embedErr != nil:
		wRule, wEmbed = 1, 0
	case len(ruleScores) == 0:
		wRule, wEmbed = 0, 1
	}

	candidates := make([]domain.Candidate, 0, len(m.Intents()))
	for _, in := range m.Intents() {
		rs, es := ruleScores[in.ID], embedScores[in.ID]
		candidates = append(candidates, domain.Candidate{
			IntentID:   in.ID,
			IntentName: in.Name,
			Priority:   in.Priority,
			Score:      clamp01(wRule*rs + wEmbed*es),
			RuleScore:  rs,
			EmbedScore: es,
		})
	}
	Rank(candidates)

	result := &domain.ClassificationResult{
		Candidates:   candidates,
		ModelVersion: m.Version(),
	}

	threshold := bot.Threshold()
	top, ok := result.Top()
	if ok && normalized != "" && top.Score >= threshold {
		chosen := top
		result.ChosenIntent = &chosen
	} else {
		result.LowConfidence = true
		if fb, found := fallbackCandidate(candidates, m, bot.FallbackIntent); found {
			result.ChosenIntent = &fb
		}
	}

	if !ok || top.Score < c.cfg.SuggestionBelow {
		result.Suggestions = c.suggestions(candidates, bot.FallbackIntent)
	}

	outcome := "matched"
	switch {
	case result.LowConfidence && result.ChosenIntent != nil:
		outcome = "fallback"
	case result.LowConfidence:
		outcome = "no_match"
	}
	telemetry.ClassificationsTotal.WithLabelValues(bot.ID, outcome).Inc()
	span.SetAttributes(
		attribute.String("bot.id", bot.ID),
		attribute.String("classification.outcome", outcome),
		attribute.Int64("model.version", m.Version()),
	)

	return result, nil
}

func (c *Classifier) embedScores(ctx context.Context, normalized string, m *model.Compiled) (map[string]float64, error) {
	if m.Index.Len() == 0 {
		return nil, nil
	}
	vec, err := c.embedder.Embed(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("embed utterance: %w", err)
	}
	hits, err := m.Index.Query(vec, c.cfg.TopK)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64)
	for _, h := range hits {
		intentID, ok := m.PhraseIntent(h.ID)
		if !ok {
			continue
		}
		s := h.Score
		if s < 0 {
			s = 0
		}
		if s > scores[intentID] {
			scores[intentID] = s
		}
	}
	return scores, nil
}

func (c *Classifier) suggestions(candidates []domain.Candidate, fallback string) []string {
	var out []string
	for _, cand := range candidates {
		if len(out) == c.cfg.SuggestionLimit {
			break
		}
		if cand.Score <= c.cfg.SuggestionMinScore {
			break
		}
		if fallback != "" && (cand.IntentName == fallback || cand.IntentID == fallback) {
			continue
		}
		out = append(out, cand.IntentName)
	}
	return out
}

// Rank orders candidates by score descending, then priority ascending, then
// intent id ascending.
func Rank(candidates []domain.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.IntentID < b.IntentID
	})
}

func fallbackCandidate(candidates []domain.Candidate, m *model.Compiled, fallback string) (domain.Candidate, bool) {
	if fallback == "" {
		return domain.Candidate{}, false
	}
	in, ok := m.IntentByName(fallback)
	if !ok {
		if in, ok = m.Intent(fallback); !ok {
			return domain.Candidate{}, false
		}
	}
	for _, cand := range candidates {
		if cand.IntentID == in.ID {
			return cand, true
		}
	}
	return domain.Candidate{IntentID: in.ID, IntentName: in.Name, Priority: in.Priority}, true
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

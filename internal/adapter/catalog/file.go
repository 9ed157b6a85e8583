package catalog

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/seu-repo/botcore/internal/domain"
)

// botFile is the on-disk layout of one bot definition.
type botFile struct {
	Bot      botDTO                    `yaml:"bot"`
	Intents  []intentDTO               `yaml:"intents"`
	Entities []domain.EntityDefinition `yaml:"entities"`
}

type botDTO struct {
	ID                  string   `yaml:"id"`
	Name                string   `yaml:"name"`
	Active              *bool    `yaml:"active"`
	Language            string   `yaml:"language"`
	ConfidenceThreshold *float64 `yaml:"confidence_threshold"`
	FallbackIntent      string   `yaml:"fallback_intent"`
	DefaultResponse     string   `yaml:"default_response"`
	RuleWeight          float64  `yaml:"rule_weight"`
	EmbedWeight         float64  `yaml:"embed_weight"`
	ResponseSelection   string   `yaml:"response_selection"`
	SelectionSeed       int64    `yaml:"selection_seed"`
}

type intentDTO struct {
	ID        string               `yaml:"id"`
	Name      string               `yaml:"name"`
	Priority  int                  `yaml:"priority"`
	Active    *bool                `yaml:"active"`
	Phrases   []phraseDTO          `yaml:"phrases"`
	Responses []responseDTO        `yaml:"responses"`
	Slots     []domain.SlotSpec    `yaml:"slots"`
	Patterns  []domain.RulePattern `yaml:"patterns"`
}

// phraseDTO accepts either a bare string or {id, text}.
type phraseDTO domain.Phrase

func (p *phraseDTO) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		p.Text = node.Value
		return nil
	}
	var full domain.Phrase
	if err := node.Decode(&full); err != nil {
		return err
	}
	*p = phraseDTO(full)
	return nil
}

// responseDTO accepts either a bare string or {text, type}.
type responseDTO domain.ResponseTemplate

func (r *responseDTO) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		r.Text = node.Value
		return nil
	}
	var full domain.ResponseTemplate
	if err := node.Decode(&full); err != nil {
		return err
	}
	*r = responseDTO(full)
	return nil
}

type definition struct {
	bot      domain.BotConfig
	intents  []domain.Intent
	entities []domain.EntityDefinition
}

func parse(data []byte) (*definition, error) {
	var f botFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if strings.TrimSpace(f.Bot.ID) == "" {
		return nil, fmt.Errorf("bot.id is required")
	}

	def := &definition{
		bot: domain.BotConfig{
			ID:                  f.Bot.ID,
			Name:                f.Bot.Name,
			Active:              boolOr(f.Bot.Active, true),
			Language:            f.Bot.Language,
			ConfidenceThreshold: domain.DefaultConfidenceThreshold,
			FallbackIntent:      f.Bot.FallbackIntent,
			DefaultResponse:     f.Bot.DefaultResponse,
			RuleWeight:          f.Bot.RuleWeight,
			EmbedWeight:         f.Bot.EmbedWeight,
			ResponseSelection:   domain.ResponseSelection(f.Bot.ResponseSelection),
			SelectionSeed:       f.Bot.SelectionSeed,
		},
		entities: f.Entities,
	}
	if f.Bot.ConfidenceThreshold != nil {
		def.bot.ConfidenceThreshold = *f.Bot.ConfidenceThreshold
	}
	if def.bot.Language == "" {
		def.bot.Language = "en"
	}
	if def.bot.ResponseSelection == "" {
		def.bot.ResponseSelection = domain.ResponseSelectionRoundRobin
	}

	seen := make(map[string]bool, len(f.Intents))
	for _, in := range f.Intents {
		if in.ID == "" {
			in.ID = in.Name
		}
		if in.ID == "" {
			return nil, fmt.Errorf("intent without id or name")
		}
		if seen[in.ID] {
			return nil, fmt.Errorf("duplicate intent %q", in.ID)
		}
		seen[in.ID] = true

		intent := domain.Intent{
			ID:       in.ID,
			BotID:    def.bot.ID,
			Name:     in.Name,
			Priority: in.Priority,
			Active:   boolOr(in.Active, true),
			Slots:    in.Slots,
			Patterns: in.Patterns,
		}
		if intent.Name == "" {
			intent.Name = in.ID
		}
		for _, p := range in.Phrases {
			intent.TrainingPhrases = append(intent.TrainingPhrases, domain.Phrase(p))
		}
		for _, r := range in.Responses {
			intent.Responses = append(intent.Responses, domain.ResponseTemplate(r))
		}
		def.intents = append(def.intents, intent)
	}
	return def, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

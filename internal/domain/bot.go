package domain

type ResponseSelection string

const (
	ResponseSelectionRoundRobin ResponseSelection = "round_robin"
	ResponseSelectionRandom     ResponseSelection = "random"
)

const (
	DefaultRuleWeight          = 0.6
	DefaultEmbedWeight         = 0.4
	DefaultConfidenceThreshold = 0.7
	DefaultFallbackResponse    = "I'm sorry, I didn't understand that. Could you please rephrase?"
)

// BotConfig is the read-only, per-version configuration of a bot as owned by
// the authoring layer.
type BotConfig struct {
	ID                  string            `json:"id" yaml:"id" gorm:"primaryKey"`
	Name                string            `json:"name" yaml:"name"`
	Active              bool              `json:"active" yaml:"active" gorm:"default:true"`
	Language            string            `json:"language" yaml:"language" gorm:"default:en"`
	ConfidenceThreshold float64           `json:"confidence_threshold" yaml:"confidence_threshold" gorm:"default:0.7"`
	FallbackIntent      string            `json:"fallback_intent,omitempty" yaml:"fallback_intent"`
	DefaultResponse     string            `json:"default_response" yaml:"default_response"`
	RuleWeight          float64           `json:"rule_weight" yaml:"rule_weight"`
	EmbedWeight         float64           `json:"embed_weight" yaml:"embed_weight"`
	ResponseSelection   ResponseSelection `json:"response_selection" yaml:"response_selection"`
	SelectionSeed       int64             `json:"selection_seed" yaml:"selection_seed"`
}

// Weights returns the ensemble weights, falling back to the 0.6/0.4 default
// when the bot does not override them.
func (b *BotConfig) Weights() (rule, embed float64) {
	rule, embed = b.RuleWeight, b.EmbedWeight
	if rule <= 0 && embed <= 0 {
		return DefaultRuleWeight, DefaultEmbedWeight
	}
	return rule, embed
}

func (b *BotConfig) Threshold() float64 {
	if b.ConfidenceThreshold < 0 {
		return 0
	}
	if b.ConfidenceThreshold > 1 {
		return 1
	}
	return b.ConfidenceThreshold
}

func (b *BotConfig) FallbackText() string {
	if b.DefaultResponse != "" {
		return b.DefaultResponse
	}
	return DefaultFallbackResponse
}

package domain

type RulePatternKind string

const (
	RulePatternRegex   RulePatternKind = "regex"
	RulePatternKeyword RulePatternKind = "keyword"
)

type ResponseType string

const (
	ResponseTypeText ResponseType = "text"
	ResponseTypeRich ResponseType = "rich"
)

type Intent struct {
	ID              string             `json:"id" yaml:"id"`
	BotID           string             `json:"bot_id" yaml:"-"`
	Name            string             `json:"name" yaml:"name"`
	Priority        int                `json:"priority" yaml:"priority"`
	Active          bool               `json:"active" yaml:"active"`
	TrainingPhrases []Phrase           `json:"training_phrases" yaml:"phrases"`
	Responses       []ResponseTemplate `json:"responses" yaml:"responses"`
	Slots           []SlotSpec         `json:"slots,omitempty" yaml:"slots"`
	Patterns        []RulePattern      `json:"patterns,omitempty" yaml:"patterns"`
}

type Phrase struct {
	ID   string `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}

type ResponseTemplate struct {
	Text string       `json:"text" yaml:"text"`
	Type ResponseType `json:"type,omitempty" yaml:"type"`
}

// Selectable reports whether the template can be rendered as a plain reply.
func (r ResponseTemplate) Selectable() bool {
	return r.Type == "" || r.Type == ResponseTypeText
}

// SlotSpec is a named variable an intent's response needs before it can be
// rendered. Entity names the entity definition that fills it.
type SlotSpec struct {
	Name   string `json:"name" yaml:"name"`
	Entity string `json:"entity" yaml:"entity"`
	Prompt string `json:"prompt,omitempty" yaml:"prompt"`
}

type RulePattern struct {
	Kind  RulePatternKind `json:"kind" yaml:"kind"`
	Value string          `json:"value" yaml:"value"`
}

package domain

type EntityKind string

const (
	EntityKindSystem EntityKind = "system"
	EntityKindCustom EntityKind = "custom"
	EntityKindRegex  EntityKind = "regex"
)

type SystemRecognizer string

const (
	SystemDate     SystemRecognizer = "date"
	SystemNumber   SystemRecognizer = "number"
	SystemDuration SystemRecognizer = "duration"
	SystemEmail    SystemRecognizer = "email"
	SystemURL      SystemRecognizer = "url"
	SystemPhone    SystemRecognizer = "phone"
)

// EntityDefinition is a closed variant: exactly one of System, Values or
// Pattern is meaningful, selected by Kind.
type EntityDefinition struct {
	Name    string           `json:"name" yaml:"name"`
	Kind    EntityKind       `json:"kind" yaml:"kind"`
	System  SystemRecognizer `json:"system,omitempty" yaml:"system"`
	Values  []EntityValue    `json:"values,omitempty" yaml:"values"`
	Pattern string           `json:"pattern,omitempty" yaml:"pattern"`
}

// EntityValue is one canonical value of a custom lexicon with its synonyms.
type EntityValue struct {
	Value    string   `json:"value" yaml:"value"`
	Synonyms []string `json:"synonyms,omitempty" yaml:"synonyms"`
}

type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (s Span) Len() int { return s.End - s.Start }

func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

type EntityMatch struct {
	Value  string     `json:"value"`
	Raw    string     `json:"raw"`
	Span   Span       `json:"span"`
	Source EntityKind `json:"source"`
}

// Entities maps entity name to every non-overlapping match in the text.
type Entities map[string][]EntityMatch

// First returns the first match value for name, if any.
func (e Entities) First(name string) (string, bool) {
	matches := e[name]
	if len(matches) == 0 {
		return "", false
	}
	return matches[0].Value, true
}

// Flatten keeps the first value of every entity, the shape stored on turns.
func (e Entities) Flatten() map[string]string {
	out := make(map[string]string, len(e))
	for name, matches := range e {
		if len(matches) > 0 {
			out[name] = matches[0].Value
		}
	}
	return out
}

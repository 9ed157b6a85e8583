// Package rules scores normalized text against exact phrases, declared
// patterns and near-exact spellings.
package rules

import (
	"fmt"
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/seu-repo/botcore/internal/domain"
	"github.com/seu-repo/botcore/internal/nlu/text"
)

const (
	ExactScore   = 1.0
	PatternScore = 1.0

	DefaultKeywordScore    = 0.75
	DefaultMaxEditDistance = 2
	DefaultMinFuzzyLength  = 4
)

type Config struct {
	KeywordScore    float64 `mapstructure:"keyword_score"`
	MaxEditDistance int     `mapstructure:"max_edit_distance"`
	MinFuzzyLength  int     `mapstructure:"min_fuzzy_length"`
}

func (c Config) withDefaults() Config {
	if c.KeywordScore <= 0 || c.KeywordScore > 1 {
		c.KeywordScore = DefaultKeywordScore
	}
	if c.MaxEditDistance <= 0 {
		c.MaxEditDistance = DefaultMaxEditDistance
	}
	if c.MinFuzzyLength <= 0 {
		c.MinFuzzyLength = DefaultMinFuzzyLength
	}
	return c
}

type Match struct {
	IntentID string
	Score    float64
}

type phrase struct {
	intentID string
	text     string
	runes    int
}

type pattern struct {
	intentID string
	re       *regexp.Regexp
}

type keyword struct {
	intentID string
	term     string
}

// Matcher is built once per model and read-only afterwards.
type Matcher struct {
	cfg      Config
	exact    map[string][]string
	phrases  []phrase
	patterns []pattern
	keywords []keyword
}

// New indexes the normalized training phrases and compiles declared
// patterns. Keyword values are normalized with norm; regex patterns run
// case-insensitively against normalized text.
func New(intents []domain.IntentMeta, phrases []domain.CompiledPhrase, norm text.Normalizer, cfg Config) (*Matcher, error) {
	m := &Matcher{
		cfg:   cfg.withDefaults(),
		exact: make(map[string][]string),
	}

	for _, p := range phrases {
		if p.Text == "" {
			continue
		}
		if !contains(m.exact[p.Text], p.IntentID) {
			m.exact[p.Text] = append(m.exact[p.Text], p.IntentID)
		}
		m.phrases = append(m.phrases, phrase{intentID: p.IntentID, text: p.Text, runes: utf8.RuneCountInString(p.Text)})
	}

	for _, in := range intents {
		for _, rp := range in.Patterns {
			switch rp.Kind {
			case domain.RulePatternRegex:
				re, err := regexp.Compile("(?i)" + rp.Value)
				if err != nil {
					return nil, fmt.Errorf("intent %s: invalid pattern %q: %w", in.Name, rp.Value, err)
				}
				m.patterns = append(m.patterns, pattern{intentID: in.ID, re: re})
			case domain.RulePatternKeyword:
				if term := norm.Normalize(rp.Value); term != "" {
					m.keywords = append(m.keywords, keyword{intentID: in.ID, term: term})
				}
			default:
				return nil, fmt.Errorf("intent %s: unknown pattern kind %q", in.Name, rp.Kind)
			}
		}
	}
	return m, nil
}

// Match returns the best rule score per intent, highest first. Intents with no
// rule signal are absent.
func (m *Matcher) Match(normalized string) []Match {
	if normalized == "" {
		return nil
	}
	best := make(map[string]float64)
	raise := func(intentID string, score float64) {
		if score > best[intentID] {
			best[intentID] = score
		}
	}

	for _, id := range m.exact[normalized] {
		raise(id, ExactScore)
	}
	for _, p := range m.patterns {
		if p.re.MatchString(normalized) {
			raise(p.intentID, PatternScore)
		}
	}
	for _, k := range m.keywords {
		if text.ContainsPhrase(normalized, k.term) {
			raise(k.intentID, m.cfg.KeywordScore)
		}
	}

	if n := utf8.RuneCountInString(normalized); n >= m.cfg.MinFuzzyLength {
		for _, p := range m.phrases {
			if p.runes < m.cfg.MinFuzzyLength || best[p.intentID] >= ExactScore {
				continue
			}
			if abs(p.runes-n) > m.cfg.MaxEditDistance {
				continue
			}
			d := levenshtein.ComputeDistance(normalized, p.text)
			if d == 0 || d > m.cfg.MaxEditDistance {
				continue
			}
			raise(p.intentID, 1-float64(d)/float64(max(n, p.runes)))
		}
	}

	out := make([]Match, 0, len(best))
	for id, score := range best {
		out = append(out, Match{IntentID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].IntentID < out[j].IntentID
	})
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

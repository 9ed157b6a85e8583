package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seu-repo/botcore/internal/domain"
	"github.com/seu-repo/botcore/internal/nlu/text"
)

var norm = text.Normalizer{StripPunctuation: true}

func newMatcher(t *testing.T) *Matcher {
	t.Helper()
	intents := []domain.IntentMeta{
		{ID: "greeting", Name: "greeting"},
		{ID: "order_status", Name: "order_status", Patterns: []domain.RulePattern{
			{Kind: domain.RulePatternRegex, Value: `\bord\d{5}\b`},
			{Kind: domain.RulePatternKeyword, Value: "Tracking"},
		}},
	}
	phrases := []domain.CompiledPhrase{
		{ID: "p1", IntentID: "greeting", Text: "hello"},
		{ID: "p2", IntentID: "greeting", Text: "hi"},
		{ID: "p3", IntentID: "order_status", Text: "where is my order"},
	}
	m, err := New(intents, phrases, norm, Config{})
	require.NoError(t, err)
	return m
}

func TestMatch_ExactPhrase(t *testing.T) {
	m := newMatcher(t)

	got := m.Match("hello")

	require.NotEmpty(t, got)
	assert.Equal(t, Match{IntentID: "greeting", Score: 1.0}, got[0])
}

func TestMatch_Patterns(t *testing.T) {
	m := newMatcher(t)

	got := m.Match("status of ord12345")
	require.Len(t, got, 1)
	assert.Equal(t, "order_status", got[0].IntentID)
	assert.Equal(t, 1.0, got[0].Score)

	got = m.Match("need tracking info")
	require.Len(t, got, 1)
	assert.Equal(t, DefaultKeywordScore, got[0].Score)
}

func TestMatch_FuzzyNearExact(t *testing.T) {
	m := newMatcher(t)

	got := m.Match("helo")

	require.Len(t, got, 1)
	assert.Equal(t, "greeting", got[0].IntentID)
	assert.InDelta(t, 1-1.0/5.0, got[0].Score, 1e-9)
	assert.Less(t, got[0].Score, 1.0)
}

func TestMatch_FuzzySkipsShortPhrases(t *testing.T) {
	m := newMatcher(t)

	assert.Empty(t, m.Match("ho"))
	assert.Empty(t, m.Match("something unrelated"))
	assert.Empty(t, m.Match(""))
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New([]domain.IntentMeta{{ID: "x", Name: "x", Patterns: []domain.RulePattern{
		{Kind: domain.RulePatternRegex, Value: "("},
	}}}, nil, norm, Config{})
	assert.Error(t, err)
}

// Package model rebuilds the runtime view of a trained artifact: the
// embedding index, rule matcher and entity extractor.
package model

import (
	"fmt"
	"time"

	"github.com/seu-repo/botcore/internal/domain"
	"github.com/seu-repo/botcore/internal/nlu/extractor"
	"github.com/seu-repo/botcore/internal/nlu/index"
	"github.com/seu-repo/botcore/internal/nlu/rules"
	"github.com/seu-repo/botcore/internal/nlu/text"
)

type Options struct {
	Rules rules.Config
	Clock func() time.Time
}

// Compiled is immutable once built. Handles are swapped, never mutated.
type Compiled struct {
	Artifact   *domain.ModelArtifact
	Normalizer text.Normalizer
	Index      *index.Index
	Rules      *rules.Matcher
	Extractor  *extractor.Extractor

	intents      map[string]*domain.IntentMeta
	byName       map[string]*domain.IntentMeta
	phraseIntent map[string]string
}

func Compile(a *domain.ModelArtifact, opts Options) (*Compiled, error) {
	if a == nil {
		return nil, fmt.Errorf("model: nil artifact")
	}
	norm := text.Normalizer{StripPunctuation: a.StripPunctuation}

	entries := make([]index.Entry, 0, len(a.Phrases))
	phraseIntent := make(map[string]string, len(a.Phrases))
	for _, p := range a.Phrases {
		if len(p.Vector) != a.Dimensions {
			return nil, &domain.EmbeddingDimensionMismatchError{Phrase: p.Text, Expected: a.Dimensions, Got: len(p.Vector)}
		}
		entries = append(entries, index.Entry{ID: p.ID, Vector: p.Vector})
		phraseIntent[p.ID] = p.IntentID
	}
	idx, err := index.New(entries)
	if err != nil {
		return nil, fmt.Errorf("model: build index: %w", err)
	}

	matcher, err := rules.New(a.Intents, a.Phrases, norm, opts.Rules)
	if err != nil {
		return nil, fmt.Errorf("model: build rules: %w", err)
	}

	var exOpts []extractor.Option
	if opts.Clock != nil {
		exOpts = append(exOpts, extractor.WithClock(opts.Clock))
	}
	ex, err := extractor.New(a.Entities, exOpts...)
	if err != nil {
		return nil, fmt.Errorf("model: build extractor: %w", err)
	}

	c := &Compiled{
		Artifact:     a,
		Normalizer:   norm,
		Index:        idx,
		Rules:        matcher,
		Extractor:    ex,
		intents:      make(map[string]*domain.IntentMeta, len(a.Intents)),
		byName:       make(map[string]*domain.IntentMeta, len(a.Intents)),
		phraseIntent: phraseIntent,
	}
	for i := range a.Intents {
		in := &a.Intents[i]
		c.intents[in.ID] = in
		c.byName[in.Name] = in
	}
	return c, nil
}

func (c *Compiled) BotID() string   { return c.Artifact.BotID }
func (c *Compiled) Version() int64  { return c.Artifact.Version }
func (c *Compiled) Dimensions() int { return c.Artifact.Dimensions }

func (c *Compiled) Intents() []domain.IntentMeta { return c.Artifact.Intents }

func (c *Compiled) Intent(id string) (*domain.IntentMeta, bool) {
	in, ok := c.intents[id]
	return in, ok
}

func (c *Compiled) IntentByName(name string) (*domain.IntentMeta, bool) {
	in, ok := c.byName[name]
	return in, ok
}

// PhraseIntent maps an indexed phrase id back to its intent.
func (c *Compiled) PhraseIntent(phraseID string) (string, bool) {
	id, ok := c.phraseIntent[phraseID]
	return id, ok
}

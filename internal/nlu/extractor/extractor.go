// Package extractor finds typed entities in raw user text.
package extractor

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/seu-repo/botcore/internal/domain"
)

type Option func(*Extractor)

// WithClock sets the reference time used by relative date words.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// Extractor is immutable after New and safe for concurrent use.
type Extractor struct {
	defs []compiledDef
	now  func() time.Time
}

type compiledDef struct {
	name      string
	kind      domain.EntityKind
	system    domain.SystemRecognizer
	re        *regexp.Regexp
	canonical map[string]string
}

type candidate struct {
	name  string
	match domain.EntityMatch
}

func New(defs []domain.EntityDefinition, opts ...Option) (*Extractor, error) {
	e := &Extractor{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}

	seen := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("entity definition without name")
		}
		if _, dup := seen[def.Name]; dup {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateEntity, def.Name)
		}
		seen[def.Name] = struct{}{}

		cd, err := compile(def)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", def.Name, err)
		}
		e.defs = append(e.defs, cd)
	}
	return e, nil
}

func compile(def domain.EntityDefinition) (compiledDef, error) {
	cd := compiledDef{name: def.Name, kind: def.Kind}

	switch def.Kind {
	case domain.EntityKindSystem:
		if _, ok := systemPatterns[def.System]; !ok {
			return cd, fmt.Errorf("unknown system recognizer %q", def.System)
		}
		cd.system = def.System

	case domain.EntityKindCustom:
		cd.canonical = make(map[string]string)
		var surfaces []string
		for _, v := range def.Values {
			for _, s := range append([]string{v.Value}, v.Synonyms...) {
				s = strings.TrimSpace(s)
				if s == "" {
					continue
				}
				key := strings.ToLower(s)
				if _, ok := cd.canonical[key]; ok {
					continue
				}
				cd.canonical[key] = v.Value
				surfaces = append(surfaces, regexp.QuoteMeta(s))
			}
		}
		if len(surfaces) == 0 {
			return cd, fmt.Errorf("custom entity has no values")
		}
		// Longest alternatives first so "new york city" beats "new york".
		sort.SliceStable(surfaces, func(i, j int) bool { return len(surfaces[i]) > len(surfaces[j]) })
		re, err := regexp.Compile(`(?i)\b(?:` + strings.Join(surfaces, "|") + `)\b`)
		if err != nil {
			return cd, err
		}
		cd.re = re

	case domain.EntityKindRegex:
		if def.Pattern == "" {
			return cd, fmt.Errorf("regex entity has empty pattern")
		}
		re, err := regexp.Compile(def.Pattern)
		if err != nil {
			return cd, fmt.Errorf("invalid pattern: %w", err)
		}
		cd.re = re

	default:
		return cd, fmt.Errorf("unknown entity kind %q", def.Kind)
	}
	return cd, nil
}

// Extract returns every non-overlapping entity found in text. Spans are byte
// offsets into text. An empty result is not an error.
func (e *Extractor) Extract(text string) domain.Entities {
	var cands []candidate
	for _, def := range e.defs {
		cands = append(cands, e.scan(def, text)...)
	}

	accepted := resolveOverlaps(cands)

	out := make(domain.Entities)
	for _, c := range accepted {
		out[c.name] = append(out[c.name], c.match)
	}
	for name := range out {
		sort.Slice(out[name], func(i, j int) bool {
			return out[name][i].Span.Start < out[name][j].Span.Start
		})
	}
	return out
}

func (e *Extractor) scan(def compiledDef, text string) []candidate {
	switch def.kind {
	case domain.EntityKindSystem:
		return e.scanSystem(def, text)

	case domain.EntityKindCustom:
		var out []candidate
		for _, loc := range def.re.FindAllStringIndex(text, -1) {
			raw := text[loc[0]:loc[1]]
			value, ok := def.canonical[strings.ToLower(raw)]
			if !ok {
				value = raw
			}
			out = append(out, candidate{name: def.name, match: domain.EntityMatch{
				Value:  value,
				Raw:    raw,
				Span:   domain.Span{Start: loc[0], End: loc[1]},
				Source: domain.EntityKindCustom,
			}})
		}
		return out

	default:
		var out []candidate
		groups := def.re.NumSubexp()
		for _, loc := range def.re.FindAllStringSubmatchIndex(text, -1) {
			if loc[0] == loc[1] {
				continue
			}
			raw := text[loc[0]:loc[1]]
			value := raw
			if groups > 0 && loc[2] >= 0 {
				value = text[loc[2]:loc[3]]
			}
			out = append(out, candidate{name: def.name, match: domain.EntityMatch{
				Value:  value,
				Raw:    raw,
				Span:   domain.Span{Start: loc[0], End: loc[1]},
				Source: domain.EntityKindRegex,
			}})
		}
		return out
	}
}

var sourceRank = map[domain.EntityKind]int{
	domain.EntityKindSystem: 0,
	domain.EntityKindCustom: 1,
	domain.EntityKindRegex:  2,
}

// resolveOverlaps keeps a maximal set of non-overlapping matches, preferring
// longer spans, then system over custom over regex, then the earlier start,
// then the entity name.
func resolveOverlaps(cands []candidate) []candidate {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.match.Span.Len() != b.match.Span.Len() {
			return a.match.Span.Len() > b.match.Span.Len()
		}
		if ra, rb := sourceRank[a.match.Source], sourceRank[b.match.Source]; ra != rb {
			return ra < rb
		}
		if a.match.Span.Start != b.match.Span.Start {
			return a.match.Span.Start < b.match.Span.Start
		}
		return a.name < b.name
	})

	var accepted []candidate
	for _, c := range cands {
		clash := false
		for _, a := range accepted {
			if a.match.Span.Overlaps(c.match.Span) {
				clash = true
				break
			}
		}
		if !clash {
			accepted = append(accepted, c)
		}
	}
	return accepted
}

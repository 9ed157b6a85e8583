package dialogue

import (
	"hash/fnv"
	"math/rand/v2"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/seu-repo/botcore/internal/domain"
)

// placeholder matches {name}, {@name} (entity) and {$name} (session variable).
var placeholder = regexp.MustCompile(`\{([@$]?)([A-Za-z_][A-Za-z0-9_.-]*)\}`)

// Vars are the values a response template can reference.
type Vars struct {
	Slots     map[string]string
	Entities  map[string]string
	Variables map[string]string
}

func (v Vars) lookup(sigil, name string) (string, bool) {
	var sources []map[string]string
	switch sigil {
	case "@":
		sources = []map[string]string{v.Entities}
	case "$":
		sources = []map[string]string{v.Variables}
	default:
		sources = []map[string]string{v.Slots, v.Entities, v.Variables}
	}
	for _, src := range sources {
		if val, ok := src[name]; ok {
			return val, true
		}
	}
	return "", false
}

// Render substitutes every placeholder in tmpl. The first unresolved one
// yields a TemplateResolutionError.
func Render(tmpl string, vars Vars) (string, error) {
	var missing string
	out := placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		parts := placeholder.FindStringSubmatch(m)
		val, ok := vars.lookup(parts[1], parts[2])
		if !ok {
			if missing == "" {
				missing = m
			}
			return m
		}
		return val
	})
	if missing != "" {
		return "", &domain.TemplateResolutionError{Template: tmpl, Placeholder: missing}
	}
	return out, nil
}

type Selector struct {
	log *zap.Logger
}

func NewSelector(log *zap.Logger) *Selector {
	return &Selector{log: log}
}

// Select picks one of the intent's responses. Both strategies keep a
// per-intent counter on the session. Round robin uses it as the cursor;
// random counts draws and seeds the generator with the bot seed, the session
// and intent ids and the draw number, so replays are deterministic.
func (s *Selector) Select(intent *domain.IntentMeta, bot *domain.BotConfig, session *domain.Session) (domain.ResponseTemplate, bool) {
	n := len(intent.Responses)
	if n == 0 {
		return domain.ResponseTemplate{}, false
	}

	if session.ResponseCursor == nil {
		session.ResponseCursor = make(map[string]int)
	}

	if bot.ResponseSelection == domain.ResponseSelectionRandom {
		// The draw count grows for the whole session, unlike the bounded turn history.
		draw := session.ResponseCursor[intent.ID]
		session.ResponseCursor[intent.ID] = draw + 1
		h := fnv.New64a()
		h.Write([]byte(session.SessionID))
		h.Write([]byte{0})
		h.Write([]byte(intent.ID))
		rng := rand.New(rand.NewPCG(uint64(bot.SelectionSeed), h.Sum64()+uint64(draw)))
		return intent.Responses[rng.IntN(n)], true
	}

	idx := session.ResponseCursor[intent.ID] % n
	session.ResponseCursor[intent.ID] = (idx + 1) % n
	return intent.Responses[idx], true
}

// Respond selects and renders a response. A template that cannot be rendered
// is logged and replaced by the bot's fallback text; it never fails the turn.
func (s *Selector) Respond(intent *domain.IntentMeta, bot *domain.BotConfig, session *domain.Session, vars Vars) string {
	tmpl, ok := s.Select(intent, bot, session)
	if !ok {
		return bot.FallbackText()
	}
	text, err := Render(tmpl.Text, vars)
	if err != nil {
		s.log.Warn("response template unresolved",
			zap.String("bot_id", bot.ID),
			zap.String("intent", intent.Name),
			zap.Error(err),
		)
		return bot.FallbackText()
	}
	return text
}

// SlotPrompt returns the question asking for slot.
func SlotPrompt(slot domain.SlotSpec, vars Vars) string {
	if slot.Prompt != "" {
		if text, err := Render(slot.Prompt, vars); err == nil {
			return text
		}
	}
	return "Could you provide your " + strings.ReplaceAll(slot.Name, "_", " ") + "?"
}

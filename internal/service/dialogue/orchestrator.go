package dialogue

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/seu-repo/botcore/internal/domain"
	"github.com/seu-repo/botcore/internal/nlu/classifier"
	"github.com/seu-repo/botcore/internal/nlu/model"
	"github.com/seu-repo/botcore/internal/observability/telemetry"
	"github.com/seu-repo/botcore/internal/ports"
)

// ModelProvider returns the model currently served for a bot.
type ModelProvider interface {
	Model(ctx context.Context, botID string) (*model.Compiled, error)
}

// Orchestrator runs one conversation turn: extract, classify or fill a slot,
// pick a response and persist the session.
type Orchestrator struct {
	catalog    ports.Catalog
	models     ModelProvider
	classifier *classifier.Classifier
	sessions   *Manager
	selector   *Selector
	locks      *keyedMutex
	now        func() time.Time
	log        *zap.Logger
}

func NewOrchestrator(catalog ports.Catalog, models ModelProvider, cls *classifier.Classifier, sessions *Manager, selector *Selector, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		catalog:    catalog,
		models:     models,
		classifier: cls,
		sessions:   sessions,
		selector:   selector,
		locks:      newKeyedMutex(),
		now:        time.Now,
		log:        log,
	}
}

// HandleMessage processes req. Turns for the same session are serialized in
// process; concurrent writers elsewhere are detected by the session revision
// and the turn is recomputed on conflict.
func (o *Orchestrator) HandleMessage(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "dialogue.HandleMessage")
	defer span.End()
	span.SetAttributes(attribute.String("bot.id", req.BotID), attribute.String("session.id", req.SessionID))

	start := time.Now()
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, domain.ErrInvalidSessionID
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, domain.ErrEmptyMessage
	}

	bot, err := o.catalog.GetBotConfig(ctx, req.BotID)
	if err != nil {
		return nil, err
	}
	if !bot.Active {
		return nil, domain.ErrBotInactive
	}
	m, err := o.models.Model(ctx, req.BotID)
	if err != nil {
		return nil, err
	}

	key := domain.SessionKey{BotID: req.BotID, SessionID: req.SessionID}
	unlock, err := o.locks.Lock(ctx, key.String())
	if err != nil {
		// Another turn for this session still holds it.
		return nil, &domain.ContextStoreUnavailableError{Op: "lock", Err: err}
	}
	defer unlock()

	retries := o.sessions.Config().CASRetries
	for attempt := 0; ; attempt++ {
		resp, err := o.turn(ctx, req, key, bot, m)
		if errors.Is(err, domain.ErrVersionConflict) && attempt < retries {
			o.log.Debug("session revision conflict, retrying turn",
				zap.String("session_id", req.SessionID),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		resp.ResponseTimeMs = time.Since(start).Milliseconds()
		telemetry.TurnLatency.Observe(time.Since(start).Seconds())
		return resp, nil
	}
}

type outcome struct {
	intent     *domain.IntentMeta
	confidence float64
	source     domain.TurnSource
	response   string
	result     *domain.ClassificationResult
}

func (o *Orchestrator) turn(ctx context.Context, req domain.ChatRequest, key domain.SessionKey, bot *domain.BotConfig, m *model.Compiled) (*domain.ChatResponse, error) {
	session, err := o.sessions.GetOrCreate(ctx, key, req.UserID)
	if err != nil {
		return nil, err
	}
	if session.State == domain.SessionStateEnded {
		if !req.Restart {
			return nil, &domain.SessionEndedError{SessionID: req.SessionID}
		}
		revision := session.Revision
		session = domain.NewSession(key, req.UserID, o.now(), o.sessions.Config().TTL)
		session.Revision = revision
	}
	if req.UserID != "" {
		session.UserID = req.UserID
	}

	entities := m.Extractor.Extract(req.Message)
	flat := entities.Flatten()
	for name, value := range flat {
		session.Variables[name] = value
	}

	out, err := o.decide(ctx, req.Message, session, entities, bot, m)
	if err != nil {
		return nil, err
	}

	var detected *string
	if out.intent != nil {
		name := out.intent.Name
		detected = &name
	}
	session.AppendTurn(domain.Turn{
		ID:             uuid.New().String(),
		InputText:      req.Message,
		DetectedIntent: detected,
		Confidence:     out.confidence,
		Entities:       flat,
		ResponseText:   out.response,
		Source:         out.source,
		Timestamp:      o.now().UTC(),
	}, o.sessions.Config().MaxTurns)

	// A caller that went away must not leave a half-applied turn behind.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := o.sessions.Put(ctx, session); err != nil {
		return nil, err
	}
	telemetry.TurnsTotal.WithLabelValues(bot.ID, string(out.source)).Inc()

	resp := &domain.ChatResponse{
		SessionID:    session.SessionID,
		ResponseText: out.response,
		IntentName:   detected,
		Confidence:   out.confidence,
		Entities:     flat,
		State:        session.State,
		ModelVersion: m.Version(),
	}
	if out.result != nil {
		resp.Suggestions = out.result.Suggestions
	}
	return resp, nil
}

func (o *Orchestrator) decide(ctx context.Context, message string, session *domain.Session, entities domain.Entities, bot *domain.BotConfig, m *model.Compiled) (outcome, error) {
	var pending *domain.IntentMeta
	if session.State == domain.SessionStateAwaitingSlotFill && session.ActiveIntent != nil {
		if in, ok := m.Intent(*session.ActiveIntent); ok {
			pending = in
		} else {
			resetTopic(session)
		}
	}

	// Short follow-ups such as "12345" resolve against the pending intent
	// without classification.
	if pending != nil {
		if slot, missing := session.MissingSlot(pending.Slots); missing {
			if value, ok := entities.First(slot.Entity); ok {
				session.PendingSlots[slot.Name] = &value
				return o.advance(pending, session.ActiveConfidence, domain.TurnSourceSlotFill, session, entities, bot), nil
			}
		}
	}

	result, err := o.classifier.Classify(ctx, message, m, bot)
	if err != nil {
		return outcome{}, err
	}
	chosen := result.ChosenIntent

	if pending != nil && (chosen == nil || result.LowConfidence || chosen.IntentID == pending.ID) {
		slot, _ := session.MissingSlot(pending.Slots)
		if chosen != nil && chosen.IntentID == pending.ID {
			fillSlots(session, pending, entities)
			return o.advance(pending, chosen.Score, domain.TurnSourceClassifier, session, entities, bot), nil
		}
		return outcome{
			intent:     pending,
			confidence: session.ActiveConfidence,
			source:     domain.TurnSourceFallback,
			response:   SlotPrompt(slot, o.vars(session, entities)),
			result:     result,
		}, nil
	}

	if chosen == nil {
		resetTopic(session)
		session.State = domain.SessionStateResponded
		top, _ := result.Top()
		return outcome{
			confidence: top.Score,
			source:     domain.TurnSourceFallback,
			response:   bot.FallbackText(),
			result:     result,
		}, nil
	}

	in, ok := m.Intent(chosen.IntentID)
	if !ok {
		return outcome{}, errors.New("classifier chose an intent missing from the model")
	}

	active := in.ID
	session.ActiveIntent = &active
	session.ActiveConfidence = chosen.Score
	session.PendingSlots = make(map[string]*string, len(in.Slots))
	for _, slot := range in.Slots {
		session.PendingSlots[slot.Name] = nil
	}
	fillSlots(session, in, entities)

	source := domain.TurnSourceClassifier
	if result.LowConfidence {
		source = domain.TurnSourceFallback
	}
	out := o.advance(in, chosen.Score, source, session, entities, bot)
	out.result = result
	return out, nil
}

// advance asks for the next missing slot or renders the intent's response.
func (o *Orchestrator) advance(in *domain.IntentMeta, confidence float64, source domain.TurnSource, session *domain.Session, entities domain.Entities, bot *domain.BotConfig) outcome {
	vars := o.vars(session, entities)
	if slot, missing := session.MissingSlot(in.Slots); missing {
		session.State = domain.SessionStateAwaitingSlotFill
		return outcome{intent: in, confidence: confidence, source: source, response: SlotPrompt(slot, vars)}
	}

	text := o.selector.Respond(in, bot, session, vars)
	for name, value := range vars.Slots {
		session.Variables[name] = value
	}
	session.PendingSlots = make(map[string]*string)
	session.State = domain.SessionStateResponded
	return outcome{intent: in, confidence: confidence, source: source, response: text}
}

func (o *Orchestrator) vars(session *domain.Session, entities domain.Entities) Vars {
	slots := make(map[string]string, len(session.PendingSlots))
	for name, v := range session.PendingSlots {
		if v != nil {
			slots[name] = *v
		}
	}
	return Vars{Slots: slots, Entities: entities.Flatten(), Variables: session.Variables}
}

func fillSlots(session *domain.Session, in *domain.IntentMeta, entities domain.Entities) {
	for _, slot := range in.Slots {
		if v := session.PendingSlots[slot.Name]; v != nil {
			continue
		}
		if value, ok := entities.First(slot.Entity); ok {
			session.PendingSlots[slot.Name] = &value
		}
	}
}

func resetTopic(session *domain.Session) {
	session.ActiveIntent = nil
	session.ActiveConfidence = 0
	session.PendingSlots = make(map[string]*string)
	session.State = domain.SessionStateIdle
}

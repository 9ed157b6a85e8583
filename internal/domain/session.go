package domain

import (
	"strings"
	"time"
)

type SessionState string

const (
	SessionStateIdle             SessionState = "idle"
	SessionStateAwaitingSlotFill SessionState = "awaiting_slot_fill"
	SessionStateResponded        SessionState = "responded"
	SessionStateEnded            SessionState = "ended"
)

type TurnSource string

const (
	TurnSourceClassifier TurnSource = "classifier"
	TurnSourceSlotFill   TurnSource = "slot_fill"
	TurnSourceFallback   TurnSource = "fallback"
)

// SessionKey scopes a session id to its bot so context never leaks across bots.
type SessionKey struct {
	BotID     string `json:"bot_id"`
	SessionID string `json:"session_id"`
}

// botIDEscaper keeps ":" out of the bot part so the first separator in a
// key always ends the bot id.
var botIDEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// String renders "<bot_id>:<session_id>". The bot id is escaped, so distinct
// keys never render the same string.
func (k SessionKey) String() string {
	return botIDEscaper.Replace(k.BotID) + ":" + k.SessionID
}

type Session struct {
	BotID            string             `json:"bot_id"`
	SessionID        string             `json:"session_id"`
	UserID           string             `json:"user_id,omitempty"`
	State            SessionState       `json:"state"`
	CreatedAt        time.Time          `json:"created_at"`
	ExpiresAt        time.Time          `json:"expires_at"`
	LastActivityAt   time.Time          `json:"last_activity_at"`
	Turns            []Turn             `json:"turns"`
	ActiveIntent     *string            `json:"active_intent,omitempty"`
	ActiveConfidence float64            `json:"active_confidence,omitempty"`
	PendingSlots     map[string]*string `json:"pending_slots,omitempty"`
	Variables        map[string]string  `json:"variables,omitempty"`
	ResponseCursor   map[string]int     `json:"response_cursor,omitempty"`
	// Revision is bumped on every successful write and used for
	// compare-and-swap by the session stores.
	Revision int64 `json:"revision"`
}

type Turn struct {
	ID             string            `json:"id"`
	InputText      string            `json:"input_text"`
	DetectedIntent *string           `json:"detected_intent"`
	Confidence     float64           `json:"confidence"`
	Entities       map[string]string `json:"entities"`
	ResponseText   string            `json:"response_text"`
	Source         TurnSource        `json:"source"`
	Timestamp      time.Time         `json:"timestamp"`
}

func NewSession(key SessionKey, userID string, now time.Time, ttl time.Duration) *Session {
	return &Session{
		BotID:          key.BotID,
		SessionID:      key.SessionID,
		UserID:         userID,
		State:          SessionStateIdle,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(ttl),
		PendingSlots:   make(map[string]*string),
		Variables:      make(map[string]string),
		ResponseCursor: make(map[string]int),
	}
}

func (s *Session) Key() SessionKey {
	return SessionKey{BotID: s.BotID, SessionID: s.SessionID}
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// AppendTurn adds a turn and drops the oldest ones beyond maxTurns.
func (s *Session) AppendTurn(t Turn, maxTurns int) {
	s.Turns = append(s.Turns, t)
	if maxTurns > 0 && len(s.Turns) > maxTurns {
		s.Turns = append([]Turn(nil), s.Turns[len(s.Turns)-maxTurns:]...)
	}
}

// MissingSlot returns the first slot of specs still unresolved.
func (s *Session) MissingSlot(specs []SlotSpec) (SlotSpec, bool) {
	for _, spec := range specs {
		if v, ok := s.PendingSlots[spec.Name]; !ok || v == nil {
			return spec, true
		}
	}
	return SlotSpec{}, false
}

// EnsureMaps allocates the maps that encoding drops when empty.
func (s *Session) EnsureMaps() {
	if s.PendingSlots == nil {
		s.PendingSlots = make(map[string]*string)
	}
	if s.Variables == nil {
		s.Variables = make(map[string]string)
	}
	if s.ResponseCursor == nil {
		s.ResponseCursor = make(map[string]int)
	}
}

// Clone returns a deep copy so callers can mutate without touching a stored value.
func (s *Session) Clone() *Session {
	c := *s
	c.Turns = append([]Turn(nil), s.Turns...)
	if s.ActiveIntent != nil {
		v := *s.ActiveIntent
		c.ActiveIntent = &v
	}
	c.PendingSlots = make(map[string]*string, len(s.PendingSlots))
	for k, v := range s.PendingSlots {
		if v == nil {
			c.PendingSlots[k] = nil
			continue
		}
		val := *v
		c.PendingSlots[k] = &val
	}
	c.Variables = make(map[string]string, len(s.Variables))
	for k, v := range s.Variables {
		c.Variables[k] = v
	}
	c.ResponseCursor = make(map[string]int, len(s.ResponseCursor))
	for k, v := range s.ResponseCursor {
		c.ResponseCursor[k] = v
	}
	return &c
}

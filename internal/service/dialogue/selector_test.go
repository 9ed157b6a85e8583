package dialogue

import (
	"errors"
	"testing"

	"github.com/seu-repo/botcore/internal/domain"
)

func TestRender_Placeholders(t *testing.T) {
	vars := Vars{
		Slots:     map[string]string{"order_number": "12345"},
		Entities:  map[string]string{"city": "Paris", "order_number": "999"},
		Variables: map[string]string{"name": "Ada"},
	}

	tests := []struct {
		tmpl string
		want string
	}{
		{"Order {order_number} shipped", "Order 12345 shipped"},
		{"Entity {@order_number}", "Entity 999"},
		{"Hi {$name}, flying to {city}?", "Hi Ada, flying to Paris?"},
		{"No placeholders", "No placeholders"},
	}
	for _, tt := range tests {
		got, err := Render(tt.tmpl, vars)
		if err != nil {
			t.Fatalf("expected no error for %q, got %v", tt.tmpl, err)
		}
		if got != tt.want {
			t.Errorf("Render(%q) = %q, want %q", tt.tmpl, got, tt.want)
		}
	}
}

func TestRender_MissingPlaceholder(t *testing.T) {
	_, err := Render("Hello {$name}", Vars{})

	var tre *domain.TemplateResolutionError
	if !errors.As(err, &tre) {
		t.Fatalf("expected TemplateResolutionError, got %v", err)
	}
	if tre.Placeholder != "{$name}" {
		t.Errorf("expected placeholder {$name}, got %s", tre.Placeholder)
	}
}

func TestRespond_BrokenTemplateFallsBack(t *testing.T) {
	// Arrange
	s := NewSelector(newTestLogger())
	bot := &domain.BotConfig{ID: "b", DefaultResponse: "Sorry!"}
	intent := &domain.IntentMeta{ID: "i", Responses: []domain.ResponseTemplate{{Text: "Hi {missing}"}}}
	session := domain.NewSession(domain.SessionKey{BotID: "b", SessionID: "s"}, "", fixedNow(), DefaultSessionTTL)

	// Act
	got := s.Respond(intent, bot, session, Vars{})

	// Assert
	if got != "Sorry!" {
		t.Errorf("expected fallback text, got %q", got)
	}
}

func TestSelect_RoundRobin(t *testing.T) {
	// Arrange
	s := NewSelector(newTestLogger())
	bot := &domain.BotConfig{ResponseSelection: domain.ResponseSelectionRoundRobin}
	intent := &domain.IntentMeta{ID: "i", Responses: []domain.ResponseTemplate{{Text: "a"}, {Text: "b"}, {Text: "c"}}}
	session := domain.NewSession(domain.SessionKey{BotID: "b", SessionID: "s"}, "", fixedNow(), DefaultSessionTTL)

	// Act
	var got []string
	for i := 0; i < 4; i++ {
		r, _ := s.Select(intent, bot, session)
		got = append(got, r.Text)
	}

	// Assert
	want := []string{"a", "b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSelect_RandomIsSeeded(t *testing.T) {
	s := NewSelector(newTestLogger())
	bot := &domain.BotConfig{ResponseSelection: domain.ResponseSelectionRandom, SelectionSeed: 7}
	intent := &domain.IntentMeta{ID: "i", Responses: []domain.ResponseTemplate{{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"}}}

	pick := func() []string {
		session := domain.NewSession(domain.SessionKey{BotID: "b", SessionID: "s"}, "", fixedNow(), DefaultSessionTTL)
		var out []string
		for i := 0; i < 5; i++ {
			r, _ := s.Select(intent, bot, session)
			out = append(out, r.Text)
			session.Turns = append(session.Turns, domain.Turn{})
		}
		return out
	}

	first, second := pick(), pick()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("expected identical picks for the same seed, got %v and %v", first, second)
		}
	}
}

func TestSelect_RandomKeepsRotatingPastHistoryLimit(t *testing.T) {
	// Arrange
	s := NewSelector(newTestLogger())
	bot := &domain.BotConfig{ResponseSelection: domain.ResponseSelectionRandom, SelectionSeed: 7}
	intent := &domain.IntentMeta{ID: "i", Responses: []domain.ResponseTemplate{{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"}}}
	session := domain.NewSession(domain.SessionKey{BotID: "b", SessionID: "s"}, "", fixedNow(), DefaultSessionTTL)

	// Act
	seen := make(map[string]int)
	for i := 0; i < 40; i++ {
		r, _ := s.Select(intent, bot, session)
		session.AppendTurn(domain.Turn{ResponseText: r.Text}, DefaultMaxTurns)
		if i >= DefaultMaxTurns {
			seen[r.Text]++
		}
	}

	// Assert
	if len(session.Turns) != DefaultMaxTurns {
		t.Fatalf("expected history capped at %d, got %d", DefaultMaxTurns, len(session.Turns))
	}
	if len(seen) < 2 {
		t.Errorf("expected random selection to vary once history is full, got %v", seen)
	}
}

func TestSlotPrompt_Default(t *testing.T) {
	got := SlotPrompt(domain.SlotSpec{Name: "order_number"}, Vars{})
	if got != "Could you provide your order number?" {
		t.Errorf("unexpected prompt %q", got)
	}
}

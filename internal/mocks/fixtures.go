package mocks

import "github.com/seu-repo/botcore/internal/domain"

const ScenarioBotID = "support"

// ScenarioBot is a small support bot with a greeting and an order status
// intent that needs an order number before it can answer.
func ScenarioBot() (*domain.BotConfig, []domain.Intent, []domain.EntityDefinition) {
	bot := &domain.BotConfig{
		ID:                  ScenarioBotID,
		Name:                "Support",
		Active:              true,
		Language:            "en",
		ConfidenceThreshold: 0.7,
		ResponseSelection:   domain.ResponseSelectionRoundRobin,
		SelectionSeed:       42,
	}
	intents := []domain.Intent{
		{
			ID:       "greeting",
			BotID:    ScenarioBotID,
			Name:     "greeting",
			Priority: 1,
			Active:   true,
			TrainingPhrases: []domain.Phrase{
				{ID: "greeting-1", Text: "hello"},
				{ID: "greeting-2", Text: "hi"},
			},
			Responses: []domain.ResponseTemplate{
				{Text: "Hello! How can I help you?"},
				{Text: "Hi there!"},
			},
		},
		{
			ID:       "order_status",
			BotID:    ScenarioBotID,
			Name:     "order_status",
			Priority: 2,
			Active:   true,
			TrainingPhrases: []domain.Phrase{
				{ID: "order-1", Text: "where is my order"},
				{ID: "order-2", Text: "track my order"},
			},
			Responses: []domain.ResponseTemplate{
				{Text: "Order {order_number} is on its way."},
			},
			Slots: []domain.SlotSpec{
				{Name: "order_number", Entity: "number", Prompt: "What is your order number?"},
			},
		},
	}
	entities := []domain.EntityDefinition{
		{Name: "number", Kind: domain.EntityKindSystem, System: domain.SystemNumber},
	}
	return bot, intents, entities
}

// ScenarioEmbedder maps the normalized scenario texts onto three axes:
// greeting, order and noise.
func ScenarioEmbedder() *MockEmbedder {
	e := NewMockEmbedder([]float32{0, 0, 1})
	e.Vectors["hello"] = []float32{1, 0, 0}
	e.Vectors["hi"] = []float32{1, 0, 0}
	e.Vectors["where is my order"] = []float32{0, 1, 0}
	e.Vectors["track my order"] = []float32{0, 1, 0}
	e.Vectors["wheres my package"] = []float32{0.6, 0.8, 0}
	return e
}

// ScenarioCatalog returns a catalog holding ScenarioBot.
func ScenarioCatalog() *MockCatalog {
	c := NewMockCatalog()
	bot, intents, entities := ScenarioBot()
	c.AddBot(bot, intents, entities)
	return c
}

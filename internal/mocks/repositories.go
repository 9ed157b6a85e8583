package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/seu-repo/botcore/internal/domain"
)

// MockCatalog serves bot definitions from memory unless a Func is set.
type MockCatalog struct {
	mu                       sync.RWMutex
	Bots                     map[string]*domain.BotConfig
	Intents                  map[string][]domain.Intent
	Entities                 map[string][]domain.EntityDefinition
	GetBotConfigFunc         func(ctx context.Context, botID string) (*domain.BotConfig, error)
	GetIntentsFunc           func(ctx context.Context, botID string) ([]domain.Intent, error)
	GetEntityDefinitionsFunc func(ctx context.Context, botID string) ([]domain.EntityDefinition, error)
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		Bots:     make(map[string]*domain.BotConfig),
		Intents:  make(map[string][]domain.Intent),
		Entities: make(map[string][]domain.EntityDefinition),
	}
}

// AddBot registers a bot with its intents and entities.
func (m *MockCatalog) AddBot(bot *domain.BotConfig, intents []domain.Intent, entities []domain.EntityDefinition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Bots[bot.ID] = bot
	m.Intents[bot.ID] = intents
	m.Entities[bot.ID] = entities
}

func (m *MockCatalog) GetBotConfig(ctx context.Context, botID string) (*domain.BotConfig, error) {
	if m.GetBotConfigFunc != nil {
		return m.GetBotConfigFunc(ctx, botID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	bot, ok := m.Bots[botID]
	if !ok {
		return nil, domain.ErrBotNotFound
	}
	cp := *bot
	return &cp, nil
}

func (m *MockCatalog) GetIntents(ctx context.Context, botID string) ([]domain.Intent, error) {
	if m.GetIntentsFunc != nil {
		return m.GetIntentsFunc(ctx, botID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.Bots[botID]; !ok {
		return nil, domain.ErrBotNotFound
	}
	return append([]domain.Intent(nil), m.Intents[botID]...), nil
}

func (m *MockCatalog) GetEntityDefinitions(ctx context.Context, botID string) ([]domain.EntityDefinition, error) {
	if m.GetEntityDefinitionsFunc != nil {
		return m.GetEntityDefinitionsFunc(ctx, botID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.Bots[botID]; !ok {
		return nil, domain.ErrBotNotFound
	}
	return append([]domain.EntityDefinition(nil), m.Entities[botID]...), nil
}

func (m *MockCatalog) ListBots(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.Bots))
	for id := range m.Bots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// MockModelRepository keeps every published artifact in memory.
type MockModelRepository struct {
	mu           sync.Mutex
	versions     map[string]map[int64]*domain.ModelArtifact
	current      map[string]int64
	PublishFunc  func(ctx context.Context, a *domain.ModelArtifact) error
	PublishCalls int
}

func NewMockModelRepository() *MockModelRepository {
	return &MockModelRepository{
		versions: make(map[string]map[int64]*domain.ModelArtifact),
		current:  make(map[string]int64),
	}
}

func (m *MockModelRepository) Publish(ctx context.Context, a *domain.ModelArtifact) error {
	m.mu.Lock()
	m.PublishCalls++
	m.mu.Unlock()
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.versions[a.BotID] == nil {
		m.versions[a.BotID] = make(map[int64]*domain.ModelArtifact)
	}
	m.versions[a.BotID][a.Version] = a
	m.current[a.BotID] = a.Version
	return nil
}

func (m *MockModelRepository) Current(ctx context.Context, botID string) (*domain.ModelArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.current[botID]
	if !ok {
		return nil, domain.ErrModelNotFound
	}
	return m.versions[botID][v], nil
}

func (m *MockModelRepository) Get(ctx context.Context, botID string, version int64) (*domain.ModelArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.versions[botID][version]
	if !ok {
		return nil, domain.ErrModelNotFound
	}
	return a, nil
}

func (m *MockModelRepository) LatestVersion(ctx context.Context, botID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest int64
	for v := range m.versions[botID] {
		if v > latest {
			latest = v
		}
	}
	return latest, nil
}

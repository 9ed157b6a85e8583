package mocks

import (
	"context"
	"sync"

	"github.com/seu-repo/botcore/internal/domain"
)

// MockSessionStore is an in-memory SessionStore with injectable failures.
type MockSessionStore struct {
	mu         sync.Mutex
	data       map[domain.SessionKey]*domain.Session
	GetFunc    func(ctx context.Context, key domain.SessionKey) (*domain.Session, error)
	PutFunc    func(ctx context.Context, s *domain.Session, expected int64) error
	DeleteFunc func(ctx context.Context, key domain.SessionKey) error
	PingFunc   func(ctx context.Context) error
	PutCalls   int
}

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		data: make(map[domain.SessionKey]*domain.Session),
	}
}

func (m *MockSessionStore) Get(ctx context.Context, key domain.SessionKey) (*domain.Session, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.data[key]; ok {
		return s.Clone(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockSessionStore) Put(ctx context.Context, s *domain.Session, expected int64) error {
	m.mu.Lock()
	m.PutCalls++
	m.mu.Unlock()
	if m.PutFunc != nil {
		return m.PutFunc(ctx, s, expected)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var current int64
	if old, ok := m.data[s.Key()]; ok {
		current = old.Revision
	}
	if current != expected {
		return domain.ErrVersionConflict
	}
	stored := s.Clone()
	stored.Revision = expected + 1
	s.Revision = stored.Revision
	m.data[s.Key()] = stored
	return nil
}

func (m *MockSessionStore) Delete(ctx context.Context, key domain.SessionKey) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockSessionStore) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockSessionStore) Close() error {
	return nil
}

package mocks

import (
	"context"
	"fmt"
	"sync"
)

// MockEmbedder returns fixed vectors keyed by the exact text it receives.
// Unknown text gets Default.
type MockEmbedder struct {
	mu        sync.Mutex
	Vectors   map[string][]float32
	Default   []float32
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)
	Calls     int
}

func NewMockEmbedder(def []float32) *MockEmbedder {
	return &MockEmbedder{
		Vectors: make(map[string][]float32),
		Default: def,
	}
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.Vectors[text]; ok {
		return append([]float32(nil), v...), nil
	}
	if m.Default == nil {
		return nil, fmt.Errorf("mock embedder: no vector for %q", text)
	}
	return append([]float32(nil), m.Default...), nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *MockEmbedder) Name() string { return "mock" }

package training

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/seu-repo/botcore/internal/domain"
	"github.com/seu-repo/botcore/internal/mocks"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func newTestPipeline(embedder *mocks.MockEmbedder) *Pipeline {
	return NewPipeline(embedder, PipelineConfig{StripPunctuation: true}, newTestLogger())
}

func TestBuild_Success(t *testing.T) {
	// Arrange
	bot, intents, entities := mocks.ScenarioBot()
	p := newTestPipeline(mocks.ScenarioEmbedder())

	// Act
	m, err := p.Build(context.Background(), bot, intents, entities, 1)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if m.Version() != 1 {
		t.Errorf("expected version 1, got %d", m.Version())
	}
	if m.Dimensions() != 3 {
		t.Errorf("expected 3 dimensions, got %d", m.Dimensions())
	}
	if len(m.Artifact.Phrases) != 4 {
		t.Errorf("expected 4 phrases, got %d", len(m.Artifact.Phrases))
	}
	if m.Index.Len() != 4 {
		t.Errorf("expected 4 indexed phrases, got %d", m.Index.Len())
	}
	if m.Artifact.Checksum == "" {
		t.Error("expected checksum to be set")
	}
}

func TestBuild_ChecksumIgnoresVersion(t *testing.T) {
	// Arrange
	bot, intents, entities := mocks.ScenarioBot()
	p := newTestPipeline(mocks.ScenarioEmbedder())

	// Act
	m1, err1 := p.Build(context.Background(), bot, intents, entities, 1)
	m2, err2 := p.Build(context.Background(), bot, intents, entities, 2)

	// Assert
	if err1 != nil || err2 != nil {
		t.Fatalf("expected no error, got %v / %v", err1, err2)
	}
	if m1.Artifact.Checksum != m2.Artifact.Checksum {
		t.Error("expected identical content to produce identical checksums")
	}
}

func TestBuild_SkipsInactiveIntents(t *testing.T) {
	// Arrange
	bot, intents, entities := mocks.ScenarioBot()
	intents = append(intents, domain.Intent{ID: "draft", Name: "draft", Active: false})
	p := newTestPipeline(mocks.ScenarioEmbedder())

	// Act
	m, err := p.Build(context.Background(), bot, intents, entities, 1)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := m.Intent("draft"); ok {
		t.Error("expected inactive intent to be skipped")
	}
}

func TestBuild_InsufficientData(t *testing.T) {
	bot, intents, entities := mocks.ScenarioBot()

	noPhrases := append([]domain.Intent(nil), intents...)
	noPhrases[0].TrainingPhrases = []domain.Phrase{{Text: "  ?! "}}

	noResponses := append([]domain.Intent(nil), intents...)
	noResponses[1].Responses = []domain.ResponseTemplate{{Text: "card", Type: domain.ResponseTypeRich}}

	inactive := append([]domain.Intent(nil), intents...)
	for i := range inactive {
		inactive[i].Active = false
	}

	tests := []struct {
		name       string
		intents    []domain.Intent
		wantIntent string
	}{
		{"phrases empty after normalization", noPhrases, "greeting"},
		{"no text responses", noResponses, "order_status"},
		{"no active intents", inactive, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(mocks.ScenarioEmbedder())

			_, err := p.Build(context.Background(), bot, tt.intents, entities, 1)

			var insufficient *domain.InsufficientDataError
			if !errors.As(err, &insufficient) {
				t.Fatalf("expected InsufficientDataError, got %v", err)
			}
			if insufficient.Intent != tt.wantIntent {
				t.Errorf("expected intent %q, got %q", tt.wantIntent, insufficient.Intent)
			}
		})
	}
}

func TestBuild_FallbackIntentNeedsOnlyResponses(t *testing.T) {
	// Arrange
	bot, intents, entities := mocks.ScenarioBot()
	bot.FallbackIntent = "fallback"
	intents = append(intents, domain.Intent{
		ID:        "fallback",
		Name:      "fallback",
		Active:    true,
		Responses: []domain.ResponseTemplate{{Text: "Sorry?"}},
	})
	p := newTestPipeline(mocks.ScenarioEmbedder())

	// Act
	m, err := p.Build(context.Background(), bot, intents, entities, 1)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := m.IntentByName("fallback"); !ok {
		t.Error("expected fallback intent in model")
	}
}

func TestBuild_DimensionMismatch(t *testing.T) {
	// Arrange
	bot, intents, entities := mocks.ScenarioBot()
	embedder := mocks.ScenarioEmbedder()
	embedder.Vectors["track my order"] = []float32{0, 1}
	p := newTestPipeline(embedder)

	// Act
	_, err := p.Build(context.Background(), bot, intents, entities, 1)

	// Assert
	var mismatch *domain.EmbeddingDimensionMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected EmbeddingDimensionMismatchError, got %v", err)
	}
	if mismatch.Expected != 3 || mismatch.Got != 2 {
		t.Errorf("expected 3 vs 2, got %d vs %d", mismatch.Expected, mismatch.Got)
	}
}

func TestBuild_TrainingLimit(t *testing.T) {
	// Arrange
	bot, intents, entities := mocks.ScenarioBot()
	p := NewPipeline(mocks.ScenarioEmbedder(), PipelineConfig{StripPunctuation: true, MaxTrainingExamples: 3}, newTestLogger())

	// Act
	_, err := p.Build(context.Background(), bot, intents, entities, 1)

	// Assert
	var limit *domain.TrainingLimitExceededError
	if !errors.As(err, &limit) {
		t.Fatalf("expected TrainingLimitExceededError, got %v", err)
	}
	if limit.Got != 4 {
		t.Errorf("expected 4 examples, got %d", limit.Got)
	}
}

func TestBuild_DuplicateEntity(t *testing.T) {
	// Arrange
	bot, intents, entities := mocks.ScenarioBot()
	entities = append(entities, entities[0])
	p := newTestPipeline(mocks.ScenarioEmbedder())

	// Act
	_, err := p.Build(context.Background(), bot, intents, entities, 1)

	// Assert
	if !errors.Is(err, domain.ErrDuplicateEntity) {
		t.Fatalf("expected ErrDuplicateEntity, got %v", err)
	}
}

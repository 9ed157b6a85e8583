package queue

import (
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestMemoryQueue_PublishDeliversToSubscribers(t *testing.T) {
	// Arrange
	q := NewMemoryQueue(zap.NewNop())
	var got []ModelPublished
	handler := func(data []byte) error {
		var ev ModelPublished
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		got = append(got, ev)
		return nil
	}
	if err := q.Subscribe(SubjectModelPublished, handler); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := q.Subscribe(SubjectModelPublished, func([]byte) error { return errors.New("boom") }); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Act
	err := PublishJSON(q, SubjectModelPublished, ModelPublished{BotID: "support", Version: 3})

	// Assert
	if err != nil {
		t.Fatalf("expected handler errors to be logged, got %v", err)
	}
	if len(got) != 1 || got[0].Version != 3 {
		t.Errorf("expected one event with version 3, got %+v", got)
	}
}

func TestPublishJSON_NilQueue(t *testing.T) {
	if err := PublishJSON(nil, SubjectTrainFailed, TrainFailed{BotID: "x"}); err != nil {
		t.Errorf("expected nil queue to be a no-op, got %v", err)
	}
}

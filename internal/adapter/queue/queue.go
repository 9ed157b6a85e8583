package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageQueue defines the interface for a message queue adapter.
// Subscribe shares messages among replicas of the configured group;
// SubscribeAll delivers every message to this process regardless of group.
type MessageQueue interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte) error) error
	SubscribeAll(subject string, handler func(data []byte) error) error
	Close() error
}

const (
	SubjectTrainRequested = "nlu.train.requested"
	SubjectModelPublished = "nlu.model.published"
	SubjectTrainFailed    = "nlu.train.failed"
	SubjectSessionEnded   = "dialogue.session.ended"
)

type TrainRequested struct {
	BotID       string    `json:"bot_id"`
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

type ModelPublished struct {
	BotID       string    `json:"bot_id"`
	Version     int64     `json:"version"`
	IntentCount int       `json:"intent_count"`
	PhraseCount int       `json:"phrase_count"`
	Checksum    string    `json:"checksum"`
	PublishedAt time.Time `json:"published_at"`
}

type TrainFailed struct {
	BotID    string    `json:"bot_id"`
	JobID    string    `json:"job_id,omitempty"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

type SessionEnded struct {
	BotID     string    `json:"bot_id"`
	SessionID string    `json:"session_id"`
	Turns     int       `json:"turns"`
	EndedAt   time.Time `json:"ended_at"`
}

// PublishJSON marshals event and publishes it on subject. A nil queue is a no-op.
func PublishJSON(mq MessageQueue, subject string, event any) error {
	if mq == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("queue: marshal %s: %w", subject, err)
	}
	return mq.Publish(subject, data)
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrBotNotFound       = errors.New("bot not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrJobNotFound       = errors.New("training job not found")
	ErrDuplicateEntity   = errors.New("duplicate entity definition")
	ErrVersionConflict   = errors.New("session revision conflict")
	ErrModelNotFound     = errors.New("model version not found")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrInvalidSessionID  = errors.New("session id is required")
	ErrBotInactive       = errors.New("bot is inactive")
	ErrTrainingQueueFull = errors.New("training queue is full")
)

// InsufficientDataError is returned when an active intent lacks training
// phrases or responses. Intent is empty when the bot has no usable intent.
type InsufficientDataError struct {
	Intent string
	Reason string
}

func (e *InsufficientDataError) Error() string {
	if e.Intent == "" {
		return "insufficient training data: no active intents"
	}
	return fmt.Sprintf("insufficient training data for intent %q: %s", e.Intent, e.Reason)
}

type EmbeddingDimensionMismatchError struct {
	Phrase   string
	Expected int
	Got      int
}

func (e *EmbeddingDimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch for phrase %q: expected %d, got %d", e.Phrase, e.Expected, e.Got)
}

type TrainingLimitExceededError struct {
	Limit int
	Got   int
}

func (e *TrainingLimitExceededError) Error() string {
	return fmt.Sprintf("training examples exceed limit: %d > %d", e.Got, e.Limit)
}

type SessionEndedError struct {
	SessionID string
}

func (e *SessionEndedError) Error() string {
	return fmt.Sprintf("session %s has ended", e.SessionID)
}

// ContextStoreUnavailableError marks a transient session store failure.
// Callers may retry.
type ContextStoreUnavailableError struct {
	Op  string
	Err error
}

func (e *ContextStoreUnavailableError) Error() string {
	return fmt.Sprintf("context store unavailable (%s): %v", e.Op, e.Err)
}

func (e *ContextStoreUnavailableError) Unwrap() error { return e.Err }

func (e *ContextStoreUnavailableError) Retryable() bool { return true }

type TemplateResolutionError struct {
	Template    string
	Placeholder string
}

func (e *TemplateResolutionError) Error() string {
	return fmt.Sprintf("unresolved placeholder %q in template %q", e.Placeholder, e.Template)
}

type NotTrainedError struct {
	BotID string
}

func (e *NotTrainedError) Error() string {
	return fmt.Sprintf("bot %s has no trained model", e.BotID)
}

// IsTrainingError reports whether err came out of the training pipeline.
func IsTrainingError(err error) bool {
	var (
		insufficient *InsufficientDataError
		mismatch     *EmbeddingDimensionMismatchError
		limit        *TrainingLimitExceededError
	)
	return errors.As(err, &insufficient) ||
		errors.As(err, &mismatch) ||
		errors.As(err, &limit) ||
		errors.Is(err, ErrDuplicateEntity)
}

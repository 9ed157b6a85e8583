package domain

import "time"

// ModelArtifact is the persisted, immutable output of one training run.
// Everything needed to rebuild the runtime index, rule matcher and entity
// extractor is in here.
type ModelArtifact struct {
	BotID            string             `json:"bot_id"`
	Version          int64              `json:"version"`
	Dimensions       int                `json:"dimensions"`
	StripPunctuation bool               `json:"strip_punctuation"`
	Phrases          []CompiledPhrase   `json:"phrases"`
	Intents          []IntentMeta       `json:"intents"`
	Entities         []EntityDefinition `json:"entities"`
	Checksum         string             `json:"checksum"`
	BuiltAt          time.Time          `json:"built_at"`
}

type CompiledPhrase struct {
	ID       string    `json:"id"`
	IntentID string    `json:"intent_id"`
	Text     string    `json:"text"`
	Vector   []float32 `json:"vector"`
}

// IntentMeta is the slice of an Intent the runtime needs after training.
type IntentMeta struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Priority  int                `json:"priority"`
	Responses []ResponseTemplate `json:"responses"`
	Slots     []SlotSpec         `json:"slots,omitempty"`
	Patterns  []RulePattern      `json:"patterns,omitempty"`
}

type ModelStatus struct {
	BotID       string     `json:"bot_id"`
	IsTrained   bool       `json:"is_trained"`
	Version     int64      `json:"version"`
	TrainedAt   *time.Time `json:"trained_at,omitempty"`
	Training    bool       `json:"training"`
	IntentCount int        `json:"intent_count"`
	PhraseCount int        `json:"phrase_count"`
}

type TrainingSummary struct {
	BotID       string        `json:"bot_id"`
	Version     int64         `json:"version"`
	IntentCount int           `json:"intent_count"`
	PhraseCount int           `json:"phrase_count"`
	Duration    time.Duration `json:"duration"`
}

type TrainingJobStatus string

const (
	TrainingJobQueued    TrainingJobStatus = "queued"
	TrainingJobRunning   TrainingJobStatus = "running"
	TrainingJobSucceeded TrainingJobStatus = "succeeded"
	TrainingJobFailed    TrainingJobStatus = "failed"
)

type TrainingJob struct {
	ID         string            `json:"id"`
	BotID      string            `json:"bot_id"`
	Status     TrainingJobStatus `json:"status"`
	Error      string            `json:"error,omitempty"`
	Summary    *TrainingSummary  `json:"summary,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

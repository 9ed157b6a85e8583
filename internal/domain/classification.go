package domain

type Candidate struct {
	IntentID   string  `json:"intent_id"`
	IntentName string  `json:"intent_name"`
	Priority   int     `json:"priority"`
	Score      float64 `json:"score"`
	RuleScore  float64 `json:"rule_score"`
	EmbedScore float64 `json:"embed_score"`
}

// ClassificationResult is produced per turn and never persisted except through
// the Turn it becomes.
type ClassificationResult struct {
	Candidates    []Candidate `json:"ranked_candidates"`
	ChosenIntent  *Candidate  `json:"chosen_intent"`
	LowConfidence bool        `json:"low_confidence"`
	Suggestions   []string    `json:"suggestions,omitempty"`
	Entities      Entities    `json:"entities,omitempty"`
	ModelVersion  int64       `json:"model_version"`
}

func (r *ClassificationResult) Top() (Candidate, bool) {
	if len(r.Candidates) == 0 {
		return Candidate{}, false
	}
	return r.Candidates[0], true
}

type ChatRequest struct {
	BotID     string `json:"bot_id"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
	Message   string `json:"message"`
	// Restart lets the caller reopen an ended session under the same id.
	Restart bool `json:"restart,omitempty"`
}

type ChatResponse struct {
	SessionID      string            `json:"session_id"`
	ResponseText   string            `json:"response_text"`
	IntentName     *string           `json:"intent_name"`
	Confidence     float64           `json:"confidence"`
	Entities       map[string]string `json:"entities"`
	State          SessionState      `json:"state"`
	Suggestions    []string          `json:"suggestions,omitempty"`
	ModelVersion   int64             `json:"model_version"`
	ResponseTimeMs int64             `json:"response_time_ms"`
}

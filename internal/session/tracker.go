package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config describes one game session for stats purposes.
type Config struct {
	PlayerCount   int
	Difficulty    string
	UsedCustomKey bool
	ModelUsed     string
}

type AICallStats struct {
	InputChars       int
	OutputChars      int
	PromptTokens     int
	CompletionTokens int
}

type Summary struct {
	SessionID          string `json:"session_id"`
	Winner             string `json:"winner,omitempty"`
	Completed          bool   `json:"completed"`
	RoundsPlayed       int    `json:"rounds_played"`
	DurationSeconds    int    `json:"duration_seconds"`
	AICallsCount       int    `json:"ai_calls_count"`
	AIInputChars       int    `json:"ai_input_chars"`
	AIOutputChars      int    `json:"ai_output_chars"`
	AIPromptTokens     int    `json:"ai_prompt_tokens"`
	AICompletionTokens int    `json:"ai_completion_tokens"`
}

// Tracker accumulates AI-call counters for a single game session.
// It is scoped per session rather than process-wide so concurrent games
// on one server do not pollute each other's stats.
type Tracker struct {
	mu sync.Mutex

	sessionID string
	startTime time.Time
	config    *Config

	roundsPlayed       int
	aiCallsCount       int
	aiInputChars       int
	aiOutputChars      int
	aiPromptTokens     int
	aiCompletionTokens int
}

func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) Start(cfg Config) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessionID = uuid.NewString()
	t.startTime = time.Now()
	t.config = &cfg
	t.roundsPlayed = 0
	t.aiCallsCount = 0
	t.aiInputChars = 0
	t.aiOutputChars = 0
	t.aiPromptTokens = 0
	t.aiCompletionTokens = 0
	return t.sessionID
}

func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

func (t *Tracker) IncrementRound() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roundsPlayed++
}

func (t *Tracker) AddAICall(stats AICallStats) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.aiCallsCount++
	t.aiInputChars += stats.InputChars
	t.aiOutputChars += stats.OutputChars
	t.aiPromptTokens += stats.PromptTokens
	t.aiCompletionTokens += stats.CompletionTokens
}

// Summary returns nil until Start has been called.
func (t *Tracker) Summary(winner string, completed bool) *Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.config == nil {
		return nil
	}
	return &Summary{
		SessionID:          t.sessionID,
		Winner:             winner,
		Completed:          completed,
		RoundsPlayed:       t.roundsPlayed,
		DurationSeconds:    int(time.Since(t.startTime).Round(time.Second) / time.Second),
		AICallsCount:       t.aiCallsCount,
		AIInputChars:       t.aiInputChars,
		AIOutputChars:      t.aiOutputChars,
		AIPromptTokens:     t.aiPromptTokens,
		AICompletionTokens: t.aiCompletionTokens,
	}
}

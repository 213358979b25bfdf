// Package model defines shared data structures.
package model

import "time"

// ActionMode selects how the user responds during a session.
type ActionMode string

// Supported action modes. Exactly one is active per session.
const (
	ModeClick           ActionMode = "click"
	ModeClickAndDrag    ActionMode = "click_and_drag"
	ModeManualDataEntry ActionMode = "manual_data_entry"
)

// Valid reports whether m is a known action mode.
func (m ActionMode) Valid() bool {
	switch m {
	case ModeClick, ModeClickAndDrag, ModeManualDataEntry:
		return true
	default:
		return false
	}
}

// Prompt types.
const (
	PromptFade      = "fade"
	PromptHighlight = "highlight"
)

// Labels written into trial records.
const (
	NotAvailable  = "N/A"
	UnknownTarget = "Unknown"
	NoPrompt      = "None"
	Correct       = "Correct"
	Incorrect     = "Incorrect"
)

// PromptConfig holds the read-only prompting and reinforcement settings.
type PromptConfig struct {
	EnablePrompting      bool    `json:"enable_prompting"`
	UsePromptDelay       bool    `json:"use_prompt_delay"`
	PromptDelay          float64 `json:"prompt_delay"`
	PromptType           string  `json:"prompt_type"`
	FadePercentage       int     `json:"fade_percentage"`
	FadeDuration         float64 `json:"fade_duration"`
	HighlightColor       string  `json:"highlight_color"`
	EnableReinforcement  bool    `json:"enable_reinforcement"`
	EnableDanceAnimation bool    `json:"enable_dance_animation"`
}

// Label returns the prompt label recorded with each trial.
func (p PromptConfig) Label() string {
	if p.PromptType == "" {
		return NoPrompt
	}
	return p.PromptType
}

// Delay returns the configured prompt delay as a duration.
func (p PromptConfig) Delay() time.Duration {
	return time.Duration(p.PromptDelay * float64(time.Second))
}

// Cell is one candidate answer in the grid.
type Cell struct {
	Path    string
	Tags    []string
	Correct bool
}

// DropZone is a drag-and-drop target carrying its own tag set.
type DropZone struct {
	Label string
	Tags  []string
}

// Layout is the declarative grid handed to the trial controller.
type Layout struct {
	Rows      int
	Cols      int
	Cells     []Cell
	DropZones []DropZone
}

// TrialRecord is the immutable record of one trial. Field names match the
// /log_interaction payload.
type TrialRecord struct {
	SessionID     string `json:"session_id"`
	TrialNumber   int    `json:"trial_number"`
	Timestamp     string `json:"timestamp"`
	TargetName    string `json:"target_name"`
	ImageFileName string `json:"image_file_name"`
	TimeTakenMs   int64  `json:"time_taken_ms"`
	PromptUsed    string `json:"prompt_used"`
	Correct       string `json:"correct"`
}

// IsCorrect reports whether the record is a correct response.
func (r TrialRecord) IsCorrect() bool {
	return r.Correct == Correct
}

// Summary is the end-of-session figures.
type Summary struct {
	TotalTrials        int
	CorrectResponses   int
	IncorrectResponses int
	Accuracy           string
}

// SessionFilter restricts which sessions are reported.
type SessionFilter struct {
	SessionID string
	Since     *time.Time
	Last      int
}

// SessionAggregate summarizes one session's logged trials.
type SessionAggregate struct {
	SessionID string
	FirstAt   time.Time
	LastAt    time.Time
	Trials    int
	Correct   int
	Incorrect int
}

// StatsConfig holds the stats view filters.
type StatsConfig struct {
	Since       *time.Time
	Last        int
	TrendWindow int
}

// Filter returns the session filter for c.
func (c StatsConfig) Filter() SessionFilter {
	return SessionFilter{Since: c.Since, Last: c.Last}
}

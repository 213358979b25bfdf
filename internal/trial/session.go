package trial

import (
	"time"

	"github.com/verte-zerg/tuigrid/internal/model"
)

// Session is the per-run context owned by a Controller: identity, target
// tags, trial counter and the append-only record log.
type Session struct {
	id           string
	selectedTags []string
	startTime    time.Time

	trialNumber int
	records     []model.TrialRecord
}

// NewSession returns a session that started at start.
func NewSession(id string, selectedTags []string, start time.Time) *Session {
	return &Session{
		id:           id,
		selectedTags: append([]string(nil), selectedTags...),
		startTime:    start,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// SelectedTags returns a copy of the target tags.
func (s *Session) SelectedTags() []string {
	return append([]string(nil), s.selectedTags...)
}

// StartTime returns when the session started.
func (s *Session) StartTime() time.Time {
	return s.startTime
}

// TrialNumber returns the number of recorded trials.
func (s *Session) TrialNumber() int {
	return s.trialNumber
}

// Records returns a copy of the recorded trials in dispatch order.
func (s *Session) Records() []model.TrialRecord {
	return append([]model.TrialRecord(nil), s.records...)
}

func (s *Session) selected(tag string) bool {
	for _, t := range s.selectedTags {
		if t == tag {
			return true
		}
	}
	return false
}

func (s *Session) append(rec model.TrialRecord) {
	s.records = append(s.records, rec)
}

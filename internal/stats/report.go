package stats

import (
	"context"

	"github.com/verte-zerg/tuigrid/internal/model"
)

// SessionLister loads per-session aggregates.
type SessionLister interface {
	ListSessions(ctx context.Context, filter model.SessionFilter) ([]model.SessionAggregate, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions  []model.SessionAggregate
	Trials    int
	Correct   int
	Incorrect int
	Accuracy  string
	Trend     []float64
}

// BuildReport loads per-session counts and the totals across them. Trend is
// the moving average of per-session accuracy over window sessions.
func BuildReport(ctx context.Context, src SessionLister, filter model.SessionFilter, window int) (Report, error) {
	sessions, err := src.ListSessions(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	report := Report{Sessions: sessions}
	for _, s := range sessions {
		report.Trials += s.Trials
		report.Correct += s.Correct
		report.Incorrect += s.Incorrect
	}
	report.Accuracy = FormatAccuracy(report.Correct, report.Trials)
	report.Trend = MovingAverage(SessionAccuracies(sessions), window)
	return report, nil
}

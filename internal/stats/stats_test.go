package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/tuigrid/internal/model"
)

func records(outcomes ...string) []model.TrialRecord {
	out := make([]model.TrialRecord, 0, len(outcomes))
	for i, o := range outcomes {
		out = append(out, model.TrialRecord{SessionID: "s", TrialNumber: i + 1, Correct: o})
	}
	return out
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		records []model.TrialRecord
		want    model.Summary
	}{
		{
			name: "empty",
			want: model.Summary{Accuracy: "0.00"},
		},
		{
			name:    "two of three",
			records: records(model.Correct, model.Correct, model.Incorrect),
			want:    model.Summary{TotalTrials: 3, CorrectResponses: 2, IncorrectResponses: 1, Accuracy: "66.67"},
		},
		{
			name: "seven of ten",
			records: records(
				model.Correct, model.Correct, model.Correct, model.Correct, model.Correct,
				model.Correct, model.Correct, model.Incorrect, model.Incorrect, model.Incorrect,
			),
			want: model.Summary{TotalTrials: 10, CorrectResponses: 7, IncorrectResponses: 3, Accuracy: "70.00"},
		},
		{
			name:    "all correct",
			records: records(model.Correct),
			want:    model.Summary{TotalTrials: 1, CorrectResponses: 1, Accuracy: "100.00"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Summarize(tt.records)); diff != "" {
				t.Fatalf("summary mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{10, 20, 30, 40}, 2)
	want := []float64{10, 15, 25, 35}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("moving average mismatch (-want +got):\n%s", diff)
	}
	if got := MovingAverage([]float64{1, 2}, 0); !cmp.Equal(got, []float64{1, 2}) {
		t.Fatalf("expected copy for window<=1, got %v", got)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil); got != "" {
		t.Fatalf("expected empty sparkline, got %q", got)
	}
	if got := Sparkline([]float64{5, 5, 5}); got != "+++" {
		t.Fatalf("expected flat sparkline, got %q", got)
	}
	if got := Sparkline([]float64{0, 100}); got != " @" {
		t.Fatalf("expected min/max sparkline, got %q", got)
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	err := RenderSummary(&buf, model.Summary{TotalTrials: 3, CorrectResponses: 2, IncorrectResponses: 1, Accuracy: "66.67"})
	if err != nil {
		t.Fatalf("render summary: %v", err)
	}
	want := "Total Trials: 3\nCorrect Responses: 2\nIncorrect Responses: 1\nAccuracy: 66.67%\n"
	if buf.String() != want {
		t.Fatalf("unexpected summary:\n%s", buf.String())
	}
}

func TestRenderSessionTable(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSessionTable(&buf, nil); err != nil {
		t.Fatalf("render empty: %v", err)
	}
	if buf.String() != "No sessions found.\n" {
		t.Fatalf("unexpected empty output: %q", buf.String())
	}

	buf.Reset()
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	sessions := []model.SessionAggregate{
		{SessionID: "s1", FirstAt: at, LastAt: at, Trials: 4, Correct: 1, Incorrect: 3},
		{SessionID: "s2", FirstAt: at.Add(time.Hour), LastAt: at.Add(time.Hour), Trials: 4, Correct: 4},
	}
	if err := RenderSessionTable(&buf, sessions); err != nil {
		t.Fatalf("render table: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Session", "25.00%", "100.00%", "Sessions: 2  Trials: 8  Accuracy: 62.50%", "Trend:  @"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

package stats

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/tuigrid/internal/model"
	"github.com/verte-zerg/tuigrid/internal/store"
)

func openReportStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tuigrid.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestBuildReport(t *testing.T) {
	st := openReportStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	// session i logs i+1 trials, the first of which is incorrect.
	for i, id := range []string{"s1", "s2", "s3"} {
		for n := 0; n <= i; n++ {
			outcome := model.Correct
			if n == 0 {
				outcome = model.Incorrect
			}
			_, err := st.InsertTrial(ctx, model.TrialRecord{
				SessionID:     id,
				TrialNumber:   n + 1,
				Timestamp:     store.FormatTimestamp(base.Add(time.Duration(i)*time.Hour + time.Duration(n)*time.Second)),
				TargetName:    "cat",
				ImageFileName: "images/cat.jpeg",
				PromptUsed:    model.NoPrompt,
				Correct:       outcome,
			})
			if err != nil {
				t.Fatalf("insert trial: %v", err)
			}
		}
	}

	report, err := BuildReport(ctx, st, model.SessionFilter{Last: 2}, 1)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 2 || report.Sessions[0].SessionID != "s2" || report.Sessions[1].SessionID != "s3" {
		t.Fatalf("expected sessions s2, s3, got %+v", report.Sessions)
	}
	if report.Trials != 5 || report.Correct != 3 || report.Incorrect != 2 {
		t.Fatalf("unexpected totals: trials=%d correct=%d incorrect=%d", report.Trials, report.Correct, report.Incorrect)
	}
	if report.Accuracy != "60.00" {
		t.Fatalf("expected accuracy 60.00, got %s", report.Accuracy)
	}
	want := []float64{50, 200.0 / 3}
	if len(report.Trend) != len(want) {
		t.Fatalf("expected trend %v, got %v", want, report.Trend)
	}
	for i := range want {
		if math.Abs(report.Trend[i]-want[i]) > 1e-9 {
			t.Fatalf("expected trend %v, got %v", want, report.Trend)
		}
	}
}

func TestBuildReportEmpty(t *testing.T) {
	st := openReportStore(t)
	report, err := BuildReport(context.Background(), st, model.SessionFilter{}, 3)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 0 || len(report.Trend) != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
	if report.Accuracy != "0.00" {
		t.Fatalf("expected accuracy 0.00, got %s", report.Accuracy)
	}
}

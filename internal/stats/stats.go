// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/tuigrid/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Summarize computes the end-of-session figures for records.
func Summarize(records []model.TrialRecord) model.Summary {
	correct := 0
	for _, rec := range records {
		if rec.IsCorrect() {
			correct++
		}
	}
	total := len(records)
	return model.Summary{
		TotalTrials:        total,
		CorrectResponses:   correct,
		IncorrectResponses: total - correct,
		Accuracy:           FormatAccuracy(correct, total),
	}
}

// Accuracy returns the percentage of correct responses. Zero trials yield 0.
func Accuracy(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// FormatAccuracy renders Accuracy with two decimals.
func FormatAccuracy(correct, total int) string {
	return fmt.Sprintf("%.2f", Accuracy(correct, total))
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// SessionAccuracies returns per-session accuracy percentages.
func SessionAccuracies(sessions []model.SessionAggregate) []float64 {
	out := make([]float64, len(sessions))
	for i, s := range sessions {
		out[i] = Accuracy(s.Correct, s.Trials)
	}
	return out
}

// RenderSummary prints the four end-of-session figures.
func RenderSummary(w io.Writer, s model.Summary) error {
	lines := []string{
		fmt.Sprintf("Total Trials: %d", s.TotalTrials),
		fmt.Sprintf("Correct Responses: %d", s.CorrectResponses),
		fmt.Sprintf("Incorrect Responses: %d", s.IncorrectResponses),
		fmt.Sprintf("Accuracy: %s%%", s.Accuracy),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderSessionTable prints per-session counts.
func RenderSessionTable(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	headers := []string{"Session", "Started", "Trials", "Correct", "Incorrect", "Accuracy"}
	rows := make([][]string, 0, len(sessions))
	var trials, correct int
	for _, s := range sessions {
		trials += s.Trials
		correct += s.Correct
		rows = append(rows, []string{
			s.SessionID,
			s.FirstAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", s.Trials),
			fmt.Sprintf("%d", s.Correct),
			fmt.Sprintf("%d", s.Incorrect),
			FormatAccuracy(s.Correct, s.Trials) + "%",
		})
	}
	rightAlign := map[int]bool{2: true, 3: true, 4: true, 5: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "\nSessions: %d  Trials: %d  Accuracy: %s%%\n", len(sessions), trials, FormatAccuracy(correct, trials)); err != nil {
		return err
	}
	if len(sessions) > 1 {
		if _, err := fmt.Fprintf(w, "Trend: %s\n", Sparkline(SessionAccuracies(sessions))); err != nil {
			return err
		}
	}
	return nil
}

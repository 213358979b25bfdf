package statsui

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tuigrid/internal/model"
)

type fakeSource struct {
	sessions []model.SessionAggregate
	trials   map[string][]model.TrialRecord
	filters  []model.SessionFilter
	err      error
}

func (s *fakeSource) ListSessions(_ context.Context, filter model.SessionFilter) ([]model.SessionAggregate, error) {
	s.filters = append(s.filters, filter)
	if s.err != nil {
		return nil, s.err
	}
	out := s.sessions
	if filter.Last > 0 && filter.Last < len(out) {
		out = out[len(out)-filter.Last:]
	}
	return out, nil
}

func (s *fakeSource) ListTrials(_ context.Context, sessionID string) ([]model.TrialRecord, error) {
	return s.trials[sessionID], nil
}

func newSource() *fakeSource {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return &fakeSource{
		sessions: []model.SessionAggregate{
			{SessionID: "s1", FirstAt: base, LastAt: base, Trials: 2, Correct: 1, Incorrect: 1},
			{SessionID: "s2", FirstAt: base.Add(time.Hour), LastAt: base.Add(time.Hour), Trials: 3, Correct: 3},
		},
		trials: map[string][]model.TrialRecord{
			"s2": {
				{SessionID: "s2", TrialNumber: 1, Timestamp: "2024-05-01T10:00:01Z", TargetName: "animal", ImageFileName: "images/cat.jpeg", PromptUsed: "None", Correct: model.Correct},
				{SessionID: "s2", TrialNumber: 2, Timestamp: "2024-05-01T10:00:02Z", TargetName: "animal", ImageFileName: "images/dog.jpeg", PromptUsed: "None", Correct: model.Correct},
			},
		},
	}
}

func sized(m *Model) *Model {
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return m
}

func TestOverviewShowsTotals(t *testing.T) {
	m := sized(NewModel(newSource(), model.StatsConfig{TrendWindow: 1}))
	if m.report.Trials != 5 || m.report.Correct != 4 || m.report.Accuracy != "80.00" {
		t.Fatalf("unexpected report totals: %+v", m.report)
	}

	view := m.View()
	if !containsAll(view, []string{"Overview", "80.00%", "Accuracy trend"}) {
		t.Fatalf("overview missing expected segments:\n%s", view)
	}
}

func TestViewEmptyBeforeSize(t *testing.T) {
	m := NewModel(newSource(), model.StatsConfig{})
	if view := m.View(); view != "" {
		t.Fatalf("expected empty view before sizing, got %q", view)
	}
	if m.cfg.TrendWindow != 1 {
		t.Fatalf("expected trend window clamped to 1, got %d", m.cfg.TrendWindow)
	}
}

func TestEnterOpensSessionTrials(t *testing.T) {
	src := newSource()
	m := sized(NewModel(src, model.StatsConfig{TrendWindow: 1}))
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabSessions {
		t.Fatalf("expected sessions tab, got %d", m.activeTab)
	}

	// Sessions are listed newest first.
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.activeTab != tabTrials || m.trialSession != "s2" {
		t.Fatalf("expected trials of s2, got tab %d session %q", m.activeTab, m.trialSession)
	}
	if n := len(m.trialTable.Rows()); n != 2 {
		t.Fatalf("expected 2 trial rows, got %d", n)
	}
	if view := m.View(); !strings.Contains(view, "images/cat.jpeg") {
		t.Fatalf("trials view missing image:\n%s", view)
	}
}

func TestTrendWindowKeys(t *testing.T) {
	m := sized(NewModel(newSource(), model.StatsConfig{TrendWindow: 1}))
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("-")})
	if m.cfg.TrendWindow != 1 {
		t.Fatalf("window went below 1: %d", m.cfg.TrendWindow)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("=")})
	if m.cfg.TrendWindow != 2 {
		t.Fatalf("expected window 2, got %d", m.cfg.TrendWindow)
	}
	if !slices.Equal(m.report.Trend, []float64{50, 75}) {
		t.Fatalf("unexpected trend %v", m.report.Trend)
	}
}

func TestFilterForm(t *testing.T) {
	src := newSource()
	m := sized(NewModel(src, model.StatsConfig{TrendWindow: 1}))
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if !m.filterMode {
		t.Fatalf("expected filter mode")
	}

	m.filterInputs[0].SetValue("yesterday")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.filterMode || !strings.Contains(m.filterError, "invalid since date") {
		t.Fatalf("expected since validation error, got %q", m.filterError)
	}

	m.filterInputs[0].SetValue("")
	m.filterInputs[1].SetValue("1")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.filterMode {
		t.Fatalf("expected filter form closed")
	}
	if m.cfg.Last != 1 || src.filters[len(src.filters)-1].Last != 1 {
		t.Fatalf("last filter not applied: cfg=%+v", m.cfg)
	}
	if m.report.Trials != 3 {
		t.Fatalf("expected 3 trials in last session, got %d", m.report.Trials)
	}
	if view := m.View(); !strings.Contains(view, "last=1") {
		t.Fatalf("settings line missing last=1:\n%s", view)
	}
}

func TestSourceErrorShown(t *testing.T) {
	src := newSource()
	src.err = errors.New("database is locked")
	m := sized(NewModel(src, model.StatsConfig{TrendWindow: 1}))
	view := m.View()
	if !containsAll(view, []string{"Failed to load stats.", "database is locked"}) {
		t.Fatalf("error not shown:\n%s", view)
	}
}

func TestQuit(t *testing.T) {
	m := sized(NewModel(newSource(), model.StatsConfig{TrendWindow: 1}))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

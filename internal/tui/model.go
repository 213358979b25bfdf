// Package tui provides the Bubble Tea trial interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/verte-zerg/tuigrid/internal/model"
	"github.com/verte-zerg/tuigrid/internal/trial"
)

const (
	frameInterval   = 150 * time.Millisecond
	downloadTimeout = 10 * time.Second
)

// Downloader fetches a session export from a navigation route.
type Downloader interface {
	Download(ctx context.Context, route string, w io.Writer) error
}

type timerMsg struct {
	timer trial.Timer
}

type frameMsg time.Time

type downloadDoneMsg struct {
	path string
	err  error
}

// Model implements the Bubble Tea trial UI. It hosts one trial.Controller
// and feeds it key, mouse and timer events.
type Model struct {
	ctrl        *trial.Controller
	downloader  Downloader
	downloadDir string
	log         *zap.Logger

	keys keyMap
	help help.Model

	width  int
	height int

	cursor   int
	frame    int
	promptAt time.Time
	status   string

	route string
	err   error
}

// NewModel constructs a trial UI around ctrl. downloader may be nil.
func NewModel(ctrl *trial.Controller, downloader Downloader, downloadDir string, log *zap.Logger) *Model {
	if log == nil {
		log = zap.NewNop()
	}
	return &Model{
		ctrl:        ctrl,
		downloader:  downloader,
		downloadDir: downloadDir,
		log:         log,
		keys:        newKeyMap(ctrl.Mode()),
		help:        help.New(),
	}
}

// Route returns the route the session navigated to, if any.
func (m *Model) Route() string {
	return m.route
}

// Err returns the error that ended the session, if any.
func (m *Model) Err() error {
	return m.err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	timers := m.ctrl.Start()
	m.notePrompt()
	return tea.Batch(scheduleTimers(timers), frameTick())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case frameMsg:
		m.frame++
		return m, frameTick()
	case timerMsg:
		route := m.ctrl.Fire(msg.timer)
		m.notePrompt()
		if route != "" {
			return m, m.navigate(route)
		}
		return m, nil
	case downloadDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Download failed: %v", msg.err)
			m.log.Warn("download failed", zap.Error(msg.err))
		} else {
			m.status = fmt.Sprintf("Saved %s", msg.path)
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.ctrl.SummaryVisible() {
		switch {
		case key.Matches(msg, m.keys.Download):
			return m, m.navigate(m.ctrl.DownloadRoute())
		case key.Matches(msg, m.keys.Return):
			return m, m.navigate(m.ctrl.ReturnRoute())
		case key.Matches(msg, m.keys.Dismiss):
			m.ctrl.DismissSummary(true)
		}
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.EndTrial):
		_, timer := m.ctrl.EndTrial()
		return m, scheduleTimers([]trial.Timer{timer})
	case key.Matches(msg, m.keys.Up):
		m.moveVertical(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveVertical(1)
	case key.Matches(msg, m.keys.Left):
		m.moveHorizontal(-1)
	case key.Matches(msg, m.keys.Right):
		m.moveHorizontal(1)
	case key.Matches(msg, m.keys.Next):
		if n := m.elementCount(); n > 0 {
			m.cursor = (m.cursor + 1) % n
		}
	case key.Matches(msg, m.keys.Select):
		return m.activate(m.elementAtCursor())
	case key.Matches(msg, m.keys.Cancel):
		m.ctrl.DragEnd()
	case key.Matches(msg, m.keys.Correct):
		return m.apply(m.ctrl.MarkCorrect())
	case key.Matches(msg, m.keys.Wrong):
		return m.apply(m.ctrl.MarkIncorrect())
	}
	return m, nil
}

// activate performs the mode's primary action on el.
func (m *Model) activate(el trial.ElementID) (tea.Model, tea.Cmd) {
	switch m.ctrl.Mode() {
	case model.ModeClick:
		if el.Kind != trial.KindCell {
			return m, nil
		}
		return m.apply(m.ctrl.Click(el.Index))
	case model.ModeClickAndDrag:
		if _, dragging := m.ctrl.Dragging(); !dragging {
			return m, m.fail(m.ctrl.DragStart(el))
		}
		res, err := m.ctrl.Drop(el)
		m.ctrl.DragEnd()
		return m.apply(res, err)
	}
	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.ctrl.SummaryVisible() {
		if msg.Action == tea.MouseActionPress && !m.insideModal(msg.X, msg.Y) {
			m.ctrl.DismissSummary(true)
		}
		return m, nil
	}
	el, ok := m.elementAt(msg.X, msg.Y)
	switch m.ctrl.Mode() {
	case model.ModeClick:
		if ok && msg.Action == tea.MouseActionRelease {
			m.cursor = m.indexOf(el)
			return m.activate(el)
		}
	case model.ModeClickAndDrag:
		switch msg.Action {
		case tea.MouseActionPress:
			if ok && msg.Button == tea.MouseButtonLeft {
				m.cursor = m.indexOf(el)
				return m, m.fail(m.ctrl.DragStart(el))
			}
		case tea.MouseActionRelease:
			if !ok {
				m.ctrl.DragEnd()
				return m, nil
			}
			m.cursor = m.indexOf(el)
			res, err := m.ctrl.Drop(el)
			m.ctrl.DragEnd()
			return m.apply(res, err)
		}
	}
	return m, nil
}

func (m *Model) apply(res trial.Result, err error) (tea.Model, tea.Cmd) {
	if err != nil {
		return m, m.fail(err)
	}
	if res.Recorded {
		m.status = fmt.Sprintf("Trial %d: %s", res.Record.TrialNumber, res.Record.Correct)
	}
	return m, scheduleTimers(res.Timers)
}

// fail ends the session on precondition violations.
func (m *Model) fail(err error) tea.Cmd {
	if err == nil {
		return nil
	}
	if errors.Is(err, trial.ErrHandlerNotBound) {
		return nil
	}
	m.err = err
	m.log.Error("trial session aborted", zap.Error(err))
	return tea.Quit
}

func (m *Model) navigate(route string) tea.Cmd {
	if route == m.ctrl.DownloadRoute() {
		return m.download(route)
	}
	m.route = route
	m.log.Info("navigating", zap.String("route", route))
	return tea.Quit
}

func (m *Model) download(route string) tea.Cmd {
	if m.downloader == nil {
		m.status = "Download unavailable: no log service configured"
		return nil
	}
	m.status = "Downloading..."
	path := filepath.Join(m.downloadDir, "session_"+m.ctrl.Session().ID()+".csv")
	downloader := m.downloader
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), downloadTimeout)
		defer cancel()
		file, err := os.Create(path)
		if err != nil {
			return downloadDoneMsg{err: err}
		}
		if err := downloader.Download(ctx, route, file); err != nil {
			_ = file.Close()
			_ = os.Remove(path)
			return downloadDoneMsg{err: err}
		}
		if err := file.Close(); err != nil {
			return downloadDoneMsg{err: err}
		}
		return downloadDoneMsg{path: path}
	}
}

func (m *Model) notePrompt() {
	if m.promptAt.IsZero() && m.ctrl.PromptState() == trial.PromptApplied {
		m.promptAt = time.Now()
	}
}

func scheduleTimers(timers []trial.Timer) tea.Cmd {
	if len(timers) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(timers))
	for _, t := range timers {
		t := t
		if t.After <= 0 {
			cmds = append(cmds, func() tea.Msg { return timerMsg{timer: t} })
			continue
		}
		cmds = append(cmds, tea.Tick(t.After, func(time.Time) tea.Msg {
			return timerMsg{timer: t}
		}))
	}
	return tea.Batch(cmds...)
}

func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m *Model) elementCount() int {
	layout := m.ctrl.Layout()
	n := len(layout.Cells)
	if m.showZones() {
		n += len(layout.DropZones)
	}
	return n
}

func (m *Model) showZones() bool {
	return m.ctrl.Mode() == model.ModeClickAndDrag
}

func (m *Model) elementAtCursor() trial.ElementID {
	cells := len(m.ctrl.Layout().Cells)
	if m.cursor < cells {
		return trial.CellID(m.cursor)
	}
	return trial.ZoneID(m.cursor - cells)
}

func (m *Model) indexOf(el trial.ElementID) int {
	if el.Kind == trial.KindCell {
		return el.Index
	}
	return len(m.ctrl.Layout().Cells) + el.Index
}

func (m *Model) cols() int {
	cols := m.ctrl.Layout().Cols
	if cols <= 0 {
		cols = 1
	}
	return cols
}

func (m *Model) moveHorizontal(delta int) {
	el := m.elementAtCursor()
	layout := m.ctrl.Layout()
	switch el.Kind {
	case trial.KindCell:
		next := el.Index + delta
		if next < 0 || next >= len(layout.Cells) || next/m.cols() != el.Index/m.cols() {
			return
		}
		m.cursor = next
	case trial.KindDropZone:
		next := el.Index + delta
		if next < 0 || next >= len(layout.DropZones) {
			return
		}
		m.cursor = m.indexOf(trial.ZoneID(next))
	}
}

func (m *Model) moveVertical(delta int) {
	el := m.elementAtCursor()
	layout := m.ctrl.Layout()
	cols := m.cols()
	switch el.Kind {
	case trial.KindCell:
		next := el.Index + delta*cols
		switch {
		case next >= 0 && next < len(layout.Cells):
			m.cursor = next
		case delta > 0 && m.showZones() && len(layout.DropZones) > 0:
			m.cursor = m.indexOf(trial.ZoneID(min(el.Index%cols, len(layout.DropZones)-1)))
		}
	case trial.KindDropZone:
		if delta > 0 || len(layout.Cells) == 0 {
			return
		}
		lastRowStart := (len(layout.Cells) - 1) / cols * cols
		m.cursor = min(lastRowStart+el.Index, len(layout.Cells)-1)
	}
}

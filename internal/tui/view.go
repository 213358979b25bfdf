package tui

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tuigrid/internal/model"
	"github.com/verte-zerg/tuigrid/internal/stats"
	"github.com/verte-zerg/tuigrid/internal/trial"
)

// Cell geometry. Boxes are drawn at fixed offsets so mouse events can be
// mapped back to elements without re-measuring the rendered view.
const (
	cellWidth  = 18
	cellHeight = 2
	cellOuterW = cellWidth + 2
	cellOuterH = cellHeight + 2
	cellGapX   = 1
	gridTop    = 2
)

const (
	colorText      = "#F0F0F0"
	colorMuted     = "#6E6E6E"
	colorBorder    = "#4A4A4A"
	colorCursor    = "#C89A3A"
	colorCorrect   = "#52C41A"
	colorIncorrect = "#FF4D4F"
	colorFadeFloor = "#1E1E1E"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color(colorBorder)).
			Foreground(lipgloss.Color(colorText)).
			Width(cellWidth).
			Height(cellHeight).
			Align(lipgloss.Center).
			MarginRight(cellGapX)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorCursor))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorIncorrect))
	modalStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color(colorCursor)).
			Padding(1, 2)
	modalTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorText)).Bold(true)
)

var danceFrames = []string{`\o/`, `|o|`, `/o\`, `|o|`}

// View implements tea.Model.
func (m *Model) View() string {
	if m.err != nil {
		return errorStyle.Render(m.err.Error()) + "\n"
	}
	sections := []string{m.renderHeader(), ""}
	if m.ctrl.SummaryVisible() {
		sections = append(sections, m.renderModal(), "", m.help.ShortHelpView(m.keys.summaryHelp()))
		return strings.Join(sections, "\n")
	}
	sections = append(sections, m.renderGrid())
	if m.showZones() && len(m.ctrl.Layout().DropZones) > 0 {
		sections = append(sections, "", m.renderZones())
	}
	sections = append(sections, "", statusStyle.Render(m.status), m.help.View(m.keys))
	return strings.Join(sections, "\n")
}

func (m *Model) renderHeader() string {
	sess := m.ctrl.Session()
	id := sess.ID()
	if len(id) > 8 {
		id = id[:8]
	}
	header := fmt.Sprintf("Session %s  Mode %s  Trials %d", id, m.ctrl.Mode(), sess.TrialNumber())
	if el, ok := m.ctrl.Dragging(); ok {
		header += "  Dragging " + m.labelOf(el)
	}
	return headerStyle.Render(header)
}

func (m *Model) renderGrid() string {
	layout := m.ctrl.Layout()
	cols := m.cols()
	var rows []string
	for start := 0; start < len(layout.Cells); start += cols {
		end := min(start+cols, len(layout.Cells))
		boxes := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			boxes = append(boxes, m.renderElement(trial.CellID(i)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m *Model) renderZones() string {
	zones := m.ctrl.Layout().DropZones
	boxes := make([]string, 0, len(zones))
	for i := range zones {
		boxes = append(boxes, m.renderElement(trial.ZoneID(i)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func (m *Model) renderElement(el trial.ElementID) string {
	v := m.ctrl.Visual(el)
	style := boxStyle
	border := colorBorder
	text := colorText

	switch {
	case v.Has(trial.ClassCorrect):
		border = colorCorrect
	case v.Has(trial.ClassIncorrect):
		border = colorIncorrect
	}
	if v.Color != "" {
		text = v.Color
		border = v.Color
	}
	if v.Has(trial.ClassBlinkBorder) && m.frame%4 >= 2 {
		border = colorBorder
	}
	if v.Has(trial.ClassPromptFade) {
		text = m.fadeColor()
		style = style.Faint(true)
	}
	if m.indexOf(el) == m.cursor && m.ctrl.Mode() != model.ModeManualDataEntry {
		border = colorCursor
		style = style.BorderStyle(lipgloss.ThickBorder())
	}

	marker := ""
	switch {
	case v.Has(trial.ClassDance):
		marker = danceFrames[m.frame%len(danceFrames)]
		if m.frame%2 == 0 {
			text = colorCorrect
		}
	case v.Has(trial.ClassCorrect):
		marker = "✓"
	case v.Has(trial.ClassIncorrect):
		marker = "✗"
	}
	if v.Has(trial.ClassDragging) {
		marker = "[dragging]"
	}
	label := runewidth.Truncate(m.labelOf(el), cellWidth, "…")
	return style.
		BorderForeground(lipgloss.Color(border)).
		Foreground(lipgloss.Color(text)).
		Render(label + "\n" + marker)
}

func (m *Model) labelOf(el trial.ElementID) string {
	layout := m.ctrl.Layout()
	if el.Kind == trial.KindDropZone {
		return "→ " + layout.DropZones[el.Index].Label
	}
	return strings.TrimSuffix(filepath.Base(layout.Cells[el.Index].Path), filepath.Ext(layout.Cells[el.Index].Path))
}

// fadeColor dims text toward the floor color by the configured fade
// percentage, phased in over the fade duration.
func (m *Model) fadeColor() string {
	cfg := m.ctrl.PromptConfig()
	pct := float64(cfg.FadePercentage) / 100
	if cfg.FadeDuration > 0 && !m.promptAt.IsZero() {
		progress := time.Since(m.promptAt).Seconds() / cfg.FadeDuration
		pct *= min(progress, 1)
	}
	return lerpColor(colorText, colorFadeFloor, pct)
}

func (m *Model) renderModal() string {
	var buf bytes.Buffer
	if err := stats.RenderSummary(&buf, m.ctrl.Summary()); err != nil {
		buf.Reset()
		buf.WriteString(err.Error())
	}
	body := []string{
		modalTitleStyle.Render("Session Summary"),
		"",
		strings.TrimRight(buf.String(), "\n"),
		"",
		"[d] Download data   [r] Return to config",
	}
	if m.status != "" {
		body = append(body, "", statusStyle.Render(m.status))
	}
	return modalStyle.Render(strings.Join(body, "\n"))
}

// insideModal reports whether (x, y) falls on the summary modal.
func (m *Model) insideModal(x, y int) bool {
	modal := m.renderModal()
	return x >= 0 && x < lipgloss.Width(modal) && y >= gridTop && y < gridTop+lipgloss.Height(modal)
}

// elementAt maps terminal coordinates to a cell or drop zone.
func (m *Model) elementAt(x, y int) (trial.ElementID, bool) {
	layout := m.ctrl.Layout()
	cols := m.cols()
	for i := range layout.Cells {
		if hit(x, y, (i%cols)*(cellOuterW+cellGapX), gridTop+(i/cols)*cellOuterH) {
			return trial.CellID(i), true
		}
	}
	if !m.showZones() {
		return trial.ElementID{}, false
	}
	zonesTop := gridTop + m.gridRows()*cellOuterH + 1
	for i := range layout.DropZones {
		if hit(x, y, i*(cellOuterW+cellGapX), zonesTop) {
			return trial.ZoneID(i), true
		}
	}
	return trial.ElementID{}, false
}

func (m *Model) gridRows() int {
	n := len(m.ctrl.Layout().Cells)
	cols := m.cols()
	return (n + cols - 1) / cols
}

func hit(x, y, x0, y0 int) bool {
	return x >= x0 && x < x0+cellOuterW && y >= y0 && y < y0+cellOuterH
}

func lerpColor(from, to string, t float64) string {
	t = max(0, min(t, 1))
	var fr, fg, fb, tr, tg, tb int
	if _, err := fmt.Sscanf(from, "#%02x%02x%02x", &fr, &fg, &fb); err != nil {
		return from
	}
	if _, err := fmt.Sscanf(to, "#%02x%02x%02x", &tr, &tg, &tb); err != nil {
		return from
	}
	mix := func(a, b int) int {
		return a + int(float64(b-a)*t+0.5*sign(b-a))
	}
	return fmt.Sprintf("#%02X%02X%02X", mix(fr, tr), mix(fg, tg), mix(fb, tb))
}

func sign(v int) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

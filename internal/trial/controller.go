// Package trial implements the trial-interaction state machine: response
// handling per action mode, prompting, reinforcement feedback, trial records
// and the end-of-session summary.
//
// A Controller is not safe for concurrent use. It is meant to be driven from
// a single event loop; timers it asks for are scheduled by the host and fed
// back through Fire.
package trial

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/tuigrid/internal/model"
	"github.com/verte-zerg/tuigrid/internal/stats"
)

// ActionKind tags how a trial was produced.
type ActionKind string

// Action kinds.
const (
	ActionClick  ActionKind = "click"
	ActionDrag   ActionKind = "bidirectional_drag"
	ActionManual ActionKind = "manual_entry"
)

// Routes the host navigates to.
const (
	HomeRoute     = "/"
	downloadRoute = "/download_data/"
)

const (
	// NavigateDelay is how long the summary stays up before returning home.
	NavigateDelay = 2 * time.Second
	// DanceDuration is the length of the celebratory animation.
	DanceDuration = 1200 * time.Millisecond
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

var (
	// ErrHandlerNotBound is returned when an input arrives for a mode that is
	// not active in this session.
	ErrHandlerNotBound = errors.New("handler not bound for action mode")
	// ErrUnknownPath is returned when an image path has no declaring cell.
	ErrUnknownPath = errors.New("no grid cell declares image path")
	// ErrUnknownElement is returned for out-of-range element ids.
	ErrUnknownElement = errors.New("unknown grid element")
)

// Reporter receives every trial record as it is created. Implementations must
// not block.
type Reporter interface {
	Report(rec model.TrialRecord)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(rec model.TrialRecord)

// Report implements Reporter.
func (f ReporterFunc) Report(rec model.TrialRecord) { f(rec) }

// TimerKind identifies a one-shot timer requested by the controller.
type TimerKind int

// Timer kinds.
const (
	TimerPrompt TimerKind = iota + 1
	TimerAnimationEnd
	TimerNavigateHome
)

// Timer is a one-shot timer the host schedules and hands back to Fire.
type Timer struct {
	Kind    TimerKind
	After   time.Duration
	Element ElementID
	token   uint64
}

// Result describes the outcome of a user action.
type Result struct {
	Recorded bool
	Record   model.TrialRecord
	Timers   []Timer
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithReporter sets where trial records are sent.
func WithReporter(r Reporter) Option {
	return func(c *Controller) {
		c.reporter = r
	}
}

// WithLogger sets the controller logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// Controller is the stateful trial session.
type Controller struct {
	session  *Session
	layout   model.Layout
	mode     model.ActionMode
	prompt   model.PromptConfig
	reporter Reporter
	now      func() time.Time
	log      *zap.Logger

	visuals     map[ElementID]*Visual
	promptState PromptState
	started     bool
	dragging    *ElementID

	dances    map[ElementID]uint64
	nextToken uint64

	summaryVisible bool
	summary        model.Summary
}

// New constructs a controller bound to exactly one action mode.
func New(session *Session, layout model.Layout, mode model.ActionMode, prompt model.PromptConfig, opts ...Option) (*Controller, error) {
	if session == nil || session.ID() == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown action mode %q", mode)
	}
	c := &Controller{
		session: session,
		layout:  layout,
		mode:    mode,
		prompt:  prompt,
		now:     time.Now,
		log:     zap.NewNop(),
		visuals: map[ElementID]*Visual{},
		dances:  map[ElementID]uint64{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start evaluates the prompting policy and returns the timers to schedule.
// Calling it more than once has no effect.
func (c *Controller) Start() []Timer {
	if c.started {
		return nil
	}
	c.started = true
	switch {
	case !c.prompt.EnablePrompting:
		return nil
	case c.prompt.UsePromptDelay && c.prompt.PromptDelay > 0:
		c.promptState = PromptPending
		c.log.Debug("prompt scheduled", zap.Duration("delay", c.prompt.Delay()))
		return []Timer{{Kind: TimerPrompt, After: c.prompt.Delay()}}
	default:
		c.applyPrompt()
		return nil
	}
}

// Fire delivers an elapsed timer. It returns the route to navigate to, or ""
// when the timer does not navigate.
func (c *Controller) Fire(t Timer) string {
	switch t.Kind {
	case TimerPrompt:
		if c.promptState == PromptPending {
			c.applyPrompt()
		}
	case TimerAnimationEnd:
		c.animationEnd(t.Element, t.token)
	case TimerNavigateHome:
		return HomeRoute
	}
	return ""
}

// Click records a response on a grid cell.
func (c *Controller) Click(cell int) (Result, error) {
	if c.mode != model.ModeClick {
		return Result{}, ErrHandlerNotBound
	}
	id := CellID(cell)
	if err := c.checkElement(id); err != nil {
		return Result{}, err
	}
	target := c.layout.Cells[cell]
	return c.HandleAction(&id, ActionClick, target.Path, target.Correct, c.prompt.Label())
}

// DragStart marks el as the element being dragged.
func (c *Controller) DragStart(el ElementID) error {
	if c.mode != model.ModeClickAndDrag {
		return ErrHandlerNotBound
	}
	if err := c.checkElement(el); err != nil {
		return err
	}
	c.DragEnd()
	c.dragging = &el
	c.visual(el).add(ClassDragging)
	return nil
}

// DragEnd clears the current drag, if any.
func (c *Controller) DragEnd() {
	if c.dragging == nil {
		return
	}
	c.visual(*c.dragging).remove(ClassDragging)
	c.dragging = nil
}

// Dragging returns the element being dragged.
func (c *Controller) Dragging() (ElementID, bool) {
	if c.dragging == nil {
		return ElementID{}, false
	}
	return *c.dragging, true
}

// Drop records a response for dropping the dragged element onto target.
// Dropping an element onto itself, or with nothing dragged, records nothing.
func (c *Controller) Drop(target ElementID) (Result, error) {
	if c.mode != model.ModeClickAndDrag {
		return Result{}, ErrHandlerNotBound
	}
	if err := c.checkElement(target); err != nil {
		return Result{}, err
	}
	if c.dragging == nil || *c.dragging == target {
		return Result{}, nil
	}
	source := *c.dragging
	correct := intersects(c.tagsOf(source), c.tagsOf(target))
	path := c.pathOf(source)
	if path == "" {
		path = c.pathOf(target)
	}
	if path == "" {
		path = model.NotAvailable
	}
	res, err := c.HandleAction(&target, ActionDrag, path, correct, c.prompt.Label())
	if err != nil {
		return Result{}, err
	}
	if c.prompt.EnableReinforcement {
		res.Timers = append(res.Timers, c.updateVisualFeedback(source, correct)...)
	}
	return res, nil
}

// MarkCorrect records a manual correct response.
func (c *Controller) MarkCorrect() (Result, error) {
	return c.manual(true)
}

// MarkIncorrect records a manual incorrect response.
func (c *Controller) MarkIncorrect() (Result, error) {
	return c.manual(false)
}

func (c *Controller) manual(correct bool) (Result, error) {
	if c.mode != model.ModeManualDataEntry {
		return Result{}, ErrHandlerNotBound
	}
	return c.HandleAction(nil, ActionManual, "", correct, c.prompt.Label())
}

// HandleAction records one trial. el and imgPath are optional. Nothing is
// recorded when the target name cannot be resolved.
func (c *Controller) HandleAction(el *ElementID, kind ActionKind, imgPath string, correct bool, promptUsed string) (Result, error) {
	targetName, err := c.TargetName(imgPath)
	if err != nil {
		return Result{}, err
	}
	now := c.now()
	elapsed := now.Sub(c.session.startTime).Milliseconds()
	c.session.trialNumber++

	if imgPath == "" {
		imgPath = model.NotAvailable
	}
	if promptUsed == "" {
		promptUsed = model.NoPrompt
	}
	outcome := model.Incorrect
	if correct {
		outcome = model.Correct
	}
	rec := model.TrialRecord{
		SessionID:     c.session.id,
		TrialNumber:   c.session.trialNumber,
		Timestamp:     now.UTC().Format(timestampLayout),
		TargetName:    targetName,
		ImageFileName: imgPath,
		TimeTakenMs:   elapsed,
		PromptUsed:    promptUsed,
		Correct:       outcome,
	}
	c.session.append(rec)
	c.log.Debug("trial recorded",
		zap.String("action", string(kind)),
		zap.Int("trial", rec.TrialNumber),
		zap.String("target", rec.TargetName),
		zap.String("correct", rec.Correct))
	if c.reporter != nil {
		c.reporter.Report(rec)
	}

	res := Result{Recorded: true, Record: rec}
	if el != nil && c.prompt.EnableReinforcement {
		res.Timers = c.updateVisualFeedback(*el, correct)
	}
	return res, nil
}

// TargetName resolves the selected tag declared by the cell showing imgPath.
func (c *Controller) TargetName(imgPath string) (string, error) {
	if imgPath == "" || imgPath == model.NotAvailable {
		return model.NotAvailable, nil
	}
	for _, cell := range c.layout.Cells {
		if cell.Path != imgPath {
			continue
		}
		for _, tag := range cell.Tags {
			if c.session.selected(tag) {
				return tag, nil
			}
		}
		return model.UnknownTarget, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPath, imgPath)
}

// EndTrial shows the summary and returns the timer that navigates home.
func (c *Controller) EndTrial() (model.Summary, Timer) {
	c.summary = stats.Summarize(c.session.records)
	c.summaryVisible = true
	c.log.Info("trial ended",
		zap.String("session", c.session.id),
		zap.Int("total", c.summary.TotalTrials),
		zap.String("accuracy", c.summary.Accuracy))
	return c.summary, Timer{Kind: TimerNavigateHome, After: NavigateDelay}
}

// DismissSummary hides the summary when the click landed outside it.
func (c *Controller) DismissSummary(outside bool) {
	if outside {
		c.summaryVisible = false
	}
}

// SummaryVisible reports whether the summary is shown.
func (c *Controller) SummaryVisible() bool {
	return c.summaryVisible
}

// Summary returns the last computed summary.
func (c *Controller) Summary() model.Summary {
	return c.summary
}

// DownloadRoute returns the route serving this session's records.
func (c *Controller) DownloadRoute() string {
	return downloadRoute + url.PathEscape(c.session.id)
}

// ReturnRoute returns the landing route.
func (c *Controller) ReturnRoute() string {
	return HomeRoute
}

// Visual returns a copy of the element's render state.
func (c *Controller) Visual(el ElementID) Visual {
	v, ok := c.visuals[el]
	if !ok {
		return Visual{}
	}
	return v.clone()
}

// Mode returns the bound action mode.
func (c *Controller) Mode() model.ActionMode {
	return c.mode
}

// Layout returns the grid layout.
func (c *Controller) Layout() model.Layout {
	return c.layout
}

// Session returns the session context.
func (c *Controller) Session() *Session {
	return c.session
}

// PromptConfig returns the prompt settings.
func (c *Controller) PromptConfig() model.PromptConfig {
	return c.prompt
}

func (c *Controller) updateVisualFeedback(el ElementID, correct bool) []Timer {
	v := c.visual(el)
	v.remove(ClassCorrect, ClassIncorrect, ClassDance)
	delete(c.dances, el)
	if !correct {
		v.add(ClassIncorrect)
		return nil
	}
	v.add(ClassCorrect)
	if !c.prompt.EnableDanceAnimation {
		return nil
	}
	v.add(ClassDance)
	c.nextToken++
	c.dances[el] = c.nextToken
	return []Timer{{Kind: TimerAnimationEnd, After: DanceDuration, Element: el, token: c.nextToken}}
}

func (c *Controller) animationEnd(el ElementID, token uint64) {
	current, ok := c.dances[el]
	if !ok || current != token {
		return
	}
	delete(c.dances, el)
	v := c.visual(el)
	v.remove(ClassDance)
	v.add(ClassCorrect)
}

func (c *Controller) visual(el ElementID) *Visual {
	v, ok := c.visuals[el]
	if !ok {
		v = &Visual{}
		c.visuals[el] = v
	}
	return v
}

func (c *Controller) checkElement(el ElementID) error {
	n := len(c.layout.Cells)
	if el.Kind == KindDropZone {
		n = len(c.layout.DropZones)
	}
	if el.Index < 0 || el.Index >= n {
		return fmt.Errorf("%w: kind=%d index=%d", ErrUnknownElement, el.Kind, el.Index)
	}
	return nil
}

func (c *Controller) tagsOf(el ElementID) []string {
	if el.Kind == KindDropZone {
		return c.layout.DropZones[el.Index].Tags
	}
	return c.layout.Cells[el.Index].Tags
}

func (c *Controller) pathOf(el ElementID) string {
	if el.Kind == KindDropZone {
		return ""
	}
	return c.layout.Cells[el.Index].Path
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

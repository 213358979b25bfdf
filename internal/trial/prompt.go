package trial

import (
	"go.uber.org/zap"

	"github.com/verte-zerg/tuigrid/internal/model"
)

// PromptState is the prompting state of a session.
type PromptState int

// Prompt states. Applied is terminal.
const (
	PromptIdle PromptState = iota
	PromptPending
	PromptApplied
)

func (s PromptState) String() string {
	switch s {
	case PromptPending:
		return "pending"
	case PromptApplied:
		return "applied"
	default:
		return "idle"
	}
}

// PromptState returns the current prompting state.
func (c *Controller) PromptState() PromptState {
	return c.promptState
}

func (c *Controller) applyPrompt() {
	c.promptState = PromptApplied
	switch c.prompt.PromptType {
	case model.PromptFade:
		// Fade the distractors so the correct answer stands out by exclusion.
		for i, cell := range c.layout.Cells {
			if !cell.Correct {
				c.visual(CellID(i)).add(ClassPromptFade)
			}
		}
	case model.PromptHighlight:
		for i, cell := range c.layout.Cells {
			if cell.Correct {
				v := c.visual(CellID(i))
				v.Color = c.prompt.HighlightColor
				v.add(ClassBlinkBorder)
			}
		}
	}
	c.log.Debug("prompt applied", zap.String("type", c.prompt.Label()))
}

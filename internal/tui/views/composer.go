package views

import (
	"github.com/feedchat/feedchat/internal/tui/ui"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Composer is the text input for sending messages and commands.
type Composer struct {
	*tview.InputField
	onSend func(text string)
}

// NewComposer creates a new message composer.
func NewComposer(theme *ui.Theme) *Composer {
	input := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	input.SetLabelColor(theme.MenuKeyColor)
	input.SetPlaceholder("message, /image <path> or /view <n>")

	c := &Composer{InputField: input}

	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && c.onSend != nil {
			c.onSend(c.GetText())
			c.SetText("")
		}
	})

	return c
}

// SetOnSend sets the callback when a line is submitted. Empty lines are
// passed through so the dispatcher can reject them.
func (c *Composer) SetOnSend(fn func(text string)) {
	c.onSend = fn
}

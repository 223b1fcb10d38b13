package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/feedchat/feedchat/internal/status"
	"github.com/rivo/tview"
)

// StatusBar displays the profile and feed reachability.
type StatusBar struct {
	*tview.TextView
	profile string
	status  status.State
	flash   string
	hints   []string
}

// NewStatusBar creates a new status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv}
}

// SetProfile updates the profile name display.
func (sb *StatusBar) SetProfile(name string) {
	sb.profile = name
	sb.render()
}

// SetStatus updates the status display.
func (sb *StatusBar) SetStatus(s status.State) {
	sb.status = s
	sb.render()
}

// SetHints sets the key hints shown at the right.
func (sb *StatusBar) SetHints(hints []string) {
	sb.hints = hints
	sb.render()
}

// SetFlash sets a temporary message.
func (sb *StatusBar) SetFlash(msg string) {
	sb.flash = msg
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()
	line := statusLine(sb.profile, sb.status, sb.flash, time.Now())
	if len(sb.hints) > 0 {
		line += " | [::d]" + strings.Join(sb.hints, " ") + "[-:-:-]"
	}
	_, _ = fmt.Fprint(sb, line)
}

func statusLine(profile string, s status.State, flash string, now time.Time) string {
	color := "white"
	switch s {
	case status.Online:
		color = "green"
	case status.Unreachable:
		color = "red"
	}
	line := fmt.Sprintf(" [::b]%s[-:-:-] | [%s]%s[-] | %s", profile, color, s, now.Format("15:04"))
	if flash != "" {
		line += fmt.Sprintf(" | [yellow]%s[-]", tview.Escape(flash))
	}
	return line
}

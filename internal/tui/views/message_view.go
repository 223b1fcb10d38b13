package views

import (
	"fmt"
	"strconv"
	"time"

	"github.com/feedchat/feedchat/internal/chat"
	"github.com/feedchat/feedchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageView displays the message log, oldest first.
type MessageView struct {
	*tview.TextView
	self string
}

// NewMessageView creates a new message view. Messages from self are shown as "You".
func NewMessageView(theme *ui.Theme, self string) *MessageView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true).SetTitle(" Messages ")
	tv.SetBorderColor(theme.BorderColor)
	tv.SetTitleColor(theme.TitleColor)

	return &MessageView{TextView: tv, self: self}
}

// Update refreshes the message view with the whole log.
func (mv *MessageView) Update(msgs []chat.Message) {
	mv.Clear()
	for i := range msgs {
		_, _ = fmt.Fprint(mv, formatMessage(i, &msgs[i], mv.self))
	}
	mv.ScrollToEnd()
}

func formatMessage(index int, m *chat.Message, self string) string {
	sender := m.Sender
	if sender == self {
		sender = "You"
	}
	var body string
	switch p := m.Payload.(type) {
	case chat.Text:
		body = tview.Escape(sanitizeForTerminal(p.Body))
	case *chat.Image:
		if p.Thumb != nil {
			b := p.Thumb.Bounds()
			body = fmt.Sprintf("[blue]%s[-] /view %d", tview.Escape(fmt.Sprintf("[image %dx%d]", b.Dx(), b.Dy())), index)
		} else {
			body = "[::d]" + tview.Escape("[image loading]") + "[-:-:-]"
		}
	}
	return fmt.Sprintf("[::b]%s[-:-:-] [::d]%s[-:-:-]\n%s\n\n", tview.Escape(sanitizeForTerminal(sender)), formatTimestamp(m.Time, time.Now()), body)
}

// formatTimestamp renders epoch millis as a clock time, dated unless it is today.
func formatTimestamp(ms string, now time.Time) string {
	v, err := strconv.ParseInt(ms, 10, 64)
	if err != nil || v <= 0 {
		return ""
	}
	t := time.UnixMilli(v)
	if t.Format("2006-01-02") == now.Format("2006-01-02") {
		return t.Format("15:04")
	}
	return t.Format("Jan 2 15:04")
}

package views

import "strings"

// sanitizeForTerminal drops runes that tcell renders badly or that a remote
// sender could use to drive the terminal: C0/C1 controls other than newline
// and tab, emoji skin tone modifiers, zero width joiners and variation
// selectors. A thumbs-up with a skin tone becomes a plain 2-cell thumbs-up.
func sanitizeForTerminal(s string) string {
	return strings.Map(func(r rune) rune {
		if dropRune(r) {
			return -1
		}
		return r
	}, s)
}

func dropRune(r rune) bool {
	switch {
	case r == '\n' || r == '\t':
		return false
	case r < 0x20 || (r >= 0x7F && r <= 0x9F):
		return true
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r == 0x200D:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	default:
		return false
	}
}

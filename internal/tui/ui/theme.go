package ui

import "github.com/gdamore/tcell/v2"

// Theme holds color constants for the TUI.
type Theme struct {
	BorderColor  tcell.Color
	TitleColor   tcell.Color
	MenuKeyColor tcell.Color
}

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BorderColor:  tcell.ColorDodgerBlue,
		TitleColor:   tcell.ColorFuchsia,
		MenuKeyColor: tcell.ColorDodgerBlue,
	}
}

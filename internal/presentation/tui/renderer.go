package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders node text as markdown using
// glamour, sized to the terminal width.
func NewRenderer(width int) func(string) (string, error) {
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)

	return func(text string) (string, error) {
		return r.Render(text)
	}
}

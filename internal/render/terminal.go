package render

import (
	"github.com/charmbracelet/glamour"
)

const DefaultWidth = 100

// Terminal renders markdown for an ANSI terminal. style is a glamour
// standard style name ("dark", "light", "notty", ...); empty means "dark".
func Terminal(md, style string, width int) (string, error) {
	if style == "" {
		style = "dark"
	}
	if width <= 0 {
		width = DefaultWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

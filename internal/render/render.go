// Package render formats node output for display: dedenting the body text,
// listing the selectable options and framing both between separator rules
// sized to the actor's output width. Richer layout (markdown, color themes)
// is the transport's concern; see the CLI runner for a glamour-backed example.
package render

import (
	"regexp"
	"strings"
)

// DefaultWidth is used when the transport reports no width for the actor.
const DefaultWidth = 80

// BorderChar draws the separator rules around the node body.
const BorderChar = "_"

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripDecoration removes ANSI escape sequences from s. Input tokens are
// stripped before option matching so decorated keys still match plain input.
func StripDecoration(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// OptionLine is one displayed (key, description) pair.
type OptionLine struct {
	Key  string
	Desc string
}

// Node formats the full node display: dedented body, separator rules and the
// option list. width caps the separator length; values < 1 fall back to
// DefaultWidth.
func Node(body string, options []OptionLine, width int) string {
	if width < 1 {
		width = DefaultWidth
	}

	body = Dedent(body)
	optionsText := Options(options)

	bodyWidth := widest(body)
	optWidth := widest(optionsText)
	total := max(bodyWidth, optWidth)
	if total > width {
		total = width
	}

	var sb strings.Builder
	if bodyWidth > 0 {
		sb.WriteString(strings.Repeat(BorderChar, total))
		sb.WriteString("\n\n")
	}
	sb.WriteString(body)
	if total > 0 {
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat(BorderChar, total))
		sb.WriteString("\n\n")
	}
	sb.WriteString(optionsText)
	return sb.String()
}

// Options formats the option list, one option per line.
func Options(options []OptionLine) string {
	if len(options) == 0 {
		return ""
	}
	lines := make([]string, 0, len(options))
	for _, opt := range options {
		if opt.Key == "" && opt.Desc == "" {
			continue
		}
		if opt.Desc == "" {
			lines = append(lines, " "+opt.Key)
			continue
		}
		lines = append(lines, " "+opt.Key+": "+opt.Desc)
	}
	return strings.Join(lines, "\n")
}

// Dedent strips the common leading whitespace of all non-empty lines and
// trims surrounding blank lines, so node text authored as an indented literal
// displays flush left.
func Dedent(text string) string {
	lines := strings.Split(text, "\n")

	indent := -1
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		n := len(line) - len(trimmed)
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent > 0 {
		for i, line := range lines {
			if len(line) >= indent {
				lines[i] = line[indent:]
			} else {
				lines[i] = strings.TrimLeft(line, " \t")
			}
		}
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

func widest(text string) int {
	w := 0
	for _, line := range strings.Split(text, "\n") {
		if n := len([]rune(StripDecoration(line))); n > w {
			w = n
		}
	}
	if text == "" {
		return 0
	}
	return w
}

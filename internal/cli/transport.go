package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/espalierhq/espalier/internal/presentation/tui"
	"github.com/espalierhq/espalier/pkg/domain"
)

// stdoutTransport writes node text to the terminal, optionally rendered as
// markdown. It reports the terminal width so option columns and separators
// fit the screen.
type stdoutTransport struct {
	render func(string) (string, error)
}

func newStdoutTransport(markdown bool) *stdoutTransport {
	t := &stdoutTransport{}
	if markdown {
		t.render = tui.NewRenderer(t.Width(nil))
	}
	return t
}

func (t *stdoutTransport) Send(_ domain.Actor, text string) error {
	if t.render != nil {
		if rendered, err := t.render(text); err == nil {
			text = rendered
		}
	}
	_, err := fmt.Println(text)
	return err
}

func (t *stdoutTransport) Width(_ domain.Actor) int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 0
}

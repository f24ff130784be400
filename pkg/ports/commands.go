package ports

import "github.com/espalierhq/espalier/pkg/domain"

// MergeMode controls how the menu's input surface merges with the actor's
// normal command surface for the duration of a session.
type MergeMode string

const (
	// MergeReplace makes the menu options exclusive: only menu input is
	// accepted while the session is active.
	MergeReplace MergeMode = "replace"
	// MergeUnion lets menu options coexist with the actor's normal commands
	// at the attach priority.
	MergeUnion MergeMode = "union"
)

// CommandBinder is the hook into the external command-dispatch framework. It
// routes raw input lines into the engine while a session is active and
// restores the actor's normal command surface when it closes.
type CommandBinder interface {
	// Attach installs the menu input surface for the actor. The framework is
	// expected to route subsequent input lines into Engine.ParseInput.
	Attach(actor domain.Actor, mode MergeMode, priority int) error

	// Detach removes the menu input surface again.
	Detach(actor domain.Actor) error

	// Execute runs a command line on the actor's normal command surface.
	// Used for the exit command fired after a session closes.
	Execute(actor domain.Actor, cmdline string) error
}

package ports

import "github.com/espalierhq/espalier/pkg/domain"

// Transport delivers display text to an actor. The engine sends every piece
// of user-visible output through exactly one Transport.
type Transport interface {
	// Send delivers text to the actor. Errors are logged by the engine but
	// do not interrupt dispatch.
	Send(actor domain.Actor, text string) error
}

// WidthReporter is optionally implemented by transports that know the
// actor's preferred output width. Without it the renderer falls back to a
// default width.
type WidthReporter interface {
	Width(actor domain.Actor) int
}

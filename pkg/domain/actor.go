package domain

// Actor identifies the user of a menu session. The engine never inspects the
// concrete type; it only needs a stable key for session ownership and passes
// the actor through to node and callback functions.
type Actor interface {
	// Key returns a stable identifier for this actor. Two sessions with the
	// same key are considered to belong to the same user.
	Key() string
}

// ActorKey is a minimal Actor backed by a plain string key.
type ActorKey string

// Key implements Actor.
func (a ActorKey) Key() string { return string(a) }

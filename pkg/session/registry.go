// Package session provides explicit ownership of active menu sessions: a
// registry keyed by actor identity, injected where needed instead of reached
// through ambient globals.
package session

import (
	"log/slog"
	"sync"

	"github.com/espalierhq/espalier/internal/logging"
)

// Session is the registry's view of an engine: enough to replace one session
// with another. The silent close must not run the terminal hook.
type Session interface {
	Close() error
	CloseSilently() error
}

// Registry tracks the single active session per actor. Attaching a new
// session to an actor that already has one closes the old one silently.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]Session
	logger   *slog.Logger
}

// Option configures the Registry.
type Option func(*Registry)

// WithLogger configures a logger for registry events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty session registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]Session),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach installs s as the actor's active session. A previously attached
// session is closed without running its terminal hook first.
func (r *Registry) Attach(actorKey string, s Session) {
	r.mu.Lock()
	previous := r.sessions[actorKey]
	r.sessions[actorKey] = s
	r.mu.Unlock()

	if previous != nil && previous != s {
		if err := previous.CloseSilently(); err != nil {
			r.logger.Warn("failed to close replaced session", "actor", actorKey, "error", err)
		}
	}
}

// Detach removes the actor's session if it is still the given one.
func (r *Registry) Detach(actorKey string, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[actorKey] == s {
		delete(r.sessions, actorKey)
	}
}

// Get returns the actor's active session, if any.
func (r *Registry) Get(actorKey string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[actorKey]
	return s, ok
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

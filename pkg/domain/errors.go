package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned by session stores when no record exists for
// the requested actor.
var ErrSessionNotFound = errors.New("session not found")

// ConfigError reports a structural problem: a malformed menu tree, a DSL
// syntax violation, a reserved-key collision or a missing start node. It is
// always raised eagerly, before the offending construct can execute.
type ConfigError struct {
	Reason string
	// Fragment quotes the offending source fragment, when one exists.
	Fragment string
}

func (e *ConfigError) Error() string {
	if e.Fragment != "" {
		return fmt.Sprintf("menu configuration error: %s (in %q)", e.Reason, e.Fragment)
	}
	return "menu configuration error: " + e.Reason
}

// Configf builds a ConfigError without a source fragment.
func Configf(format string, args ...any) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// InvocationError reports a node or callback value that matches none of the
// accepted function shapes.
type InvocationError struct {
	Name   string
	Reason string
}

func (e *InvocationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("invalid menu callable %q: %s", e.Name, e.Reason)
	}
	return "invalid menu callable: " + e.Reason
}

// NodeError wraps an error raised by application-supplied node or callback
// logic, annotated with the node name and the input that triggered it.
type NodeError struct {
	Node  string
	Input string
	Err   error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("error in menu node %q (input %q): %v", e.Node, e.Input, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// AbortError is the non-error dispatch signal: a callback returns it to
// interrupt the current dispatch and show a one-line message while the
// session stays on the current node without re-running it. It is expected
// control flow and is never logged as a fault.
type AbortError struct {
	Msg string
}

func (e *AbortError) Error() string { return e.Msg }

// Abort builds the dispatch-interrupt signal carrying msg.
func Abort(msg string) error { return &AbortError{Msg: msg} }

// IsAbort reports whether err is (or wraps) the dispatch-interrupt signal,
// returning the message to display.
func IsAbort(err error) (string, bool) {
	var abort *AbortError
	if errors.As(err, &abort) {
		return abort.Msg, true
	}
	return "", false
}

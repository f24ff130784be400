// Package invoke adapts node and callback functions of varying parameter
// shapes onto the canonical signatures the engine dispatches through.
//
// The accepted shapes form a closed set and are matched by explicit type
// switch. The adapter supplies exactly the arguments a shape declares: the
// actor always, the raw input only when a second positional parameter exists,
// and the kwargs bag only when the shape accepts one.
package invoke

import (
	"fmt"

	"github.com/espalierhq/espalier/pkg/domain"
)

// Node canonicalizes a node function. Accepted shapes are the four parameter
// combinations documented on domain.Node. Anything else, including nil, is
// an InvocationError.
func Node(fn any) (domain.Node, error) {
	switch f := fn.(type) {
	case domain.Node:
		return f, nil
	case func(domain.Actor, string, domain.Map) (domain.Output, error):
		return f, nil
	case func(domain.Actor) (domain.Output, error):
		return func(actor domain.Actor, _ string, _ domain.Map) (domain.Output, error) {
			return f(actor)
		}, nil
	case func(domain.Actor, string) (domain.Output, error):
		return func(actor domain.Actor, raw string, _ domain.Map) (domain.Output, error) {
			return f(actor, raw)
		}, nil
	case func(domain.Actor, domain.Map) (domain.Output, error):
		return func(actor domain.Actor, _ string, kw domain.Map) (domain.Output, error) {
			return f(actor, kw)
		}, nil
	}
	return nil, badShape(fn, "node")
}

// Goto canonicalizes a goto/exec callable. Accepted shapes are the four
// parameter combinations returning (Target, error) plus the same four
// returning a bare error for side-effect-only callbacks.
func Goto(fn any) (domain.GotoFunc, error) {
	switch f := fn.(type) {
	case domain.GotoFunc:
		return f, nil
	case func(domain.Actor, string, domain.Map) (domain.Target, error):
		return f, nil
	case func(domain.Actor) (domain.Target, error):
		return func(actor domain.Actor, _ string, _ domain.Map) (domain.Target, error) {
			return f(actor)
		}, nil
	case func(domain.Actor, string) (domain.Target, error):
		return func(actor domain.Actor, raw string, _ domain.Map) (domain.Target, error) {
			return f(actor, raw)
		}, nil
	case func(domain.Actor, domain.Map) (domain.Target, error):
		return func(actor domain.Actor, _ string, kw domain.Map) (domain.Target, error) {
			return f(actor, kw)
		}, nil
	case func(domain.Actor) error:
		return func(actor domain.Actor, _ string, _ domain.Map) (domain.Target, error) {
			return domain.Target{}, f(actor)
		}, nil
	case func(domain.Actor, string) error:
		return func(actor domain.Actor, raw string, _ domain.Map) (domain.Target, error) {
			return domain.Target{}, f(actor, raw)
		}, nil
	case func(domain.Actor, domain.Map) error:
		return func(actor domain.Actor, _ string, kw domain.Map) (domain.Target, error) {
			return domain.Target{}, f(actor, kw)
		}, nil
	case func(domain.Actor, string, domain.Map) error:
		return func(actor domain.Actor, raw string, kw domain.Map) (domain.Target, error) {
			return domain.Target{}, f(actor, raw, kw)
		}, nil
	}
	return nil, badShape(fn, "goto")
}

func badShape(fn any, kind string) error {
	if fn == nil {
		return &domain.InvocationError{Reason: kind + " callable is nil"}
	}
	return &domain.InvocationError{
		Name:   fmt.Sprintf("%T", fn),
		Reason: "signature matches no accepted " + kind + " shape",
	}
}

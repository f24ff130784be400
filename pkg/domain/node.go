package domain

// Output is the canonical result of executing a node function.
//
// Text is the body shown to the actor. Help is the node-specific help entry;
// when empty the engine falls back to a generic command summary. A nil or
// empty Options slice marks the node as terminal: the session closes
// immediately after the text is displayed.
type Output struct {
	Text    string
	Help    string
	Options []Option
}

// Terminal reports whether reaching this output ends the session.
func (o Output) Terminal() bool { return len(o.Options) == 0 }

// Target is what a goto or exec callable resolves to. The zero value means
// "no target": the engine re-runs the current node (for goto) or leaves the
// pending goto untouched (for exec).
type Target struct {
	// Node is the name of the next node to execute.
	Node string
	// Kwargs seeds the keyword arguments of the next node. When nil, the
	// kwargs already in flight are passed on unchanged.
	Kwargs Map
}

// IsZero reports whether the target names no node.
func (t Target) IsZero() bool { return t.Node == "" }

// Node is the canonical node function shape. The engine invokes one node
// function per visit; raw is the input the actor entered on the previous
// node and kw the keyword arguments threaded into this visit.
//
// Node functions may also be written in any of the narrower shapes accepted
// by the invocation adapter:
//
//	func(actor Actor) (Output, error)
//	func(actor Actor, raw string) (Output, error)
//	func(actor Actor, kw Map) (Output, error)
//	func(actor Actor, raw string, kw Map) (Output, error)
type Node func(actor Actor, raw string, kw Map) (Output, error)

// GotoFunc is the canonical goto/exec callable shape. The same four narrower
// parameter shapes as for Node are accepted, and callables that only perform
// side effects may return a bare error instead of (Target, error).
type GotoFunc func(actor Actor, raw string, kw Map) (Target, error)

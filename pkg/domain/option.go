package domain

// Option is one selectable transition out of a node.
type Option struct {
	// Keys holds the input aliases selecting this option. The first entry is
	// displayed; all entries match. An empty Keys defaults to the option's
	// 1-based position number. The special alias DefaultKey marks this
	// option as the node's catch-all.
	Keys []string

	// Desc is the display text shown next to the key.
	Desc string

	// Goto names the transition taken when this option is chosen.
	Goto Directive

	// Exec is run before Goto. If its callable resolves to a non-zero
	// Target, that target replaces Goto and its kwargs entirely.
	Exec Directive
}

// Directive describes a goto or exec step: either the name of a node, or a
// callable resolved at dispatch time, optionally paired with kwargs seeding
// the step. Build one with To, ToKw, Call or CallKw; the zero Directive means
// "none".
type Directive struct {
	node   string
	fn     any
	kwargs Map
}

// To directs to the named node.
func To(node string) Directive { return Directive{node: node} }

// ToKw directs to the named node, seeding its kwargs.
func ToKw(node string, kwargs Map) Directive { return Directive{node: node, kwargs: kwargs} }

// Call directs through a callable. The callable must match one of the shapes
// accepted by the invocation adapter; this is validated when the option table
// is built, before any node executes.
func Call(fn any) Directive { return Directive{fn: fn} }

// CallKw directs through a callable with explicit kwargs.
func CallKw(fn any, kwargs Map) Directive { return Directive{fn: fn, kwargs: kwargs} }

// IsZero reports whether the directive is absent.
func (d Directive) IsZero() bool { return d.node == "" && d.fn == nil }

// Node returns the target node name, if the directive is name-based.
func (d Directive) Node() string { return d.node }

// Func returns the unadapted callable, if the directive is call-based.
func (d Directive) Func() any { return d.fn }

// Kwargs returns the kwargs paired with the directive, which may be nil.
func (d Directive) Kwargs() Map { return d.kwargs }

/*
Package espalier is an interactive, turn-based text menu engine: a state
machine that walks an actor through a directed graph of nodes (a block of
text plus a set of selectable options), resolving each input line into the
next node to display.

# Concept

A menu is a map of named node functions. Each visit invokes the node fresh
and yields display text plus options; every option carries a goto directive
(the next node, as a name or a callable resolved at dispatch time) and an
optional exec directive run before it, able to rewrite the transition. A node
returning no options is terminal and ends the session.

# Usage

	tree := map[string]any{
		"start": func(actor domain.Actor) (domain.Output, error) {
			return domain.Output{
				Text: "Where to?",
				Options: []domain.Option{
					{Keys: []string{"onward"}, Desc: "Keep going", Goto: domain.To("end")},
				},
			}, nil
		},
		"end": func(actor domain.Actor) (domain.Output, error) {
			return domain.Output{Text: "Done."}, nil
		},
	}

	eng, err := espalier.Open(actor, tree, espalier.WithTransport(transport))
	if err != nil {
		log.Fatal(err)
	}
	// feed input lines from the transport layer:
	_ = eng.ParseInput("onward")

Menus can also be compiled from a plain-text template (see pkg/template) and
sessions can be made durable across restarts by attaching a session store
(see pkg/adapters).
*/
package espalier

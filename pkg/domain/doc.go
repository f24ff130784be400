// Package domain contains the core types of the menu engine: actors, nodes,
// options, directives and the error kinds shared across the module.
//
// A menu is a directed graph of named node functions. Each visit to a node
// produces an Output (display text plus selectable options) and every option
// carries directives describing where to go next and what to execute on the
// way there. The engine in internal/engine walks this graph; the compiler in
// pkg/template produces it from a text DSL.
package domain

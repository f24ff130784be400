// Package ports declares the interfaces the menu engine consumes from its
// collaborators: the transport delivering text to actors, the command-dispatch
// framework hosting the menu's input surface, and the stores backing durable
// sessions. Adapters implementing them live under pkg/adapters and
// internal/httpd; the engine itself never opens sockets or touches disk.
package ports

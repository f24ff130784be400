// Package engine implements the menu state machine: it owns the session
// state of one actor, executes node transitions and resolves raw input lines
// into goto/exec dispatches. Construction and lifecycle wiring live in the
// root espalier package; this package is the core the facade drives.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/espalierhq/espalier/internal/logging"
	"github.com/espalierhq/espalier/internal/metrics"
	"github.com/espalierhq/espalier/internal/render"
	"github.com/espalierhq/espalier/pkg/domain"
	"github.com/espalierhq/espalier/pkg/ports"
)

// ErrClosed is returned when input is parsed on a session that has already
// been closed.
var ErrClosed = errors.New("menu session is closed")

// User-visible messages. Application errors are never leaked into the
// transcript; these generic lines are shown instead.
const (
	msgNodeNotImplemented = "Menu node %q is either not implemented or caused an error. Make another choice or try 'q' to abort."
	msgNodeError          = "Error in menu node %q."
	msgNoMatch            = "Choose an option or try 'help'."
	msgDurableFallback    = "The menu state could not be saved for durable mode. Continuing in non-durable mode; this session will not survive a restart."

	helpFull            = "Commands: <menu option>, help, quit"
	helpNoQuit          = "Commands: <menu option>, help"
	helpNoOptions       = "Commands: help, quit"
	helpNoOptionsNoQuit = "Commands: help"
)

// ExitFunc runs after a session closed normally (terminal node or quit).
type ExitFunc func(actor domain.Actor)

// Config carries the construction parameters of an Engine. The facade
// translates its functional options into this struct.
type Config struct {
	Actor     domain.Actor
	Tree      map[string]domain.Node
	StartNode string

	Transport ports.Transport
	Binder    ports.CommandBinder
	MergeMode ports.MergeMode
	Priority  int

	AutoQuit bool
	AutoLook bool
	AutoHelp bool
	Debug    bool

	// Durable session persistence. Store may be nil; MenuID names the menu
	// source so Resume can rebuild it after a restart.
	Store  ports.SessionStore
	MenuID string

	// Values are caller-supplied session variables readable by nodes via
	// Engine.Value.
	Values domain.Map

	ExitHook    ExitFunc
	ExitCommand string

	// AfterClose runs exactly once on close, before the exit hook. The
	// facade uses it to deregister from the session registry.
	AfterClose func()

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// resolvedStep is one half of an option entry: a directive normalized into
// either a node name or an adapted callable, plus the kwargs seeding it.
type resolvedStep struct {
	node   string
	fn     domain.GotoFunc
	kwargs domain.Map
}

func (s resolvedStep) empty() bool { return s.node == "" && s.fn == nil }

// optionEntry is the dispatch record of one selectable option.
type optionEntry struct {
	gotoStep resolvedStep
	execStep resolvedStep
}

// Engine is one active menu session. It is not safe for concurrent use; the
// transport layer must serialize input per actor.
type Engine struct {
	cfg Config

	// session state, rewritten on every accepted transition
	nodename  string
	nodeText  string
	helpText  string
	options   map[string]*optionEntry
	defaulted *optionEntry
	kwargs    domain.Map

	durable  bool
	quitting bool

	logger *slog.Logger
}

// New validates the configuration and builds an engine. The start node must
// exist in the tree; this is checked before any node executes.
func New(cfg Config) (*Engine, error) {
	if cfg.Actor == nil {
		return nil, domain.Configf("menu requires an actor")
	}
	if cfg.StartNode == "" {
		cfg.StartNode = "start"
	}
	if _, ok := cfg.Tree[cfg.StartNode]; !ok {
		return nil, domain.Configf("start node %q not in menu tree", cfg.StartNode)
	}
	for key := range cfg.Values {
		if domain.IsReservedKey(key) {
			return nil, domain.Configf("session value key %q is reserved for internal use", key)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		cfg:     cfg,
		durable: cfg.Store != nil,
		logger:  logger.With("actor", cfg.Actor.Key(), "start", cfg.StartNode),
	}, nil
}

// Start attaches the command surface and runs the start node. raw and kwargs
// seed the start node as if entered on a fictional previous node.
func (e *Engine) Start(raw string, kwargs domain.Map) error {
	for key := range kwargs {
		if domain.IsReservedKey(key) {
			return domain.Configf("start kwarg %q is reserved for internal use", key)
		}
	}
	if e.cfg.Binder != nil {
		mode := e.cfg.MergeMode
		if mode == "" {
			mode = ports.MergeReplace
		}
		if err := e.cfg.Binder.Attach(e.cfg.Actor, mode, e.cfg.Priority); err != nil {
			return fmt.Errorf("failed to attach menu command surface: %w", err)
		}
	}
	e.cfg.Metrics.SessionOpened()
	return e.Goto(resolvedStep{node: e.cfg.StartNode}, raw, kwargs)
}

// Node returns the name of the currently displayed node.
func (e *Engine) Node() string { return e.nodename }

// Closed reports whether the session has been torn down.
func (e *Engine) Closed() bool { return e.quitting }

// Value returns a session value installed at construction time.
func (e *Engine) Value(key string) (any, bool) {
	v, ok := e.cfg.Values[key]
	return v, ok
}

// Close terminates the session and runs the exit hook. It is idempotent.
func (e *Engine) Close() error { return e.close(true) }

// CloseSilently terminates the session without running the exit hook. Used
// when a new session replaces this one on the same actor.
func (e *Engine) CloseSilently() error { return e.close(false) }

func (e *Engine) close(runExit bool) error {
	if e.quitting {
		return nil
	}
	e.quitting = true

	if e.cfg.Binder != nil {
		if err := e.cfg.Binder.Detach(e.cfg.Actor); err != nil {
			e.logger.Warn("failed to detach menu command surface", "error", err)
		}
	}
	if e.durable {
		if err := e.cfg.Store.Delete(context.Background(), e.cfg.Actor.Key()); err != nil {
			e.logger.Warn("failed to clear durable session record", "error", err)
		}
	}
	e.cfg.Metrics.SessionClosed()
	if e.cfg.AfterClose != nil {
		e.cfg.AfterClose()
	}
	if runExit {
		if e.cfg.ExitHook != nil {
			e.cfg.ExitHook(e.cfg.Actor)
		} else if e.cfg.ExitCommand != "" && e.cfg.Binder != nil {
			if err := e.cfg.Binder.Execute(e.cfg.Actor, e.cfg.ExitCommand); err != nil {
				e.logger.Warn("exit command failed", "cmd", e.cfg.ExitCommand, "error", err)
			}
		}
	}
	return nil
}

// send delivers text to the actor. Transport failures do not interrupt
// dispatch.
func (e *Engine) send(text string) {
	if e.cfg.Transport == nil {
		return
	}
	if err := e.cfg.Transport.Send(e.cfg.Actor, text); err != nil {
		e.logger.Warn("failed to send menu text", "error", err)
	}
}

func (e *Engine) width() int {
	if w, ok := e.cfg.Transport.(ports.WidthReporter); ok {
		if n := w.Width(e.cfg.Actor); n > 0 {
			return n
		}
	}
	return render.DefaultWidth
}

func (e *Engine) displayNode() { e.send(e.nodeText) }
func (e *Engine) displayHelp() { e.send(e.helpText) }

// debugDump messages the current session state; only reachable with the
// debug flag set.
func (e *Engine) debugDump(arg string) {
	keys := make([]string, 0, len(e.options))
	for k := range e.options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("MENU DEBUG\n")
	fmt.Fprintf(&sb, " * node: %s\n", e.nodename)
	fmt.Fprintf(&sb, " * options: %s\n", strings.Join(keys, ", "))
	fmt.Fprintf(&sb, " * default: %v\n", e.defaulted != nil)
	fmt.Fprintf(&sb, " * kwargs: %v\n", e.kwargs)
	fmt.Fprintf(&sb, " * durable: %v quitting: %v\n", e.durable, e.quitting)
	if arg == "full" {
		fmt.Fprintf(&sb, " * values: %v\n", e.cfg.Values)
		fmt.Fprintf(&sb, " * auto: quit=%v look=%v help=%v\n",
			e.cfg.AutoQuit, e.cfg.AutoLook, e.cfg.AutoHelp)
		fmt.Fprintf(&sb, " * text:\n%s\n", e.nodeText)
	}
	sb.WriteString(" ... END MENU DEBUG")
	e.send(sb.String())
}

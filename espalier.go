package espalier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/espalierhq/espalier/internal/engine"
	"github.com/espalierhq/espalier/internal/logging"
	"github.com/espalierhq/espalier/internal/metrics"
	"github.com/espalierhq/espalier/pkg/domain"
	"github.com/espalierhq/espalier/pkg/ports"
	"github.com/espalierhq/espalier/pkg/session"
)

// ExitFunc runs after a session closed normally (terminal node or quit).
type ExitFunc = engine.ExitFunc

// ErrClosed is returned when input is parsed on a session that has already
// been closed.
var ErrClosed = engine.ErrClosed

// Engine is one active menu session for one actor. Construct it with Open;
// afterwards ParseInput is the sole runtime entry point and Close the
// explicit termination, both safe to call from the transport layer that
// serializes this actor's input.
type Engine struct {
	core  *engine.Engine
	actor domain.Actor
}

// Option defines a functional option for configuring a session.
type Option func(*config)

type config struct {
	startNode   string
	startInput  string
	startKwargs domain.Map

	transport ports.Transport
	binder    ports.CommandBinder
	mergeMode ports.MergeMode
	priority  int

	autoQuit bool
	autoLook bool
	autoHelp bool
	debug    bool

	store  ports.SessionStore
	menuID string

	values      domain.Map
	exitHook    ExitFunc
	exitCommand string

	registry *session.Registry
	logger   *slog.Logger
	promReg  prometheus.Registerer
}

// WithStartNode sets the starting node name (default "start").
func WithStartNode(name string) Option {
	return func(c *config) { c.startNode = name }
}

// WithStartInput seeds the start node with an input line and kwargs as if
// entered on a fictional previous node.
func WithStartInput(raw string, kwargs domain.Map) Option {
	return func(c *config) { c.startInput, c.startKwargs = raw, kwargs }
}

// WithTransport sets the output transport. Without one the session runs
// headless and display text is dropped.
func WithTransport(t ports.Transport) Option {
	return func(c *config) { c.transport = t }
}

// WithBinder hooks the session into the external command-dispatch framework.
func WithBinder(b ports.CommandBinder, mode ports.MergeMode, priority int) Option {
	return func(c *config) { c.binder, c.mergeMode, c.priority = b, mode, priority }
}

// WithAutoQuit toggles the built-in quit/q/exit command (default on).
func WithAutoQuit(on bool) Option {
	return func(c *config) { c.autoQuit = on }
}

// WithAutoLook toggles the built-in look/l command (default on).
func WithAutoLook(on bool) Option {
	return func(c *config) { c.autoLook = on }
}

// WithAutoHelp toggles the built-in help/h command (default on).
func WithAutoHelp(on bool) Option {
	return func(c *config) { c.autoHelp = on }
}

// WithDebug enables the menudebug introspection command. Debug sessions are
// never durable.
func WithDebug(on bool) Option {
	return func(c *config) { c.debug = on }
}

// WithStore makes the session durable: its restart state is saved under the
// actor's key after every executed node. menuID names the menu source so
// Resume can rebuild it.
func WithStore(store ports.SessionStore, menuID string) Option {
	return func(c *config) { c.store, c.menuID = store, menuID }
}

// WithValues installs caller-supplied session variables, readable by nodes
// through Engine.Value. Reserved keys are rejected at construction.
func WithValues(values domain.Map) Option {
	return func(c *config) { c.values = values }
}

// WithExitHook sets a callback run after the session closed normally. It
// replaces the default exit command.
func WithExitHook(hook ExitFunc) Option {
	return func(c *config) { c.exitHook = hook }
}

// WithExitCommand sets the command line executed through the binder after a
// normal close (default "look"). An empty string disables it.
func WithExitCommand(cmdline string) Option {
	return func(c *config) { c.exitCommand = cmdline }
}

// WithRegistry attaches the session to a registry enforcing the
// one-session-per-actor invariant.
func WithRegistry(r *session.Registry) Option {
	return func(c *config) { c.registry = r }
}

// WithLogger sets a structured logger for engine events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithMetrics registers the engine's Prometheus collectors with reg and
// instruments this session.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *config) { c.promReg = reg }
}

// Open resolves a menu source, builds a session for the actor and runs the
// start node. The source may be a map of node functions (mixed shapes
// allowed, names starting with "_" are skipped), or a compiled
// template.Menu.
//
// Configuration problems (missing start node, reserved-key collisions, bad
// callable shapes) fail here, before any node executes.
func Open(actor domain.Actor, source any, opts ...Option) (*Engine, error) {
	cfg := config{
		startNode:   "start",
		autoQuit:    true,
		autoLook:    true,
		autoHelp:    true,
		exitCommand: "look",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	tree, err := engine.Resolve(source)
	if err != nil {
		return nil, err
	}

	logger := cfg.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	var m *metrics.Metrics
	if cfg.promReg != nil {
		m = metrics.New(cfg.promReg)
	}

	store := cfg.store
	if cfg.debug {
		// debug sessions never persist
		store = nil
	}

	eng := &Engine{actor: actor}

	core, err := engine.New(engine.Config{
		Actor:       actor,
		Tree:        tree,
		StartNode:   cfg.startNode,
		Transport:   cfg.transport,
		Binder:      cfg.binder,
		MergeMode:   cfg.mergeMode,
		Priority:    cfg.priority,
		AutoQuit:    cfg.autoQuit,
		AutoLook:    cfg.autoLook,
		AutoHelp:    cfg.autoHelp,
		Debug:       cfg.debug,
		Store:       store,
		MenuID:      cfg.menuID,
		Values:      cfg.values,
		ExitHook:    cfg.exitHook,
		ExitCommand: cfg.exitCommand,
		Logger:      logger,
		Metrics:     m,
		AfterClose: func() {
			if cfg.registry != nil {
				cfg.registry.Detach(actor.Key(), eng)
			}
		},
	})
	if err != nil {
		return nil, err
	}
	eng.core = core

	// replace any previous session for this actor before the first node runs
	if cfg.registry != nil {
		cfg.registry.Attach(actor.Key(), eng)
	}

	if err := core.Start(cfg.startInput, cfg.startKwargs); err != nil {
		// a session that never started must not occupy the actor's slot or
		// keep the command binder attached
		core.CloseSilently()
		return nil, err
	}
	return eng, nil
}

// Resume reconstructs a durable session from its stored record. sources maps
// menu IDs to the same menu sources passed to Open; the record's last node is
// re-run with its stored input and kwargs.
func Resume(ctx context.Context, actor domain.Actor, store ports.SessionStore, sources map[string]any, opts ...Option) (*Engine, error) {
	rec, err := store.Load(ctx, actor.Key())
	if err != nil {
		return nil, fmt.Errorf("failed to load session record: %w", err)
	}
	source, ok := sources[rec.MenuID]
	if !ok {
		return nil, domain.Configf("no menu source registered for menu ID %q", rec.MenuID)
	}

	resumed := append([]Option{
		WithStore(store, rec.MenuID),
		WithAutoQuit(rec.AutoQuit),
		WithAutoLook(rec.AutoLook),
		WithAutoHelp(rec.AutoHelp),
	}, opts...)
	resumed = append(resumed,
		WithStartNode(rec.LastNode),
		WithStartInput(rec.LastInput, rec.LastKwargs),
	)
	return Open(actor, source, resumed...)
}

// ParseInput resolves one raw input line against the current node.
func (e *Engine) ParseInput(raw string) error { return e.core.ParseInput(raw) }

// Node returns the name of the currently displayed node.
func (e *Engine) Node() string { return e.core.Node() }

// Closed reports whether the session has been torn down.
func (e *Engine) Closed() bool { return e.core.Closed() }

// Value returns a session value installed with WithValues.
func (e *Engine) Value(key string) (any, bool) { return e.core.Value(key) }

// Close terminates the session and runs the exit hook. Idempotent.
func (e *Engine) Close() error { return e.core.Close() }

// CloseSilently terminates the session without the exit hook; the session
// registry uses it when a new session replaces this one.
func (e *Engine) CloseSilently() error { return e.core.CloseSilently() }

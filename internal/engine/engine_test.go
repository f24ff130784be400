package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalierhq/espalier/pkg/adapters/memory"
	"github.com/espalierhq/espalier/pkg/domain"
	"github.com/espalierhq/espalier/pkg/ports"
)

var actor = domain.ActorKey("tester")

// recorder captures everything the engine sends.
type recorder struct {
	sent []string
}

func (r *recorder) Send(_ domain.Actor, text string) error {
	r.sent = append(r.sent, text)
	return nil
}

func (r *recorder) last() string {
	if len(r.sent) == 0 {
		return ""
	}
	return r.sent[len(r.sent)-1]
}

func (r *recorder) all() string { return strings.Join(r.sent, "\n---\n") }

// staticNode builds a node serving fixed text and options.
func staticNode(text string, options ...domain.Option) domain.Node {
	return func(domain.Actor, string, domain.Map) (domain.Output, error) {
		return domain.Output{Text: text, Options: options}, nil
	}
}

func newEngine(t *testing.T, cfg Config) (*Engine, *recorder) {
	t.Helper()
	out := &recorder{}
	if cfg.Transport == nil {
		cfg.Transport = out
	} else {
		out = cfg.Transport.(*recorder)
	}
	cfg.Actor = actor
	cfg.AutoQuit = true
	cfg.AutoLook = true
	cfg.AutoHelp = true

	eng, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, eng.Start("", nil))
	return eng, out
}

func twoNodeTree() map[string]domain.Node {
	return map[string]domain.Node{
		"start": staticNode("At the start.",
			domain.Option{Keys: []string{"onward", "o"}, Desc: "Go on", Goto: domain.To("end")},
		),
		"end": staticNode("The end."),
	}
}

func TestStart_DisplaysStartNode(t *testing.T) {
	_, out := newEngine(t, Config{Tree: twoNodeTree()})

	assert.Contains(t, out.last(), "At the start.")
	assert.Contains(t, out.last(), " onward: Go on")
}

func TestStart_MissingStartNode(t *testing.T) {
	_, err := New(Config{
		Actor: actor,
		Tree:  map[string]domain.Node{"other": staticNode("x")},
	})
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestStart_ReservedValueKey(t *testing.T) {
	_, err := New(Config{
		Actor:  actor,
		Tree:   twoNodeTree(),
		Values: domain.Map{domain.KeyCurrentNode: "x"},
	})
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestParseInput_OptionMatch(t *testing.T) {
	eng, out := newEngine(t, Config{Tree: twoNodeTree()})

	require.NoError(t, eng.ParseInput("onward"))
	assert.Contains(t, out.last(), "The end.")
	assert.True(t, eng.Closed(), "terminal node ends the session")
}

func TestParseInput_AliasAndCase(t *testing.T) {
	eng, out := newEngine(t, Config{Tree: twoNodeTree()})

	require.NoError(t, eng.ParseInput("  O  "))
	assert.Contains(t, out.last(), "The end.")
}

func TestParseInput_DecoratedInputMatches(t *testing.T) {
	eng, out := newEngine(t, Config{Tree: twoNodeTree()})

	require.NoError(t, eng.ParseInput("\x1b[31monward\x1b[0m"))
	assert.Contains(t, out.last(), "The end.")
}

func TestParseInput_NoMatchMessage(t *testing.T) {
	eng, out := newEngine(t, Config{Tree: twoNodeTree()})

	require.NoError(t, eng.ParseInput("nonsense"))
	assert.Equal(t, msgNoMatch, out.last())
	assert.Equal(t, "start", eng.Node())
}

func TestParseInput_DefaultOption(t *testing.T) {
	var got string
	tree := map[string]domain.Node{
		"start": staticNode("Say anything.",
			domain.Option{Keys: []string{"never"}, Goto: domain.To("start")},
			domain.Option{
				Keys: []string{domain.DefaultKey},
				Goto: domain.Call(func(_ domain.Actor, raw string, _ domain.Map) (domain.Target, error) {
					got = raw
					return domain.Target{Node: "echo"}, nil
				}),
			},
		),
		"echo": staticNode("Echoed."),
	}
	eng, out := newEngine(t, Config{Tree: tree})

	require.NoError(t, eng.ParseInput("free text"))
	assert.Equal(t, "free text", got)
	assert.Contains(t, out.last(), "Echoed.")
	assert.True(t, eng.Closed())
}

func TestParseInput_Builtins(t *testing.T) {
	eng, out := newEngine(t, Config{Tree: twoNodeTree()})

	displayed := out.last()
	require.NoError(t, eng.ParseInput("look"))
	assert.Equal(t, displayed, out.last(), "look re-sends the node display")

	require.NoError(t, eng.ParseInput("h"))
	assert.Equal(t, helpFull, out.last())

	require.NoError(t, eng.ParseInput("quit"))
	assert.True(t, eng.Closed())
}

func TestParseInput_OptionShadowsBuiltin(t *testing.T) {
	tree := map[string]domain.Node{
		"start": staticNode("Trick node.",
			domain.Option{Keys: []string{"quit"}, Desc: "Not really", Goto: domain.To("trap")},
			domain.Option{Keys: []string{"stay"}, Goto: domain.To("start")},
		),
		"trap": staticNode("Gotcha.",
			domain.Option{Keys: []string{"back"}, Goto: domain.To("start")},
		),
	}
	eng, out := newEngine(t, Config{Tree: tree})

	require.NoError(t, eng.ParseInput("quit"))
	assert.False(t, eng.Closed(), "explicit option wins over the built-in")
	assert.Contains(t, out.last(), "Gotcha.")
}

func TestParseInput_BuiltinsDisabled(t *testing.T) {
	out := &recorder{}
	eng, err := New(Config{
		Actor:     actor,
		Tree:      twoNodeTree(),
		Transport: out,
	})
	require.NoError(t, err)
	require.NoError(t, eng.Start("", nil))

	require.NoError(t, eng.ParseInput("quit"))
	assert.False(t, eng.Closed())
	assert.Equal(t, msgNoMatch, out.last())
}

func TestParseInput_AfterCloseReturnsErrClosed(t *testing.T) {
	eng, _ := newEngine(t, Config{Tree: twoNodeTree()})

	require.NoError(t, eng.Close())
	assert.ErrorIs(t, eng.ParseInput("onward"), ErrClosed)
}

func TestClose_Idempotent(t *testing.T) {
	closed := 0
	eng, _ := newEngine(t, Config{
		Tree:     twoNodeTree(),
		ExitHook: func(domain.Actor) { closed++ },
	})

	require.NoError(t, eng.Close())
	require.NoError(t, eng.Close())
	require.NoError(t, eng.CloseSilently())
	assert.Equal(t, 1, closed)
}

func TestCloseSilently_SkipsExitHook(t *testing.T) {
	closed := 0
	eng, _ := newEngine(t, Config{
		Tree:     twoNodeTree(),
		ExitHook: func(domain.Actor) { closed++ },
	})

	require.NoError(t, eng.CloseSilently())
	assert.Equal(t, 0, closed)
}

func TestExec_ResultOverridesGoto(t *testing.T) {
	tree := map[string]domain.Node{
		"start": staticNode("Choose.",
			domain.Option{
				Keys: []string{"go"},
				Goto: domain.To("planned"),
				Exec: domain.Call(func(domain.Actor) (domain.Target, error) {
					return domain.Target{Node: "hijacked"}, nil
				}),
			},
		),
		"planned":  staticNode("Planned."),
		"hijacked": staticNode("Hijacked."),
	}
	eng, out := newEngine(t, Config{Tree: tree})

	require.NoError(t, eng.ParseInput("go"))
	assert.Contains(t, out.last(), "Hijacked.")
	assert.NotContains(t, out.all(), "Planned.")
}

func TestExec_SideEffectKeepsGoto(t *testing.T) {
	ran := false
	tree := map[string]domain.Node{
		"start": staticNode("Choose.",
			domain.Option{
				Keys: []string{"go"},
				Goto: domain.To("planned"),
				Exec: domain.Call(func(domain.Actor) error {
					ran = true
					return nil
				}),
			},
		),
		"planned": staticNode("Planned."),
	}
	eng, out := newEngine(t, Config{Tree: tree})

	require.NoError(t, eng.ParseInput("go"))
	assert.True(t, ran)
	assert.Contains(t, out.last(), "Planned.")
}

func TestExec_NodeNameRunsInPlace(t *testing.T) {
	sideEffects := 0
	tree := map[string]domain.Node{
		"start": staticNode("Choose.",
			domain.Option{
				Keys: []string{"go"},
				Goto: domain.To("planned"),
				Exec: domain.To("effect"),
			},
		),
		"effect": func(domain.Actor, string, domain.Map) (domain.Output, error) {
			sideEffects++
			return domain.Output{Text: "unseen"}, nil
		},
		"planned": staticNode("Planned."),
	}
	eng, out := newEngine(t, Config{Tree: tree})

	require.NoError(t, eng.ParseInput("go"))
	assert.Equal(t, 1, sideEffects)
	assert.Contains(t, out.last(), "Planned.")
	assert.NotContains(t, out.all(), "unseen")
}

func TestGoto_CallableEmptyTargetRerunsNode(t *testing.T) {
	visits := 0
	tree := map[string]domain.Node{
		"start": func(domain.Actor, string, domain.Map) (domain.Output, error) {
			visits++
			return domain.Output{
				Text: "Counted.",
				Options: []domain.Option{{
					Keys: []string{"again"},
					Goto: domain.Call(func(domain.Actor) (domain.Target, error) {
						return domain.Target{}, nil
					}),
				}},
			}, nil
		},
	}
	eng, _ := newEngine(t, Config{Tree: tree})

	require.NoError(t, eng.ParseInput("again"))
	assert.Equal(t, "start", eng.Node())
	assert.Equal(t, 2, visits)
}

func TestGoto_KwargsReachNextNode(t *testing.T) {
	var got domain.Map
	tree := map[string]domain.Node{
		"start": staticNode("Choose.",
			domain.Option{Keys: []string{"go"}, Goto: domain.ToKw("sink", domain.Map{"flavor": "plum"})},
		),
		"sink": func(_ domain.Actor, _ string, kw domain.Map) (domain.Output, error) {
			got = kw
			return domain.Output{Text: "Sunk."}, nil
		},
	}
	eng, _ := newEngine(t, Config{Tree: tree})

	require.NoError(t, eng.ParseInput("go"))
	assert.Equal(t, "plum", got["flavor"])
	assert.Equal(t, "sink", got[domain.KeyCurrentNode])
}

func TestGoto_PlainTransitionStartsWithEmptyKwargs(t *testing.T) {
	var got domain.Map
	tree := map[string]domain.Node{
		"start": staticNode("Choose.",
			domain.Option{Keys: []string{"go"}, Goto: domain.ToKw("mid", domain.Map{"stash": 1})},
		),
		"mid": staticNode("Middle.",
			domain.Option{Keys: []string{"on"}, Goto: domain.To("sink")},
		),
		"sink": func(_ domain.Actor, _ string, kw domain.Map) (domain.Output, error) {
			got = kw
			return domain.Output{Text: "Sunk."}, nil
		},
	}
	eng, _ := newEngine(t, Config{Tree: tree})

	require.NoError(t, eng.ParseInput("go"))
	require.NoError(t, eng.ParseInput("on"))
	assert.NotContains(t, got, "stash", "a name-only goto does not carry the previous bag")
	assert.Equal(t, "sink", got[domain.KeyCurrentNode])
}

func TestGoto_TargetKwargsOverride(t *testing.T) {
	var got domain.Map
	tree := map[string]domain.Node{
		"start": staticNode("Choose.",
			domain.Option{
				Keys: []string{"go"},
				Goto: domain.CallKw(func(_ domain.Actor, _ string, kw domain.Map) (domain.Target, error) {
					return domain.Target{Node: "sink", Kwargs: domain.Map{"flavor": "quince"}}, nil
				}, domain.Map{"flavor": "plum"}),
			},
		),
		"sink": func(_ domain.Actor, _ string, kw domain.Map) (domain.Output, error) {
			got = kw
			return domain.Output{Text: "Sunk."}, nil
		},
	}
	eng, _ := newEngine(t, Config{Tree: tree})

	require.NoError(t, eng.ParseInput("go"))
	assert.Equal(t, "quince", got["flavor"])
}

func TestAbort_ShowsMessageAndStays(t *testing.T) {
	tree := map[string]domain.Node{
		"start": staticNode("Guarded.",
			domain.Option{
				Keys: []string{"enter"},
				Goto: domain.Call(func(domain.Actor) (domain.Target, error) {
					return domain.Target{}, domain.Abort("You shall not pass.")
				}),
			},
		),
	}
	eng, out := newEngine(t, Config{Tree: tree})

	require.NoError(t, eng.ParseInput("enter"), "abort is control flow, not an error")
	assert.Equal(t, "You shall not pass.", out.last())
	assert.Equal(t, "start", eng.Node())
	assert.False(t, eng.Closed())
}

func TestNodeError_StaysOnPreviousNode(t *testing.T) {
	tree := map[string]domain.Node{
		"start": staticNode("Fine here.",
			domain.Option{Keys: []string{"go"}, Goto: domain.To("broken")},
		),
		"broken": func(domain.Actor, string, domain.Map) (domain.Output, error) {
			return domain.Output{}, errors.New("database on fire")
		},
	}
	eng, out := newEngine(t, Config{Tree: tree})

	err := eng.ParseInput("go")
	var nodeErr *domain.NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "broken", nodeErr.Node)

	// the actor sees the generic message, never the underlying error
	assert.Contains(t, out.last(), "Error in menu node")
	assert.NotContains(t, out.last(), "database on fire")

	// session still usable on the previous node
	assert.Equal(t, "start", eng.Node())
	require.NoError(t, eng.ParseInput("look"))
}

func TestMissingNode_ReportsAndStays(t *testing.T) {
	tree := map[string]domain.Node{
		"start": staticNode("Fine here.",
			domain.Option{Keys: []string{"go"}, Goto: domain.To("nowhere")},
		),
	}
	eng, out := newEngine(t, Config{Tree: tree})

	err := eng.ParseInput("go")
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, out.last(), "not implemented")
	assert.Equal(t, "start", eng.Node())
}

func TestBuildOptions_DoubleDefaultRejected(t *testing.T) {
	tree := map[string]domain.Node{
		"start": staticNode("Two catch-alls.",
			domain.Option{Keys: []string{domain.DefaultKey}, Goto: domain.To("start")},
			domain.Option{Keys: []string{domain.DefaultKey}, Goto: domain.To("start")},
		),
	}
	out := &recorder{}
	eng, err := New(Config{Actor: actor, Tree: tree, Transport: out})
	require.NoError(t, err)

	err = eng.Start("", nil)
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), "more than one default")
}

func TestPositionalKeys_AssignedInOrder(t *testing.T) {
	tree := map[string]domain.Node{
		"start": staticNode("Pick a number.",
			domain.Option{Desc: "First", Goto: domain.To("one")},
			domain.Option{Desc: "Second", Goto: domain.To("two")},
		),
		"one": staticNode("One."),
		"two": staticNode("Two."),
	}
	eng, out := newEngine(t, Config{Tree: tree})
	assert.Contains(t, out.last(), " 1: First")
	assert.Contains(t, out.last(), " 2: Second")

	require.NoError(t, eng.ParseInput("2"))
	assert.Contains(t, out.last(), "Two.")
}

func TestDeterministicReplay(t *testing.T) {
	run := func() []string {
		out := &recorder{}
		eng, err := New(Config{
			Actor:     actor,
			Tree:      twoNodeTree(),
			Transport: out,
			AutoQuit:  true, AutoLook: true, AutoHelp: true,
		})
		require.NoError(t, err)
		require.NoError(t, eng.Start("", nil))
		require.NoError(t, eng.ParseInput("bogus"))
		require.NoError(t, eng.ParseInput("look"))
		require.NoError(t, eng.ParseInput("onward"))
		return out.sent
	}

	first := run()
	second := run()
	assert.Equal(t, first, second, "same script must yield the same transcript")
}

func TestHelp_NodeHelpOverridesSummary(t *testing.T) {
	tree := map[string]domain.Node{
		"start": func(domain.Actor, string, domain.Map) (domain.Output, error) {
			return domain.Output{
				Text:    "Here.",
				Help:    "Custom help entry.",
				Options: []domain.Option{{Keys: []string{"x"}, Goto: domain.To("start")}},
			}, nil
		},
	}
	eng, out := newEngine(t, Config{Tree: tree})

	require.NoError(t, eng.ParseInput("help"))
	assert.Equal(t, "Custom help entry.", out.last())
}

func TestDebugDump_OnlyWithFlag(t *testing.T) {
	eng, out := newEngine(t, Config{Tree: twoNodeTree()})
	require.NoError(t, eng.ParseInput("menudebug"))
	assert.Equal(t, msgNoMatch, out.last())

	out2 := &recorder{}
	eng2, err := New(Config{
		Actor: actor, Tree: twoNodeTree(), Transport: out2, Debug: true,
		AutoQuit: true, AutoLook: true, AutoHelp: true,
	})
	require.NoError(t, err)
	require.NoError(t, eng2.Start("", nil))
	require.NoError(t, eng2.ParseInput("menudebug"))
	assert.Contains(t, out2.last(), "MENU DEBUG")
	assert.Contains(t, out2.last(), "node: start")
	_ = eng
}

// --- binder wiring ---

type fakeBinder struct {
	attached int
	detached int
	mode     ports.MergeMode
	priority int
	executed []string
}

func (b *fakeBinder) Attach(_ domain.Actor, mode ports.MergeMode, priority int) error {
	b.attached++
	b.mode = mode
	b.priority = priority
	return nil
}

func (b *fakeBinder) Detach(domain.Actor) error {
	b.detached++
	return nil
}

func (b *fakeBinder) Execute(_ domain.Actor, cmdline string) error {
	b.executed = append(b.executed, cmdline)
	return nil
}

func TestBinder_AttachDetachAndExitCommand(t *testing.T) {
	binder := &fakeBinder{}
	eng, _ := newEngine(t, Config{
		Tree:        twoNodeTree(),
		Binder:      binder,
		Priority:    5,
		ExitCommand: "look",
	})

	assert.Equal(t, 1, binder.attached)
	assert.Equal(t, ports.MergeReplace, binder.mode)
	assert.Equal(t, 5, binder.priority)

	require.NoError(t, eng.Close())
	assert.Equal(t, 1, binder.detached)
	assert.Equal(t, []string{"look"}, binder.executed)
}

func TestBinder_ExitHookSuppressesExitCommand(t *testing.T) {
	binder := &fakeBinder{}
	hooked := false
	eng, _ := newEngine(t, Config{
		Tree:        twoNodeTree(),
		Binder:      binder,
		ExitCommand: "look",
		ExitHook:    func(domain.Actor) { hooked = true },
	})

	require.NoError(t, eng.Close())
	assert.True(t, hooked)
	assert.Empty(t, binder.executed)
}

// --- durable sessions ---

func TestDurable_SavesRecordPerTransition(t *testing.T) {
	store := memory.NewStore()
	eng, _ := newEngine(t, Config{
		Tree:   twoNodeTree(),
		Store:  store,
		MenuID: "demo",
	})

	rec, err := store.Load(context.Background(), actor.Key())
	require.NoError(t, err)
	assert.Equal(t, "demo", rec.MenuID)
	assert.Equal(t, "start", rec.LastNode)

	// reaching the terminal node closes the session and clears the record
	require.NoError(t, eng.ParseInput("onward"))
	_, err = store.Load(context.Background(), actor.Key())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestDurable_RecordDropsReservedKeys(t *testing.T) {
	store := memory.NewStore()
	tree := map[string]domain.Node{
		"start": staticNode("Choose.",
			domain.Option{Keys: []string{"go"}, Goto: domain.ToKw("sink", domain.Map{"flavor": "plum"})},
		),
		"sink": staticNode("Sunk.",
			domain.Option{Keys: []string{"stay"}, Goto: domain.To("sink")},
		),
	}
	eng, _ := newEngine(t, Config{Tree: tree, Store: store, MenuID: "demo"})

	require.NoError(t, eng.ParseInput("go"))
	rec, err := store.Load(context.Background(), actor.Key())
	require.NoError(t, err)
	assert.Equal(t, "sink", rec.LastNode)
	assert.Equal(t, "go", rec.LastInput)
	assert.Equal(t, "plum", rec.LastKwargs["flavor"])
	assert.NotContains(t, rec.LastKwargs, domain.KeyCurrentNode)
}

type failingStore struct{}

func (failingStore) Save(context.Context, string, *domain.Record) error {
	return errors.New("disk full")
}
func (failingStore) Load(context.Context, string) (*domain.Record, error) {
	return nil, domain.ErrSessionNotFound
}
func (failingStore) Delete(context.Context, string) error { return nil }

func TestDurable_SaveFailureFallsBack(t *testing.T) {
	eng, out := newEngine(t, Config{
		Tree:   twoNodeTree(),
		Store:  failingStore{},
		MenuID: "demo",
	})

	assert.Contains(t, out.all(), msgDurableFallback)
	assert.False(t, eng.durable, "session demoted to non-durable")

	// still dispatches normally
	require.NoError(t, eng.ParseInput("onward"))
	assert.True(t, eng.Closed())
}

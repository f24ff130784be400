package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/espalierhq/espalier/internal/invoke"
	"github.com/espalierhq/espalier/internal/render"
	"github.com/espalierhq/espalier/pkg/domain"
)

// resolveDirective normalizes a goto/exec directive into a resolvedStep,
// adapting the callable eagerly so a bad signature surfaces before the
// directive ever runs.
func resolveDirective(d domain.Directive) (resolvedStep, error) {
	if d.IsZero() {
		return resolvedStep{}, nil
	}
	step := resolvedStep{node: d.Node(), kwargs: d.Kwargs()}
	if fn := d.Func(); fn != nil {
		adapted, err := invoke.Goto(fn)
		if err != nil {
			return resolvedStep{}, err
		}
		step.fn = adapted
	}
	return step, nil
}

// Goto resolves a transition step and executes the resulting node.
//
// When the step carries a callable it is invoked first; an empty Target from
// it re-runs the current node. The engine's state fields are assigned only
// after the node function has computed successfully, so a failing node leaves
// the session on the previously displayed node.
func (e *Engine) Goto(step resolvedStep, raw string, kwargs domain.Map) error {
	if e.quitting {
		return ErrClosed
	}

	// only the step's own kwargs travel; a plain transition starts the next
	// node with an empty bag rather than leaking the previous node's state
	kw := kwargs
	if step.kwargs != nil {
		kw = step.kwargs
	}

	nodename := step.node
	if step.fn != nil {
		target, err := e.invokeCallable(step.fn, raw, kw)
		if err != nil {
			return err
		}
		nodename = target.Node
		if target.Kwargs != nil {
			kw = target.Kwargs
		}
		if nodename == "" {
			// no target returned, revisit the current node
			nodename = e.nodename
		}
	}

	output, err := e.executeNode(nodename, raw, kw)
	if err != nil {
		return err
	}

	display, lookup, defaulted, err := e.buildOptions(nodename, output.Options)
	if err != nil {
		e.send(fmt.Sprintf(msgNodeError, nodename))
		e.logger.Error("invalid option table", "node", nodename, "error", err)
		return err
	}

	if e.durable {
		e.saveRecord(nodename, raw, kw)
	}

	e.nodename = nodename
	e.kwargs = kw
	e.options = lookup
	e.defaulted = defaulted
	e.nodeText = render.Node(output.Text, display, e.width())
	e.helpText = e.helpFor(output)

	e.displayNode()
	if output.Terminal() {
		return e.close(true)
	}
	return nil
}

// executeNode looks up and invokes a node function, reporting failures to the
// actor with a generic message before returning the wrapped error.
func (e *Engine) executeNode(nodename, raw string, kw domain.Map) (domain.Output, error) {
	node, ok := e.cfg.Tree[nodename]
	if !ok {
		e.send(fmt.Sprintf(msgNodeNotImplemented, nodename))
		return domain.Output{}, domain.Configf("node %q not in menu tree", nodename)
	}

	// thread the node's own name into its kwargs; the template compiler's
	// generic node depends on this
	kw = kw.Clone()
	kw[domain.KeyCurrentNode] = nodename

	output, err := node(e.cfg.Actor, raw, kw)
	if err != nil {
		if _, ok := domain.IsAbort(err); ok {
			return domain.Output{}, err
		}
		e.send(fmt.Sprintf(msgNodeError, nodename))
		e.logger.Error("menu node failed", "node", nodename, "input", raw, "error", err)
		e.cfg.Metrics.ObserveNodeError()
		return domain.Output{}, &domain.NodeError{Node: nodename, Input: raw, Err: err}
	}
	return output, nil
}

// invokeCallable runs an adapted goto/exec callable. Abort signals pass
// through untouched; real errors are reported and wrapped.
func (e *Engine) invokeCallable(fn domain.GotoFunc, raw string, kw domain.Map) (domain.Target, error) {
	target, err := fn(e.cfg.Actor, raw, kw)
	if err != nil {
		if _, ok := domain.IsAbort(err); ok {
			return domain.Target{}, err
		}
		e.send(fmt.Sprintf(msgNodeError, e.nodename))
		e.logger.Error("menu callback failed", "node", e.nodename, "input", raw, "error", err)
		e.cfg.Metrics.ObserveNodeError()
		return domain.Target{}, &domain.NodeError{Node: e.nodename, Input: raw, Err: err}
	}
	return target, nil
}

// buildOptions normalizes the option records of a node into the display list,
// the alias lookup table and the optional default entry. Aliases are matched
// case-insensitively with decoration stripped. At most one option may carry
// the default alias.
func (e *Engine) buildOptions(nodename string, options []domain.Option) ([]render.OptionLine, map[string]*optionEntry, *optionEntry, error) {
	var display []render.OptionLine
	lookup := make(map[string]*optionEntry)
	var defaulted *optionEntry

	for i, opt := range options {
		gotoStep, err := resolveDirective(opt.Goto)
		if err != nil {
			return nil, nil, nil, err
		}
		execStep, err := resolveDirective(opt.Exec)
		if err != nil {
			return nil, nil, nil, err
		}
		entry := &optionEntry{gotoStep: gotoStep, execStep: execStep}

		keys := opt.Keys
		isDefault := false
		filtered := keys[:0:0]
		for _, key := range keys {
			if key == domain.DefaultKey {
				isDefault = true
				continue
			}
			filtered = append(filtered, key)
		}
		keys = filtered

		if isDefault {
			if defaulted != nil {
				return nil, nil, nil, domain.Configf(
					"node %q declares more than one default option", nodename)
			}
			defaulted = entry
		} else if len(keys) == 0 {
			keys = []string{strconv.Itoa(i + 1)}
		}

		if len(keys) > 0 {
			display = append(display, render.OptionLine{Key: keys[0], Desc: opt.Desc})
			if entry.gotoStep.empty() && entry.execStep.empty() {
				continue
			}
			for _, key := range keys {
				token := strings.ToLower(strings.TrimSpace(render.StripDecoration(key)))
				lookup[token] = entry
			}
		}
	}
	return display, lookup, defaulted, nil
}

// helpFor picks the help text of a node output.
func (e *Engine) helpFor(output domain.Output) string {
	if output.Help != "" {
		return render.Dedent(output.Help)
	}
	if !output.Terminal() {
		if e.cfg.AutoQuit {
			return helpFull
		}
		return helpNoQuit
	}
	if e.cfg.AutoQuit {
		return helpNoOptions
	}
	return helpNoOptionsNoQuit
}

// saveRecord persists the durable restart state. A failing store demotes the
// session to non-durable with a warning instead of aborting it.
func (e *Engine) saveRecord(nodename, raw string, kw domain.Map) {
	rec := &domain.Record{
		MenuID:     e.cfg.MenuID,
		StartNode:  e.cfg.StartNode,
		LastNode:   nodename,
		LastInput:  raw,
		LastKwargs: exportableKwargs(kw),
		AutoQuit:   e.cfg.AutoQuit,
		AutoLook:   e.cfg.AutoLook,
		AutoHelp:   e.cfg.AutoHelp,
	}
	if err := e.cfg.Store.Save(context.Background(), e.cfg.Actor.Key(), rec); err != nil {
		e.durable = false
		e.logger.Warn("durable save failed, falling back to non-durable", "error", err)
		e.send(msgDurableFallback)
	}
}

// exportableKwargs drops the engine's internal threading keys from a bag
// before persisting it.
func exportableKwargs(kw domain.Map) domain.Map {
	out := make(domain.Map, len(kw))
	for k, v := range kw {
		if domain.IsReservedKey(k) {
			continue
		}
		out[k] = v
	}
	return out
}

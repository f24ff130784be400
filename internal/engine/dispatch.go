package engine

import (
	"strings"

	"github.com/espalierhq/espalier/internal/metrics"
	"github.com/espalierhq/espalier/internal/render"
	"github.com/espalierhq/espalier/pkg/domain"
)

// outcome is the result variant of one input dispatch.
type outcome int

const (
	outcomeContinue  outcome = iota // a transition ran (or state is unchanged)
	outcomeRedisplay                // a short message was shown, node unchanged
	outcomeClosed                   // the session was torn down
)

// ParseInput resolves one raw input line against the current node. It is the
// sole runtime entry point of an active session.
//
// Dispatch priority: exact option match, then the built-in look/help/quit
// commands (when enabled), then the node's default option, then the no-match
// message. An abort signal raised by any callback short-circuits into a
// one-line message with the session staying on the current node.
//
// Application errors raised by nodes or callbacks have already been reported
// to the actor with a generic message when ParseInput returns them; the
// session itself remains usable on the previously displayed node.
func (e *Engine) ParseInput(raw string) error {
	if e.quitting {
		return ErrClosed
	}

	out, err := e.dispatch(raw)
	switch {
	case err != nil:
		e.cfg.Metrics.ObserveDispatch(metrics.OutcomeError)
	case out == outcomeRedisplay:
		e.cfg.Metrics.ObserveDispatch(metrics.OutcomeRedisplay)
	case out == outcomeClosed:
		e.cfg.Metrics.ObserveDispatch(metrics.OutcomeClosed)
	default:
		e.cfg.Metrics.ObserveDispatch(metrics.OutcomeContinue)
	}
	return err
}

func (e *Engine) dispatch(raw string) (outcome, error) {
	cmd := strings.ToLower(strings.TrimSpace(render.StripDecoration(raw)))

	var err error
	switch {
	case e.options[cmd] != nil:
		// exact option match takes precedence over the built-ins
		err = e.runExecThenGoto(e.options[cmd], raw)
	case e.cfg.AutoLook && (cmd == "look" || cmd == "l"):
		e.displayNode()
		return outcomeRedisplay, nil
	case e.cfg.AutoHelp && (cmd == "help" || cmd == "h"):
		e.displayHelp()
		return outcomeRedisplay, nil
	case e.cfg.AutoQuit && (cmd == "quit" || cmd == "q" || cmd == "exit"):
		return outcomeClosed, e.close(true)
	case e.cfg.Debug && strings.HasPrefix(cmd, "menudebug"):
		e.debugDump(strings.TrimSpace(strings.TrimPrefix(cmd, "menudebug")))
		return outcomeRedisplay, nil
	case e.defaulted != nil:
		err = e.runExecThenGoto(e.defaulted, raw)
	default:
		e.send(msgNoMatch)
		return outcomeRedisplay, nil
	}

	if err != nil {
		if msg, ok := domain.IsAbort(err); ok {
			// expected control flow: show the message, stay on the node
			e.send(msg)
			return outcomeRedisplay, nil
		}
		return outcomeContinue, err
	}
	if e.quitting {
		return outcomeClosed, nil
	}
	return outcomeContinue, nil
}

// runExecThenGoto runs an option's exec step, then its goto step. An exec
// callable resolving to a non-zero Target replaces the pending goto and its
// kwargs entirely; an exec node name runs that node in place for its side
// effects only.
func (e *Engine) runExecThenGoto(entry *optionEntry, raw string) error {
	gotoStep := entry.gotoStep

	if !entry.execStep.empty() {
		replacement, err := e.runExec(entry.execStep, raw)
		if err != nil {
			return err
		}
		if !replacement.IsZero() {
			gotoStep = resolvedStep{node: replacement.Node, kwargs: replacement.Kwargs}
		}
	}

	if gotoStep.empty() {
		return nil
	}
	return e.Goto(gotoStep, raw, nil)
}

// runExec executes an exec directive in place and returns the goto
// replacement it resolved to, if any.
func (e *Engine) runExec(step resolvedStep, raw string) (domain.Target, error) {
	kw := step.kwargs

	if step.fn != nil {
		return e.invokeCallable(step.fn, raw, kw)
	}

	// a node name: look up and run the node without transitioning to it
	if _, err := e.executeNode(step.node, raw, kw); err != nil {
		return domain.Target{}, err
	}
	return domain.Target{}, nil
}

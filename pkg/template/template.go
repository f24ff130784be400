// Package template compiles the plain-text menu DSL into the node table the
// engine consumes, so menu authors need not assemble node graphs by hand.
//
// A template is a sequence of node blocks:
//
//	## NODE start
//
//	This is the text of the start node.
//
//	## OPTIONS
//
//	    # comments start the line with '#'
//	    1: Option number one -> node1
//	    back;b: start
//	    next: step_next(from=start)
//	    > yes*: node1
//	    > [0-9]+: handle_number()
//
// Each option line is one of
//
//	key[;alias...]: desc -> target
//	key[;alias...]: target
//	> glob_or_regex: target
//
// where target is a node name or a call `name(kw=value, ...)` into the
// registry of callables supplied to Parse. The `>` lines form one ordered
// fallback tried against otherwise unmatched input, glob patterns first and
// regexes second. A node without an OPTIONS section is terminal.
package template

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/espalierhq/espalier/internal/invoke"
	"github.com/espalierhq/espalier/pkg/domain"
)

const msgNoMatch = "Choose an option or try 'help'."

const (
	inputMarker   = ">"
	aliasMarker   = ";"
	sepMarker     = ":"
	descMarker    = "->"
	commentMarker = "#"
)

var (
	nodeHeaderRe = regexp.MustCompile(`(?im)^##\s*NODE\s+(\S[^\n]*?)\s*$`)
	optionsSepRe = regexp.MustCompile(`(?im)^##\s*OPTIONS\s*$`)
	callRe       = regexp.MustCompile(`^(?s)(\S+?)\((.*)\)$`)
)

// OptionInfo describes one compiled option for introspection (graph export,
// validation output). Target is the node name or `name()` call token.
type OptionInfo struct {
	Key     string
	Desc    string
	Target  string
	Pattern bool
}

type content struct {
	text    string
	options []domain.Option
	infos   []OptionInfo
}

// Menu is a compiled template: a name -> (text, options) content table
// addressed at runtime by one generic node function.
type Menu struct {
	contents map[string]*content
	order    []string
}

// Parse compiles a template string. registry maps the callable names usable
// in option targets to functions matching the goto-callable shapes. All
// structural problems (syntax, unknown callables, positional or reserved
// arguments, duplicate nodes, double defaults) are ConfigErrors quoting the
// offending fragment.
func Parse(text string, registry map[string]any) (*Menu, error) {
	menu := &Menu{contents: make(map[string]*content)}

	headers := nodeHeaderRe.FindAllStringSubmatchIndex(text, -1)
	if len(headers) == 0 {
		return nil, &domain.ConfigError{Reason: "template declares no '## NODE' blocks"}
	}

	for i, header := range headers {
		name := text[header[2]:header[3]]
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		body := text[header[1]:end]

		if _, exists := menu.contents[name]; exists {
			return nil, &domain.ConfigError{Reason: "duplicate node name", Fragment: name}
		}

		nodeText := body
		var optionsText string
		if loc := optionsSepRe.FindStringIndex(body); loc != nil {
			nodeText = body[:loc[0]]
			optionsText = body[loc[1]:]
		}

		c := &content{text: strings.Trim(nodeText, "\n")}
		if err := parseOptions(c, name, optionsText, registry); err != nil {
			return nil, err
		}
		menu.contents[name] = c
		menu.order = append(menu.order, name)
	}

	return menu, nil
}

// MenuTree returns the node table backing this menu. Every entry is the same
// generic function, parameterized by the current-node kwarg the engine
// threads into each visit.
func (m *Menu) MenuTree() map[string]domain.Node {
	tree := make(map[string]domain.Node, len(m.contents))
	for name := range m.contents {
		tree[name] = m.node
	}
	return tree
}

// Nodes returns the node names in declaration order.
func (m *Menu) Nodes() []string {
	return append([]string(nil), m.order...)
}

// Options returns the compiled option descriptions of a node.
func (m *Menu) Options(node string) []OptionInfo {
	if c, ok := m.contents[node]; ok {
		return append([]OptionInfo(nil), c.infos...)
	}
	return nil
}

// node is the single generic node function behind every template node. It
// reads its own name from the threaded kwargs and serves the static content.
func (m *Menu) node(_ domain.Actor, _ string, kw domain.Map) (domain.Output, error) {
	name, _ := kw[domain.KeyCurrentNode].(string)
	c, ok := m.contents[name]
	if !ok {
		return domain.Output{}, domain.Configf("template has no content for node %q", name)
	}
	return domain.Output{Text: c.text, Options: c.options}, nil
}

// patternRule is one `>`-line of a node: a pattern tried first as a glob and
// then as a regex, mapping to a target.
type patternRule struct {
	glob   string
	rx     *regexp.Regexp
	target *targetSpec
}

func parseOptions(c *content, nodename, optionsText string, registry map[string]any) error {
	var rules []patternRule
	sawDefault := false

	for _, line := range strings.Split(optionsText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, commentMarker) || !strings.Contains(line, sepMarker) {
			continue
		}

		keyPart, rest, _ := strings.Cut(line, sepMarker)
		keyPart = strings.TrimSpace(keyPart)
		rest = strings.TrimSpace(rest)

		desc := ""
		targetToken := rest
		if before, after, found := strings.Cut(rest, descMarker); found {
			desc = strings.TrimSpace(before)
			targetToken = strings.TrimSpace(after)
		}

		target, err := parseTarget(targetToken, registry)
		if err != nil {
			return err
		}

		if strings.HasPrefix(keyPart, inputMarker) {
			pattern := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(keyPart, inputMarker)))
			rule := patternRule{glob: pattern, target: target}
			if rx, rxErr := regexp.Compile(`(?i)^(?:` + pattern + `)`); rxErr == nil && pattern != "" {
				rule.rx = rx
			}
			rules = append(rules, rule)
			continue
		}

		keys := splitAliases(keyPart, len(c.options)+1)
		for _, key := range keys {
			if key == domain.DefaultKey {
				if sawDefault {
					return &domain.ConfigError{
						Reason:   "node " + nodename + " declares more than one default option",
						Fragment: line,
					}
				}
				sawDefault = true
			}
		}

		c.options = append(c.options, domain.Option{
			Keys: keys,
			Desc: desc,
			Goto: domain.Call(target.gotoFunc()),
		})
		c.infos = append(c.infos, OptionInfo{Key: keys[0], Desc: desc, Target: targetToken})
	}

	if len(rules) > 0 {
		if sawDefault {
			return &domain.ConfigError{
				Reason: "node " + nodename + " mixes '>' patterns with an explicit default option",
			}
		}
		c.options = append(c.options, domain.Option{
			Keys: []string{domain.DefaultKey},
			Goto: domain.Call(patternGoto(rules)),
		})
		for _, rule := range rules {
			c.infos = append(c.infos, OptionInfo{
				Key:     inputMarker + " " + rule.glob,
				Target:  rule.target.token,
				Pattern: true,
			})
		}
	}
	return nil
}

func splitAliases(keyPart string, position int) []string {
	var keys []string
	for _, key := range strings.Split(keyPart, aliasMarker) {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		keys = []string{strconv.Itoa(position)}
	}
	return keys
}

// patternGoto builds the goto-callable of a node's synthesized default
// option: it tries every pattern as a glob across all rules, then as a regex
// across all rules, in declaration order, and aborts dispatch when nothing
// matches so the actor sees a no-match message instead of an engine error.
func patternGoto(rules []patternRule) domain.GotoFunc {
	return func(actor domain.Actor, raw string, kw domain.Map) (domain.Target, error) {
		input := strings.ToLower(strings.Trim(raw, "\n"))

		for _, rule := range rules {
			if ok, err := path.Match(rule.glob, input); err == nil && ok {
				return rule.target.resolve(actor, raw, kw)
			}
		}
		for _, rule := range rules {
			if rule.rx != nil && rule.rx.MatchString(input) {
				return rule.target.resolve(actor, raw, kw)
			}
		}
		return domain.Target{}, domain.Abort(msgNoMatch)
	}
}

// targetSpec is the compiled right-hand side of an option line: either a
// plain node name or a call into the registry with literal kwargs.
type targetSpec struct {
	token string
	node  string
	fn    domain.GotoFunc
	args  domain.Map
}

func parseTarget(token string, registry map[string]any) (*targetSpec, error) {
	match := callRe.FindStringSubmatch(token)
	if match == nil {
		return &targetSpec{token: token, node: token}, nil
	}

	name, rawArgs := match[1], strings.TrimSpace(match[2])
	fn, ok := registry[name]
	if !ok {
		return nil, &domain.ConfigError{
			Reason:   "callable " + name + " is not in the template registry",
			Fragment: token,
		}
	}
	adapted, err := invoke.Goto(fn)
	if err != nil {
		return nil, &domain.ConfigError{
			Reason:   "callable " + name + ": " + err.Error(),
			Fragment: token,
		}
	}

	args := domain.Map{}
	if rawArgs != "" {
		for _, arg := range strings.Split(rawArgs, ",") {
			arg = strings.TrimSpace(arg)
			if arg == "" {
				continue
			}
			key, value, found := strings.Cut(arg, "=")
			if !found {
				return nil, &domain.ConfigError{
					Reason:   "callable " + name + " has a positional argument; only keyword arguments are allowed",
					Fragment: arg,
				}
			}
			key = strings.TrimSpace(key)
			if domain.IsReservedKey(key) {
				return nil, &domain.ConfigError{
					Reason:   "argument key " + key + " is reserved for internal use",
					Fragment: arg,
				}
			}
			args[key] = parseLiteral(strings.TrimSpace(value))
		}
	}

	return &targetSpec{token: token, fn: adapted, args: args}, nil
}

// gotoFunc wraps the target for a regular (non-pattern) option.
func (t *targetSpec) gotoFunc() domain.GotoFunc {
	return func(actor domain.Actor, raw string, kw domain.Map) (domain.Target, error) {
		return t.resolve(actor, raw, kw)
	}
}

// resolve produces the transition target: the plain node name, or whatever
// the registry callable returns. A zero Target re-runs the current node.
func (t *targetSpec) resolve(actor domain.Actor, raw string, kw domain.Map) (domain.Target, error) {
	if t.fn == nil {
		return domain.Target{Node: t.node}, nil
	}
	merged := kw.Merge(t.args)
	target, err := t.fn(actor, raw, merged)
	if err != nil {
		return domain.Target{}, err
	}
	if !target.IsZero() && target.Kwargs == nil {
		target.Kwargs = merged
	}
	return target, nil
}

// Package validator checks compiled menus for structural problems the
// compiler cannot see: dead links and unreachable nodes.
package validator

import (
	"fmt"
	"strings"

	"github.com/espalierhq/espalier/pkg/template"
)

// ValidateMenu crawls the menu from startNode and reports options pointing
// at missing nodes and nodes no option chain can reach. Callable targets are
// resolved at runtime and cannot be followed statically; they are skipped.
func ValidateMenu(menu *template.Menu, startNode string) error {
	nodes := menu.Nodes()
	exists := make(map[string]bool, len(nodes))
	for _, name := range nodes {
		exists[name] = true
	}
	if !exists[startNode] {
		return fmt.Errorf("start node %q not found", startNode)
	}

	var errors []string
	hasCallables := false

	visited := make(map[string]bool)
	queue := []string{startNode}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		for _, opt := range menu.Options(current) {
			if strings.HasSuffix(opt.Target, ")") {
				// runtime-resolved callable
				hasCallables = true
				continue
			}
			if !exists[opt.Target] {
				errors = append(errors, fmt.Sprintf("node '%s' option '%s' points to missing node '%s'", current, opt.Key, opt.Target))
				continue
			}
			if !visited[opt.Target] {
				queue = append(queue, opt.Target)
			}
		}
	}

	// callables can reach any node, so the crawl is only complete without them
	if !hasCallables {
		for _, name := range nodes {
			if !visited[name] {
				errors = append(errors, fmt.Sprintf("node '%s' is unreachable from '%s'", name, startNode))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
	}
	return nil
}

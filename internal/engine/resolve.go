package engine

import (
	"strings"

	"github.com/espalierhq/espalier/internal/invoke"
	"github.com/espalierhq/espalier/pkg/domain"
)

// TreeSource is implemented by menu sources that can hand out a ready-made
// node table, such as a compiled template.
type TreeSource interface {
	MenuTree() map[string]domain.Node
}

// Resolve normalizes a menu source into the name -> node-function table
// driving a session.
//
// Accepted sources: a map of canonical node functions (passed through), a
// TreeSource, or a map[string]any of mixed-shape callables from which names
// starting with "_" are dropped and every remaining value is adapted.
func Resolve(source any) (map[string]domain.Node, error) {
	switch src := source.(type) {
	case map[string]domain.Node:
		return src, nil
	case TreeSource:
		return src.MenuTree(), nil
	case map[string]any:
		tree := make(map[string]domain.Node, len(src))
		for name, fn := range src {
			if strings.HasPrefix(name, "_") {
				continue
			}
			node, err := invoke.Node(fn)
			if err != nil {
				return nil, domain.Configf("menu node %q: %v", name, err)
			}
			tree[name] = node
		}
		return tree, nil
	}
	return nil, domain.Configf("unsupported menu source type %T", source)
}

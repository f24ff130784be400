package domain

// DefaultKey marks an option as the node's catch-all. An option carrying this
// alias is run when no other alias matches the user input. It is excluded
// from the displayed option list and at most one may exist per node.
const DefaultKey = "_default"

// Reserved kwarg keys used by the engine and the template compiler to thread
// internal state between dispatch steps. They are forbidden in user-supplied
// kwargs (template call arguments, start kwargs, session values).
const (
	// KeyCurrentNode carries the name of the node being executed. The
	// template compiler's generic node reads it to look itself up in the
	// compiled content table.
	KeyCurrentNode = "menu_current_node"

	// KeyGoto carries a raw goto target through generated directives.
	KeyGoto = "menu_goto"

	// KeyGotoMap carries the pattern->target fallback map of a generated
	// default option.
	KeyGotoMap = "menu_goto_map"

	// KeyRegistry carries the name->callable registry of a compiled menu.
	KeyRegistry = "menu_registry"
)

// ReservedKeys lists every kwarg key claimed by the engine internals.
var ReservedKeys = []string{KeyCurrentNode, KeyGoto, KeyGotoMap, KeyRegistry}

// IsReservedKey reports whether key is claimed by the engine internals.
func IsReservedKey(key string) bool {
	for _, k := range ReservedKeys {
		if k == key {
			return true
		}
	}
	return false
}

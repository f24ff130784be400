package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Map is the keyword-argument bag threaded between nodes and callbacks.
// A nil Map is treated as empty everywhere.
type Map map[string]any

// Clone returns a shallow copy of the map. Cloning nil yields an empty map.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge returns a copy of m with all entries of other laid over it.
func (m Map) Merge(other Map) Map {
	out := m.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Decode maps the bag onto a typed struct using "mapstructure" tags.
func (m Map) Decode(out any) error {
	if err := mapstructure.Decode(map[string]any(m), out); err != nil {
		return fmt.Errorf("failed to decode kwargs: %w", err)
	}
	return nil
}

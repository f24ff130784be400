package template

import (
	"gopkg.in/yaml.v3"
)

// parseLiteral evaluates a call-argument value as a typed literal: numbers,
// booleans, quoted strings and flow-style containers all round-trip through
// the YAML scalar rules. Anything that fails to parse stays a raw string;
// the DSL deliberately evaluates no code.
func parseLiteral(raw string) any {
	if raw == "" {
		return ""
	}
	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		return raw
	}
	if value == nil {
		return raw
	}
	return value
}

package keys

import (
	"strings"
)

// FromName produces a canonical key for a display name. Behavior: trims,
// lower-cases, replaces runs of whitespace with underscores. Suitable for
// stable encounter and actor identifiers.
func FromName(name string) string {
	s := strings.TrimSpace(name)
	if s == "" {
		return ""
	}
	return strings.ToLower(strings.Join(strings.Fields(s), "_"))
}

package replay

import (
	"fmt"
	"regexp"
	"strings"
)

var invalidTagChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// SanitizeTagName replaces every run of characters outside [A-Za-z0-9_-]
// with a single underscore.
func SanitizeTagName(label string) string {
	return invalidTagChars.ReplaceAllString(label, "_")
}

// TagRegistry hands out tag names that are unique ignoring case
type TagRegistry struct {
	used map[string]bool
}

// NewTagRegistry creates an empty registry
func NewTagRegistry() *TagRegistry {
	return &TagRegistry{used: make(map[string]bool)}
}

// Unique returns the sanitized label, suffixed with -2, -3, ... when the
// name was already handed out.
func (r *TagRegistry) Unique(label string) string {
	base := SanitizeTagName(label)
	name := base
	for n := 2; r.used[strings.ToLower(name)]; n++ {
		name = fmt.Sprintf("%s-%d", base, n)
	}
	r.used[strings.ToLower(name)] = true
	return name
}

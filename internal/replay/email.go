package replay

import (
	"strings"
)

// DefaultEmailDomain is used for users missing from the lookup table
const DefaultEmailDomain = "localhost"

// EmailResolver derives commit email addresses from legacy user names
type EmailResolver struct {
	domain string
	table  map[string]string
}

// NewEmailResolver creates a resolver. Table keys are normalized the same
// way user names are.
func NewEmailResolver(domain string, table map[string]string) *EmailResolver {
	if domain == "" {
		domain = DefaultEmailDomain
	}
	r := &EmailResolver{domain: domain, table: make(map[string]string, len(table))}
	for k, v := range table {
		r.table[emailKey(k)] = v
	}
	return r
}

func emailKey(user string) string {
	return strings.ReplaceAll(strings.ToLower(user), " ", ".")
}

// Email returns the address for user
func (r *EmailResolver) Email(user string) string {
	key := emailKey(user)
	if addr, ok := r.table[key]; ok {
		return addr
	}
	return key + "@" + r.domain
}

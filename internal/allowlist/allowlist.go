package allowlist

import (
	"strings"
)

// Guard validates that an email's domain belongs to the approved set
// before any verification code is issued. The set is fixed at
// construction; the guard is stateless and safe for concurrent use.
type Guard struct {
	domains map[string]struct{}
}

// New creates a Guard from the configured domain list. Domains are
// normalized to lower case.
func New(domains []string) *Guard {
	set := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			set[d] = struct{}{}
		}
	}
	return &Guard{domains: set}
}

// IsAllowed reports whether the email's domain matches an approved domain
// exactly or as a subdomain. Malformed emails (no @, empty domain) are
// rejected.
func (g *Guard) IsAllowed(email string) bool {
	domain := Domain(email)
	if domain == "" {
		return false
	}

	if _, ok := g.domains[domain]; ok {
		return true
	}

	for allowed := range g.domains {
		if strings.HasSuffix(domain, "."+allowed) {
			return true
		}
	}

	return false
}

// Domain extracts the lower-cased domain portion of an email address.
// Returns "" for malformed input.
func Domain(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

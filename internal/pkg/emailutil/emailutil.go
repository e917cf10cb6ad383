package emailutil

import (
	"regexp"
	"strings"
)

// emailRegex matches a syntactically plausible address: non-empty local part,
// non-empty domain with at least one dot, no whitespace
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValid reports whether the address is syntactically valid
func IsValid(email string) bool {
	return emailRegex.MatchString(email)
}

// DomainSuffix returns the domain portion after the first '@', lowercased.
// Returns "" if the address has no '@' or an empty domain.
func DomainSuffix(email string) string {
	idx := strings.Index(email, "@")
	if idx < 0 || idx == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[idx+1:])
}

package normalize

import (
	"regexp"
	"strings"
)

// emailRe is the standard local-part/domain/TLD shape. No normalization
// beyond lowercasing is applied; the string is stored as validated.
var emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// Email validates an e-mail address and returns it lowercased.
func Email(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if !emailRe.MatchString(s) {
		return "", false
	}
	return s, true
}

package follower

import (
	"regexp"
	"strings"
)

// profileURLRegex matches a pasted profile URL and captures the username.
var profileURLRegex = regexp.MustCompile(`^(?:https?://)?(?:www\.)?instagram\.com/([^/?#]+)`)

// subjectRegex is the accepted shape of a normalized username.
var subjectRegex = regexp.MustCompile(`^[a-z0-9._]{1,30}$`)

// NormalizeSubject turns user input into the subject key:
// 1. Trim whitespace
// 2. Extract the username from a profile URL
// 3. Strip a leading "@"
// 4. Lowercase
func NormalizeSubject(s string) string {
	s = strings.TrimSpace(s)
	if m := profileURLRegex.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = strings.TrimPrefix(s, "@")
	return strings.ToLower(s)
}

// ValidSubject reports whether a normalized subject looks like a username.
func ValidSubject(s string) bool {
	return subjectRegex.MatchString(s)
}

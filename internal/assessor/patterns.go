package assessor

import (
	"regexp"
	"strings"
)

// phonePattern matches a phone-like normalized query.
var phonePattern = regexp.MustCompile(`^[0-9+]{10,15}$`)

// urlPattern is a permissive hostname/URL matcher.
var urlPattern = regexp.MustCompile(`(?i)^(https?://)?[0-9a-z.-]+\.[a-z.]{2,6}([/\w .-]*)*/?$`)

// premiumRatePattern matches premium-rate number fragments (1900xxxx, 1800xxxx).
var premiumRatePattern = regexp.MustCompile(`1[89]00[0-9]{4}`)

// suspiciousSequences are digit runs frequently abused by spoofed numbers:
// ascending sequences, "lucky" repeats, and emergency-number fragments.
var suspiciousSequences = []string{
	"5678", "6789", "456",
	"6868", "8686", "3838",
	"110", "113", "114", "115",
}

// highRiskPrefixes are fixed-line prefixes commonly spoofed by scam callers.
var highRiskPrefixes = []string{"024", "028"}

// Normalize strips whitespace, hyphens, and parentheses from a query to
// form the cache and lookup key. The normalization is lossy by design:
// "+84 912-345-678" and "+84912345678" collide intentionally.
func Normalize(query string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == '(' || r == ')':
			return -1
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			return -1
		}
		return r
	}, query)
}

// IsPhoneLike reports whether a normalized query looks like a phone number.
func IsPhoneLike(normalized string) bool {
	return phonePattern.MatchString(normalized)
}

// IsURLLike reports whether a query looks like a hostname or URL.
func IsURLLike(query string) bool {
	return urlPattern.MatchString(query)
}

// IsHighRiskPhone reports whether a normalized phone number matches the
// high-risk pattern set: spoofed fixed-line prefixes, runs of five or more
// identical digits, suspicious sequences, or premium-rate fragments.
func IsHighRiskPhone(normalized string) bool {
	for _, prefix := range highRiskPrefixes {
		if strings.HasPrefix(normalized, prefix) {
			return true
		}
	}

	if hasDigitRun(normalized, 5) {
		return true
	}

	for _, seq := range suspiciousSequences {
		if strings.Contains(normalized, seq) {
			return true
		}
	}

	return premiumRatePattern.MatchString(normalized)
}

// hasDigitRun reports whether s contains n or more identical consecutive digits.
func hasDigitRun(s string, n int) bool {
	run := 0
	var prev byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			run = 0
			prev = 0
			continue
		}
		if c == prev {
			run++
		} else {
			run = 1
			prev = c
		}
		if run >= n {
			return true
		}
	}
	return false
}

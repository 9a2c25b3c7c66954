// Package slug turns titles into URL path segments.
package slug

import (
	"regexp"
	"strings"
)

var (
	invalidChars = regexp.MustCompile(`[^a-z0-9 -]+`)
	separators   = regexp.MustCompile(`[ -]+`)
	valid        = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Make lowercases title, drops anything but letters, digits and spaces, and
// joins the words with single hyphens. The result is cut to maxLen when
// maxLen > 0.
func Make(title string, maxLen int) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = invalidChars.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if maxLen > 0 && len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "-")
	}
	return s
}

// Valid reports whether s is already in slug form.
func Valid(s string) bool {
	return valid.MatchString(s)
}

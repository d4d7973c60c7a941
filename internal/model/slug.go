package model

import "strings"

// Slugify lowercases name and collapses every run of characters outside
// [a-z0-9] into a single hyphen. Surrounding whitespace is trimmed first;
// other leading or trailing punctuation still yields a hyphen.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))

	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			inRun = false
			continue
		}
		if !inRun {
			b.WriteByte('-')
			inRun = true
		}
	}
	return b.String()
}

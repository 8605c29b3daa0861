// Package sanitize provides text sanitization utilities to prevent XSS attacks.
package sanitize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// htmlTagRegex matches HTML tags
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
	spaceRegex   = regexp.MustCompile(`\s+`)
	upper        = cases.Upper(language.Und)
)

// StripHTML removes all HTML tags from a string, making it safe for text-only display.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.ReplaceAll(result, "&lt;", "<")
	result = strings.ReplaceAll(result, "&gt;", ">")
	result = strings.ReplaceAll(result, "&amp;", "&")
	result = strings.ReplaceAll(result, "&quot;", "\"")
	result = strings.ReplaceAll(result, "&#39;", "'")
	// Re-strip after entity decode to catch encoded tags
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text sanitizes a string for safe text storage by stripping HTML
// and collapsing runs of whitespace.
func Text(s string) string {
	return spaceRegex.ReplaceAllString(StripHTML(s), " ")
}

// TextPtr is a helper for optional string pointers
func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	result := Text(*s)
	return &result
}

// CourseCode trims, collapses whitespace and upper-cases a course code:
// " csc  201 " -> "CSC 201".
func CourseCode(s string) string {
	return upper.String(Text(s))
}

// Tags trims every tag, strips markup and drops empty entries. The result
// is never nil.
func Tags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if cleaned := Text(tag); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

// SplitTags splits free-text input on commas and applies Tags:
// "a, b ,, c" -> ["a", "b", "c"].
func SplitTags(input string) []string {
	if strings.TrimSpace(input) == "" {
		return []string{}
	}
	return Tags(strings.Split(input, ","))
}

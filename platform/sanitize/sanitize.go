// Package sanitize provides text scrubbing for inbound and outbound messages.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	// htmlTagRegex matches HTML tags
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
	// annotationRegex matches bracketed internal notes such as "[nota: ...]".
	annotationRegex = regexp.MustCompile(`\[[^\[\]]*\]`)
	spaceRunRegex   = regexp.MustCompile(`[ \t]{2,}`)
	blankLinesRegex = regexp.MustCompile(`\n{3,}`)
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

// StripAnnotations removes bracketed annotations and tidies the whitespace
// they leave behind.
func StripAnnotations(s string) string {
	result := annotationRegex.ReplaceAllString(s, "")
	result = spaceRunRegex.ReplaceAllString(result, " ")
	lines := strings.Split(result, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	result = blankLinesRegex.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(result)
}

// Text sanitizes operator-provided text before it is stored or sent.
func Text(s string) string {
	return StripHTML(s)
}

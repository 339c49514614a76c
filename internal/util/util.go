// internal/util/util.go
package util

import (
	"strings"
	"unicode/utf8"
)

// TruncateRunes truncates a string to a maximum number of runes,
// appending an ellipsis if truncated.
func TruncateRunes(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxRunes]) + "…"
}

// OneLine collapses every run of whitespace, newlines included, into a single space.
func OneLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Clip flattens text to one line and truncates it to maxRunes.
func Clip(text string, maxRunes int) string {
	return TruncateRunes(OneLine(text), maxRunes)
}

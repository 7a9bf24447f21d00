package utils

import (
	"strings"
	"unicode/utf8"
)

const maxMaskStars = 8

// SanitizeUsername strips byte sequences that are not valid UTF-8 so the
// name survives JSON encoding. A name that ends up empty becomes "Unknown".
func SanitizeUsername(username string) string {
	if !utf8.ValidString(username) {
		username = strings.ToValidUTF8(username, "�")
	}
	if username == "" {
		return "Unknown"
	}
	return username
}

// MaskUsername keeps the first visibleChars runes and replaces the rest with
// asterisks, at most 8 of them. Names no longer than visibleChars are
// returned as-is.
func MaskUsername(username string, visibleChars int) string {
	username = SanitizeUsername(username)

	runes := []rune(username)
	if len(runes) <= visibleChars {
		return username
	}

	stars := len(runes) - visibleChars
	if stars > maxMaskStars {
		stars = maxMaskStars
	}

	return string(runes[:visibleChars]) + strings.Repeat("*", stars)
}

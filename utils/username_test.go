package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskUsername(t *testing.T) {
	// 9 runes, 2 visible -> 7 stars
	assert.Equal(t, "Al*******", MaskUsername("Alexander", 2))

	// name length <= visible chars is returned unchanged
	assert.Equal(t, "Al", MaskUsername("Al", 2))
	assert.Equal(t, "A", MaskUsername("A", 2))

	// star count is capped at 8 regardless of name length
	assert.Equal(t, "AV********", MaskUsername("AVeryLongUsernameHere", 2))
}

func TestMaskUsernameMultibyte(t *testing.T) {
	// masking counts runes, not bytes
	assert.Equal(t, "Дм*****", MaskUsername("Дмитрий", 2))
}

func TestSanitizeUsername(t *testing.T) {
	assert.Equal(t, "player1", SanitizeUsername("player1"))

	// invalid UTF-8 bytes are replaced, not dropped silently
	assert.Equal(t, "ab�cd", SanitizeUsername("ab\xffcd"))

	assert.Equal(t, "Unknown", SanitizeUsername(""))
}

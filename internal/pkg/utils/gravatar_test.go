package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetGravatarURL(t *testing.T) {
	// Hash must be over the trimmed, lowercased address
	url1 := GetGravatarURL("User@Example.com", 80)
	url2 := GetGravatarURL("  user@example.com ", 80)
	assert.Equal(t, url1, url2)
	assert.Contains(t, url1, "s=80")

	// Size falls back to 200
	assert.Contains(t, GetGravatarURL("user@example.com", 0), "s=200")
}

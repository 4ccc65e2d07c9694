package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail(" JANE@Example.com "))
	assert.Equal(t, "jane@example.com", NormalizeEmail("jane@example.com"))
}

func TestSlugifyName(t *testing.T) {
	tests := []struct {
		name     string
		fullName string
		want     string
	}{
		{"plain name", "Jane Farmer", "janefarmer"},
		{"punctuation stripped", "Jane O'Farmer-Smith", "janeofarmersmith"},
		{"digits kept", "Farmer 42", "farmer42"},
		{"surrounding whitespace", "  Jane Farmer  ", "janefarmer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SlugifyName(tt.fullName))
		})
	}
}

func TestSlugifyNameShortFallback(t *testing.T) {
	// Names that slug to fewer than 3 chars fall back to user + 3 digits
	for _, fullName := range []string{"Jo", "!!", "李"} {
		slug := SlugifyName(fullName)
		assert.Regexp(t, `^user\d{3}$`, slug, fullName)
	}
}

func TestDefaultAvatarURL(t *testing.T) {
	assert.Contains(t, DefaultAvatarURL("janefarmer"), "janefarmer")
}

package utils

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

const MinUsernameLength = 3

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]`)

// NormalizeEmail lower-cases and trims an email address. Applied before
// every lookup and uniqueness check so stored emails are canonical.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeIdentifier canonicalizes a login identifier (email or username).
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// SlugifyName derives a username base from a display name: lower-cased
// with everything but letters and digits stripped. Names that slug down
// to fewer than 3 characters fall back to "user" plus a random 3-digit
// suffix.
func SlugifyName(fullName string) string {
	slug := nonAlphanumeric.ReplaceAllString(strings.ToLower(strings.TrimSpace(fullName)), "")
	if len(slug) < MinUsernameLength {
		return fmt.Sprintf("user%03d", rand.Intn(1000))
	}
	return slug
}

// DefaultAvatarURL returns the placeholder profile image for a new account.
func DefaultAvatarURL(username string) string {
	return "https://api.dicebear.com/7.x/initials/svg?seed=" + username
}

package services

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"
)

// OTPValidity is how long a one-time code stays usable after issue.
const OTPValidity = 10 * time.Minute

// GenerateOTP returns a uniformly random 6-digit code as a string.
func GenerateOTP() (string, error) {
	// 100000..999999 inclusive
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// OTPExpiry returns the expiry timestamp for a code issued at now.
func OTPExpiry(now time.Time) time.Time {
	return now.Add(OTPValidity)
}

// OTPMatches checks a supplied code against the stored one. The code is
// valid only strictly before its expiry, and the comparison is
// constant-time.
func OTPMatches(stored *string, expires *time.Time, supplied string, now time.Time) bool {
	if stored == nil || expires == nil || supplied == "" {
		return false
	}
	if !now.Before(*expires) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*stored), []byte(supplied)) == 1
}

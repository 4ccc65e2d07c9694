package services

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 200; i++ {
		otp, err := GenerateOTP()
		require.NoError(t, err)
		require.Len(t, otp, 6)

		n, err := strconv.Atoi(otp)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestOTPExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(10*time.Minute), OTPExpiry(now))
}

func TestOTPMatches(t *testing.T) {
	code := "483920"
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(5 * time.Minute)
	past := now.Add(-time.Second)

	tests := []struct {
		name     string
		stored   *string
		expires  *time.Time
		supplied string
		want     bool
	}{
		{"matching unexpired code", &code, &future, "483920", true},
		{"wrong code", &code, &future, "483921", false},
		{"expired code", &code, &past, "483920", false},
		{"expiry boundary is exclusive", &code, &now, "483920", false},
		{"no stored code", nil, &future, "483920", false},
		{"no expiry", &code, nil, "483920", false},
		{"empty supplied code", &code, &future, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OTPMatches(tt.stored, tt.expires, tt.supplied, now))
		})
	}
}

// Package auth implements the shared-secret one-time-password login. The
// secret is a base32 TOTP seed; a correct 6-digit code sets a session cookie
// that the middleware checks on every API request.
package auth

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

const (
	totpStep   = 30 * time.Second
	totpDigits = 6
	// Codes from the adjacent steps are accepted to absorb clock drift.
	totpWindow = 1
)

// VerifyCode checks a 6-digit code against the base32 secret at the given
// time. Empty secrets and empty codes never verify.
func VerifyCode(secret, code string, at time.Time) bool {
	code = strings.TrimSpace(code)
	if secret == "" || len(code) != totpDigits {
		return false
	}
	key, err := decodeSecret(secret)
	if err != nil {
		return false
	}
	counter := uint64(at.Unix()) / uint64(totpStep/time.Second)
	for delta := -totpWindow; delta <= totpWindow; delta++ {
		want := hotp(key, counter+uint64(int64(delta)))
		if subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1 {
			return true
		}
	}
	return false
}

func decodeSecret(secret string) ([]byte, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
	normalized = strings.TrimRight(normalized, "=")
	return base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(normalized)
}

// hotp is RFC 4226 dynamic truncation over HMAC-SHA1.
func hotp(key []byte, counter uint64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)
	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)
	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%06d", value%1000000)
}

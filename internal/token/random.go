package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"time"
)

const (
	// CodeDigits is the length of a verification code.
	CodeDigits = 6
	// ResetTokenLen is the length of a reset token.
	ResetTokenLen = 32

	maxBufLen      = 2048
	minRegenBufLen = 16
	maxByteValue   = 255
	byteRange      = 256
)

// alphanumeric is the reset token alphabet.
var alphanumeric = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789") //nolint:gochecknoglobals

// IssueVerificationCode returns a uniformly random 6 digit code, leading zeros included.
func (s *Service) IssueVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(math.Pow10(CodeDigits))))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}

	return fmt.Sprintf("%0*d", CodeDigits, n.Int64()), nil
}

// IssueResetToken returns a 32 character alphanumeric token.
func (s *Service) IssueResetToken() (string, error) {
	b, err := randomChars(ResetTokenLen, alphanumeric)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// CodeExpiry returns when a code issued at now expires.
func (s *Service) CodeExpiry(now time.Time) time.Time {
	return now.Add(s.cfg.CodeTTL)
}

// ResetTokenExpiry returns when a reset token issued at now expires.
func (s *Service) ResetTokenExpiry(now time.Time) time.Time {
	return now.Add(s.cfg.ResetTokenTTL)
}

// IsExpired reports whether expiry has passed at now. The expiry instant itself is expired.
func IsExpired(expiry, now time.Time) bool {
	return !now.Before(expiry)
}

// HashSecret returns the hex SHA-256 of a code or reset token, the only form that is persisted.
func HashSecret(plain string) string {
	sum := sha256.Sum256([]byte(plain))

	return hex.EncodeToString(sum[:])
}

// SecretMatches compares plain against a HashSecret digest in constant time.
func SecretMatches(digest, plain string) bool {
	return subtle.ConstantTimeCompare([]byte(digest), []byte(HashSecret(plain))) == 1
}

func estimatedBufLen(need, maxByte int) int {
	return int(math.Ceil(float64(need) * (maxByteValue / float64(maxByte))))
}

// randomChars draws length characters from chars without modulo bias.
func randomChars(length int, chars []byte) ([]byte, error) {
	clen := len(chars)
	if length <= 0 || clen < 2 || clen > byteRange {
		return nil, fmt.Errorf("random chars: invalid length %d or charset size %d", length, clen) //nolint:err113
	}

	maxRb := maxByteValue - (byteRange % clen)
	bufLen := min(max(estimatedBufLen(length, maxRb), length), maxBufLen)

	buf := make([]byte, bufLen)
	out := make([]byte, length)

	var i int

	for {
		if _, err := rand.Read(buf[:bufLen]); err != nil {
			return nil, fmt.Errorf("random chars: %w", err)
		}

		for _, rb := range buf[:bufLen] {
			c := int(rb)
			if c > maxRb {
				continue
			}

			out[i] = chars[c%clen]
			i++

			if i == length {
				return out, nil
			}
		}

		bufLen = min(max(estimatedBufLen(length-i, maxRb), minRegenBufLen), maxBufLen, cap(buf))
	}
}

package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// HashID returns the hex sha256 of a canonical source identifier (URL, post id).
func HashID(identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	return hex.EncodeToString(sum[:])
}

// CleanToValidUTF8 drops invalid byte sequences and trims surrounding whitespace.
func CleanToValidUTF8(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.TrimSpace(s)
}

// SafeText collapses runs of whitespace into single spaces.
func SafeText(s string) string {
	return strings.Join(strings.Fields(CleanToValidUTF8(s)), " ")
}

// ToPointer returns a pointer to v.
func ToPointer[T any](v T) *T {
	return &v
}

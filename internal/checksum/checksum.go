// Package checksum fingerprints stored records for optimistic concurrency.
// A record's checksum travels to HTTP clients as a strong ETag and comes
// back in If-Match.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Of returns the checksum of v's JSON encoding.
func Of(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return Sum(data), nil
}

// ETag formats a checksum as a strong entity tag.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// FromIfMatch extracts the checksum from an If-Match header value. Weak
// tags are accepted. An empty or "*" header yields "" (no precondition).
func FromIfMatch(header string) string {
	v := strings.TrimSpace(header)
	if v == "" || v == "*" {
		return ""
	}
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}

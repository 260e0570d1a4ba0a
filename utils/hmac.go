package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// ComputeHMACSHA256 computes HMAC-SHA256 signature and returns hex-encoded string.
func ComputeHMACSHA256(secretKey string, message []byte) string {
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write(message)
	return hex.EncodeToString(h.Sum(nil))
}

// SecureCompare performs constant-time string comparison.
// This MUST be used when comparing signatures.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StripSignaturePrefix accepts both "sha256=<hex>" and bare hex signatures.
func StripSignaturePrefix(signature string) string {
	return strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
}

// Abs returns the absolute value of x
func Abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

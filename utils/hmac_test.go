package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeHMACSHA256(t *testing.T) {
	// RFC 4231 test case 2
	got := ComputeHMACSHA256("Jefe", []byte("what do ya want for nothing?"))
	assert.Equal(t, "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843", got)
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, SecureCompare("abc", "abc"))
	assert.False(t, SecureCompare("abc", "abd"))
	assert.False(t, SecureCompare("abc", "abcd"))
}

func TestStripSignaturePrefix(t *testing.T) {
	assert.Equal(t, "deadbeef", StripSignaturePrefix("sha256=deadbeef"))
	assert.Equal(t, "deadbeef", StripSignaturePrefix(" deadbeef "))
}

func TestAbs(t *testing.T) {
	assert.Equal(t, int64(5), Abs(-5))
	assert.Equal(t, int64(5), Abs(5))
}

package oauth

import (
	"crypto/sha256"
	"encoding/base64"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodeVerifier(t *testing.T) {
	verifier, err := NewCodeVerifier()
	require.NoError(t, err)

	// RFC 7636 wants 43-128 characters from the unreserved URL set.
	assert.GreaterOrEqual(t, len(verifier), 43)
	assert.LessOrEqual(t, len(verifier), 128)
	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9\-._~]+$`), verifier)
}

func TestCodeChallenge(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"

	sum := sha256.Sum256([]byte(verifier))
	expected := base64.RawURLEncoding.EncodeToString(sum[:])

	assert.Equal(t, expected, CodeChallenge(verifier))
	assert.NotContains(t, CodeChallenge(verifier), "=")
}

func TestCodeVerifierUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		verifier, err := NewCodeVerifier()
		require.NoError(t, err)
		_, dup := seen[verifier]
		require.False(t, dup, "verifier generated twice")
		seen[verifier] = struct{}{}
	}
}

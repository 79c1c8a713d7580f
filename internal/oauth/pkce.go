package oauth

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/maheshrc27/postflow/pkg/utils"
)

// 48 random bytes encode to 64 URL-safe characters, inside the 43-128
// range RFC 7636 requires for a code verifier.
const verifierBytes = 48

// NewCodeVerifier generates a fresh PKCE code verifier.
func NewCodeVerifier() (string, error) {
	return utils.GenerateURLSafeToken(verifierBytes)
}

// CodeChallenge derives the S256 challenge for a verifier.
func CodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

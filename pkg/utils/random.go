package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateRandomKey returns length bytes of randomness, URL-safe base64 encoded.
func GenerateRandomKey(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(b), nil
}

// GenerateURLSafeToken returns length bytes of randomness encoded without
// padding, suitable for OAuth state values and PKCE verifiers.
func GenerateURLSafeToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

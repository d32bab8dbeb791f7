package protocol

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// VerifierLength is the default PKCE code verifier length.
const VerifierLength = 64

// verifierAlphabet is the unreserved URL-safe character set from RFC 7636.
const verifierAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// GenerateVerifier draws length characters uniformly from the unreserved
// alphabet using a cryptographically secure source. Rejection sampling keeps
// the distribution uniform despite 256 not being a multiple of the alphabet
// size.
func GenerateVerifier(length int) (string, error) {
	if length <= 0 {
		length = VerifierLength
	}
	limit := byte(256 - 256%len(verifierAlphabet))

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, verifierAlphabet[int(b)%len(verifierAlphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

// DeriveChallenge computes the S256 code challenge for a verifier: SHA-256
// over the UTF-8 bytes, base64url-encoded without padding.
func DeriveChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

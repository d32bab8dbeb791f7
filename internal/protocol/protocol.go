package protocol

import (
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"strings"
)

// RandomHex generates a hex-encoded random string of n bytes.
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HTMLEscape escapes HTML special characters.
func HTMLEscape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(s)
}

// ParseRelayedParams parses parameters relayed out-of-band by a host
// application or fronting proxy. It accepts a full URL, a bare query string,
// or a URL fragment with a leading "#" (hosts re-send fragment content as a
// query parameter because a server never sees the fragment itself).
// Returns nil when nothing parseable is present.
func ParseRelayedParams(raw string) url.Values {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if raw == "" {
		return nil
	}
	if u, err := url.Parse(raw); err == nil && u.RawQuery != "" {
		raw = u.RawQuery
	}
	values, err := url.ParseQuery(raw)
	if err != nil || len(values) == 0 {
		return nil
	}
	return values
}

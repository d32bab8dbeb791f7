package auth

import (
	"net/http"
	"regexp"

	"github.com/nexthaj/haj-portal/internal/protocol"
)

// A Probe inspects one place a credential may have been left by the identity
// provider, a fronting proxy, or the native app shell embedding the portal.
// Probes are pure: they read the request and session and report what they
// find, nothing more.
type Probe struct {
	Name string
	Find func(r *http.Request, creds *Credentials) (token string, ok bool)
}

var webViewPattern = regexp.MustCompile(`(?i)wv|WebView`)

// EmbeddedHost reports whether the request originates from the native app
// shell rather than a standalone browser.
func EmbeddedHost(r *http.Request) bool {
	if webViewPattern.MatchString(r.UserAgent()) {
		return true
	}
	return r.Header.Get("X-Requested-With") != ""
}

// DefaultProbes returns the credential probes in their fixed evaluation
// order. The order is load-bearing: an embedded host that pre-authenticated
// the user must win over everything else, because in that topology the real
// provider callback is intercepted upstream and never reaches this route.
func DefaultProbes() []Probe {
	return []Probe{
		{
			Name: "embedded-session",
			Find: func(r *http.Request, creds *Credentials) (string, bool) {
				if EmbeddedHost(r) && creds.Authenticated() {
					return creds.AccessToken, true
				}
				return "", false
			},
		},
		{
			Name: "query-token",
			Find: func(r *http.Request, _ *Credentials) (string, bool) {
				tok := r.URL.Query().Get("access_token")
				return tok, tok != ""
			},
		},
		{
			Name: "relayed-fragment",
			Find: func(r *http.Request, _ *Credentials) (string, bool) {
				values := protocol.ParseRelayedParams(r.URL.Query().Get("fragment"))
				if values == nil {
					return "", false
				}
				tok := values.Get("access_token")
				return tok, tok != ""
			},
		},
		{
			Name: "injected-cookie",
			Find: func(r *http.Request, _ *Credentials) (string, bool) {
				cookie, err := r.Cookie("access_token")
				if err != nil || cookie.Value == "" {
					return "", false
				}
				return cookie.Value, true
			},
		},
		{
			Name: "forwarded-header",
			Find: func(r *http.Request, _ *Credentials) (string, bool) {
				tok := r.Header.Get("X-Access-Token")
				return tok, tok != ""
			},
		},
	}
}

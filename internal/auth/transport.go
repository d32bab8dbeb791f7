package auth

import (
	"context"
	"net/http"
)

// ImpersonationHeader carries the debug NNI override to the backend. It is
// informational: the bearer token still identifies the real caller, and the
// backend decides whether the override is honored.
const ImpersonationHeader = "X-Impersonate-Nni"

type credentialsKey struct{}

// WithCredentials returns a context carrying the session credentials for the
// Transport to pick up.
func WithCredentials(ctx context.Context, creds *Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, creds)
}

func credentialsFrom(r *http.Request) *Credentials {
	creds, _ := r.Context().Value(credentialsKey{}).(*Credentials)
	return creds
}

// Transport attaches the stored bearer token (and impersonation override,
// when set) to every outgoing backend request, and clears the session's
// credentials when the backend answers 401 so the next page load forces a
// fresh login.
type Transport struct {
	Base http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	creds := credentialsFrom(req)
	if creds != nil {
		req = req.Clone(req.Context())
		if creds.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
		}
		if creds.ImpersonatedNNI != "" {
			req.Header.Set(ImpersonationHeader, creds.ImpersonatedNNI)
		}
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized && creds != nil {
		creds.ClearAuth()
	}
	return resp, nil
}

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

// OutcomeKind classifies the terminal result of a callback resolution.
type OutcomeKind int

const (
	// OutcomeLogin sends the visitor back to the login entry point with no
	// error shown. Reaching the callback with nothing usable is a normal
	// case in the deployed topology.
	OutcomeLogin OutcomeKind = iota
	// OutcomeDashboard means a usable credential is stored and the visitor
	// proceeds to the dashboard.
	OutcomeDashboard
	// OutcomeError renders the terminal error view.
	OutcomeError
)

// Outcome is the single result of resolving a callback request. Exactly one
// outcome is produced per invocation; the resolver never loops and never
// panics on a bare request.
type Outcome struct {
	Kind      OutcomeKind
	Source    string // probe or flow step that decided the outcome
	Message   string // user-facing text for error outcomes
	Retryable bool   // whether the error view offers a retry back to login
}

// Resolver decides what a callback request means: an already-present
// credential, a code to exchange, a provider error, or nothing.
type Resolver struct {
	Client *Client
	Probes []Probe
}

// NewResolver creates a resolver with the default probe order.
func NewResolver(client *Client) *Resolver {
	return &Resolver{Client: client, Probes: DefaultProbes()}
}

// Resolve runs the probes in order, then the standard code exchange, then
// the provider-error check. First match wins.
func (res *Resolver) Resolve(ctx context.Context, r *http.Request, creds *Credentials) Outcome {
	for _, p := range res.Probes {
		token, ok := p.Find(r, creds)
		if !ok || token == "" {
			continue
		}
		if p.Name == "embedded-session" {
			// The host shell injected an already-validated credential; the
			// OAuth redirect never happened and no exchange is possible.
			slog.Info("callback resolved from embedded session")
			return Outcome{Kind: OutcomeDashboard, Source: p.Name}
		}
		if _, err := res.Client.FetchProfile(ctx, creds, token); err != nil {
			slog.Warn("presented token rejected", "source", p.Name, "error", err)
			return Outcome{
				Kind:    OutcomeError,
				Source:  p.Name,
				Message: "the credential presented via " + p.Name + " was rejected by the identity provider",
			}
		}
		creds.AccessToken = token
		slog.Info("callback resolved from presented token", "source", p.Name)
		return Outcome{Kind: OutcomeDashboard, Source: p.Name}
	}

	query := r.URL.Query()

	if code := query.Get("code"); code != "" {
		if err := res.Client.ExchangeCode(ctx, creds, code); err != nil {
			slog.Warn("code exchange failed", "error", err)
			return Outcome{Kind: OutcomeError, Source: "code-exchange", Message: userMessage(err), Retryable: true}
		}
		if _, err := res.Client.FetchProfile(ctx, creds, creds.AccessToken); err != nil {
			slog.Warn("profile fetch failed after exchange", "error", err)
			return Outcome{Kind: OutcomeError, Source: "userinfo", Message: userMessage(err), Retryable: true}
		}
		return Outcome{Kind: OutcomeDashboard, Source: "code-exchange"}
	}

	if errCode := query.Get("error"); errCode != "" {
		perr := &ProviderError{Code: errCode, Description: query.Get("error_description")}
		slog.Warn("provider reported error on callback", "error", perr.Code, "description", perr.Description)
		return Outcome{Kind: OutcomeError, Source: "provider", Message: perr.Message(), Retryable: true}
	}

	// No code, no token, no error: the visitor likely navigated here
	// directly, or the real callback was handled upstream.
	return Outcome{Kind: OutcomeLogin}
}

// userMessage maps an authentication error to text safe to show a citizen.
func userMessage(err error) string {
	var te *TokenExchangeError
	if errors.As(err, &te) && te.Description != "" {
		return te.Description
	}
	if errors.Is(err, ErrVerifierMissing) {
		return "the sign-in session expired before it completed, please try again"
	}
	var pe *ProfileFetchError
	if errors.As(err, &pe) {
		return "could not load your profile from the identity provider"
	}
	return "authentication failed"
}

package auth

import (
	"errors"
	"fmt"
)

// ErrVerifierMissing means the callback was reached without a prior login
// initiation, or storage was cleared between redirect and return. Not
// retryable without restarting the login flow.
var ErrVerifierMissing = errors.New("auth: code verifier not found in session")

// ErrAuthenticationExpired is surfaced when the backend rejects a previously
// accepted token with 401. Handled centrally: credentials are cleared and the
// client is sent back to login.
var ErrAuthenticationExpired = errors.New("auth: authentication expired")

// TokenExchangeError means the provider rejected the code/verifier pair.
// Retryable only by restarting login, never by replaying the same code.
type TokenExchangeError struct {
	Code        string // RFC 6749 error code
	Description string // RFC 6749 error_description
	Detail      string // transport-level detail when no OAuth error is present
}

func (e *TokenExchangeError) Error() string {
	switch {
	case e.Description != "":
		return fmt.Sprintf("auth: token exchange failed: %s", e.Description)
	case e.Code != "":
		return fmt.Sprintf("auth: token exchange failed: %s", e.Code)
	default:
		return fmt.Sprintf("auth: token exchange failed: %s", e.Detail)
	}
}

// ProfileFetchError means the userinfo call failed after a token was
// obtained. Retryable.
type ProfileFetchError struct {
	StatusCode int
	Detail     string
}

func (e *ProfileFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("auth: userinfo request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("auth: userinfo request failed: %s", e.Detail)
}

// ProviderError is an error the provider itself reported on the callback
// (e.g. the user denied consent). Shown verbatim with a retry affordance.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("auth: provider returned %s", e.Code)
}

// Message returns the user-facing text for the error view.
func (e *ProviderError) Message() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Code
}

package auth

import (
	"net/http"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	if store.Get("missing") != nil {
		t.Error("expected nil for unknown session")
	}

	creds := &Credentials{AccessToken: "tok1"}
	store.Put("sess1", creds)
	if got := store.Get("sess1"); got != creds {
		t.Errorf("Get returned %+v, want the stored credentials", got)
	}

	store.Delete("sess1")
	if store.Get("sess1") != nil {
		t.Error("expected nil after Delete")
	}
}

func TestFromRequest(t *testing.T) {
	store := NewMemoryStore()
	creds := &Credentials{AccessToken: "tok1"}
	store.Put("sess1", creds)

	t.Run("with cookie", func(t *testing.T) {
		r, _ := http.NewRequest("GET", "/", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "sess1"})
		if got := store.FromRequest(r); got != creds {
			t.Errorf("FromRequest = %+v, want stored credentials", got)
		}
	})

	t.Run("without cookie", func(t *testing.T) {
		r, _ := http.NewRequest("GET", "/", nil)
		if store.FromRequest(r) != nil {
			t.Error("expected nil without a session cookie")
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		r, _ := http.NewRequest("GET", "/", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "other"})
		if store.FromRequest(r) != nil {
			t.Error("expected nil for unknown session ID")
		}
	})
}

func TestAuthenticated(t *testing.T) {
	var nilCreds *Credentials
	if nilCreds.Authenticated() {
		t.Error("nil credentials must not be authenticated")
	}

	creds := &Credentials{}
	if creds.Authenticated() {
		t.Error("empty credentials must not be authenticated")
	}

	creds.AccessToken = "tok1"
	if !creds.Authenticated() {
		t.Error("credentials with access token must be authenticated")
	}

	// A verifier alone is not a credential.
	creds = &Credentials{CodeVerifier: "pending"}
	if creds.Authenticated() {
		t.Error("a pending verifier must not count as authenticated")
	}
}

func TestClearAuth(t *testing.T) {
	creds := &Credentials{
		CodeVerifier:    "verifier",
		AccessToken:     "tok1",
		RefreshToken:    "r1",
		Profile:         &Profile{NNI: "1234567890"},
		ImpersonatedNNI: "9876543210",
	}

	creds.ClearAuth()

	if creds.Authenticated() {
		t.Error("credentials must not be authenticated after ClearAuth")
	}
	if creds.CodeVerifier != "" || creds.AccessToken != "" || creds.RefreshToken != "" {
		t.Errorf("auth fields not cleared: %+v", creds)
	}
	if creds.Profile != nil {
		t.Error("profile not cleared")
	}
	if creds.ImpersonatedNNI != "9876543210" {
		t.Errorf("ImpersonatedNNI = %q, must survive ClearAuth", creds.ImpersonatedNNI)
	}
}

package protocol

import (
	"strings"
	"testing"
)

func TestGenerateVerifier(t *testing.T) {
	lengths := []struct {
		name   string
		length int
		want   int
	}{
		{"minimum", 43, 43},
		{"default", VerifierLength, 64},
		{"maximum", 128, 128},
		{"zero falls back to default", 0, 64},
	}

	for _, tt := range lengths {
		t.Run(tt.name, func(t *testing.T) {
			v, err := GenerateVerifier(tt.length)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(v) != tt.want {
				t.Errorf("length = %d, want %d", len(v), tt.want)
			}
			for i, c := range v {
				if !strings.ContainsRune(verifierAlphabet, c) {
					t.Errorf("character %q at index %d is outside the unreserved alphabet", c, i)
				}
			}
		})
	}

	t.Run("consecutive verifiers differ", func(t *testing.T) {
		a, err := GenerateVerifier(VerifierLength)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, err := GenerateVerifier(VerifierLength)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a == b {
			t.Error("two generated verifiers are identical")
		}
	})
}

func TestDeriveChallenge(t *testing.T) {
	// Known vector from RFC 7636 appendix B.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	want := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

	if got := DeriveChallenge(verifier); got != want {
		t.Errorf("DeriveChallenge() = %q, want %q", got, want)
	}
}

func TestDeriveChallengeIsURLSafe(t *testing.T) {
	v, err := GenerateVerifier(VerifierLength)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	challenge := DeriveChallenge(v)
	if strings.ContainsAny(challenge, "+/=") {
		t.Errorf("challenge %q contains non-URL-safe characters", challenge)
	}
	if len(challenge) != 43 {
		t.Errorf("challenge length = %d, want 43", len(challenge))
	}
}

package auth

import (
	"net/http"
	"testing"
)

func probeByName(t *testing.T, name string) Probe {
	t.Helper()
	for _, p := range DefaultProbes() {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("probe %q not found", name)
	return Probe{}
}

func TestEmbeddedHost(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		header    string
		want      bool
	}{
		{"android webview marker", "Mozilla/5.0 (Linux; Android 13; wv)", "", true},
		{"explicit WebView", "MyApp WebView/1.0", "", true},
		{"x-requested-with", "Mozilla/5.0", "com.example.haj", true},
		{"plain browser", "Mozilla/5.0 (X11; Linux x86_64) Firefox/120.0", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest("GET", "/cb", nil)
			r.Header.Set("User-Agent", tt.userAgent)
			if tt.header != "" {
				r.Header.Set("X-Requested-With", tt.header)
			}
			if got := EmbeddedHost(r); got != tt.want {
				t.Errorf("EmbeddedHost = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProbeOrder(t *testing.T) {
	want := []string{"embedded-session", "query-token", "relayed-fragment", "injected-cookie", "forwarded-header"}
	probes := DefaultProbes()
	if len(probes) != len(want) {
		t.Fatalf("probe count = %d, want %d", len(probes), len(want))
	}
	for i, p := range probes {
		if p.Name != want[i] {
			t.Errorf("probe[%d] = %q, want %q", i, p.Name, want[i])
		}
	}
}

func TestEmbeddedSessionProbe(t *testing.T) {
	probe := probeByName(t, "embedded-session")

	r, _ := http.NewRequest("GET", "/cb", nil)
	r.Header.Set("User-Agent", "Mozilla/5.0 (Linux; Android 13; wv)")

	t.Run("embedded with stored token", func(t *testing.T) {
		tok, ok := probe.Find(r, &Credentials{AccessToken: "tok1"})
		if !ok || tok != "tok1" {
			t.Errorf("Find = (%q, %v), want (tok1, true)", tok, ok)
		}
	})

	t.Run("embedded without stored token", func(t *testing.T) {
		if _, ok := probe.Find(r, &Credentials{}); ok {
			t.Error("embedded host without stored token must not match")
		}
	})

	t.Run("plain browser with stored token", func(t *testing.T) {
		browser, _ := http.NewRequest("GET", "/cb", nil)
		browser.Header.Set("User-Agent", "Mozilla/5.0 Firefox/120.0")
		if _, ok := probe.Find(browser, &Credentials{AccessToken: "tok1"}); ok {
			t.Error("plain browser must not match the embedded-session probe")
		}
	})
}

func TestTokenCarryingProbes(t *testing.T) {
	creds := &Credentials{}

	tests := []struct {
		name    string
		probe   string
		request func() *http.Request
		want    string
	}{
		{
			name:  "query token",
			probe: "query-token",
			request: func() *http.Request {
				r, _ := http.NewRequest("GET", "/cb?access_token=qtok", nil)
				return r
			},
			want: "qtok",
		},
		{
			name:  "relayed fragment",
			probe: "relayed-fragment",
			request: func() *http.Request {
				r, _ := http.NewRequest("GET", "/cb?fragment=%23access_token%3Dftok%26token_type%3DBearer", nil)
				return r
			},
			want: "ftok",
		},
		{
			name:  "injected cookie",
			probe: "injected-cookie",
			request: func() *http.Request {
				r, _ := http.NewRequest("GET", "/cb", nil)
				r.AddCookie(&http.Cookie{Name: "access_token", Value: "ctok"})
				return r
			},
			want: "ctok",
		},
		{
			name:  "forwarded header",
			probe: "forwarded-header",
			request: func() *http.Request {
				r, _ := http.NewRequest("GET", "/cb", nil)
				r.Header.Set("X-Access-Token", "htok")
				return r
			},
			want: "htok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := probeByName(t, tt.probe)
			tok, ok := probe.Find(tt.request(), creds)
			if !ok || tok != tt.want {
				t.Errorf("Find = (%q, %v), want (%q, true)", tok, ok, tt.want)
			}

			// Same probe against an empty request finds nothing.
			empty, _ := http.NewRequest("GET", "/cb", nil)
			if _, ok := probe.Find(empty, creds); ok {
				t.Errorf("probe %q matched an empty request", tt.probe)
			}
		})
	}
}

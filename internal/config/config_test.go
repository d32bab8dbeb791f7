package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
[oidc]
auth_server = "https://idp.example.com"
client_id = "haj-portal"
redirect_uri = "https://portal.example.com/cb"

[backend]
base_url = "https://api.example.com"
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ListenAddr != ":3000" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":3000")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.RequestTimeoutSeconds != 15 {
		t.Errorf("RequestTimeoutSeconds = %d, want 15", cfg.RequestTimeoutSeconds)
	}
	if cfg.OIDC.CallbackPath != "/cb" {
		t.Errorf("CallbackPath = %q, want %q", cfg.OIDC.CallbackPath, "/cb")
	}
	if cfg.OIDC.PostLogoutPath != "/logged-out" {
		t.Errorf("PostLogoutPath = %q, want %q", cfg.OIDC.PostLogoutPath, "/logged-out")
	}

	scopes := strings.Join(cfg.OIDC.Scopes, " ")
	for _, want := range []string{"openid", "offline_access", "api:read"} {
		if !strings.Contains(scopes, want) {
			t.Errorf("default scopes %q missing %q", scopes, want)
		}
	}
}

func TestLoadDerivesEndpointsFromAuthServer(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"auth_url", cfg.OIDC.AuthURL, "https://idp.example.com/auth"},
		{"token_url", cfg.OIDC.TokenURL, "https://idp.example.com/token"},
		{"userinfo_url", cfg.OIDC.UserinfoURL, "https://idp.example.com/me"},
		{"end_session_url", cfg.OIDC.EndSessionURL, "https://idp.example.com/session/end"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadExplicitEndpointsWin(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[oidc]
auth_server = "https://idp.example.com"
token_url = "https://other.example.com/oauth/token"
client_id = "haj-portal"
redirect_uri = "https://portal.example.com/cb"

[backend]
base_url = "https://api.example.com"
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OIDC.TokenURL != "https://other.example.com/oauth/token" {
		t.Errorf("TokenURL = %q, explicit value should not be overridden", cfg.OIDC.TokenURL)
	}
	if cfg.OIDC.AuthURL != "https://idp.example.com/auth" {
		t.Errorf("AuthURL = %q, want derived value", cfg.OIDC.AuthURL)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing client_id",
			content: `
[oidc]
auth_server = "https://idp.example.com"
redirect_uri = "https://portal.example.com/cb"

[backend]
base_url = "https://api.example.com"
`,
			wantErr: "client_id",
		},
		{
			name: "missing redirect_uri",
			content: `
[oidc]
auth_server = "https://idp.example.com"
client_id = "haj-portal"

[backend]
base_url = "https://api.example.com"
`,
			wantErr: "redirect_uri",
		},
		{
			name: "no endpoints at all",
			content: `
[oidc]
client_id = "haj-portal"
redirect_uri = "https://portal.example.com/cb"

[backend]
base_url = "https://api.example.com"
`,
			wantErr: "issuer",
		},
		{
			name: "missing backend base_url",
			content: `
[oidc]
auth_server = "https://idp.example.com"
client_id = "haj-portal"
redirect_uri = "https://portal.example.com/cb"
`,
			wantErr: "base_url",
		},
		{
			name: "self-signed and cert files are exclusive",
			content: `
tls_self_signed = true
tls_cert_path = "/tmp/cert.pem"
tls_key_path = "/tmp/key.pem"
` + minimalConfig,
			wantErr: "mutually exclusive",
		},
		{
			name: "cert without key",
			content: `
tls_cert_path = "/tmp/cert.pem"
` + minimalConfig,
			wantErr: "together",
		},
		{
			name: "callback path without leading slash",
			content: `
[oidc]
auth_server = "https://idp.example.com"
client_id = "haj-portal"
redirect_uri = "https://portal.example.com/cb"
callback_path = "cb"

[backend]
base_url = "https://api.example.com"
`,
			wantErr: "callback_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIsAdmin(t *testing.T) {
	d := &DebugConfig{AdminNNIs: []string{"1234567890"}}

	if !d.IsAdmin("1234567890") {
		t.Error("listed NNI should be admin")
	}
	if d.IsAdmin("9999999999") {
		t.Error("unlisted NNI should not be admin")
	}
	if d.IsAdmin("") {
		t.Error("empty NNI should never be admin")
	}
}

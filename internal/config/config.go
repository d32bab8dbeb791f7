package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the top-level configuration.
type Config struct {
	ListenAddr            string `toml:"listen_addr"`
	LogLevel              string `toml:"log_level"`
	InsecureSkipVerify    bool   `toml:"insecure_skip_verify"`
	TLSCertPath           string `toml:"tls_cert_path"`
	TLSKeyPath            string `toml:"tls_key_path"`
	TLSSelfSigned         bool   `toml:"tls_self_signed"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`

	OIDC    OIDCConfig    `toml:"oidc"`
	Backend BackendConfig `toml:"backend"`
	Debug   DebugConfig   `toml:"debug"`
}

// OIDCConfig describes the identity provider the portal authenticates against.
//
// Endpoints can be set three ways, in order of precedence: RFC 8414 discovery
// via issuer, explicit per-endpoint URLs, or derived from auth_server using
// the provider's fixed paths (/auth, /token, /me, /session/end).
type OIDCConfig struct {
	Issuer       string `toml:"issuer"`
	AuthServer   string `toml:"auth_server"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`

	AuthURL       string `toml:"auth_url"`
	TokenURL      string `toml:"token_url"`
	UserinfoURL   string `toml:"userinfo_url"`
	EndSessionURL string `toml:"end_session_url"`

	Scopes         []string `toml:"scopes"`
	CallbackPath   string   `toml:"callback_path"`
	PostLogoutPath string   `toml:"post_logout_path"`
}

// BackendConfig points at the registration workflow API.
type BackendConfig struct {
	BaseURL string `toml:"base_url"`
}

// DebugConfig holds the impersonation allow-list. The list only decides
// whether the portal forwards the override header; real authorization is the
// backend's responsibility.
type DebugConfig struct {
	AdminNNIs []string `toml:"admin_nnis"`
}

// IsAdmin reports whether the given NNI may set an impersonation override.
func (d *DebugConfig) IsAdmin(nni string) bool {
	return nni != "" && slices.Contains(d.AdminNNIs, nni)
}

// RequestTimeout returns the outbound request timeout for token exchange,
// userinfo and backend calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// TLSEnabled returns true if TLS is configured (self-signed or cert files).
func (c *Config) TLSEnabled() bool {
	return c.TLSSelfSigned || (c.TLSCertPath != "" && c.TLSKeyPath != "")
}

// Load reads the configuration from a TOML file.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":3000"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RequestTimeoutSeconds == 0 {
		cfg.RequestTimeoutSeconds = 15
	}

	o := &cfg.OIDC
	if len(o.Scopes) == 0 {
		o.Scopes = []string{"openid", "email", "profile", "phone", "address", "offline_access", "api:read"}
	}
	if o.CallbackPath == "" {
		o.CallbackPath = "/cb"
	}
	if o.PostLogoutPath == "" {
		o.PostLogoutPath = "/logged-out"
	}
	if o.AuthServer != "" {
		base := strings.TrimRight(o.AuthServer, "/")
		o.AuthServer = base
		if o.AuthURL == "" {
			o.AuthURL = base + "/auth"
		}
		if o.TokenURL == "" {
			o.TokenURL = base + "/token"
		}
		if o.UserinfoURL == "" {
			o.UserinfoURL = base + "/me"
		}
		if o.EndSessionURL == "" {
			o.EndSessionURL = base + "/session/end"
		}
	}
}

func validate(cfg *Config) error {
	if cfg.TLSSelfSigned && (cfg.TLSCertPath != "" || cfg.TLSKeyPath != "") {
		return fmt.Errorf("tls_self_signed and tls_cert_path/tls_key_path are mutually exclusive")
	}
	if (cfg.TLSCertPath != "") != (cfg.TLSKeyPath != "") {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be specified together")
	}

	o := &cfg.OIDC
	if o.ClientID == "" {
		return fmt.Errorf("oidc: client_id is required")
	}
	if o.RedirectURI == "" {
		return fmt.Errorf("oidc: redirect_uri is required")
	}
	if _, err := url.Parse(o.RedirectURI); err != nil {
		return fmt.Errorf("oidc: invalid redirect_uri %q: %w", o.RedirectURI, err)
	}
	if o.Issuer == "" && (o.AuthURL == "" || o.TokenURL == "" || o.UserinfoURL == "") {
		return fmt.Errorf("oidc: either issuer, auth_server, or auth_url/token_url/userinfo_url are required")
	}
	if !strings.HasPrefix(o.CallbackPath, "/") {
		return fmt.Errorf("oidc: callback_path must start with /")
	}

	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("backend: base_url is required")
	}
	if _, err := url.Parse(cfg.Backend.BaseURL); err != nil {
		return fmt.Errorf("backend: invalid base_url %q: %w", cfg.Backend.BaseURL, err)
	}
	return nil
}

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/nexthaj/haj-portal/internal/config"
	"github.com/nexthaj/haj-portal/internal/protocol"
)

// Client talks to the identity provider: it builds authorization URLs,
// exchanges authorization codes, fetches userinfo and constructs the
// end-session URL. Browser navigation is left to the caller; every method
// returns values instead of redirecting.
type Client struct {
	oauth2Config       *oauth2.Config
	httpClient         *http.Client
	userinfoURL        string
	endSessionURL      string
	postLogoutRedirect string
	timeout            time.Duration
}

// NewClient initializes the provider client. When cfg.Issuer is set the
// endpoints come from RFC 8414 discovery (retried, since the provider may
// start after the portal); otherwise the configured URLs are used as-is.
func NewClient(ctx context.Context, cfg config.OIDCConfig, httpClient *http.Client, timeout time.Duration) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	endpoint := oauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL}
	userinfoURL := cfg.UserinfoURL
	endSessionURL := cfg.EndSessionURL

	if cfg.Issuer != "" {
		discoveryCtx := context.WithValue(ctx, oauth2.HTTPClient, httpClient)

		var (
			provider *gooidc.Provider
			err      error
		)
		for i := 0; i < 30; i++ {
			provider, err = gooidc.NewProvider(discoveryCtx, cfg.Issuer)
			if err == nil {
				break
			}
			slog.Warn("OIDC provider discovery failed", "attempt", i+1, "issuer", cfg.Issuer, "error", err)
			time.Sleep(2 * time.Second)
		}
		if err != nil {
			return nil, fmt.Errorf("discover OIDC provider %s: %w", cfg.Issuer, err)
		}

		endpoint = provider.Endpoint()
		var providerClaims struct {
			UserinfoEndpoint   string `json:"userinfo_endpoint"`
			EndSessionEndpoint string `json:"end_session_endpoint"`
		}
		if err := provider.Claims(&providerClaims); err != nil {
			slog.Warn("could not extract provider claims", "issuer", cfg.Issuer, "error", err)
		}
		if providerClaims.UserinfoEndpoint != "" {
			userinfoURL = providerClaims.UserinfoEndpoint
		}
		if providerClaims.EndSessionEndpoint != "" {
			endSessionURL = providerClaims.EndSessionEndpoint
		}
		slog.Info("OIDC provider discovered", "issuer", cfg.Issuer)
	}

	redirectParsed, err := url.Parse(cfg.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("parse redirect URI: %w", err)
	}
	postLogout := redirectParsed.Scheme + "://" + redirectParsed.Host + cfg.PostLogoutPath

	return &Client{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     endpoint,
			Scopes:       cfg.Scopes,
		},
		httpClient:         httpClient,
		userinfoURL:        userinfoURL,
		endSessionURL:      endSessionURL,
		postLogoutRedirect: postLogout,
		timeout:            timeout,
	}, nil
}

// BeginLogin generates fresh PKCE parameters, stores the verifier on the
// session and returns the authorization URL for the caller to redirect to.
// A stale verifier from an earlier aborted attempt is overwritten.
func (c *Client) BeginLogin(creds *Credentials) (string, error) {
	verifier, err := protocol.GenerateVerifier(protocol.VerifierLength)
	if err != nil {
		return "", fmt.Errorf("generate code verifier: %w", err)
	}
	creds.CodeVerifier = verifier

	return c.oauth2Config.AuthCodeURL("",
		oauth2.SetAuthURLParam("code_challenge", protocol.DeriveChallenge(verifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	), nil
}

// ExchangeCode trades an authorization code for tokens using the session's
// stored verifier. The verifier is a one-time secret: it is cleared no
// matter how the exchange ends, so a stale value can never be replayed.
func (c *Client) ExchangeCode(ctx context.Context, creds *Credentials, code string) error {
	verifier := creds.CodeVerifier
	creds.CodeVerifier = ""
	if verifier == "" {
		return ErrVerifierMissing
	}

	ctx, cancel := c.opContext(ctx)
	defer cancel()

	token, err := c.oauth2Config.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", verifier),
	)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return &TokenExchangeError{
				Code:        re.ErrorCode,
				Description: re.ErrorDescription,
				Detail:      strings.TrimSpace(string(re.Body)),
			}
		}
		return &TokenExchangeError{Detail: err.Error()}
	}

	creds.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		creds.RefreshToken = token.RefreshToken
	}
	return nil
}

// FetchProfile retrieves the userinfo record with the given bearer token and
// stores it on the session.
func (c *Client) FetchProfile(ctx context.Context, creds *Credentials, accessToken string) (*Profile, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userinfoURL, nil)
	if err != nil {
		return nil, &ProfileFetchError{Detail: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProfileFetchError{Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProfileFetchError{StatusCode: resp.StatusCode, Detail: err.Error()}
	}
	if resp.StatusCode >= 300 {
		return nil, &ProfileFetchError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, &ProfileFetchError{StatusCode: resp.StatusCode, Detail: "userinfo response is not valid JSON"}
	}
	_ = json.Unmarshal(body, &profile.Raw)

	creds.Profile = &profile
	return &profile, nil
}

// LogoutURL builds the provider end-session URL with the client id and the
// post-logout landing page. Falls back to the landing page itself when the
// provider has no end-session endpoint.
func (c *Client) LogoutURL() string {
	if c.endSessionURL == "" {
		return c.postLogoutRedirect
	}
	return c.endSessionURL +
		"?client_id=" + url.QueryEscape(c.oauth2Config.ClientID) +
		"&post_logout_redirect_uri=" + url.QueryEscape(c.postLogoutRedirect)
}

// opContext attaches the configured HTTP client for oauth2 calls and applies
// the outbound request timeout.
func (c *Client) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

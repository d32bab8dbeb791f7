package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nexthaj/haj-portal/internal/auth"
)

// APIError is a non-auth backend failure, relayed to the front end with the
// backend's own status and body.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: request failed with status %d", e.StatusCode)
}

// Client calls the registration workflow API on behalf of a session. Every
// request goes through auth.Transport, which injects the bearer token and
// impersonation header and clears the session's credentials on 401.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a workflow API client. base is the underlying transport
// (nil means http.DefaultTransport).
func NewClient(baseURL string, base http.RoundTripper, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: &auth.Transport{Base: base},
			Timeout:   timeout,
		},
	}
}

// Dashboard fetches the citizen's registration record.
func (c *Client) Dashboard(ctx context.Context, creds *auth.Credentials) (*Registration, error) {
	raw, err := c.do(ctx, creds, http.MethodGet, "/api/v1/mobile/dashboard", nil)
	if err != nil {
		return nil, err
	}
	reg := &Registration{}
	if err := json.Unmarshal(raw, reg); err != nil {
		return nil, fmt.Errorf("backend: decode dashboard response: %w", err)
	}
	reg.Raw = raw
	return reg, nil
}

// UpdateContactInfo submits the citizen's contact details.
func (c *Client) UpdateContactInfo(ctx context.Context, creds *auth.Credentials, info ContactInfo) (json.RawMessage, error) {
	body := map[string]any{"contact_info": info}
	return c.do(ctx, creds, http.MethodPut, "/api/v1/mobile/contact_info", body)
}

// Bill downloads the payment bill document (PDF). Returns the document bytes
// and the content type reported by the backend.
func (c *Client) Bill(ctx context.Context, creds *auth.Credentials) ([]byte, string, error) {
	req, err := c.newRequest(ctx, creds, http.MethodGet, "/api/v1/mobile/bill", nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("backend: fetch bill: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("backend: read bill response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, "", auth.ErrAuthenticationExpired
	}
	if resp.StatusCode >= 300 {
		return nil, "", &APIError{StatusCode: resp.StatusCode, Body: data}
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// MarkPaid records that the citizen settled the bill at the treasury.
func (c *Client) MarkPaid(ctx context.Context, creds *auth.Credentials) (json.RawMessage, error) {
	return c.do(ctx, creds, http.MethodPost, "/api/v1/mobile/mark_paid", nil)
}

// Conditions fetches the pilgrimage conditions document.
func (c *Client) Conditions(ctx context.Context, creds *auth.Credentials) (json.RawMessage, error) {
	return c.do(ctx, creds, http.MethodGet, "/api/v1/mobile/conditions", nil)
}

// AcceptConditions records the citizen's acceptance of the conditions.
func (c *Client) AcceptConditions(ctx context.Context, creds *auth.Credentials) (json.RawMessage, error) {
	return c.do(ctx, creds, http.MethodPost, "/api/v1/mobile/accept_conditions", nil)
}

// SubmitPassport registers the citizen's passport number. The number is
// normalized the way the original form did: trimmed and upper-cased.
func (c *Client) SubmitPassport(ctx context.Context, creds *auth.Credentials, passportNumber string) (json.RawMessage, error) {
	body := map[string]any{
		"passport_number": strings.ToUpper(strings.TrimSpace(passportNumber)),
	}
	return c.do(ctx, creds, http.MethodPost, "/api/v1/mobile/submit_passport", body)
}

// CompleteSubscription confirms the physical passport hand-over.
func (c *Client) CompleteSubscription(ctx context.Context, creds *auth.Credentials) (json.RawMessage, error) {
	return c.do(ctx, creds, http.MethodPost, "/api/v1/mobile/complete_subscription", nil)
}

// Companions lists the citizen's registered travel companions.
func (c *Client) Companions(ctx context.Context, creds *auth.Credentials) (json.RawMessage, error) {
	return c.do(ctx, creds, http.MethodGet, "/api/v1/mobile/companions", nil)
}

// AddCompanion links another registered pilgrim as a companion.
func (c *Client) AddCompanion(ctx context.Context, creds *auth.Credentials, companionNNI string) (json.RawMessage, error) {
	body := map[string]any{"companion_nni": companionNNI}
	return c.do(ctx, creds, http.MethodPost, "/api/v1/mobile/companions", body)
}

// RemoveCompanion unlinks a companion by ID.
func (c *Client) RemoveCompanion(ctx context.Context, creds *auth.Credentials, companionID string) (json.RawMessage, error) {
	return c.do(ctx, creds, http.MethodDelete, "/api/v1/mobile/companions/"+url.PathEscape(companionID), nil)
}

// SearchCompanion looks up a pilgrim by NNI for companion linking.
func (c *Client) SearchCompanion(ctx context.Context, creds *auth.Credentials, nni string) (json.RawMessage, error) {
	body := map[string]any{"nni": strings.TrimSpace(nni)}
	return c.do(ctx, creds, http.MethodPost, "/api/v1/mobile/companions/search", body)
}

func (c *Client) newRequest(ctx context.Context, creds *auth.Credentials, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("backend: encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(auth.WithCredentials(ctx, creds), method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(ctx context.Context, creds *auth.Credentials, method, path string, body any) (json.RawMessage, error) {
	req, err := c.newRequest(ctx, creds, method, path, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: read response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, auth.ErrAuthenticationExpired
	}
	if resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: data}
	}
	return json.RawMessage(data), nil
}

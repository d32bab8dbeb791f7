package portal

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nexthaj/haj-portal/internal/auth"
	"github.com/nexthaj/haj-portal/internal/backend"
	"github.com/nexthaj/haj-portal/internal/config"
	"github.com/nexthaj/haj-portal/internal/protocol"
)

const (
	loginPath     = "/login"
	dashboardPath = "/dashboard"
)

// Handler is the portal's HTTP surface: the login/callback/logout flow, the
// session endpoints and the authenticated pass-through to the registration
// backend.
type Handler struct {
	cfg      *config.Config
	store    auth.Store
	oidc     *auth.Client
	resolver *auth.Resolver
	backend  *backend.Client
}

// NewHandler wires the portal handlers together.
func NewHandler(cfg *config.Config, store auth.Store, oidcClient *auth.Client, backendClient *backend.Client) *Handler {
	return &Handler{
		cfg:      cfg,
		store:    store,
		oidc:     oidcClient,
		resolver: auth.NewResolver(oidcClient),
		backend:  backendClient,
	}
}

// RegisterRoutes registers the portal routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc(loginPath, h.handleLogin)
	mux.HandleFunc(h.cfg.OIDC.CallbackPath, h.handleCallback)
	mux.HandleFunc("/logout", h.handleLogout)
	mux.HandleFunc(h.cfg.OIDC.PostLogoutPath, h.handleLoggedOut)
	mux.HandleFunc("/session", h.handleSession)
	mux.HandleFunc(dashboardPath, h.requireAuth(h.handleDashboard))
	mux.HandleFunc("/debug/impersonate", h.handleImpersonate)
	mux.HandleFunc("/api/v1/mobile/", h.handleAPI)
}

// requireAuth gates a page route on a stored credential. Unauthenticated
// visitors get a one-time redirect to login; login itself only redirects to
// the dashboard when authenticated, and both checks read the same store, so
// the pair cannot loop.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.sessionCreds(r).Authenticated() {
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}
		next(w, r)
	}
}

// sessionCreds resolves the request's session cookie to stored credentials,
// or nil.
func (h *Handler) sessionCreds(r *http.Request) *auth.Credentials {
	cookie, err := r.Cookie(auth.SessionCookie)
	if err != nil {
		return nil
	}
	return h.store.Get(cookie.Value)
}

// ensureSession returns the session ID and credentials for the request,
// creating a fresh session (and cookie) when none exists.
func (h *Handler) ensureSession(w http.ResponseWriter, r *http.Request) (string, *auth.Credentials, error) {
	if cookie, err := r.Cookie(auth.SessionCookie); err == nil {
		if creds := h.store.Get(cookie.Value); creds != nil {
			return cookie.Value, creds, nil
		}
	}

	id, err := protocol.RandomHex(32)
	if err != nil {
		return "", nil, err
	}
	creds := &auth.Credentials{}
	h.store.Put(id, creds)

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: sameSiteMode(r),
	})
	return id, creds, nil
}

// handleLogin is the login entry point. An authenticated visitor is sent to
// the dashboard; anyone else is redirected to the identity provider. The
// redirect makes duplicate submission impossible: the page is gone before a
// second click can land.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	id, creds, err := h.ensureSession(w, r)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if creds.Authenticated() {
		http.Redirect(w, r, dashboardPath, http.StatusFound)
		return
	}

	authURL, err := h.oidc.BeginLogin(creds)
	if err != nil {
		slog.Error("failed to start login flow", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// The verifier must be durably stored before the browser leaves.
	h.store.Put(id, creds)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleCallback resolves the return from the identity provider (or from a
// host application) to exactly one of: dashboard, login, or a terminal
// error view.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	id, creds, err := h.ensureSession(w, r)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	outcome := h.resolver.Resolve(r.Context(), r, creds)
	h.store.Put(id, creds)

	switch outcome.Kind {
	case auth.OutcomeDashboard:
		http.Redirect(w, r, dashboardPath, http.StatusFound)
	case auth.OutcomeError:
		h.renderAuthError(w, outcome)
	default:
		http.Redirect(w, r, loginPath, http.StatusFound)
	}
}

// handleLogout clears the session's credentials and sends the browser to the
// provider's end-session endpoint. Confirmation, if any, happens in the
// front end before this route is hit.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if creds := h.sessionCreds(r); creds != nil {
		creds.ClearAuth()
	}
	http.Redirect(w, r, h.oidc.LogoutURL(), http.StatusFound)
}

// handleLoggedOut is the post-logout landing page the provider redirects to.
// It clears any leftovers in case the session was not cleaned up before the
// provider round-trip.
func (h *Handler) handleLoggedOut(w http.ResponseWriter, r *http.Request) {
	if creds := h.sessionCreds(r); creds != nil {
		creds.ClearAuth()
	}
	writeJSON(w, http.StatusOK, map[string]any{"logged_out": true})
}

// handleSession reports the session state to the front end: the BFF
// substitute for the SPA reading its own local storage.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	creds := h.sessionCreds(r)
	if !creds.Authenticated() {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	resp := map[string]any{
		"authenticated": true,
		"profile":       creds.Profile,
	}
	if creds.ImpersonatedNNI != "" {
		resp["impersonated_nni"] = creds.ImpersonatedNNI
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	creds := h.sessionCreds(r)
	reg, err := h.backend.Dashboard(r.Context(), creds)
	if err != nil {
		h.writeAPIError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(reg.Raw)
}

// handleImpersonate sets or clears the debug NNI override. The allow-list
// only gates the portal-side toggle; the backend must enforce the real
// authorization for the forwarded header.
func (h *Handler) handleImpersonate(w http.ResponseWriter, r *http.Request) {
	creds := h.sessionCreds(r)
	if !creds.Authenticated() {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "authentication_required", "redirect": loginPath})
		return
	}
	if creds.Profile == nil || !h.cfg.Debug.IsAdmin(creds.Profile.NNI) {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "impersonation_not_permitted"})
		return
	}

	switch r.Method {
	case http.MethodPost:
		var body struct {
			NNI string `json:"nni"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
			return
		}
		creds.ImpersonatedNNI = strings.TrimSpace(body.NNI)
		slog.Info("impersonation updated", "admin_nni", creds.Profile.NNI, "target_nni", creds.ImpersonatedNNI)
	case http.MethodDelete:
		creds.ImpersonatedNNI = ""
		slog.Info("impersonation cleared", "admin_nni", creds.Profile.NNI)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"impersonated_nni": creds.ImpersonatedNNI})
}

// handleAPI relays registration workflow calls to the backend with the
// session's credentials attached.
func (h *Handler) handleAPI(w http.ResponseWriter, r *http.Request) {
	creds := h.sessionCreds(r)
	if !creds.Authenticated() {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "authentication_required", "redirect": loginPath})
		return
	}

	ctx := r.Context()
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/mobile/")

	var (
		raw json.RawMessage
		err error
	)
	switch {
	case rest == "dashboard" && r.Method == http.MethodGet:
		var reg *backend.Registration
		if reg, err = h.backend.Dashboard(ctx, creds); err == nil {
			raw = reg.Raw
		}
	case rest == "contact_info" && r.Method == http.MethodPut:
		var body struct {
			ContactInfo backend.ContactInfo `json:"contact_info"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		raw, err = h.backend.UpdateContactInfo(ctx, creds, body.ContactInfo)
	case rest == "bill" && r.Method == http.MethodGet:
		data, contentType, billErr := h.backend.Bill(ctx, creds)
		if billErr != nil {
			h.writeAPIError(w, billErr)
			return
		}
		if contentType == "" {
			contentType = "application/pdf"
		}
		w.Header().Set("Content-Type", contentType)
		w.Write(data)
		return
	case rest == "mark_paid" && r.Method == http.MethodPost:
		raw, err = h.backend.MarkPaid(ctx, creds)
	case rest == "conditions" && r.Method == http.MethodGet:
		raw, err = h.backend.Conditions(ctx, creds)
	case rest == "accept_conditions" && r.Method == http.MethodPost:
		raw, err = h.backend.AcceptConditions(ctx, creds)
	case rest == "submit_passport" && r.Method == http.MethodPost:
		var body struct {
			PassportNumber string `json:"passport_number"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		raw, err = h.backend.SubmitPassport(ctx, creds, body.PassportNumber)
	case rest == "complete_subscription" && r.Method == http.MethodPost:
		raw, err = h.backend.CompleteSubscription(ctx, creds)
	case rest == "companions" && r.Method == http.MethodGet:
		raw, err = h.backend.Companions(ctx, creds)
	case rest == "companions" && r.Method == http.MethodPost:
		var body struct {
			CompanionNNI string `json:"companion_nni"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		raw, err = h.backend.AddCompanion(ctx, creds, body.CompanionNNI)
	case rest == "companions/search" && r.Method == http.MethodPost:
		var body struct {
			NNI string `json:"nni"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		raw, err = h.backend.SearchCompanion(ctx, creds, body.NNI)
	case strings.HasPrefix(rest, "companions/") && r.Method == http.MethodDelete:
		raw, err = h.backend.RemoveCompanion(ctx, creds, strings.TrimPrefix(rest, "companions/"))
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		h.writeAPIError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

func (h *Handler) writeAPIError(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrAuthenticationExpired) {
		// Credentials were already cleared by the transport; tell the front
		// end to leave for login.
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "authentication_expired", "redirect": loginPath})
		return
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		w.WriteHeader(apiErr.StatusCode)
		w.Write(apiErr.Body)
		return
	}
	slog.Error("backend request failed", "error", err)
	writeJSON(w, http.StatusBadGateway, map[string]any{"error": "backend_unavailable"})
}

const authErrorPage = `<!DOCTYPE html>
<html lang="ar" dir="rtl">
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>Authentication error</title></head>
<body>
<h1>Authentication error</h1>
<p>%s</p>
<p><small>source: %s</small></p>
%s
</body>
</html>
`

// renderAuthError shows the terminal error view for a failed callback. A
// failed code exchange surfaces the provider's description instead of
// silently bouncing to login, so the citizen (and support) can see what
// went wrong.
func (h *Handler) renderAuthError(w http.ResponseWriter, outcome auth.Outcome) {
	retry := ""
	if outcome.Retryable {
		retry = `<p><a href="` + loginPath + `">Try signing in again</a></p>`
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, authErrorPage,
		protocol.HTMLEscape(outcome.Message),
		protocol.HTMLEscape(outcome.Source),
		retry,
	)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func sameSiteMode(r *http.Request) http.SameSite {
	if isHTTPS(r) {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

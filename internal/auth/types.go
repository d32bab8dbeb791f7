package auth

// Profile is the userinfo record for the signed-in citizen. The typed fields
// cover what the portal itself reads; Raw keeps the full claim set for the
// front end.
type Profile struct {
	Subject    string `json:"sub"`
	NNI        string `json:"nni"`
	FullNameAr string `json:"full_name_ar"`
	FullNameFr string `json:"full_name_fr"`
	Email      string `json:"email"`
	Phone      string `json:"phone_number"`
	BirthDate  string `json:"birth_date"`

	Raw map[string]any `json:"-"`
}

// Credentials is the per-session credential bundle.
//
// CodeVerifier is ephemeral: it lives only between the authorization redirect
// and the callback, and is cleared unconditionally once an exchange is
// attempted. Tokens and profile persist until logout or a 401 from the
// backend. ImpersonatedNNI is a debug override that survives ClearAuth, the
// same way the original portal kept it outside the auth data.
type Credentials struct {
	CodeVerifier    string
	AccessToken     string
	RefreshToken    string
	Profile         *Profile
	ImpersonatedNNI string
}

// Authenticated reports whether a usable credential is stored. A non-empty
// access token is the sole definition of "authenticated"; no expiry or
// signature check happens client-side, staleness is discovered via a server
// rejection.
func (c *Credentials) Authenticated() bool {
	return c != nil && c.AccessToken != ""
}

// ClearAuth removes tokens, profile and any pending code verifier in one
// step. Called on logout and on any authentication failure.
func (c *Credentials) ClearAuth() {
	c.CodeVerifier = ""
	c.AccessToken = ""
	c.RefreshToken = ""
	c.Profile = nil
}

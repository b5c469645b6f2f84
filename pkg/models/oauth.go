package models

// OAuthConnection is the stubbed response of POST /api/oauth/{provider}/start.
// No token exchange happens; the caller is handed a URL and an opaque state.
type OAuthConnection struct {
	Provider string `json:"provider"`
	AuthURL  string `json:"auth_url"`
	State    string `json:"state"`
}

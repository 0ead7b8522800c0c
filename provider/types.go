package provider

// TokenExchangeResult is the token endpoint response. It only lives for the
// duration of a callback request and is never persisted.
type TokenExchangeResult struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
	// ExpiresIn is the access token lifetime in seconds
	ExpiresIn int64  `json:"expires_in,omitempty"`
	Scope     string `json:"scope,omitempty"`
	IDToken   string `json:"id_token,omitempty"`
}

// Profile is the user's provider profile, the only artifact written to the session.
type Profile struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`
}

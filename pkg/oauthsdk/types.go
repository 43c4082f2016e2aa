package oauthsdk

// ErrorResponse is the JSON body of every error the provider returns.
type ErrorResponse struct {
	Error            string `json:"error" example:"invalid_grant"`
	ErrorDescription string `json:"error_description" example:"authorization code is invalid or expired"`
}

// TokenResponse is returned by POST /oauth/token for both the
// authorization_code and refresh_token grants.
type TokenResponse struct {
	AccessToken  string `json:"access_token" example:"q8H1x...RrA"`
	RefreshToken string `json:"refresh_token,omitempty" example:"Zt0p...b9c"`
	TokenType    string `json:"token_type" example:"Bearer"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int    `json:"expires_in" example:"3600"`
	Scope     string `json:"scope,omitempty" example:"user:read user:email"`
}

// UserInfoResponse is returned by GET /oauth/userinfo. Only ID is always
// present; the rest depend on the scopes the token was granted.
type UserInfoResponse struct {
	ID string `json:"id" example:"01HZX3J4Q7W6K2C1B8N9M0P5RT"`

	// user:read
	Username    string `json:"username,omitempty" example:"salto"`
	DisplayName string `json:"displayName,omitempty" example:"Salto"`
	Avatar      string `json:"avatar,omitempty" example:"https://cdn.example.com/a.png"`

	// user:email
	Email string `json:"email,omitempty" example:"salto@example.com"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status" example:"ok"`
	Uptime  string        `json:"uptime,omitempty" example:"1h23m45s"`
	Version string        `json:"version,omitempty" example:"1.0.0"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency /readyz probed.
type HealthChecks struct {
	Database string `json:"database" example:"ok"`
	Cache    string `json:"cache" example:"ok"`
}

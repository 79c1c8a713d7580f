package transfer

// TokenResponse is the JSON body every supported token endpoint returns on
// success. Fields beyond the standard trio are platform extensions and are
// ignored here.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// TokenErrorResponse is the RFC 6749 error body returned by token endpoints.
type TokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

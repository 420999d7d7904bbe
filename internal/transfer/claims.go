package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	WorkspaceID string `json:"workspace_id"`
	jwt.RegisteredClaims
}

// OAuthState is the payload round-tripped through the provider's state
// parameter: which workspace initiated the handshake, where to send the
// browser afterwards, and the PKCE verifier the token exchange must
// present. It travels as a signed token, never as loose values.
type OAuthState struct {
	WorkspaceID string `json:"workspace_id"`
	ReturnTo    string `json:"return_to"`
	Nonce       string `json:"nonce"`
	Verifier    string `json:"verifier,omitempty"`
	jwt.RegisteredClaims
}

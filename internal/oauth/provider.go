// provider.go -- OIDC provider interface and shared types.
// Provider-specific logic lives in azuread.go.
package oauth

import (
	"context"
	"errors"
)

// ErrNoSubject is returned by Exchange when the verified ID token carries no
// usable subject identifier. Authentication cannot proceed without a stable
// key for the identity cache.
var ErrNoSubject = errors.New("oauth: no subject identifier in profile")

// Claims holds the verified identity claims and credential material returned
// by a provider after a successful code exchange.
// AccessToken and RefreshToken are secrets -- never log them.
type Claims struct {
	Subject      string // provider-specific stable user ID ("oid" for Azure AD)
	DisplayName  string
	Username     string // preferred_username, usually the sign-in address
	AccessToken  string // bearer token for downstream Graph calls
	RefreshToken string
}

// Provider is an OIDC identity provider consumed via the authorization code
// flow. PKCE (RFC 7636) is required: callers pass the code_challenge to
// AuthCodeURL and the matching code_verifier to Exchange.
type Provider interface {
	// AuthCodeURL returns the consent page URL with state and PKCE
	// code_challenge embedded.
	AuthCodeURL(state, codeChallenge string) string

	// Exchange trades the authorization code for verified identity claims
	// plus the tokens issued alongside them.
	Exchange(ctx context.Context, code, codeVerifier string) (*Claims, error)
}

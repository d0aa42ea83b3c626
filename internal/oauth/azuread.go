// azuread.go -- Microsoft identity platform (Azure AD v2.0) OIDC provider.
package oauth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// AzureIssuer returns the v2.0 issuer URL for a directory tenant.
// tenant may be a tenant ID, a verified domain, or "common"/"organizations".
func AzureIssuer(tenant string) string {
	return "https://login.microsoftonline.com/" + tenant + "/v2.0"
}

// AzureConfig holds the app registration credentials for NewAzureProvider.
// Issuer is normally AzureIssuer(tenant); sovereign clouds and tests point it
// elsewhere.
type AzureConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// AzureProvider implements Provider using OIDC discovery + the OAuth2 code
// flow against the Microsoft identity platform. PKCE (S256) is used for all
// authorization requests.
type AzureProvider struct {
	config   *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewAzureProvider creates an AzureProvider by fetching the issuer's OIDC
// discovery document. Makes an outbound HTTP request at startup; returns an
// error if the issuer is unreachable.
//
// The scopes cover sign-in plus the two Graph operations the app performs:
// profile lookup (User.Read) and sending mail as the user (Mail.Send).
// offline_access asks for a refresh token.
func NewAzureProvider(ctx context.Context, cfg AzureConfig) (*AzureProvider, error) {
	p, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("azure oidc discovery: %w", err)
	}
	return &AzureProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     p.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "offline_access", "User.Read", "Mail.Send"},
		},
		verifier: p.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// AuthCodeURL builds the consent page URL with state and PKCE S256 challenge embedded.
func (p *AzureProvider) AuthCodeURL(state, codeChallenge string) string {
	return p.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// Exchange trades an authorization code for verified identity claims.
// Verifies the returned ID token signature against the issuer's JWKS, checks
// aud + exp, and requires a subject identifier: the directory object ID
// ("oid") when present, else the token "sub". Fails with ErrNoSubject when
// neither is present.
func (p *AzureProvider) Exchange(ctx context.Context, code, codeVerifier string) (*Claims, error) {
	token, err := p.config.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("exchanging code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("no id_token in token response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verifying id token: %w", err)
	}

	var c struct {
		OID               string `json:"oid"`
		Sub               string `json:"sub"`
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := idToken.Claims(&c); err != nil {
		return nil, fmt.Errorf("extracting id token claims: %w", err)
	}

	// oid is stable across the whole directory; sub is only stable per app
	// registration. Prefer oid, as the original Azure AD samples do.
	subject := c.OID
	if subject == "" {
		subject = c.Sub
	}
	if subject == "" {
		return nil, ErrNoSubject
	}

	return &Claims{
		Subject:      subject,
		DisplayName:  c.Name,
		Username:     c.PreferredUsername,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}, nil
}

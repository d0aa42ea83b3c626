// idp.go
//
// Fake OIDC identity provider for tests. Serves a discovery document, a JWKS
// endpoint, and a token endpoint that issues RS256-signed ID tokens, so the
// real go-oidc verification path runs against a local server instead of the
// Microsoft identity platform.
package testutil

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// IDP is a minimal in-process identity provider.
// Configure the claims of the next ID token with SetClaims; zero-config
// instances issue a default test identity.
type IDP struct {
	Server   *httptest.Server
	ClientID string

	// AccessToken and RefreshToken are returned verbatim from the token
	// endpoint, so tests can assert they reached the cache.
	AccessToken  string
	RefreshToken string

	key *rsa.PrivateKey

	mu            sync.Mutex
	claims        map[string]any
	tokenRequests int
}

// NewIDP starts a fake provider issuing tokens for clientID.
// Callers own shutdown via Close.
func NewIDP(clientID string) (*IDP, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generating idp key: %w", err)
	}

	p := &IDP{
		ClientID:     clientID,
		AccessToken:  "test-access-token",
		RefreshToken: "test-refresh-token",
		key:          key,
		claims: map[string]any{
			"oid":                "default-oid",
			"sub":                "default-sub",
			"name":               "Test User",
			"preferred_username": "test.user@contoso.example",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", p.handleDiscovery)
	mux.HandleFunc("/keys", p.handleJWKS)
	mux.HandleFunc("/token", p.handleToken)
	p.Server = httptest.NewServer(mux)
	return p, nil
}

// Close shuts the provider down.
func (p *IDP) Close() { p.Server.Close() }

// Issuer returns the issuer URL the provider announces in discovery.
func (p *IDP) Issuer() string { return p.Server.URL }

// SetClaims replaces the identity claims embedded in subsequently issued ID
// tokens. Registered claims (iss, aud, exp, iat) are always added on top.
func (p *IDP) SetClaims(claims map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.claims = claims
}

// TokenRequests reports how many code exchanges the provider has served.
func (p *IDP) TokenRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokenRequests
}

func (p *IDP) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"issuer":                                p.Server.URL,
		"authorization_endpoint":                p.Server.URL + "/authorize",
		"token_endpoint":                        p.Server.URL + "/token",
		"jwks_uri":                              p.Server.URL + "/keys",
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (p *IDP) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	pub := p.key.Public().(*rsa.PublicKey)
	writeJSON(w, map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"kid": "test-key",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

func (p *IDP) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	p.mu.Lock()
	p.tokenRequests++
	claims := map[string]any{
		"iss": p.Server.URL,
		"aud": p.ClientID,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	for k, v := range p.claims {
		claims[k] = v
	}
	p.mu.Unlock()

	writeJSON(w, map[string]any{
		"access_token":  p.AccessToken,
		"token_type":    "Bearer",
		"expires_in":    3600,
		"refresh_token": p.RefreshToken,
		"id_token":      p.signIDToken(claims),
	})
}

// signIDToken produces a compact RS256 JWT over the given claims.
func (p *IDP) signIDToken(claims map[string]any) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","kid":"test-key","typ":"JWT"}`))
	payload, err := json.Marshal(claims)
	if err != nil {
		panic("marshaling id token claims: " + err.Error())
	}
	signingInput := header + "." + base64.RawURLEncoding.EncodeToString(payload)

	hashed := sha256.Sum256([]byte(signingInput))
	sig, err := rsa.SignPKCS1v15(rand.Reader, p.key, crypto.SHA256, hashed[:])
	if err != nil {
		panic("signing id token: " + err.Error())
	}
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic("encoding test response: " + err.Error())
	}
}

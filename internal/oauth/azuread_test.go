// azuread_test.go -- provider tests against an in-process fake issuer.
package oauth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/isabella232/graphmail/internal/testutil"
)

const testClientID = "test-client-id"

// newTestProvider runs discovery against a fake issuer.
func newTestProvider(t *testing.T, idp *testutil.IDP) *AzureProvider {
	t.Helper()
	p, err := NewAzureProvider(context.Background(), AzureConfig{
		Issuer:       idp.Issuer(),
		ClientID:     idp.ClientID,
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost/token",
	})
	if err != nil {
		t.Fatalf("NewAzureProvider: %v", err)
	}
	return p
}

func newTestIDP(t *testing.T) *testutil.IDP {
	t.Helper()
	idp, err := testutil.NewIDP(testClientID)
	if err != nil {
		t.Fatalf("starting fake idp: %v", err)
	}
	t.Cleanup(idp.Close)
	return idp
}

func TestAzureIssuer(t *testing.T) {
	got := AzureIssuer("common")
	want := "https://login.microsoftonline.com/common/v2.0"
	if got != want {
		t.Errorf("issuer: expected %q, got %q", want, got)
	}
}

// TestAuthCodeURL verifies state and the PKCE challenge land in the consent URL.
func TestAuthCodeURL(t *testing.T) {
	p := newTestProvider(t, newTestIDP(t))

	u := p.AuthCodeURL("state-123", "challenge-456")
	for _, want := range []string{
		"state=state-123",
		"code_challenge=challenge-456",
		"code_challenge_method=S256",
		"scope=openid+profile+offline_access+User.Read+Mail.Send",
	} {
		if !strings.Contains(u, want) {
			t.Errorf("auth url: expected %q in %q", want, u)
		}
	}
}

// TestExchange_PrefersOID verifies the directory object ID wins over "sub".
func TestExchange_PrefersOID(t *testing.T) {
	idp := newTestIDP(t)
	idp.SetClaims(map[string]any{
		"oid":                "oid-1",
		"sub":                "sub-1",
		"name":               "Ada Lovelace",
		"preferred_username": "ada@contoso.example",
	})
	p := newTestProvider(t, idp)

	claims, err := p.Exchange(context.Background(), "code", "verifier")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if claims.Subject != "oid-1" {
		t.Errorf("subject: expected oid-1, got %q", claims.Subject)
	}
	if claims.DisplayName != "Ada Lovelace" || claims.Username != "ada@contoso.example" {
		t.Errorf("profile claims: got %+v", claims)
	}
	if claims.AccessToken != idp.AccessToken || claims.RefreshToken != idp.RefreshToken {
		t.Errorf("tokens: got access=%q refresh=%q", claims.AccessToken, claims.RefreshToken)
	}
}

// TestExchange_FallsBackToSub covers tokens without an "oid" claim.
func TestExchange_FallsBackToSub(t *testing.T) {
	idp := newTestIDP(t)
	idp.SetClaims(map[string]any{"sub": "sub-only"})
	p := newTestProvider(t, idp)

	claims, err := p.Exchange(context.Background(), "code", "verifier")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if claims.Subject != "sub-only" {
		t.Errorf("subject: expected sub-only, got %q", claims.Subject)
	}
}

// TestExchange_NoSubject expects ErrNoSubject when neither identifier is present.
func TestExchange_NoSubject(t *testing.T) {
	idp := newTestIDP(t)
	idp.SetClaims(map[string]any{"name": "No Identifier"})
	p := newTestProvider(t, idp)

	_, err := p.Exchange(context.Background(), "code", "verifier")
	if !errors.Is(err, ErrNoSubject) {
		t.Errorf("expected ErrNoSubject, got %v", err)
	}
}

// TestExchange_WrongAudience expects verification to fail when the token was
// minted for a different client.
func TestExchange_WrongAudience(t *testing.T) {
	idp := newTestIDP(t)
	p, err := NewAzureProvider(context.Background(), AzureConfig{
		Issuer:       idp.Issuer(),
		ClientID:     "different-client",
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost/token",
	})
	if err != nil {
		t.Fatalf("NewAzureProvider: %v", err)
	}

	if _, err := p.Exchange(context.Background(), "code", "verifier"); err == nil {
		t.Error("expected verification error for wrong audience")
	}
}

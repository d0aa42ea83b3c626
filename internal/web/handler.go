// handler.go -- HTTP handlers for the sign-in and mail-send flows.
package web

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/isabella232/graphmail/internal/graph"
	"github.com/isabella232/graphmail/internal/identity"
	"github.com/isabella232/graphmail/internal/oauth"
)

// GraphClient defines the downstream Graph operations handlers need.
// Satisfied by *graph.Client.
type GraphClient interface {
	// GetUserEmail resolves the signed-in user's primary email address.
	GetUserEmail(ctx context.Context, accessToken string) (string, error)

	// SendEmail delivers msg on behalf of the signed-in user.
	SendEmail(ctx context.Context, accessToken string, msg *graph.Message) error
}

// Handler holds dependencies for all HTTP handlers and middleware.
// Everything is injected from main; there is no package-level state.
type Handler struct {
	Cache    *identity.Cache
	Sessions sessions.Store
	Provider oauth.Provider
	Graph    GraphClient

	// HomeURL is the absolute application root the logout redirect targets.
	HomeURL string
}

// oauthStateCookie is the payload stored in the state cookie during the
// OAuth round-trip.
type oauthStateCookie struct {
	State    string `json:"state"`
	Verifier string `json:"verifier"`
}

const stateCookieName = "__Host-oauth-state"

// Home handles GET / -- the mail-sender view for authenticated users, the
// login prompt for everyone else. When the cached record has no email yet,
// it is resolved through Graph once and written back to the cache.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)
	if user == nil {
		h.render(w, r, "login", viewData{})
		return
	}

	email := user.Email
	if email == "" {
		resolved, err := h.Graph.GetUserEmail(r.Context(), user.AccessToken)
		if err != nil {
			logError(r, "resolving user email failed", "error", err, "subject", user.SubjectID)
			h.renderError(w, r, err)
			return
		}
		if err := h.Cache.SetEmail(user.SubjectID, resolved); err != nil {
			// Record evicted between resolution and write-back (logout in
			// another tab). Still render with the address we just resolved.
			logWarn(r, "email resolved for evicted subject", "subject", user.SubjectID)
		}
		email = resolved
	}

	h.render(w, r, "emailSender", viewData{
		DisplayName: user.Profile.DisplayName,
		Email:       email,
	})
}

// Login handles GET /login -- generates PKCE + state, stores them in a
// short-lived HttpOnly cookie, and redirects to the provider's consent page.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var stateBytes, verifierBytes [32]byte
	if _, err := rand.Read(stateBytes[:]); err != nil {
		logError(r, "generating oauth state failed", "error", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if _, err := rand.Read(verifierBytes[:]); err != nil {
		logError(r, "generating pkce verifier failed", "error", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	state := base64.RawURLEncoding.EncodeToString(stateBytes[:])
	codeVerifier := base64.RawURLEncoding.EncodeToString(verifierBytes[:])
	challenge := sha256.Sum256([]byte(codeVerifier))
	codeChallenge := base64.RawURLEncoding.EncodeToString(challenge[:])

	setStateCookie(w, state, codeVerifier)
	http.Redirect(w, r, h.Provider.AuthCodeURL(state, codeChallenge), http.StatusFound)
}

// Token handles GET /token -- the OIDC callback. Verifies state, exchanges
// the authorization code for identity claims, binds the principal to the
// session, and lands on the home route. Every failure redirects home,
// leaving the request unauthenticated.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	// Read and immediately clear the state cookie to prevent replay.
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil {
		logWarn(r, "token callback: missing state cookie")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	clearStateCookie(w)

	rawJSON, err := base64.RawURLEncoding.DecodeString(stateCookie.Value)
	if err != nil {
		logWarn(r, "token callback: bad state cookie encoding", "error", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	var sc oauthStateCookie
	if err := json.Unmarshal(rawJSON, &sc); err != nil {
		logWarn(r, "token callback: bad state cookie json", "error", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	// Constant-time comparison prevents timing oracle on state value.
	if subtle.ConstantTimeCompare([]byte(sc.State), []byte(r.URL.Query().Get("state"))) != 1 {
		logWarn(r, "token callback: state mismatch")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	claims, err := h.Provider.Exchange(r.Context(), r.URL.Query().Get("code"), sc.Verifier)
	if err != nil {
		if errors.Is(err, oauth.ErrNoSubject) {
			logWarn(r, "token callback: profile has no subject identifier")
		} else {
			logWarn(r, "token callback: exchange failed", "error", err)
		}
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	// Insert-if-absent: for returning users the cached record wins over the
	// freshly issued data (tokens and a previously resolved email are kept).
	rec, created := h.Cache.Insert(&identity.UserRecord{
		SubjectID: claims.Subject,
		Profile: identity.Profile{
			DisplayName: claims.DisplayName,
			Username:    claims.Username,
		},
		AccessToken:  claims.AccessToken,
		RefreshToken: claims.RefreshToken,
	})

	if err := h.signIn(w, r, rec.SubjectID); err != nil {
		logError(r, "token callback: saving session failed", "error", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	logInfo(r, "user signed in", "subject", rec.SubjectID, "new_user", created)
	http.Redirect(w, r, "/", http.StatusFound)
}

// SendEmail handles POST /emailSender -- builds the demo mail from the
// display name plus the form's freeform recipient and sends it via Graph.
func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		logError(r, "send email called without user in context")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		logWarn(r, "send email: bad form body", "error", err)
		h.renderError(w, r, errors.New("could not read the submitted form"))
		return
	}
	recipient := r.PostFormValue("input_email")
	if recipient == "" {
		h.renderError(w, r, errors.New("a recipient address is required"))
		return
	}

	msg := graph.NewMailMessage(user.Profile.DisplayName, recipient)
	if err := h.Graph.SendEmail(r.Context(), user.AccessToken, msg); err != nil {
		logError(r, "sending email failed", "error", err, "subject", user.SubjectID)
		h.renderError(w, r, err)
		return
	}

	logInfo(r, "email sent", "subject", user.SubjectID)
	h.render(w, r, "emailSender", viewData{
		DisplayName: user.Profile.DisplayName,
		Email:       user.Email,
		Status:      "success",
	})
}

// Logout handles GET /logout -- evicts the cache entry, destroys the session,
// clears the cookie, and redirects to the application root.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	h.Cache.Remove(user.SubjectID)
	if err := h.signOut(w, r); err != nil {
		logWarn(r, "logout: saving destroyed session failed", "error", err)
	}

	logInfo(r, "user signed out", "subject", user.SubjectID)
	http.Redirect(w, r, h.HomeURL, http.StatusFound)
}

// setStateCookie stores state + PKCE verifier in a short-lived HttpOnly cookie.
func setStateCookie(w http.ResponseWriter, state, verifier string) {
	payload, _ := json.Marshal(oauthStateCookie{State: state, Verifier: verifier})
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600, // 10 minutes
	})
}

// clearStateCookie expires the OAuth state cookie immediately.
func clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

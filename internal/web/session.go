// session.go -- Session binding between the HTTP session and the identity cache.
//
// The session stores nothing but the subject identifier; the full record is
// reconstructed from the cache on every request. A cache miss (evicted by
// logout in another tab, or a process restart) yields no user and forces
// re-authentication.
package web

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/isabella232/graphmail/internal/identity"
)

// SessionName is the cookie the signed session rides in.
const SessionName = "graphNodeCookie"

// sessionSubjectKey is the only value serialized into the session.
const sessionSubjectKey = "sub"

// NewSessionStore returns the cookie store backing all sessions, signed with
// the process-wide secret. MaxAge 0 makes it a browser-session cookie.
// Secure + HttpOnly + Lax matches the hardening on the oauth state cookie.
func NewSessionStore(secret []byte) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   0,
	}
	return store
}

// signIn binds the principal to the HTTP session by its subject identifier.
func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, subjectID string) error {
	// Get never fails fatally: a bad or tampered cookie yields a fresh session.
	sess, _ := h.Sessions.Get(r, SessionName)
	sess.Values[sessionSubjectKey] = subjectID
	return sess.Save(r, w)
}

// signOut destroys the session and expires the cookie.
func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := h.Sessions.Get(r, SessionName)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// currentUser resolves the session to a cached record, or nil when the
// request is unauthenticated. Two-step resolution: deserialize the subject
// identifier, then look it up; a miss is treated as logged out.
func (h *Handler) currentUser(r *http.Request) *identity.UserRecord {
	sess, err := h.Sessions.Get(r, SessionName)
	if err != nil {
		// Tampered or stale-key cookie. Not an auth failure worth a 500.
		logDebug(r, "session decode failed", "error", err)
		return nil
	}
	subjectID, ok := sess.Values[sessionSubjectKey].(string)
	if !ok || subjectID == "" {
		return nil
	}
	rec, ok := h.Cache.Find(subjectID)
	if !ok {
		return nil
	}
	return rec
}

// graphserver.go
//
// Fake Microsoft Graph server for tests. Implements the /me profile lookup
// and /me/sendMail used by the app, with error injection knobs.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// SentMail records one sendMail request the fake server accepted.
type SentMail struct {
	Authorization string
	Body          json.RawMessage
}

// GraphServer is an in-process stand-in for the Graph API.
type GraphServer struct {
	Server *httptest.Server

	// Mail and UserPrincipalName populate the /me response.
	Mail              string
	UserPrincipalName string

	// FailLookup makes /me return 401 InvalidAuthenticationToken.
	FailLookup bool
	// FailSend, when non-empty, makes sendMail return 400 with this message.
	FailSend string

	mu        sync.Mutex
	sent      []SentMail
	meLookups int
}

// NewGraphServer starts a fake Graph server. Callers own shutdown via Close.
func NewGraphServer() *GraphServer {
	g := &GraphServer{
		Mail:              "test.user@contoso.example",
		UserPrincipalName: "test.user@contoso.example",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/me", g.handleMe)
	mux.HandleFunc("/me/sendMail", g.handleSendMail)
	g.Server = httptest.NewServer(mux)
	return g
}

// Close shuts the server down.
func (g *GraphServer) Close() { g.Server.Close() }

// URL returns the base URL to point a Graph client at.
func (g *GraphServer) URL() string { return g.Server.URL }

// Sent returns a copy of the accepted sendMail requests.
func (g *GraphServer) Sent() []SentMail {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]SentMail, len(g.sent))
	copy(out, g.sent)
	return out
}

// MeLookups reports how many profile lookups the server has served.
func (g *GraphServer) MeLookups() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.meLookups
}

func (g *GraphServer) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	g.mu.Lock()
	g.meLookups++
	g.mu.Unlock()
	if g.FailLookup {
		g.writeError(w, http.StatusUnauthorized, "InvalidAuthenticationToken", "Access token is empty.")
		return
	}
	writeJSON(w, map[string]any{
		"mail":              g.Mail,
		"userPrincipalName": g.UserPrincipalName,
	})
}

func (g *GraphServer) handleSendMail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if g.FailSend != "" {
		g.writeError(w, http.StatusBadRequest, "ErrorInvalidRecipients", g.FailSend)
		return
	}

	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		g.writeError(w, http.StatusBadRequest, "BadRequest", "invalid JSON body")
		return
	}

	g.mu.Lock()
	g.sent = append(g.sent, SentMail{
		Authorization: r.Header.Get("Authorization"),
		Body:          body,
	})
	g.mu.Unlock()

	w.WriteHeader(http.StatusAccepted)
}

func (g *GraphServer) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	}); err != nil {
		panic("encoding test response: " + err.Error())
	}
}

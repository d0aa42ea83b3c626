// client.go -- Minimal Microsoft Graph REST client.
//
// Only the two operations the app needs: resolving the signed-in user's
// email address and sending mail on their behalf. Calls are made with the
// user's delegated access token; there is no app-only auth and no retry.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/hashicorp/go-cleanhttp"
)

// DefaultBaseURL is the production Microsoft Graph endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// APIError is a non-2xx response from Graph, carrying the service's own
// error code and message when the body could be parsed.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("graph: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("graph: unexpected status %d", e.StatusCode)
}

// Client calls the Microsoft Graph REST API.
// Safe for concurrent use; construct once in main and share.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient returns a Client for the given base URL.
// Pass "" for the production endpoint; tests point this at a local server.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   cleanhttp.DefaultPooledClient(),
	}
}

// GetUserEmail resolves the signed-in user's primary email address via
// GET /me. Graph leaves "mail" unset for accounts without a mailbox
// configured, so fall back to userPrincipalName like the original sample.
func (c *Client) GetUserEmail(ctx context.Context, accessToken string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/me", accessToken, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}

	var me struct {
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return "", fmt.Errorf("decoding /me response: %w", err)
	}

	if me.Mail != "" {
		return me.Mail, nil
	}
	if me.UserPrincipalName != "" {
		return me.UserPrincipalName, nil
	}
	return "", fmt.Errorf("graph: /me returned no email address")
}

// SendEmail delivers msg as the signed-in user via POST /me/sendMail.
// Graph acknowledges accepted mail with 202 and an empty body.
func (c *Client) SendEmail(ctx context.Context, accessToken string, msg *Message) error {
	payload, err := json.Marshal(sendMailRequest{Message: msg, SaveToSentItems: true})
	if err != nil {
		return fmt.Errorf("marshaling sendMail request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/me/sendMail", accessToken, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return apiError(resp)
	}
	return nil
}

// do issues one authenticated request. Every call carries a fresh
// client-request-id so failures are correlatable in Graph-side diagnostics.
func (c *Client) do(ctx context.Context, method, path, accessToken string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("building graph request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id, err := uuid.NewV4(); err == nil {
		req.Header.Set("client-request-id", id.String())
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling graph %s %s: %w", method, path, err)
	}
	return resp, nil
}

// apiError reads a non-2xx response body into an APIError.
// Graph error bodies look like {"error":{"code":"...","message":"..."}}.
func apiError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	}
	return apiErr
}

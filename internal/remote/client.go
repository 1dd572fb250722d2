package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const maxErrorMessage = 200

// Client talks to the test execution REST API. Every call issues exactly
// one request; there are no retries and nothing is cached.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient returns a client for the API rooted at baseURL, e.g.
// http://localhost:8080/api/v1. A zero timeout leaves the transport default.
func NewClient(baseURL, token string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// WithToken returns a copy of the client authenticating as token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// HTTPError is returned for responses with an error status.
type HTTPError struct {
	Status  int
	Method  string
	Path    string
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Message)
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// do issues one request and returns the data member of the response
// envelope, or nil when the response carries none.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (json.RawMessage, error) {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode payload: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read response: %w", method, path, err)
	}
	c.log.Debug("remote request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &HTTPError{
			Status:  resp.StatusCode,
			Method:  method,
			Path:    path,
			Message: errorMessage(resp.Header.Get("Content-Type"), raw),
		}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, nil
	}
	return env.Data, nil
}

// errorMessage extracts a short description from an error response body.
// HTML pages from proxies and default error handlers are summarised by
// their title or first heading.
func errorMessage(contentType string, raw []byte) string {
	if strings.Contains(contentType, "html") {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
		if err == nil {
			for _, sel := range []string{"title", "h1", "body"} {
				if text := collapse(doc.Find(sel).First().Text()); text != "" {
					return truncate(text)
				}
			}
		}
	}

	var env envelope
	if json.Unmarshal(raw, &env) == nil && env.Error != "" {
		return env.Error
	}
	return truncate(collapse(string(raw)))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most maxErrorMessage bytes on a rune boundary.
func truncate(s string) string {
	if len(s) <= maxErrorMessage {
		return s
	}
	n := maxErrorMessage
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Client is a thin HTTP client for the portal REST API.
// It handles Bearer token authentication, JSON marshaling, and waits out
// HTTP 429 responses with exponential backoff. Other failures are returned
// to the caller unchanged; user actions are never retried automatically.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	log        zerolog.Logger

	mu    sync.RWMutex
	token string
}

// NewClient creates a portal client rooted at baseURL
// (e.g., https://portal.example.edu).
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: 3,
		log:        log.With().Str("component", "portal").Logger(),
	}
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetToken replaces the bearer credential used for subsequent requests.
// An empty token sends unauthenticated requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer credential.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	return c.doJSON(ctx, http.MethodPost, path, body, result)
}

func (c *Client) put(ctx context.Context, path string, body, result interface{}) error {
	return c.doJSON(ctx, http.MethodPut, path, body, result)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// doJSON marshals body as JSON and decodes the response into result.
func (c *Client) doJSON(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	contentType := ""
	if body != nil {
		contentType = "application/json"
	}

	respBody, status, err := c.do(ctx, method, path, contentType, payload)
	if err != nil {
		return err
	}

	// No content to parse (e.g. 204).
	if result == nil || status == http.StatusNoContent || len(respBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf(
			"unmarshaling response from %s %s: %w",
			method, path, err,
		)
	}

	return nil
}

// do is the core HTTP method that builds the request, handles auth and
// rate limiting, and maps error statuses onto typed errors.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	contentType string,
	payload []byte,
) ([]byte, int, error) {
	url := c.baseURL + path
	token := c.Token()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, 0, fmt.Errorf("creating request: %w", err)
		}

		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		req.Header.Set("Accept", "application/json")
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, 0, fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, 0, fmt.Errorf("reading response body: %w", readErr)
		}

		c.log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Dur("elapsed", time.Since(start)).
			Msg("portal request")

		if resp.StatusCode == http.StatusTooManyRequests {
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf("rate limited (429) on %s %s", method, path)

			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized ||
			resp.StatusCode == http.StatusForbidden {
			return nil, resp.StatusCode, &AuthError{
				Status:  resp.StatusCode,
				Message: serverMessage(respBody, "authentication failed"),
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, resp.StatusCode, &APIError{
				Status:  resp.StatusCode,
				Method:  method,
				Path:    path,
				Message: serverMessage(respBody, http.StatusText(resp.StatusCode)),
				Fields:  serverFieldErrors(respBody),
			}
		}

		return respBody, resp.StatusCode, nil
	}

	return nil, 0, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}

// Package alerts drives a local audio-alert daemon over HTTP. It
// satisfies usecase.AlertEngine.
package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// setupRequest is the request shape for the daemon's setup endpoint.
type setupRequest struct {
	ResourceDir     string `json:"resource_dir"`
	CooldownSeconds int    `json:"cooldown_seconds"`
}

// setupResponse is the minimal response shape for the setup endpoint.
type setupResponse struct {
	Triggers []string `json:"triggers"`
}

// playRequest is the request shape for the daemon's play endpoint.
type playRequest struct {
	Trigger string `json:"trigger"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("alerts: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client talks to the alert daemon that owns the audio device.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates an alert daemon client for baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("alerts: base url must not be empty")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Setup points the daemon at resourceDir and returns the trigger names it
// discovered there. Safe to call again; the daemon reloads its catalog.
func (c *Client) Setup(ctx context.Context, resourceDir string, cooldown time.Duration) ([]string, error) {
	resourceDir = strings.TrimSpace(resourceDir)
	if resourceDir == "" {
		return nil, errors.New("alerts: resource dir must not be empty")
	}

	raw, err := c.postJSON(ctx, "/v1/setup", setupRequest{
		ResourceDir:     resourceDir,
		CooldownSeconds: int(cooldown.Round(time.Second).Seconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("alerts: setup failed: %w", err)
	}

	var parsed setupResponse
	if decErr := json.Unmarshal(raw, &parsed); decErr != nil {
		return nil, fmt.Errorf("alerts: decode setup response: %w", decErr)
	}
	if len(parsed.Triggers) == 0 {
		return nil, errors.New("alerts: daemon reported no triggers")
	}
	return parsed.Triggers, nil
}

// Play asks the daemon to play one trigger.
func (c *Client) Play(ctx context.Context, trigger string) error {
	trigger = strings.TrimSpace(trigger)
	if trigger == "" {
		return errors.New("alerts: trigger must not be empty")
	}
	if _, err := c.postJSON(ctx, "/v1/play", playRequest{Trigger: trigger}); err != nil {
		return fmt.Errorf("alerts: play %q failed: %w", trigger, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	u := c.baseURL + path
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if reqErr != nil {
		return nil, fmt.Errorf("create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")

	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        u,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

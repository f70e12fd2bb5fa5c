package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// chattersPageSize is the Helix maximum for one Get Chatters page.
const chattersPageSize = 1000

// maxChatterPages bounds pagination so a runaway cursor cannot stall a
// chat command.
const maxChatterPages = 10

// credsPayload is the expected JSON shape stored in SSM for the Helix
// credentials.
type credsPayload struct {
	Token    string `json:"token"`
	ClientID string `json:"client_id"`
}

// usersResponse is the minimal response shape of the Get Users endpoint.
type usersResponse struct {
	Data []struct {
		ID    string `json:"id"`
		Login string `json:"login"`
	} `json:"data"`
}

// chattersResponse is the minimal response shape of the Get Chatters endpoint.
type chattersResponse struct {
	Data []struct {
		UserID    string `json:"user_id"`
		UserLogin string `json:"user_login"`
	} `json:"data"`
	Pagination struct {
		Cursor string `json:"cursor"`
	} `json:"pagination"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("twitch: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client is a focused Helix client for chatter presence. It satisfies
// viewers.PresenceLister.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	getter      Getter
	paramPrefix string
	botUserID   string

	credsOnce sync.Once
	creds     credsPayload
	credsErr  error

	idMu       sync.Mutex
	channelIDs map[string]string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Helix presence client. Credentials are fetched from
// SSM on the first lookup and reused for the lifetime of the process.
// botUserID is the moderator identity the chatters endpoint requires.
func NewClient(ps Getter, paramPrefix, botUserID string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("twitch: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("twitch: parameter prefix must not be empty")
	}
	botUserID = strings.TrimSpace(botUserID)
	if botUserID == "" {
		return nil, errors.New("twitch: bot user id must not be empty")
	}
	c := &Client{
		baseURL:     "https://api.twitch.tv/helix",
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		getter:      ps,
		paramPrefix: paramPrefix,
		botUserID:   botUserID,
		channelIDs:  map[string]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CurrentPresence lists the logins currently connected to channel's chat.
func (c *Client) CurrentPresence(ctx context.Context, channel string) ([]string, error) {
	channel = strings.ToLower(strings.TrimSpace(channel))
	if channel == "" {
		return nil, errors.New("twitch: channel must not be empty")
	}

	broadcasterID, err := c.broadcasterID(ctx, channel)
	if err != nil {
		return nil, err
	}

	var logins []string
	cursor := ""
	for page := 0; page < maxChatterPages; page++ {
		resp, err := c.chattersPage(ctx, broadcasterID, cursor)
		if err != nil {
			return nil, err
		}
		for _, ch := range resp.Data {
			logins = append(logins, ch.UserLogin)
		}
		cursor = resp.Pagination.Cursor
		if cursor == "" {
			break
		}
	}
	return logins, nil
}

// broadcasterID resolves a channel login to its Helix user id, cached per
// process.
func (c *Client) broadcasterID(ctx context.Context, channel string) (string, error) {
	c.idMu.Lock()
	if id, ok := c.channelIDs[channel]; ok {
		c.idMu.Unlock()
		return id, nil
	}
	c.idMu.Unlock()

	u := c.endpoint("/users") + "?login=" + url.QueryEscape(channel)
	raw, err := c.getJSON(ctx, u)
	if err != nil {
		return "", fmt.Errorf("twitch: resolve channel %q: %w", channel, err)
	}

	var parsed usersResponse
	if decErr := json.Unmarshal(raw, &parsed); decErr != nil {
		return "", fmt.Errorf("twitch: decode users response: %w", decErr)
	}
	if len(parsed.Data) == 0 {
		return "", fmt.Errorf("twitch: unknown channel %q", channel)
	}
	id := parsed.Data[0].ID

	c.idMu.Lock()
	c.channelIDs[channel] = id
	c.idMu.Unlock()
	return id, nil
}

func (c *Client) chattersPage(ctx context.Context, broadcasterID, cursor string) (*chattersResponse, error) {
	q := url.Values{}
	q.Set("broadcaster_id", broadcasterID)
	q.Set("moderator_id", c.botUserID)
	q.Set("first", fmt.Sprint(chattersPageSize))
	if cursor != "" {
		q.Set("after", cursor)
	}

	raw, err := c.getJSON(ctx, c.endpoint("/chat/chatters")+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("twitch: list chatters: %w", err)
	}

	var parsed chattersResponse
	if decErr := json.Unmarshal(raw, &parsed); decErr != nil {
		return nil, fmt.Errorf("twitch: decode chatters response: %w", decErr)
	}
	return &parsed, nil
}

func (c *Client) endpoint(path string) string {
	base := strings.TrimRight(c.baseURL, "/")
	if base == "" {
		base = "https://api.twitch.tv/helix"
	}
	return base + path
}

func (c *Client) getJSON(ctx context.Context, u string) ([]byte, error) {
	creds, err := c.resolveCreds(ctx)
	if err != nil {
		return nil, err
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if reqErr != nil {
		return nil, fmt.Errorf("create request: %w", reqErr)
	}
	req.Header.Set("Authorization", "Bearer "+creds.Token)
	req.Header.Set("Client-Id", creds.ClientID)

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

// resolveCreds fetches the Helix credentials from SSM on the first call and
// returns the cached result on every subsequent call.
func (c *Client) resolveCreds(ctx context.Context) (credsPayload, error) {
	c.credsOnce.Do(func() {
		c.creds, c.credsErr = fetchCredsFromParamStore(ctx, c.getter, c.paramPrefix+"/twitch-credentials")
	})
	return c.creds, c.credsErr
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func fetchCredsFromParamStore(ctx context.Context, getter Getter, name string) (credsPayload, error) {
	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return credsPayload{}, fmt.Errorf("twitch: fetch credentials from paramstore: %w", err)
	}
	var cp credsPayload
	if err := json.Unmarshal([]byte(raw), &cp); err != nil {
		return credsPayload{}, fmt.Errorf("twitch: unmarshal paramstore credentials as JSON: %w", err)
	}
	if cp.Token == "" || cp.ClientID == "" {
		return credsPayload{}, errors.New("twitch: credentials missing token or client_id")
	}
	return cp, nil
}

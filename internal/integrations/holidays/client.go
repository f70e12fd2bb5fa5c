// Package holidays looks up public holidays via a Nager.Date compatible
// API. It satisfies usecase.HolidayClient.
package holidays

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const dateLayout = "2006-01-02"

// holidayEntry is the minimal response shape of the PublicHolidays endpoint.
type holidayEntry struct {
	Date      string `json:"date"`
	LocalName string `json:"localName"`
	Name      string `json:"name"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("holidays: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client fetches public holidays for one country and caches each year's
// calendar for the lifetime of the process. Holiday calendars do not
// change mid-stream, so the cache has no expiry.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	countryCode string

	mu    sync.Mutex
	years map[int][]holidayEntry
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

// NewClient creates a holiday client for countryCode (ISO 3166-1 alpha-2).
func NewClient(countryCode string, opts ...Option) (*Client, error) {
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	if len(countryCode) != 2 {
		return nil, errors.New("holidays: country code must be two letters")
	}
	c := &Client{
		baseURL:     "https://date.nager.at",
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		countryCode: countryCode,
		years:       map[int][]holidayEntry{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TodayHoliday reports the holiday falling on date, if any. lang "en"
// selects the English name, anything else the local name.
func (c *Client) TodayHoliday(ctx context.Context, date time.Time, lang string) (string, bool, error) {
	entries, err := c.yearEntries(ctx, date.Year())
	if err != nil {
		return "", false, err
	}

	day := date.Format(dateLayout)
	for _, e := range entries {
		if e.Date != day {
			continue
		}
		if strings.EqualFold(lang, "en") || e.LocalName == "" {
			return e.Name, true, nil
		}
		return e.LocalName, true, nil
	}
	return "", false, nil
}

func (c *Client) yearEntries(ctx context.Context, year int) ([]holidayEntry, error) {
	c.mu.Lock()
	cached, ok := c.years[year]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	u := fmt.Sprintf("%s/api/v3/PublicHolidays/%d/%s", strings.TrimRight(c.baseURL, "/"), year, c.countryCode)
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if reqErr != nil {
		return nil, fmt.Errorf("holidays: create request: %w", reqErr)
	}

	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("holidays: request failed: %w", doErr)
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

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("holidays: read response body: %w", err)
	}

	var entries []holidayEntry
	if decErr := json.Unmarshal(raw, &entries); decErr != nil {
		return nil, fmt.Errorf("holidays: decode response: %w", decErr)
	}

	c.mu.Lock()
	c.years[year] = entries
	c.mu.Unlock()
	return entries, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

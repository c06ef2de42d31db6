package httpx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// TransportError reports a network fault or a non-success HTTP status.
// StatusCode is zero when the request never produced a response.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client is the shared HTTP session. Cookies set by the site (or loaded
// from the cookie store) are carried across requests via the jar.
type Client struct {
	httpClient *http.Client
	userAgent  string
	dumper     *Dumper
}

// NewClient creates a session client. The per-request deadline comes from
// the caller's context; timeout is a backstop for callers that pass a
// context without one. A nil dumper disables failure dumps.
func NewClient(timeout time.Duration, dumper *Dumper) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		userAgent: defaultUserAgent,
		dumper:    dumper,
	}
}

// Timeout returns the whole-request backstop deadline.
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// SetCookies injects cookies (typically loaded from disk) for u's domain.
func (c *Client) SetCookies(u *url.URL, cookies []*http.Cookie) {
	c.httpClient.Jar.SetCookies(u, cookies)
}

// Cookies returns the session cookies currently held for u.
func (c *Client) Cookies(u *url.URL) []*http.Cookie {
	return c.httpClient.Jar.Cookies(u)
}

// ClearCookies drops all session cookies by replacing the jar.
func (c *Client) ClearCookies() {
	jar, _ := cookiejar.New(nil)
	c.httpClient.Jar = jar
}

// Get fetches rawURL and returns the response body. Non-2xx statuses and
// network faults return a *TransportError, after dumping the exchange.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, rawURL, "", nil)
}

// GetString is Get with the body decoded as a string.
func (c *Client) GetString(ctx context.Context, rawURL string) (string, error) {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// PostForm submits form-encoded values with optional extra headers.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodPost, rawURL, form.Encode(), headers)
}

func (c *Client) do(ctx context.Context, method, rawURL, body string, headers map[string]string) ([]byte, error) {
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")
	if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.dumper.DumpFailure(req, nil, nil, err)
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.dumper.DumpFailure(req, resp, nil, err)
		return nil, &TransportError{URL: rawURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		terr := &TransportError{URL: rawURL, StatusCode: resp.StatusCode}
		c.dumper.DumpFailure(req, resp, data, terr)
		return nil, terr
	}

	return data, nil
}

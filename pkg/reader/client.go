// Package reader is the HTTP client for the document-to-text service, which
// fetches a web page and returns its readable plain text.
package reader

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://r.jina.ai"

// Client extracts plain text from a URL.
type Client interface {
	Fetch(ctx context.Context, targetURL string) (string, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default service base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithKey sets the API key sent as a bearer token.
func WithKey(key string) Option {
	return func(c *httpClient) {
		c.key = key
	}
}

// WithTimeout overrides the per-fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

// WithMaxChars truncates extracted text to at most n characters.
func WithMaxChars(n int) Option {
	return func(c *httpClient) {
		c.maxChars = n
	}
}

type httpClient struct {
	baseURL  string
	key      string
	maxChars int
	http     *http.Client
}

// NewClient creates a reader service client. Extracted text is truncated to
// 3000 characters by default.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:  defaultBaseURL,
		maxChars: 3000,
		http: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fetch retrieves targetURL through the reader service and returns the
// extracted plain text, truncated to the configured cap.
func (c *httpClient) Fetch(ctx context.Context, targetURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+targetURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "reader: create request")
	}
	req.Header.Set("Accept", "text/plain")
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "reader: fetch")
	}
	defer resp.Body.Close()

	limit := int64(512 * 1024)
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return "", eris.Wrap(err, "reader: read body")
	}

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("reader: unexpected status %d for %s", resp.StatusCode, targetURL)
	}

	text := string(body)
	if c.maxChars > 0 && len(text) > c.maxChars {
		text = text[:c.maxChars]
	}
	return text, nil
}

// Package summarizer is the HTTP client for the self-hosted summarization
// service (BART summarize, extractive QA, subtopic planning).
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "http://localhost:5000"

// Client performs calls against the summarizer service.
type Client interface {
	Summarize(ctx context.Context, text string) (string, error)
	Subtopics(ctx context.Context, question string) ([]string, error)
	Answer(ctx context.Context, contextText, question string) (string, error)
	Health(ctx context.Context) error
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default service base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second against the service.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a summarizer service client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// StatusError carries the HTTP status of a failed call so callers can
// distinguish throttling from hard failures.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return "summarizer: unexpected status " + http.StatusText(e.StatusCode) + ": " + e.Body
}

func (c *httpClient) Summarize(ctx context.Context, text string) (string, error) {
	var resp struct {
		Summary string `json:"summary"`
	}
	if err := c.post(ctx, "/summarize", map[string]string{"text": text}, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}

func (c *httpClient) Subtopics(ctx context.Context, question string) ([]string, error) {
	var resp struct {
		Subtopics []string `json:"subtopics"`
	}
	if err := c.post(ctx, "/subtopics", map[string]string{"question": question}, &resp); err != nil {
		return nil, err
	}
	return resp.Subtopics, nil
}

func (c *httpClient) Answer(ctx context.Context, contextText, question string) (string, error) {
	var resp struct {
		Answer string `json:"answer"`
	}
	body := map[string]string{"context": contextText, "question": question}
	if err := c.post(ctx, "/qa", body, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

func (c *httpClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return eris.Wrap(err, "summarizer: create request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "summarizer: health check")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *httpClient) post(ctx context.Context, path string, payload any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "summarizer: rate limit wait")
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "summarizer: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "summarizer: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "summarizer: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "summarizer: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "summarizer: unmarshal response")
	}

	return nil
}

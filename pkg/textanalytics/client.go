// Package textanalytics is the HTTP client for the NLP feature service
// (similarity, keywords, named entities, sentiment). The service is opaque;
// only its outputs matter to the pipeline.
package textanalytics

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "http://localhost:5005"

// Entities groups named entities by kind.
type Entities struct {
	People        []string `json:"people"`
	Organizations []string `json:"organizations"`
	Places        []string `json:"places"`
}

// Analysis is the single-text feature bundle.
type Analysis struct {
	Keywords  []string `json:"keywords"`
	Entities  Entities `json:"entities"`
	Sentiment float64  `json:"sentiment"`
}

// Client performs calls against the text-analytics service.
type Client interface {
	// Similarity returns a correlation in [0,1] between two texts.
	Similarity(ctx context.Context, a, b string) (float64, error)
	// Analyze returns keywords, entities and sentiment for one text.
	Analyze(ctx context.Context, text string) (*Analysis, error)
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

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a text-analytics client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Similarity(ctx context.Context, a, b string) (float64, error) {
	var resp struct {
		Similarity float64 `json:"similarity"`
	}
	if err := c.post(ctx, "/similarity", map[string]string{"a": a, "b": b}, &resp); err != nil {
		return 0, err
	}
	if resp.Similarity < 0 {
		resp.Similarity = 0
	}
	if resp.Similarity > 1 {
		resp.Similarity = 1
	}
	return resp.Similarity, nil
}

func (c *httpClient) Analyze(ctx context.Context, text string) (*Analysis, error) {
	var resp Analysis
	if err := c.post(ctx, "/analyze", map[string]string{"text": text}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "textanalytics: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "textanalytics: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "textanalytics: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "textanalytics: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("textanalytics: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "textanalytics: unmarshal response")
	}

	return nil
}

package backend

import (
	"context"
	"errors"
	"net/http"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/research-agent/internal/model"
	"github.com/sells-group/research-agent/pkg/anthropic"
)

const defaultCloudMaxTokens = 2048

// Cloud is the Anthropic API tier. Requests are throttled client-side and
// every call prices itself from reported token usage.
type Cloud struct {
	client    anthropic.Client
	model     string
	limiter   *rate.Limiter
	maxTokens int64
}

// NewCloud creates the cloud tier. rps caps client-side request rate; zero
// disables throttling.
func NewCloud(client anthropic.Client, modelName string, rps float64) *Cloud {
	c := &Cloud{
		client:    client,
		model:     modelName,
		maxTokens: defaultCloudMaxTokens,
	}
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return c
}

// WithModel returns a copy of the tier pointed at a different model. Used
// when a retry cycle escalates from the default to a stronger model.
func (c *Cloud) WithModel(modelName string) *Cloud {
	clone := *c
	clone.model = modelName
	return &clone
}

// Model returns the model the tier currently targets.
func (c *Cloud) Model() string { return c.model }

func (c *Cloud) Name() string { return model.TierAnthropic }

func (c *Cloud) Generate(ctx context.Context, req Request) (*Output, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "anthropic: rate limit wait")
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Prompt:    req.Prompt,
	})
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			switch apiErr.StatusCode {
			case http.StatusTooManyRequests:
				return nil, eris.Wrapf(ErrRateLimited, "anthropic: model %s", c.model)
			case http.StatusServiceUnavailable, http.StatusInternalServerError:
				return nil, eris.Wrapf(ErrUnavailable, "anthropic: status %d", apiErr.StatusCode)
			}
		}
		return nil, eris.Wrapf(ErrUnavailable, "anthropic: %v", err)
	}

	if resp.Text == "" {
		return nil, eris.Wrapf(ErrEmptyOutput, "anthropic: model %s", c.model)
	}

	resp.Usage.LogCost(resp.Model, "generate")
	return &Output{
		Text:         resp.Text,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		CostUSD:      resp.Usage.EstimateCost(resp.Model),
	}, nil
}

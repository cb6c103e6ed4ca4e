package backend

import (
	"context"
	"errors"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sells-group/research-agent/internal/model"
	"github.com/sells-group/research-agent/pkg/summarizer"
)

// Summarizer is the self-hosted service tier. It feeds the whole prompt to
// the summarization endpoint and treats the summary as the generation.
type Summarizer struct {
	client summarizer.Client
}

// NewSummarizer creates the self-hosted tier over an existing client.
func NewSummarizer(client summarizer.Client) *Summarizer {
	return &Summarizer{client: client}
}

func (s *Summarizer) Name() string { return model.TierSummarizer }

func (s *Summarizer) Generate(ctx context.Context, req Request) (*Output, error) {
	text, err := s.client.Summarize(ctx, req.Prompt)
	if err != nil {
		var se *summarizer.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests {
			return nil, eris.Wrap(ErrRateLimited, "summarizer")
		}
		return nil, eris.Wrapf(ErrUnavailable, "summarizer: %v", err)
	}
	if text == "" {
		return nil, eris.Wrap(ErrEmptyOutput, "summarizer")
	}
	return &Output{Text: text}, nil
}

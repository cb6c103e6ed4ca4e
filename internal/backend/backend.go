// Package backend provides a uniform gateway over the ranked text-generation
// tiers (local subprocess, self-hosted service, cloud API). The gateway never
// falls back across tiers itself; callers own that policy. It does retry a
// single tier on rate limiting with a fixed delay.
package backend

import (
	"context"

	"github.com/rotisserie/eris"
)

// Failure categories for a single backend call.
var (
	// ErrUnavailable means the backing process or service is not reachable.
	ErrUnavailable = eris.New("backend unavailable")
	// ErrEmptyOutput means the call succeeded but produced no usable text.
	ErrEmptyOutput = eris.New("backend returned empty output")
	// ErrRateLimited means the backend signalled explicit throttling.
	ErrRateLimited = eris.New("backend rate limited")
	// ErrLowQuality means the output failed the caller's quality check.
	ErrLowQuality = eris.New("backend output failed quality check")
)

// Request describes one generation call.
type Request struct {
	Prompt    string
	MaxTokens int64

	// Check optionally validates the generated text; when it returns false
	// the call fails with ErrLowQuality. The heuristic belongs to the
	// caller, not the gateway.
	Check func(text string) bool
}

// Output is the result of one generation call. Token counts and cost are
// zero for tiers that cannot report them.
type Output struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
}

// Generator is one backend tier.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Output, error)
}

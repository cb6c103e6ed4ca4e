package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/research-agent/internal/ledger"
)

type stubSummarizer struct {
	healthErr error
}

func (s *stubSummarizer) Summarize(context.Context, string) (string, error) { return "", nil }

func (s *stubSummarizer) Subtopics(context.Context, string) ([]string, error) { return nil, nil }

func (s *stubSummarizer) Answer(context.Context, string, string) (string, error) { return "", nil }

func (s *stubSummarizer) Health(context.Context) error { return s.healthErr }

type stubLedger struct {
	state *ledger.State
}

func (s *stubLedger) Load(context.Context) (*ledger.State, error) {
	if s.state == nil {
		return ledger.NewState(), nil
	}
	return s.state, nil
}

func (s *stubLedger) Save(_ context.Context, state *ledger.State) error {
	s.state = state
	return nil
}

func (s *stubLedger) Close() error { return nil }

func testRouter(state *ledger.State) (http.Handler, *stubLedger) {
	led := &stubLedger{state: state}
	return newRouter(&researchEnv{Ledger: led}), led
}

func TestServeHealth(t *testing.T) {
	router, _ := testRouter(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServeHealthReportsSummarizer(t *testing.T) {
	router := newRouter(&researchEnv{
		Ledger:     &stubLedger{},
		Summarizer: &stubSummarizer{healthErr: eris.New("down")},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","summarizer":"unreachable"}`, rec.Body.String())
}

func TestServeAskRejectsMissingQuestion(t *testing.T) {
	router, _ := testRouter(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"  "}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "question is required")
}

func TestServeAskRejectsBadBody(t *testing.T) {
	router, _ := testRouter(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader("{not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeReputation(t *testing.T) {
	state := ledger.NewState()
	state.DomainScores["good.example"] = 3
	state.Blacklist = []string{"bad.example"}
	router, _ := testRouter(state)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reputation", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"domain_scores":{"good.example":3},"blacklist":["bad.example"]}`, rec.Body.String())
}

func TestServeReputationClear(t *testing.T) {
	state := ledger.NewState()
	state.DomainScores["bad.example"] = -6
	state.Blacklist = []string{"bad.example", "worse.example"}
	router, led := testRouter(state)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reputation/clear", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cleared":2}`, rec.Body.String())
	assert.Empty(t, led.state.Blacklist)
	// Clearing the blacklist keeps the learned scores.
	assert.Equal(t, -6, led.state.DomainScores["bad.example"])
}

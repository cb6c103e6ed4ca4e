// Package model defines the data types shared across the research pipeline.
package model

import "time"

// DirectFallback is the sentinel source label recorded when a subtopic's
// summary came from a generation backend directly instead of a fetched
// document. Subtopics carrying it never participate in reputation feedback.
const DirectFallback = "direct-backend"

// Backend tier names, ordered fastest/cheapest first.
const (
	TierOllama     = "ollama"
	TierSummarizer = "summarizer"
	TierAnthropic  = "anthropic"
)

// SourceCandidate is one ranked URL considered for a subtopic, with the
// domain's reputation score at selection time.
type SourceCandidate struct {
	URL    string `json:"url"`
	Domain string `json:"domain"`
	Score  int    `json:"score"`
}

// SubtopicRecord captures everything that happened while researching one
// subtopic. It is mutated only during that subtopic's loop iteration.
type SubtopicRecord struct {
	Subtopic   string            `json:"subtopic"`
	Candidates []SourceCandidate `json:"candidates,omitempty"`

	// UsedSource is the URL of the document that produced the summary, or
	// DirectFallback when no document could be acquired.
	UsedSource string `json:"used_source"`

	Verdict      string  `json:"verdict"`
	Summary      string  `json:"summary"`
	Attempts     int     `json:"attempts"`
	Insufficient bool    `json:"insufficient,omitempty"`
	Similarity   float64 `json:"similarity,omitempty"`
}

// TierUsage accumulates per-tier backend consumption for one run.
type TierUsage struct {
	Calls        int     `json:"calls"`
	Seconds      float64 `json:"seconds"`
	InputTokens  int64   `json:"input_tokens,omitempty"`
	OutputTokens int64   `json:"output_tokens,omitempty"`
}

// BillingRecord is derived once per run from accumulated usage.
type BillingRecord struct {
	BaseCostUSD   float64             `json:"base_cost_usd"`
	UserChargeUSD float64             `json:"user_charge_usd"`
	Breakdown     map[string]TierCost `json:"breakdown"`
}

// TierCost is the billed view of one tier's usage.
type TierCost struct {
	TierUsage
	CostUSD float64 `json:"cost_usd"`
}

// EntityGroups holds named entities extracted from the final report.
type EntityGroups struct {
	People        []string `json:"people"`
	Organizations []string `json:"organizations"`
	Places        []string `json:"places"`
}

// Analysis is the analytics bundle computed after synthesis.
type Analysis struct {
	Similarities     []float64    `json:"text_similarity"`
	SummarySentiment []float64    `json:"summary_sentiment"`
	ReportSentiment  float64      `json:"report_sentiment"`
	SummaryKeywords  [][]string   `json:"summary_keywords"`
	ReportKeywords   []string     `json:"report_keywords"`
	Entities         EntityGroups `json:"entities"`
}

// ResearchRun is the persistent record of one orchestration invocation.
// Immutable once appended to the ledger.
type ResearchRun struct {
	ID                string           `json:"id"`
	Question          string           `json:"question"`
	ProcessedQuestion string           `json:"processed_question"`
	Subtopics         []SubtopicRecord `json:"subtopics"`
	FinalReport       string           `json:"final_report"`
	Validation        string           `json:"validation,omitempty"`
	Escalated         bool             `json:"escalated,omitempty"`
	Billing           BillingRecord    `json:"billing"`
	Timestamp         time.Time        `json:"timestamp"`
}

// ResearchResult is the bundle returned to callers of the pipeline.
type ResearchResult struct {
	RunID          string           `json:"run_id"`
	Report         string           `json:"report"`
	Validation     string           `json:"validation,omitempty"`
	Analysis       *Analysis        `json:"analysis,omitempty"`
	Subtopics      []SubtopicRecord `json:"log"`
	Steps          []string         `json:"steps"`
	DomainScores   map[string]int   `json:"domain_scores"`
	Blacklist      []string         `json:"blacklist,omitempty"`
	Billing        BillingRecord    `json:"billing"`
	Escalated      bool             `json:"escalated"`
	ElapsedSeconds float64          `json:"elapsed_seconds"`
}

// LoopEntry is one cycle of the unattended research loop.
type LoopEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Question   string    `json:"question"`
	Report     string    `json:"report"`
	Validation string    `json:"validation"`
	Escalated  bool      `json:"escalated"`
}

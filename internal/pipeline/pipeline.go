// Package pipeline orchestrates a research run end to end: plan subtopics,
// gather and summarize evidence for each, synthesize the report through the
// tier cascade, validate it with a bounded retry budget, and feed the
// outcome back into domain reputation and the run ledger.
package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/research-agent/internal/acquire"
	"github.com/sells-group/research-agent/internal/analysis"
	"github.com/sells-group/research-agent/internal/backend"
	"github.com/sells-group/research-agent/internal/billing"
	"github.com/sells-group/research-agent/internal/config"
	"github.com/sells-group/research-agent/internal/ledger"
	"github.com/sells-group/research-agent/internal/model"
	"github.com/sells-group/research-agent/internal/quality"
	"github.com/sells-group/research-agent/internal/reputation"
	"github.com/sells-group/research-agent/pkg/reader"
	"github.com/sells-group/research-agent/pkg/summarizer"
)

// TierFactory builds the backend tiers for one run. escalated selects the
// stronger cloud model for retry cycles.
type TierFactory func(escalated bool) []backend.Generator

// Orchestrator runs research questions. Safe for concurrent callers; runs
// are serialized because they share the ledger and reputation state.
type Orchestrator struct {
	mu sync.Mutex

	cfg      config.ResearchConfig
	ledger   ledger.Ledger
	reader   reader.Client
	summ     summarizer.Client
	analyzer *analysis.Analyzer
	chain    *ChainConfig
	rates    billing.Rates
	tiers    TierFactory

	gatewayOpts []backend.GatewayOption
}

// Options carries everything an Orchestrator needs.
type Options struct {
	Config      config.ResearchConfig
	Ledger      ledger.Ledger
	Reader      reader.Client
	Summarizer  summarizer.Client
	Analyzer    *analysis.Analyzer
	Chain       *ChainConfig
	Rates       billing.Rates
	Tiers       TierFactory
	GatewayOpts []backend.GatewayOption
}

// New creates an Orchestrator. A nil chain uses the default cascade.
func New(opts Options) *Orchestrator {
	chain := opts.Chain
	if chain == nil {
		chain = DefaultChain()
	}
	return &Orchestrator{
		cfg:         opts.Config,
		ledger:      opts.Ledger,
		reader:      opts.Reader,
		summ:        opts.Summarizer,
		analyzer:    opts.Analyzer,
		chain:       chain,
		rates:       opts.Rates,
		tiers:       opts.Tiers,
		gatewayOpts: opts.GatewayOpts,
	}
}

// Generation modes. Local leads with the cheap tiers; cloud puts the
// Anthropic tier first for both per-call fallback and synthesis.
const (
	ModeLocal = "local"
	ModeCloud = "cloud"
)

type runOptions struct {
	mode string
}

// RunOption adjusts a single run.
type RunOption func(*runOptions)

// WithMode selects the generation mode; unknown values fall back to local.
func WithMode(mode string) RunOption {
	return func(o *runOptions) {
		o.mode = mode
	}
}

// retryState is the explicit loop state of the synthesis retry budget.
type retryState struct {
	cycle     int
	escalated bool
	reasons   []string
}

// ProposeQuestion asks the backends for a fresh research question, steering
// away from recently researched ones. Used by the unattended loop.
func (o *Orchestrator) ProposeQuestion(ctx context.Context, recent []string) (string, error) {
	gateway := backend.NewGateway(billing.NewMeter(), o.tiers(false), o.gatewayOpts...)
	text, _, err := gateway.GenerateFirst(ctx, gateway.TierNames(), backend.Request{
		Prompt: proposeQuestionPrompt(recent),
	})
	if err != nil {
		return "", eris.Wrap(err, "pipeline: propose question")
	}
	question := firstLine(text)
	if question == "" {
		return "", eris.New("pipeline: backends proposed no question")
	}
	return question, nil
}

// Run executes one research question and returns the full result bundle.
func (o *Orchestrator) Run(ctx context.Context, question string, opts ...RunOption) (*model.ResearchResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, eris.New("pipeline: empty question")
	}
	ro := runOptions{mode: ModeLocal}
	for _, opt := range opts {
		opt(&ro)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	start := time.Now()
	var steps []string
	step := func(s string) {
		steps = append(steps, s)
		zap.L().Info("pipeline step", zap.String("step", s))
	}

	state, err := o.ledger.Load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load ledger")
	}
	rep := reputation.NewStore(state.DomainScores, state.Blacklist, o.cfg.BlacklistFloor)
	meter := billing.NewMeter()

	gateway := backend.NewGateway(meter, o.tiers(false), o.gatewayOpts...)
	allTiers := orderTiers(gateway.TierNames(), ro.mode)

	processed := o.refineQuestion(ctx, gateway, allTiers, question)
	step("refined question")

	subtopics := o.planSubtopics(ctx, gateway, allTiers, processed)
	step("planned subtopics")

	fetcher := acquire.NewFetcher(o.reader, rep, o.cfg.MinDocumentChars)
	researcher := &subtopicResearcher{
		gateway:         gateway,
		fetcher:         fetcher,
		rep:             rep,
		tiers:           allTiers,
		maxAttempts:     o.cfg.MaxAttempts,
		maxCandidates:   o.cfg.MaxCandidates,
		minSummaryChars: o.cfg.MinSummaryChars,
	}

	records := make([]model.SubtopicRecord, 0, len(subtopics))
	summaries := make([]string, 0, len(subtopics))
	for _, st := range subtopics {
		rec, err := researcher.research(ctx, st)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
		summaries = append(summaries, rec.Summary)
	}
	step("gathered evidence")

	report, validation, escalated := o.synthesizeWithRetry(ctx, meter, ro.mode, processed, summaries, records)
	step("synthesized report")

	if !escalated {
		report += citations(records)
	}

	// An escalation report embeds the summaries themselves, so scoring them
	// against it would reward sources for a failed synthesis.
	if o.analyzer != nil && !escalated {
		applyFeedback(ctx, o.analyzer, rep, records, report, o.cfg.SimilarityThreshold)
		step("applied reputation feedback")
	}

	var bundle *model.Analysis
	if o.analyzer != nil {
		bundle = o.analyzer.Analyze(ctx, summaries, report)
		step("computed analytics")
	}

	calc := billing.NewCalculator(o.rates, o.cfg.Markup)
	bill := calc.Compute(meter)
	step("computed billing")

	run := model.ResearchRun{
		ID:                uuid.New().String(),
		Question:          question,
		ProcessedQuestion: processed,
		Subtopics:         records,
		FinalReport:       report,
		Validation:        validation,
		Escalated:         escalated,
		Billing:           bill,
		Timestamp:         time.Now().UTC(),
	}
	state.Runs = append(state.Runs, run)
	state.DomainScores, state.Blacklist = rep.Snapshot()

	if err := o.ledger.Save(ctx, state); err != nil {
		return nil, eris.Wrap(err, "pipeline: save ledger")
	}
	step("persisted run")

	return &model.ResearchResult{
		RunID:          run.ID,
		Report:         report,
		Validation:     validation,
		Analysis:       bundle,
		Subtopics:      records,
		Steps:          steps,
		DomainScores:   state.DomainScores,
		Blacklist:      state.Blacklist,
		Billing:        bill,
		Escalated:      escalated,
		ElapsedSeconds: time.Since(start).Seconds(),
	}, nil
}

// refineQuestion rewrites the question for searchability, keeping the
// original when every tier declines.
func (o *Orchestrator) refineQuestion(ctx context.Context, gateway *backend.Gateway, tiers []string, question string) string {
	text, _, err := gateway.GenerateFirst(ctx, tiers, backend.Request{
		Prompt: refineQuestionPrompt(question),
	})
	if err != nil {
		zap.L().Warn("question refinement unavailable", zap.Error(err))
		return question
	}
	refined := firstLine(text)
	if refined == "" {
		return question
	}
	return refined
}

// planSubtopics asks the summarizer service first, then the backend tiers.
// When everything fails the question itself becomes the single subtopic.
func (o *Orchestrator) planSubtopics(ctx context.Context, gateway *backend.Gateway, tiers []string, question string) []string {
	if o.summ != nil {
		subtopics, err := o.summ.Subtopics(ctx, question)
		if err == nil && len(subtopics) > 0 {
			return capLines(subtopics, o.cfg.MaxSubtopics)
		}
		if err != nil {
			zap.L().Warn("subtopic service unavailable", zap.Error(err))
		}
	}

	text, _, err := gateway.GenerateFirst(ctx, tiers, backend.Request{
		Prompt: subtopicPlanPrompt(question, o.cfg.MaxSubtopics),
	})
	if err != nil {
		zap.L().Warn("subtopic planning failed, researching question directly", zap.Error(err))
		return []string{question}
	}

	subtopics := capLines(strings.Split(text, "\n"), o.cfg.MaxSubtopics)
	if len(subtopics) == 0 {
		return []string{question}
	}
	return subtopics
}

// synthesizeWithRetry runs the cascade inside an explicit cycle budget,
// retrying with mutated generation parameters when every tier fails the
// substance gate. When the budget runs out an escalation report is returned
// instead. The second return value is the raw validation verdict journaled
// on the run; validation never fails a run.
func (o *Orchestrator) synthesizeWithRetry(
	ctx context.Context,
	meter *billing.Meter,
	mode string,
	question string,
	summaries []string,
	records []model.SubtopicRecord,
) (string, string, bool) {
	st := retryState{}
	chain := o.chain
	if mode == ModeCloud {
		chain = chain.Prioritize(model.TierAnthropic)
	}

	for ; st.cycle < o.cfg.MaxCycles; st.cycle++ {
		// Retry cycles mutate the generation parameters: the tier factory
		// swaps in the stronger cloud model and the token budgets double.
		cycleChain := chain
		if st.escalated {
			cycleChain = chain.DoubleTokens()
		}
		gateway := backend.NewGateway(meter, o.tiers(st.escalated), o.gatewayOpts...)
		synth := &synthesizer{
			gateway:        gateway,
			chain:          cycleChain,
			minReportChars: o.cfg.MinReportChars,
		}

		report, tier, err := synth.synthesize(ctx, question, summaries)
		if err != nil {
			st.reasons = append(st.reasons, "synthesis failed: "+err.Error())
			st.escalated = true
			zap.L().Warn("synthesis cycle failed",
				zap.Int("cycle", st.cycle),
				zap.Error(err),
			)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		meter.SetFinalReportTier(tier)
		validation := o.validate(ctx, gateway, orderTiers(gateway.TierNames(), mode), question, report)
		return report, validation, false
	}

	return escalationReport(question, st.reasons, records), "", true
}

// validate asks whether the report answers the question. The verdict is
// journaled on the run record only; a negative is logged, never acted on.
func (o *Orchestrator) validate(ctx context.Context, gateway *backend.Gateway, tiers []string, question, report string) string {
	text, _, err := gateway.GenerateFirst(ctx, tiers, backend.Request{
		Prompt: validationPrompt(question, report),
	})
	if err != nil {
		zap.L().Warn("validation unavailable", zap.Error(err))
		return ""
	}
	raw := firstLine(text)
	if quality.InterpretVerdict(text) == quality.VerdictNegative {
		zap.L().Info("validation flagged the report", zap.String("verdict", raw))
	}
	return raw
}

// orderTiers arranges the per-call fallback walk for the run mode. Cloud
// mode leads with the Anthropic tier; local keeps the registered order.
func orderTiers(names []string, mode string) []string {
	if mode != ModeCloud {
		return names
	}
	ordered := make([]string, 0, len(names))
	for _, n := range names {
		if n == model.TierAnthropic {
			ordered = append(ordered, n)
		}
	}
	for _, n := range names {
		if n != model.TierAnthropic {
			ordered = append(ordered, n)
		}
	}
	return ordered
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

func capLines(lines []string, max int) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789. "))
		if line == "" {
			continue
		}
		out = append(out, line)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}

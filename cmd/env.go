package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/research-agent/internal/analysis"
	"github.com/sells-group/research-agent/internal/backend"
	"github.com/sells-group/research-agent/internal/billing"
	"github.com/sells-group/research-agent/internal/ledger"
	"github.com/sells-group/research-agent/internal/pipeline"
	anthropicpkg "github.com/sells-group/research-agent/pkg/anthropic"
	"github.com/sells-group/research-agent/pkg/reader"
	"github.com/sells-group/research-agent/pkg/summarizer"
	"github.com/sells-group/research-agent/pkg/textanalytics"
)

// researchEnv holds the initialized ledger and orchestrator shared by the
// ask/serve/batch/loop commands.
type researchEnv struct {
	Ledger       ledger.Ledger
	LoopLog      *ledger.LoopLog
	Orchestrator *pipeline.Orchestrator
	Summarizer   summarizer.Client
}

// Close releases resources held by the environment.
func (e *researchEnv) Close() {
	if e.Ledger != nil {
		_ = e.Ledger.Close()
	}
}

// initLedger opens the persistence driver named in config.
func initLedger(ctx context.Context) (ledger.Ledger, error) {
	switch cfg.Store.Driver {
	case "", "file":
		return ledger.NewFile(cfg.Store.Path), nil
	case "sqlite":
		return ledger.NewSQLite(ctx, cfg.Store.Path)
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store: postgres driver requires store.database_url")
		}
		return ledger.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Store.Driver)
	}
}

// initEnv builds all clients, the backend tier factory, and the
// orchestrator. Callers should defer env.Close().
func initEnv(ctx context.Context) (*researchEnv, error) {
	led, err := initLedger(ctx)
	if err != nil {
		return nil, err
	}

	readerOpts := []reader.Option{
		reader.WithBaseURL(cfg.Reader.BaseURL),
		reader.WithMaxChars(cfg.Research.DocumentCap),
	}
	if cfg.Reader.Key != "" {
		readerOpts = append(readerOpts, reader.WithKey(cfg.Reader.Key))
	}
	if cfg.Reader.TimeoutSecs > 0 {
		readerOpts = append(readerOpts, reader.WithTimeout(time.Duration(cfg.Reader.TimeoutSecs)*time.Second))
	}
	readerClient := reader.NewClient(readerOpts...)

	summarizerClient := summarizer.NewClient(
		summarizer.WithBaseURL(cfg.Summarizer.BaseURL),
		summarizer.WithRateLimit(cfg.Summarizer.RPS),
	)

	analyticsClient := textanalytics.NewClient(
		textanalytics.WithBaseURL(cfg.Analytics.BaseURL),
	)

	var cloud *backend.Cloud
	if cfg.Anthropic.Key != "" {
		anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
		cloud = backend.NewCloud(anthropicClient, cfg.Anthropic.HaikuModel, cfg.Anthropic.RPS)
	} else {
		zap.L().Warn("RESEARCH_ANTHROPIC_KEY not set, cloud tier disabled")
	}

	tiers := func(escalated bool) []backend.Generator {
		out := []backend.Generator{
			backend.NewOllama(cfg.Ollama.Bin, cfg.Ollama.Model),
			backend.NewSummarizer(summarizerClient),
		}
		if cloud != nil {
			c := cloud
			if escalated {
				c = cloud.WithModel(cfg.Anthropic.SonnetModel)
			}
			out = append(out, c)
		}
		return out
	}

	chain, err := loadChain()
	if err != nil {
		_ = led.Close()
		return nil, err
	}

	orch := pipeline.New(pipeline.Options{
		Config:     cfg.Research,
		Ledger:     led,
		Reader:     readerClient,
		Summarizer: summarizerClient,
		Analyzer:   analysis.NewAnalyzer(analyticsClient),
		Chain:      chain,
		Rates: billing.Rates{
			LocalPerSecond: cfg.Pricing.LocalPerSecond,
			CloudSurcharge: cfg.Pricing.CloudSurcharge,
		},
		Tiers: tiers,
		GatewayOpts: []backend.GatewayOption{
			backend.WithRateLimitRetry(
				cfg.Anthropic.RateRetries,
				time.Duration(cfg.Anthropic.RateDelaySecs)*time.Second,
			),
		},
	})

	return &researchEnv{
		Ledger:       led,
		LoopLog:      ledger.NewLoopLog(cfg.Store.LoopLogPath),
		Orchestrator: orch,
		Summarizer:   summarizerClient,
	}, nil
}

// loadChain reads the synthesis cascade from the configured file, falling
// back to the built-in default.
func loadChain() (*pipeline.ChainConfig, error) {
	if cfg.Research.ChainFile == "" {
		return pipeline.DefaultChain(), nil
	}
	chain, err := pipeline.LoadChainFile(cfg.Research.ChainFile)
	if err != nil {
		return nil, err
	}
	zap.L().Info("loaded synthesis chain", zap.String("file", cfg.Research.ChainFile))
	return chain, nil
}

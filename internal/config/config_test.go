package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, "research_log.json", cfg.Store.Path)
	assert.Equal(t, "self_reinforce_log.json", cfg.Store.LoopLogPath)

	assert.Equal(t, 3, cfg.Research.MaxAttempts)
	assert.Equal(t, 2, cfg.Research.MaxCycles)
	assert.Equal(t, 10, cfg.Research.MaxCandidates)
	assert.Equal(t, 7, cfg.Research.MaxSubtopics)
	assert.Equal(t, 100, cfg.Research.MinDocumentChars)
	assert.Equal(t, 60, cfg.Research.MinSummaryChars)
	assert.Equal(t, 300, cfg.Research.MinReportChars)
	assert.Equal(t, 3000, cfg.Research.DocumentCap)
	assert.InDelta(t, 0.2, cfg.Research.SimilarityThreshold, 1e-9)
	assert.Equal(t, -4, cfg.Research.BlacklistFloor)
	assert.InDelta(t, 2.0, cfg.Research.Markup, 1e-9)

	assert.Equal(t, 60, cfg.Loop.IntervalSecs)
	assert.Equal(t, 30, cfg.Loop.ErrorBackoffSecs)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.NotEmpty(t, cfg.Pricing.Anthropic)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RESEARCH_RESEARCH_MAX_ATTEMPTS", "5")
	t.Setenv("RESEARCH_STORE_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Research.MaxAttempts)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nonsense", Format: "json"})
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}

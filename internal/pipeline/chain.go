package pipeline

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/research-agent/internal/model"
)

// ChainStep is one rung of the synthesis cascade: which tier to ask and how
// much of the evidence it is allowed to see.
type ChainStep struct {
	Tier string `yaml:"tier"`
	// MaxPromptChars truncates the assembled synthesis prompt before the
	// call. Zero means no truncation.
	MaxPromptChars int `yaml:"max_prompt_chars"`
	// MaxTokens caps the response length. Zero uses the tier default.
	MaxTokens int64 `yaml:"max_tokens"`
}

// ChainConfig is the ordered synthesis cascade.
type ChainConfig struct {
	Steps []ChainStep `yaml:"steps"`
}

// DefaultChain returns the built-in cascade: the local model sees a tight
// prompt, the self-hosted service a larger one, and the cloud tier the full
// evidence.
func DefaultChain() *ChainConfig {
	return &ChainConfig{
		Steps: []ChainStep{
			{Tier: model.TierOllama, MaxPromptChars: 8000},
			{Tier: model.TierSummarizer, MaxPromptChars: 16000},
			{Tier: model.TierAnthropic, MaxTokens: 2048},
		},
	}
}

// LoadChainFile reads a synthesis cascade from a YAML file.
func LoadChainFile(path string) (*ChainConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "chain: read config %s", path)
	}

	// The YAML has a top-level "synthesis" key.
	var wrapper struct {
		Synthesis ChainConfig `yaml:"synthesis"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "chain: parse config")
	}

	cfg := &wrapper.Synthesis
	if len(cfg.Steps) == 0 {
		return nil, eris.Errorf("chain: config %s defines no steps", path)
	}
	for i, step := range cfg.Steps {
		if step.Tier == "" {
			return nil, eris.Errorf("chain: step %d has no tier", i)
		}
	}
	return cfg, nil
}

// Prioritize returns a copy of the cascade with the named tier's steps moved
// to the front. A tier with no step leaves the cascade unchanged.
func (c *ChainConfig) Prioritize(tier string) *ChainConfig {
	steps := make([]ChainStep, 0, len(c.Steps))
	for _, s := range c.Steps {
		if s.Tier == tier {
			steps = append(steps, s)
		}
	}
	if len(steps) == 0 {
		return c
	}
	for _, s := range c.Steps {
		if s.Tier != tier {
			steps = append(steps, s)
		}
	}
	return &ChainConfig{Steps: steps}
}

// DoubleTokens returns a copy of the cascade with every explicit token
// budget doubled, used on escalated retry cycles.
func (c *ChainConfig) DoubleTokens() *ChainConfig {
	steps := make([]ChainStep, len(c.Steps))
	copy(steps, c.Steps)
	for i := range steps {
		if steps[i].MaxTokens > 0 {
			steps[i].MaxTokens *= 2
		}
	}
	return &ChainConfig{Steps: steps}
}

// Tiers returns the step tiers in order.
func (c *ChainConfig) Tiers() []string {
	out := make([]string, len(c.Steps))
	for i, s := range c.Steps {
		out[i] = s.Tier
	}
	return out
}

package backend

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/research-agent/internal/model"
)

// Ollama runs a local model through the ollama CLI. The prompt is written to
// stdin so shell quoting never touches it.
type Ollama struct {
	bin   string
	model string
}

// NewOllama creates the local subprocess tier. An empty bin defaults to
// "ollama" resolved from PATH.
func NewOllama(bin, modelName string) *Ollama {
	if bin == "" {
		bin = "ollama"
	}
	return &Ollama{bin: bin, model: modelName}
}

func (o *Ollama) Name() string { return model.TierOllama }

func (o *Ollama) Generate(ctx context.Context, req Request) (*Output, error) {
	cmd := exec.CommandContext(ctx, o.bin, "run", o.model)
	cmd.Stdin = strings.NewReader(req.Prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, eris.Wrapf(ErrUnavailable, "ollama: binary %s not found", o.bin)
		}
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "ollama: run")
		}
		return nil, eris.Wrapf(ErrUnavailable, "ollama: run %s: %v: %s",
			o.model, err, strings.TrimSpace(stderr.String()))
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return nil, eris.Wrapf(ErrEmptyOutput, "ollama: model %s", o.model)
	}
	return &Output{Text: text}, nil
}

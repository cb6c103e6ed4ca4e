package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/research-agent/internal/model"
)

var (
	batchFile  string
	batchLimit int
	batchOut   string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Research a file of questions, one per line",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		questions, err := readQuestions(batchFile, batchLimit)
		if err != nil {
			return err
		}
		if len(questions) == 0 {
			return eris.Errorf("batch: no questions in %s", batchFile)
		}
		if batchOut != "" {
			if err := os.MkdirAll(batchOut, 0o755); err != nil {
				return eris.Wrapf(err, "batch: create output dir %s", batchOut)
			}
		}

		// Runs share ledger state, so the orchestrator serializes them; the
		// group still bounds how many are queued and stops on cancellation.
		var done atomic.Int64
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(2)
		for i, question := range questions {
			g.Go(func() error {
				result, err := env.Orchestrator.Run(ctx, question)
				if err != nil {
					zap.L().Error("batch question failed",
						zap.String("question", question),
						zap.Error(err),
					)
					return err
				}
				if batchOut != "" {
					if err := writeBatchResult(batchOut, i, question, result); err != nil {
						return err
					}
				}
				n := done.Add(1)
				fmt.Printf("[%d/%d] %s (run %s)\n", n, len(questions), question, result.RunID)
				return nil
			})
		}
		return g.Wait()
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "questions.txt", "file with one research question per line")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 100, "max number of questions to process")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "directory to write one result JSON per question")
	rootCmd.AddCommand(batchCmd)
}

// writeBatchResult stores one question's full result bundle as
// <index>-<slug>.json under dir.
func writeBatchResult(dir string, index int, question string, result *model.ResearchResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return eris.Wrap(err, "batch: marshal result")
	}
	path := filepath.Join(dir, fmt.Sprintf("%03d-%s.json", index+1, questionSlug(question)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "batch: write %s", path)
	}
	return nil
}

// questionSlug turns a question into a short filesystem-safe name.
func questionSlug(question string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(question) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	if len(slug) > 60 {
		slug = slug[:60]
	}
	if slug == "" {
		slug = "question"
	}
	return slug
}

func readQuestions(path string, limit int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: open %s", path)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "batch: read %s", path)
	}
	return out, nil
}

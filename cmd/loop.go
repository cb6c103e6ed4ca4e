package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/research-agent/internal/model"
)

var loopQuestion string

var loopCmd = &cobra.Command{
	Use:   "loop",
	Short: "Run unattended research cycles, journaling every run",
	Long: "Researches on an interval so domain reputation keeps learning from repeated evidence. " +
		"With --question the same question is re-run every cycle; without it each cycle asks the " +
		"backends to propose a question not yet covered by the journal. Each cycle is appended to the loop journal.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		fixed := strings.TrimSpace(loopQuestion)
		interval := time.Duration(cfg.Loop.IntervalSecs) * time.Second
		backoff := time.Duration(cfg.Loop.ErrorBackoffSecs) * time.Second

		zap.L().Info("starting research loop",
			zap.String("question", fixed),
			zap.Duration("interval", interval),
		)

		for {
			wait := interval

			question := fixed
			if question == "" {
				question, err = nextLoopQuestion(ctx, env)
				if err != nil {
					if ctx.Err() != nil {
						zap.L().Info("research loop stopped")
						return nil
					}
					zap.L().Error("question proposal failed", zap.Error(err))
					wait = backoff
					question = ""
				}
			}

			if question != "" {
				result, err := env.Orchestrator.Run(ctx, question)
				if err != nil {
					if ctx.Err() != nil {
						zap.L().Info("research loop stopped")
						return nil
					}
					zap.L().Error("loop cycle failed", zap.Error(err))
					wait = backoff
				} else {
					entry := model.LoopEntry{
						Timestamp:  time.Now().UTC(),
						Question:   question,
						Report:     result.Report,
						Validation: result.Validation,
						Escalated:  result.Escalated,
					}
					if err := env.LoopLog.Append(entry); err != nil {
						zap.L().Error("loop journal append failed", zap.Error(err))
					}
					zap.L().Info("loop cycle complete",
						zap.String("run_id", result.RunID),
						zap.String("question", question),
						zap.Bool("escalated", result.Escalated),
					)
				}
			}

			select {
			case <-ctx.Done():
				zap.L().Info("research loop stopped")
				return nil
			case <-time.After(wait):
			}
		}
	},
}

// nextLoopQuestion proposes a fresh question, steering away from the journal's
// most recent cycles.
func nextLoopQuestion(ctx context.Context, env *researchEnv) (string, error) {
	var recent []string
	entries, err := env.LoopLog.Entries()
	if err != nil {
		zap.L().Warn("loop journal unreadable, proposing without history", zap.Error(err))
	} else {
		if len(entries) > 10 {
			entries = entries[len(entries)-10:]
		}
		for _, e := range entries {
			recent = append(recent, e.Question)
		}
	}
	return env.Orchestrator.ProposeQuestion(ctx, recent)
}

func init() {
	loopCmd.Flags().StringVar(&loopQuestion, "question", "", "fixed question to research every cycle (default: propose a new one each cycle)")
	rootCmd.AddCommand(loopCmd)
}

package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/research-agent/internal/pipeline"
)

var (
	askJSON bool
	askMode string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Research a question and print the report",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		question := strings.Join(args, " ")
		result, err := env.Orchestrator.Run(ctx, question, pipeline.WithMode(askMode))
		if err != nil {
			return eris.Wrap(err, "research run")
		}

		if askJSON {
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return eris.Wrap(err, "marshal result")
			}
			fmt.Println(string(out))
			return nil
		}

		fmt.Println(result.Report)
		fmt.Printf("\n---\nrun %s | %.1fs | $%.4f charged", result.RunID, result.ElapsedSeconds, result.Billing.UserChargeUSD)
		if result.Escalated {
			fmt.Print(" | ESCALATED")
		}
		fmt.Println()

		zap.L().Info("research complete",
			zap.String("run_id", result.RunID),
			zap.Bool("escalated", result.Escalated),
			zap.Float64("charge_usd", result.Billing.UserChargeUSD),
		)
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full result bundle as JSON")
	askCmd.Flags().StringVar(&askMode, "summarizer", pipeline.ModeLocal, "generation mode: local or cloud")
	rootCmd.AddCommand(askCmd)
}

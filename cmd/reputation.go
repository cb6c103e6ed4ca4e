package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sells-group/research-agent/internal/reputation"
)

var reputationCmd = &cobra.Command{
	Use:   "reputation",
	Short: "Inspect or reset learned domain reputation",
}

var reputationShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print domain scores and the blacklist",
	RunE: func(cmd *cobra.Command, args []string) error {
		led, err := initLedger(cmd.Context())
		if err != nil {
			return err
		}
		defer led.Close()

		state, err := led.Load(cmd.Context())
		if err != nil {
			return err
		}

		domains := make([]string, 0, len(state.DomainScores))
		for d := range state.DomainScores {
			domains = append(domains, d)
		}
		sort.Slice(domains, func(i, j int) bool {
			a, b := domains[i], domains[j]
			if state.DomainScores[a] != state.DomainScores[b] {
				return state.DomainScores[a] > state.DomainScores[b]
			}
			return a < b
		})

		if len(domains) == 0 {
			fmt.Println("no domain scores yet")
			return nil
		}
		for _, d := range domains {
			fmt.Printf("%5d  %s\n", state.DomainScores[d], d)
		}
		if len(state.Blacklist) > 0 {
			fmt.Println("\nblacklisted:")
			for _, d := range state.Blacklist {
				fmt.Printf("       %s\n", d)
			}
		}
		return nil
	},
}

var reputationClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the blacklist, keeping scores",
	RunE: func(cmd *cobra.Command, args []string) error {
		led, err := initLedger(cmd.Context())
		if err != nil {
			return err
		}
		defer led.Close()

		state, err := led.Load(cmd.Context())
		if err != nil {
			return err
		}
		rep := reputation.NewStore(state.DomainScores, state.Blacklist, cfg.Research.BlacklistFloor)
		cleared := len(state.Blacklist)
		rep.ClearBlacklist()
		state.DomainScores, state.Blacklist = rep.Snapshot()
		if err := led.Save(cmd.Context(), state); err != nil {
			return err
		}
		fmt.Printf("cleared %d blacklisted domains\n", cleared)
		return nil
	},
}

func init() {
	reputationCmd.AddCommand(reputationShowCmd)
	reputationCmd.AddCommand(reputationClearCmd)
	rootCmd.AddCommand(reputationCmd)
}

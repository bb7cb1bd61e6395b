package main

import (
	"github.com/spf13/cobra"

	"github.com/opendoor-marketplace/matchengine/internal/engine"
)

func solveCmd() *cobra.Command {
	var f bootstrapFlags
	var topK int
	var fairness bool
	var recordHistory bool
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Run one scoring+assignment solve and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := buildEngine(f)
			if err != nil {
				return err
			}
			resp, err := eng.Solve(engine.SolveRequest{
				TopKAlternatives:   topK,
				ApplyFairness:      fairness,
				RecordPulseHistory: recordHistory,
			})
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	addBootstrapFlags(cmd, &f)
	cmd.Flags().IntVar(&topK, "top-k", 0, "alternatives count (0 = config default)")
	cmd.Flags().BoolVar(&fairness, "fairness", false, "apply the cohort fairness boost")
	cmd.Flags().BoolVar(&recordHistory, "record-history", false, "append this solve's pulses to per-opp history")
	return cmd
}

func rebalanceCmd() *cobra.Command {
	var f bootstrapFlags
	var topMovers int
	cmd := &cobra.Command{
		Use:   "rebalance",
		Short: "Re-solve and report per-opp pulse deltas and top movers",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := buildEngine(f)
			if err != nil {
				return err
			}
			resp, err := eng.Rebalance(engine.SolveRequest{}, topMovers)
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	addBootstrapFlags(cmd, &f)
	cmd.Flags().IntVar(&topMovers, "top-movers", 5, "number of top pulse movers to report")
	return cmd
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/opendoor-marketplace/matchengine/internal/store"
)

func seedCmd() *cobra.Command {
	var f bootstrapFlags
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a fixture (or generate synthetic data) and print the resulting snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := buildEngine(f)
			if err != nil {
				return err
			}
			snap := eng.StateSnapshot()
			return printJSON(summarize(snap))
		},
	}
	addBootstrapFlags(cmd, &f)
	return cmd
}

func summarize(snap store.Snapshot) map[string]any {
	return map[string]any{
		"num_users": len(snap.Users),
		"num_opps":  len(snap.Opps),
	}
}

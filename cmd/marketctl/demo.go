package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opendoor-marketplace/matchengine/internal/domain"
)

// demoCmd generates a synthetic dataset, repeatedly steps demand against
// one hot event, and prints the rsvp count after each step.
func demoCmd() *cobra.Command {
	var numUsers, numOpps, steps int
	var seed int64
	var hotOpp string
	cmd := &cobra.Command{
		Use:   "demo-simulate",
		Short: "Generate synthetic data and simulate hot-event oversubscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, st, err := buildEngine(bootstrapFlags{preferFlow: true})
			if err != nil {
				return err
			}
			eng.DemoSetup(numUsers, numOpps, seed)

			target := hotOpp
			if target == "" {
				snap := eng.StateSnapshot()
				if len(snap.Opps) == 0 {
					return fmt.Errorf("no opportunities generated")
				}
				target = snap.Opps[0].ID
			}

			for i := 0; i < steps; i++ {
				userID := fmt.Sprintf("demo-u%d", i)
				st.UpsertUser(domain.User{ID: userID})
				result, err := eng.DemoStep(userID, target)
				if err != nil {
					return err
				}
				fmt.Printf("step %d: rsvp_count=%d status=%s spots_left=%d\n",
					i, st.RSVPCount(target), result.Status, result.SpotsLeft)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&numUsers, "users", 20, "synthetic users to generate")
	cmd.Flags().IntVar(&numOpps, "opps", 5, "synthetic opportunities to generate")
	cmd.Flags().IntVar(&steps, "steps", 10, "number of demand steps against the hot event")
	cmd.Flags().Int64Var(&seed, "seed", 1, "deterministic RNG seed")
	cmd.Flags().StringVar(&hotOpp, "opp", "", "target opp id (defaults to the first generated opportunity)")
	return cmd
}

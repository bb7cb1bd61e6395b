package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opendoor-marketplace/matchengine/internal/domain"
)

func feedbackCmd() *cobra.Command {
	var f bootstrapFlags
	var userID, oppID, event string
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record one feedback event against a (user, opp) pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := buildEngine(f)
			if err != nil {
				return err
			}
			if err := eng.Feedback(userID, oppID, domain.EventType(event)); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
	addBootstrapFlags(cmd, &f)
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&oppID, "opp", "", "opportunity id")
	cmd.Flags().StringVar(&event, "event", string(domain.EventShown), "event: shown|clicked|accepted|declined|attended")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("opp")
	return cmd
}

func rsvpCmd() *cobra.Command {
	var f bootstrapFlags
	var userID, oppID string
	cmd := &cobra.Command{
		Use:   "rsvp",
		Short: "Attempt to RSVP a user to an opportunity",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := buildEngine(f)
			if err != nil {
				return err
			}
			result, err := eng.RSVP(userID, oppID)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	addBootstrapFlags(cmd, &f)
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&oppID, "opp", "", "opportunity id")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("opp")
	return cmd
}

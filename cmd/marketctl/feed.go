package main

import (
	"github.com/spf13/cobra"
)

func feedCmd() *cobra.Command {
	var f bootstrapFlags
	var userID string
	var topK int
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Print one user's primary recommendation plus alternatives",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := buildEngine(f)
			if err != nil {
				return err
			}
			rec, err := eng.Feed(userID, topK)
			if err != nil {
				return err
			}
			return printJSON(rec)
		},
	}
	addBootstrapFlags(cmd, &f)
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().IntVar(&topK, "top-k", 0, "alternatives count (0 = config default)")
	cmd.MarkFlagRequired("user")
	return cmd
}

func trendingCmd() *cobra.Command {
	var f bootstrapFlags
	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Print opportunity ids ranked by descending pulse",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := buildEngine(f)
			if err != nil {
				return err
			}
			return printJSON(eng.Trending())
		},
	}
	addBootstrapFlags(cmd, &f)
	return cmd
}

func explainCmd() *cobra.Command {
	var f bootstrapFlags
	var userID, oppID string
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Print the full score breakdown for one (user, opp) pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := buildEngine(f)
			if err != nil {
				return err
			}
			exp, err := eng.Explain(userID, oppID)
			if err != nil {
				return err
			}
			return printJSON(exp)
		},
	}
	addBootstrapFlags(cmd, &f)
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&oppID, "opp", "", "opportunity id")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("opp")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opendoor-marketplace/matchengine/internal/domain"
)

func upsertUserCmd() *cobra.Command {
	var f bootstrapFlags
	var userJSON string
	cmd := &cobra.Command{
		Use:   "upsert-user",
		Short: "Insert or replace one user from a JSON document (or stdin with --user -)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if userJSON == "-" {
				data, err = readAll(os.Stdin)
			} else {
				data = []byte(userJSON)
			}
			if err != nil {
				return err
			}
			var u domain.User
			if err := json.Unmarshal(data, &u); err != nil {
				return fmt.Errorf("malformed user json: %w", err)
			}

			eng, _, err := buildEngine(f)
			if err != nil {
				return err
			}
			eng.UpsertUser(u)
			fmt.Println("ok")
			return nil
		},
	}
	addBootstrapFlags(cmd, &f)
	cmd.Flags().StringVar(&userJSON, "user", "", "user JSON document, or '-' to read from stdin")
	cmd.MarkFlagRequired("user")
	return cmd
}

func stateSnapshotCmd() *cobra.Command {
	var f bootstrapFlags
	cmd := &cobra.Command{
		Use:   "state-snapshot",
		Short: "Print the full materialized state snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := buildEngine(f)
			if err != nil {
				return err
			}
			return printJSON(eng.StateSnapshot())
		},
	}
	addBootstrapFlags(cmd, &f)
	return cmd
}

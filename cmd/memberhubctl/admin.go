package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/memberhub/internal/app/bootstrap"
	"github.com/spf13/cobra"
)

func newCreateAdminCmd(c *cli) *cobra.Command {
	var login, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin login, or promote the person who already has it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if login == "" {
				return errors.New("--login is required")
			}
			return c.withDeps(cmd.Context(), func(ctx context.Context, deps bootstrap.DBDeps) error {
				outcome, err := bootstrap.EnsureAdmin(ctx, deps.MongoDatabase, login, password, c.log)
				if err != nil {
					return err
				}
				if outcome == bootstrap.AdminSkipped {
					return fmt.Errorf("no person signs in as %q; pass --password to create one", login)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s: %s\n", login, outcome)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&login, "login", "", "login id (usually an email)")
	cmd.Flags().StringVar(&password, "password", "", "password for a newly created admin")
	return cmd
}

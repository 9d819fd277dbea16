package main

import (
	"context"
	"fmt"

	"github.com/dalemusser/memberhub/internal/app/bootstrap"
	"github.com/dalemusser/memberhub/internal/app/system/indexes"
	"github.com/dalemusser/memberhub/internal/app/system/validators"
	"github.com/spf13/cobra"
)

func newIndexesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Ensure collection validators and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withDeps(cmd.Context(), func(ctx context.Context, deps bootstrap.DBDeps) error {
				if err := validators.EnsureAll(ctx, deps.MongoDatabase); err != nil {
					return fmt.Errorf("ensure validators: %w", err)
				}
				if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
					return fmt.Errorf("ensure indexes: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "validators and indexes are up to date")
				return nil
			})
		},
	}
}

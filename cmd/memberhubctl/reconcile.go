package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dalemusser/memberhub/internal/app/bootstrap"
	"github.com/dalemusser/memberhub/internal/app/system/membersync"
	"github.com/dalemusser/memberhub/internal/domain/reconcile"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newReconcileCmd(c *cli) *cobra.Command {
	var (
		person string
		orgs   []string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Set a person's active organizations to exactly the given list",
		Long: `Moves a person's memberships to the given organizations: rows for
organizations no longer listed are deactivated, past memberships are
reactivated and missing ones are created. Pass no --org to leave every
organization.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pid, err := primitive.ObjectIDFromHex(person)
			if err != nil {
				return errors.New("--person must be a person id (24 hex characters)")
			}
			return c.withDeps(cmd.Context(), func(ctx context.Context, deps bootstrap.DBDeps) error {
				svc := bootstrap.NewServices(c.cfg, deps, c.log)
				out := cmd.OutOrStdout()
				if dryRun {
					plan, _, err := svc.Syncer.Plan(ctx, pid, orgs)
					if err != nil {
						return errors.New(membersync.Describe(err))
					}
					printPlan(out, plan)
					return nil
				}
				plan, res, err := svc.Syncer.Reconcile(ctx, pid, orgs, nil)
				printPlan(out, plan)
				if err != nil {
					return errors.New(membersync.Describe(err))
				}
				fmt.Fprintf(out, "applied run %s (%s): %d deactivated, %d reactivated, %d created\n",
					res.RunID, res.Mode, res.Deactivated, res.Reactivated, len(res.Created))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&person, "person", "", "person id")
	cmd.Flags().StringArrayVar(&orgs, "org", nil, "organization id; repeat for each organization")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without writing")
	_ = cmd.MarkFlagRequired("person")
	return cmd
}

func printPlan(w io.Writer, p reconcile.Plan) {
	if p.Empty() {
		fmt.Fprintln(w, "nothing to change")
		return
	}
	for _, ch := range p.Deactivate {
		fmt.Fprintf(w, "leave   %s (membership %s)\n", ch.OrganizationID.Hex(), ch.MembershipID.Hex())
	}
	for _, ch := range p.Reactivate {
		fmt.Fprintf(w, "rejoin  %s (membership %s)\n", ch.OrganizationID.Hex(), ch.MembershipID.Hex())
	}
	for _, org := range p.Create {
		fmt.Fprintf(w, "join    %s\n", org.Hex())
	}
	for _, a := range p.Anomalies {
		fmt.Fprintf(w, "note    %s has %d past memberships; reactivating %s\n",
			a.OrganizationID.Hex(), len(a.MembershipIDs), a.Chosen.Hex())
	}
}

package main

import (
	"context"

	"github.com/dalemusser/memberhub/internal/app/bootstrap"
	"github.com/dalemusser/memberhub/internal/app/store/queries/personlist"
	"github.com/dalemusser/memberhub/internal/app/system/csvutil"
	"github.com/spf13/cobra"
)

func newExportPersonsCmd(c *cli) *cobra.Command {
	var f personlist.Filter
	var o personlist.Order
	cmd := &cobra.Command{
		Use:   "export-persons",
		Short: "Write the persons list as CSV to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withDeps(cmd.Context(), func(ctx context.Context, deps bootstrap.DBDeps) error {
				svc := bootstrap.NewServices(c.cfg, deps, c.log)
				all, err := svc.List.Rows(ctx)
				if err != nil {
					return err
				}
				rows := personlist.Apply(all, f)
				personlist.Sort(rows, o)
				return csvutil.WritePersons(cmd.OutOrStdout(), rows)
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.Query, "query", "q", "", "match name or email")
	fl.StringVar(&f.OrgID, "org", "", "only active members of this organization (hex id)")
	fl.StringVar(&f.Status, "status", "", "active or disabled")
	fl.BoolVar(&f.ActiveOnly, "active", false, "only persons with an active membership")
	fl.StringVar(&f.Login, "login", "", "linked or none")
	fl.StringVar(&o.Field, "sort", personlist.SortName, "name, email, created or orgs")
	fl.BoolVar(&o.Desc, "desc", false, "sort descending")
	return cmd
}

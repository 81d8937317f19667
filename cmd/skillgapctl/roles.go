package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List the roles in the catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		snap, err := catalogStore(catalogSource).Load(cmd.Context())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ROLE ID\tTITLE")
		for _, r := range snap.RoleSummaries() {
			fmt.Fprintf(tw, "%s\t%s\n", r.RoleID, r.Title)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(rolesCmd)
}

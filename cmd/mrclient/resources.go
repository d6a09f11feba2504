package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/maresidence/pkg/mrsdk"
)

func newResourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List the resources the API exposes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPATH\tLIST\tCREATE")

			for _, res := range mrsdk.Resources() {
				path := res.Path()
				if res.Name == mrsdk.ResourceShares {
					path = "/api/adverts/{id}/shares"
				}

				create := "-"
				if res.Create != nil {
					create = res.Create.Envelope + " (" + strings.Join(res.Create.Required, ", ") + ")"
				}

				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", res.Name, path, res.List, create)
			}
			return w.Flush()
		},
	}
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/maresidence/internal/app"
	"github.com/aussiebroadwan/maresidence/pkg/mrsdk"
)

func newGetCommand() *cobra.Command {
	var (
		version    int
		query      []string
		revalidate bool
		enveloped  bool
		advertID   string
	)

	cmd := &cobra.Command{
		Use:   "get <resource> [id]",
		Short: "Fetch a collection or a single entity",
		Long: `Fetch a collection (when listable) or a single entity by id and print the
decoded JSON. Use "mrclient resources" to list resource names.

Shares are read per advert: mrclient get shares --advert 42`,
		Example: `  mrclient get news --query page=2
  mrclient get users 17 --version 2
  mrclient get news --enveloped --revalidate`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, ok := mrsdk.LookupResource(args[0])
			if !ok {
				return fmt.Errorf("unknown resource %q", args[0])
			}

			opts, err := parseQuery(query)
			if err != nil {
				return err
			}
			if version > 0 {
				opts = opts.WithVersion(version)
			}

			var path string
			switch {
			case res.Name == mrsdk.ResourceShares:
				if advertID == "" {
					return fmt.Errorf("shares require --advert")
				}
				path = mrsdk.SharesPath(advertID)
			case len(args) == 2:
				path = res.ItemPath(args[1])
			case res.List:
				path = res.Path()
			default:
				return fmt.Errorf("resource %q can only be fetched by id", res.Name)
			}

			return withApplication(cmd, func(a *app.Application) error {
				ctx := cmd.Context()

				var (
					body mrsdk.Object
					err  error
				)
				if enveloped {
					body, err = a.Client().FetchEnveloped(ctx, path, res.Name, opts, revalidate)
				} else {
					body, err = a.Client().Fetch(ctx, path, opts, revalidate)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), body)
			})
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "API version sent in the Accept header")
	cmd.Flags().StringArrayVarP(&query, "query", "q", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&revalidate, "revalidate", false, "bypass the response cache")
	cmd.Flags().BoolVar(&enveloped, "enveloped", false, `require the {"request", "<resource>"} list shape`)
	cmd.Flags().StringVar(&advertID, "advert", "", "advert id (shares only)")

	return cmd
}

// parseQuery turns key=value pairs into request options. Repeated keys become
// repeated query parameters.
func parseQuery(pairs []string) (mrsdk.Options, error) {
	opts := mrsdk.Options{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid query %q, want key=value", pair)
		}

		switch prev := opts[key].(type) {
		case nil:
			opts[key] = value
		case string:
			opts[key] = []string{prev, value}
		case []string:
			opts[key] = append(prev, value)
		}
	}
	return opts, nil
}

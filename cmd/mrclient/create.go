package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/maresidence/internal/app"
	"github.com/aussiebroadwan/maresidence/pkg/mrsdk"
)

func newCreateCommand() *cobra.Command {
	var (
		file     string
		version  int
		advertID string
	)

	cmd := &cobra.Command{
		Use:   "create <resource>",
		Short: "Create a user, advert, recommendation or advert share",
		Long: `Create an entity from a JSON object read from --file (or stdin with "-").
The object is wrapped in the resource envelope before it is sent, and the
created entity is printed. Creating a user that already exists prints the
existing user.`,
		Example: `  echo '{"email":"a@example.org"}' | mrclient create users --file -
  mrclient create shares --advert 42 --file share.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, ok := mrsdk.LookupResource(args[0])
			if !ok {
				return fmt.Errorf("unknown resource %q", args[0])
			}
			if res.Create == nil {
				return fmt.Errorf("resource %q cannot be created", res.Name)
			}

			path := res.Path()
			if res.Name == mrsdk.ResourceShares {
				if advertID == "" {
					return fmt.Errorf("shares require --advert")
				}
				path = mrsdk.SharesPath(advertID)
			}

			fields, err := readObject(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			return withApplication(cmd, func(a *app.Application) error {
				created, err := a.Client().Create(cmd.Context(), path, version, fields, *res.Create)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), created)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", `JSON object to send ("-" reads stdin)`)
	cmd.Flags().IntVar(&version, "version", 1, "API version sent in the Accept header")
	cmd.Flags().StringVar(&advertID, "advert", "", "advert id (shares only)")

	return cmd
}

func readObject(stdin io.Reader, file string) (mrsdk.Object, error) {
	r := stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var obj mrsdk.Object
	if err := json.NewDecoder(r).Decode(&obj); err != nil {
		return nil, fmt.Errorf("input must be a JSON object: %w", err)
	}
	return obj, nil
}

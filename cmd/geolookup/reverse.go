package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/manzanit0/geosearch/pkg/addrsearch"
	"github.com/manzanit0/geosearch/pkg/env"
)

func newReverseCmd(lookup func() *addrsearch.Lookup) *cobra.Command {
	return &cobra.Command{
		Use:     "reverse <lat> <lng>",
		Short:   "Resolve a point into an address",
		Example: `  geolookup reverse 4.6097 -74.0817`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := env.ParseCoordinates(args[0] + "," + args[1])
			if err != nil {
				return err
			}

			// The coordinate label still gets printed when every provider
			// failed, same as the map would show it.
			address, err := lookup().Reverse(cmd.Context(), p.Lat, p.Lng)
			if err != nil {
				slog.WarnContext(cmd.Context(), "reverse lookup degraded", "error", err.Error())
			}

			renderAddress(cmd.OutOrStdout(), p, address, err != nil)
			return nil
		},
	}
}

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manzanit0/geosearch/pkg/addrsearch"
	"github.com/manzanit0/geosearch/pkg/env"
	"github.com/manzanit0/geosearch/pkg/geocode"
)

func newSearchCmd(lookup func() *addrsearch.Lookup) *cobra.Command {
	var near string

	cmd := &cobra.Command{
		Use:     "search <address...>",
		Short:   "List candidates for a free-text address",
		Example: `  geolookup search Carrera 43A 1-50 --near 6.2087,-75.5686`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var proximity *geocode.Coordinates
			if near != "" {
				p, err := env.ParseCoordinates(near)
				if err != nil {
					return fmt.Errorf("parse --near: %w", err)
				}
				proximity = &p
			}

			q := geocode.NewSearchQuery(strings.Join(args, " "), proximity)
			if !q.Valid() {
				return fmt.Errorf("%w: %q", geocode.ErrInvalidQuery, q.Text)
			}

			candidates, err := lookup().Forward(cmd.Context(), q)
			if errors.Is(err, geocode.ErrAllProvidersUnavailable) {
				return fmt.Errorf("search %q: %w", q.Text, err)
			}

			if len(candidates) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no matches for %q\n", q.Text)
				return nil
			}

			renderCandidates(cmd.OutOrStdout(), candidates)
			return nil
		},
	}

	cmd.Flags().StringVar(&near, "near", "", "rank results near lat,lng")

	return cmd
}

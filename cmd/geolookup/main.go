// geolookup runs one-off address lookups against the same provider chain as
// addressd, which is handy to check credentials and provider coverage.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/manzanit0/geosearch/pkg/addrsearch"
	"github.com/manzanit0/geosearch/pkg/env"
	"github.com/manzanit0/geosearch/pkg/geocache"
	"github.com/manzanit0/geosearch/pkg/logger"
)

func newRootCmd() *cobra.Command {
	var (
		lookup  *addrsearch.Lookup
		verbose bool
	)

	root := &cobra.Command{
		Use:           "geolookup",
		Short:         "Resolve addresses and coordinates from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := env.LoadDotEnv(); err != nil {
				return err
			}

			level := slog.LevelWarn
			if verbose || env.Debug() {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(logger.NewContextJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

			cfg, err := env.LoadGeocodeConfig()
			if err != nil {
				return err
			}

			lookup = addrsearch.NewLookup(cfg.NewResolver(), geocache.New())
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log outbound requests to stderr")

	root.AddCommand(newSearchCmd(func() *addrsearch.Lookup { return lookup }))
	root.AddCommand(newReverseCmd(func() *addrsearch.Lookup { return lookup }))

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

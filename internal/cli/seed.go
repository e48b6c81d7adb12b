package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"margin/api/internal/seed"
)

// newSeedCommand checks a seed fixture by replaying it into a throwaway
// service and printing what it would create.
func newSeedCommand(opts *Options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Validate a seed fixture and print a summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := file
			if path == "" {
				path = opts.Config.SeedFile
			}
			fx, err := seed.Load(path)
			if err != nil {
				return err
			}
			logger := LoggerFromContext(cmd.Context())
			service, cleanup := buildService(opts.Config, logger)
			defer cleanup()

			summary, err := seed.Apply(cmd.Context(), service, fx)
			if err != nil {
				return fmt.Errorf("apply seed: %w", err)
			}
			stats := service.GetCommentStats()
			fmt.Fprintf(cmd.OutOrStdout(), "documents: %d\nthreads: %d (active %d, resolved %d)\ncomments: %d\n",
				summary.Documents, stats.TotalThreads, stats.ActiveThreads, stats.ResolvedThreads, stats.TotalComments)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Seed fixture path (defaults to MARGIN_SEED_FILE, then the built-in demo)")
	return cmd
}

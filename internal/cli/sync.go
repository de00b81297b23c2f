package cli

import (
	"github.com/spf13/cobra"

	"taxisync/internal/config"
	"taxisync/internal/service"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Copy every source trip not yet in the destination",
		Long: `Counts both tables, then copies the remaining trips in batches ordered by
pickup time. Each batch is one transaction. Interrupting a run loses at most
the batch in flight; run the command again to resume.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, cleanup, err := opts.newService(cmd, func(cfg *config.Config) service.EventEmitter {
				return newProgressPrinter(cmd.OutOrStdout(), cfg.Source.Table, cfg.Destination.Table)
			})
			if err != nil {
				return err
			}
			defer cleanup()

			_, err = svc.Run(cmd.Context())
			return err
		},
	}
}

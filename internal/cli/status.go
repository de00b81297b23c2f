package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show source and destination counts without copying",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cfg, cleanup, err := opts.newService(cmd, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := svc.Status(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			p := message.NewPrinter(language.English)
			w := cmd.OutOrStdout()
			p.Fprintf(w, "Source (%s): %d records\n", cfg.Source.Table, report.SourceCount)
			p.Fprintf(w, "Destination (%s): %d records\n", cfg.Destination.Table, report.DestCount)
			if report.Complete() {
				p.Fprintf(w, "Up to date.\n")
				return nil
			}
			p.Fprintf(w, "Remaining: %d records in %d batches of %d, starting with batch %d\n",
				report.Remaining, report.Batches, report.BatchSize, report.NextBatch)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

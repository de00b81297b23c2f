package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

const tabPadding = 2

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		limit  int
		output string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sync runs from the run history",
		Long: `Lists runs recorded in the SQLite file named by history.path.
The history is informational only; resuming never reads it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, cleanup, err := opts.newService(cmd, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			logs, err := svc.History(limit)
			if err != nil {
				return err
			}

			switch output {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(logs)
			case "table":
			default:
				return fmt.Errorf("unsupported output format: %s", output)
			}

			if len(logs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tSTATUS\tCOPIED\tSOURCE\tDEST\tDURATION\tERROR")
			for _, l := range logs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
					l.StartedAt.Local().Format("2006-01-02 15:04:05"),
					l.Status, l.RowsCopied, l.SourceCount, l.DestCount,
					l.FinishedAt.Sub(l.StartedAt).Round(time.Millisecond), l.Error)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().StringVar(&output, "output", "table", "Output format: table, json")
	return cmd
}

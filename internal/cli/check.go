package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"taxisync/internal/service"
)

// errCheckFailed makes `check` exit non-zero after the report is printed.
var errCheckFailed = errors.New("check failed")

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify both stores are reachable and have the mapped columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, cleanup, err := opts.newService(cmd, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := svc.Check(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			writeStoreCheck(w, &report.Source)
			writeStoreCheck(w, &report.Destination)
			if !report.OK() {
				return errCheckFailed
			}
			fmt.Fprintln(w, "Ready to sync.")
			return nil
		},
	}
}

func writeStoreCheck(w io.Writer, c *service.StoreCheck) {
	mark := "✓"
	if !c.OK() {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s %s (%s)\n", mark, c.Name, c.Target, c.Table)
	if c.Error != "" {
		fmt.Fprintf(w, "    error: %s\n", c.Error)
	}
	if len(c.Missing) > 0 {
		fmt.Fprintf(w, "    missing columns: %s\n", strings.Join(c.Missing, ", "))
	}
}

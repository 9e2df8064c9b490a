package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/uitrail/uitrail/internal/daemon"
	"github.com/uitrail/uitrail/internal/infra/sqlite"
)

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to show")
	rootCmd.AddCommand(runsCmd)
}

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show past collection runs from the ledger",
	RunE:  runRuns,
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.Ledger.Enabled {
		return fmt.Errorf("run ledger is disabled in config")
	}

	db, err := sqlite.Open(cfg.Ledger.Dir)
	if err != nil {
		return fmt.Errorf("open run ledger: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns(runsLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tWORKERS\tTASKS\tOK\tFAILED\tSKIPPED\tSTATUS")
	for _, r := range runs {
		status := "done"
		if r.Interrupted {
			status = "interrupted"
		} else if r.FinishedAt.IsZero() {
			status = "running"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Format(time.DateTime), r.Workers, r.Tasks,
			r.Successful, r.Failed, r.Skipped, status)
	}
	return w.Flush()
}

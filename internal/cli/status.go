package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/uitrail/uitrail/internal/api"
	"github.com/uitrail/uitrail/internal/daemon"
)

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the raw status payload")
	rootCmd.AddCommand(statusCmd)
}

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the progress of a running collection",
	Long:  `Query the status API of a collection started with 'uitrail collect'.`,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s:%d/api/status", cfg.API.Host, cfg.API.Port)
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("no collection running at %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status api returned %s", resp.Status)
	}

	var st api.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return fmt.Errorf("parse status: %w", err)
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Printf("Committed: %d (%d ok, %d failed, %d skipped), %d tasks queued\n",
		st.Counters.Committed, st.Counters.Successful, st.Counters.Failed,
		st.Counters.Skipped, st.QueueDepth)

	slots := make([]int, 0, len(st.Slots))
	for idx := range st.Slots {
		slots = append(slots, idx)
	}
	sort.Ints(slots)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLOT\tSTATE\tCOMPLETED\tOK\tFAILED")
	for _, idx := range slots {
		tally := st.Counters.PerSlot[idx]
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\n", idx, st.Slots[idx], tally.Completed, tally.Succeeded, tally.Failed)
	}
	return w.Flush()
}

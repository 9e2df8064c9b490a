package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/uitrail/uitrail/internal/collector"
	"github.com/uitrail/uitrail/internal/domain"
)

func init() {
	tasksCmd.Flags().BoolVar(&tasksJSON, "json", false, "Print the task set as JSON")
	rootCmd.AddCommand(tasksCmd)
}

var tasksJSON bool

var tasksCmd = &cobra.Command{
	Use:   "tasks [file]",
	Short: "List and validate a task set",
	Long: `Show the built-in sample tasks, or load and validate a JSON task file.
Invalid tasks are reported with the reason they would be skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTasks,
}

func runTasks(cmd *cobra.Command, args []string) error {
	tasks := collector.SampleTasks()
	if len(args) == 1 {
		var err error
		tasks, err = collector.LoadTasks(args[0])
		if err != nil {
			return err
		}
	}

	if tasksJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tAPP\tDIFFICULTY\tACTIONS\tSTATUS")
	invalid := 0
	for _, t := range tasks {
		status := "ok"
		if err := t.Validate(); err != nil {
			status = err.Error()
			invalid++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", t.ID, t.Application, t.Difficulty, len(t.Actions), status)
	}
	w.Flush()

	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d tasks invalid", domain.ErrTaskInvalid, invalid, len(tasks))
	}
	fmt.Printf("%d tasks, all valid\n", len(tasks))
	return nil
}

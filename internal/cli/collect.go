package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/uitrail/uitrail/internal/api"
	"github.com/uitrail/uitrail/internal/collector"
	"github.com/uitrail/uitrail/internal/daemon"
	"github.com/uitrail/uitrail/internal/domain"
	"github.com/uitrail/uitrail/internal/infra/sqlite"
)

func init() {
	collectCmd.Flags().StringVarP(&collectOutput, "output", "o", "", "Dataset output directory (overrides config)")
	collectCmd.Flags().IntVarP(&collectCount, "count", "n", 0, "Number of trajectories to collect (overrides config)")
	collectCmd.Flags().IntVarP(&collectWorkers, "workers", "w", 0, "Worker pool size (overrides config)")
	collectCmd.Flags().IntVar(&collectBasePort, "base-port", 0, "Automation port of slot 0 (overrides config)")
	collectCmd.Flags().StringVarP(&collectTasksFile, "tasks", "t", "", "JSON task file (default: built-in sample tasks)")
	collectCmd.Flags().BoolVar(&collectManaged, "managed", false, "Start and stop one container per slot")
	collectCmd.Flags().BoolVar(&collectNoAPI, "no-api", false, "Disable the live status API")
	rootCmd.AddCommand(collectCmd)
}

var (
	collectOutput    string
	collectCount     int
	collectWorkers   int
	collectBasePort  int
	collectTasksFile string
	collectManaged   bool
	collectNoAPI     bool
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run a trajectory collection over the endpoint fleet",
	Long: `Start a collection run: health-check the endpoint fleet, fan tasks out
to one worker per healthy slot and commit trajectories to the dataset
directory. Ctrl-C drains workers gracefully and finalizes the index.`,
	RunE: runCollect,
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}

	// Override config from flags
	if collectOutput != "" {
		cfg.Collect.OutputDir = collectOutput
	}
	if collectCount > 0 {
		cfg.Collect.SampleTarget = collectCount
	}
	if collectWorkers > 0 {
		cfg.Collect.Workers = collectWorkers
	}
	if collectBasePort > 0 {
		cfg.Endpoints.BasePort = collectBasePort
	}
	if collectManaged {
		cfg.Containers.Managed = true
	}
	if collectNoAPI {
		cfg.API.Enabled = false
	}

	tasks := collector.SampleTasks()
	if collectTasksFile != "" {
		tasks, err = collector.LoadTasks(collectTasksFile)
		if err != nil {
			return err
		}
	}

	var ledger *sqlite.DB
	if cfg.Ledger.Enabled {
		ledger, err = sqlite.Open(cfg.Ledger.Dir)
		if err != nil {
			return fmt.Errorf("open run ledger: %w", err)
		}
		defer ledger.Close()
	}

	progress := collector.NewProgressLogger(os.Stderr)
	orch := collector.NewOrchestrator(cfg, tasks, progress, ledger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var apiServer *http.Server
	if cfg.API.Enabled {
		srv := api.NewServer(orch, rootCmd.Version)
		if cfg.Telemetry.Prometheus {
			srv.EnableMetrics()
		}
		apiServer = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
			Handler: srv.Handler(),
		}
		go func() {
			if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				progress.Sysf("status api: %v", err)
			}
		}()
		progress.Sysf("status api on http://%s", apiServer.Addr)
	}

	summary, runErr := orch.Run(ctx)

	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		apiServer.Shutdown(shutdownCtx)
		cancel()
	}

	if runErr != nil {
		if errors.Is(runErr, domain.ErrPoolExhausted) {
			return fmt.Errorf("no healthy endpoints: %w", runErr)
		}
		return runErr
	}

	fmt.Printf("Run %s finished: %d trajectories (%d ok, %d failed, %d skipped) with %d workers in %s\n",
		summary.RunID, summary.Committed, summary.Successful, summary.Failed,
		summary.Skipped, summary.Workers, summary.Elapsed.Round(time.Second))
	return nil
}

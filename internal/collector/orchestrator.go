package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/uitrail/uitrail/internal/daemon"
	"github.com/uitrail/uitrail/internal/dataset"
	"github.com/uitrail/uitrail/internal/domain"
	"github.com/uitrail/uitrail/internal/infra/container"
	"github.com/uitrail/uitrail/internal/infra/endpoint"
	"github.com/uitrail/uitrail/internal/infra/sqlite"
)

// RunSummary is the outcome of one collection run.
type RunSummary struct {
	RunID       string
	Successful  int
	Failed      int
	Skipped     int
	Committed   int
	Workers     int
	Interrupted bool
	Elapsed     time.Duration
}

// Orchestrator drives one collection run end to end: task validation, slot
// pool construction, health checks, worker fan-out, graceful shutdown and
// finalization.
type Orchestrator struct {
	cfg      daemon.Config
	tasks    []domain.Task
	progress *ProgressLogger
	agg      *Aggregator
	ledger   *sqlite.DB

	mu         sync.Mutex
	queue      *Queue
	supervisor *Supervisor
}

// NewOrchestrator prepares a run over the given tasks. The ledger is
// optional; pass nil to skip run history.
func NewOrchestrator(cfg daemon.Config, tasks []domain.Task, progress *ProgressLogger, ledger *sqlite.DB) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		tasks:    tasks,
		progress: progress,
		agg:      NewAggregator(),
		ledger:   ledger,
	}
}

// Aggregator exposes the run's live counters.
func (o *Orchestrator) Aggregator() *Aggregator { return o.agg }

// SlotStates returns the current state of every slot, keyed by index.
func (o *Orchestrator) SlotStates() map[int]SlotState {
	o.mu.Lock()
	sv := o.supervisor
	o.mu.Unlock()

	states := map[int]SlotState{}
	if sv == nil {
		return states
	}
	for _, s := range sv.Slots() {
		states[s.Index] = s.State()
	}
	return states
}

// QueueDepth returns the number of tasks still waiting.
func (o *Orchestrator) QueueDepth() int {
	o.mu.Lock()
	q := o.queue
	o.mu.Unlock()
	if q == nil {
		return 0
	}
	return q.Depth()
}

// Run executes the collection until the queue drains or ctx is cancelled.
// Cancellation is graceful: workers stop at step boundaries and the index is
// finalized from whatever was committed.
func (o *Orchestrator) Run(ctx context.Context) (RunSummary, error) {
	start := time.Now()
	runID := uuid.New().String()[:8]

	tasks := ValidateTasks(o.tasks, o.agg, o.progress)
	tasks = ExpandTasks(tasks, o.cfg.Collect.SampleTarget)
	if len(tasks) == 0 {
		return RunSummary{RunID: runID}, fmt.Errorf("%w: no valid tasks", domain.ErrTaskInvalid)
	}

	recorder, err := dataset.NewRecorder(o.cfg.Collect.OutputDir)
	if err != nil {
		return RunSummary{RunID: runID}, err
	}

	slots, runtime, err := o.buildSlots(ctx)
	if err != nil {
		return RunSummary{RunID: runID}, err
	}
	if runtime != nil {
		defer o.stopContainers(slots, runtime)
	}

	sv := NewSupervisor(SupervisorConfig{
		Probes:         o.cfg.Endpoints.HealthProbes,
		StartupTimeout: o.cfg.Endpoints.HealthCheckTimeoutDuration(),
	}, slots, o.progress)

	o.progress.Sysf("checking %d slots", len(slots))
	healthy, err := sv.CheckAll(ctx)
	if err != nil {
		return RunSummary{RunID: runID}, err
	}
	o.progress.Sysf("%d of %d slots healthy, %d tasks queued", len(healthy), len(slots), len(tasks))

	queue := NewQueue(tasks)
	o.mu.Lock()
	o.queue = queue
	o.supervisor = sv
	o.mu.Unlock()

	if o.ledger != nil {
		err := o.ledger.InsertRun(sqlite.Run{
			ID:        runID,
			OutputDir: o.cfg.Collect.OutputDir,
			StartedAt: start,
			Workers:   len(healthy),
			Tasks:     len(tasks),
		})
		if err != nil {
			o.progress.Sysf("ledger: %v", err)
		}
	}

	// Shutdown path: a cancelled context closes the queue so workers finish
	// their current trajectory and exit at the next dequeue.
	stopWatch := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			o.progress.Sysf("shutdown requested, draining workers")
			queue.Shutdown()
		case <-stopWatch:
		}
	}()

	runnerCfg := RunnerConfig{
		MaxSteps:        o.cfg.Collect.MaxSteps,
		ActionRetries:   o.cfg.Collect.ActionRetries,
		MaxTaskAttempts: o.cfg.Collect.MaxTaskAttempts,
		StepTimeout:     o.cfg.Collect.StepTimeoutDuration(),
		SettleDelay:     o.cfg.Collect.SettleDelayDuration(),
	}

	var nav Navigator
	if runtime != nil {
		nav = runtime
	}

	var wg sync.WaitGroup
	for _, slot := range healthy {
		runner := NewRunner(slot, queue, sv, recorder, o.agg, o.progress, nav, runnerCfg)
		wg.Add(1)
		go func() {
			defer wg.Done()
			runner.Run(ctx)
		}()
	}
	wg.Wait()
	close(stopWatch)
	interrupted := ctx.Err() != nil

	// Tasks still pending after every runner exited mean the pool collapsed
	// mid-run: no healthy slot was left to pick them up. Account for them
	// and report the run as failed. An interrupted run strands tasks too,
	// but that is the operator's doing, not a pool failure.
	stranded := queue.Drain()
	var poolErr error
	if len(stranded) > 0 && !interrupted {
		for _, task := range stranded {
			o.agg.Skip(task, "no healthy worker slots remaining")
		}
		o.progress.Sysf("pool exhausted with %d tasks never attempted", len(stranded))
		poolErr = fmt.Errorf("%w: %d tasks never attempted", domain.ErrPoolExhausted, len(stranded))
	}

	summary, err := o.finalize(runID, start, len(healthy), interrupted)
	if err != nil {
		return summary, err
	}
	return summary, poolErr
}

// buildSlots constructs the slot pool from the endpoint port layout and,
// when managed, starts one container per slot.
func (o *Orchestrator) buildSlots(ctx context.Context) ([]*Slot, *container.Runtime, error) {
	timeout := o.cfg.Collect.StepTimeoutDuration()

	var runtime *container.Runtime
	if o.cfg.Containers.Managed {
		rt, err := container.Detect(o.cfg.Containers.Runtime)
		if err != nil {
			return nil, nil, err
		}
		runtime = rt
		o.progress.Sysf("using container runtime %s", rt.Name())
	}

	slots := make([]*Slot, 0, o.cfg.Collect.Workers)
	for i := 0; i < o.cfg.Collect.Workers; i++ {
		name := fmt.Sprintf("%s%d", o.cfg.Containers.NamePrefix, i)
		slot := &Slot{
			Index:         i,
			Endpoint:      endpoint.NewClient(o.cfg.Endpoints.AutomationURL(i), timeout),
			Inspector:     endpoint.NewInspector(o.cfg.Endpoints.InspectionURL(i), timeout),
			ContainerName: name,
		}
		if runtime != nil {
			autoPort := o.cfg.Endpoints.BasePort + i*o.cfg.Endpoints.PortStride
			inspectPort := autoPort + o.cfg.Endpoints.InspectOffset
			if err := runtime.StartSlot(ctx, name, o.cfg.Containers.Image, autoPort, inspectPort); err != nil {
				o.progress.Sysf("start container %s: %v", name, err)
			}
		}
		slots = append(slots, slot)
	}
	return slots, runtime, nil
}

// stopContainers tears down managed containers after the run.
func (o *Orchestrator) stopContainers(slots []*Slot, runtime *container.Runtime) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, s := range slots {
		if err := runtime.StopSlot(ctx, s.ContainerName); err != nil {
			o.progress.Sysf("stop container %s: %v", s.ContainerName, err)
		}
	}
}

// finalize writes the index, closes out the ledger and prints the summary.
func (o *Orchestrator) finalize(runID string, start time.Time, workers int, interrupted bool) (RunSummary, error) {
	md := dataset.Metadata{
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		SampleTarget: o.cfg.Collect.SampleTarget,
		Workers:      workers,
		Interrupted:  interrupted,
	}
	idx, err := o.agg.Finalize(o.cfg.Collect.OutputDir, md, o.progress)
	if err != nil {
		return RunSummary{RunID: runID}, err
	}

	snap := o.agg.Snapshot()
	if o.ledger != nil {
		for _, rec := range o.agg.Attempts() {
			err := o.ledger.InsertAttempt(sqlite.Attempt{
				TrajectoryID: rec.Result.TrajectoryID,
				RunID:        runID,
				TaskID:       rec.TaskID,
				Slot:         rec.Slot,
				Success:      rec.Result.Success,
				Steps:        rec.Result.TotalSteps,
				DurationMs:   rec.Result.CompletionTimeMs,
				Error:        rec.Result.ErrorMessage,
			})
			if err != nil {
				o.progress.Sysf("ledger: %v", err)
				break
			}
		}
		err := o.ledger.FinishRun(sqlite.Run{
			ID:          runID,
			FinishedAt:  time.Now(),
			Successful:  snap.Successful,
			Failed:      snap.Failed,
			Skipped:     snap.Skipped,
			Interrupted: interrupted,
		})
		if err != nil {
			o.progress.Sysf("ledger: %v", err)
		}
	}

	for slot, tally := range snap.PerSlot {
		o.progress.Sysf("slot %d: %d trajectories (%d ok, %d failed)", slot, tally.Completed, tally.Succeeded, tally.Failed)
	}
	for _, skip := range o.agg.Skips() {
		o.progress.Sysf("skipped %s", skip)
	}
	elapsed := time.Since(start)
	o.progress.Sysf("run %s: %d committed (%d ok, %d failed, %d skipped) in %s",
		runID, idx.TotalTrajectories, snap.Successful, snap.Failed, snap.Skipped, elapsed.Round(time.Second))

	return RunSummary{
		RunID:       runID,
		Successful:  snap.Successful,
		Failed:      snap.Failed,
		Skipped:     snap.Skipped,
		Committed:   idx.TotalTrajectories,
		Workers:     workers,
		Interrupted: interrupted,
		Elapsed:     elapsed,
	}, nil
}

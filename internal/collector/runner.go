package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uitrail/uitrail/internal/dataset"
	"github.com/uitrail/uitrail/internal/domain"
	"github.com/uitrail/uitrail/internal/infra/metrics"
)

// RunnerConfig bounds one worker's execution behavior.
type RunnerConfig struct {
	MaxSteps        int           // hard cap on steps per trajectory
	ActionRetries   int           // step-level retries after the first failure
	MaxTaskAttempts int           // attempts before a task is dropped
	StepTimeout     time.Duration // per network call
	SettleDelay     time.Duration // pause between an action and the next snapshot
}

// Runner drives one worker slot through the collection loop:
//
//	Idle → Executing → Recording → Reporting → Idle
//
// with a Failed exit that re-enqueues the task and hands the slot to the
// supervisor. Runners are fully independent; they coordinate only through
// the queue, the supervisor, the aggregator and the progress logger.
type Runner struct {
	slot       *Slot
	queue      *Queue
	supervisor *Supervisor
	recorder   *dataset.Recorder
	agg        *Aggregator
	progress   *ProgressLogger
	navigator  Navigator
	cfg        RunnerConfig
}

// NewRunner wires a runner to its slot and shared collaborators.
func NewRunner(slot *Slot, queue *Queue, sv *Supervisor, rec *dataset.Recorder,
	agg *Aggregator, progress *ProgressLogger, nav Navigator, cfg RunnerConfig) *Runner {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 20
	}
	if cfg.ActionRetries < 0 {
		cfg.ActionRetries = 0
	}
	if cfg.MaxTaskAttempts <= 0 {
		cfg.MaxTaskAttempts = 3
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = 30 * time.Second
	}
	return &Runner{
		slot: slot, queue: queue, supervisor: sv, recorder: rec,
		agg: agg, progress: progress, navigator: nav, cfg: cfg,
	}
}

// Run executes the worker loop until the queue signals end of work or the
// slot fails. Call in a goroutine, one per healthy slot.
func (r *Runner) Run(ctx context.Context) {
	for {
		task, err := r.queue.Next()
		if errors.Is(err, domain.ErrEndOfWork) {
			r.slot.setState(SlotStopped)
			return
		}

		r.slot.setState(SlotBusy)
		slotFailed := r.runTask(ctx, task)
		if slotFailed {
			// Failed exit: task is already back in the queue; the slot no
			// longer accepts work.
			return
		}
		r.slot.setState(SlotIdle)
	}
}

// runTask executes one attempt. Returns true when the slot itself failed
// and the runner must terminate.
func (r *Runner) runTask(ctx context.Context, task domain.Task) (slotFailed bool) {
	if task.Attempt >= r.cfg.MaxTaskAttempts {
		r.progress.Emit(r.slot.Index, "dropping task %s after %d attempts", task.ID, task.Attempt)
		r.agg.Skip(task, fmt.Sprintf("exceeded %d attempts", r.cfg.MaxTaskAttempts))
		r.queue.Complete()
		return false
	}

	trajID := domain.NewTrajectoryID(task.ID)
	r.progress.Emit(r.slot.Index, "task %s attempt %d → trajectory %s", task.ID, task.Attempt+1, trajID)

	writer, err := r.recorder.Begin(trajID, task)
	if err != nil {
		r.progress.Emit(r.slot.Index, "task %s: %v", task.ID, err)
		r.agg.Skip(task, "disk write failure")
		r.queue.Complete()
		return false
	}

	start := time.Now()
	execErr := r.executeTrajectory(ctx, task, writer)

	// Failed exit: the endpoint is gone. Abandon this attempt without a
	// result record and give the task to another slot.
	if execErr != nil && errors.Is(execErr, domain.ErrEndpointUnreachable) {
		writer.Discard()
		metrics.TrajectoriesDiscarded.Inc()
		r.supervisor.MarkUnhealthy(r.slot, execErr)
		r.progress.Emit(r.slot.Index, "task %s re-enqueued: %v", task.ID, execErr)
		r.queue.Requeue(task)
		return true
	}

	// Reporting: build the result and commit. Every non-requeued attempt
	// reports exactly one result for its own trajectory id.
	result := domain.Result{
		TrajectoryID:     trajID,
		Success:          execErr == nil,
		TotalSteps:       writer.Steps(),
		CompletionTimeMs: time.Since(start).Milliseconds(),
	}
	if execErr != nil {
		result.ErrorMessage = execErr.Error()
	}

	if err := writer.Commit(result); err != nil {
		r.progress.Emit(r.slot.Index, "task %s: %v", task.ID, err)
		metrics.TrajectoriesDiscarded.Inc()
		r.agg.Skip(task, "disk write failure")
		r.queue.Complete()
		return false
	}

	metrics.TrajectoriesCommitted.WithLabelValues(outcomeLabel(result.Success)).Inc()
	metrics.TrajectoryDuration.Observe(time.Since(start).Seconds())
	r.agg.Record(result, task, r.slot.Index)
	r.queue.Complete()

	if result.Success {
		r.progress.Emit(r.slot.Index, "task %s done: %d steps in %dms", task.ID, result.TotalSteps, result.CompletionTimeMs)
	} else {
		r.progress.Emit(r.slot.Index, "task %s failed: %s", task.ID, result.ErrorMessage)
	}
	return false
}

// executeTrajectory runs the Executing/Recording phases: navigate, then for
// each step capture a snapshot, append it, and perform the scripted action.
// A nil return means the trajectory succeeded; ErrEndpointUnreachable means
// the slot is dead; anything else fails only this trajectory.
func (r *Runner) executeTrajectory(ctx context.Context, task domain.Task, writer *dataset.TrajectoryWriter) error {
	if task.TargetURL != "" && r.navigator != nil {
		navCtx, cancel := context.WithTimeout(ctx, r.cfg.StepTimeout)
		err := r.navigator.Navigate(navCtx, r.slot.ContainerName, task.TargetURL)
		cancel()
		if err != nil {
			return fmt.Errorf("navigate to %s: %w", task.TargetURL, err)
		}
		if err := r.settle(ctx); err != nil {
			return err
		}
	}

	budget := task.StepBudget(r.cfg.MaxSteps)
	for i := 0; i < budget; i++ {
		// Step boundary: honor shutdown before starting another step.
		if ctx.Err() != nil {
			return fmt.Errorf("shutdown requested after %d steps", writer.Steps())
		}

		step, err := r.captureStep(ctx, task, i)
		if err != nil {
			return err
		}
		if err := writer.AppendStep(step); err != nil {
			return err
		}

		stepStart := time.Now()
		if err := r.performWithRetry(ctx, step.Action); err != nil {
			return err
		}
		metrics.StepsExecuted.WithLabelValues(string(step.Action.Type)).Inc()
		metrics.StepLatency.Observe(time.Since(stepStart).Seconds())

		if err := r.settle(ctx); err != nil {
			return err
		}
	}

	// Final snapshot after the last action. Best effort — a failure here
	// does not invalidate the recorded steps.
	if png, err := r.screenshotWithRetry(ctx); err == nil {
		if err := writer.WriteFinalScreenshot(png); err != nil {
			return err
		}
	} else if errors.Is(err, domain.ErrEndpointUnreachable) {
		return err
	}
	return nil
}

// captureStep takes the state snapshot for step i and selects its action.
func (r *Runner) captureStep(ctx context.Context, task domain.Task, i int) (domain.Step, error) {
	png, err := r.screenshotWithRetry(ctx)
	if err != nil {
		return domain.Step{}, fmt.Errorf("step %d snapshot: %w", i, err)
	}

	step := domain.Step{Index: i, Screenshot: png}

	// Layout inspection is supplementary — a failed fetch degrades the
	// snapshot instead of failing the step.
	if r.slot.Inspector != nil {
		layoutCtx, cancel := context.WithTimeout(ctx, r.cfg.StepTimeout)
		if tree, err := r.slot.Inspector.Layout(layoutCtx); err == nil {
			step.UITree = tree
		}
		cancel()
	}

	if i < len(task.Actions) {
		step.Action = task.Actions[i]
	} else {
		step.Action = domain.WaitAction(1, "no scripted action for this step")
	}
	step.Action.StepIndex = i
	return step, nil
}

// screenshotWithRetry captures a screenshot with bounded retries.
func (r *Runner) screenshotWithRetry(ctx context.Context) ([]byte, error) {
	var png []byte
	err := r.withRetry(ctx, func(callCtx context.Context) error {
		var err error
		png, err = r.slot.Endpoint.Screenshot(callCtx)
		return err
	})
	return png, err
}

// performWithRetry executes one action with bounded retries.
func (r *Runner) performWithRetry(ctx context.Context, action domain.Action) error {
	return r.withRetry(ctx, func(callCtx context.Context) error {
		return r.slot.Endpoint.Perform(callCtx, action)
	})
}

// withRetry runs one endpoint call with the configured retry bound and
// doubling backoff. An unreachable endpoint is confirmed with a single
// probe and then returned immediately — further retries would only delay
// the task's failover to another slot.
func (r *Runner) withRetry(ctx context.Context, call func(context.Context) error) error {
	backoff := 500 * time.Millisecond
	var lastErr error

	for attempt := 0; attempt <= r.cfg.ActionRetries; attempt++ {
		if attempt > 0 {
			metrics.ActionRetries.Inc()
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		callCtx, cancel := context.WithTimeout(ctx, r.cfg.StepTimeout)
		lastErr = call(callCtx)
		cancel()

		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, domain.ErrEndpointUnreachable) {
			probeCtx, cancel := context.WithTimeout(ctx, r.cfg.StepTimeout)
			probeErr := r.slot.Endpoint.Probe(probeCtx)
			cancel()
			if probeErr != nil {
				return lastErr
			}
			// Endpoint answered the probe — treat as a transient failure.
		}
	}
	return lastErr
}

// settle pauses between an action and the next snapshot so the UI can update.
func (r *Runner) settle(ctx context.Context) error {
	if r.cfg.SettleDelay <= 0 {
		return nil
	}
	t := time.NewTimer(r.cfg.SettleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return nil
	case <-t.C:
		return nil
	}
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

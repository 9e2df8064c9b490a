package collector

import (
	"fmt"
	"sync"

	"github.com/uitrail/uitrail/internal/dataset"
	"github.com/uitrail/uitrail/internal/domain"
)

// SlotTally is one slot's contribution to the run.
type SlotTally struct {
	Completed int `json:"completed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Snapshot is a point-in-time view of the aggregate counters, served by the
// status API and printed in the final summary.
type Snapshot struct {
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Skipped    int               `json:"skipped"`
	Committed  int               `json:"committed"`
	PerSlot    map[int]SlotTally `json:"per_slot"`
}

// AttemptRecord pairs a committed result with its task and slot, for the
// run ledger.
type AttemptRecord struct {
	Result domain.Result
	TaskID string
	Slot   int
}

// Aggregator collects per-trajectory outcomes from all workers. It holds no
// package-level state; the orchestrator passes one instance by reference to
// every runner. Finalize may be called once.
type Aggregator struct {
	mu         sync.Mutex
	entries    []dataset.IndexEntry
	attempts   []AttemptRecord
	skips      []string
	successful int
	failed     int
	perSlot    map[int]*SlotTally
	finalized  bool
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{perSlot: map[int]*SlotTally{}}
}

// Record registers one committed trajectory.
func (a *Aggregator) Record(res domain.Result, task domain.Task, slot int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries = append(a.entries, dataset.IndexEntry{
		ID:          res.TrajectoryID,
		TaskID:      task.ID,
		Success:     res.Success,
		Steps:       res.TotalSteps,
		Application: task.Application,
		Worker:      slot,
	})
	a.attempts = append(a.attempts, AttemptRecord{Result: res, TaskID: task.ID, Slot: slot})

	tally := a.perSlot[slot]
	if tally == nil {
		tally = &SlotTally{}
		a.perSlot[slot] = tally
	}
	tally.Completed++
	if res.Success {
		a.successful++
		tally.Succeeded++
	} else {
		a.failed++
		tally.Failed++
	}
}

// Skip registers a task that produced no committed trajectory: invalid input,
// an exhausted attempt budget, or a failed commit. Recorded so the run
// accounts for every task it was given.
func (a *Aggregator) Skip(task domain.Task, reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.skips = append(a.skips, fmt.Sprintf("%s: %s", task.ID, reason))
}

// Snapshot returns current counters. Safe to call at any time.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	per := make(map[int]SlotTally, len(a.perSlot))
	for slot, t := range a.perSlot {
		per[slot] = *t
	}
	return Snapshot{
		Successful: a.successful,
		Failed:     a.failed,
		Skipped:    len(a.skips),
		Committed:  len(a.entries),
		PerSlot:    per,
	}
}

// Skips returns the reasons recorded for skipped tasks, in arrival order.
func (a *Aggregator) Skips() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.skips...)
}

// Finalize writes the dataset index and metadata, cross-checking the counters
// against the committed directories on disk. Index totals always reflect what
// was actually committed, even after an interrupt.
func (a *Aggregator) Finalize(datasetDir string, md dataset.Metadata, progress *ProgressLogger) (dataset.Index, error) {
	a.mu.Lock()
	if a.finalized {
		a.mu.Unlock()
		return dataset.Index{}, fmt.Errorf("aggregator already finalized")
	}
	a.finalized = true
	entries := append([]dataset.IndexEntry(nil), a.entries...)
	successful, failed, skipped := a.successful, a.failed, len(a.skips)
	a.mu.Unlock()

	idx := dataset.NewIndex(entries, successful, failed, skipped, md.Workers)

	onDisk, err := dataset.CountCommitted(datasetDir)
	if err != nil {
		progress.Sysf("count committed trajectories: %v", err)
	} else if onDisk != idx.TotalTrajectories {
		progress.Sysf("index mismatch: %d entries recorded, %d trajectories on disk", idx.TotalTrajectories, onDisk)
	}

	if err := dataset.WriteIndex(datasetDir, idx); err != nil {
		return idx, err
	}
	if err := dataset.WriteMetadata(datasetDir, md); err != nil {
		return idx, err
	}
	return idx, nil
}

// Attempts returns the committed attempt records in commit order.
func (a *Aggregator) Attempts() []AttemptRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]AttemptRecord(nil), a.attempts...)
}

// Entries returns the committed index entries recorded so far.
func (a *Aggregator) Entries() []dataset.IndexEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]dataset.IndexEntry(nil), a.entries...)
}

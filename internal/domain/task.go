// Package domain holds the core collection types.
// A Task is one unit of collection work: an instruction plus target context,
// optionally with a scripted action sequence. Tasks flow
// enqueue → dequeue → execute → record → report, and are immutable once enqueued.
package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Task describes one unit of collection work.
type Task struct {
	ID            string   `json:"task_id"`
	Instruction   string   `json:"instruction"`
	TargetURL     string   `json:"target_url,omitempty"`
	Application   string   `json:"application,omitempty"`
	Difficulty    string   `json:"difficulty,omitempty"`
	ExpectedSteps int      `json:"expected_steps,omitempty"`
	Actions       []Action `json:"actions,omitempty"`

	// Attempt counts how many times this task has been handed to a worker.
	// Not part of the on-disk task.json contract.
	Attempt int `json:"-"`
}

// Validate reports whether the task definition is well-formed.
func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: missing task_id", ErrTaskInvalid)
	}
	if strings.TrimSpace(t.Instruction) == "" {
		return fmt.Errorf("%w: task %q has no instruction", ErrTaskInvalid, t.ID)
	}
	if t.ExpectedSteps < 0 {
		return fmt.Errorf("%w: task %q has negative expected_steps", ErrTaskInvalid, t.ID)
	}
	for i, a := range t.Actions {
		if !a.Type.Valid() {
			return fmt.Errorf("%w: task %q action %d has unknown type %q", ErrTaskInvalid, t.ID, i, a.Type)
		}
	}
	return nil
}

// StepBudget returns the maximum number of steps an attempt may execute.
// Scripted tasks are bounded by their action list; otherwise expected_steps
// applies, capped by the orchestrator's configured maximum.
func (t Task) StepBudget(maxSteps int) int {
	budget := t.ExpectedSteps
	if len(t.Actions) > 0 {
		budget = len(t.Actions)
	}
	if budget <= 0 || budget > maxSteps {
		budget = maxSteps
	}
	return budget
}

// NewTrajectoryID mints a fresh trajectory id for one attempt at a task.
// Every attempt gets its own id so a retried task never competes with an
// abandoned attempt for the same output directory.
func NewTrajectoryID(taskID string) string {
	return taskID + "-" + uuid.New().String()[:8]
}

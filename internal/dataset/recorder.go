package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/uitrail/uitrail/internal/domain"
)

// Recorder buffers and commits trajectory artifacts. One Recorder serves the
// whole run; each attempt opens its own TrajectoryWriter, so concurrent
// workers never touch the same files. A trajectory becomes visible to readers
// only through the final atomic rename in Commit — a crash at any earlier
// point leaves nothing under trajectories/.
type Recorder struct {
	datasetDir string
}

// NewRecorder prepares the dataset directory structure.
func NewRecorder(datasetDir string) (*Recorder, error) {
	for _, dir := range []string{TrajectoriesDir(datasetDir), stagingDir(datasetDir)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrDiskWriteFailure, err)
		}
	}
	return &Recorder{datasetDir: datasetDir}, nil
}

// DatasetDir returns the dataset root this recorder writes to.
func (r *Recorder) DatasetDir() string { return r.datasetDir }

// Begin opens a writer for one trajectory attempt. The task description is
// written to the staging area immediately; steps follow via AppendStep.
func (r *Recorder) Begin(trajectoryID string, task domain.Task) (*TrajectoryWriter, error) {
	dir := filepath.Join(stagingDir(r.datasetDir), trajectoryID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create staging dir: %v", domain.ErrDiskWriteFailure, err)
	}

	w := &TrajectoryWriter{
		recorder:     r,
		trajectoryID: trajectoryID,
		dir:          dir,
	}
	if err := writeJSON(filepath.Join(dir, TaskFilename), task); err != nil {
		w.Discard()
		return nil, err
	}
	return w, nil
}

// TrajectoryWriter accumulates one attempt's artifacts in the staging area.
// Owned by a single worker; not safe for concurrent use.
type TrajectoryWriter struct {
	recorder     *Recorder
	trajectoryID string
	dir          string
	steps        int
	done         bool
}

// TrajectoryID returns the attempt's trajectory id.
func (w *TrajectoryWriter) TrajectoryID() string { return w.trajectoryID }

// Steps returns how many steps have been appended so far.
func (w *TrajectoryWriter) Steps() int { return w.steps }

// AppendStep writes one step's snapshot and action under steps/NNN.
func (w *TrajectoryWriter) AppendStep(step domain.Step) error {
	stepDir := StepDir(w.dir, step.Index)
	if err := os.MkdirAll(stepDir, 0755); err != nil {
		return fmt.Errorf("%w: create step dir: %v", domain.ErrDiskWriteFailure, err)
	}

	if len(step.Screenshot) > 0 {
		path := filepath.Join(stepDir, ScreenshotFilename)
		if err := os.WriteFile(path, step.Screenshot, 0644); err != nil {
			return fmt.Errorf("%w: write screenshot: %v", domain.ErrDiskWriteFailure, err)
		}
	}

	uiTree := step.UITree
	if len(uiTree) == 0 {
		uiTree = json.RawMessage(`{"tabs":[]}`)
	}
	if err := os.WriteFile(filepath.Join(stepDir, UITreeFilename), uiTree, 0644); err != nil {
		return fmt.Errorf("%w: write ui tree: %v", domain.ErrDiskWriteFailure, err)
	}

	action := step.Action
	action.StepIndex = step.Index
	if err := writeJSON(filepath.Join(stepDir, ActionFilename), action); err != nil {
		return err
	}

	w.steps++
	return nil
}

// WriteFinalScreenshot stores the snapshot taken after the last action.
func (w *TrajectoryWriter) WriteFinalScreenshot(png []byte) error {
	if len(png) == 0 {
		return nil
	}
	path := filepath.Join(w.dir, FinalScreenshotFilename)
	if err := os.WriteFile(path, png, 0644); err != nil {
		return fmt.Errorf("%w: write final screenshot: %v", domain.ErrDiskWriteFailure, err)
	}
	return nil
}

// Commit writes the result record and atomically moves the staged directory
// into trajectories/. After Commit returns nil the trajectory is fully
// visible; on error nothing is visible and the staging dir is removed.
func (w *TrajectoryWriter) Commit(result domain.Result) error {
	if w.done {
		return fmt.Errorf("trajectory %s already finalized", w.trajectoryID)
	}

	if err := writeJSON(filepath.Join(w.dir, ResultFilename), result); err != nil {
		w.Discard()
		return err
	}

	final := TrajectoryDir(w.recorder.datasetDir, w.trajectoryID)
	if err := os.Rename(w.dir, final); err != nil {
		w.Discard()
		return fmt.Errorf("%w: commit %s: %v", domain.ErrDiskWriteFailure, w.trajectoryID, err)
	}
	w.done = true
	return nil
}

// Discard removes the staged artifacts. Safe to call more than once and
// after Commit, where it is a no-op.
func (w *TrajectoryWriter) Discard() {
	if w.done {
		return
	}
	w.done = true
	os.RemoveAll(w.dir)
}

// writeJSON marshals v with indentation and writes it to path.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", domain.ErrDiskWriteFailure, filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrDiskWriteFailure, filepath.Base(path), err)
	}
	return nil
}

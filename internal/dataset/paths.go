// Package dataset implements the on-disk trajectory data format.
// Directory layout and file names are a fixed external contract shared with
// the dataset validation tooling:
//
//	<dataset>/
//	  index.json
//	  metadata.json
//	  trajectories/<trajectory-id>/
//	    task.json
//	    steps/<NNN>/{screenshot.png, ui_tree.json, action.json}
//	    final_screenshot.png
//	    result.json
package dataset

import (
	"fmt"
	"path/filepath"
)

const (
	TaskFilename            = "task.json"
	ResultFilename          = "result.json"
	ActionFilename          = "action.json"
	ScreenshotFilename      = "screenshot.png"
	UITreeFilename          = "ui_tree.json"
	FinalScreenshotFilename = "final_screenshot.png"
	IndexFilename           = "index.json"
	MetadataFilename        = "metadata.json"
	StepsDirname            = "steps"
	TrajectoriesDirname     = "trajectories"

	// stagingDirname holds in-progress trajectory writes. It lives inside the
	// dataset directory so the final rename never crosses a filesystem.
	stagingDirname = ".staging"
)

// TrajectoriesDir returns the committed trajectories directory.
func TrajectoriesDir(datasetDir string) string {
	return filepath.Join(datasetDir, TrajectoriesDirname)
}

// TrajectoryDir returns the committed directory for one trajectory.
func TrajectoryDir(datasetDir, trajectoryID string) string {
	return filepath.Join(TrajectoriesDir(datasetDir), trajectoryID)
}

// IndexPath returns the dataset index.json path.
func IndexPath(datasetDir string) string {
	return filepath.Join(datasetDir, IndexFilename)
}

// MetadataPath returns the dataset metadata.json path.
func MetadataPath(datasetDir string) string {
	return filepath.Join(datasetDir, MetadataFilename)
}

// StepDir returns the directory for one step within a trajectory directory.
func StepDir(trajectoryDir string, stepIndex int) string {
	return filepath.Join(trajectoryDir, StepsDirname, fmt.Sprintf("%03d", stepIndex))
}

// stagingDir returns the staging area for in-progress writes.
func stagingDir(datasetDir string) string {
	return filepath.Join(datasetDir, stagingDirname)
}

package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/uitrail/uitrail/internal/domain"
)

// IndexVersion is the dataset index format version.
const IndexVersion = "1.0"

// IndexEntry summarizes one committed trajectory.
type IndexEntry struct {
	ID          string `json:"id"`
	TaskID      string `json:"task_id"`
	Success     bool   `json:"success"`
	Steps       int    `json:"steps"`
	Application string `json:"application,omitempty"`
	Worker      int    `json:"worker"`
}

// Index is the top-level dataset summary, rebuilt from aggregator state at
// shutdown. successful + failed always equals total_trajectories, which in
// turn equals the number of committed trajectory directories on disk.
type Index struct {
	Version           string       `json:"version"`
	TotalTrajectories int          `json:"total_trajectories"`
	Successful        int          `json:"successful"`
	Failed            int          `json:"failed"`
	Skipped           int          `json:"skipped"`
	CreatedAt         string       `json:"created_at"`
	WorkersUsed       int          `json:"workers_used"`
	Trajectories      []IndexEntry `json:"trajectories"`
}

// NewIndex builds an index from ordered entries.
func NewIndex(entries []IndexEntry, successful, failed, skipped, workers int) Index {
	return Index{
		Version:           IndexVersion,
		TotalTrajectories: len(entries),
		Successful:        successful,
		Failed:            failed,
		Skipped:           skipped,
		CreatedAt:         time.Now().UTC().Format(time.RFC3339),
		WorkersUsed:       workers,
		Trajectories:      entries,
	}
}

// WriteIndex persists the index to <dataset>/index.json.
func WriteIndex(datasetDir string, idx Index) error {
	return writeJSON(IndexPath(datasetDir), idx)
}

// ReadIndex loads <dataset>/index.json.
func ReadIndex(datasetDir string) (Index, error) {
	var idx Index
	data, err := os.ReadFile(IndexPath(datasetDir))
	if err != nil {
		return idx, fmt.Errorf("read index: %w", err)
	}
	if err := json.Unmarshal(data, &idx); err != nil {
		return idx, fmt.Errorf("parse index: %w", err)
	}
	return idx, nil
}

// CountCommitted counts on-disk trajectory directories that contain a result
// record. Used at finalize time to cross-check aggregator counters.
func CountCommitted(datasetDir string) (int, error) {
	dir := TrajectoriesDir(datasetDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("scan trajectories: %w", err)
	}

	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, e.Name(), ResultFilename)); err == nil {
			count++
		}
	}
	return count, nil
}

// ReadResult loads the result record of one committed trajectory.
func ReadResult(datasetDir, trajectoryID string) (domain.Result, error) {
	var res domain.Result
	data, err := os.ReadFile(filepath.Join(TrajectoryDir(datasetDir, trajectoryID), ResultFilename))
	if err != nil {
		return res, fmt.Errorf("read result: %w", err)
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return res, fmt.Errorf("parse result: %w", err)
	}
	return res, nil
}

// Metadata records run-level context next to the index.
type Metadata struct {
	CreatedAt    string `json:"created_at"`
	SampleTarget int    `json:"sample_target"`
	Workers      int    `json:"workers"`
	Interrupted  bool   `json:"interrupted,omitempty"`
}

// WriteMetadata persists run metadata to <dataset>/metadata.json.
func WriteMetadata(datasetDir string, md Metadata) error {
	return writeJSON(MetadataPath(datasetDir), md)
}

package collector

import (
	"bytes"
	"testing"
	"time"

	"github.com/uitrail/uitrail/internal/dataset"
	"github.com/uitrail/uitrail/internal/domain"
)

func TestAggregatorCounts(t *testing.T) {
	agg := NewAggregator()

	agg.Record(domain.Result{TrajectoryID: "a-1", Success: true, TotalSteps: 3}, clickTask("a"), 0)
	agg.Record(domain.Result{TrajectoryID: "b-1", Success: false, TotalSteps: 1}, clickTask("b"), 1)
	agg.Record(domain.Result{TrajectoryID: "c-1", Success: true, TotalSteps: 2}, clickTask("c"), 0)
	agg.Skip(clickTask("d"), "invalid")

	snap := agg.Snapshot()
	if snap.Successful != 2 || snap.Failed != 1 || snap.Skipped != 1 || snap.Committed != 3 {
		t.Errorf("snapshot = %+v", snap)
	}

	slot0 := snap.PerSlot[0]
	if slot0.Completed != 2 || slot0.Succeeded != 2 || slot0.Failed != 0 {
		t.Errorf("slot 0 tally = %+v", slot0)
	}
	slot1 := snap.PerSlot[1]
	if slot1.Completed != 1 || slot1.Failed != 1 {
		t.Errorf("slot 1 tally = %+v", slot1)
	}

	if got := len(agg.Attempts()); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestFinalizeWritesIndexAndMetadata(t *testing.T) {
	dir := t.TempDir()
	if _, err := dataset.NewRecorder(dir); err != nil {
		t.Fatal(err)
	}

	agg := NewAggregator()
	progress := NewProgressLogger(&bytes.Buffer{})
	md := dataset.Metadata{CreatedAt: time.Now().UTC().Format(time.RFC3339), SampleTarget: 2, Workers: 1}

	idx, err := agg.Finalize(dir, md, progress)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if idx.Version != dataset.IndexVersion {
		t.Errorf("version = %q", idx.Version)
	}

	if _, err := dataset.ReadIndex(dir); err != nil {
		t.Errorf("index not readable: %v", err)
	}

	// Finalize is one-shot.
	if _, err := agg.Finalize(dir, md, progress); err == nil {
		t.Error("second Finalize must fail")
	}
}

func TestFinalizeReportsDiskMismatch(t *testing.T) {
	dir := t.TempDir()
	rec, err := dataset.NewRecorder(dir)
	if err != nil {
		t.Fatal(err)
	}

	// One trajectory on disk that the aggregator never saw.
	w, _ := rec.Begin("ghost-1", clickTask("ghost"))
	if err := w.Commit(domain.Result{TrajectoryID: "ghost-1", Success: true}); err != nil {
		t.Fatal(err)
	}

	agg := NewAggregator()
	var buf bytes.Buffer
	_, err = agg.Finalize(dir, dataset.Metadata{Workers: 1}, NewProgressLogger(&buf))
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("index mismatch")) {
		t.Errorf("mismatch not logged: %s", buf.String())
	}
}

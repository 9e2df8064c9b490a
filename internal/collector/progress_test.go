package collector

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestProgressLineFormat(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressLogger(&buf)
	p.now = func() time.Time { return time.Date(2026, 8, 25, 14, 30, 5, 0, time.UTC) }

	p.Emit(2, "task %s done", "t1")
	p.Sysf("%d slots healthy", 3)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0] != "14:30:05 [worker 2] task t1 done" {
		t.Errorf("worker line = %q", lines[0])
	}
	if lines[1] != "14:30:05 [collect] 3 slots healthy" {
		t.Errorf("system line = %q", lines[1])
	}
}

func TestProgressNoInterleaving(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressLogger(&buf)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				p.Emit(w, "message %d from a busy worker writing long lines", i)
			}
		}(w)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 8*50 {
		t.Fatalf("got %d lines, want %d", len(lines), 8*50)
	}
	for _, line := range lines {
		if !strings.Contains(line, "[worker ") || !strings.HasSuffix(line, "busy worker writing long lines") {
			t.Fatalf("interleaved line: %q", line)
		}
	}
}

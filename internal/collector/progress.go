package collector

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressLogger serializes status output from concurrent workers so log
// lines never interleave. Each line is tagged with the worker index and a
// timestamp. Passed by reference into every worker — there is no package
// global.
type ProgressLogger struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewProgressLogger writes progress lines to w (normally stderr).
func NewProgressLogger(w io.Writer) *ProgressLogger {
	return &ProgressLogger{w: w, now: time.Now}
}

// Emit writes one worker-tagged line.
func (p *ProgressLogger) Emit(worker int, format string, args ...any) {
	p.line(fmt.Sprintf("[worker %d]", worker), format, args...)
}

// Sysf writes one orchestrator-level line.
func (p *ProgressLogger) Sysf(format string, args ...any) {
	p.line("[collect]", format, args...)
}

func (p *ProgressLogger) line(tag, format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s %s %s\n", p.now().Format("15:04:05"), tag, fmt.Sprintf(format, args...))
}

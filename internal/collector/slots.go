package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/uitrail/uitrail/internal/domain"
	"github.com/uitrail/uitrail/internal/infra/metrics"
)

// AutomationClient is the narrow view of a slot's automation endpoint.
type AutomationClient interface {
	Probe(ctx context.Context) error
	Screenshot(ctx context.Context) ([]byte, error)
	Perform(ctx context.Context, action domain.Action) error
}

// LayoutClient is the optional inspection endpoint.
type LayoutClient interface {
	Layout(ctx context.Context) (json.RawMessage, error)
}

// Navigator points a slot's browser at a URL (backed by the container
// runtime). Optional.
type Navigator interface {
	Navigate(ctx context.Context, containerName, url string) error
}

// SlotState tracks a worker slot's lifecycle.
type SlotState string

const (
	SlotIdle      SlotState = "IDLE"
	SlotBusy      SlotState = "BUSY"
	SlotUnhealthy SlotState = "UNHEALTHY"
	SlotStopped   SlotState = "STOPPED"
)

// Slot binds a pool index to one remote endpoint pair for its whole
// lifetime. At most one task executes on a slot at any instant.
type Slot struct {
	Index         int
	Endpoint      AutomationClient
	Inspector     LayoutClient
	ContainerName string

	mu    sync.Mutex
	state SlotState
}

// State returns the slot's current state.
func (s *Slot) State() SlotState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Slot) setState(st SlotState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Healthy reports whether the slot may accept tasks.
func (s *Slot) Healthy() bool {
	st := s.State()
	return st == SlotIdle || st == SlotBusy
}

// ─── Supervisor ─────────────────────────────────────────────────────────────

// SupervisorConfig bounds the startup health checks.
type SupervisorConfig struct {
	Probes         int           // liveness probes per slot before giving up
	StartupTimeout time.Duration // total budget per slot
	BaseBackoff    time.Duration // first inter-probe delay, doubled per probe
}

// Supervisor owns the slot pool and its health transitions. Unhealthy slots
// are excluded from scheduling; a mid-run transition is logged exactly once.
type Supervisor struct {
	cfg      SupervisorConfig
	slots    []*Slot
	progress *ProgressLogger
}

// NewSupervisor wraps an already-built slot pool.
func NewSupervisor(cfg SupervisorConfig, slots []*Slot, progress *ProgressLogger) *Supervisor {
	if cfg.Probes <= 0 {
		cfg.Probes = 6
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = 60 * time.Second
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = time.Second
	}
	for _, s := range slots {
		s.state = SlotStopped
	}
	return &Supervisor{cfg: cfg, slots: slots, progress: progress}
}

// Slots returns the full pool, healthy or not.
func (sv *Supervisor) Slots() []*Slot { return sv.slots }

// CheckAll probes every slot concurrently and returns the healthy subset.
// Returns domain.ErrPoolExhausted if no slot passes — collection cannot
// proceed with an empty pool.
func (sv *Supervisor) CheckAll(ctx context.Context) ([]*Slot, error) {
	var wg sync.WaitGroup
	for _, slot := range sv.slots {
		wg.Add(1)
		go func(s *Slot) {
			defer wg.Done()
			sv.checkOne(ctx, s)
		}(slot)
	}
	wg.Wait()

	var healthy []*Slot
	for _, s := range sv.slots {
		if s.Healthy() {
			healthy = append(healthy, s)
		}
	}
	if len(healthy) == 0 {
		return nil, fmt.Errorf("%w: 0 of %d slots passed health checks", domain.ErrPoolExhausted, len(sv.slots))
	}
	return healthy, nil
}

// checkOne probes a slot with increasing backoff until it answers, the probe
// budget runs out, or the startup timeout expires.
func (sv *Supervisor) checkOne(ctx context.Context, s *Slot) {
	deadline := time.Now().Add(sv.cfg.StartupTimeout)
	backoff := sv.cfg.BaseBackoff

	var lastErr error
	for probe := 0; probe < sv.cfg.Probes && time.Now().Before(deadline); probe++ {
		if probe > 0 {
			select {
			case <-ctx.Done():
				sv.markUnhealthy(s, ctx.Err())
				return
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		if lastErr = s.Endpoint.Probe(ctx); lastErr == nil {
			s.setState(SlotIdle)
			metrics.SlotHealth.WithLabelValues(fmt.Sprint(s.Index)).Set(1)
			sv.progress.Sysf("slot %d ready", s.Index)
			return
		}
	}
	sv.markUnhealthy(s, lastErr)
}

// MarkUnhealthy transitions a slot out of scheduling after a failed
// automation call mid-run.
func (sv *Supervisor) MarkUnhealthy(s *Slot, cause error) {
	sv.markUnhealthy(s, cause)
}

func (sv *Supervisor) markUnhealthy(s *Slot, cause error) {
	s.mu.Lock()
	already := s.state == SlotUnhealthy
	s.state = SlotUnhealthy
	s.mu.Unlock()
	if already {
		return
	}
	metrics.SlotHealth.WithLabelValues(fmt.Sprint(s.Index)).Set(0)
	sv.progress.Sysf("slot %d marked unhealthy: %v", s.Index, cause)
}

// HealthyCount returns how many slots may currently accept tasks.
func (sv *Supervisor) HealthyCount() int {
	n := 0
	for _, s := range sv.slots {
		if s.Healthy() {
			n++
		}
	}
	return n
}

package collector

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/uitrail/uitrail/internal/domain"
)

func testSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		Probes:         4,
		StartupTimeout: time.Second,
		BaseBackoff:    time.Millisecond,
	}
}

func TestCheckAllReturnsHealthySubset(t *testing.T) {
	slots := []*Slot{
		{Index: 0, Endpoint: &fakeEndpoint{}},
		{Index: 1, Endpoint: &fakeEndpoint{probeFailures: 100}},
		{Index: 2, Endpoint: &fakeEndpoint{probeFailures: 2}}, // recovers on 3rd probe
	}
	sv := NewSupervisor(testSupervisorConfig(), slots, NewProgressLogger(&bytes.Buffer{}))

	healthy, err := sv.CheckAll(context.Background())
	if err != nil {
		t.Fatalf("CheckAll: %v", err)
	}
	if len(healthy) != 2 {
		t.Fatalf("healthy = %d slots, want 2", len(healthy))
	}

	if slots[0].State() != SlotIdle {
		t.Errorf("slot 0 state = %s, want IDLE", slots[0].State())
	}
	if slots[1].State() != SlotUnhealthy {
		t.Errorf("slot 1 state = %s, want UNHEALTHY", slots[1].State())
	}
	if slots[2].State() != SlotIdle {
		t.Errorf("slot 2 state = %s, want IDLE", slots[2].State())
	}
	if sv.HealthyCount() != 2 {
		t.Errorf("HealthyCount = %d, want 2", sv.HealthyCount())
	}
}

func TestCheckAllEmptyPoolIsFatal(t *testing.T) {
	slots := []*Slot{
		{Index: 0, Endpoint: &fakeEndpoint{probeFailures: 100}},
		{Index: 1, Endpoint: &fakeEndpoint{probeFailures: 100}},
	}
	sv := NewSupervisor(testSupervisorConfig(), slots, NewProgressLogger(&bytes.Buffer{}))

	_, err := sv.CheckAll(context.Background())
	if !errors.Is(err, domain.ErrPoolExhausted) {
		t.Errorf("err = %v, want ErrPoolExhausted", err)
	}
}

func TestMarkUnhealthyLogsOnce(t *testing.T) {
	var buf bytes.Buffer
	slot := &Slot{Index: 3, Endpoint: &fakeEndpoint{}}
	sv := NewSupervisor(testSupervisorConfig(), []*Slot{slot}, NewProgressLogger(&buf))

	cause := errors.New("connection reset")
	sv.MarkUnhealthy(slot, cause)
	sv.MarkUnhealthy(slot, cause)
	sv.MarkUnhealthy(slot, cause)

	if got := strings.Count(buf.String(), "marked unhealthy"); got != 1 {
		t.Errorf("unhealthy transition logged %d times, want 1:\n%s", got, buf.String())
	}
	if slot.State() != SlotUnhealthy {
		t.Errorf("state = %s, want UNHEALTHY", slot.State())
	}
	if slot.Healthy() {
		t.Error("unhealthy slot must not accept tasks")
	}
}

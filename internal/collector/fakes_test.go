package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/uitrail/uitrail/internal/domain"
)

// fakeEndpoint is a scriptable AutomationClient. It can fail the first N
// probes, or go permanently unreachable after a number of screenshots. With
// one-action tasks each trajectory takes two screenshots (step plus final),
// so dieAfterScreenshots = 2*k kills the endpoint at the start of
// trajectory k+1.
type fakeEndpoint struct {
	mu                  sync.Mutex
	probeFailures       int // fail this many probes before succeeding
	dieAfterScreenshots int // <= 0 means never
	performErr          error
	performErrRemains   int // how many Perform calls return performErr

	probes      int
	performs    int
	screenshots int
	dead        bool
}

func (f *fakeEndpoint) unreachable() error {
	return fmt.Errorf("%w: connection refused", domain.ErrEndpointUnreachable)
}

func (f *fakeEndpoint) Probe(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	if f.dead || f.probes <= f.probeFailures {
		return f.unreachable()
	}
	return nil
}

func (f *fakeEndpoint) Screenshot(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dieAfterScreenshots > 0 && f.screenshots >= f.dieAfterScreenshots {
		f.dead = true
	}
	if f.dead {
		return nil, f.unreachable()
	}
	f.screenshots++
	return []byte("png"), nil
}

func (f *fakeEndpoint) Perform(ctx context.Context, action domain.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dead {
		return f.unreachable()
	}
	if f.performErr != nil && f.performErrRemains != 0 {
		if f.performErrRemains > 0 {
			f.performErrRemains--
		}
		return f.performErr
	}
	f.performs++
	return nil
}

// fakeInspector returns a fixed layout.
type fakeInspector struct{}

func (fakeInspector) Layout(ctx context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"tabs":[{"title":"Test"}]}`), nil
}

// fakeNavigator records navigation requests.
type fakeNavigator struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (f *fakeNavigator) Navigate(ctx context.Context, containerName, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.urls = append(f.urls, url)
	return nil
}

func clickTask(id string) domain.Task {
	return domain.Task{
		ID:          id,
		Instruction: "click the button",
		Actions: []domain.Action{
			{Type: domain.ActionClick, Pointer: &domain.PointerParams{X: 10, Y: 20}},
		},
	}
}

// Package endpoint provides HTTP clients for the per-slot remote services:
// the desktop automation service (screenshot, input events, liveness) and the
// optional layout inspection service. Both are consumed, never owned — the
// processes behind them belong to the container runtime.
//
// Automation API:
//
//	GET  /api/v1/screenshot      → PNG bytes (doubles as the liveness probe)
//	POST /api/v1/tablet_event    → pointer events (click, scroll, drag)
//	POST /api/v1/keyboard_event  → keysym down/up events
package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/uitrail/uitrail/internal/domain"
)

// Client talks to one slot's automation service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an automation client with a per-call timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the endpoint's base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Probe checks liveness by requesting a screenshot and discarding the body.
func (c *Client) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/screenshot", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: probe status %d", domain.ErrEndpointUnreachable, resp.StatusCode)
	}
	return nil
}

// Screenshot captures the current screen as PNG bytes.
func (c *Client) Screenshot(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/screenshot", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: screenshot status %d", domain.ErrActionFailed, resp.StatusCode)
	}
	png, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err)
	}
	return png, nil
}

// ─── Action Dispatch ────────────────────────────────────────────────────────
// Perform is the single point where actions are dispatched. The switch is
// exhaustive over domain.ActionType; an unknown type is a task-definition bug.

// Perform executes one action against the endpoint. Wait actions sleep
// locally and never touch the network.
func (c *Client) Perform(ctx context.Context, action domain.Action) error {
	switch action.Type {
	case domain.ActionClick:
		return c.tablet(ctx, pointerEvents("click", action.Pointer)...)
	case domain.ActionDoubleClick:
		ev := pointerEvents("click", action.Pointer)
		return c.tablet(ctx, append(ev, ev...)...)
	case domain.ActionRightClick:
		p := *action.Pointer
		p.Button = "right"
		return c.tablet(ctx, pointerEvents("click", &p)...)
	case domain.ActionText:
		return c.keyboard(ctx, textEvents(action.Text.Text))
	case domain.ActionHotkey:
		return c.keyboard(ctx, chordEvents(action.Hotkey.Keys))
	case domain.ActionScroll:
		s := action.Scroll
		return c.tablet(ctx, tabletEvent{
			Type: "scroll", X: s.X, Y: s.Y, DX: s.DeltaX, DY: s.DeltaY,
		})
	case domain.ActionDrag:
		d := action.Drag
		return c.tablet(ctx,
			tabletEvent{Type: "press", X: d.FromX, Y: d.FromY, Button: "left"},
			tabletEvent{Type: "move", X: d.ToX, Y: d.ToY},
			tabletEvent{Type: "release", X: d.ToX, Y: d.ToY, Button: "left"},
		)
	case domain.ActionWait:
		return sleepCtx(ctx, time.Duration(action.Wait.Seconds*float64(time.Second)))
	default:
		return fmt.Errorf("%w: unhandled action type %q", domain.ErrActionFailed, action.Type)
	}
}

// tabletEvent is one pointer event on the wire.
type tabletEvent struct {
	Type   string `json:"type"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Button string `json:"button,omitempty"`
	DX     int    `json:"dx,omitempty"`
	DY     int    `json:"dy,omitempty"`
}

// keyEvent is one keyboard event on the wire.
type keyEvent struct {
	Keysym string `json:"keysym"`
	State  string `json:"state"`
}

func pointerEvents(typ string, p *domain.PointerParams) []tabletEvent {
	button := p.Button
	if button == "" {
		button = "left"
	}
	return []tabletEvent{{Type: typ, X: p.X, Y: p.Y, Button: button}}
}

func textEvents(text string) []keyEvent {
	events := make([]keyEvent, 0, len(text)*2)
	for _, ch := range text {
		events = append(events,
			keyEvent{Keysym: string(ch), State: "down"},
			keyEvent{Keysym: string(ch), State: "up"},
		)
	}
	return events
}

// chordEvents presses all keys in order and releases them in reverse.
func chordEvents(keys []string) []keyEvent {
	events := make([]keyEvent, 0, len(keys)*2)
	for _, k := range keys {
		events = append(events, keyEvent{Keysym: k, State: "down"})
	}
	for i := len(keys) - 1; i >= 0; i-- {
		events = append(events, keyEvent{Keysym: keys[i], State: "up"})
	}
	return events
}

func (c *Client) tablet(ctx context.Context, events ...tabletEvent) error {
	return c.post(ctx, "/api/v1/tablet_event", map[string]any{"events": events})
}

func (c *Client) keyboard(ctx context.Context, events []keyEvent) error {
	return c.post(ctx, "/api/v1/keyboard_event", map[string]any{"events": events})
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: %s status %d", domain.ErrActionFailed, path, resp.StatusCode)
	}
	return nil
}

// classify maps transport failures onto the domain error taxonomy:
// connection-level failures are slot failures, timeouts are retryable
// step failures.
func classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrActionTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrActionTimeout, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		var opErr *net.OpError
		if errors.As(urlErr, &opErr) {
			return fmt.Errorf("%w: %v", domain.ErrEndpointUnreachable, err)
		}
		if errors.Is(urlErr, io.EOF) {
			return fmt.Errorf("%w: %v", domain.ErrEndpointUnreachable, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrActionFailed, err)
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

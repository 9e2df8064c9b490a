// Package container integrates with the local container runtime (podman or
// docker) that backs the worker slots. The runtime is consumed, not owned:
// slot i is reachable at a deterministically offset port pair, and the only
// operations needed here are detection, optional start/stop of per-slot
// containers, and exec-ing the navigation helper inside a container.
package container

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Runtime wraps a detected container runtime binary.
type Runtime struct {
	bin string
}

// Detect finds podman or docker on PATH, preferring podman. An explicit
// binary name skips detection.
func Detect(preferred string) (*Runtime, error) {
	candidates := []string{"podman", "docker"}
	if preferred != "" {
		candidates = []string{preferred}
	}

	for _, bin := range candidates {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := exec.CommandContext(ctx, bin, "--version").Run()
		cancel()
		if err == nil {
			return &Runtime{bin: bin}, nil
		}
	}
	return nil, fmt.Errorf("no container runtime found (tried %s)", strings.Join(candidates, ", "))
}

// Name returns the runtime binary name.
func (r *Runtime) Name() string { return r.bin }

// StartSlot launches the container backing one slot, publishing its
// automation and inspection ports.
func (r *Runtime) StartSlot(ctx context.Context, name, image string, automationPort, inspectPort int) error {
	args := []string{
		"run", "-d", "--name", name,
		"-p", fmt.Sprintf("%d:8080", automationPort),
		"-p", fmt.Sprintf("%d:8122", inspectPort),
		image,
	}
	out, err := exec.CommandContext(ctx, r.bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("start container %s: %v: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// StopSlot stops and removes the container backing one slot.
func (r *Runtime) StopSlot(ctx context.Context, name string) error {
	if out, err := exec.CommandContext(ctx, r.bin, "rm", "-f", name).CombinedOutput(); err != nil {
		return fmt.Errorf("remove container %s: %v: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// navScript drives the browser inside the container to a URL over the local
// CDP socket. Runs as the desktop user so it can reach the session bus.
const navScript = `
import json, sys, urllib.request
import websocket

url = sys.argv[1]
with urllib.request.urlopen("http://127.0.0.1:9222/json", timeout=5) as resp:
    targets = json.load(resp)

for t in targets:
    if t.get("type") == "page":
        ws = websocket.create_connection(t["webSocketDebuggerUrl"], timeout=10)
        ws.send(json.dumps({"id": 1, "method": "Page.navigate", "params": {"url": url}}))
        ws.recv()
        ws.close()
        break
`

// Navigate points the browser inside a slot's container at a URL.
func (r *Runtime) Navigate(ctx context.Context, name, url string) error {
	args := []string{
		"exec",
		"-u", "user",
		"-e", "XDG_RUNTIME_DIR=/tmp/xdg",
		"-e", "WAYLAND_DISPLAY=wayland-1",
		name,
		"python3", "-c", navScript, url,
	}
	out, err := exec.CommandContext(ctx, r.bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("navigate %s to %s: %v: %s", name, url, err, strings.TrimSpace(string(out)))
	}
	return nil
}

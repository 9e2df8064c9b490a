package endpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/uitrail/uitrail/internal/domain"
)

// Inspector talks to one slot's layout inspection service. The service is
// optional: workers treat a failed layout fetch as a degraded snapshot, not
// a step failure.
type Inspector struct {
	baseURL string
	http    *http.Client
}

// NewInspector creates an inspection client. Layout dumps can be large, so
// the timeout is typically longer than the automation timeout.
func NewInspector(baseURL string, timeout time.Duration) *Inspector {
	return &Inspector{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Layout fetches the structured accessibility/DOM layout tree.
func (i *Inspector) Layout(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.baseURL+"/layout", nil)
	if err != nil {
		return nil, err
	}
	resp, err := i.http.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: layout status %d", domain.ErrActionFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: layout response is not valid JSON", domain.ErrActionFailed)
	}
	return json.RawMessage(data), nil
}

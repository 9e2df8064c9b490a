package domain

import "encoding/json"

// Step is one recorded interaction: the state snapshot taken before the
// action, and the action itself. Steps are strictly ordered and append-only
// within one trajectory attempt.
type Step struct {
	Index      int
	Screenshot []byte
	UITree     json.RawMessage
	Action     Action
}

// Result summarizes one completed trajectory attempt. Serialized as
// result.json inside the trajectory directory.
type Result struct {
	TrajectoryID     string         `json:"trajectory_id"`
	Success          bool           `json:"success"`
	TotalSteps       int            `json:"total_steps"`
	CompletionTimeMs int64          `json:"completion_time_ms"`
	ErrorMessage     string         `json:"error_message,omitempty"`
	ModelInfo        map[string]any `json:"model_info,omitempty"`
}

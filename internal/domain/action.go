package domain

import (
	"encoding/json"
	"fmt"
)

// ActionType enumerates the UI actions a worker can perform.
// The string values are a fixed external contract shared with the
// dataset tooling — do not rename.
type ActionType string

const (
	ActionClick       ActionType = "click"
	ActionDoubleClick ActionType = "double_click"
	ActionRightClick  ActionType = "right_click"
	ActionText        ActionType = "type"
	ActionHotkey      ActionType = "hotkey"
	ActionScroll      ActionType = "scroll"
	ActionDrag        ActionType = "drag"
	ActionWait        ActionType = "wait"
)

// Valid reports whether t is a known action type.
func (t ActionType) Valid() bool {
	switch t {
	case ActionClick, ActionDoubleClick, ActionRightClick, ActionText,
		ActionHotkey, ActionScroll, ActionDrag, ActionWait:
		return true
	}
	return false
}

// ─── Parameter Variants ─────────────────────────────────────────────────────
// One struct per action type. The Action JSON keeps the external shape
// {"action_type": ..., "parameters": {...}}; decoding switches exhaustively
// on action_type so an unknown type fails loudly instead of round-tripping
// as an untyped map.

// PointerParams is shared by click, double_click and right_click.
type PointerParams struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Button string `json:"button,omitempty"`
}

// TypeParams carries literal text input.
type TypeParams struct {
	Text string `json:"text"`
}

// HotkeyParams carries a chord of keys pressed together.
type HotkeyParams struct {
	Keys []string `json:"keys"`
}

// ScrollParams scrolls at a position by a pixel delta.
type ScrollParams struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	DeltaX int `json:"delta_x,omitempty"`
	DeltaY int `json:"delta_y"`
}

// DragParams moves the pointer from one position to another with the
// button held.
type DragParams struct {
	FromX int `json:"from_x"`
	FromY int `json:"from_y"`
	ToX   int `json:"to_x"`
	ToY   int `json:"to_y"`
}

// WaitParams pauses for a number of seconds.
type WaitParams struct {
	Seconds float64 `json:"seconds"`
}

// ─── Action ─────────────────────────────────────────────────────────────────

// Action is one tagged UI action. Exactly one parameter variant is set,
// matching Type.
type Action struct {
	StepIndex int        `json:"step_index"`
	Type      ActionType `json:"action_type"`
	Reasoning string     `json:"reasoning,omitempty"`

	Pointer *PointerParams `json:"-"`
	Text    *TypeParams    `json:"-"`
	Hotkey  *HotkeyParams  `json:"-"`
	Scroll  *ScrollParams  `json:"-"`
	Drag    *DragParams    `json:"-"`
	Wait    *WaitParams    `json:"-"`
}

type actionWire struct {
	StepIndex  int             `json:"step_index"`
	Type       ActionType      `json:"action_type"`
	Parameters json.RawMessage `json:"parameters"`
	Reasoning  string          `json:"reasoning,omitempty"`
}

// MarshalJSON writes the external {action_type, parameters} shape.
func (a Action) MarshalJSON() ([]byte, error) {
	params, err := a.parameters()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(actionWire{
		StepIndex:  a.StepIndex,
		Type:       a.Type,
		Parameters: raw,
		Reasoning:  a.Reasoning,
	})
}

// UnmarshalJSON decodes parameters into the variant selected by action_type.
func (a *Action) UnmarshalJSON(data []byte) error {
	var w actionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*a = Action{StepIndex: w.StepIndex, Type: w.Type, Reasoning: w.Reasoning}

	raw := w.Parameters
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	switch w.Type {
	case ActionClick, ActionDoubleClick, ActionRightClick:
		a.Pointer = &PointerParams{}
		return json.Unmarshal(raw, a.Pointer)
	case ActionText:
		a.Text = &TypeParams{}
		return json.Unmarshal(raw, a.Text)
	case ActionHotkey:
		a.Hotkey = &HotkeyParams{}
		return json.Unmarshal(raw, a.Hotkey)
	case ActionScroll:
		a.Scroll = &ScrollParams{}
		return json.Unmarshal(raw, a.Scroll)
	case ActionDrag:
		a.Drag = &DragParams{}
		return json.Unmarshal(raw, a.Drag)
	case ActionWait:
		a.Wait = &WaitParams{}
		return json.Unmarshal(raw, a.Wait)
	default:
		return fmt.Errorf("%w: unknown action type %q", ErrTaskInvalid, w.Type)
	}
}

// parameters returns the active variant for serialization.
func (a Action) parameters() (any, error) {
	switch a.Type {
	case ActionClick, ActionDoubleClick, ActionRightClick:
		if a.Pointer == nil {
			return nil, fmt.Errorf("action %s: missing pointer parameters", a.Type)
		}
		return a.Pointer, nil
	case ActionText:
		if a.Text == nil {
			return nil, fmt.Errorf("action %s: missing text parameters", a.Type)
		}
		return a.Text, nil
	case ActionHotkey:
		if a.Hotkey == nil {
			return nil, fmt.Errorf("action %s: missing key parameters", a.Type)
		}
		return a.Hotkey, nil
	case ActionScroll:
		if a.Scroll == nil {
			return nil, fmt.Errorf("action %s: missing scroll parameters", a.Type)
		}
		return a.Scroll, nil
	case ActionDrag:
		if a.Drag == nil {
			return nil, fmt.Errorf("action %s: missing drag parameters", a.Type)
		}
		return a.Drag, nil
	case ActionWait:
		if a.Wait == nil {
			return nil, fmt.Errorf("action %s: missing wait parameters", a.Type)
		}
		return a.Wait, nil
	default:
		return nil, fmt.Errorf("unknown action type %q", a.Type)
	}
}

// WaitAction builds a wait action, the default when a task carries no script.
func WaitAction(seconds float64, reasoning string) Action {
	return Action{
		Type:      ActionWait,
		Reasoning: reasoning,
		Wait:      &WaitParams{Seconds: seconds},
	}
}

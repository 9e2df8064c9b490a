package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestActionRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		action Action
	}{
		{"click", Action{Type: ActionClick, Pointer: &PointerParams{X: 100, Y: 200}}},
		{"right_click", Action{Type: ActionRightClick, Pointer: &PointerParams{X: 5, Y: 5, Button: "right"}}},
		{"type", Action{Type: ActionText, Text: &TypeParams{Text: "hello world"}}},
		{"hotkey", Action{Type: ActionHotkey, Hotkey: &HotkeyParams{Keys: []string{"ctrl", "s"}}}},
		{"scroll", Action{Type: ActionScroll, Scroll: &ScrollParams{X: 640, Y: 400, DeltaY: -300}}},
		{"drag", Action{Type: ActionDrag, Drag: &DragParams{FromX: 1, FromY: 2, ToX: 3, ToY: 4}}},
		{"wait", WaitAction(2.5, "let the page settle")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.action)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if !strings.Contains(string(data), `"action_type"`) || !strings.Contains(string(data), `"parameters"`) {
				t.Errorf("wire shape missing action_type/parameters: %s", data)
			}

			var got Action
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != tt.action.Type {
				t.Errorf("Type = %q, want %q", got.Type, tt.action.Type)
			}
		})
	}
}

func TestActionUnmarshalVariants(t *testing.T) {
	var a Action
	raw := `{"step_index":3,"action_type":"click","parameters":{"x":10,"y":20},"reasoning":"press the button"}`
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.Pointer == nil || a.Pointer.X != 10 || a.Pointer.Y != 20 {
		t.Errorf("Pointer = %+v, want x=10 y=20", a.Pointer)
	}
	if a.StepIndex != 3 {
		t.Errorf("StepIndex = %d, want 3", a.StepIndex)
	}
	if a.Text != nil || a.Scroll != nil {
		t.Error("unrelated variants must stay nil")
	}
}

func TestActionUnknownType(t *testing.T) {
	var a Action
	err := json.Unmarshal([]byte(`{"action_type":"teleport","parameters":{}}`), &a)
	if !errors.Is(err, ErrTaskInvalid) {
		t.Errorf("err = %v, want ErrTaskInvalid", err)
	}
}

func TestActionMarshalMissingParams(t *testing.T) {
	types := []ActionType{
		ActionClick, ActionDoubleClick, ActionRightClick,
		ActionText, ActionHotkey, ActionScroll, ActionDrag, ActionWait,
	}
	for _, typ := range types {
		t.Run(string(typ), func(t *testing.T) {
			_, err := json.Marshal(Action{Type: typ})
			if err == nil {
				t.Fatalf("expected error for %s action without parameters", typ)
			}
			if !strings.Contains(err.Error(), "action "+string(typ)+":") {
				t.Errorf("err = %v, want %q prefix naming the action", err, "action "+string(typ)+":")
			}
		})
	}
}

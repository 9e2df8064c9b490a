package collector

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/uitrail/uitrail/internal/domain"
)

// LoadTasks reads a JSON array of task descriptions from path.
func LoadTasks(path string) ([]domain.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("parse tasks: %w", err)
	}
	return tasks, nil
}

// ValidateTasks splits tasks into valid and invalid. Invalid tasks are
// reported to the aggregator and logged; they never enter the queue.
func ValidateTasks(tasks []domain.Task, agg *Aggregator, progress *ProgressLogger) []domain.Task {
	valid := tasks[:0:0]
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			progress.Sysf("skipping task %q: %v", t.ID, err)
			agg.Skip(t, err.Error())
			continue
		}
		valid = append(valid, t)
	}
	return valid
}

// ExpandTasks cycles the task list until it reaches the sample target. With
// target <= 0 the list is returned unchanged. Repeated tasks keep their id;
// each attempt still gets its own trajectory id.
func ExpandTasks(tasks []domain.Task, target int) []domain.Task {
	if target <= 0 || len(tasks) == 0 || len(tasks) >= target {
		if target > 0 && len(tasks) > target {
			return tasks[:target]
		}
		return tasks
	}
	out := make([]domain.Task, 0, target)
	for len(out) < target {
		for _, t := range tasks {
			if len(out) == target {
				break
			}
			out = append(out, t)
		}
	}
	return out
}

// SampleTasks is a small built-in task set for smoke-testing a fleet without
// an external task file.
func SampleTasks() []domain.Task {
	return []domain.Task{
		{
			ID:          "wiki-search",
			Instruction: "Search Wikipedia for 'Go programming language' and open the article",
			TargetURL:   "https://en.wikipedia.org/wiki/Main_Page",
			Application: "browser",
			Difficulty:  "easy",
			Actions: []domain.Action{
				{Type: domain.ActionClick, Pointer: &domain.PointerParams{X: 640, Y: 80}, Reasoning: "focus the search box"},
				{Type: domain.ActionText, Text: &domain.TypeParams{Text: "Go programming language"}, Reasoning: "enter the query"},
				{Type: domain.ActionHotkey, Hotkey: &domain.HotkeyParams{Keys: []string{"Return"}}, Reasoning: "submit the search"},
				domain.WaitAction(2, "wait for the article to load"),
			},
		},
		{
			ID:          "scroll-read",
			Instruction: "Scroll down two screens and back to the top",
			TargetURL:   "https://en.wikipedia.org/wiki/Special:Random",
			Application: "browser",
			Difficulty:  "easy",
			Actions: []domain.Action{
				{Type: domain.ActionScroll, Scroll: &domain.ScrollParams{X: 640, Y: 400, DeltaY: -600}, Reasoning: "scroll down"},
				{Type: domain.ActionScroll, Scroll: &domain.ScrollParams{X: 640, Y: 400, DeltaY: -600}, Reasoning: "scroll further"},
				{Type: domain.ActionHotkey, Hotkey: &domain.HotkeyParams{Keys: []string{"ctrl", "Home"}}, Reasoning: "jump back to the top"},
			},
		},
		{
			ID:          "context-menu",
			Instruction: "Open the context menu on the page body and dismiss it",
			Application: "browser",
			Difficulty:  "easy",
			Actions: []domain.Action{
				{Type: domain.ActionRightClick, Pointer: &domain.PointerParams{X: 640, Y: 400}, Reasoning: "open the context menu"},
				{Type: domain.ActionHotkey, Hotkey: &domain.HotkeyParams{Keys: []string{"Escape"}}, Reasoning: "dismiss the menu"},
			},
		},
		{
			ID:          "drag-select",
			Instruction: "Select a paragraph of text by dragging across it",
			Application: "browser",
			Difficulty:  "medium",
			Actions: []domain.Action{
				{Type: domain.ActionDrag, Drag: &domain.DragParams{FromX: 200, FromY: 300, ToX: 900, ToY: 360}, Reasoning: "drag across the paragraph"},
				{Type: domain.ActionClick, Pointer: &domain.PointerParams{X: 640, Y: 600}, Reasoning: "clear the selection"},
			},
		},
		{
			ID:          "zoom-cycle",
			Instruction: "Zoom the page in twice, then reset zoom",
			Application: "browser",
			Difficulty:  "easy",
			Actions: []domain.Action{
				{Type: domain.ActionHotkey, Hotkey: &domain.HotkeyParams{Keys: []string{"ctrl", "plus"}}, Reasoning: "zoom in"},
				{Type: domain.ActionHotkey, Hotkey: &domain.HotkeyParams{Keys: []string{"ctrl", "plus"}}, Reasoning: "zoom in again"},
				{Type: domain.ActionHotkey, Hotkey: &domain.HotkeyParams{Keys: []string{"ctrl", "0"}}, Reasoning: "reset zoom"},
			},
		},
	}
}

package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventInput      EventType = "input"
	EventStepEnter  EventType = "step_enter"
	EventToolCall   EventType = "tool_call"
	EventToolReturn EventType = "tool_return"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// InputEvent is emitted for every user input the engine accepts.
type InputEvent struct {
	EventBase
	Flow Flow `json:"flow"`
}

// StepEvent is emitted when the conversation moves to a new position.
type StepEvent struct {
	EventBase
	Flow Flow   `json:"flow"`
	Step string `json:"step"`
}

// ToolEvent represents a side-effect execution.
type ToolEvent struct {
	EventBase
	ToolName string        `json:"tool_name"`
	Duration time.Duration `json:"duration,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnInput      func(context.Context, *InputEvent)
	OnStepEnter  func(context.Context, *StepEvent)
	OnToolCall   func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
}

// Position describes where the state currently is, for StepEvent.
func (s *State) Position() string {
	switch s.ActiveFlow() {
	case FlowImage:
		return [...]string{"prompt", "ask_ref", "file", "generate"}[clampImage(s.ImgStep)]
	case FlowCaption:
		if s.GPTStep == CaptionGenerating {
			return "generating"
		}
		return "context"
	default:
		return string(s.Step)
	}
}

func clampImage(step ImageStep) int {
	if step < ImagePrompt || step > ImageGenerate {
		return 0
	}
	return int(step)
}

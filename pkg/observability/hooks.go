package observability

import (
	"context"
	"log/slog"

	"github.com/utopium/chatflow/pkg/domain"
)

// LogHooks logs every lifecycle event. Tool failures are logged at Warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnInput: func(ctx context.Context, e *domain.InputEvent) {
			logger.DebugContext(ctx, "input", "session_id", e.SessionID, "flow", e.Flow)
		},
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			logger.InfoContext(ctx, "step_enter", "session_id", e.SessionID, "flow", e.Flow, "step", e.Step)
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.InfoContext(ctx, "tool_call", "session_id", e.SessionID, "tool", e.ToolName)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			if e.IsError {
				logger.WarnContext(ctx, "tool_return",
					"session_id", e.SessionID,
					"tool", e.ToolName,
					"duration", e.Duration,
					"err", e.Error,
				)
				return
			}
			logger.InfoContext(ctx, "tool_return", "session_id", e.SessionID, "tool", e.ToolName, "duration", e.Duration)
		},
	}
}

// Combine fans every event out to each set of hooks in order.
func Combine(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnInput: func(ctx context.Context, e *domain.InputEvent) {
			for _, h := range all {
				if h.OnInput != nil {
					h.OnInput(ctx, e)
				}
			}
		},
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			for _, h := range all {
				if h.OnStepEnter != nil {
					h.OnStepEnter(ctx, e)
				}
			}
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			for _, h := range all {
				if h.OnToolCall != nil {
					h.OnToolCall(ctx, e)
				}
			}
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			for _, h := range all {
				if h.OnToolReturn != nil {
					h.OnToolReturn(ctx, e)
				}
			}
		},
	}
}

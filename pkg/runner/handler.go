package runner

import (
	"context"

	"github.com/utopium/chatflow/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Output presents bot bubbles to the user, in order.
	Output(ctx context.Context, messages []domain.Message) error

	// Input reads one answer from the user.
	Input(ctx context.Context) (string, error)

	// PickFile asks the user for the file a step is waiting for.
	// It returns domain.ErrNoFileSelected when the user declines.
	PickFile(ctx context.Context, req domain.FileRequest) (*domain.Attachment, error)

	// SystemOutput presents a meta-message to the user (e.g. status updates).
	// This is distinct from content rendering.
	SystemOutput(ctx context.Context, msg string) error
}

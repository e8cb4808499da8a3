package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/utopium/chatflow"
	"github.com/utopium/chatflow/pkg/domain"
)

// ErrDenied is returned by a guard when the policy blocks a call.
var ErrDenied = errors.New("denied by policy")

// Operation describes a side effect about to run.
type Operation struct {
	// Name is the tool name (domain.ToolGenerateCaption, ...).
	Name    string
	Summary string
}

// Interceptor is a middleware that can block a side effect.
// It returns true if execution should proceed.
type Interceptor func(ctx context.Context, op Operation) (bool, error)

// MultiInterceptor chains multiple interceptors.
func MultiInterceptor(interceptors ...Interceptor) Interceptor {
	return func(ctx context.Context, op Operation) (bool, error) {
		for _, interceptor := range interceptors {
			allowed, err := interceptor(ctx, op)
			if err != nil {
				return false, err
			}
			if !allowed {
				return false, nil
			}
		}
		return true, nil
	}
}

// ConfirmationMiddleware prompts the user via the provided Handler before allowing execution.
// It uses the IOHandler's SystemOutput so the question stays apart from the chat content.
func ConfirmationMiddleware(handler IOHandler) Interceptor {
	return func(ctx context.Context, op Operation) (bool, error) {
		if err := handler.SystemOutput(ctx, fmt.Sprintf("%s\nProceed? [y/N]", op.Summary)); err != nil {
			return false, err
		}

		input, err := handler.Input(ctx)
		if err != nil {
			return false, err
		}

		input = strings.TrimSpace(strings.ToLower(input))
		return input == "y" || input == "yes", nil
	}
}

// AutoApproveMiddleware allows everything.
func AutoApproveMiddleware() Interceptor {
	return func(ctx context.Context, op Operation) (bool, error) {
		return true, nil
	}
}

// Guard turns an interceptor into an engine tool guard. It runs before a side
// effect starts, so a denied call uploads nothing.
func Guard(interceptor Interceptor) chatflow.ToolGuard {
	return func(ctx context.Context, call domain.ToolCall) error {
		op := Operation{Name: call.Name, Summary: describe(call)}
		allowed, err := interceptor(ctx, op)
		if err != nil {
			return fmt.Errorf("interceptor: %w", err)
		}
		if !allowed {
			return fmt.Errorf("%w: %s", ErrDenied, op.Name)
		}
		return nil
	}
}

// describe summarizes a side effect for a confirmation prompt.
func describe(call domain.ToolCall) string {
	switch call.Name {
	case domain.ToolGenerateCaption:
		topic, _ := call.Args["context"].(string)
		return fmt.Sprintf("Generate a caption about %q.", topic)

	case domain.ToolGenerateImage:
		prompt, _ := call.Args["prompt"].(string)
		if ref, _ := call.Args["reference"].(*domain.Attachment); ref != nil {
			return fmt.Sprintf("Upload %s and generate an image: %q.", ref.Name, prompt)
		}
		return fmt.Sprintf("Generate an image: %q.", prompt)

	case domain.ToolPublishPost:
		fields, _ := call.Args["fields"].(map[string]string)
		summary := fmt.Sprintf("Publish %q to %s.", fields[domain.FieldTitle], fields[domain.FieldAccount])
		if file, _ := call.Args["file"].(*domain.Attachment); file != nil {
			summary = fmt.Sprintf("Upload %s and publish %q to %s.", file.Name, fields[domain.FieldTitle], fields[domain.FieldAccount])
		}
		return summary
	}
	return fmt.Sprintf("Run %s.", call.Name)
}

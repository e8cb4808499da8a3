package runner

import (
	"log/slog"

	"github.com/utopium/chatflow"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithSessionID sets the session to open. Runs with the same ID resume each other.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithMaxInputSize caps the size of one answer in bytes.
func WithMaxInputSize(n int) Option {
	return func(r *Runner) {
		r.MaxInputSize = n
	}
}

// WithEngine configures the conversation engine. It is required.
func WithEngine(engine *chatflow.Engine) Option {
	return func(r *Runner) {
		r.engine = engine
	}
}

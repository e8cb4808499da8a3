package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/utopium/chatflow"
	"github.com/utopium/chatflow/internal/logging"
	"github.com/utopium/chatflow/pkg/domain"
)

// Commands understood by the runner itself. They never reach the engine.
const (
	CommandExit  = "exit"
	CommandQuit  = "quit"
	CommandReset = "/reset"
)

// DefaultSessionID is used when no session is configured.
const DefaultSessionID = "default"

// ErrNoEngine is returned by Run when WithEngine was not used.
var ErrNoEngine = errors.New("runner has no engine")

// Runner handles the read-submit-render loop of one session.
// It uses an IOHandler strategy to abstract the interaction mode (Text vs JSON).
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on stdin/stdout.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	SessionID    string
	MaxInputSize int

	engine *chatflow.Engine
}

// NewRunner creates a new Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		SessionID:    DefaultSessionID,
		MaxInputSize: DefaultMaxInputSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	return r
}

// Run opens the session and loops until the input ends, the user exits, or ctx
// is cancelled (SIGINT/SIGTERM included). The engine persists every interaction.
func (r *Runner) Run(ctx context.Context) error {
	if r.engine == nil {
		return ErrNoEngine
	}

	signals := NewSignalManager(ctx)
	defer signals.Stop()
	ctx = signals.Context()

	reply, err := r.engine.Open(ctx, r.SessionID)
	if err != nil {
		return fmt.Errorf("failed to open session %s: %w", r.SessionID, err)
	}
	if len(reply.Messages) == 0 {
		r.resume(ctx, reply)
	}

	for {
		if err := r.Handler.Output(ctx, reply.Messages); err != nil {
			return fmt.Errorf("output error: %w", err)
		}

		next, err := r.step(ctx, reply)
		if err != nil {
			signals.CheckRace()
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				r.Logger.Debug("runner stopped", "session_id", r.SessionID, "cause", err)
				return nil
			}
			return err
		}
		reply = next
	}
}

// resume shows the last bot bubble of a restored session so the user knows which
// question is pending.
func (r *Runner) resume(ctx context.Context, reply *chatflow.Reply) {
	transcript := reply.Snapshot.Transcript
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role != domain.RoleBot {
			continue
		}
		_ = r.Handler.SystemOutput(ctx, fmt.Sprintf("Resuming session %s.", r.SessionID))
		reply.Messages = []domain.Message{transcript[i]}
		return
	}
}

// step performs one interaction: a file when one is pending and the user picks it,
// otherwise a line of text.
func (r *Runner) step(ctx context.Context, reply *chatflow.Reply) (*chatflow.Reply, error) {
	if reply.Pending != nil {
		file, err := r.Handler.PickFile(ctx, *reply.Pending)
		switch {
		case err == nil && file != nil:
			r.Logger.Debug("file picked", "session_id", r.SessionID, "name", file.Name, "size", file.Size())
			return r.engine.AttachFile(ctx, r.SessionID, file)
		case err != nil && !errors.Is(err, domain.ErrNoFileSelected):
			return nil, err
		}
	}

	for {
		text, err := r.Handler.Input(ctx)
		if err != nil {
			return nil, err
		}

		clean, err := SanitizeInput(strings.TrimSpace(text), r.MaxInputSize)
		if err != nil {
			if err := r.Handler.SystemOutput(ctx, fmt.Sprintf("%v. Please try again.", err)); err != nil {
				return nil, err
			}
			continue
		}

		switch strings.ToLower(clean) {
		case "":
			continue
		case CommandExit, CommandQuit:
			return nil, io.EOF
		case CommandReset:
			return r.engine.Reset(ctx, r.SessionID)
		}
		return r.engine.Submit(ctx, r.SessionID, clean)
	}
}

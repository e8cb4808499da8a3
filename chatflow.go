package chatflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/utopium/chatflow/internal/logging"
	"github.com/utopium/chatflow/internal/runtime"
	"github.com/utopium/chatflow/pkg/adapters/memory"
	"github.com/utopium/chatflow/pkg/domain"
	"github.com/utopium/chatflow/pkg/ports"
	"github.com/utopium/chatflow/pkg/registry"
	"github.com/utopium/chatflow/pkg/session"
)

// Reply is the outcome of one interaction with a session.
type Reply struct {
	SessionID string           `json:"session_id"`
	Snapshot  *domain.Snapshot `json:"snapshot"`

	// Messages are the bot bubbles produced by this interaction, in order.
	Messages []domain.Message `json:"messages"`

	// Pending is set while the conversation waits for a file.
	Pending *domain.FileRequest `json:"pending,omitempty"`
}

// ChangeListener receives what a persist changed. It runs under the session lock
// and must not block.
type ChangeListener func(ctx context.Context, diff *domain.SnapshotDiff)

// ToolGuard runs before each side effect. An error cancels the call and is
// reported like a failed side effect.
type ToolGuard func(ctx context.Context, call domain.ToolCall) error

// Engine is the high-level entry point of the library.
// It wraps the pure runtime and performs every side-effect the runtime requests.
type Engine struct {
	runtime  *runtime.Engine
	sessions *session.Manager

	store     ports.StateStore
	backend   ports.Backend
	picker    ports.FilePicker
	locker    ports.DistributedLocker
	catalog   *runtime.Catalog
	hooks     domain.LifecycleHooks
	listeners []ChangeListener
	logger    *slog.Logger
	tools     *registry.Registry
	guard     ToolGuard
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets where sessions are persisted (default: in memory).
func WithStore(store ports.StateStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithBackend sets the REST API used by the flows' side-effects.
func WithBackend(backend ports.Backend) Option {
	return func(e *Engine) {
		e.backend = backend
	}
}

// WithFilePicker sets how files are requested from the user.
// Without one, file steps wait for AttachFile.
func WithFilePicker(picker ports.FilePicker) Option {
	return func(e *Engine) {
		e.picker = picker
	}
}

// WithLocker enables distributed session locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithCatalog replaces the built-in accounts, post types and image models.
func WithCatalog(c runtime.Catalog) Option {
	return func(e *Engine) {
		e.catalog = &c
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithChangeListener registers a listener for persisted changes.
func WithChangeListener(l ChangeListener) Option {
	return func(e *Engine) {
		e.listeners = append(e.listeners, l)
	}
}

// WithToolGuard sets a check that may veto side effects before they start.
func WithToolGuard(guard ToolGuard) Option {
	return func(e *Engine) {
		e.guard = guard
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}
	if e.picker == nil {
		e.picker = ports.DeferredPicker
	}

	var rtOpts []runtime.EngineOption
	if e.catalog != nil {
		rtOpts = append(rtOpts, runtime.WithCatalog(*e.catalog))
	}
	e.runtime = runtime.NewEngine(rtOpts...)

	e.tools = registry.NewRegistry()
	e.registerTools()

	sessOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(e.store, sessOpts...)

	return e
}

// Catalog returns the option lists in use.
func (e *Engine) Catalog() runtime.Catalog {
	return e.runtime.Catalog()
}

// Sessions exposes the session manager for administration.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Initialize restores a session, or returns defaults when it is missing or its
// persisted state is corrupt. It never writes.
func (e *Engine) Initialize(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := e.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		snap, _, err = e.sessions.Restore(ctx, sessionID)
		return err
	})
	return snap, err
}

// Inspect is Initialize plus the file the session is waiting for, if any.
func (e *Engine) Inspect(ctx context.Context, sessionID string) (*Reply, error) {
	snap, err := e.Initialize(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Reply{
		SessionID: sessionID,
		Snapshot:  snap,
		Messages:  []domain.Message{},
		Pending:   e.runtime.PendingFile(snap.State),
	}, nil
}

// Open restores a session and greets it the first time.
// Opening an already greeted session changes nothing.
func (e *Engine) Open(ctx context.Context, sessionID string) (*Reply, error) {
	return e.withTurn(ctx, sessionID, func(ctx context.Context, t *turn) error {
		next, actions := e.runtime.Greet(t.snap.State)
		if len(actions) == 0 {
			if t.fresh {
				return t.persist(ctx)
			}
			return nil
		}
		t.transition(ctx, next)
		return e.drain(ctx, t, actions)
	})
}

// Submit feeds one line of user input, typed or picked from the quick replies.
func (e *Engine) Submit(ctx context.Context, sessionID string, text string) (*Reply, error) {
	return e.withTurn(ctx, sessionID, func(ctx context.Context, t *turn) error {
		t.snap.Append(domain.UserMessage(text))
		if err := t.persist(ctx); err != nil {
			return err
		}

		if e.hooks.OnInput != nil {
			e.hooks.OnInput(ctx, &domain.InputEvent{
				EventBase: e.event(domain.EventInput, sessionID),
				Flow:      t.snap.State.ActiveFlow(),
			})
		}

		next, actions := e.runtime.Dispatch(t.snap.State, text)
		t.transition(ctx, next)
		return e.drain(ctx, t, actions)
	})
}

// AttachFile delivers a file the user chose outside the conversation.
// It fails with domain.ErrUnexpectedFile when no step waits for one.
func (e *Engine) AttachFile(ctx context.Context, sessionID string, file *domain.Attachment) (*Reply, error) {
	return e.withTurn(ctx, sessionID, func(ctx context.Context, t *turn) error {
		return e.accept(ctx, t, file)
	})
}

// Reset clears the state and the transcript and greets again.
func (e *Engine) Reset(ctx context.Context, sessionID string) (*Reply, error) {
	return e.withTurn(ctx, sessionID, func(ctx context.Context, t *turn) error {
		t.snap.Transcript = []domain.Message{}
		t.transition(ctx, e.runtime.Reset(t.snap.State))

		next, actions := e.runtime.Greet(t.snap.State)
		t.transition(ctx, next)
		if err := t.persist(ctx); err != nil {
			return err
		}
		return e.drain(ctx, t, actions)
	})
}

// Delete removes a session from the store.
func (e *Engine) Delete(ctx context.Context, sessionID string) error {
	return e.sessions.Delete(ctx, sessionID)
}

// List returns the IDs of the stored sessions.
func (e *Engine) List(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// turn is one locked interaction with a session.
type turn struct {
	e     *Engine
	id    string
	snap  *domain.Snapshot
	saved *domain.Snapshot
	fresh bool
	reply *Reply
}

func (e *Engine) withTurn(ctx context.Context, sessionID string, fn func(context.Context, *turn) error) (*Reply, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	var reply *Reply
	err := e.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		snap, fresh, err := e.sessions.Restore(ctx, sessionID)
		if err != nil {
			return err
		}

		t := &turn{
			e:     e,
			id:    sessionID,
			snap:  snap,
			saved: snap.Clone(),
			fresh: fresh,
			reply: &Reply{SessionID: sessionID, Messages: []domain.Message{}},
		}
		if err := fn(ctx, t); err != nil {
			return err
		}

		t.reply.Snapshot = t.snap.Clone()
		t.reply.Pending = e.runtime.PendingFile(t.snap.State)
		reply = t.reply
		return nil
	})
	return reply, err
}

// transition installs the next state and reports a position change.
func (t *turn) transition(ctx context.Context, next *domain.State) {
	prev := t.snap.State
	t.snap.State = next

	if t.e.hooks.OnStepEnter == nil {
		return
	}
	if prev.ActiveFlow() == next.ActiveFlow() && prev.Position() == next.Position() {
		return
	}
	t.e.hooks.OnStepEnter(ctx, &domain.StepEvent{
		EventBase: t.e.event(domain.EventStepEnter, t.id),
		Flow:      next.ActiveFlow(),
		Step:      next.Position(),
	})
}

// persist saves the snapshot and notifies listeners of what changed.
func (t *turn) persist(ctx context.Context) error {
	if err := t.e.store.Save(ctx, t.id, t.snap); err != nil {
		return fmt.Errorf("failed to persist session %s: %w", t.id, err)
	}
	t.fresh = false

	if diff := domain.Diff(t.id, t.saved, t.snap); diff != nil {
		for _, l := range t.e.listeners {
			l(ctx, diff)
		}
	}
	t.saved = t.snap.Clone()
	return nil
}

// say appends a bot bubble and persists it.
func (t *turn) say(ctx context.Context, msg domain.Message) error {
	t.snap.Append(msg)
	t.reply.Messages = append(t.reply.Messages, msg)
	return t.persist(ctx)
}

// drain performs the actions requested by the runtime, in order. Actions produced
// while handling one run before the rest of the queue.
func (e *Engine) drain(ctx context.Context, t *turn, actions []domain.ActionRequest) error {
	queue := append([]domain.ActionRequest(nil), actions...)

	for len(queue) > 0 {
		act := queue[0]
		queue = queue[1:]

		switch act.Type {
		case domain.ActionRenderMessage:
			msg, ok := act.Payload.(domain.Message)
			if !ok {
				return fmt.Errorf("invalid render payload %T", act.Payload)
			}
			if err := t.say(ctx, msg); err != nil {
				return err
			}

		case domain.ActionRequestFile:
			req, ok := act.Payload.(domain.FileRequest)
			if !ok {
				return fmt.Errorf("invalid file request payload %T", act.Payload)
			}
			file, err := e.picker.PickFile(ctx, req)
			if err != nil || file == nil {
				if err != nil && !errors.Is(err, domain.ErrNoFileSelected) {
					e.logger.Warn("file picker failed, waiting for an attachment",
						"session_id", t.id,
						"purpose", req.Purpose,
						"err", err,
					)
				}
				continue
			}
			next, more, err := e.runtime.AcceptFile(t.snap.State, file)
			if err != nil {
				return err
			}
			if err := t.attach(ctx, next, file); err != nil {
				return err
			}
			queue = append(more, queue...)

		case domain.ActionCallTool:
			call, ok := act.Payload.(domain.ToolCall)
			if !ok {
				return fmt.Errorf("invalid tool call payload %T", act.Payload)
			}
			result := e.invoke(ctx, t.id, call)
			next, more, err := e.runtime.Complete(t.snap.State, result)
			if err != nil {
				return err
			}
			t.transition(ctx, next)
			queue = append(more, queue...)

		default:
			e.logger.Warn("ignoring unknown action", "session_id", t.id, "type", act.Type)
		}
	}

	return t.persist(ctx)
}

func (e *Engine) accept(ctx context.Context, t *turn, file *domain.Attachment) error {
	next, actions, err := e.runtime.AcceptFile(t.snap.State, file)
	if err != nil {
		return err
	}
	if err := t.attach(ctx, next, file); err != nil {
		return err
	}
	return e.drain(ctx, t, actions)
}

// attach records the chosen file as a user bubble and installs the next state.
func (t *turn) attach(ctx context.Context, next *domain.State, file *domain.Attachment) error {
	t.snap.Append(domain.UserMessage(file.Name))
	t.transition(ctx, next)
	return t.persist(ctx)
}

func (e *Engine) event(typ domain.EventType, sessionID string) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now(),
		Type:      typ,
		SessionID: sessionID,
	}
}

package runtime

import (
	"fmt"

	"github.com/utopium/chatflow/pkg/domain"
)

// Engine is the conversation state machine.
// It is pure: every method takes a state, never mutates it, and returns the next
// state together with the actions the host must perform.
type Engine struct {
	catalog Catalog
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithCatalog replaces the built-in option lists.
func WithCatalog(c Catalog) EngineOption {
	return func(e *Engine) {
		e.catalog = c
	}
}

// NewEngine creates a new engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{catalog: DefaultCatalog()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the option lists in use.
func (e *Engine) Catalog() Catalog {
	return e.catalog
}

// Greet shows the one-time greeting and the idle menu.
// It is a no-op once the state has greeted.
func (e *Engine) Greet(current *domain.State) (*domain.State, []domain.ActionRequest) {
	if current.HasGreeted {
		return current.Clone(), nil
	}
	next := e.begin(current)
	next.HasGreeted = true
	return next, []domain.ActionRequest{
		domain.Render(domain.BotMessage(e.catalog.Greeting)),
		e.menu(PromptMenu),
	}
}

// Dispatch routes one user input. Precedence: image mode, caption mode,
// idle intent, then the post-creation flow.
func (e *Engine) Dispatch(current *domain.State, input string) (*domain.State, []domain.ActionRequest) {
	next := e.begin(current)

	switch next.ActiveFlow() {
	case domain.FlowImage:
		return next, e.handleImage(next, input)
	case domain.FlowCaption:
		return next, e.handleCaption(next, input)
	case domain.FlowIdle:
		return next, e.handleIntent(next, input)
	default:
		return next, e.handlePost(next, input)
	}
}

// AcceptFile delivers a file chosen out-of-band. Only the image reference step and
// the post file step wait for one.
func (e *Engine) AcceptFile(current *domain.State, file *domain.Attachment) (*domain.State, []domain.ActionRequest, error) {
	if file == nil {
		return nil, nil, fmt.Errorf("accept file: %w", domain.ErrNoFileSelected)
	}

	switch {
	case current.ImgMode && current.ImgStep == domain.ImageFile:
		next := e.begin(current)
		next.RefFile = file
		next.ImgStep = domain.ImageGenerate
		return next, e.generateImage(next), nil

	case current.ActiveFlow() == domain.FlowPost && current.Step == domain.StepFile:
		next := e.begin(current)
		next.File = file
		next.Editing = false
		return next, e.enter(next, domain.StepConfirm), nil
	}

	return nil, nil, fmt.Errorf("accept file at %q: %w", current.Position(), domain.ErrUnexpectedFile)
}

// PendingFile reports the file the conversation is waiting for, or nil.
func (e *Engine) PendingFile(state *domain.State) *domain.FileRequest {
	switch {
	case state.ImgMode && state.ImgStep == domain.ImageFile:
		req := referenceFileRequest()
		return &req
	case state.ActiveFlow() == domain.FlowPost && state.Step == domain.StepFile:
		req := postFileRequest(state)
		return &req
	}
	return nil
}

// Reset returns the default state.
func (e *Engine) Reset(current *domain.State) *domain.State {
	next := domain.NewState()
	if current != nil {
		next.Version = current.Version + 1
	}
	return next
}

func (e *Engine) begin(current *domain.State) *domain.State {
	next := current.Clone()
	next.Normalize()
	next.Version++
	return next
}

func (e *Engine) menu(prompt string) domain.ActionRequest {
	return domain.Render(domain.BotMessage(prompt, MenuReplies()...))
}

package runtime

import (
	"fmt"

	"github.com/utopium/chatflow/pkg/domain"
)

// Complete applies the outcome of a side-effect. Success and failure both end on the
// idle menu with every flow field back at its default; a failure adds an inline
// error bubble first.
func (e *Engine) Complete(current *domain.State, result domain.ToolResult) (*domain.State, []domain.ActionRequest, error) {
	next := e.begin(current)

	var outcome domain.Message
	switch result.Name {
	case domain.ToolGenerateCaption:
		next.GPTMode = false
		next.GPTStep = domain.CaptionContext
		outcome = domain.BotMessage(result.Result)

	case domain.ToolGenerateImage:
		next.ImgMode = false
		next.ImgStep = domain.ImagePrompt
		next.ImgPrompt = ""
		next.RefFile = nil
		outcome = domain.BotMessage(fmt.Sprintf("![Generated image](%s)", result.Result))

	case domain.ToolPublishPost:
		next.Step = domain.StepIdle
		next.Data = make(map[string]string)
		next.File = nil
		next.SkipHLSub = false
		next.AwaitYes = false
		next.Editing = false
		outcome = domain.BotMessage(PromptPostSent)

	default:
		return nil, nil, fmt.Errorf("complete %q: %w", result.Name, domain.ErrUnknownTool)
	}

	if result.IsError {
		outcome = domain.BotMessage(ErrorPrefix + result.Error)
	}

	return next, []domain.ActionRequest{
		domain.Render(outcome),
		e.menu(PromptAnythingElse),
	}, nil
}
